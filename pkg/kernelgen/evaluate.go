package kernelgen

import "math/bits"

func (f Func) apply(x, y, z uint32) uint32 {
	switch f {
	case F1:
		return x ^ y ^ z
	case F2:
		return (x & y) | (^x & z)
	case F3:
		return (x | ^y) ^ z
	case F4:
		return (x & z) | (y & ^z)
	default:
		return x ^ (y | ^z)
	}
}

// Evaluate runs the transform described by spec directly, exactly as the
// generated kernel would, and returns the new state.
func Evaluate(spec *RoundSpec, state [5]uint32, block [16]uint32) ([5]uint32, error) {
	if err := Validate(spec); err != nil {
		return state, err
	}

	left, right := state, state
	for _, g := range spec.Groups {
		for _, r := range g.Rounds {
			step(&left, g.Left, r.Order, block[r.MsgLeft], r.RotLeft)
			step(&right, g.Right, r.Order, block[r.MsgRight], r.RotRight)
		}
	}

	return recombine(state, left, right), nil
}

func step(regs *[5]uint32, lane LaneGroup, o Order, word uint32, rot uint8) {
	a, b, c, d, e := o[0], o[1], o[2], o[3], o[4]
	regs[a] += lane.Func.apply(regs[b], regs[c], regs[d]) + word + lane.Constant
	regs[a] = bits.RotateLeft32(regs[a], int(rot)) + regs[e]
	regs[c] = bits.RotateLeft32(regs[c], 10)
}

// recombine mixes the two lanes into the new state. Each output word takes
// the next input word, the left register two places on and the right
// register three places on.
func recombine(h, left, right [5]uint32) [5]uint32 {
	var out [5]uint32
	for i := range out {
		out[i] = h[(i+1)%5] + left[(i+2)%5] + right[(i+3)%5]
	}
	return out
}
