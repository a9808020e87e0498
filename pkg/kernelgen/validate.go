package kernelgen

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec is wrapped by every validation failure.
var ErrInvalidSpec = errors.New("invalid round spec")

const (
	groupCount    = 5
	roundsInGroup = 16
	wordsInBlock  = 16
)

// Validate checks that the table describes a well-formed dual-lane
// transform: five groups of sixteen rounds, each lane reading every message
// word exactly once per group, rotations in 1..31, known functions, and
// register orders that advance by one position per round.
func Validate(spec *RoundSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: nil spec", ErrInvalidSpec)
	}
	if spec.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSpec)
	}
	if len(spec.Groups) != groupCount {
		return fmt.Errorf("%w: %d groups, want %d", ErrInvalidSpec, len(spec.Groups), groupCount)
	}

	prev := Order{B, C, D, E, A} // predecessor of the first round's ABCDE
	for gi, g := range spec.Groups {
		if len(g.Rounds) != roundsInGroup {
			return fmt.Errorf("%w: group %d (%s) has %d rounds, want %d", ErrInvalidSpec, gi, g.Name, len(g.Rounds), roundsInGroup)
		}
		if !g.Left.Func.valid() || !g.Right.Func.valid() {
			return fmt.Errorf("%w: group %d (%s) has an unknown function", ErrInvalidSpec, gi, g.Name)
		}

		var seenLeft, seenRight [wordsInBlock]bool
		for ri, r := range g.Rounds {
			where := fmt.Sprintf("group %d (%s) round %d", gi, g.Name, ri)
			if r.MsgLeft >= wordsInBlock || r.MsgRight >= wordsInBlock {
				return fmt.Errorf("%w: %s: message index out of range", ErrInvalidSpec, where)
			}
			if seenLeft[r.MsgLeft] || seenRight[r.MsgRight] {
				return fmt.Errorf("%w: %s: message word read twice in group", ErrInvalidSpec, where)
			}
			seenLeft[r.MsgLeft] = true
			seenRight[r.MsgRight] = true

			if r.RotLeft == 0 || r.RotLeft > 31 || r.RotRight == 0 || r.RotRight > 31 {
				return fmt.Errorf("%w: %s: rotation out of range", ErrInvalidSpec, where)
			}
			if r.Order != prev.advance() {
				return fmt.Errorf("%w: %s: register order %s does not follow %s", ErrInvalidSpec, where, r.Order, prev)
			}
			prev = r.Order
		}
	}
	return nil
}

func (f Func) valid() bool { return f >= F1 && f <= F5 }

// advance returns the register order of the following round: every role
// moves one register back, so ABCDE becomes EABCD.
func (o Order) advance() Order {
	return Order{o[4], o[0], o[1], o[2], o[3]}
}

func (o Order) String() string {
	s := make([]byte, 0, 5)
	for _, r := range o {
		if r > E {
			s = append(s, '?')
			continue
		}
		s = append(s, "ABCDE"[r])
	}
	return string(s)
}
