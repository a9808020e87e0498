// Package kernelgen expands a declarative round table for the dual-lane
// 160-bit hash into device kernel source.
//
// The table (RoundSpec) and the text generator are kept apart: the table can
// be executed directly with Evaluate and checked against the oracle, and the
// generator never computes anything but text.
package kernelgen

// Func names one of the five nonlinear round functions.
type Func uint8

const (
	F1 Func = iota + 1 // x ^ y ^ z
	F2                 // (x & y) | (~x & z)
	F3                 // (x | ~y) ^ z
	F4                 // (x & z) | (y & ~z)
	F5                 // x ^ (y | ~z)
)

func (f Func) String() string {
	switch f {
	case F1:
		return "F1"
	case F2:
		return "F2"
	case F3:
		return "F3"
	case F4:
		return "F4"
	case F5:
		return "F5"
	default:
		return "F?"
	}
}

// Reg is one of the five working registers of a lane.
type Reg uint8

const (
	A Reg = iota
	B
	C
	D
	E
)

func (r Reg) String() string {
	if r > E {
		return "?"
	}
	return "abcde"[r : r+1]
}

// Order assigns roles to the registers for one round: Order[0] is
// accumulated into, Order[1..3] feed the nonlinear function, Order[2] is
// rotated by ten and Order[4] is the carry added after rotation.
type Order [5]Reg

// Round is one row of the table. Both lanes use the same register order.
type Round struct {
	Order    Order
	MsgLeft  uint8
	RotLeft  uint8
	MsgRight uint8
	RotRight uint8
}

// LaneGroup is the per-group selector of one lane.
type LaneGroup struct {
	Func     Func
	Constant uint32
}

// Group is sixteen consecutive rounds sharing functions and constants.
type Group struct {
	Name   string
	Left   LaneGroup
	Right  LaneGroup
	Rounds []Round
}

// RoundSpec fully defines one transform.
type RoundSpec struct {
	Name   string
	Groups []Group
}

var (
	oABCDE = Order{A, B, C, D, E}
	oEABCD = Order{E, A, B, C, D}
	oDEABC = Order{D, E, A, B, C}
	oCDEAB = Order{C, D, E, A, B}
	oBCDEA = Order{B, C, D, E, A}
)

// RIPEMD160 is the round table of RIPEMD-160.
var RIPEMD160 = RoundSpec{
	Name: "ripemd160",
	Groups: []Group{
		{
			Name:  "round1",
			Left:  LaneGroup{F1, 0x00000000},
			Right: LaneGroup{F5, 0x50a28be6},
			Rounds: []Round{
				{oABCDE, 0, 11, 5, 8},
				{oEABCD, 1, 14, 14, 9},
				{oDEABC, 2, 15, 7, 9},
				{oCDEAB, 3, 12, 0, 11},
				{oBCDEA, 4, 5, 9, 13},
				{oABCDE, 5, 8, 2, 15},
				{oEABCD, 6, 7, 11, 15},
				{oDEABC, 7, 9, 4, 5},
				{oCDEAB, 8, 11, 13, 7},
				{oBCDEA, 9, 13, 6, 7},
				{oABCDE, 10, 14, 15, 8},
				{oEABCD, 11, 15, 8, 11},
				{oDEABC, 12, 6, 1, 14},
				{oCDEAB, 13, 7, 10, 14},
				{oBCDEA, 14, 9, 3, 12},
				{oABCDE, 15, 8, 12, 6},
			},
		},
		{
			Name:  "round2",
			Left:  LaneGroup{F2, 0x5a827999},
			Right: LaneGroup{F4, 0x5c4dd124},
			Rounds: []Round{
				{oEABCD, 7, 7, 6, 9},
				{oDEABC, 4, 6, 11, 13},
				{oCDEAB, 13, 8, 3, 15},
				{oBCDEA, 1, 13, 7, 7},
				{oABCDE, 10, 11, 0, 12},
				{oEABCD, 6, 9, 13, 8},
				{oDEABC, 15, 7, 5, 9},
				{oCDEAB, 3, 15, 10, 11},
				{oBCDEA, 12, 7, 14, 7},
				{oABCDE, 0, 12, 15, 7},
				{oEABCD, 9, 15, 8, 12},
				{oDEABC, 5, 9, 12, 7},
				{oCDEAB, 2, 11, 4, 6},
				{oBCDEA, 14, 7, 9, 15},
				{oABCDE, 11, 13, 1, 13},
				{oEABCD, 8, 12, 2, 11},
			},
		},
		{
			Name:  "round3",
			Left:  LaneGroup{F3, 0x6ed9eba1},
			Right: LaneGroup{F3, 0x6d703ef3},
			Rounds: []Round{
				{oDEABC, 3, 11, 15, 9},
				{oCDEAB, 10, 13, 5, 7},
				{oBCDEA, 14, 6, 1, 15},
				{oABCDE, 4, 7, 3, 11},
				{oEABCD, 9, 14, 7, 8},
				{oDEABC, 15, 9, 14, 6},
				{oCDEAB, 8, 13, 6, 6},
				{oBCDEA, 1, 15, 9, 14},
				{oABCDE, 2, 14, 11, 12},
				{oEABCD, 7, 8, 8, 13},
				{oDEABC, 0, 13, 12, 5},
				{oCDEAB, 6, 6, 2, 14},
				{oBCDEA, 13, 5, 10, 13},
				{oABCDE, 11, 12, 0, 13},
				{oEABCD, 5, 7, 4, 7},
				{oDEABC, 12, 5, 13, 5},
			},
		},
		{
			Name:  "round4",
			Left:  LaneGroup{F4, 0x8f1bbcdc},
			Right: LaneGroup{F2, 0x7a6d76e9},
			Rounds: []Round{
				{oCDEAB, 1, 11, 8, 15},
				{oBCDEA, 9, 12, 6, 5},
				{oABCDE, 11, 14, 4, 8},
				{oEABCD, 10, 15, 1, 11},
				{oDEABC, 0, 14, 3, 14},
				{oCDEAB, 8, 15, 11, 14},
				{oBCDEA, 12, 9, 15, 6},
				{oABCDE, 4, 8, 0, 14},
				{oEABCD, 13, 9, 5, 6},
				{oDEABC, 3, 14, 12, 9},
				{oCDEAB, 7, 5, 2, 12},
				{oBCDEA, 15, 6, 13, 9},
				{oABCDE, 14, 8, 9, 12},
				{oEABCD, 5, 6, 7, 5},
				{oDEABC, 6, 5, 10, 15},
				{oCDEAB, 2, 12, 14, 8},
			},
		},
		{
			Name:  "round5",
			Left:  LaneGroup{F5, 0xa953fd4e},
			Right: LaneGroup{F1, 0x00000000},
			Rounds: []Round{
				{oBCDEA, 4, 9, 12, 8},
				{oABCDE, 0, 15, 15, 5},
				{oEABCD, 5, 5, 10, 12},
				{oDEABC, 9, 11, 4, 9},
				{oCDEAB, 7, 6, 1, 12},
				{oBCDEA, 12, 8, 5, 5},
				{oABCDE, 2, 13, 8, 14},
				{oEABCD, 10, 12, 7, 6},
				{oDEABC, 14, 5, 6, 8},
				{oCDEAB, 1, 12, 2, 13},
				{oBCDEA, 3, 13, 13, 6},
				{oABCDE, 8, 14, 14, 5},
				{oEABCD, 11, 11, 0, 15},
				{oDEABC, 6, 8, 3, 13},
				{oCDEAB, 15, 5, 9, 11},
				{oBCDEA, 13, 6, 11, 11},
			},
		},
	},
}
