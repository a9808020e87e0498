package kernelgen

import (
	"fmt"
	"strings"
)

// Dialect selects the kernel language.
type Dialect uint8

const (
	WGSL Dialect = iota
	OpenCL
)

func (d Dialect) String() string {
	if d == OpenCL {
		return "opencl"
	}
	return "wgsl"
}

// ParseDialect accepts "wgsl" and "opencl" (or "cl").
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "wgsl":
		return WGSL, nil
	case "opencl", "cl":
		return OpenCL, nil
	default:
		return 0, fmt.Errorf("unknown kernel dialect %q", name)
	}
}

// Expressions of the round functions over the three input registers.
var funcTemplates = map[Func]string{
	F1: "(%[1]s ^ %[2]s ^ %[3]s)",
	F2: "((%[1]s & %[2]s) | ((~%[1]s) & %[3]s))",
	F3: "((%[1]s | (~%[2]s)) ^ %[3]s)",
	F4: "((%[1]s & %[3]s) | (%[2]s & (~%[3]s)))",
	F5: "(%[1]s ^ (%[2]s | (~%[3]s)))",
}

type syntax struct {
	rotate   string // rotate-left helper name
	prologue []string
	declare  string // format for a register declaration from the state
	copyReg  string // format for a right-lane register copy
	stateRef string // format for state element i
	epilogue string
}

var dialects = map[Dialect]syntax{
	WGSL: {
		rotate: "rol",
		prologue: []string{
			"fn rol(x: u32, n: u32) -> u32 {",
			"    return (x << n) | (x >> (32u - n));",
			"}",
			"",
			"fn %s_transform(state: ptr<function, array<u32, 5>>, block: array<u32, 16>) {",
		},
		declare:  "var %s = (*state)[%d];",
		copyReg:  "var %sp = %s;",
		stateRef: "(*state)[%d]",
		epilogue: "}",
	},
	OpenCL: {
		rotate: "rotate",
		prologue: []string{
			"void %s_transform(uint *state, const uint *block) {",
		},
		declare:  "uint %s = state[%d];",
		copyReg:  "uint %sp = %s;",
		stateRef: "state[%d]",
		epilogue: "}",
	},
}

// Generate validates spec and renders it as kernel source. The output is a
// pure function of (spec, dialect); nothing is returned unless the whole
// table validated.
func Generate(spec *RoundSpec, d Dialect) (string, error) {
	if err := Validate(spec); err != nil {
		return "", err
	}
	syn, ok := dialects[d]
	if !ok {
		return "", fmt.Errorf("unknown kernel dialect %d", d)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by entropy-audit kernelgen from the %s round table. DO NOT EDIT.\n\n", spec.Name)
	for _, line := range syn.prologue {
		if strings.Contains(line, "%s") {
			line = fmt.Sprintf(line, spec.Name)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	regs := []Reg{A, B, C, D, E}
	decls := make([]string, len(regs))
	for i, r := range regs {
		decls[i] = fmt.Sprintf(syn.declare, r, i)
	}
	b.WriteString("    " + strings.Join(decls, " ") + "\n")
	for i, r := range regs {
		decls[i] = fmt.Sprintf(syn.copyReg, r, r)
	}
	b.WriteString("    " + strings.Join(decls, " ") + "\n\n")

	for _, g := range spec.Groups {
		fmt.Fprintf(&b, "    // %s: %s left, %s right\n", g.Name, g.Left.Func, g.Right.Func)
		for _, r := range g.Rounds {
			b.WriteString(laneStatement(syn, g.Left, r.Order, "", r.MsgLeft, r.RotLeft))
			b.WriteString(laneStatement(syn, g.Right, r.Order, "p", r.MsgRight, r.RotRight))
		}
		b.WriteByte('\n')
	}

	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "    %s h%d = %s;\n", local(d), i, fmt.Sprintf(syn.stateRef, i))
	}
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "    %s = h%d + %s + %sp;\n",
			fmt.Sprintf(syn.stateRef, i), (i+1)%5, regs[(i+2)%5], regs[(i+3)%5])
	}
	b.WriteString(syn.epilogue + "\n")
	return b.String(), nil
}

// laneStatement renders one register update for one lane; suffix selects the
// lane's register names.
func laneStatement(syn syntax, lane LaneGroup, o Order, suffix string, msg, rot uint8) string {
	name := func(r Reg) string { return r.String() + suffix }
	a, c, e := name(o[0]), name(o[2]), name(o[4])
	f := fmt.Sprintf(funcTemplates[lane.Func], name(o[1]), c, name(o[3]))
	return fmt.Sprintf("    %s += %s + block[%d] + 0x%08xu; %s = %s(%s, %du) + %s; %s = %s(%s, 10u);\n",
		a, f, msg, lane.Constant, a, syn.rotate, a, rot, e, c, syn.rotate, c)
}

func local(d Dialect) string {
	if d == OpenCL {
		return "const uint"
	}
	return "let"
}
