// Package engine reproduces the Math.random() generators of historically
// vulnerable JavaScript runtimes, bit for bit.
//
// Every generator is a small fixed-width register machine. A State is a plain
// value: Next returns the output together with the successor state and never
// mutates its receiver, so a candidate's generator can be rebuilt from
// (seed, variant) at any time and shared by nobody.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVariant is returned when a variant name cannot be resolved.
var ErrUnknownVariant = errors.New("unknown engine variant")

// Variant identifies one historical generator construction.
type Variant uint8

const (
	// V8Lcg is the two-lane multiply-with-carry generator (MWC1616) of
	// Chrome/V8 before 2015.
	V8Lcg Variant = iota + 1

	// PlatformLcg is the 48-bit java.util.Random-style LCG shared by
	// SpiderMonkey and Chakra.
	PlatformLcg

	// CrtCongruential is the MSVC CRT rand() pair used by Safari on Windows.
	CrtCongruential
)

// Variants lists every known variant in a stable order.
var Variants = []Variant{V8Lcg, PlatformLcg, CrtCongruential}

// String returns the canonical name of the variant.
func (v Variant) String() string {
	switch v {
	case V8Lcg:
		return "v8"
	case PlatformLcg:
		return "platform-lcg"
	case CrtCongruential:
		return "crt"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

var variantAliases = map[string]Variant{
	"v8":           V8Lcg,
	"v8-lcg":       V8Lcg,
	"mwc1616":      V8Lcg,
	"chrome":       V8Lcg,
	"platform-lcg": PlatformLcg,
	"platform":     PlatformLcg,
	"lcg48":        PlatformLcg,
	"java":         PlatformLcg,
	"firefox":      PlatformLcg,
	"spidermonkey": PlatformLcg,
	"ie":           PlatformLcg,
	"chakra":       PlatformLcg,
	"crt":          CrtCongruential,
	"msvc":         CrtCongruential,
	"safari":       CrtCongruential,
	"safari-win":   CrtCongruential,
}

// ParseVariant resolves a canonical name or a runtime alias.
func ParseVariant(name string) (Variant, error) {
	v, ok := variantAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// ParseVariants parses a comma separated list, ignoring duplicates.
func ParseVariants(list string) ([]Variant, error) {
	var out []Variant
	seen := make(map[Variant]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := ParseVariant(part)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

const (
	mask32 = 0xFFFFFFFF
	mask48 = (uint64(1) << 48) - 1

	mwcMulA = 18000
	mwcMulB = 30903

	lcg48Mul = 0x5DEECE66D
	lcg48Add = 0xB

	crtMul = 214013
	crtAdd = 2531011
)

// State is the register file of one generator instance. Only the registers
// of the selected variant are meaningful. States must come from Seed or
// MustSeed: the zero State belongs to no variant and Next panics on it.
type State struct {
	variant Variant
	s1, s2  uint32 // MWC lanes, or the CRT register in s1
	s48     uint64 // 48-bit LCG register
}

// Seed builds a fresh state for the variant from a 64-bit seed (normally the
// wall-clock timestamp in milliseconds).
func Seed(v Variant, seed uint64) (State, error) {
	s := State{variant: v}
	switch v {
	case V8Lcg:
		s.s1 = uint32(seed & mask32)
		s.s2 = uint32((seed >> 32) & mask32)
		// A zero lane never leaves zero under the MWC update.
		if s.s1 == 0 {
			s.s1 = 1
		}
		if s.s2 == 0 {
			s.s2 = 1
		}
	case PlatformLcg:
		s.s48 = seed & mask48
	case CrtCongruential:
		s.s1 = uint32(seed & mask32)
	default:
		return State{}, fmt.Errorf("%w: %d", ErrUnknownVariant, uint8(v))
	}
	return s, nil
}

// MustSeed is Seed for variants known to be valid.
func MustSeed(v Variant, seed uint64) State {
	s, err := Seed(v, seed)
	if err != nil {
		panic(err)
	}
	return s
}

// Variant reports which generator the state belongs to.
func (s State) Variant() Variant { return s.variant }

// Next advances the generator once and returns the 16-bit output with the
// successor state. It corresponds to Math.floor(65536 * Math.random()).
// It panics on a State that was not built by Seed.
func (s State) Next() (uint16, State) {
	switch s.variant {
	case V8Lcg:
		s.s1 = mwcMulA*(s.s1&0xFFFF) + (s.s1 >> 16)
		s.s2 = mwcMulB*(s.s2&0xFFFF) + (s.s2 >> 16)
		return uint16(((s.s1 << 16) + s.s2) >> 16), s
	case PlatformLcg:
		s.s48 = (s.s48*lcg48Mul + lcg48Add) & mask48
		return uint16(s.s48 >> 16), s
	case CrtCongruential:
		var r1, r2 uint32
		r1, s.s1 = crtStep(s.s1)
		r2, s.s1 = crtStep(s.s1)
		combined := r1<<15 | r2
		return uint16(combined >> 14), s
	default:
		panic(fmt.Sprintf("engine: Next on unseeded state (%v)", s.variant))
	}
}

// crtStep is one MSVC rand() call: it returns the 15-bit output and the new
// register value.
func crtStep(x uint32) (uint32, uint32) {
	x = x*crtMul + crtAdd
	return (x >> 16) & 0x7FFF, x
}

// FillPool draws 16-bit values from a freshly seeded generator and appends
// them high byte first until the pool holds n bytes. An odd n drops the low
// byte of the final draw.
func FillPool(v Variant, seed uint64, n int) ([]byte, error) {
	s, err := Seed(v, seed)
	if err != nil {
		return nil, err
	}
	pool := make([]byte, n)
	var r uint16
	for i := 0; i < n; {
		r, s = s.Next()
		pool[i] = byte(r >> 8)
		i++
		if i < n {
			pool[i] = byte(r)
			i++
		}
	}
	return pool, nil
}
