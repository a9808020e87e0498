package keygen

import (
	"fmt"

	"github.com/screa/entropy-audit/pkg/engine"
	"github.com/screa/entropy-audit/pkg/types"
)

// Target names one (family, variant) combination to enumerate.
type Target struct {
	Family  Family
	Variant engine.Variant // ignored by TimestampHash
	PoolLen int            // mnemonic pool length, 16 when zero
}

func (t Target) String() string {
	if !t.Family.UsesVariant() {
		return t.Family.String()
	}
	return t.Family.String() + "/" + t.Variant.String()
}

// Targets expands families and variants into the list of combinations a
// scan has to visit. TimestampHash appears once regardless of variants.
func Targets(families []Family, variants []engine.Variant, poolLen int) []Target {
	var out []Target
	for _, f := range families {
		if !f.UsesVariant() {
			out = append(out, Target{Family: f})
			continue
		}
		for _, v := range variants {
			out = append(out, Target{Family: f, Variant: v, PoolLen: poolLen})
		}
	}
	return out
}

// Derive produces the candidate for one point. It is a pure function of its
// arguments.
func Derive(t Target, timestampMs uint64, sequence uint32) (*types.Candidate, error) {
	c := &types.Candidate{Point: types.Point{
		TimestampMs: timestampMs,
		Family:      t.Family.String(),
	}}
	if t.Family.UsesVariant() {
		c.Variant = t.Variant.String()
	}

	switch t.Family {
	case PoolStreamCipher:
		key, err := StreamKey(t.Variant, timestampMs)
		if err != nil {
			return nil, err
		}
		c.PrivateKey = key
	case TimestampHash:
		c.Sequence = sequence
		c.PrivateKey = TimestampHashKey(timestampMs, sequence)
	case MnemonicPool:
		poolLen := t.PoolLen
		if poolLen == 0 {
			poolLen = PoolMnemonic128
		}
		phrase, err := Mnemonic(t.Variant, timestampMs, poolLen)
		if err != nil {
			return nil, err
		}
		c.Mnemonic = phrase
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFamily, uint8(t.Family))
	}
	return c, nil
}
