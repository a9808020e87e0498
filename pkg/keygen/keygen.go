// Package keygen turns weak generator output into candidate private keys.
//
// Three families exist, each matching one generation of vulnerable wallet
// software. They are not interchangeable: a key produced by one family says
// nothing about the others even though all of them yield 32 bytes.
package keygen

import (
	"crypto/rc4"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/screa/entropy-audit/pkg/engine"
	"github.com/tyler-smith/go-bip39"
)

// ErrUnknownFamily is returned when a family name cannot be resolved.
var ErrUnknownFamily = errors.New("unknown key family")

// Pool sizes used by the emulated wallets.
const (
	PoolMnemonic128 = 16
	PoolMnemonic192 = 24
	PoolStreamKey   = 256

	KeyLen = 32
)

// Family selects the key construction.
type Family uint8

const (
	// PoolStreamCipher fills a 256-byte pool, mixes in the timestamp and
	// keys an ARC4 stream with it (BitcoinJS SecureRandom, 2011-2014).
	PoolStreamCipher Family = iota + 1

	// TimestampHash hashes the timestamp together with three draws of a
	// 48-bit LCG seeded by timestamp^sequence.
	TimestampHash

	// MnemonicPool uses a 16 or 24 byte pool as BIP39 entropy. The private
	// key only exists after hierarchical derivation, which is left to the
	// address collaborator.
	MnemonicPool
)

// Families lists every family in a stable order.
var Families = []Family{PoolStreamCipher, TimestampHash, MnemonicPool}

func (f Family) String() string {
	switch f {
	case PoolStreamCipher:
		return "pool-rc4"
	case TimestampHash:
		return "timestamp-hash"
	case MnemonicPool:
		return "mnemonic"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// UsesSequence reports whether the family enumerates a per-millisecond
// sequence index.
func (f Family) UsesSequence() bool { return f == TimestampHash }

// UsesVariant reports whether the family draws from an engine variant.
func (f Family) UsesVariant() bool { return f != TimestampHash }

var familyAliases = map[string]Family{
	"pool-rc4":       PoolStreamCipher,
	"arc4":           PoolStreamCipher,
	"rc4":            PoolStreamCipher,
	"bitcoinjs":      PoolStreamCipher,
	"timestamp-hash": TimestampHash,
	"ts-hash":        TimestampHash,
	"sha256":         TimestampHash,
	"mnemonic":       MnemonicPool,
	"bip39":          MnemonicPool,
}

// ParseFamily resolves a family name.
func ParseFamily(name string) (Family, error) {
	f, ok := familyAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return f, nil
}

// ParseFamilies parses a comma separated list, ignoring duplicates.
func ParseFamilies(list string) ([]Family, error) {
	var out []Family
	seen := make(map[Family]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFamily(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// WhitenedPool fills a 256-byte pool from the variant seeded with the
// timestamp and XORs the low 32 bits of the timestamp, little-endian, into
// its first four bytes.
func WhitenedPool(v engine.Variant, timestampMs uint64) ([]byte, error) {
	pool, err := engine.FillPool(v, timestampMs, PoolStreamKey)
	if err != nil {
		return nil, err
	}
	var ts [4]byte
	binary.LittleEndian.PutUint32(ts[:], uint32(timestampMs))
	for i := range ts {
		pool[i] ^= ts[i]
	}
	return pool, nil
}

// StreamKey derives the private key of the pool/ARC4 family. The first 32
// keystream bytes are the key; nothing is discarded.
func StreamKey(v engine.Variant, timestampMs uint64) ([KeyLen]byte, error) {
	var key [KeyLen]byte
	pool, err := WhitenedPool(v, timestampMs)
	if err != nil {
		return key, err
	}
	c, err := rc4.NewCipher(pool)
	if err != nil {
		return key, fmt.Errorf("arc4 key setup: %w", err)
	}
	// XOR over zeros yields the raw keystream.
	c.XORKeyStream(key[:], key[:])
	return key, nil
}

const (
	tsLcgMul  = 25214903917
	tsLcgAdd  = 11
	tsLcgMask = (uint64(1) << 48) - 1
)

// TimestampBuffer builds the 32-byte preimage of the timestamp-hash family:
// the little-endian timestamp followed by three LCG draws, each scaled to
// [0, 65536) and widened to eight little-endian bytes.
func TimestampBuffer(timestampMs uint64, sequence uint32) [KeyLen]byte {
	var buf [KeyLen]byte
	binary.LittleEndian.PutUint64(buf[0:8], timestampMs)

	seed := timestampMs ^ uint64(sequence)
	for i := 0; i < 3; i++ {
		seed = (seed*tsLcgMul + tsLcgAdd) & tsLcgMask
		// The divisor is 2^48-1, not 2^48.
		r := uint64(float64(seed) / float64(tsLcgMask) * 65536.0)
		binary.LittleEndian.PutUint64(buf[8+i*8:16+i*8], r)
	}
	return buf
}

// TimestampHashKey derives the private key of the timestamp-hash family.
func TimestampHashKey(timestampMs uint64, sequence uint32) [KeyLen]byte {
	buf := TimestampBuffer(timestampMs, sequence)
	return sha256.Sum256(buf[:])
}

// MnemonicEntropy fills a BIP39 entropy pool of poolLen bytes (16 or 24).
func MnemonicEntropy(v engine.Variant, timestampMs uint64, poolLen int) ([]byte, error) {
	if poolLen != PoolMnemonic128 && poolLen != PoolMnemonic192 {
		return nil, fmt.Errorf("mnemonic pool length %d: must be %d or %d", poolLen, PoolMnemonic128, PoolMnemonic192)
	}
	return engine.FillPool(v, timestampMs, poolLen)
}

// Mnemonic renders the family's entropy pool as a BIP39 English phrase.
func Mnemonic(v engine.Variant, timestampMs uint64, poolLen int) (string, error) {
	entropy, err := MnemonicEntropy(v, timestampMs, poolLen)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}
