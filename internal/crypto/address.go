package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/sha3"
)

// Errors
var (
	ErrInvalidKey         = errors.New("private key out of range")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrUnknownAddressKind = errors.New("unknown address kind")
)

// AddressKind names one encoding of a key's public half.
type AddressKind string

const (
	P2PKH             AddressKind = "p2pkh"
	P2PKHUncompressed AddressKind = "p2pkh-uncompressed"
	P2WPKH            AddressKind = "p2wpkh"
	Ethereum          AddressKind = "eth"
)

// AllKinds lists every supported encoding. The vulnerable wallet era
// produced uncompressed keys, so that encoding is listed first.
var AllKinds = []AddressKind{P2PKHUncompressed, P2PKH, P2WPKH, Ethereum}

// ParseAddressKinds parses a comma separated list such as "p2pkh,p2wpkh".
// "all" selects every kind.
func ParseAddressKinds(list string) ([]AddressKind, error) {
	var kinds []AddressKind
	seen := make(map[AddressKind]bool)
	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if name == "all" {
			return append([]AddressKind(nil), AllKinds...), nil
		}
		k := AddressKind(name)
		switch k {
		case P2PKH, P2PKHUncompressed, P2WPKH, Ethereum:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownAddressKind, part)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnknownAddressKind)
	}
	return kinds, nil
}

// Address is one derived address and the encoding that produced it.
type Address struct {
	Kind  AddressKind
	Value string
	// PrivateKey controls the address: the input key, or the derived child
	// key for mnemonic addresses.
	PrivateKey [32]byte
}

// ValidateAddress accepts Bitcoin addresses for net and 0x-prefixed
// Ethereum addresses. It is used to reject garbage corpus rows.
func ValidateAddress(addr string, net *chaincfg.Params) error {
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		if _, err := ethAddressBytes(addr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		return nil
	}
	decoded, err := btcutil.DecodeAddress(addr, net)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !decoded.IsForNet(net) {
		return fmt.Errorf("%w: %s is not a %s address", ErrInvalidAddress, addr, net.Name)
	}
	return nil
}

// ---- Ethereum helpers ----

func keccak256Bytes(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(b)
	return h.Sum(nil)
}

// ethereumAddress hashes the 64-byte uncompressed public key (without the
// 0x04 marker) and checksums the last 20 bytes.
func ethereumAddress(uncompressed []byte) string {
	hash := keccak256Bytes(uncompressed[1:])
	return toChecksumAddress(hash[12:])
}

// ethAddressBytes decodes a 0x-prefixed 40 hex character address.
func ethAddressBytes(addr string) ([]byte, error) {
	h := strings.TrimSpace(addr)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		h = h[2:]
	}
	if len(h) != 40 {
		return nil, fmt.Errorf("invalid address length: got %d hex chars, want 40", len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("invalid address hex: %w", err)
	}
	return b, nil
}

// toChecksumAddress converts 20-byte address to EIP-55 checksummed string.
func toChecksumAddress(addr20 []byte) string {
	hexLower := hex.EncodeToString(addr20)
	hash := keccak256Bytes([]byte(hexLower))

	var out strings.Builder
	out.Grow(2 + 40)
	out.WriteString("0x")
	for i, c := range hexLower {
		if c >= '0' && c <= '9' {
			out.WriteByte(byte(c))
			continue
		}
		// hash nibble i decides the case of hex char i
		n := (hash[i/2] >> uint(4*(1-i%2))) & 0xF
		if n >= 8 {
			out.WriteByte(byte(c) - 'a' + 'A')
		} else {
			out.WriteByte(byte(c))
		}
	}
	return out.String()
}
