package crypto

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

var curveOrder = btcec.S256().N

// Deriver maps private keys and mnemonics to addresses of the configured
// kinds. It holds no mutable state and is safe for concurrent use.
type Deriver struct {
	net   *chaincfg.Params
	kinds []AddressKind
}

// NewDeriver returns a deriver for net producing the given kinds, in order.
func NewDeriver(net *chaincfg.Params, kinds []AddressKind) *Deriver {
	if net == nil {
		net = &chaincfg.MainNetParams
	}
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	return &Deriver{net: net, kinds: append([]AddressKind(nil), kinds...)}
}

// Net returns the chain parameters addresses are encoded for.
func (d *Deriver) Net() *chaincfg.Params { return d.net }

// Kinds returns the configured address kinds.
func (d *Deriver) Kinds() []AddressKind { return d.kinds }

// privateKey parses a raw 32-byte scalar, rejecting zero and values not
// below the curve order.
func privateKey(key [32]byte) (*btcec.PrivateKey, error) {
	k := new(big.Int).SetBytes(key[:])
	if k.Sign() == 0 || k.Cmp(curveOrder) >= 0 {
		return nil, ErrInvalidKey
	}
	priv, _ := btcec.PrivKeyFromBytes(key[:])
	return priv, nil
}

// FromPrivateKey derives one address per configured kind.
func (d *Deriver) FromPrivateKey(key [32]byte) ([]Address, error) {
	priv, err := privateKey(key)
	if err != nil {
		return nil, err
	}
	out := make([]Address, 0, len(d.kinds))
	for _, kind := range d.kinds {
		addr, err := encode(priv.PubKey(), kind, d.net)
		if err != nil {
			return nil, err
		}
		out = append(out, Address{Kind: kind, Value: addr, PrivateKey: key})
	}
	return out, nil
}

func encode(pub *btcec.PublicKey, kind AddressKind, net *chaincfg.Params) (string, error) {
	switch kind {
	case P2PKH:
		a, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), net)
		if err != nil {
			return "", err
		}
		return a.EncodeAddress(), nil
	case P2PKHUncompressed:
		a, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeUncompressed()), net)
		if err != nil {
			return "", err
		}
		return a.EncodeAddress(), nil
	case P2WPKH:
		a, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), net)
		if err != nil {
			return "", err
		}
		return a.EncodeAddress(), nil
	case Ethereum:
		return ethereumAddress(pub.SerializeUncompressed()), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAddressKind, kind)
	}
}

// WIF encodes key in wallet import format.
func WIF(key [32]byte, net *chaincfg.Params, compressed bool) (string, error) {
	priv, err := privateKey(key)
	if err != nil {
		return "", err
	}
	wif, err := btcutil.NewWIF(priv, net, compressed)
	if err != nil {
		return "", err
	}
	return wif.String(), nil
}
