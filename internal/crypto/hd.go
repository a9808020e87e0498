package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/tyler-smith/go-bip39"
)

const hardened = hdkeychain.HardenedKeyStart

// Purpose and coin indexes of the derivation paths used per address kind:
// legacy wallets follow m/44'/0'/0'/0/0, native segwit m/84'/0'/0'/0/0 and
// Ethereum m/44'/60'/0'/0/0.
func pathFor(kind AddressKind) []uint32 {
	switch kind {
	case P2WPKH:
		return []uint32{hardened + 84, hardened + 0, hardened + 0, 0, 0}
	case Ethereum:
		return []uint32{hardened + 44, hardened + 60, hardened + 0, 0, 0}
	default:
		return []uint32{hardened + 44, hardened + 0, hardened + 0, 0, 0}
	}
}

// PathString renders the derivation path used for kind.
func PathString(kind AddressKind) string {
	s := "m"
	for _, i := range pathFor(kind) {
		if i >= hardened {
			s += fmt.Sprintf("/%d'", i-hardened)
		} else {
			s += fmt.Sprintf("/%d", i)
		}
	}
	return s
}

// FromMnemonic derives the first receive address of the default account for
// every configured kind, together with its child private key. The mnemonic
// checksum is verified first.
func (d *Deriver) FromMnemonic(mnemonic, passphrase string) ([]Address, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("mnemonic: %w", err)
	}
	master, err := hdkeychain.NewMaster(seed, d.net)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	out := make([]Address, 0, len(d.kinds))
	for _, kind := range d.kinds {
		child := master
		for _, i := range pathFor(kind) {
			child, err = child.Derive(i)
			if err != nil {
				return nil, fmt.Errorf("derive %s: %w", PathString(kind), err)
			}
		}
		priv, err := child.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", PathString(kind), err)
		}
		addr, err := encode(priv.PubKey(), kind, d.net)
		if err != nil {
			return nil, err
		}
		a := Address{Kind: kind, Value: addr}
		copy(a.PrivateKey[:], priv.Serialize())
		out = append(out, a)
	}
	return out, nil
}
