// Package consensus holds the per-network parameters the wallet core needs:
// address prefixes, key encodings and the heights at which protocol rules
// change.
package consensus

import (
	"fmt"
	"math"
	"strings"
)

// Maximum number of satoshis that may exist (21 million PIV).
const MaxMoney uint64 = 21_000_000 * Coin

// Coin is the number of satoshis in one PIV.
const Coin uint64 = 100_000_000

// SaplingBranchID is the consensus branch id mixed into the signature hash of
// sapling transactions.
const SaplingBranchID uint32 = 0x76b809bb

// Network describes one PIVX network.
type Network struct {
	Name string

	// SLIP-44 coin type used for shielded key derivation.
	CoinType uint32

	// Base58 version bytes.
	PubKeyHashPrefix byte
	ScriptHashPrefix byte
	SecretKeyPrefix  byte

	// Bech32 human-readable parts.
	PaymentAddressHRP string
	SpendingKeyHRP    string
	ViewingKeyHRP     string

	// Heights at which protocol rules activate.
	SaplingActivationHeight uint32
	Zip212ActivationHeight  uint32
}

// MainNet is the PIVX main network.
var MainNet = &Network{
	Name:                    "main",
	CoinType:                119,
	PubKeyHashPrefix:        30,
	ScriptHashPrefix:        13,
	SecretKeyPrefix:         212,
	PaymentAddressHRP:       "ps",
	SpendingKeyHRP:          "p-secret-spending-key-main",
	ViewingKeyHRP:           "pxviews",
	SaplingActivationHeight: 2700500,
	Zip212ActivationHeight:  math.MaxUint32,
}

// TestNet is the PIVX test network.
var TestNet = &Network{
	Name:                    "test",
	CoinType:                1,
	PubKeyHashPrefix:        139,
	ScriptHashPrefix:        19,
	SecretKeyPrefix:         239,
	PaymentAddressHRP:       "ptestsapling",
	SpendingKeyHRP:          "p-secret-spending-key-test",
	ViewingKeyHRP:           "pxviewtestsapling",
	SaplingActivationHeight: 201,
	Zip212ActivationHeight:  math.MaxUint32,
}

// ByName resolves "main"/"mainnet" and "test"/"testnet".
func ByName(name string) (*Network, error) {
	switch strings.ToLower(name) {
	case "main", "mainnet":
		return MainNet, nil
	case "test", "testnet":
		return TestNet, nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}

// IsTestnet reports whether n is the test network.
func (n *Network) IsTestnet() bool {
	return n == TestNet
}

// SaplingActive reports whether shielded transactions are valid at height.
func (n *Network) SaplingActive(height uint32) bool {
	return height >= n.SaplingActivationHeight
}

// Zip212Active reports whether note plaintexts carry a seed (lead byte 0x02)
// rather than raw commitment randomness (lead byte 0x01) at height.
func (n *Network) Zip212Active(height uint32) bool {
	return height >= n.Zip212ActivationHeight
}
