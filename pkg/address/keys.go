package address

import (
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// EncodeSpendingKey encodes an extended spending key as bech32.
func EncodeSpendingKey(sk sapling.SpendingKey, net *consensus.Network) string {
	s, err := encodeBech32(net.SpendingKeyHRP, sk.Bytes())
	if err != nil {
		panic(err)
	}
	return s
}

// DecodeSpendingKey parses a bech32 extended spending key of net.
func DecodeSpendingKey(s string, net *consensus.Network) (sapling.SpendingKey, error) {
	raw, err := decodeBech32(net.SpendingKeyHRP, s)
	if err != nil {
		return sapling.SpendingKey{}, shield.Decode(shield.ErrInvalidKey, "spending key", err)
	}
	return sapling.SpendingKeyFromBytes(raw)
}

// EncodeViewingKey encodes an extended full viewing key as bech32.
func EncodeViewingKey(fvk *sapling.FullViewingKey, net *consensus.Network) string {
	s, err := encodeBech32(net.ViewingKeyHRP, fvk.Bytes())
	if err != nil {
		panic(err)
	}
	return s
}

// DecodeViewingKey parses a bech32 extended full viewing key of net.
func DecodeViewingKey(s string, net *consensus.Network) (*sapling.FullViewingKey, error) {
	raw, err := decodeBech32(net.ViewingKeyHRP, s)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidKey, "viewing key", err)
	}
	return sapling.FullViewingKeyFromBytes(raw)
}

// EncodeWIF encodes a transparent private key.
func EncodeWIF(key *crypto.PrivateKey, net *consensus.Network) string {
	s, err := crypto.EncodeWIF(key.Bytes(), net.SecretKeyPrefix)
	if err != nil {
		panic(err)
	}
	return s
}

// DecodeWIF parses a transparent private key of net.
func DecodeWIF(s string, net *consensus.Network) (*crypto.PrivateKey, error) {
	key, err := crypto.ParsePrivateKeyWIF(s, net.SecretKeyPrefix)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidKey, "WIF private key", err)
	}
	return key, nil
}
