// Package address encodes and decodes the human-readable address and key
// strings of a network.
//
// Encodings:
//   - Transparent P2PKH / P2SH addresses: base58check with the network's
//     version byte over a 20-byte Hash160
//   - Shielded payment addresses: bech32 with the network's payment HRP over
//     diversifier || pk_d (43 bytes)
//   - Extended spending keys and extended full viewing keys: bech32 with the
//     network's key HRP over the 169-byte ZIP-32 encoding. These exceed the
//     90 character bech32 limit, so decoding does not enforce it.
//
// Decode fails on checksum, prefix or length mismatch.
package address

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Address is a decoded recipient. It is either *Transparent or *Shielded.
type Address interface {
	String() string
	Network() *consensus.Network
	isAddress()
}

// Transparent is a P2PKH or P2SH address.
type Transparent struct {
	Hash       [20]byte
	ScriptHash bool
	net        *consensus.Network
}

// Shielded is a sapling payment address.
type Shielded struct {
	sapling.PaymentAddress
	net *consensus.Network
}

func (*Transparent) isAddress() {}
func (*Shielded) isAddress()    {}

// Network returns the network the address belongs to.
func (t *Transparent) Network() *consensus.Network { return t.net }

// Network returns the network the address belongs to.
func (s *Shielded) Network() *consensus.Network { return s.net }

// NewTransparent wraps a P2PKH hash.
func NewTransparent(hash [20]byte, net *consensus.Network) *Transparent {
	return &Transparent{Hash: hash, net: net}
}

// NewShielded wraps a payment address.
func NewShielded(addr sapling.PaymentAddress, net *consensus.Network) *Shielded {
	return &Shielded{PaymentAddress: addr, net: net}
}

// TransparentFromPublicKey returns the P2PKH address of pub.
func TransparentFromPublicKey(pub *crypto.PublicKey, net *consensus.Network) *Transparent {
	var h [20]byte
	copy(h[:], btcutil.Hash160(pub.Bytes()))
	return NewTransparent(h, net)
}

// String encodes the address as base58check.
func (t *Transparent) String() string {
	version := t.net.PubKeyHashPrefix
	if t.ScriptHash {
		version = t.net.ScriptHashPrefix
	}
	return base58.CheckEncode(t.Hash[:], version)
}

// Script returns the locking script paying to the address.
func (t *Transparent) Script() []byte {
	if t.ScriptHash {
		script := make([]byte, 0, 23)
		script = append(script, opHash160, 20)
		script = append(script, t.Hash[:]...)
		return append(script, opEqual)
	}
	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, 20)
	script = append(script, t.Hash[:]...)
	return append(script, opEqualVerify, opCheckSig)
}

// String encodes the address as bech32.
func (s *Shielded) String() string {
	raw := s.PaymentAddress.Bytes()
	str, err := encodeBech32(s.net.PaymentAddressHRP, raw[:])
	if err != nil {
		// ConvertBits cannot fail for 8-to-5 conversion with padding.
		panic(err)
	}
	return str
}

const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqual       = 0x87
	opEqualVerify = 0x88
	opCheckSig    = 0xac
)

// Decode parses a transparent or shielded address of net.
func Decode(s string, net *consensus.Network) (Address, error) {
	if strings.HasPrefix(strings.ToLower(s), net.PaymentAddressHRP+"1") {
		return DecodeShielded(s, net)
	}
	return DecodeTransparent(s, net)
}

// DecodeTransparent parses a base58check P2PKH or P2SH address.
func DecodeTransparent(s string, net *consensus.Network) (*Transparent, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidAddress, fmt.Sprintf("address %q", s), err)
	}
	if len(payload) != 20 {
		return nil, shield.Decode(shield.ErrInvalidAddress, "transparent address payload must be 20 bytes", nil)
	}
	t := &Transparent{net: net}
	switch version {
	case net.PubKeyHashPrefix:
	case net.ScriptHashPrefix:
		t.ScriptHash = true
	default:
		return nil, shield.Decode(shield.ErrInvalidAddress,
			fmt.Sprintf("version byte %d does not belong to %s", version, net.Name), nil)
	}
	copy(t.Hash[:], payload)
	return t, nil
}

// DecodeShielded parses a bech32 payment address.
func DecodeShielded(s string, net *consensus.Network) (*Shielded, error) {
	raw, err := decodeBech32(net.PaymentAddressHRP, s)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidAddress, fmt.Sprintf("address %q", s), err)
	}
	addr, err := sapling.PaymentAddressFromBytes(raw)
	if err != nil {
		return nil, err
	}
	return NewShielded(addr, net), nil
}

// ScriptAddress extracts the address paid by a standard locking script. It
// returns false for non-standard scripts.
func ScriptAddress(script []byte, net *consensus.Network) (*Transparent, bool) {
	switch {
	case len(script) == 25 && script[0] == opDup && script[1] == opHash160 && script[2] == 20 &&
		script[23] == opEqualVerify && script[24] == opCheckSig:
		t := &Transparent{net: net}
		copy(t.Hash[:], script[3:23])
		return t, true
	case len(script) == 23 && script[0] == opHash160 && script[1] == 20 && script[22] == opEqual:
		t := &Transparent{ScriptHash: true, net: net}
		copy(t.Hash[:], script[2:22])
		return t, true
	default:
		return nil, false
	}
}

func encodeBech32(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

func decodeBech32(wantHRP, s string) ([]byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, err
	}
	if hrp != wantHRP {
		return nil, fmt.Errorf("human-readable part %q, want %q", hrp, wantHRP)
	}
	return bech32.ConvertBits(data, 5, 8, false)
}
