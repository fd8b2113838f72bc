// Package sapling implements the shielded key hierarchy, notes, nullifiers
// and note encryption of the Sapling protocol.
//
// Keys follow ZIP-32: extended spending keys are derived along
// m/32'/coin_type'/account', diversifiers are FF1-AES256 encryptions of an
// 88-bit index under dk, and a payment address is (d, [ivk]g_d). The curve
// arithmetic, Pedersen hashes and signatures live in pkg/jubjub.
package sapling

import (
	"encoding/hex"
	"strings"

	"github.com/capitalone/fpe/ff1"

	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Diversifier selects one of the unlinkable addresses of a key.
type Diversifier [11]byte

// PaymentAddressSize is the raw size of a payment address.
const PaymentAddressSize = 43

// PaymentAddress is a diversified shielded address.
type PaymentAddress struct {
	Diversifier Diversifier
	PkD         [32]byte // repr_J([ivk]g_d)
}

// Bytes returns diversifier || pk_d.
func (a PaymentAddress) Bytes() [PaymentAddressSize]byte {
	var out [PaymentAddressSize]byte
	copy(out[:11], a.Diversifier[:])
	copy(out[11:], a.PkD[:])
	return out
}

// PaymentAddressFromBytes decodes diversifier || pk_d.
func PaymentAddressFromBytes(b []byte) (PaymentAddress, error) {
	var a PaymentAddress
	if len(b) != PaymentAddressSize {
		return a, shield.Decode(shield.ErrInvalidAddress, "payment address must be 43 bytes", nil)
	}
	copy(a.Diversifier[:], b[:11])
	copy(a.PkD[:], b[11:])
	if _, ok := jubjub.DiversifiedBase(a.Diversifier); !ok {
		return PaymentAddress{}, shield.Decode(shield.ErrInvalidAddress, "diversifier has no base point", nil)
	}
	if _, err := jubjub.PrimeOrderPointFromBytes(a.PkD); err != nil {
		return PaymentAddress{}, shield.Decode(shield.ErrInvalidAddress, "pk_d is not a valid point", err)
	}
	return a, nil
}

// DiversifiedBase returns g_d of the address.
func (a PaymentAddress) DiversifiedBase() (jubjub.Point, bool) {
	return jubjub.DiversifiedBase(a.Diversifier)
}

// MarshalText encodes the raw address as hex. Human-readable bech32 strings
// are produced by pkg/address.
func (a PaymentAddress) MarshalText() ([]byte, error) {
	b := a.Bytes()
	return []byte(hex.EncodeToString(b[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *PaymentAddress) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return shield.Decode(shield.ErrInvalidHex, "payment address hex", err)
	}
	parsed, err := PaymentAddressFromBytes(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DiversifierIndex is an 88-bit little-endian counter.
type DiversifierIndex [11]byte

// Increment advances the index by one. It fails once every index has been
// used.
func (i *DiversifierIndex) Increment() error {
	for k := range i {
		i[k]++
		if i[k] != 0 {
			return nil
		}
	}
	// Wrapped around to zero: restore the maximum value.
	for k := range i {
		i[k] = 0xff
	}
	return shield.Derivation(shield.ErrDiversifierSpace, "diversifier index space exhausted", nil)
}

// Uint64 returns the low 64 bits of the index.
func (i DiversifierIndex) Uint64() uint64 {
	var v uint64
	for k := 7; k >= 0; k-- {
		v = v<<8 | uint64(i[k])
	}
	return v
}

// DiversifierIndexFromUint64 builds an index from v.
func DiversifierIndexFromUint64(v uint64) DiversifierIndex {
	var i DiversifierIndex
	for k := 0; k < 8; k++ {
		i[k] = byte(v >> (8 * k))
	}
	return i
}

// Diversifier maps index to d = FF1-AES256_dk(index) over the 88 index bits,
// least significant bit of each byte first.
func (fvk *FullViewingKey) Diversifier(index DiversifierIndex) (Diversifier, error) {
	cipher, err := ff1.NewCipher(2, 0, fvk.Dk[:], nil)
	if err != nil {
		return Diversifier{}, shield.Derivation(shield.ErrInvalidKey, "diversifier key", err)
	}
	enc, err := cipher.Encrypt(toBinaryNumerals(index[:]))
	if err != nil {
		return Diversifier{}, shield.Derivation(shield.ErrInvalidKey, "diversifier encryption", err)
	}
	var d Diversifier
	fromBinaryNumerals(enc, d[:])
	return d, nil
}

func toBinaryNumerals(b []byte) string {
	var sb strings.Builder
	sb.Grow(8 * len(b))
	for _, x := range b {
		for i := 0; i < 8; i++ {
			sb.WriteByte('0' + x>>i&1)
		}
	}
	return sb.String()
}

func fromBinaryNumerals(s string, out []byte) {
	for i := range out {
		out[i] = 0
		for j := 0; j < 8; j++ {
			if s[8*i+j] == '1' {
				out[i] |= 1 << j
			}
		}
	}
}
