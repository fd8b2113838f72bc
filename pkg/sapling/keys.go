package sapling

import (
	"encoding/binary"
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Personalizations.
const (
	expandSeedPersonalization  = "Zcash_ExpandSeed"
	masterKeyPersonalization   = "ZcashIP32Sapling"
	fingerprintPersonalization = "ZcashSaplingFVFP"
	ivkPersonalization         = "Zcashivk"
)

// PRF^expand domain bytes.
const (
	expandAsk      byte = 0x00
	expandNsk      byte = 0x01
	expandOvk      byte = 0x02
	expandRcm      byte = 0x04
	expandEsk      byte = 0x05
	expandDk       byte = 0x10
	expandChild    byte = 0x11
	expandChildAsk byte = 0x13
	expandChildNsk byte = 0x14
	expandChildOvk byte = 0x15
	expandChildDk  byte = 0x16
)

// HardenedKeyStart is the first hardened child index.
const HardenedKeyStart uint32 = 1 << 31

// purpose is the ZIP-32 purpose field of shielded key paths.
const purpose uint32 = 32

// ExtendedKeySize is the raw size of an encoded extended spending or full
// viewing key.
const ExtendedKeySize = 1 + 4 + 4 + 32 + 4*32

// FullViewingKeySize is the raw size of an encoded full viewing key.
const FullViewingKeySize = ExtendedKeySize

// NullifierKey is repr_J(nk).
type NullifierKey [32]byte

// OutgoingViewingKey lets the sender recover outputs it created.
type OutgoingViewingKey [32]byte

// DiversifierKey maps diversifier indices to diversifiers.
type DiversifierKey [32]byte

func prfExpand(sk []byte, t byte, extra ...[]byte) [64]byte {
	parts := make([][]byte, 0, 2+len(extra))
	parts = append(parts, sk, []byte{t})
	parts = append(parts, extra...)
	return crypto.Blake2b512(expandSeedPersonalization, parts...)
}

func expandScalar(sk []byte, t byte) jubjub.Scalar {
	wide := prfExpand(sk, t)
	return jubjub.ScalarFromWide(wide[:])
}

// extendedKey is the chain state shared by both ZIP-32 key kinds.
type extendedKey struct {
	Depth      uint8
	ParentTag  [4]byte
	ChildIndex uint32
	ChainCode  [32]byte
}

func (k *extendedKey) appendHeader(out []byte) []byte {
	out = append(out, k.Depth)
	out = append(out, k.ParentTag[:]...)
	out = binary.LittleEndian.AppendUint32(out, k.ChildIndex)
	return append(out, k.ChainCode[:]...)
}

func (k *extendedKey) readHeader(b []byte) []byte {
	k.Depth = b[0]
	copy(k.ParentTag[:], b[1:5])
	k.ChildIndex = binary.LittleEndian.Uint32(b[5:9])
	copy(k.ChainCode[:], b[9:41])
	return b[41:]
}

// ExpandedSpendingKey holds the spending secrets of one account.
type ExpandedSpendingKey struct {
	Ask jubjub.Scalar
	Nsk jubjub.Scalar
	Ovk OutgoingViewingKey
	Dk  DiversifierKey
}

// SpendingKey is a ZIP-32 extended spending key.
type SpendingKey struct {
	extendedKey
	Key ExpandedSpendingKey
}

// MasterSpendingKey derives the ZIP-32 master key of seed.
func MasterSpendingKey(seed []byte) (SpendingKey, error) {
	if len(seed) < 32 {
		return SpendingKey{}, shield.Derivation(shield.ErrInvalidKey, "seed must be at least 32 bytes", nil)
	}
	i := crypto.Blake2b512(masterKeyPersonalization, seed)
	sk := i[:32]

	var m SpendingKey
	copy(m.ChainCode[:], i[32:])
	m.Key.Ask = expandScalar(sk, expandAsk)
	m.Key.Nsk = expandScalar(sk, expandNsk)
	ovk := prfExpand(sk, expandOvk)
	copy(m.Key.Ovk[:], ovk[:32])
	dk := prfExpand(sk, expandDk)
	copy(m.Key.Dk[:], dk[:32])
	return m, nil
}

// Child derives the hardened child at index | HardenedKeyStart.
func (sk SpendingKey) Child(index uint32) (SpendingKey, error) {
	if index >= HardenedKeyStart {
		return SpendingKey{}, shield.Derivation(shield.ErrInvalidAccount,
			fmt.Sprintf("child index %d is out of range", index), nil)
	}
	i := index | HardenedKeyStart

	parts := sk.Key.bytes()
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], i)
	wide := prfExpand(sk.ChainCode[:], expandChild, parts[:], le[:])
	il := wide[:32]

	fvk := sk.Key.FullViewingKey()
	tag := fvk.Fingerprint()

	var c SpendingKey
	c.Depth = sk.Depth + 1
	copy(c.ParentTag[:], tag[:4])
	c.ChildIndex = i
	copy(c.ChainCode[:], wide[32:])
	c.Key.Ask = expandScalar(il, expandChildAsk).Add(sk.Key.Ask)
	c.Key.Nsk = expandScalar(il, expandChildNsk).Add(sk.Key.Nsk)
	ovk := prfExpand(il, expandChildOvk, sk.Key.Ovk[:])
	copy(c.Key.Ovk[:], ovk[:32])
	dk := prfExpand(il, expandChildDk, sk.Key.Dk[:])
	copy(c.Key.Dk[:], dk[:32])
	return c, nil
}

// DeriveSpendingKey derives the spending key m/32'/coinType'/account' from a
// wallet seed. Only non-hardened account numbers are accepted; the hardening
// is applied internally.
func DeriveSpendingKey(seed []byte, coinType, account uint32) (SpendingKey, error) {
	if account >= HardenedKeyStart {
		return SpendingKey{}, shield.Derivation(shield.ErrInvalidAccount,
			fmt.Sprintf("account %d is out of range", account), nil)
	}
	sk, err := MasterSpendingKey(seed)
	if err != nil {
		return SpendingKey{}, err
	}
	for _, i := range []uint32{purpose, coinType, account} {
		if sk, err = sk.Child(i); err != nil {
			return SpendingKey{}, err
		}
	}
	return sk, nil
}

// Bytes encodes the key as depth | parent tag | child index | chain code |
// ask | nsk | ovk | dk.
func (sk SpendingKey) Bytes() []byte {
	out := sk.appendHeader(make([]byte, 0, ExtendedKeySize))
	parts := sk.Key.bytes()
	return append(out, parts[:]...)
}

// SpendingKeyFromBytes decodes an extended spending key.
func SpendingKeyFromBytes(b []byte) (SpendingKey, error) {
	var sk SpendingKey
	if len(b) != ExtendedKeySize {
		return sk, shield.Decode(shield.ErrInvalidKey, fmt.Sprintf("spending key must be %d bytes", ExtendedKeySize), nil)
	}
	rest := sk.readHeader(b)
	var err error
	if sk.Key.Ask, err = jubjub.ScalarFromBytes([32]byte(rest[0:32])); err != nil {
		return sk, shield.Decode(shield.ErrInvalidKey, "ask is not canonical", err)
	}
	if sk.Key.Nsk, err = jubjub.ScalarFromBytes([32]byte(rest[32:64])); err != nil {
		return sk, shield.Decode(shield.ErrInvalidKey, "nsk is not canonical", err)
	}
	copy(sk.Key.Ovk[:], rest[64:96])
	copy(sk.Key.Dk[:], rest[96:128])
	return sk, nil
}

// Expand returns the spending secrets of sk.
func (sk SpendingKey) Expand() (*ExpandedSpendingKey, error) {
	if sk.Key.Ask.IsZero() {
		return nil, shield.Derivation(shield.ErrZeroScalar, "spend authorizing key is zero", nil)
	}
	e := sk.Key
	return &e, nil
}

// FullViewingKey derives the extended full viewing key.
func (sk SpendingKey) FullViewingKey() (*FullViewingKey, error) {
	e, err := sk.Expand()
	if err != nil {
		return nil, err
	}
	fvk := e.FullViewingKey()
	fvk.extendedKey = sk.extendedKey
	return fvk, nil
}

func (e *ExpandedSpendingKey) bytes() [128]byte {
	var out [128]byte
	copy(out[0:], e.Ask[:])
	copy(out[32:], e.Nsk[:])
	copy(out[64:], e.Ovk[:])
	copy(out[96:], e.Dk[:])
	return out
}

// FullViewingKey derives ak = [ask]G and nk = [nsk]H. The chain state of the
// result is zero.
func (e *ExpandedSpendingKey) FullViewingKey() *FullViewingKey {
	return &FullViewingKey{
		Ak:  jubjub.SpendAuthGenerator().Mul(e.Ask).Bytes(),
		Nk:  NullifierKey(jubjub.ProofGenerator().Mul(e.Nsk).Bytes()),
		Ovk: e.Ovk,
		Dk:  e.Dk,
	}
}

// FullViewingKey can detect incoming notes, derive their nullifiers and
// recover outgoing notes, but cannot spend.
type FullViewingKey struct {
	extendedKey
	Ak  [32]byte // repr_J(ak)
	Nk  NullifierKey
	Ovk OutgoingViewingKey
	Dk  DiversifierKey
}

// Bytes encodes the key as depth | parent tag | child index | chain code |
// ak | nk | ovk | dk.
func (fvk *FullViewingKey) Bytes() []byte {
	out := fvk.appendHeader(make([]byte, 0, FullViewingKeySize))
	out = append(out, fvk.Ak[:]...)
	out = append(out, fvk.Nk[:]...)
	out = append(out, fvk.Ovk[:]...)
	return append(out, fvk.Dk[:]...)
}

// FullViewingKeyFromBytes decodes an extended full viewing key. ak and nk
// must be prime-order points.
func FullViewingKeyFromBytes(b []byte) (*FullViewingKey, error) {
	if len(b) != FullViewingKeySize {
		return nil, shield.Decode(shield.ErrInvalidKey, fmt.Sprintf("viewing key must be %d bytes", FullViewingKeySize), nil)
	}
	fvk := &FullViewingKey{}
	rest := fvk.readHeader(b)
	copy(fvk.Ak[:], rest[0:32])
	copy(fvk.Nk[:], rest[32:64])
	copy(fvk.Ovk[:], rest[64:96])
	copy(fvk.Dk[:], rest[96:128])

	if _, err := jubjub.PrimeOrderPointFromBytes(fvk.Ak); err != nil {
		return nil, shield.Decode(shield.ErrInvalidKey, "ak is not a valid point", err)
	}
	if _, err := jubjub.PrimeOrderPointFromBytes(fvk.Nk); err != nil {
		return nil, shield.Decode(shield.ErrInvalidKey, "nk is not a valid point", err)
	}
	return fvk, nil
}

// Fingerprint is BLAKE2b-256 of ak | nk | ovk. Its first four bytes tag the
// children of the key.
func (fvk *FullViewingKey) Fingerprint() [32]byte {
	return crypto.Blake2b256(fingerprintPersonalization, fvk.Ak[:], fvk.Nk[:], fvk.Ovk[:])
}

// IncomingViewingKey derives ivk = BLAKE2s(ak | nk) truncated to 251 bits.
func (fvk *FullViewingKey) IncomingViewingKey() (*IncomingViewingKey, error) {
	h := crypto.Blake2s256(ivkPersonalization, fvk.Ak[:], fvk.Nk[:])
	h[31] &= 0x07
	s := jubjub.Scalar(h)
	if s.IsZero() {
		return nil, shield.Derivation(shield.ErrZeroScalar, "incoming viewing key is zero", nil)
	}
	return &IncomingViewingKey{ivk: s}, nil
}

// NullifierKey returns nk.
func (fvk *FullViewingKey) NullifierKey() NullifierKey {
	return fvk.Nk
}

// Address returns the payment address at index. It fails when the index
// does not give a valid diversifier, which happens for about half of all
// indices.
func (fvk *FullViewingKey) Address(index DiversifierIndex) (PaymentAddress, error) {
	ivk, err := fvk.IncomingViewingKey()
	if err != nil {
		return PaymentAddress{}, err
	}
	d, err := fvk.Diversifier(index)
	if err != nil {
		return PaymentAddress{}, err
	}
	return ivk.Address(d)
}

// FindAddress returns the first valid address at or after index.
func (fvk *FullViewingKey) FindAddress(index DiversifierIndex) (DiversifierIndex, PaymentAddress, error) {
	ivk, err := fvk.IncomingViewingKey()
	if err != nil {
		return index, PaymentAddress{}, err
	}
	for {
		d, err := fvk.Diversifier(index)
		if err != nil {
			return index, PaymentAddress{}, err
		}
		if addr, err := ivk.Address(d); err == nil {
			return index, addr, nil
		}
		if err := index.Increment(); err != nil {
			return index, PaymentAddress{}, err
		}
	}
}

// DefaultAddress returns the first valid address and its index.
func (fvk *FullViewingKey) DefaultAddress() (DiversifierIndex, PaymentAddress, error) {
	return fvk.FindAddress(DiversifierIndex{})
}

// NextAddress returns the first valid address strictly after index.
func (fvk *FullViewingKey) NextAddress(index DiversifierIndex) (DiversifierIndex, PaymentAddress, error) {
	if err := index.Increment(); err != nil {
		return index, PaymentAddress{}, err
	}
	return fvk.FindAddress(index)
}

// IncomingViewingKey decrypts notes sent to any address of the key.
type IncomingViewingKey struct {
	ivk jubjub.Scalar
}

// Address returns the payment address for diversifier d.
func (ivk *IncomingViewingKey) Address(d Diversifier) (PaymentAddress, error) {
	pkd, err := ivk.transmissionKey(d)
	if err != nil {
		return PaymentAddress{}, err
	}
	return PaymentAddress{Diversifier: d, PkD: pkd.Bytes()}, nil
}

func (ivk *IncomingViewingKey) transmissionKey(d Diversifier) (jubjub.Point, error) {
	gd, ok := jubjub.DiversifiedBase(d)
	if !ok {
		return jubjub.Point{}, shield.Derivation(shield.ErrInvalidAddress, "diversifier has no base point", nil)
	}
	return gd.Mul(ivk.ivk), nil
}
