// Package jubjub implements the Jubjub arithmetic Sapling is built from, on
// top of the twisted Edwards curve gnark-crypto defines over the BLS12-381
// scalar field.
//
// Points use the Sapling encoding repr_J: the little-endian v coordinate
// with the low bit of u in bit 255. Scalars are elements of the prime-order
// subgroup scalar field and are stored as their canonical 32-byte
// little-endian encoding, so they compare with ==.
package jubjub

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
)

var (
	ErrInvalidPoint  = errors.New("jubjub: invalid point encoding")
	ErrInvalidScalar = errors.New("jubjub: scalar is not canonical")
)

var curve = twistededwards.GetEdwardsCurve()

// Order returns r_J, the order of the prime-order subgroup.
func Order() *big.Int {
	return new(big.Int).Set(&curve.Order)
}

// Point is an affine Jubjub point. The zero value is not a valid point; use
// Identity.
type Point struct {
	p twistededwards.PointAffine
}

// Identity returns the neutral element (0, 1).
func Identity() Point {
	var p Point
	p.p.Y.SetOne()
	return p
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	var r Point
	r.p.Add(&p.p, &q.p)
	return r
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return p.Add(q.Neg())
}

// Neg returns -p.
func (p Point) Neg() Point {
	var r Point
	r.p.Neg(&p.p)
	return r
}

// Mul returns [s]p.
func (p Point) Mul(s Scalar) Point {
	return p.MulInt(s.Int())
}

// MulInt returns [k]p for a non-negative k.
func (p Point) MulInt(k *big.Int) Point {
	var r Point
	r.p.ScalarMultiplication(&p.p, k)
	return r
}

// MulCofactor returns [8]p.
func (p Point) MulCofactor() Point {
	r := p
	for i := 0; i < 3; i++ {
		r.p.Double(&r.p)
	}
	return r
}

// IsIdentity reports whether p is (0, 1).
func (p Point) IsIdentity() bool {
	return p.p.IsZero()
}

// Equal reports whether p and q are the same point.
func (p Point) Equal(q Point) bool {
	return p.p.Equal(&q.p)
}

// IsSmallOrder reports whether [8]p is the identity.
func (p Point) IsSmallOrder() bool {
	return p.MulCofactor().IsIdentity()
}

// IsPrimeOrder reports whether p is a non-identity point of the prime-order
// subgroup.
func (p Point) IsPrimeOrder() bool {
	return !p.IsSmallOrder() && p.MulInt(&curve.Order).IsIdentity()
}

// Bytes returns repr_J(p).
func (p Point) Bytes() [32]byte {
	var out [32]byte
	fr.LittleEndian.PutElement(&out, p.p.Y)
	if p.p.X.Bits()[0]&1 == 1 {
		out[31] |= 0x80
	}
	return out
}

// U returns the little-endian encoding of the u coordinate.
func (p Point) U() [32]byte {
	var out [32]byte
	fr.LittleEndian.PutElement(&out, p.p.X)
	return out
}

// Coordinates returns (u, v) as integers.
func (p Point) Coordinates() (u, v *big.Int) {
	return p.p.X.BigInt(new(big.Int)), p.p.Y.BigInt(new(big.Int))
}

// String implements fmt.Stringer.
func (p Point) String() string {
	b := p.Bytes()
	return fmt.Sprintf("%x", b[:])
}

// PointFromBytes decodes repr_J. It rejects a non-canonical v, a v with no
// point on the curve and the non-canonical encoding of u = 0 with the sign
// bit set. The point may have small order.
func PointFromBytes(b [32]byte) (Point, error) {
	sign := b[31] >> 7
	b[31] &= 0x7f
	v, err := fr.LittleEndian.Element(&b)
	if err != nil {
		return Point{}, ErrInvalidPoint
	}

	// -u^2 + v^2 = 1 + d u^2 v^2  =>  u^2 = (v^2 - 1) / (d v^2 + 1)
	var one, v2, num, den, u fr.Element
	one.SetOne()
	v2.Square(&v)
	num.Sub(&v2, &one)
	den.Mul(&curve.D, &v2)
	den.Add(&den, &one)
	if den.IsZero() {
		return Point{}, ErrInvalidPoint
	}
	den.Inverse(&den)
	num.Mul(&num, &den)
	if u.Sqrt(&num) == nil {
		return Point{}, ErrInvalidPoint
	}
	if u.IsZero() && sign == 1 {
		return Point{}, ErrInvalidPoint
	}
	if byte(u.Bits()[0]&1) != sign {
		u.Neg(&u)
	}
	return Point{p: twistededwards.NewPointAffine(u, v)}, nil
}

// PrimeOrderPointFromBytes decodes repr_J and requires a point of the
// prime-order subgroup other than the identity.
func PrimeOrderPointFromBytes(b [32]byte) (Point, error) {
	p, err := PointFromBytes(b)
	if err != nil {
		return Point{}, err
	}
	if !p.IsPrimeOrder() {
		return Point{}, ErrInvalidPoint
	}
	return p, nil
}

// Scalar is an integer modulo r_J in canonical little-endian form.
type Scalar [32]byte

// ScalarFromInt reduces k modulo r_J.
func ScalarFromInt(k *big.Int) Scalar {
	m := new(big.Int).Mod(k, &curve.Order)
	var be [32]byte
	m.FillBytes(be[:])
	var s Scalar
	for i := range be {
		s[i] = be[31-i]
	}
	return s
}

// ScalarFromWide interprets b as a little-endian integer and reduces it
// modulo r_J. With 64 bytes of input this is ToScalar.
func ScalarFromWide(b []byte) Scalar {
	return ScalarFromInt(leInt(b))
}

// ScalarFromUint64 returns v as a scalar.
func ScalarFromUint64(v uint64) Scalar {
	return ScalarFromInt(new(big.Int).SetUint64(v))
}

// ScalarFromBytes accepts only canonical encodings.
func ScalarFromBytes(b [32]byte) (Scalar, error) {
	if leInt(b[:]).Cmp(&curve.Order) >= 0 {
		return Scalar{}, ErrInvalidScalar
	}
	return Scalar(b), nil
}

// RandomScalar samples a uniform scalar.
func RandomScalar() (Scalar, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return Scalar{}, fmt.Errorf("reading randomness: %w", err)
	}
	return ScalarFromWide(wide[:]), nil
}

// Int returns s as an integer.
func (s Scalar) Int() *big.Int {
	return leInt(s[:])
}

// IsZero reports whether s is zero.
func (s Scalar) IsZero() bool {
	return s == Scalar{}
}

// Add returns s + t.
func (s Scalar) Add(t Scalar) Scalar {
	return ScalarFromInt(new(big.Int).Add(s.Int(), t.Int()))
}

// Sub returns s - t.
func (s Scalar) Sub(t Scalar) Scalar {
	return ScalarFromInt(new(big.Int).Sub(s.Int(), t.Int()))
}

// Mul returns s * t.
func (s Scalar) Mul(t Scalar) Scalar {
	return ScalarFromInt(new(big.Int).Mul(s.Int(), t.Int()))
}

// Neg returns -s.
func (s Scalar) Neg() Scalar {
	return ScalarFromInt(new(big.Int).Neg(s.Int()))
}

func leInt(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}
