package jubjub

import (
	"crypto/rand"
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
)

const redJubjubPersonalization = "Zcash_RedJubjubH"

// Signature is a RedJubjub signature Rbar || S.
type Signature [64]byte

func hStar(parts ...[]byte) Scalar {
	wide := crypto.Blake2b512(redJubjubPersonalization, parts...)
	return ScalarFromWide(wide[:])
}

// Sign signs msg with sk over base. Sapling signs repr(vk) || sighash, so
// callers pass that concatenation as msg.
func Sign(sk Scalar, base Point, msg []byte) (Signature, error) {
	var t [80]byte
	if _, err := rand.Read(t[:]); err != nil {
		return Signature{}, fmt.Errorf("reading randomness: %w", err)
	}
	r := hStar(t[:], msg)
	rbar := base.Mul(r).Bytes()
	s := r.Add(hStar(rbar[:], msg).Mul(sk))

	var sig Signature
	copy(sig[:32], rbar[:])
	copy(sig[32:], s[:])
	return sig, nil
}

// Verify checks sig on msg against vk over base, with cofactor clearing.
func Verify(vk, base Point, msg []byte, sig Signature) bool {
	var rbar, sb [32]byte
	copy(rbar[:], sig[:32])
	copy(sb[:], sig[32:])
	r, err := PointFromBytes(rbar)
	if err != nil {
		return false
	}
	s, err := ScalarFromBytes(sb)
	if err != nil {
		return false
	}
	c := hStar(rbar[:], msg)
	// [8]([-S]B + R + [c]vk) == O
	check := base.Mul(s).Neg().Add(r).Add(vk.Mul(c))
	return check.IsSmallOrder()
}
