package sapling

import (
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
)

// RandomTrapdoor returns a random value commitment trapdoor rcv.
func RandomTrapdoor() (jubjub.Scalar, error) {
	return jubjub.RandomScalar()
}

// RandomAlpha returns a random spend authorization randomizer.
func RandomAlpha() (jubjub.Scalar, error) {
	return jubjub.RandomScalar()
}

// RandomizedSpendKey returns rsk = ask + alpha and rk = repr_J([rsk]G).
func RandomizedSpendKey(ask, alpha jubjub.Scalar) (jubjub.Scalar, [32]byte, error) {
	rsk := ask.Add(alpha)
	if rsk.IsZero() {
		return jubjub.Scalar{}, [32]byte{}, fmt.Errorf("randomized spend key is zero")
	}
	return rsk, jubjub.SpendAuthGenerator().Mul(rsk).Bytes(), nil
}

// SignSpend signs sighash with rsk. The signed message is rk | sighash.
func SignSpend(rsk jubjub.Scalar, rk, sighash [32]byte) (jubjub.Signature, error) {
	return jubjub.Sign(rsk, jubjub.SpendAuthGenerator(), append(rk[:], sighash[:]...))
}

// VerifySpend checks a spend authorization signature against rk.
func VerifySpend(rk, sighash [32]byte, sig [64]byte) bool {
	vk, err := jubjub.PointFromBytes(rk)
	if err != nil || vk.IsSmallOrder() {
		return false
	}
	return jubjub.Verify(vk, jubjub.SpendAuthGenerator(), append(rk[:], sighash[:]...), sig)
}

// BindingKey returns bsk = sum(rcv of spends) - sum(rcv of outputs).
func BindingKey(spendRcv, outputRcv []jubjub.Scalar) jubjub.Scalar {
	var bsk jubjub.Scalar
	for _, r := range spendRcv {
		bsk = bsk.Add(r)
	}
	for _, r := range outputRcv {
		bsk = bsk.Sub(r)
	}
	return bsk
}

// BindingVerificationKey returns repr_J([bsk]R).
func BindingVerificationKey(bsk jubjub.Scalar) [32]byte {
	return jubjub.ValueCommitmentRandomnessBase().Mul(bsk).Bytes()
}

// SignBinding signs sighash with bsk. The signed message is bvk | sighash.
func SignBinding(bsk jubjub.Scalar, sighash [32]byte) (jubjub.Signature, error) {
	bvk := BindingVerificationKey(bsk)
	return jubjub.Sign(bsk, jubjub.ValueCommitmentRandomnessBase(), append(bvk[:], sighash[:]...))
}

// VerifyBinding checks a binding signature against the value commitments of
// a bundle: bvk = sum(cv of spends) - sum(cv of outputs) - [valueBalance]V.
func VerifyBinding(spendCv, outputCv [][32]byte, valueBalance int64, sighash [32]byte, sig [64]byte) bool {
	bvk := jubjub.Identity()
	for _, b := range spendCv {
		cv, err := jubjub.PointFromBytes(b)
		if err != nil {
			return false
		}
		bvk = bvk.Add(cv)
	}
	for _, b := range outputCv {
		cv, err := jubjub.PointFromBytes(b)
		if err != nil {
			return false
		}
		bvk = bvk.Sub(cv)
	}
	v := jubjub.ValueCommitmentValueBase()
	if valueBalance >= 0 {
		bvk = bvk.Sub(v.Mul(jubjub.ScalarFromUint64(uint64(valueBalance))))
	} else {
		bvk = bvk.Add(v.Mul(jubjub.ScalarFromUint64(uint64(-valueBalance))))
	}
	repr := bvk.Bytes()
	return jubjub.Verify(bvk, jubjub.ValueCommitmentRandomnessBase(), append(repr[:], sighash[:]...), sig)
}
