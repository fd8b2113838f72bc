package prover

import (
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// finalizer adds the shielded signatures.
//
// Both the spend authorization signatures and the binding signature sign the
// signature hash of the whole transaction (no input selected). The binding
// key is derived from every value commitment trapdoor, so it can only be
// computed once all descriptions exist.
type finalizer struct {
	c *constructor
}

func newFinalizer(c *constructor) *finalizer {
	return &finalizer{c: c}
}

func (f *finalizer) finalize() error {
	bundle := f.c.tx.Sapling
	if bundle == nil {
		return nil
	}

	sighash := crypto.SignatureHash(f.c.tx, crypto.SigHashInput{Index: crypto.NotAnInput},
		crypto.SighashAll, consensus.SaplingBranchID)

	for i, rsk := range f.c.rsks {
		sig, err := sapling.SignSpend(rsk, bundle.Spends[i].Rk, sighash)
		if err != nil {
			return shield.Prover(shield.ErrSigning, "spend authorization", err)
		}
		bundle.Spends[i].SpendAuthSig = sig
	}

	bsk := sapling.BindingKey(f.c.spendRcv, f.c.outRcv)
	sig, err := sapling.SignBinding(bsk, sighash)
	if err != nil {
		return shield.Prover(shield.ErrSigning, "binding signature", err)
	}
	spendCv := make([][32]byte, len(bundle.Spends))
	for i := range bundle.Spends {
		spendCv[i] = bundle.Spends[i].CV
	}
	outputCv := make([][32]byte, len(bundle.Outputs))
	for i := range bundle.Outputs {
		outputCv[i] = bundle.Outputs[i].CV
	}
	if !sapling.VerifyBinding(spendCv, outputCv, bundle.ValueBalance, sighash, sig) {
		return shield.Prover(shield.ErrValueBalance, "binding signature does not balance", nil)
	}
	bundle.BindingSig = sig
	return nil
}
