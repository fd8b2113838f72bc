package prover

import (
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
)

// Mock builds fully signed transactions whose proofs are digests of their
// public inputs instead of zero-knowledge proofs. Everything else (note
// encryption, nullifiers, signatures) is real, so scanners and wallets can
// be tested against its output without loading parameters.
type Mock struct{}

// Build implements Prover.
func (Mock) Build(req *Request, report func(Progress)) (*crypto.Transaction, error) {
	return build(req, report, Mock{})
}

func (Mock) proveSpend(w *spendWitness) ([ProofSize]byte, error) {
	var out [ProofSize]byte
	digest := crypto.Blake2b256("PIVX_MockSpend__", w.anchor[:], w.nullifier[:], w.rk[:], w.cv[:])
	copy(out[:], digest[:])
	return out, nil
}

func (Mock) proveOutput(w *outputWitness) ([ProofSize]byte, error) {
	var out [ProofSize]byte
	digest := crypto.Blake2b256("PIVX_MockOutput_", w.cmu[:], w.cv[:], w.epk[:])
	copy(out[:], digest[:])
	return out, nil
}
