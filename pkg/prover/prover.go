// Package prover turns a fully selected and balanced transaction request into
// a signed PIVX sapling transaction.
//
// Building runs in three stages over one in-progress transaction:
//
//   - the constructor creates every spend and output description, drawing
//     fresh trapdoors and producing one zero-knowledge proof per description
//   - the signer signs each transparent input and writes its scriptSig
//   - the finalizer signs the shielded signature hash with every randomized
//     spend key and with the binding key
//
// How proofs are produced is pluggable: Groth16 proves with gnark circuits
// over BLS12-381 and its embedded Jubjub curve, Mock writes placeholder
// proofs for tests and offline tooling. Parameters are owned by a Handle
// that loads them lazily through a Loader.
package prover

import (
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// ProofSize is the wire size of a spend or output proof.
const ProofSize = 192

// Prover builds signed transactions. Build runs to completion once started;
// report is called from the building goroutine after every proof.
type Prover interface {
	Build(req *Request, report func(Progress)) (*crypto.Transaction, error)
}

// Progress counts finished proofs.
type Progress struct {
	Current uint32
	Total   uint32
}

// Fraction returns Current/Total, or 0 when the total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total)
}

// Spend is a note to spend with the witness of its position.
type Spend struct {
	Note    sapling.Note
	Witness *merkle.IncrementalWitness
}

// TransparentInput is a UTXO to spend.
type TransparentInput struct {
	TxID   [32]byte // internal byte order
	Vout   uint32
	Value  uint64
	Script []byte // scriptPubKey of the spent output
	Key    *crypto.PrivateKey
}

// Output is a shielded output.
type Output struct {
	Address sapling.PaymentAddress
	Value   uint64
	Memo    sapling.Memo
}

// TransparentOutput is a transparent output.
type TransparentOutput struct {
	Script []byte
	Value  uint64
}

// Request describes one transaction. Inputs must balance outputs plus Fee
// exactly; selection and change are decided by the caller.
type Request struct {
	Network *consensus.Network
	Height  uint32

	// Anchor is the root every spend is proven against.
	Anchor merkle.Node

	// SpendingKey authorizes Spends. It may be nil when there are none.
	SpendingKey *sapling.ExpandedSpendingKey

	// Ovk lets the sender recover shielded outputs later. With a nil Ovk the
	// outputs are only readable by their recipients.
	Ovk *sapling.OutgoingViewingKey

	Spends             []Spend
	TransparentInputs  []TransparentInput
	Outputs            []Output
	TransparentOutputs []TransparentOutput
	Fee                uint64
}

// proofCount is the number of proofs a request needs.
func (r *Request) proofCount() uint32 {
	return uint32(len(r.Spends) + len(r.Outputs))
}

// valueBalance is the net value leaving the shielded pool.
func (r *Request) valueBalance() int64 {
	var vb int64
	for i := range r.Spends {
		vb += int64(r.Spends[i].Note.Value)
	}
	for i := range r.Outputs {
		vb -= int64(r.Outputs[i].Value)
	}
	return vb
}

// Validate checks a request before any proving work starts.
//
// Returns a *shield.ProverError if:
//   - the request has no inputs or no outputs
//   - spends are present without a spending key
//   - a witness is empty or does not prove against Anchor
//   - inputs do not equal outputs plus fee
func (r *Request) Validate() error {
	if r.Network == nil {
		return invalid("network is required")
	}
	if len(r.Spends)+len(r.TransparentInputs) == 0 {
		return invalid("request has no inputs")
	}
	if len(r.Outputs)+len(r.TransparentOutputs) == 0 {
		return invalid("request has no outputs")
	}
	if len(r.Spends) > 0 && r.SpendingKey == nil {
		return invalid("spends require a spending key")
	}

	var in, out uint64
	for i := range r.Spends {
		w := r.Spends[i].Witness
		if w == nil {
			return invalid(fmt.Sprintf("spend %d has no witness", i))
		}
		if _, err := w.Leaf(); err != nil {
			return shield.Prover(shield.ErrEmptyWitnessTree, fmt.Sprintf("spend %d", i), err)
		}
		if root := w.Root(); root != r.Anchor {
			return invalid(fmt.Sprintf("spend %d proves against %s, not anchor %s", i, root.Hex(), r.Anchor.Hex()))
		}
		in += r.Spends[i].Note.Value
	}
	for i := range r.TransparentInputs {
		if r.TransparentInputs[i].Key == nil {
			return invalid(fmt.Sprintf("transparent input %d has no key", i))
		}
		in += r.TransparentInputs[i].Value
	}
	for i := range r.Outputs {
		out += r.Outputs[i].Value
	}
	for i := range r.TransparentOutputs {
		out += r.TransparentOutputs[i].Value
	}

	if in > consensus.MaxMoney || out > consensus.MaxMoney {
		return shield.Prover(shield.ErrValueBalance, "value exceeds maximum money", nil)
	}
	if in != out+r.Fee {
		return shield.Prover(shield.ErrValueBalance,
			fmt.Sprintf("inputs %d != outputs %d + fee %d", in, out, r.Fee), nil)
	}
	return nil
}

func invalid(msg string) error {
	return shield.Prover(shield.ErrInvalidRequest, msg, nil)
}

// proofSystem creates the proofs of one description each.
type proofSystem interface {
	proveSpend(w *spendWitness) ([ProofSize]byte, error)
	proveOutput(w *outputWitness) ([ProofSize]byte, error)
}

// spendWitness is everything a spend proof attests to.
type spendWitness struct {
	note      sapling.Note
	path      *merkle.MerklePath
	anchor    merkle.Node
	ak        jubjub.Point
	nsk       jubjub.Scalar
	alpha     jubjub.Scalar
	rcv       jubjub.Scalar
	rk        [32]byte
	cv        [32]byte
	nullifier sapling.Nullifier
}

// outputWitness is everything an output proof attests to.
type outputWitness struct {
	note sapling.Note
	cmu  merkle.Node
	esk  jubjub.Scalar
	epk  [32]byte
	rcv  jubjub.Scalar
	cv   [32]byte
}

// build runs the three stages with ps producing the proofs.
func build(req *Request, report func(Progress), ps proofSystem) (*crypto.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if report == nil {
		report = func(Progress) {}
	}

	c := newConstructor(req, ps, report)
	if err := c.construct(); err != nil {
		return nil, err
	}
	if err := newSigner(req, c.tx).sign(); err != nil {
		return nil, err
	}
	if err := newFinalizer(c).finalize(); err != nil {
		return nil, err
	}
	return c.tx, nil
}
