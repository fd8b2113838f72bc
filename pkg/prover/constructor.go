package prover

import (
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

const defaultSequence = 0xffffffff

// constructor creates the transaction skeleton and every shielded
// description.
//
// For each spend it draws a value commitment trapdoor rcv and a spend
// authorization randomizer alpha, derives the nullifier and rk, and proves
// the spend. For each output it draws a note seed and rcv, encrypts the note
// for the recipient (and the sender when an ovk is set) and proves the
// output. Output notes use the ZIP 212 plaintext once the network activated
// it at the request height. The trapdoors and randomized keys are kept for the finalizer.
type constructor struct {
	req    *Request
	ps     proofSystem
	report func(Progress)

	tx       *crypto.Transaction
	done     uint32
	rsks     []jubjub.Scalar
	spendRcv []jubjub.Scalar
	outRcv   []jubjub.Scalar
}

func newConstructor(req *Request, ps proofSystem, report func(Progress)) *constructor {
	return &constructor{req: req, ps: ps, report: report}
}

func (c *constructor) construct() error {
	c.tx = &crypto.Transaction{
		Version: crypto.SaplingVersion,
		Type:    crypto.TxTypeNormal,
		Inputs:  make([]crypto.TxIn, 0, len(c.req.TransparentInputs)),
		Outputs: make([]crypto.TxOut, 0, len(c.req.TransparentOutputs)),
	}
	for _, in := range c.req.TransparentInputs {
		c.tx.Inputs = append(c.tx.Inputs, crypto.TxIn{
			PrevoutTxID:  in.TxID,
			PrevoutIndex: in.Vout,
			Sequence:     defaultSequence,
		})
	}
	for _, out := range c.req.TransparentOutputs {
		c.tx.Outputs = append(c.tx.Outputs, crypto.TxOut{Value: out.Value, ScriptPubKey: out.Script})
	}

	if len(c.req.Spends) == 0 && len(c.req.Outputs) == 0 {
		return nil
	}
	c.tx.Sapling = &crypto.SaplingBundle{
		ValueBalance: c.req.valueBalance(),
		Spends:       make([]crypto.SpendDescription, 0, len(c.req.Spends)),
		Outputs:      make([]crypto.OutputDescription, 0, len(c.req.Outputs)),
	}

	for i := range c.req.Spends {
		if err := c.addSpend(&c.req.Spends[i]); err != nil {
			return fmt.Errorf("spend %d: %w", i, err)
		}
	}
	for i := range c.req.Outputs {
		if err := c.addOutput(&c.req.Outputs[i]); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return nil
}

func (c *constructor) addSpend(s *Spend) error {
	path, err := s.Witness.Path()
	if err != nil {
		return shield.Prover(shield.ErrEmptyWitnessTree, "witness path", err)
	}

	rcv, err := sapling.RandomTrapdoor()
	if err != nil {
		return shield.Prover(shield.ErrProofCreation, "value trapdoor", err)
	}
	alpha, err := sapling.RandomAlpha()
	if err != nil {
		return shield.Prover(shield.ErrSigning, "spend randomizer", err)
	}
	rsk, rk, err := sapling.RandomizedSpendKey(c.req.SpendingKey.Ask, alpha)
	if err != nil {
		return shield.Prover(shield.ErrSigning, "randomized spend key", err)
	}

	key := c.req.SpendingKey
	w := &spendWitness{
		note:      s.Note,
		path:      path,
		anchor:    c.req.Anchor,
		ak:        jubjub.SpendAuthGenerator().Mul(key.Ask),
		nsk:       key.Nsk,
		alpha:     alpha,
		rcv:       rcv,
		rk:        rk,
		cv:        sapling.ValueCommitment(s.Note.Value, rcv),
		nullifier: sapling.DeriveNullifier(key.FullViewingKey().NullifierKey(), s.Note, path.Position),
	}
	proof, err := c.ps.proveSpend(w)
	if err != nil {
		return err
	}

	c.tx.Sapling.Spends = append(c.tx.Sapling.Spends, crypto.SpendDescription{
		CV:        w.cv,
		Anchor:    c.req.Anchor,
		Nullifier: w.nullifier,
		Rk:        rk,
		ZkProof:   proof,
	})
	c.rsks = append(c.rsks, rsk)
	c.spendRcv = append(c.spendRcv, rcv)
	c.step()
	return nil
}

func (c *constructor) addOutput(o *Output) error {
	note, err := sapling.NewNote(o.Address, o.Value, c.req.Network.Zip212Active(c.req.Height))
	if err != nil {
		return shield.Prover(shield.ErrInvalidRequest, "output note", err)
	}
	rcv, err := sapling.RandomTrapdoor()
	if err != nil {
		return shield.Prover(shield.ErrProofCreation, "value trapdoor", err)
	}
	ne, err := sapling.NewNoteEncryption(c.req.Ovk, note, o.Memo)
	if err != nil {
		return shield.Prover(shield.ErrProofCreation, "note encryption", err)
	}

	w := &outputWitness{
		note: note,
		cmu:  note.Commitment(),
		esk:  ne.EphemeralSecret(),
		epk:  ne.EphemeralKey(),
		rcv:  rcv,
		cv:   sapling.ValueCommitment(o.Value, rcv),
	}
	desc := crypto.OutputDescription{CV: w.cv, Cmu: w.cmu, EphemeralKey: w.epk}
	if desc.EncCiphertext, err = ne.EncryptNote(); err != nil {
		return shield.Prover(shield.ErrProofCreation, "encrypting note", err)
	}
	if desc.OutCiphertext, err = ne.EncryptOutgoing(w.cv, w.cmu); err != nil {
		return shield.Prover(shield.ErrProofCreation, "encrypting outgoing", err)
	}

	if desc.ZkProof, err = c.ps.proveOutput(w); err != nil {
		return err
	}

	c.tx.Sapling.Outputs = append(c.tx.Sapling.Outputs, desc)
	c.outRcv = append(c.outRcv, rcv)
	c.step()
	return nil
}

func (c *constructor) step() {
	c.done++
	c.report(Progress{Current: c.done, Total: c.req.proofCount()})
}
