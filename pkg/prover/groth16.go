package prover

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16bls "github.com/consensys/gnark/backend/groth16/bls12-381"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// CircuitKeys are the compiled constraint system of one circuit and its
// Groth16 keys.
type CircuitKeys struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// Params are the proving parameters of the spend and output circuits.
type Params struct {
	Spend  *CircuitKeys
	Output *CircuitKeys
}

func compileSpend() (constraint.ConstraintSystem, error) {
	var c SpendCircuit
	return frontend.Compile(ecc.BLS12_381.ScalarField(), r1cs.NewBuilder, &c)
}

func compileOutput() (constraint.ConstraintSystem, error) {
	var c OutputCircuit
	return frontend.Compile(ecc.BLS12_381.ScalarField(), r1cs.NewBuilder, &c)
}

// Setup compiles both circuits and runs a local Groth16 setup. The toxic
// waste is known to this process, so the parameters are only fit for tests
// and development networks.
func Setup() (*Params, error) {
	spend, err := setupCircuit(compileSpend)
	if err != nil {
		return nil, fmt.Errorf("spend circuit: %w", err)
	}
	output, err := setupCircuit(compileOutput)
	if err != nil {
		return nil, fmt.Errorf("output circuit: %w", err)
	}
	return &Params{Spend: spend, Output: output}, nil
}

func setupCircuit(compile func() (constraint.ConstraintSystem, error)) (*CircuitKeys, error) {
	ccs, err := compile()
	if err != nil {
		return nil, shield.Prover(shield.ErrParamsInvalid, "compiling circuit", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, shield.Prover(shield.ErrParamsInvalid, "groth16 setup", err)
	}
	return &CircuitKeys{ccs: ccs, pk: pk, vk: vk}, nil
}

// ParseParams decodes parameter files produced by Encode. The circuits are
// compiled again; only the keys are read from the files.
func ParseParams(spend, output []byte) (*Params, error) {
	s, err := decodeKeys(spend, compileSpend)
	if err != nil {
		return nil, fmt.Errorf("spend params: %w", err)
	}
	o, err := decodeKeys(output, compileOutput)
	if err != nil {
		return nil, fmt.Errorf("output params: %w", err)
	}
	return &Params{Spend: s, Output: o}, nil
}

// Encode returns the spend and output parameter files. Each file is
// u32 big-endian len(vk) | vk | pk.
func (p *Params) Encode() (spend, output []byte, err error) {
	if spend, err = encodeKeys(p.Spend); err != nil {
		return nil, nil, err
	}
	if output, err = encodeKeys(p.Output); err != nil {
		return nil, nil, err
	}
	return spend, output, nil
}

func encodeKeys(k *CircuitKeys) ([]byte, error) {
	var vk bytes.Buffer
	if _, err := k.vk.WriteTo(&vk); err != nil {
		return nil, fmt.Errorf("writing verifying key: %w", err)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(vk.Len()))
	buf.Write(vk.Bytes())
	if _, err := k.pk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing proving key: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeKeys(raw []byte, compile func() (constraint.ConstraintSystem, error)) (*CircuitKeys, error) {
	if len(raw) < 4 {
		return nil, shield.Prover(shield.ErrParamsInvalid, "parameter file too short", nil)
	}
	n := binary.BigEndian.Uint32(raw)
	if uint64(n) > uint64(len(raw)-4) {
		return nil, shield.Prover(shield.ErrParamsInvalid, "verifying key length exceeds file", nil)
	}

	vk := groth16.NewVerifyingKey(ecc.BLS12_381)
	if _, err := vk.ReadFrom(bytes.NewReader(raw[4 : 4+n])); err != nil {
		return nil, shield.Prover(shield.ErrParamsInvalid, "reading verifying key", err)
	}
	pk := groth16.NewProvingKey(ecc.BLS12_381)
	if _, err := pk.ReadFrom(bytes.NewReader(raw[4+n:])); err != nil {
		return nil, shield.Prover(shield.ErrParamsInvalid, "reading proving key", err)
	}

	ccs, err := compile()
	if err != nil {
		return nil, shield.Prover(shield.ErrParamsInvalid, "compiling circuit", err)
	}
	return &CircuitKeys{ccs: ccs, pk: pk, vk: vk}, nil
}

// Groth16 proves spends and outputs with the gnark circuits of this package.
type Groth16 struct {
	params *Params
	log    log.Logger
}

// NewGroth16 creates a prover over params.
func NewGroth16(params *Params) *Groth16 {
	return &Groth16{params: params, log: log.New("module", "prover")}
}

// Build implements Prover.
func (g *Groth16) Build(req *Request, report func(Progress)) (*crypto.Transaction, error) {
	tx, err := build(req, report, g)
	if err != nil {
		return nil, err
	}
	g.log.Debug("Proved transaction", "txid", tx.TxID(), "spends", len(req.Spends), "outputs", len(req.Outputs))
	return tx, nil
}

func (g *Groth16) proveSpend(w *spendWitness) ([ProofSize]byte, error) {
	a, err := spendAssignment(w)
	if err != nil {
		return [ProofSize]byte{}, shield.Prover(shield.ErrProofCreation, "spend witness", err)
	}
	return prove(g.params.Spend, a)
}

func (g *Groth16) proveOutput(w *outputWitness) ([ProofSize]byte, error) {
	a, err := outputAssignment(w)
	if err != nil {
		return [ProofSize]byte{}, shield.Prover(shield.ErrProofCreation, "output witness", err)
	}
	return prove(g.params.Output, a)
}

// VerifySpend checks the proof of a spend description.
func (g *Groth16) VerifySpend(s *crypto.SpendDescription) error {
	public, err := spendPublic(s.Anchor, s.Nullifier, s.Rk, s.CV)
	if err != nil {
		return shield.Prover(shield.ErrProofVerification, "spend public inputs", err)
	}
	return verify(g.params.Spend, s.ZkProof, public)
}

// VerifyOutput checks the proof of an output description.
func (g *Groth16) VerifyOutput(o *crypto.OutputDescription) error {
	public, err := outputPublic(o.Cmu, o.CV, o.EphemeralKey)
	if err != nil {
		return shield.Prover(shield.ErrProofVerification, "output public inputs", err)
	}
	return verify(g.params.Output, o.ZkProof, public)
}

// VerifyTransaction checks every shielded proof of tx.
func (g *Groth16) VerifyTransaction(tx *crypto.Transaction) error {
	if tx.Sapling == nil {
		return nil
	}
	for i := range tx.Sapling.Spends {
		if err := g.VerifySpend(&tx.Sapling.Spends[i]); err != nil {
			return fmt.Errorf("spend %d: %w", i, err)
		}
	}
	for i := range tx.Sapling.Outputs {
		if err := g.VerifyOutput(&tx.Sapling.Outputs[i]); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return nil
}

func prove(k *CircuitKeys, assignment frontend.Circuit) ([ProofSize]byte, error) {
	var out [ProofSize]byte

	w, err := frontend.NewWitness(assignment, ecc.BLS12_381.ScalarField())
	if err != nil {
		return out, shield.Prover(shield.ErrProofCreation, "witness creation", err)
	}
	proof, err := groth16.Prove(k.ccs, k.pk, w)
	if err != nil {
		return out, shield.Prover(shield.ErrProofCreation, "proof generation", err)
	}
	if out, err = encodeProof(proof); err != nil {
		return out, shield.Prover(shield.ErrProofCreation, "proof marshaling", err)
	}
	return out, nil
}

func verify(k *CircuitKeys, raw [ProofSize]byte, public frontend.Circuit) error {
	proof, err := decodeProof(raw)
	if err != nil {
		return shield.Prover(shield.ErrProofVerification, "decoding proof", err)
	}
	w, err := frontend.NewWitness(public, ecc.BLS12_381.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return shield.Prover(shield.ErrProofVerification, "public witness", err)
	}
	if err := groth16.Verify(proof, k.vk, w); err != nil {
		return shield.Prover(shield.ErrProofVerification, "groth16 verify", err)
	}
	return nil
}

// encodeProof writes the compressed points A (48) | B (96) | C (48).
func encodeProof(p groth16.Proof) ([ProofSize]byte, error) {
	var out [ProofSize]byte
	proof, ok := p.(*groth16bls.Proof)
	if !ok {
		return out, fmt.Errorf("unexpected proof type %T", p)
	}
	if len(proof.Commitments) != 0 {
		return out, fmt.Errorf("proof carries %d commitments", len(proof.Commitments))
	}
	a, b, c := proof.Ar.Bytes(), proof.Bs.Bytes(), proof.Krs.Bytes()
	copy(out[:48], a[:])
	copy(out[48:144], b[:])
	copy(out[144:], c[:])
	return out, nil
}

func decodeProof(raw [ProofSize]byte) (groth16.Proof, error) {
	var proof groth16bls.Proof
	if _, err := proof.Ar.SetBytes(raw[:48]); err != nil {
		return nil, fmt.Errorf("point A: %w", err)
	}
	if _, err := proof.Bs.SetBytes(raw[48:144]); err != nil {
		return nil, fmt.Errorf("point B: %w", err)
	}
	if _, err := proof.Krs.SetBytes(raw[144:]); err != nil {
		return nil, fmt.Errorf("point C: %w", err)
	}
	return &proof, nil
}
