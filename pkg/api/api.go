// Package api provides the stateless, string-typed surface of the shielded
// wallet core for hosts that keep their own state.
//
// Trees, witnesses and nullifiers cross this boundary as hex, keys and
// addresses in their network encodings. Every call is independent; the only
// state is the prover parameters and the progress of the transaction being
// proven, both owned by a Service.
//
// The functions, grouped as hosts use them:
//
//  1. HandleBlocks / RemoveSpentNotes / NullifierFromNote - scanning
//  2. Service.CreateTransaction / Service.ReadTxProgress - building
//  3. SaplingRoot / ClosestCheckpoint - tree state
//  4. GenerateSpendingKey / EncodeViewingKey / DefaultAddress / NextAddress - keys
package api

import (
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/checkpoint"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
)

// NoteWitness is a note with the hex witness of its position.
type NoteWitness struct {
	Note    sapling.Note `json:"note"`
	Witness string       `json:"witness"`
}

// BlocksResult is the outcome of HandleBlocks.
type BlocksResult struct {
	// DecryptedNotes are the notes passed in that are still unspent, with
	// updated witnesses.
	DecryptedNotes []NoteWitness `json:"decrypted_notes"`
	// DecryptedNewNotes are the unspent notes found in the blocks.
	DecryptedNewNotes []NoteWitness `json:"decrypted_new_notes"`
	// Nullifiers revealed by the blocks, hex.
	Nullifiers     []string `json:"nullifiers"`
	CommitmentTree string   `json:"commitment_tree"`
}

// NewAddress is a payment address with its diversifier index.
type NewAddress struct {
	Address          string                   `json:"address"`
	DiversifierIndex sapling.DiversifierIndex `json:"diversifier_index"`
}

// ============================================================================
// Scanning
// ============================================================================

// HandleBlocks scans blocks against treeHex for the encoded viewing key.
//
// notes are the caller's unspent notes; their witnesses are advanced for
// every output in the blocks. Notes spent within the blocks are dropped from
// both result lists.
func HandleBlocks(treeHex string, blocks []scanner.Block, viewingKey string, net *consensus.Network, notes []NoteWitness) (*BlocksResult, error) {
	tree, err := merkle.TreeFromHex(treeHex)
	if err != nil {
		return nil, err
	}
	key, fvk, err := viewingKeys(viewingKey, net)
	if err != nil {
		return nil, err
	}
	known, err := spendable(fvk, notes)
	if err != nil {
		return nil, err
	}

	state := scanner.NewScanState(tree, 0)
	state.Notes = known
	res, err := scanner.New(key, net).ScanBlocks(state, blocks)
	if err != nil {
		return nil, err
	}

	isNew := make(map[string]bool, len(res.NewNotes))
	for _, n := range res.NewNotes {
		isNew[n.Nullifier] = true
	}
	out := &BlocksResult{
		DecryptedNotes:    []NoteWitness{},
		DecryptedNewNotes: toNoteWitnesses(res.NewNotes),
		Nullifiers:        make([]string, len(res.Nullifiers)),
		CommitmentTree:    state.Tree.Hex(),
	}
	for _, n := range state.Notes {
		if !isNew[n.Nullifier] {
			out.DecryptedNotes = append(out.DecryptedNotes, NoteWitness{Note: n.Note, Witness: n.Witness.Hex()})
		}
	}
	for i, nf := range res.Nullifiers {
		out.Nullifiers[i] = nf.String()
	}
	return out, nil
}

// RemoveSpentNotes returns the notes whose nullifier is not in nullifiers.
func RemoveSpentNotes(notes []NoteWitness, nullifiers []string, viewingKey string, net *consensus.Network) ([]NoteWitness, error) {
	_, fvk, err := viewingKeys(viewingKey, net)
	if err != nil {
		return nil, err
	}
	known, err := spendable(fvk, notes)
	if err != nil {
		return nil, err
	}
	spent := make([]sapling.Nullifier, 0, len(nullifiers))
	for _, s := range nullifiers {
		nf, err := sapling.NullifierFromHex(s)
		if err != nil {
			return nil, err
		}
		spent = append(spent, nf)
	}
	return toNoteWitnesses(scanner.RemoveSpentNotes(known, spent)), nil
}

// NullifierFromNote derives the hex nullifier that spends note.
func NullifierFromNote(note NoteWitness, viewingKey string, net *consensus.Network) (string, error) {
	_, fvk, err := viewingKeys(viewingKey, net)
	if err != nil {
		return "", err
	}
	w, err := merkle.WitnessFromHex(note.Witness)
	if err != nil {
		return "", err
	}
	return sapling.DeriveNullifier(fvk.NullifierKey(), note.Note, w.Position()).String(), nil
}

// ============================================================================
// Tree state
// ============================================================================

// SaplingRoot returns the hex root of a hex tree.
func SaplingRoot(treeHex string) (string, error) {
	tree, err := merkle.TreeFromHex(treeHex)
	if err != nil {
		return "", err
	}
	return tree.Root().Hex(), nil
}

// ClosestCheckpoint returns the highest checkpoint strictly below height.
func ClosestCheckpoint(height uint32, net *consensus.Network) (checkpoint.Checkpoint, error) {
	cp, ok := checkpoint.Closest(net, height)
	if !ok {
		return cp, fmt.Errorf("no %s checkpoint below height %d", net.Name, height)
	}
	return cp, nil
}

// ============================================================================
// Keys and addresses
// ============================================================================

// GenerateSpendingKey derives the encoded spending key of account from seed.
func GenerateSpendingKey(seed []byte, account uint32, net *consensus.Network) (string, error) {
	sk, err := sapling.DeriveSpendingKey(seed, net.CoinType, account)
	if err != nil {
		return "", err
	}
	return address.EncodeSpendingKey(sk, net), nil
}

// EncodeViewingKey returns the encoded full viewing key of an encoded
// spending key.
func EncodeViewingKey(spendingKey string, net *consensus.Network) (string, error) {
	sk, err := address.DecodeSpendingKey(spendingKey, net)
	if err != nil {
		return "", err
	}
	fvk, err := sk.FullViewingKey()
	if err != nil {
		return "", err
	}
	return address.EncodeViewingKey(fvk, net), nil
}

// DefaultAddress returns the address at the first valid diversifier index.
func DefaultAddress(viewingKey string, net *consensus.Network) (*NewAddress, error) {
	fvk, err := address.DecodeViewingKey(viewingKey, net)
	if err != nil {
		return nil, err
	}
	index, addr, err := fvk.DefaultAddress()
	if err != nil {
		return nil, err
	}
	return &NewAddress{Address: address.NewShielded(addr, net).String(), DiversifierIndex: index}, nil
}

// NextAddress returns the address after index.
func NextAddress(viewingKey string, index sapling.DiversifierIndex, net *consensus.Network) (*NewAddress, error) {
	fvk, err := address.DecodeViewingKey(viewingKey, net)
	if err != nil {
		return nil, err
	}
	next, addr, err := fvk.NextAddress(index)
	if err != nil {
		return nil, err
	}
	return &NewAddress{Address: address.NewShielded(addr, net).String(), DiversifierIndex: next}, nil
}

func viewingKeys(viewingKey string, net *consensus.Network) (*scanner.FullViewingKey, *sapling.FullViewingKey, error) {
	fvk, err := address.DecodeViewingKey(viewingKey, net)
	if err != nil {
		return nil, nil, err
	}
	key, err := scanner.NewFullViewingKey(fvk)
	if err != nil {
		return nil, nil, err
	}
	return key, fvk, nil
}

// spendable decodes notes and derives their nullifiers.
func spendable(fvk *sapling.FullViewingKey, notes []NoteWitness) ([]scanner.SpendableNote, error) {
	out := make([]scanner.SpendableNote, 0, len(notes))
	for i, n := range notes {
		w, err := merkle.WitnessFromHex(n.Witness)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		nf := sapling.DeriveNullifier(fvk.NullifierKey(), n.Note, w.Position())
		out = append(out, scanner.SpendableNote{Note: n.Note, Witness: w, Nullifier: nf.String()})
	}
	return out, nil
}

func toNoteWitnesses(notes []scanner.SpendableNote) []NoteWitness {
	out := make([]NoteWitness, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteWitness{Note: n.Note, Witness: n.Witness.Hex()})
	}
	return out
}
