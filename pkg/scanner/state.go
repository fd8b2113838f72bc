package scanner

import (
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
)

// SpendableNote is an owned note together with the witness that proves its
// inclusion and its nullifier.
type SpendableNote struct {
	Note      sapling.Note               `json:"note"`
	Witness   *merkle.IncrementalWitness `json:"witness"`
	Nullifier string                     `json:"nullifier"`
	Memo      *string                    `json:"memo,omitempty"`
}

// Value returns the note value.
func (n *SpendableNote) Value() uint64 {
	return n.Note.Value
}

// ID returns the hex nullifier, the identifier the note is spent by.
func (n *SpendableNote) ID() string {
	return n.Nullifier
}

// Anchor returns the root the witness currently proves against.
func (n *SpendableNote) Anchor() merkle.Node {
	return n.Witness.Root()
}

// Clone deep-copies the note and its witness.
func (n *SpendableNote) Clone() SpendableNote {
	c := *n
	if n.Witness != nil {
		c.Witness = n.Witness.Clone()
	}
	if n.Memo != nil {
		memo := *n.Memo
		c.Memo = &memo
	}
	return c
}

// ScanState is the tree, the owned unspent notes and the nullifiers seen so
// far. It is threaded through scanning calls and owned by one scan at a time.
type ScanState struct {
	Tree       *merkle.CommitmentTree `json:"tree"`
	Notes      []SpendableNote        `json:"notes"`
	Nullifiers []sapling.Nullifier    `json:"nullifiers"`

	// LastBlock is the height of the last scanned block, or the checkpoint
	// height the tree was loaded at.
	LastBlock uint32 `json:"lastBlock"`
}

// NewScanState starts from tree at height.
func NewScanState(tree *merkle.CommitmentTree, height uint32) *ScanState {
	return &ScanState{Tree: tree, LastBlock: height}
}

// Clone deep-copies the state.
func (s *ScanState) Clone() *ScanState {
	c := &ScanState{
		Tree:       s.Tree.Clone(),
		Notes:      cloneNotes(s.Notes),
		Nullifiers: append([]sapling.Nullifier(nil), s.Nullifiers...),
		LastBlock:  s.LastBlock,
	}
	return c
}

// Balance is the sum of every note value.
func (s *ScanState) Balance() uint64 {
	var total uint64
	for i := range s.Notes {
		total += s.Notes[i].Note.Value
	}
	return total
}

func cloneNotes(notes []SpendableNote) []SpendableNote {
	if notes == nil {
		return nil
	}
	out := make([]SpendableNote, len(notes))
	for i := range notes {
		out[i] = notes[i].Clone()
	}
	return out
}

// RemoveSpentNotes returns the notes whose nullifier is not in nullifiers.
func RemoveSpentNotes(notes []SpendableNote, nullifiers []sapling.Nullifier) []SpendableNote {
	spent := make(map[string]struct{}, len(nullifiers))
	for _, nf := range nullifiers {
		spent[nf.String()] = struct{}{}
	}
	unspent := make([]SpendableNote, 0, len(notes))
	for _, n := range notes {
		if _, ok := spent[n.Nullifier]; !ok {
			unspent = append(unspent, n)
		}
	}
	return unspent
}
