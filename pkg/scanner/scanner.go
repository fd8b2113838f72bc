// Package scanner discovers owned notes in chain data and keeps their
// witnesses in step with the commitment tree.
//
// Every output commitment is appended to the tree and to every live witness,
// owned or not, strictly in bundle order. A transaction is scanned
// atomically: all mutations are staged on copies of the tree and witnesses
// and committed to the state only once the whole transaction succeeded.
package scanner

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// ViewingKey is the decrypt capability and nullifier key of the wallet.
type ViewingKey interface {
	// DecryptOutput trial-decrypts one output.
	DecryptOutput(out *crypto.OutputDescription) (sapling.Note, sapling.Memo, bool)
	NullifierKey() sapling.NullifierKey
}

// FullViewingKey adapts a sapling full viewing key to ViewingKey.
type FullViewingKey struct {
	fvk *sapling.FullViewingKey
	ivk *sapling.IncomingViewingKey
}

// NewFullViewingKey derives the incoming viewing key of fvk once.
func NewFullViewingKey(fvk *sapling.FullViewingKey) (*FullViewingKey, error) {
	ivk, err := fvk.IncomingViewingKey()
	if err != nil {
		return nil, err
	}
	return &FullViewingKey{fvk: fvk, ivk: ivk}, nil
}

// DecryptOutput implements ViewingKey.
func (k *FullViewingKey) DecryptOutput(out *crypto.OutputDescription) (sapling.Note, sapling.Memo, bool) {
	return sapling.TryDecryptNote(k.ivk, out)
}

// NullifierKey implements ViewingKey.
func (k *FullViewingKey) NullifierKey() sapling.NullifierKey {
	return k.fvk.NullifierKey()
}

// Scanner scans transactions for one viewing key on one network.
type Scanner struct {
	key ViewingKey
	net *consensus.Network
	log log.Logger
}

// New creates a scanner.
func New(key ViewingKey, net *consensus.Network) *Scanner {
	return &Scanner{key: key, net: net, log: log.New("module", "scanner", "network", net.Name)}
}

// ScanTransaction scans one raw transaction mined at height and returns the
// nullifiers it reveals. On error state is left untouched.
func (s *Scanner) ScanTransaction(state *ScanState, rawTx []byte, height uint32) ([]sapling.Nullifier, error) {
	tx, err := crypto.ParseTransaction(rawTx)
	if err != nil {
		return nil, err
	}

	staged := stage{tree: state.Tree.Clone(), notes: cloneNotes(state.Notes)}
	nullifiers, err := s.scan(&staged, tx, height)
	if err != nil {
		return nil, err
	}

	state.Tree = staged.tree
	state.Notes = staged.notes
	state.Nullifiers = append(state.Nullifiers, nullifiers...)
	return nullifiers, nil
}

// ScanTransactionHex is ScanTransaction over a hex-encoded transaction.
func (s *Scanner) ScanTransactionHex(state *ScanState, txHex string, height uint32) ([]sapling.Nullifier, error) {
	raw, err := decodeHex(txHex)
	if err != nil {
		return nil, err
	}
	return s.ScanTransaction(state, raw, height)
}

type stage struct {
	tree  *merkle.CommitmentTree
	notes []SpendableNote
	found []SpendableNote
}

func (s *Scanner) scan(st *stage, tx *crypto.Transaction, height uint32) ([]sapling.Nullifier, error) {
	bundle := tx.Sapling
	if bundle == nil {
		return nil, nil
	}

	nullifiers := make([]sapling.Nullifier, 0, len(bundle.Spends))
	for i := range bundle.Spends {
		nullifiers = append(nullifiers, sapling.Nullifier(bundle.Spends[i].Nullifier))
	}

	for i := range bundle.Outputs {
		out := &bundle.Outputs[i]
		cmu := merkle.Node(out.Cmu)

		if err := st.tree.Append(cmu); err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		for j := range st.notes {
			if err := st.notes[j].Witness.Append(cmu); err != nil {
				return nil, fmt.Errorf("output %d: witness %d: %w", i, j, err)
			}
		}

		note, memo, ok := s.key.DecryptOutput(out)
		if !ok {
			continue
		}
		witness := merkle.WitnessFromTree(st.tree)
		nf := sapling.DeriveNullifier(s.key.NullifierKey(), note, witness.Position())

		spendable := SpendableNote{Note: note, Witness: witness, Nullifier: nf.String()}
		if text, ok := memo.Text(); ok {
			spendable.Memo = &text
		}
		st.notes = append(st.notes, spendable)
		st.found = append(st.found, spendable)

		s.log.Debug("Found note", "height", height, "output", i, "value", note.Value, "position", witness.Position())
	}
	return nullifiers, nil
}

// Block is one block of transactions, hex encoded.
type Block struct {
	Height uint32   `json:"height"`
	Txs    []string `json:"txs"`
}

// BlocksResult reports what ScanBlocks discovered.
type BlocksResult struct {
	// Nullifiers revealed by the scanned blocks, in chain order.
	Nullifiers []sapling.Nullifier `json:"nullifiers"`
	// NewNotes are the owned notes first seen in the scanned blocks that are
	// still unspent, with witnesses current as of the last block.
	NewNotes []SpendableNote `json:"newNotes"`
}

// ScanBlocks scans blocks in order and removes every note whose nullifier
// was revealed. Heights must be strictly increasing and above
// state.LastBlock. The call is atomic: on any error state is left
// untouched.
func (s *Scanner) ScanBlocks(state *ScanState, blocks []Block) (*BlocksResult, error) {
	staged := stage{tree: state.Tree.Clone(), notes: cloneNotes(state.Notes)}
	last := state.LastBlock
	result := &BlocksResult{}

	for _, b := range blocks {
		if b.Height <= last {
			return nil, fmt.Errorf("%w: block %d after %d", shield.ErrBlockOrder, b.Height, last)
		}
		last = b.Height

		for i, txHex := range b.Txs {
			raw, err := decodeHex(txHex)
			if err != nil {
				return nil, fmt.Errorf("block %d tx %d: %w", b.Height, i, err)
			}
			tx, err := crypto.ParseTransaction(raw)
			if err != nil {
				return nil, fmt.Errorf("block %d tx %d: %w", b.Height, i, err)
			}
			nfs, err := s.scan(&staged, tx, b.Height)
			if err != nil {
				return nil, fmt.Errorf("block %d tx %s: %w", b.Height, tx.TxID(), err)
			}
			result.Nullifiers = append(result.Nullifiers, nfs...)
		}
		s.log.Trace("Scanned block", "height", b.Height, "txs", len(b.Txs))
	}

	staged.notes = RemoveSpentNotes(staged.notes, result.Nullifiers)
	result.NewNotes = newUnspent(staged.found, staged.notes)

	state.Tree = staged.tree
	state.Notes = staged.notes
	state.Nullifiers = append(state.Nullifiers, result.Nullifiers...)
	state.LastBlock = last

	if len(blocks) > 0 {
		s.log.Info("Processed blocks", "from", blocks[0].Height, "to", last,
			"nullifiers", len(result.Nullifiers), "notes", len(result.NewNotes), "treeSize", state.Tree.Size())
	}
	return result, nil
}

// newUnspent returns the notes of found that survived in notes. Witnesses
// are taken from notes so they include every later append.
func newUnspent(found, notes []SpendableNote) []SpendableNote {
	if len(found) == 0 {
		return nil
	}
	isNew := make(map[string]struct{}, len(found))
	for _, n := range found {
		isNew[n.Nullifier] = struct{}{}
	}
	var out []SpendableNote
	for i := range notes {
		if _, ok := isNew[notes[i].Nullifier]; ok {
			out = append(out, notes[i].Clone())
		}
	}
	return out
}

func decodeHex(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidHex, "transaction hex", err)
	}
	return raw, nil
}
