package wallet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
)

// SnapshotVersion is the current snapshot format. Version 0 snapshots carry
// no notes; loading one requires a rescan from its tree.
const SnapshotVersion = 1

// snapshot is the persisted public state of a wallet. It holds no spending
// key.
type snapshot struct {
	Version            int                       `json:"version"`
	Network            string                    `json:"network"`
	ViewingKey         string                    `json:"extfvk"`
	LastProcessedBlock uint32                    `json:"lastProcessedBlock"`
	CommitmentTree     *merkle.CommitmentTree    `json:"commitmentTree"`
	DiversifierIndex   sapling.DiversifierIndex  `json:"diversifierIndex"`
	UnspentNotes       []scanner.SpendableNote   `json:"unspentNotes,omitempty"`
	NullifierNotes     map[string]SimplifiedNote `json:"mapNullifierNote,omitempty"`

	PendingSpentNotes   map[string][]string       `json:"pendingSpentNotes,omitempty"`
	PendingUnspentNotes map[string][]sapling.Note `json:"pendingUnspentNotes,omitempty"`
}

// Save encodes the wallet's public state as JSON, pending transactions
// included.
func (w *Wallet) Save() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.state.Clone()
	s := &snapshot{
		Version:            SnapshotVersion,
		Network:            w.net.Name,
		ViewingKey:         address.EncodeViewingKey(w.fvk, w.net),
		LastProcessedBlock: state.LastBlock,
		CommitmentTree:     state.Tree,
		DiversifierIndex:   w.diversifier,
		UnspentNotes:       state.Notes,
		NullifierNotes:     w.nullifierNotes,
	}
	if len(w.pending) > 0 {
		s.PendingSpentNotes = make(map[string][]string, len(w.pending))
		s.PendingUnspentNotes = make(map[string][]sapling.Note)
		for txid, p := range w.pending {
			s.PendingSpentNotes[txid] = p.nullifiers
			if len(p.notes) > 0 {
				s.PendingUnspentNotes[txid] = p.notes
			}
		}
	}
	return json.Marshal(s)
}

// Load restores a view-only wallet from Save output. current is false when
// the snapshot was written by an older format; the wallet is still usable
// but should be rescanned from its checkpoint.
func Load(data []byte) (w *Wallet, current bool, err error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("decoding wallet snapshot: %w", err)
	}
	if s.Version > SnapshotVersion {
		return nil, false, fmt.Errorf("wallet snapshot version %d is newer than %d", s.Version, SnapshotVersion)
	}
	if s.CommitmentTree == nil {
		return nil, false, errors.New("wallet snapshot has no commitment tree")
	}
	net, err := consensus.ByName(s.Network)
	if err != nil {
		return nil, false, err
	}
	fvk, err := address.DecodeViewingKey(s.ViewingKey, net)
	if err != nil {
		return nil, false, err
	}

	w, err = newWallet(net, fvk)
	if err != nil {
		return nil, false, err
	}
	w.state = scanner.NewScanState(s.CommitmentTree, s.LastProcessedBlock)
	w.diversifier = s.DiversifierIndex
	if s.Version >= 1 {
		w.state.Notes = s.UnspentNotes
		if s.NullifierNotes != nil {
			w.nullifierNotes = s.NullifierNotes
		}
		for txid, nfs := range s.PendingSpentNotes {
			w.pending[txid] = &pendingTx{nullifiers: nfs, notes: s.PendingUnspentNotes[txid]}
		}
	}
	return w, s.Version == SnapshotVersion, nil
}
