// Package wallet is the stateful shielded account: it owns the scan state of
// one viewing key, tracks transactions that were built but not yet mined, and
// hands out fresh addresses.
//
// A Wallet is safe for concurrent use. Building a transaction does not hold
// the wallet lock while proving.
package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/builder"
	"github.com/suffix-labs/pivx-shield/pkg/checkpoint"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// SimplifiedNote is what the wallet remembers about every note it received,
// spent or not.
type SimplifiedNote struct {
	Recipient string `json:"recipient"`
	Value     uint64 `json:"value"`
}

// pendingTx is a transaction built by the wallet that is not final yet.
type pendingTx struct {
	// nullifiers of the notes it spends; empty for UTXO spends.
	nullifiers []string
	// notes it pays back to the wallet. Cleared once the transaction is seen
	// in a block.
	notes []sapling.Note
}

// Wallet is one shielded account on one network.
type Wallet struct {
	mu sync.Mutex

	net         *consensus.Network
	spendingKey *sapling.ExpandedSpendingKey
	fvk         *sapling.FullViewingKey
	key         *scanner.FullViewingKey
	scanner     *scanner.Scanner

	state          *scanner.ScanState
	diversifier    sapling.DiversifierIndex
	nullifierNotes map[string]SimplifiedNote
	pending        map[string]*pendingTx
	// reserved holds the nullifiers of notes selected by builds still
	// being proven.
	reserved map[string]struct{}

	log log.Logger
}

// Options select the key a wallet is created from. Exactly one of Seed,
// SpendingKey and ViewingKey must be set.
type Options struct {
	Network *consensus.Network

	Seed    []byte
	Account uint32

	SpendingKey *sapling.SpendingKey
	ViewingKey  *sapling.FullViewingKey

	// BirthHeight is the first height the wallet may have received funds
	// at. Scanning starts from the closest checkpoint below it.
	BirthHeight uint32
}

// New creates a wallet positioned at the checkpoint closest to the birth
// height.
func New(opts Options) (*Wallet, error) {
	if opts.Network == nil {
		return nil, errors.New("network is required")
	}

	var sk *sapling.SpendingKey
	switch {
	case opts.Seed != nil && opts.SpendingKey != nil:
		return nil, errors.New("provide either a seed or a spending key, not both")
	case opts.Seed != nil:
		derived, err := sapling.DeriveSpendingKey(opts.Seed, opts.Network.CoinType, opts.Account)
		if err != nil {
			return nil, err
		}
		sk = &derived
	case opts.SpendingKey != nil:
		sk = opts.SpendingKey
	case opts.ViewingKey == nil:
		return nil, errors.New("a seed, spending key or viewing key is required")
	}

	fvk := opts.ViewingKey
	var esk *sapling.ExpandedSpendingKey
	if sk != nil {
		var err error
		if esk, err = sk.Expand(); err != nil {
			return nil, err
		}
		fvk = esk.FullViewingKey()
	}

	w, err := newWallet(opts.Network, fvk)
	if err != nil {
		return nil, err
	}
	w.spendingKey = esk
	w.resetToCheckpoint(opts.BirthHeight)
	return w, nil
}

func newWallet(net *consensus.Network, fvk *sapling.FullViewingKey) (*Wallet, error) {
	key, err := scanner.NewFullViewingKey(fvk)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		net:            net,
		fvk:            fvk,
		key:            key,
		scanner:        scanner.New(key, net),
		nullifierNotes: make(map[string]SimplifiedNote),
		pending:        make(map[string]*pendingTx),
		reserved:       make(map[string]struct{}),
		log:            log.New("module", "wallet", "network", net.Name),
	}, nil
}

// resetToCheckpoint drops every note and pending transaction and restarts
// from the checkpoint below height. Without a checkpoint the wallet starts
// from an empty tree at height 0.
func (w *Wallet) resetToCheckpoint(height uint32) {
	tree, at := merkle.NewCommitmentTree(), uint32(0)
	if cp, ok := checkpoint.Closest(w.net, height); ok {
		if t, err := cp.Tree(); err == nil {
			tree, at = t, cp.Height
		} else {
			w.log.Warn("Ignoring undecodable checkpoint", "height", cp.Height, "err", err)
		}
	}
	w.state = scanner.NewScanState(tree, at)
	w.nullifierNotes = make(map[string]SimplifiedNote)
	w.pending = make(map[string]*pendingTx)
	w.reserved = make(map[string]struct{})
}

// LoadSpendingKey gives a view-only wallet spending authority. The key must
// belong to the wallet's viewing key.
func (w *Wallet) LoadSpendingKey(sk sapling.SpendingKey) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.spendingKey != nil {
		return errors.New("a spending key is already loaded")
	}
	esk, err := sk.Expand()
	if err != nil {
		return err
	}
	if !bytes.Equal(esk.FullViewingKey().Bytes(), w.fvk.Bytes()) {
		return shield.Derivation(shield.ErrInvalidKey, "spending key does not match the viewing key", nil)
	}
	w.spendingKey = esk
	return nil
}

// Network returns the wallet's network.
func (w *Wallet) Network() *consensus.Network { return w.net }

// ViewingKey returns the encoded full viewing key.
func (w *Wallet) ViewingKey() string {
	return address.EncodeViewingKey(w.fvk, w.net)
}

// CanSpend reports whether a spending key is loaded.
func (w *Wallet) CanSpend() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spendingKey != nil
}

// HandleBlocks scans blocks, which must follow the last processed block in
// strictly increasing height order. It returns what the blocks revealed.
func (w *Wallet) HandleBlocks(blocks []scanner.Block) (*scanner.BlocksResult, error) {
	if len(blocks) == 0 {
		return &scanner.BlocksResult{}, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	res, err := w.scanner.ScanBlocks(w.state, blocks)
	if err != nil {
		return nil, err
	}

	for _, b := range blocks {
		for _, txHex := range b.Txs {
			if p, ok := w.pending[txHexID(txHex)]; ok {
				p.notes = nil
			}
		}
	}
	for _, n := range res.NewNotes {
		w.nullifierNotes[n.Nullifier] = SimplifiedNote{
			Recipient: address.NewShielded(n.Note.Recipient, w.net).String(),
			Value:     n.Note.Value,
		}
	}
	return res, nil
}

// LastProcessedBlock returns the height of the last scanned block.
func (w *Wallet) LastProcessedBlock() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.LastBlock
}

// Balance is the value of every unspent note, including notes spent by
// pending transactions.
func (w *Wallet) Balance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Balance()
}

// PendingBalance is the value pending transactions pay back to the wallet.
func (w *Wallet) PendingBalance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total uint64
	for _, p := range w.pending {
		for _, n := range p.notes {
			total += n.Value
		}
	}
	return total
}

// Notes returns a copy of the unspent notes.
func (w *Wallet) Notes() []scanner.SpendableNote {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone().Notes
}

// NoteFromNullifier looks up a received note by its hex nullifier.
func (w *Wallet) NoteFromNullifier(nullifier string) (SimplifiedNote, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nullifierNotes[nullifier]
	return n, ok
}

// SaplingRoot returns the hex root of the commitment tree.
func (w *Wallet) SaplingRoot() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Tree.Root().Hex()
}

// NewAddress returns the next diversified payment address.
func (w *Wallet) NewAddress() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.newAddress()
}

func (w *Wallet) newAddress() (string, error) {
	index, addr, err := w.fvk.NextAddress(w.diversifier)
	if err != nil {
		return "", err
	}
	w.diversifier = index
	return address.NewShielded(addr, w.net).String(), nil
}

// ReloadFromCheckpoint forgets every note and restarts scanning from the
// checkpoint closest to height.
func (w *Wallet) ReloadFromCheckpoint(height uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetToCheckpoint(height)
	w.log.Info("Reloaded from checkpoint", "requested", height, "height", w.state.LastBlock)
}

// Payment is a transaction request against the wallet.
type Payment struct {
	To     string
	Amount uint64
	Memo   string
	Height uint32

	// Utxos, when set, are spent instead of the wallet's notes. Change then
	// goes to TransparentChangeAddress.
	Utxos                    []builder.Utxo
	TransparentChangeAddress string
}

// CreateTransaction builds a transaction and records it as pending. Notes
// are tried smallest first. Notes spent by pending transactions or selected
// by builds still in flight are never selected.
func (w *Wallet) CreateTransaction(ctx context.Context, b *builder.Builder, pay Payment, sink builder.ProgressSink) (*builder.Result, error) {
	job, reserved, err := w.startBuild(b, pay, sink)
	if err != nil {
		return nil, err
	}
	defer w.release(reserved)

	res, err := job.Wait(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := crypto.ParseTransactionHex(res.TxHex)
	if err != nil {
		return nil, err
	}
	p := &pendingTx{notes: w.ownOutputs(tx)}
	if reserved != nil {
		p.nullifiers = res.Nullifiers
	}

	w.mu.Lock()
	w.pending[res.TxID] = p
	w.mu.Unlock()

	w.log.Info("Created transaction", "txid", res.TxID, "amount", res.Amount, "fee", res.Fee, "pendingChange", len(p.notes))
	return res, nil
}

// startBuild plans the payment and reserves the selected notes under the
// lock, so two concurrent builds never pick the same note. The returned
// nullifiers must be released once the build settles.
func (w *Wallet) startBuild(b *builder.Builder, pay Payment, sink builder.ProgressSink) (*builder.Job, []string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.spendingKey == nil {
		return nil, nil, shield.ErrNoSpendingKey
	}
	params := &builder.Params{
		SpendingKey: w.spendingKey,
		To:          pay.To,
		Amount:      pay.Amount,
		Memo:        pay.Memo,
		Height:      pay.Height,
		Network:     w.net,
	}
	useNotes := len(pay.Utxos) == 0
	if useNotes {
		params.Inputs = builder.NoteInputs(w.spendableNotes()).SortAscending()
		change, err := w.newAddress()
		if err != nil {
			return nil, nil, err
		}
		params.ChangeAddress = change
	} else {
		if pay.TransparentChangeAddress == "" {
			return nil, nil, shield.Prover(shield.ErrInvalidRequest, "utxo spends need a transparent change address", nil)
		}
		params.Inputs = builder.UtxoInputs(pay.Utxos).SortAscending()
		params.ChangeAddress = pay.TransparentChangeAddress
	}

	job, err := b.Start(params, sink)
	if err != nil {
		return nil, nil, err
	}
	if !useNotes {
		return job, nil, nil
	}
	reserved := job.Inputs()
	for _, nf := range reserved {
		w.reserved[nf] = struct{}{}
	}
	return job, reserved, nil
}

func (w *Wallet) release(nullifiers []string) {
	if len(nullifiers) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, nf := range nullifiers {
		delete(w.reserved, nf)
	}
}

// spendableNotes clones every note neither pending nor reserved.
func (w *Wallet) spendableNotes() []scanner.SpendableNote {
	var spent []sapling.Nullifier
	add := func(nf string) {
		if parsed, err := sapling.NullifierFromHex(nf); err == nil {
			spent = append(spent, parsed)
		}
	}
	for _, p := range w.pending {
		for _, nf := range p.nullifiers {
			add(nf)
		}
	}
	for nf := range w.reserved {
		add(nf)
	}
	return scanner.RemoveSpentNotes(w.state.Clone().Notes, spent)
}

// ownOutputs decrypts the outputs of tx paid to the wallet.
func (w *Wallet) ownOutputs(tx *crypto.Transaction) []sapling.Note {
	if tx.Sapling == nil {
		return nil
	}
	var notes []sapling.Note
	for i := range tx.Sapling.Outputs {
		if note, _, ok := w.key.DecryptOutput(&tx.Sapling.Outputs[i]); ok {
			notes = append(notes, note)
		}
	}
	return notes
}

// PendingNullifiers returns the nullifiers spent by pending transactions.
func (w *Wallet) PendingNullifiers() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, p := range w.pending {
		out = append(out, p.nullifiers...)
	}
	return out
}

// FinalizeTransaction marks the notes spent by a pending transaction as
// spent, typically after it was broadcast.
func (w *Wallet) FinalizeTransaction(txid string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[txid]
	if !ok {
		return fmt.Errorf("%w: %s", shield.ErrUnknownTransaction, txid)
	}
	spent := make([]sapling.Nullifier, 0, len(p.nullifiers))
	for _, nf := range p.nullifiers {
		parsed, err := sapling.NullifierFromHex(nf)
		if err != nil {
			return err
		}
		spent = append(spent, parsed)
	}
	w.state.Notes = scanner.RemoveSpentNotes(w.state.Notes, spent)
	delete(w.pending, txid)
	return nil
}

// DiscardTransaction forgets a pending transaction. Its notes become
// spendable again.
func (w *Wallet) DiscardTransaction(txid string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[txid]; !ok {
		return fmt.Errorf("%w: %s", shield.ErrUnknownTransaction, txid)
	}
	delete(w.pending, txid)
	return nil
}

// txHexID computes the id of a hex transaction, or "" if it is not hex.
func txHexID(txHex string) string {
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return ""
	}
	h := crypto.DoubleSHA256(raw)
	return hex.EncodeToString(crypto.Reverse(h[:]))
}
