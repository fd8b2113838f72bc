package builder

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/internal/fixtures"
	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/prover"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
	"github.com/suffix-labs/pivx-shield/pkg/selection"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

var net = consensus.TestNet

type account struct {
	esk  *sapling.ExpandedSpendingKey
	fvk  *sapling.FullViewingKey
	ivk  *sapling.IncomingViewingKey
	addr sapling.PaymentAddress
	scan *scanner.Scanner
}

func newAccount(t *testing.T, index uint32) *account {
	t.Helper()
	sk, err := sapling.DeriveSpendingKey(bytes.Repeat([]byte{3}, 32), net.CoinType, index)
	require.NoError(t, err)
	esk, err := sk.Expand()
	require.NoError(t, err)
	fvk := esk.FullViewingKey()
	key, err := scanner.NewFullViewingKey(fvk)
	require.NoError(t, err)
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	_, addr, err := fvk.DefaultAddress()
	require.NoError(t, err)
	return &account{esk: esk, fvk: fvk, ivk: ivk, addr: addr, scan: scanner.New(key, net)}
}

func (a *account) shieldedAddress() string {
	return address.NewShielded(a.addr, net).String()
}

// receive scans a transaction paying value to a and returns the new note.
func (a *account) receive(t *testing.T, state *scanner.ScanState, value uint64, height uint32) scanner.SpendableNote {
	t.Helper()
	note, err := sapling.NewNote(a.addr, value, net.Zip212Active(height))
	require.NoError(t, err)
	ne, err := sapling.NewNoteEncryption(nil, note, sapling.Memo{})
	require.NoError(t, err)
	out := crypto.OutputDescription{Cmu: note.Commitment(), EphemeralKey: ne.EphemeralKey()}
	out.EncCiphertext, err = ne.EncryptNote()
	require.NoError(t, err)

	tx := &crypto.Transaction{Version: crypto.SaplingVersion, Sapling: &crypto.SaplingBundle{Outputs: []crypto.OutputDescription{out}}}
	before := len(state.Notes)
	_, err = a.scan.ScanTransaction(state, tx.Serialize(), height)
	require.NoError(t, err)
	require.Len(t, state.Notes, before+1)
	return state.Notes[before]
}

func fixtureState(t *testing.T) *scanner.ScanState {
	t.Helper()
	tree, err := merkle.TreeFromHex(fixtures.TreeHex)
	require.NoError(t, err)
	return scanner.NewScanState(tree, 0)
}

func TestBuildSpendsNoteToTransparentAddress(t *testing.T) {
	acc := newAccount(t, 0)
	state := fixtureState(t)
	note := acc.receive(t, state, 10*consensus.Coin, 300)
	witnessBefore := note.Witness.Hex()

	var progress []prover.Progress
	res, err := New(prover.Mock{}).Build(context.Background(), &Params{
		Inputs:        NoteInputs(state.Notes),
		SpendingKey:   acc.esk,
		To:            fixtures.TransparentAddress,
		ChangeAddress: fixtures.ShieldedAddress,
		Amount:        50_000_000,
		Height:        317,
		Network:       net,
	}, SinkFunc(func(p prover.Progress) { progress = append(progress, p) }))
	require.NoError(t, err)

	want := sapling.DeriveNullifier(acc.fvk.NullifierKey(), note.Note, note.Witness.Position())
	require.Len(t, res.Nullifiers, 1)
	assert.Equal(t, want.String(), res.Nullifiers[0])
	assert.Equal(t, note.Nullifier, res.Nullifiers[0])

	fee := selection.Fee(0, 1, 1, 2)
	assert.Equal(t, fee, res.Fee)
	assert.Equal(t, uint64(50_000_000), res.Amount)
	assert.Equal(t, []prover.Progress{{Current: 1, Total: 2}, {Current: 2, Total: 2}}, progress)

	tx, err := crypto.ParseTransactionHex(res.TxHex)
	require.NoError(t, err)
	assert.Equal(t, res.TxID, tx.TxID())
	to, err := address.DecodeTransparent(fixtures.TransparentAddress, net)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 1)
	assert.Equal(t, to.Script(), tx.Outputs[0].ScriptPubKey)
	assert.Equal(t, uint64(50_000_000), tx.Outputs[0].Value)

	require.Len(t, tx.Sapling.Spends, 1)
	assert.Equal(t, [32]byte(want), tx.Sapling.Spends[0].Nullifier)
	assert.Equal(t, [32]byte(state.Tree.Root()), tx.Sapling.Spends[0].Anchor)

	// The change output goes to the change address and remains readable
	// through the sender's outgoing viewing key.
	require.Len(t, tx.Sapling.Outputs, 1)
	change, _, ok := sapling.TryRecoverOutput(acc.esk.Ovk, &tx.Sapling.Outputs[0])
	require.True(t, ok)
	assert.Equal(t, 10*consensus.Coin-50_000_000-fee, change.Value)
	changeAddr, err := address.DecodeShielded(fixtures.ShieldedAddress, net)
	require.NoError(t, err)
	assert.Equal(t, changeAddr.PaymentAddress, change.Recipient)

	assert.Equal(t, witnessBefore, state.Notes[0].Witness.Hex())
}

func TestBuildShieldedPayment(t *testing.T) {
	from, to := newAccount(t, 0), newAccount(t, 1)
	fee := selection.Fee(0, 0, 1, 2)

	tests := []struct {
		name       string
		value      uint64
		amount     uint64
		wantAmount uint64
		wantChange bool
	}{
		{"with change", 10 * consensus.Coin, 4 * consensus.Coin, 4 * consensus.Coin, true},
		{"exact", 4*consensus.Coin + fee, 4 * consensus.Coin, 4 * consensus.Coin, false},
		{"fee taken from amount", 4 * consensus.Coin, 4 * consensus.Coin, 4*consensus.Coin - fee, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := scanner.NewScanState(merkle.NewCommitmentTree(), 0)
			from.receive(t, state, tt.value, 10)

			res, err := New(prover.Mock{}).Build(context.Background(), &Params{
				Inputs:        NoteInputs(state.Notes),
				SpendingKey:   from.esk,
				To:            to.shieldedAddress(),
				ChangeAddress: from.shieldedAddress(),
				Amount:        tt.amount,
				Memo:          "invoice 7",
				Height:        20,
				Network:       net,
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, res.Amount)
			assert.Equal(t, fee, res.Fee)

			tx, err := crypto.ParseTransactionHex(res.TxHex)
			require.NoError(t, err)
			assert.Empty(t, tx.Outputs)
			if tt.wantChange {
				require.Len(t, tx.Sapling.Outputs, 2)
			} else {
				require.Len(t, tx.Sapling.Outputs, 1)
			}

			received := scanner.NewScanState(merkle.NewCommitmentTree(), 0)
			_, err = to.scan.ScanTransaction(received, tx.Serialize(), 30)
			require.NoError(t, err)
			require.Len(t, received.Notes, 1)
			assert.Equal(t, tt.wantAmount, received.Notes[0].Note.Value)
			require.NotNil(t, received.Notes[0].Memo)
			assert.Equal(t, "invoice 7", *received.Notes[0].Memo)
		})
	}
}

func TestBuildSpendsUtxos(t *testing.T) {
	to := newAccount(t, 1)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	script := address.TransparentFromPublicKey(key.PublicKey(), net).Script()

	utxos := []Utxo{
		{TxID: fixtures.SpendInputTxID, Vout: 0, Amount: consensus.Coin / 2, PrivateKey: key.Bytes(), Script: script},
		{TxID: fixtures.SpendInputTxID, Vout: 1, Amount: consensus.Coin, PrivateKey: key.Bytes(), Script: script},
		{TxID: fixtures.SpendInputTxID, Vout: 2, Amount: consensus.Coin, PrivateKey: key.Bytes(), Script: script},
	}
	inputs, err := NewInputs(nil, utxos)
	require.NoError(t, err)

	res, err := New(prover.Mock{}).Build(context.Background(), &Params{
		Inputs:        inputs,
		To:            to.shieldedAddress(),
		ChangeAddress: to.shieldedAddress(),
		Amount:        consensus.Coin,
		Height:        100,
		Network:       net,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{fixtures.SpendInputTxID + ",0", fixtures.SpendInputTxID + ",1"}, res.Nullifiers)
	fee := selection.Fee(2, 0, 0, 2)
	assert.Equal(t, fee, res.Fee)

	tx, err := crypto.ParseTransactionHex(res.TxHex)
	require.NoError(t, err)
	require.Len(t, tx.Inputs, 2)
	assert.Equal(t, fixtures.SpendInputTxID, hex.EncodeToString(crypto.Reverse(tx.Inputs[1].PrevoutTxID[:])))
	assert.Equal(t, uint32(1), tx.Inputs[1].PrevoutIndex)
	assert.Empty(t, tx.Sapling.Spends)
	require.Len(t, tx.Sapling.Outputs, 2)
	assert.Equal(t, -int64(consensus.Coin*3/2-fee), tx.Sapling.ValueBalance)
}

func TestBuildTransparentChange(t *testing.T) {
	to := newAccount(t, 1)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	from := address.TransparentFromPublicKey(key.PublicKey(), net)

	res, err := New(prover.Mock{}).Build(context.Background(), &Params{
		Inputs:        UtxoInputs{{TxID: fixtures.SpendInputTxID, Amount: consensus.Coin, PrivateKey: key.Bytes(), Script: from.Script()}},
		To:            to.shieldedAddress(),
		ChangeAddress: from.String(),
		Amount:        consensus.Coin / 4,
		Height:        100,
		Network:       net,
	}, nil)
	require.NoError(t, err)

	tx, err := crypto.ParseTransactionHex(res.TxHex)
	require.NoError(t, err)
	require.Len(t, tx.Sapling.Outputs, 1)
	require.Len(t, tx.Outputs, 1)
	assert.Equal(t, from.Script(), tx.Outputs[0].ScriptPubKey)
	assert.Equal(t, consensus.Coin-consensus.Coin/4-res.Fee, tx.Outputs[0].Value)
}

func TestBuildRejects(t *testing.T) {
	acc := newAccount(t, 0)
	state := fixtureState(t)
	acc.receive(t, state, consensus.Coin, 300)

	valid := func() *Params {
		return &Params{
			Inputs:        NoteInputs(state.Notes),
			SpendingKey:   acc.esk,
			To:            fixtures.TransparentAddress,
			ChangeAddress: fixtures.ShieldedAddress,
			Amount:        consensus.Coin / 2,
			Height:        317,
			Network:       net,
		}
	}

	_, err := NewInputs(state.Notes, []Utxo{{}})
	assert.ErrorIs(t, err, shield.ErrMixedInputs)
	_, err = NewInputs(nil, nil)
	assert.ErrorIs(t, err, shield.ErrNoInputs)

	b := New(prover.Mock{})

	p := valid()
	p.Amount = 2 * consensus.Coin
	_, err = b.Start(p, nil)
	var balance *shield.InsufficientBalanceError
	require.ErrorAs(t, err, &balance)
	assert.Equal(t, consensus.Coin, balance.Available)

	p = valid()
	p.SpendingKey = nil
	_, err = b.Start(p, nil)
	assert.ErrorIs(t, err, shield.ErrNoSpendingKey)

	p = valid()
	p.To = "yNotAnAddress"
	_, err = b.Start(p, nil)
	var decode *shield.DecodeError
	require.ErrorAs(t, err, &decode)
	assert.Equal(t, shield.ErrInvalidAddress, decode.Code)

	p = valid()
	p.ChangeAddress = "ptestsapling1invalid"
	_, err = b.Start(p, nil)
	require.ErrorAs(t, err, &decode)
	assert.Equal(t, shield.ErrInvalidAddress, decode.Code)

	for _, amount := range []uint64{0, consensus.MaxMoney + 1, ^uint64(0) - 1_000} {
		p = valid()
		p.Amount = amount
		_, err = b.Start(p, nil)
		var perr *shield.ProverError
		require.ErrorAs(t, err, &perr, "amount %d", amount)
		assert.Equal(t, shield.ErrInvalidRequest, perr.Code)
	}
}

func TestBuildRejectsDivergingAnchors(t *testing.T) {
	acc := newAccount(t, 0)
	a := fixtureState(t)
	b := scanner.NewScanState(merkle.NewCommitmentTree(), 0)
	first := acc.receive(t, a, consensus.Coin/10, 300)
	second := acc.receive(t, b, consensus.Coin, 300)

	_, err := New(prover.Mock{}).Start(&Params{
		Inputs:        NoteInputs{first, second},
		SpendingKey:   acc.esk,
		To:            fixtures.TransparentAddress,
		ChangeAddress: fixtures.ShieldedAddress,
		Amount:        consensus.Coin / 2,
		Height:        317,
		Network:       net,
	}, nil)
	var mismatch *shield.AnchorMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Index)
	assert.Equal(t, a.Tree.Root().Hex(), mismatch.Expected)
	assert.Equal(t, b.Tree.Root().Hex(), mismatch.Got)
}

// mutatingProver advances every witness it is handed, the way a careless
// prover appending to its input would.
type mutatingProver struct {
	req *prover.Request
}

func (p *mutatingProver) Build(req *prover.Request, report func(prover.Progress)) (*crypto.Transaction, error) {
	tx, err := prover.Mock{}.Build(req, report)
	p.req = req
	for _, s := range req.Spends {
		if err := s.Witness.Append(merkle.DefaultHasher.EmptyLeaf()); err != nil {
			return nil, err
		}
	}
	return tx, err
}

func TestBuildDoesNotShareWitnesses(t *testing.T) {
	acc := newAccount(t, 0)
	state := fixtureState(t)
	acc.receive(t, state, consensus.Coin, 300)
	before := state.Notes[0].Witness.Hex()

	mp := &mutatingProver{}
	_, err := New(mp).Build(context.Background(), &Params{
		Inputs:        NoteInputs(state.Notes),
		SpendingKey:   acc.esk,
		To:            fixtures.TransparentAddress,
		ChangeAddress: fixtures.ShieldedAddress,
		Amount:        consensus.Coin / 2,
		Height:        317,
		Network:       net,
	}, nil)
	require.NoError(t, err)

	require.Len(t, mp.req.Spends, 1)
	assert.NotSame(t, state.Notes[0].Witness, mp.req.Spends[0].Witness)
	assert.NotEqual(t, before, mp.req.Spends[0].Witness.Hex())
	assert.Equal(t, before, state.Notes[0].Witness.Hex())
}

// gatedProver blocks in Build until release is closed.
type gatedProver struct {
	release chan struct{}
	err     error
}

func (p *gatedProver) Build(req *prover.Request, report func(prover.Progress)) (*crypto.Transaction, error) {
	<-p.release
	if p.err != nil {
		return nil, p.err
	}
	return prover.Mock{}.Build(req, report)
}

func TestJobOutlivesCancelledWait(t *testing.T) {
	acc := newAccount(t, 0)
	state := fixtureState(t)
	acc.receive(t, state, consensus.Coin, 300)
	params := &Params{
		Inputs:        NoteInputs(state.Notes),
		SpendingKey:   acc.esk,
		To:            fixtures.TransparentAddress,
		ChangeAddress: fixtures.ShieldedAddress,
		Amount:        consensus.Coin / 2,
		Height:        317,
		Network:       net,
	}

	gate := &gatedProver{release: make(chan struct{})}
	tracker := &Tracker{}
	job, err := New(gate).Start(params, tracker)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = job.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0.0, tracker.Fraction())

	close(gate.release)
	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Nullifiers, 1)
	assert.Equal(t, 1.0, tracker.Fraction())

	tracker.Reset()
	assert.Equal(t, 0.0, tracker.Fraction())
}

func TestJobReportsProverError(t *testing.T) {
	acc := newAccount(t, 0)
	state := fixtureState(t)
	acc.receive(t, state, consensus.Coin, 300)

	boom := errors.New("boom")
	gate := &gatedProver{release: make(chan struct{}), err: boom}
	close(gate.release)
	_, err := New(gate).Build(context.Background(), &Params{
		Inputs:        NoteInputs(state.Notes),
		SpendingKey:   acc.esk,
		To:            fixtures.TransparentAddress,
		ChangeAddress: fixtures.ShieldedAddress,
		Amount:        consensus.Coin / 2,
		Height:        317,
		Network:       net,
	}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentBuildsShareProver(t *testing.T) {
	acc := newAccount(t, 0)
	state := fixtureState(t)
	acc.receive(t, state, consensus.Coin, 300)
	b := New(prover.Mock{})

	var wg sync.WaitGroup
	results := make([]*Result, 4)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Build(context.Background(), &Params{
				Inputs:        NoteInputs(state.Notes),
				SpendingKey:   acc.esk,
				To:            fixtures.TransparentAddress,
				ChangeAddress: fixtures.ShieldedAddress,
				Amount:        consensus.Coin / 2,
				Height:        317,
				Network:       net,
			}, nil)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, results[0].Nullifiers, res.Nullifiers)
	}
}
