package scanner

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/internal/fixtures"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

type wallet struct {
	fvk  *sapling.FullViewingKey
	key  *FullViewingKey
	addr sapling.PaymentAddress
}

func newWallet(t *testing.T, account uint32) *wallet {
	t.Helper()
	sk, err := sapling.DeriveSpendingKey(bytes.Repeat([]byte{7}, 32), consensus.TestNet.CoinType, account)
	require.NoError(t, err)
	fvk, err := sk.FullViewingKey()
	require.NoError(t, err)
	key, err := NewFullViewingKey(fvk)
	require.NoError(t, err)
	_, addr, err := fvk.DefaultAddress()
	require.NoError(t, err)
	return &wallet{fvk: fvk, key: key, addr: addr}
}

func output(t *testing.T, to sapling.PaymentAddress, value uint64, memo string) crypto.OutputDescription {
	t.Helper()
	note, err := sapling.NewNote(to, value, false)
	require.NoError(t, err)
	m, err := sapling.MemoFromText(memo)
	require.NoError(t, err)
	ne, err := sapling.NewNoteEncryption(nil, note, m)
	require.NoError(t, err)

	out := crypto.OutputDescription{Cmu: note.Commitment(), EphemeralKey: ne.EphemeralKey()}
	out.EncCiphertext, err = ne.EncryptNote()
	require.NoError(t, err)
	return out
}

func rawTx(spends []crypto.SpendDescription, outputs ...crypto.OutputDescription) []byte {
	tx := &crypto.Transaction{
		Version: crypto.SaplingVersion,
		Sapling: &crypto.SaplingBundle{Spends: spends, Outputs: outputs},
	}
	return tx.Serialize()
}

func TestScanFixtureTransactionWithForeignKey(t *testing.T) {
	w := newWallet(t, 0)
	tree, err := merkle.TreeFromHex(fixtures.TreeHex)
	require.NoError(t, err)
	state := NewScanState(tree, 0)

	nfs, err := New(w.key, consensus.TestNet).ScanTransactionHex(state, fixtures.ScanTxHex, 1000)
	require.NoError(t, err)
	assert.Empty(t, nfs)
	assert.Empty(t, state.Notes)
	assert.Equal(t, uint64(9), state.Tree.Size())
}

func TestScanTransactionFindsOwnedOutputs(t *testing.T) {
	w := newWallet(t, 0)
	other := newWallet(t, 1)
	state := NewScanState(merkle.NewCommitmentTree(), 0)
	s := New(w.key, consensus.TestNet)

	nfs, err := s.ScanTransaction(state, rawTx(nil,
		output(t, other.addr, 1, ""),
		output(t, w.addr, 1_000_000_000, "hello"),
		output(t, other.addr, 2, ""),
	), 500)
	require.NoError(t, err)
	assert.Empty(t, nfs)
	require.Len(t, state.Notes, 1)

	note := state.Notes[0]
	assert.Equal(t, uint64(1_000_000_000), note.Note.Value)
	assert.Equal(t, w.addr, note.Note.Recipient)
	assert.Equal(t, uint64(1), note.Witness.Position())
	require.NotNil(t, note.Memo)
	assert.Equal(t, "hello", *note.Memo)

	// The witness absorbed the later unowned output.
	assert.Equal(t, state.Tree.Root(), note.Witness.Root())

	nf := sapling.DeriveNullifier(w.fvk.NullifierKey(), note.Note, 1)
	assert.Equal(t, nf.String(), note.Nullifier)
}

func TestScanTransactionRecordsNullifiers(t *testing.T) {
	w := newWallet(t, 0)
	state := NewScanState(merkle.NewCommitmentTree(), 0)

	spends := []crypto.SpendDescription{{Nullifier: [32]byte{1}}, {Nullifier: [32]byte{2}}}
	nfs, err := New(w.key, consensus.TestNet).ScanTransaction(state, rawTx(spends), 10)
	require.NoError(t, err)
	assert.Equal(t, []sapling.Nullifier{{1}, {2}}, nfs)
	assert.Equal(t, nfs, state.Nullifiers)
}

func TestScanTransactionIsAtomic(t *testing.T) {
	w := newWallet(t, 0)

	state := NewScanState(merkle.NewCommitmentTree(), 0)
	s := New(w.key, consensus.TestNet)
	_, err := s.ScanTransaction(state, rawTx(nil, output(t, w.addr, 5, "")), 1)
	require.NoError(t, err)

	before := state.Clone()
	raw := rawTx(nil, output(t, w.addr, 7, ""))
	_, err = s.ScanTransaction(state, raw[:len(raw)-1], 2)
	var derr *shield.DecodeError
	require.True(t, errors.As(err, &derr))

	assert.True(t, before.Tree.Equal(state.Tree))
	require.Len(t, state.Notes, 1)
	assert.True(t, before.Notes[0].Witness.Equal(state.Notes[0].Witness))
}

func TestScanBlocks(t *testing.T) {
	w := newWallet(t, 0)
	other := newWallet(t, 1)
	state := NewScanState(merkle.NewCommitmentTree(), 100)
	s := New(w.key, consensus.TestNet)

	block1 := Block{Height: 101, Txs: []string{
		hex.EncodeToString(rawTx(nil, output(t, w.addr, 10, ""), output(t, w.addr, 20, ""))),
	}}
	res, err := s.ScanBlocks(state, []Block{block1})
	require.NoError(t, err)
	require.Len(t, res.NewNotes, 2)
	assert.Equal(t, uint64(30), state.Balance())
	assert.Equal(t, uint32(101), state.LastBlock)

	spent := state.Notes[0]
	nf, err := sapling.NullifierFromHex(spent.Nullifier)
	require.NoError(t, err)

	block2 := Block{Height: 102, Txs: []string{
		hex.EncodeToString(rawTx([]crypto.SpendDescription{{Nullifier: nf}}, output(t, other.addr, 9, ""))),
	}}
	block3 := Block{Height: 105, Txs: []string{
		hex.EncodeToString(rawTx(nil, output(t, w.addr, 40, ""))),
	}}
	res, err = s.ScanBlocks(state, []Block{block2, block3})
	require.NoError(t, err)
	assert.Equal(t, []sapling.Nullifier{nf}, res.Nullifiers)
	require.Len(t, res.NewNotes, 1)
	assert.Equal(t, uint64(40), res.NewNotes[0].Note.Value)

	require.Len(t, state.Notes, 2)
	assert.Equal(t, uint64(60), state.Balance())
	for _, n := range state.Notes {
		assert.Equal(t, state.Tree.Root(), n.Witness.Root())
	}
	assert.Equal(t, uint64(4), state.Tree.Size())
}

func TestScanBlocksRejectsOutOfOrder(t *testing.T) {
	w := newWallet(t, 0)
	state := NewScanState(merkle.NewCommitmentTree(), 100)
	s := New(w.key, consensus.TestNet)

	tx := hex.EncodeToString(rawTx(nil, output(t, w.addr, 10, "")))
	_, err := s.ScanBlocks(state, []Block{{Height: 101, Txs: []string{tx}}, {Height: 101}})
	assert.ErrorIs(t, err, shield.ErrBlockOrder)
	assert.True(t, state.Tree.IsEmpty())
	assert.Empty(t, state.Notes)

	_, err = s.ScanBlocks(state, []Block{{Height: 100}})
	assert.ErrorIs(t, err, shield.ErrBlockOrder)
}

func TestRemoveSpentNotes(t *testing.T) {
	notes := []SpendableNote{{Nullifier: sapling.Nullifier{1}.String()}, {Nullifier: sapling.Nullifier{2}.String()}}
	left := RemoveSpentNotes(notes, []sapling.Nullifier{{2}, {3}})
	require.Len(t, left, 1)
	assert.Equal(t, sapling.Nullifier{1}.String(), left[0].Nullifier)
}

func TestScanStateJSONRoundTrip(t *testing.T) {
	w := newWallet(t, 0)
	state := NewScanState(merkle.NewCommitmentTree(), 0)
	_, err := New(w.key, consensus.TestNet).ScanTransaction(state, rawTx(nil, output(t, w.addr, 5, "memo")), 1)
	require.NoError(t, err)

	raw, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded ScanState
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, state.Tree.Equal(decoded.Tree))
	require.Len(t, decoded.Notes, 1)
	assert.Equal(t, state.Notes[0].Note, decoded.Notes[0].Note)
	assert.True(t, state.Notes[0].Witness.Equal(decoded.Notes[0].Witness))
	assert.Equal(t, state.Notes[0].Memo, decoded.Notes[0].Memo)
}
