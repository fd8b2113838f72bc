package prover

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/selection"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

type testKeys struct {
	esk  *sapling.ExpandedSpendingKey
	fvk  *sapling.FullViewingKey
	ivk  *sapling.IncomingViewingKey
	addr sapling.PaymentAddress
}

func newTestKeys(t *testing.T, account uint32) *testKeys {
	t.Helper()
	sk, err := sapling.DeriveSpendingKey(bytes.Repeat([]byte{9}, 32), consensus.TestNet.CoinType, account)
	require.NoError(t, err)
	esk, err := sk.Expand()
	require.NoError(t, err)
	fvk := esk.FullViewingKey()
	ivk, err := fvk.IncomingViewingKey()
	require.NoError(t, err)
	_, addr, err := fvk.DefaultAddress()
	require.NoError(t, err)
	return &testKeys{esk: esk, fvk: fvk, ivk: ivk, addr: addr}
}

// ownedSpend appends a note of value for k to a fresh tree, followed by a few
// unrelated leaves, and returns it with its current witness.
func ownedSpend(t *testing.T, k *testKeys, value uint64) Spend {
	t.Helper()
	tree := merkle.NewCommitmentTree()
	require.NoError(t, tree.Append(merkle.Node{0xaa}))

	note, err := sapling.NewNote(k.addr, value, false)
	require.NoError(t, err)
	require.NoError(t, tree.Append(note.Commitment()))
	w := merkle.WitnessFromTree(tree)

	for i := byte(0); i < 3; i++ {
		leaf := merkle.Node{0xbb, i}
		require.NoError(t, tree.Append(leaf))
		require.NoError(t, w.Append(leaf))
	}
	require.Equal(t, tree.Root(), w.Root())
	return Spend{Note: note, Witness: w}
}

func shieldedRequest(t *testing.T, from, to *testKeys) *Request {
	t.Helper()
	spend := ownedSpend(t, from, 10*consensus.Coin)
	memo, err := sapling.MemoFromText("rent")
	require.NoError(t, err)
	return &Request{
		Network:     consensus.TestNet,
		Height:      1_200_000,
		Anchor:      spend.Witness.Root(),
		SpendingKey: from.esk,
		Ovk:         &from.esk.Ovk,
		Spends:      []Spend{spend},
		Outputs: []Output{
			{Address: to.addr, Value: 4 * consensus.Coin, Memo: memo},
			{Address: from.addr, Value: 6*consensus.Coin - 2_749_000},
		},
		Fee: 2_749_000,
	}
}

func TestMockBuildShielded(t *testing.T) {
	from, to := newTestKeys(t, 0), newTestKeys(t, 1)
	req := shieldedRequest(t, from, to)

	var progress []Progress
	tx, err := Mock{}.Build(req, func(p Progress) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, []Progress{{1, 3}, {2, 3}, {3, 3}}, progress)
	assert.Equal(t, crypto.SaplingVersion, tx.Version)
	assert.Empty(t, tx.Inputs)
	assert.Empty(t, tx.Outputs)
	require.NotNil(t, tx.Sapling)
	assert.Equal(t, int64(2_749_000), tx.Sapling.ValueBalance)

	require.Len(t, tx.Sapling.Spends, 1)
	spend := tx.Sapling.Spends[0]
	assert.Equal(t, [32]byte(req.Anchor), spend.Anchor)
	want := sapling.DeriveNullifier(from.fvk.NullifierKey(), req.Spends[0].Note, req.Spends[0].Witness.Position())
	assert.Equal(t, [32]byte(want), spend.Nullifier)

	sighash := crypto.SignatureHash(tx, crypto.SigHashInput{Index: crypto.NotAnInput}, crypto.SighashAll, consensus.SaplingBranchID)
	assert.True(t, sapling.VerifySpend(spend.Rk, sighash, spend.SpendAuthSig))
	assert.False(t, sapling.VerifySpend(from.fvk.Ak, sighash, spend.SpendAuthSig))
	assert.NotEqual(t, from.fvk.Ak, spend.Rk)

	outputCv := [][32]byte{tx.Sapling.Outputs[0].CV, tx.Sapling.Outputs[1].CV}
	assert.True(t, sapling.VerifyBinding([][32]byte{spend.CV}, outputCv, tx.Sapling.ValueBalance, sighash, tx.Sapling.BindingSig))

	require.Len(t, tx.Sapling.Outputs, 2)
	note, memo, ok := sapling.TryDecryptNote(to.ivk, &tx.Sapling.Outputs[0])
	require.True(t, ok)
	assert.Equal(t, 4*consensus.Coin, note.Value)
	text, _ := memo.Text()
	assert.Equal(t, "rent", text)

	_, _, ok = sapling.TryDecryptNote(to.ivk, &tx.Sapling.Outputs[1])
	assert.False(t, ok)
	change, _, ok := sapling.TryRecoverOutput(from.esk.Ovk, &tx.Sapling.Outputs[1])
	require.True(t, ok)
	assert.Equal(t, 6*consensus.Coin-2_749_000, change.Value)

	parsed, err := crypto.ParseTransaction(tx.Serialize())
	require.NoError(t, err)
	assert.Equal(t, tx.TxID(), parsed.TxID())
}

func TestMockBuildTransparentInput(t *testing.T) {
	to := newTestKeys(t, 1)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	script := address.TransparentFromPublicKey(key.PublicKey(), consensus.TestNet).Script()

	fee := selection.Fee(1, 0, 0, 2)
	req := &Request{
		Network: consensus.TestNet,
		Height:  1_200_000,
		TransparentInputs: []TransparentInput{{
			TxID: [32]byte{1, 2, 3}, Vout: 1, Value: consensus.Coin, Script: script, Key: key,
		}},
		Outputs: []Output{{Address: to.addr, Value: consensus.Coin - fee}},
		Fee:     fee,
	}
	tx, err := Mock{}.Build(req, nil)
	require.NoError(t, err)

	sighash0 := crypto.SignatureHash(tx, crypto.SigHashInput{Index: crypto.NotAnInput}, crypto.SighashAll, consensus.SaplingBranchID)
	assert.True(t, sapling.VerifyBinding(nil, [][32]byte{tx.Sapling.Outputs[0].CV}, tx.Sapling.ValueBalance, sighash0, tx.Sapling.BindingSig))

	require.Len(t, tx.Inputs, 1)
	assert.Equal(t, uint32(1), tx.Inputs[0].PrevoutIndex)
	assert.Equal(t, -int64(consensus.Coin-fee), tx.Sapling.ValueBalance)

	sigScript := tx.Inputs[0].ScriptSig
	sigLen := int(sigScript[0])
	sig := sigScript[1 : 1+sigLen]
	pub := sigScript[2+sigLen:]
	assert.Equal(t, byte(crypto.SighashAll), sig[len(sig)-1])
	compressed := key.PublicKey().SerializeCompressed()
	assert.Equal(t, compressed[:], pub)

	sighash := crypto.SignatureHash(tx, crypto.SigHashInput{Index: 0, ScriptCode: script, Amount: consensus.Coin},
		crypto.SighashAll, consensus.SaplingBranchID)
	assert.True(t, crypto.VerifySignature(key.PublicKey(), sighash, sig[:len(sig)-1]))
}

func TestBuildRejectsInvalidRequests(t *testing.T) {
	from, to := newTestKeys(t, 0), newTestKeys(t, 1)
	other, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(r *Request)
		code   string
	}{
		{"no inputs", func(r *Request) { r.Spends = nil }, shield.ErrInvalidRequest},
		{"no outputs", func(r *Request) { r.Outputs = nil }, shield.ErrInvalidRequest},
		{"no spending key", func(r *Request) { r.SpendingKey = nil }, shield.ErrInvalidRequest},
		{"unbalanced", func(r *Request) { r.Fee++ }, shield.ErrValueBalance},
		{"anchor mismatch", func(r *Request) { r.Anchor = merkle.Node{1} }, shield.ErrInvalidRequest},
		{"empty witness", func(r *Request) {
			r.Spends[0].Witness = merkle.WitnessFromTree(merkle.NewCommitmentTree())
		}, shield.ErrEmptyWitnessTree},
		{"wrong transparent key", func(r *Request) {
			script := address.TransparentFromPublicKey(other.PublicKey(), consensus.TestNet).Script()
			r.TransparentInputs = []TransparentInput{{Value: 1, Script: script, Key: key}}
			r.Fee++
		}, shield.ErrSigning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := shieldedRequest(t, from, to)
			tt.mutate(req)
			_, err := Mock{}.Build(req, nil)
			var perr *shield.ProverError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.code, perr.Code)
		})
	}
}

func TestProgressFraction(t *testing.T) {
	assert.Equal(t, 0.0, Progress{}.Fraction())
	assert.Equal(t, 0.5, Progress{Current: 1, Total: 2}.Fraction())
	assert.Equal(t, 1.0, Progress{Current: 3, Total: 3}.Fraction())
}

func TestMockBuildUsesZip212AfterActivation(t *testing.T) {
	from, to := newTestKeys(t, 0), newTestKeys(t, 1)
	req := shieldedRequest(t, from, to)
	net := *consensus.TestNet
	net.Zip212ActivationHeight = req.Height
	req.Network = &net

	tx, err := Mock{}.Build(req, nil)
	require.NoError(t, err)
	note, _, ok := sapling.TryDecryptNote(to.ivk, &tx.Sapling.Outputs[0])
	require.True(t, ok)
	assert.True(t, note.Zip212)

	req.Height--
	tx, err = Mock{}.Build(req, nil)
	require.NoError(t, err)
	note, _, ok = sapling.TryDecryptNote(to.ivk, &tx.Sapling.Outputs[0])
	require.True(t, ok)
	assert.False(t, note.Zip212)
}
