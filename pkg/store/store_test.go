package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletSnapshots(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Wallet("main")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutWallet("main", []byte(`{"version":1}`)))
	got, err := s.Wallet("main")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(got))
}

func TestTransactionsAreScopedByWallet(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutTransaction("a", "01", "aa", []byte("snap-1")))
	require.NoError(t, s.PutTransaction("a", "02", "bb", []byte("snap-2")))
	require.NoError(t, s.PutTransaction("b", "03", "cc", []byte("other")))

	txs, err := s.Transactions("a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"01": "aa", "02": "bb"}, txs)

	snap, err := s.Wallet("a")
	require.NoError(t, err)
	assert.Equal(t, "snap-2", string(snap))

	require.NoError(t, s.DeleteTransaction("a", "01"))
	_, err = s.Transaction("a", "01")
	assert.ErrorIs(t, err, ErrNotFound)
	hex, err := s.Transaction("a", "02")
	require.NoError(t, err)
	assert.Equal(t, "bb", hex)
}

func TestReopenOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.PutWallet("main", []byte("data")))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Wallet("main")
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}
