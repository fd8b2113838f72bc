// Package store persists wallet snapshots and the raw transactions the
// wallet built but has not finalized, in a LevelDB database.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned when a key is absent.
var ErrNotFound = errors.New("not found")

const (
	walletPrefix = "wallet_"
	txPrefix     = "tx_"
)

// Store is a LevelDB key-value store. It is safe for concurrent use.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates the store at path. An empty path opens an in-memory
// store.
func Open(path string) (*Store, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutWallet stores the snapshot of the named wallet.
func (s *Store) PutWallet(name string, snapshot []byte) error {
	return s.db.Put(walletKey(name), snapshot, nil)
}

// Wallet returns the snapshot of the named wallet.
func (s *Store) Wallet(name string) ([]byte, error) {
	data, err := s.db.Get(walletKey(name), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("wallet %q: %w", name, ErrNotFound)
	}
	return data, err
}

// PutTransaction records a built transaction of the named wallet together
// with the wallet snapshot taken after building it. Both are written in one
// batch.
func (s *Store) PutTransaction(name, txid, txHex string, snapshot []byte) error {
	batch := new(leveldb.Batch)
	batch.Put(txKey(name, txid), []byte(txHex))
	batch.Put(walletKey(name), snapshot)
	return s.db.Write(batch, nil)
}

// Transaction returns the hex of a recorded transaction.
func (s *Store) Transaction(name, txid string) (string, error) {
	data, err := s.db.Get(txKey(name, txid), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", fmt.Errorf("transaction %s: %w", txid, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeleteTransaction forgets a recorded transaction.
func (s *Store) DeleteTransaction(name, txid string) error {
	return s.db.Delete(txKey(name, txid), nil)
}

// Transactions lists the recorded transactions of the named wallet by txid.
func (s *Store) Transactions(name string) (map[string]string, error) {
	prefix := txKey(name, "")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	out := make(map[string]string)
	for iter.Next() {
		txid := strings.TrimPrefix(string(iter.Key()), string(prefix))
		out[txid] = string(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func walletKey(name string) []byte {
	return []byte(walletPrefix + name)
}

func txKey(name, txid string) []byte {
	return []byte(txPrefix + name + "_" + txid)
}
