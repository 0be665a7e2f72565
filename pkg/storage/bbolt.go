package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BboltBackend persists buckets in a single bbolt file.
type BboltBackend struct {
	db *bolt.DB
}

// NewBboltBackend opens or creates the database at path, creating parent
// directories as needed.
func NewBboltBackend(path string) (*BboltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt database %s: %w", path, err)
	}

	return &BboltBackend{db: db}, nil
}

// OpenBboltReadOnly opens an existing database without taking the write lock.
func OpenBboltReadOnly(path string) (*BboltBackend, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open bbolt database: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open bbolt database %s: %w", path, err)
	}

	return &BboltBackend{db: db}, nil
}

func (b *BboltBackend) Update(fn func(tx Tx) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

func (b *BboltBackend) View(fn func(tx Tx) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

func (b *BboltBackend) Close() error {
	return b.db.Close()
}

// Path returns the database file path.
func (b *BboltBackend) Path() string {
	return b.db.Path()
}

type boltTx struct {
	tx *bolt.Tx
}

func (t boltTx) Bucket(name []byte) Bucket {
	b := t.tx.Bucket(name)
	if b == nil {
		return nil
	}
	return boltBucket{b: b}
}

func (t boltTx) CreateBucket(name []byte) (Bucket, error) {
	if !t.tx.Writable() {
		return nil, ErrReadOnly
	}
	b, err := t.tx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, err
	}
	return boltBucket{b: b}, nil
}

func (t boltTx) DeleteBucket(name []byte) error {
	if !t.tx.Writable() {
		return ErrReadOnly
	}
	if t.tx.Bucket(name) == nil {
		return nil
	}
	return t.tx.DeleteBucket(name)
}

func (t boltTx) Writable() bool {
	return t.tx.Writable()
}

type boltBucket struct {
	b *bolt.Bucket
}

func (b boltBucket) Put(key, value []byte) error {
	if !b.b.Writable() {
		return ErrReadOnly
	}
	return b.b.Put(key, value)
}

// Get copies the value out because bbolt memory is only valid for the
// lifetime of the transaction.
func (b boltBucket) Get(key []byte) []byte {
	v := b.b.Get(key)
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (b boltBucket) ForEach(fn func(k, v []byte) error) error {
	return b.b.ForEach(fn)
}

func (b boltBucket) Len() int {
	return b.b.Stats().KeyN
}
