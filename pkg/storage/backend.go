// Package storage provides the bucketed key/value stores that result
// snapshots are written to.
package storage

import "errors"

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrReadOnly       = errors.New("transaction is read-only")
)

// Backend is a transactional store of named buckets. An Update either
// commits every write made by fn or, when fn returns an error, none of them.
type Backend interface {
	Update(fn func(tx Tx) error) error
	View(fn func(tx Tx) error) error
	Close() error
}

// Tx is a transaction. Buckets obtained from it are only valid inside the
// callback that received it.
type Tx interface {
	// Bucket returns nil when the bucket does not exist.
	Bucket(name []byte) Bucket
	// CreateBucket returns the existing bucket when there already is one.
	CreateBucket(name []byte) (Bucket, error)
	// DeleteBucket is a no-op for a missing bucket.
	DeleteBucket(name []byte) error
	Writable() bool
}

// Bucket holds keys in byte order.
type Bucket interface {
	Put(key, value []byte) error
	// Get returns a copy of the value, or nil when key is absent.
	Get(key []byte) []byte
	// ForEach visits entries in ascending key order.
	ForEach(fn func(k, v []byte) error) error
	Len() int
}
