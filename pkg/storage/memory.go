package storage

import (
	"maps"
	"slices"
	"sync"
)

type memBucket map[string][]byte

// MemoryBackend keeps buckets in process memory. Updates run against a
// copy of the state that replaces the original only on success.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]memBucket
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]memBucket)}
}

func (m *MemoryBackend) Update(fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	shadow := make(map[string]memBucket, len(m.buckets))
	for name, b := range m.buckets {
		shadow[name] = maps.Clone(b)
	}

	if err := fn(&memTx{buckets: shadow, writable: true}); err != nil {
		return err
	}
	m.buckets = shadow
	return nil
}

func (m *MemoryBackend) View(fn func(tx Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memTx{buckets: m.buckets})
}

func (m *MemoryBackend) Close() error {
	return nil
}

type memTx struct {
	buckets  map[string]memBucket
	writable bool
}

func (t *memTx) Bucket(name []byte) Bucket {
	b, ok := t.buckets[string(name)]
	if !ok {
		return nil
	}
	return &memBucketView{b: b, writable: t.writable}
}

func (t *memTx) CreateBucket(name []byte) (Bucket, error) {
	if !t.writable {
		return nil, ErrReadOnly
	}
	b, ok := t.buckets[string(name)]
	if !ok {
		b = make(memBucket)
		t.buckets[string(name)] = b
	}
	return &memBucketView{b: b, writable: true}, nil
}

func (t *memTx) DeleteBucket(name []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	delete(t.buckets, string(name))
	return nil
}

func (t *memTx) Writable() bool {
	return t.writable
}

type memBucketView struct {
	b        memBucket
	writable bool
}

func (v *memBucketView) Put(key, value []byte) error {
	if !v.writable {
		return ErrReadOnly
	}
	v.b[string(key)] = slices.Clone(value)
	return nil
}

func (v *memBucketView) Get(key []byte) []byte {
	value, ok := v.b[string(key)]
	if !ok {
		return nil
	}
	return slices.Clone(value)
}

func (v *memBucketView) ForEach(fn func(k, val []byte) error) error {
	for _, k := range slices.Sorted(maps.Keys(v.b)) {
		if err := fn([]byte(k), v.b[k]); err != nil {
			return err
		}
	}
	return nil
}

func (v *memBucketView) Len() int {
	return len(v.b)
}
