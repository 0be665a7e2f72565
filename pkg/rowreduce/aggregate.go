package rowreduce

import (
	"fmt"
	"iter"
	"maps"
	"math"
	"math/bits"
	"slices"
)

// Aggregate holds the running statistics for one key. All values are
// measurements in tenths.
type Aggregate struct {
	Count uint64 `json:"count"`
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
	Sum   int64  `json:"sum"`
}

// Identity returns the neutral element of Merge.
func Identity() Aggregate {
	return Aggregate{Min: math.MaxInt64, Max: math.MinInt64}
}

// Singleton returns the aggregate of a single measurement.
func Singleton(v int64) Aggregate {
	return Aggregate{Count: 1, Min: v, Max: v, Sum: v}
}

// Merge combines two aggregates. It is associative and commutative, and
// Identity() is its neutral element. Sum or count overflow is reported as
// ErrOverflow instead of wrapping.
func (a Aggregate) Merge(b Aggregate) (Aggregate, error) {
	count, carry := bits.Add64(a.Count, b.Count, 0)
	if carry != 0 {
		return Aggregate{}, fmt.Errorf("count: %w", ErrOverflow)
	}

	sum, ok := addInt64(a.Sum, b.Sum)
	if !ok {
		return Aggregate{}, fmt.Errorf("sum: %w", ErrOverflow)
	}

	return Aggregate{
		Count: count,
		Min:   min(a.Min, b.Min),
		Max:   max(a.Max, b.Max),
		Sum:   sum,
	}, nil
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	return s, (s > a) == (b > 0)
}

// Table maps keys to aggregates. A Table is not safe for concurrent
// mutation; each worker owns its own.
type Table struct {
	entries map[string]*Aggregate
}

// NewTable creates an empty table sized for about hint keys.
func NewTable(hint int) *Table {
	return &Table{entries: make(map[string]*Aggregate, hint)}
}

// Add folds one measurement into the aggregate for key. The key bytes are
// copied only the first time the key is seen, so key may alias a reused
// buffer.
func (t *Table) Add(key []byte, v int64) error {
	if a, ok := t.entries[string(key)]; ok {
		merged, err := a.Merge(Singleton(v))
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		*a = merged
		return nil
	}

	s := Singleton(v)
	t.entries[string(key)] = &s
	return nil
}

// Merge folds a partial aggregate into the entry for key.
func (t *Table) Merge(key string, agg Aggregate) error {
	a, ok := t.entries[key]
	if !ok {
		cp := agg
		t.entries[key] = &cp
		return nil
	}

	merged, err := a.Merge(agg)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	*a = merged
	return nil
}

// MergeTable folds every entry of o into t. o is not modified.
func (t *Table) MergeTable(o *Table) error {
	for key, agg := range o.entries {
		if err := t.Merge(key, *agg); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the aggregate for key.
func (t *Table) Get(key string) (Aggregate, bool) {
	a, ok := t.entries[key]
	if !ok {
		return Aggregate{}, false
	}
	return *a, true
}

func (t *Table) Len() int {
	return len(t.entries)
}

// All iterates over the entries in unspecified order.
func (t *Table) All() iter.Seq2[string, Aggregate] {
	return func(yield func(string, Aggregate) bool) {
		for key, agg := range t.entries {
			if !yield(key, *agg) {
				return
			}
		}
	}
}

// Keys returns the keys in bytewise order.
func (t *Table) Keys() []string {
	return slices.Sorted(maps.Keys(t.entries))
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := NewTable(len(t.entries))
	for key, agg := range t.entries {
		cp := *agg
		out.entries[key] = &cp
	}
	return out
}

// Equal reports whether both tables hold exactly the same entries.
func (t *Table) Equal(o *Table) bool {
	if len(t.entries) != len(o.entries) {
		return false
	}
	for key, agg := range t.entries {
		other, ok := o.entries[key]
		if !ok || *other != *agg {
			return false
		}
	}
	return true
}
