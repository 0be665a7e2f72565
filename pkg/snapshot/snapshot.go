// Package snapshot persists the exact aggregates of a run so they can be
// shown or merged later without rereading the input.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"pkg.jsn.cam/rowreduce/pkg/rowreduce"
	"pkg.jsn.cam/rowreduce/pkg/storage"
)

// FormatVersion is written into every snapshot. Snapshots load only when
// their major version matches.
const FormatVersion = "v1.0.0"

var (
	ErrNotSnapshot  = errors.New("not a snapshot")
	ErrIncompatible = errors.New("incompatible snapshot version")
)

var (
	metaBucket      = []byte("meta")
	aggregateBucket = []byte("aggregates")
	metaKey         = []byte("snapshot")
)

// Meta describes where a snapshot came from.
type Meta struct {
	ID            string    `json:"id"`
	FormatVersion string    `json:"format_version"`
	RunID         string    `json:"run_id,omitempty"`
	Sources       []string  `json:"sources"`
	Parents       []string  `json:"parents,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Records       int64     `json:"records"`
	Malformed     int64     `json:"malformed"`
	Bytes         int64     `json:"bytes"`
	Keys          int       `json:"keys"`
}

// Snapshot is a table of aggregates plus its metadata.
type Snapshot struct {
	Meta  Meta
	Table *rowreduce.Table
}

// FromReport captures the outcome of a run.
func FromReport(r *rowreduce.Report) *Snapshot {
	return &Snapshot{
		Meta: Meta{
			ID:            uuid.NewString(),
			FormatVersion: FormatVersion,
			RunID:         r.RunID,
			Sources:       []string{r.Path},
			CreatedAt:     time.Now().UTC(),
			Records:       r.Records,
			Malformed:     r.Malformed,
			Bytes:         r.Bytes,
			Keys:          r.Table.Len(),
		},
		Table: r.Table,
	}
}

// Results formats the snapshot table.
func (s *Snapshot) Results() []rowreduce.Result {
	return rowreduce.Format(s.Table)
}

// IsCompatible reports whether a snapshot written with version can be read.
func IsCompatible(version string) (bool, error) {
	if !semver.IsValid(version) {
		return false, fmt.Errorf("invalid snapshot version: %q", version)
	}
	return semver.Major(version) == semver.Major(FormatVersion), nil
}

// Save replaces whatever snapshot b holds with s in a single transaction.
func Save(b storage.Backend, s *Snapshot) error {
	meta := s.Meta
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.FormatVersion == "" {
		meta.FormatVersion = FormatVersion
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	meta.Keys = s.Table.Len()

	err := b.Update(func(tx storage.Tx) error {
		if err := tx.DeleteBucket(aggregateBucket); err != nil {
			return err
		}
		aggs, err := tx.CreateBucket(aggregateBucket)
		if err != nil {
			return err
		}
		for key, agg := range s.Table.All() {
			if err := storage.PutJSON(aggs, aggregateKey(key), agg); err != nil {
				return err
			}
		}

		metas, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		return storage.PutJSON(metas, metaKey, meta)
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	s.Meta = meta
	return nil
}

// Load reads the snapshot stored in b.
func Load(b storage.Backend) (*Snapshot, error) {
	var s Snapshot

	err := b.View(func(tx storage.Tx) error {
		metas := tx.Bucket(metaBucket)
		aggs := tx.Bucket(aggregateBucket)
		if metas == nil || aggs == nil {
			return ErrNotSnapshot
		}

		ok, err := storage.GetJSON(metas, metaKey, &s.Meta)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotSnapshot
		}

		compatible, err := IsCompatible(s.Meta.FormatVersion)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIncompatible, err)
		}
		if !compatible {
			return fmt.Errorf("%w: %s, need %s.x.x", ErrIncompatible, s.Meta.FormatVersion, semver.Major(FormatVersion))
		}

		s.Table = rowreduce.NewTable(aggs.Len())
		return aggs.ForEach(func(k, v []byte) error {
			if len(k) == 0 || k[0] != 'k' {
				return fmt.Errorf("%w: unexpected key %q", ErrNotSnapshot, k)
			}
			var agg rowreduce.Aggregate
			if err := json.Unmarshal(v, &agg); err != nil {
				return fmt.Errorf("decode %q: %w", k[1:], err)
			}
			return s.Table.Merge(string(k[1:]), agg)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return &s, nil
}

// Merge combines snapshots into a new one whose table is the reduction of
// all inputs. Inputs are not modified.
func Merge(ctx context.Context, snaps []*Snapshot, opts rowreduce.ReduceOptions) (*Snapshot, error) {
	tables := make([]*rowreduce.Table, len(snaps))
	meta := Meta{
		ID:            uuid.NewString(),
		FormatVersion: FormatVersion,
		CreatedAt:     time.Now().UTC(),
	}

	for i, s := range snaps {
		tables[i] = s.Table
		meta.Sources = append(meta.Sources, s.Meta.Sources...)
		meta.Parents = append(meta.Parents, s.Meta.ID)
		meta.Records += s.Meta.Records
		meta.Malformed += s.Meta.Malformed
		meta.Bytes += s.Meta.Bytes
	}

	table, err := rowreduce.Reduce(ctx, tables, opts)
	if err != nil {
		return nil, fmt.Errorf("merge snapshots: %w", err)
	}
	meta.Keys = table.Len()

	return &Snapshot{Meta: meta, Table: table}, nil
}

// String is a one-line summary used by the CLI.
func (m Meta) String() string {
	return fmt.Sprintf("snapshot %s (format %s, %d keys, %d records from %s)",
		m.ID, m.FormatVersion, m.Keys, m.Records, strings.Join(m.Sources, ", "))
}

// aggregateKey prefixes keys so the empty key is storable.
func aggregateKey(key string) []byte {
	out := make([]byte, 0, len(key)+1)
	out = append(out, 'k')
	return append(out, key...)
}
