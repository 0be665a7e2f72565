package rowreduce

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// ReduceStrategy selects the shape of the final fold. Every strategy yields
// the same table because Merge is associative and commutative over exact
// integers.
type ReduceStrategy string

const (
	ReduceSequential ReduceStrategy = "sequential"
	ReduceTree       ReduceStrategy = "tree"
	ReduceSharded    ReduceStrategy = "sharded"
)

// ReduceOptions configures Reduce.
type ReduceOptions struct {
	Strategy ReduceStrategy
	// Shards is the number of key partitions for ReduceSharded.
	Shards int
	// Parallelism bounds concurrent merges for tree and sharded reduction.
	Parallelism int
}

// Reduce folds per-chunk tables into one. Inputs are never modified; the
// result is always a fresh table.
func Reduce(ctx context.Context, tables []*Table, opts ReduceOptions) (*Table, error) {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	switch opts.Strategy {
	case ReduceSequential, "":
		return reduceSequential(ctx, tables)
	case ReduceTree:
		return reduceTree(ctx, tables, parallelism)
	case ReduceSharded:
		shards := opts.Shards
		if shards <= 0 {
			shards = parallelism
		}
		return reduceSharded(ctx, tables, shards, parallelism)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReduceStrategy, opts.Strategy)
	}
}

func reduceSequential(ctx context.Context, tables []*Table) (*Table, error) {
	out := NewTable(largest(tables))
	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := out.MergeTable(t); err != nil {
			return nil, fmt.Errorf("merge table %d: %w", i, err)
		}
	}
	return out, nil
}

// reduceTree merges adjacent pairs level by level. The first level clones
// its left operand so caller tables stay untouched; later levels own their
// inputs and merge in place.
func reduceTree(ctx context.Context, tables []*Table, parallelism int) (*Table, error) {
	if len(tables) == 0 {
		return NewTable(0), nil
	}

	level := tables
	owned := false
	for len(level) > 1 {
		next := make([]*Table, (len(level)+1)/2)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallelism)
		for i := 0; i < len(level); i += 2 {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				dst := level[i]
				if !owned {
					dst = dst.Clone()
				}
				if i+1 < len(level) {
					if err := dst.MergeTable(level[i+1]); err != nil {
						return err
					}
				}
				next[i/2] = dst
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		level = next
		owned = true
	}

	if !owned {
		return level[0].Clone(), nil
	}
	return level[0], nil
}

// reduceSharded partitions keys by hash so each shard can be folded without
// touching any other shard's keys, then concatenates the disjoint results.
func reduceSharded(ctx context.Context, tables []*Table, shards, parallelism int) (*Table, error) {
	parts := make([]*Table, shards)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for s := range shards {
		g.Go(func() error {
			part := NewTable(0)
			for _, t := range tables {
				if err := gctx.Err(); err != nil {
					return err
				}
				for key, agg := range t.entries {
					if ShardOf(key, shards) != s {
						continue
					}
					if err := part.Merge(key, *agg); err != nil {
						return err
					}
				}
			}
			parts[s] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := NewTable(total)
	for _, p := range parts {
		for key, agg := range p.entries {
			out.entries[key] = agg
		}
	}
	return out, nil
}

// ShardOf assigns key to one of n shards.
func ShardOf(key string, n int) int {
	return int(xxhash.Sum64String(key) % uint64(n))
}

func largest(tables []*Table) int {
	n := 0
	for _, t := range tables {
		n = max(n, t.Len())
	}
	return n
}
