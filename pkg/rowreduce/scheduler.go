package rowreduce

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Strategy selects how the Scheduler maps chunks onto goroutines. It has no
// effect on results.
type Strategy string

const (
	// StrategyPooled runs a fixed set of workers that pull chunks from a
	// queue and reuse one buffer each.
	StrategyPooled Strategy = "pooled"
	// StrategyPerTask starts one goroutine per chunk, bounded by the
	// parallelism limit.
	StrategyPerTask Strategy = "per-task"
)

// tableHint presizes per-chunk tables.
const tableHint = 512

// ChunkResult is the partial output of one unit of work.
type ChunkResult struct {
	Range     ByteRange
	Table     *Table
	Records   int64
	Malformed int64
}

// ProgressEvent is passed to a ProgressFunc after each completed chunk.
type ProgressEvent struct {
	RunID       string
	ChunksDone  int
	ChunksTotal int
	BytesDone   int64
	BytesTotal  int64
}

// ProgressFunc observes scheduler progress. Calls are serialized.
type ProgressFunc func(ProgressEvent)

// Scheduler dispatches byte ranges to parallel workers and collects their
// tables. The first failure cancels the run.
type Scheduler struct {
	runID       string
	parallelism int
	strategy    Strategy
	parse       ParseOptions
	progress    ProgressFunc
	logger      *slog.Logger

	mu         sync.Mutex
	done       int
	bytesDone  int64
	total      int
	bytesTotal int64
}

// NewScheduler creates a scheduler from cfg. cfg must already be validated.
func NewScheduler(cfg Config, runID string) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		runID:       runID,
		parallelism: cfg.MaxParallelism,
		strategy:    cfg.Strategy,
		parse:       cfg.ParseOptions(),
		progress:    cfg.Progress,
		logger:      logger.With(slog.String("component", "scheduler")),
	}
}

// Run processes every range of src and returns one result per range, in
// range order. On failure it returns the first error and no results.
func (s *Scheduler) Run(ctx context.Context, src Source, ranges []ByteRange) ([]*ChunkResult, error) {
	s.mu.Lock()
	s.done, s.bytesDone = 0, 0
	s.total = len(ranges)
	s.bytesTotal = 0
	for _, r := range ranges {
		s.bytesTotal += r.Length
	}
	s.mu.Unlock()

	results := make([]*ChunkResult, len(ranges))
	if len(ranges) == 0 {
		return results, nil
	}

	var err error
	switch s.strategy {
	case StrategyPooled, "":
		err = s.runPooled(ctx, src, ranges, results)
	case StrategyPerTask:
		err = s.runPerTask(ctx, src, ranges, results)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownStrategy, s.strategy)
	}
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (s *Scheduler) runPooled(ctx context.Context, src Source, ranges []ByteRange, results []*ChunkResult) error {
	g, gctx := errgroup.WithContext(ctx)

	work := make(chan int)
	g.Go(func() error {
		defer close(work)
		for i := range ranges {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case work <- i:
			}
		}
		return nil
	})

	workers := min(s.parallelism, len(ranges))
	for range workers {
		g.Go(func() error {
			reader := NewChunkReader(src)
			for i := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := s.process(reader, ranges[i])
				if err != nil {
					return err
				}
				results[i] = res
				s.report(ranges[i])
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Scheduler) runPerTask(ctx context.Context, src Source, ranges []ByteRange, results []*ChunkResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, r := range ranges {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.process(NewChunkReader(src), r)
			if err != nil {
				return err
			}
			results[i] = res
			s.report(r)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// The loop may have stopped early on a cancelled parent without any
	// unit observing it.
	return ctx.Err()
}

func (s *Scheduler) process(reader *ChunkReader, r ByteRange) (*ChunkResult, error) {
	res, err := ProcessChunk(reader, r, s.parse)
	if err != nil {
		s.logger.Debug("chunk failed",
			slog.String("run_id", s.runID),
			slog.Int("chunk", r.Index),
			slog.Any("error", err))
		return nil, err
	}

	s.logger.Debug("chunk processed",
		slog.String("run_id", s.runID),
		slog.Int("chunk", r.Index),
		slog.Int64("records", res.Records),
		slog.Int("keys", res.Table.Len()))
	return res, nil
}

func (s *Scheduler) report(r ByteRange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done++
	s.bytesDone += r.Length
	if s.progress == nil {
		return
	}
	s.progress(ProgressEvent{
		RunID:       s.runID,
		ChunksDone:  s.done,
		ChunksTotal: s.total,
		BytesDone:   s.bytesDone,
		BytesTotal:  s.bytesTotal,
	})
}

// ProcessChunk reads r, parses it, and aggregates its records into a new
// table.
func ProcessChunk(reader *ChunkReader, r ByteRange, opts ParseOptions) (*ChunkResult, error) {
	buf, err := reader.Read(r)
	if err != nil {
		return nil, err
	}

	table := NewTable(tableHint)
	var records int64
	opts.BaseOffset = r.Offset

	skipped, err := Parse(buf, r.Final, opts, func(key []byte, v int64) error {
		records++
		return table.Add(key, v)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r, err)
	}

	return &ChunkResult{
		Range:     r,
		Table:     table,
		Records:   records,
		Malformed: skipped,
	}, nil
}
