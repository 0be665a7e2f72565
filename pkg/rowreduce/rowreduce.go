// Package rowreduce computes per-key min/mean/max over very large
// "key;measurement" files by splitting them into line-aligned ranges,
// aggregating each range in parallel, and merging the partial tables.
package rowreduce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Report describes a completed run.
type Report struct {
	RunID       string
	Path        string
	Table       *Table
	Results     []Result
	Chunks      int
	Records     int64
	Malformed   int64
	Bytes       int64
	Parallelism int
	Elapsed     time.Duration
}

// Run opens path and aggregates it.
func Run(ctx context.Context, path string, cfg Config) (*Report, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	src, err := OpenSource(path, cfg.ReadMode)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return RunSource(ctx, src, cfg)
}

// RunSource aggregates an already opened source: split, fan out, join,
// reduce, format.
func RunSource(ctx context.Context, src Source, cfg Config) (*Report, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := cfg.Logger.With(slog.String("run_id", runID))

	ranges, err := Split(src, src.Size(), cfg.TargetChunkSize)
	if err != nil {
		return nil, &IOError{Op: "split", Path: src.Path(), Err: err}
	}

	logger.Info("starting run",
		slog.String("path", src.Path()),
		slog.Int64("bytes", src.Size()),
		slog.Int("chunks", len(ranges)),
		slog.Int("parallelism", cfg.MaxParallelism),
		slog.String("strategy", string(cfg.Strategy)))

	chunks, err := NewScheduler(cfg, runID).Run(ctx, src, ranges)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       runID,
		Path:        src.Path(),
		Chunks:      len(ranges),
		Bytes:       src.Size(),
		Parallelism: cfg.MaxParallelism,
	}

	tables := make([]*Table, len(chunks))
	for i, c := range chunks {
		tables[i] = c.Table
		report.Records += c.Records
		report.Malformed += c.Malformed
	}

	table, err := Reduce(ctx, tables, cfg.ReduceOptions())
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}

	report.Table = table
	report.Results = Format(table)
	report.Elapsed = time.Since(start)

	logger.Info("run complete",
		slog.Int("keys", table.Len()),
		slog.Int64("records", report.Records),
		slog.Int64("malformed", report.Malformed),
		slog.Duration("elapsed", report.Elapsed))

	return report, nil
}
