package rowreduce

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hashicorp/go-multierror"
)

// DefaultTargetChunkSize is the default split size in bytes.
const DefaultTargetChunkSize = 10_000_000

// Config holds run configuration.
type Config struct {
	TargetChunkSize int64
	MaxParallelism  int
	Strategy        Strategy
	ReadMode        ReadMode
	ReduceStrategy  ReduceStrategy
	ReduceShards    int
	Delimiter       byte

	AllowUnterminated bool
	SkipMalformed     bool

	Progress ProgressFunc
	Logger   *slog.Logger
}

// DefaultConfig returns a config using all available processors.
func DefaultConfig() Config {
	return Config{
		TargetChunkSize: DefaultTargetChunkSize,
		MaxParallelism:  runtime.GOMAXPROCS(0),
		Strategy:        StrategyPooled,
		ReadMode:        ReadModePread,
		ReduceStrategy:  ReduceSequential,
		Delimiter:       DefaultDelimiter,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.TargetChunkSize == 0 {
		c.TargetChunkSize = d.TargetChunkSize
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = d.MaxParallelism
	}
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.ReadMode == "" {
		c.ReadMode = d.ReadMode
	}
	if c.ReduceStrategy == "" {
		c.ReduceStrategy = d.ReduceStrategy
	}
	if c.Delimiter == 0 {
		c.Delimiter = d.Delimiter
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs *multierror.Error

	if c.TargetChunkSize <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: %d", ErrInvalidChunkSize, c.TargetChunkSize))
	}
	if c.MaxParallelism <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: %d", ErrInvalidParallelism, c.MaxParallelism))
	}
	if c.ReduceShards < 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: reduce shards %d", ErrInvalidParallelism, c.ReduceShards))
	}

	switch c.Strategy {
	case StrategyPooled, StrategyPerTask:
	default:
		errs = multierror.Append(errs, fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy))
	}

	switch c.ReadMode {
	case ReadModePread, ReadModeMmap:
	default:
		errs = multierror.Append(errs, fmt.Errorf("%w: %q", ErrUnknownReadMode, c.ReadMode))
	}

	switch c.ReduceStrategy {
	case ReduceSequential, ReduceTree, ReduceSharded:
	default:
		errs = multierror.Append(errs, fmt.Errorf("%w: %q", ErrUnknownReduceStrategy, c.ReduceStrategy))
	}

	// The delimiter must not occur inside measurement text or terminate lines.
	switch d := c.Delimiter; {
	case d == 0, d == LineBreak, d == '-', d == '.', isDigit(d):
		errs = multierror.Append(errs, fmt.Errorf("%w: %q", ErrInvalidDelimiter, d))
	}

	return errs.ErrorOrNil()
}

// ParseOptions returns the parser settings carried by c.
func (c Config) ParseOptions() ParseOptions {
	return ParseOptions{
		Delimiter:         c.Delimiter,
		AllowUnterminated: c.AllowUnterminated,
		SkipMalformed:     c.SkipMalformed,
	}
}

// ReduceOptions returns the reducer settings carried by c.
func (c Config) ReduceOptions() ReduceOptions {
	return ReduceOptions{
		Strategy:    c.ReduceStrategy,
		Shards:      c.ReduceShards,
		Parallelism: c.MaxParallelism,
	}
}
