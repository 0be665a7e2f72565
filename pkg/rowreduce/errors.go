package rowreduce

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// Input errors
	ErrIO       = errors.New("io error")
	ErrParse    = errors.New("parse error")
	ErrOverflow = errors.New("integer overflow")

	// Configuration errors
	ErrInvalidChunkSize      = errors.New("invalid chunk size")
	ErrInvalidParallelism    = errors.New("invalid parallelism")
	ErrInvalidDelimiter      = errors.New("invalid delimiter")
	ErrUnknownStrategy       = errors.New("unknown concurrency strategy")
	ErrUnknownReadMode       = errors.New("unknown read mode")
	ErrUnknownReduceStrategy = errors.New("unknown reduce strategy")
)

// IOError reports a failure to open, stat, map, or read the input file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// ParseError reports a malformed line. Offset is relative to the start of
// the file when the parser knows the chunk offset, otherwise to the buffer.
type ParseError struct {
	Offset int64
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s (line %q)", e.Offset, e.Reason, e.Line)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// maxQuotedLine caps how much of a bad line is kept in a ParseError.
const maxQuotedLine = 128

func newParseError(offset int64, line []byte, reason string) *ParseError {
	if len(line) > maxQuotedLine {
		line = line[:maxQuotedLine]
	}
	return &ParseError{Offset: offset, Line: string(line), Reason: reason}
}
