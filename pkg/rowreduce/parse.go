package rowreduce

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// DefaultDelimiter separates the key from the measurement.
const DefaultDelimiter = ';'

// Emitter receives one parsed record. key aliases the chunk buffer and is
// only valid for the duration of the call.
type Emitter func(key []byte, value int64) error

// ParseOptions controls how a chunk buffer is scanned.
type ParseOptions struct {
	Delimiter byte
	// AllowUnterminated accepts a final record without a trailing line
	// break when the buffer is the last range of the file.
	AllowUnterminated bool
	// SkipMalformed counts and skips bad lines instead of failing.
	SkipMalformed bool
	// BaseOffset is added to buffer positions in errors.
	BaseOffset int64
}

// Parse scans buf for records and passes each one to emit. final reports
// whether buf is the last range of the file. It returns the number of
// skipped lines, which is only non-zero with SkipMalformed.
func Parse(buf []byte, final bool, opts ParseOptions, emit Emitter) (int64, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = DefaultDelimiter
	}

	var skipped int64
	start := 0
	for start < len(buf) {
		nl := bytes.IndexByte(buf[start:], LineBreak)
		if nl < 0 {
			break
		}
		end := start + nl

		if err := parseRecord(buf[start:end], delim, opts.BaseOffset+int64(start), emit); err != nil {
			if !opts.SkipMalformed || !errors.Is(err, ErrParse) {
				return skipped, err
			}
			skipped++
		}
		start = end + 1
	}

	if start == len(buf) {
		return skipped, nil
	}

	rest := buf[start:]
	offset := opts.BaseOffset + int64(start)

	var err error
	if final && opts.AllowUnterminated {
		err = parseRecord(rest, delim, offset, emit)
	} else {
		err = newParseError(offset, rest, "missing trailing line break")
	}

	if err != nil {
		if !opts.SkipMalformed || !errors.Is(err, ErrParse) {
			return skipped, err
		}
		skipped++
	}

	return skipped, nil
}

// parseRecord splits one line (without its line break) at the last
// delimiter and emits it.
func parseRecord(line []byte, delim byte, offset int64, emit Emitter) error {
	d := bytes.LastIndexByte(line, delim)
	if d < 0 {
		return newParseError(offset, line, "missing delimiter")
	}

	v, err := ParseMeasurement(line[d+1:])
	if err != nil {
		if errors.Is(err, ErrOverflow) {
			return fmt.Errorf("measurement at offset %d: %w", offset, err)
		}
		return newParseError(offset, line, err.Error())
	}

	return emit(line[:d], v)
}

// ParseMeasurement parses -?[0-9]+(\.[0-9])? into tenths without going
// through floating point.
func ParseMeasurement(b []byte) (int64, error) {
	i := 0
	neg := false
	if len(b) > 0 && b[0] == '-' {
		neg = true
		i++
	}

	var whole int64
	digits := 0
	for ; i < len(b) && isDigit(b[i]); i++ {
		d := int64(b[i] - '0')
		if whole > (math.MaxInt64-d)/10 {
			return 0, fmt.Errorf("measurement %q: %w", b, ErrOverflow)
		}
		whole = whole*10 + d
		digits++
	}
	if digits == 0 {
		return 0, fmt.Errorf("malformed measurement %q: expected digit", b)
	}

	var frac int64
	if i < len(b) {
		if b[i] != '.' || i+2 != len(b) || !isDigit(b[i+1]) {
			return 0, fmt.Errorf("malformed measurement %q: expected one fractional digit", b)
		}
		frac = int64(b[i+1] - '0')
	}

	if whole > (math.MaxInt64-frac)/10 {
		return 0, fmt.Errorf("measurement %q: %w", b, ErrOverflow)
	}
	v := whole*10 + frac
	if neg {
		v = -v
	}
	return v, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
