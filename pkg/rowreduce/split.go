package rowreduce

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// LineBreak terminates every record.
const LineBreak = '\n'

// scanBlock is how many bytes are read per ReadAt while looking for the
// next line break.
const scanBlock = 4096

// ByteRange is a contiguous slice of the input file. Every range except
// possibly the final one ends immediately after a line break.
type ByteRange struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
	Final  bool  `json:"final"`
}

// End returns the offset one past the last byte of the range.
func (r ByteRange) End() int64 {
	return r.Offset + r.Length
}

func (r ByteRange) String() string {
	return fmt.Sprintf("chunk %d [%d,+%d)", r.Index, r.Offset, r.Length)
}

// Split divides [0, size) into ranges of roughly target bytes. Each
// boundary is moved forward to just past the next line break, so no record
// straddles two ranges. An empty input yields no ranges.
func Split(r io.ReaderAt, size, target int64) ([]ByteRange, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, target)
	}

	ranges := make([]ByteRange, 0, size/target+1)
	buf := make([]byte, scanBlock)

	var current int64
	for current < size {
		end := min(current+target, size)
		if end < size {
			next, err := nextLineStart(r, end, size, buf)
			if err != nil {
				return nil, err
			}
			end = next
		}

		ranges = append(ranges, ByteRange{
			Index:  len(ranges),
			Offset: current,
			Length: end - current,
		})
		current = end
	}

	if len(ranges) > 0 {
		ranges[len(ranges)-1].Final = true
	}

	return ranges, nil
}

// nextLineStart returns the offset just past the first line break at or
// after pos, or size when there is none.
func nextLineStart(r io.ReaderAt, pos, size int64, buf []byte) (int64, error) {
	for pos < size {
		n := min(int64(len(buf)), size-pos)
		read, err := r.ReadAt(buf[:n], pos)
		if err != nil && !(errors.Is(err, io.EOF) && int64(read) == n) {
			return 0, fmt.Errorf("scan for line break at %d: %w", pos, err)
		}

		if i := bytes.IndexByte(buf[:n], LineBreak); i >= 0 {
			return pos + int64(i) + 1, nil
		}
		pos += n
	}
	return size, nil
}
