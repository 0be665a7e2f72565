package rowreduce

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// ReadMode selects how chunk bytes are pulled from the input file.
type ReadMode string

const (
	// ReadModePread reads each range with positioned reads on one descriptor.
	ReadModePread ReadMode = "pread"
	// ReadModeMmap maps the file once and copies ranges out of the mapping.
	ReadModeMmap ReadMode = "mmap"
)

// Source is the read-only input shared by all workers. ReadAt must be safe
// for concurrent use on disjoint ranges.
type Source interface {
	io.ReaderAt
	Size() int64
	Path() string
	Close() error
}

// OpenSource opens path for chunked reading.
func OpenSource(path string, mode ReadMode) (Source, error) {
	switch mode {
	case ReadModePread, "":
		f, err := os.Open(path)
		if err != nil {
			return nil, &IOError{Op: "open", Path: path, Err: err}
		}

		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, &IOError{Op: "stat", Path: path, Err: err}
		}

		adviseSequential(f)

		return &fileSource{f: f, size: info.Size(), path: path}, nil

	case ReadModeMmap:
		r, err := mmap.Open(path)
		if err != nil {
			return nil, &IOError{Op: "mmap", Path: path, Err: err}
		}
		return &mmapSource{r: r, path: path}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReadMode, mode)
	}
}

type fileSource struct {
	f    *os.File
	size int64
	path string
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *fileSource) Size() int64                             { return s.size }
func (s *fileSource) Path() string                            { return s.path }
func (s *fileSource) Close() error                            { return s.f.Close() }

type mmapSource struct {
	r    *mmap.ReaderAt
	path string
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }
func (s *mmapSource) Size() int64                             { return int64(s.r.Len()) }
func (s *mmapSource) Path() string                            { return s.path }
func (s *mmapSource) Close() error                            { return s.r.Close() }

// BytesSource serves an in-memory buffer as a Source.
type BytesSource struct {
	r    *bytes.Reader
	name string
}

// NewBytesSource wraps data. name is only used in error messages.
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{r: bytes.NewReader(data), name: name}
}

func (s *BytesSource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }
func (s *BytesSource) Size() int64                             { return s.r.Size() }
func (s *BytesSource) Path() string                            { return s.name }
func (s *BytesSource) Close() error                            { return nil }

// ChunkReader materializes byte ranges into a buffer it owns. The slice
// returned by Read is only valid until the next call.
type ChunkReader struct {
	src Source
	buf []byte
}

func NewChunkReader(src Source) *ChunkReader {
	return &ChunkReader{src: src}
}

// Read fills the reader's buffer with the bytes of r, growing it if needed.
func (c *ChunkReader) Read(r ByteRange) ([]byte, error) {
	if int64(cap(c.buf)) < r.Length {
		c.buf = make([]byte, r.Length)
	}
	buf := c.buf[:r.Length]

	n, err := c.src.ReadAt(buf, r.Offset)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == r.Length) {
		return nil, &IOError{Op: "read", Path: c.src.Path(), Err: fmt.Errorf("%s: %w", r, err)}
	}

	return buf, nil
}
