// Package source turns an arbitrary byte stream into a random access source
// with bounded cursors. Everything that parses a message reads through here.
package source

import (
	"errors"
	"io"
	"os"
)

const (
	// DefaultChunkSize is the number of bytes pulled from a forward-only
	// reader at a time.
	DefaultChunkSize = 16_384

	// DefaultMemoryLimit is the amount of spooled input held in memory before
	// the spool moves to a temporary file.
	DefaultMemoryLimit = 4 << 20
)

var (
	// ErrSourceClosed is returned by every read after Close.
	ErrSourceClosed = errors.New("message source has been closed")

	// ErrTruncatedInput is returned by strict windows when the input ends
	// before the end of the window.
	ErrTruncatedInput = errors.New("input ended before the end of the window")
)

// Options configures New.
type Options struct {
	// ChunkSize is the read size used against forward-only readers and the
	// buffer size of windows. Zero means DefaultChunkSize.
	ChunkSize int

	// MemoryLimit is the number of bytes spooled in memory before a temporary
	// file is used. Zero means DefaultMemoryLimit.
	MemoryLimit int64

	// TempDir is where the spool file is created. Empty means os.TempDir().
	TempDir string
}

type sizedReaderAt interface {
	io.ReaderAt
	Size() int64
}

// Source provides offset based access to the bytes of a message. If the
// reader given to New can already do that (a *bytes.Reader, *strings.Reader,
// *io.SectionReader or *os.File), it is used directly. Otherwise bytes are
// pulled on demand and kept in a spool.
type Source struct {
	ra   io.ReaderAt
	size int64

	r     io.Reader
	sp    *spool
	chunk int
	eof   bool
	err   error

	closed bool
}

// New wraps r in a Source.
func New(r io.Reader, o Options) *Source {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MemoryLimit <= 0 {
		o.MemoryLimit = DefaultMemoryLimit
	}

	s := &Source{chunk: o.ChunkSize, size: -1}

	switch v := r.(type) {
	case sizedReaderAt:
		s.ra, s.size = v, v.Size()
		return s
	case *os.File:
		if fi, err := v.Stat(); err == nil && fi.Mode().IsRegular() {
			s.ra, s.size = v, fi.Size()
			return s
		}
	}

	s.r = r
	s.sp = newSpool(o.MemoryLimit, o.TempDir)
	return s
}

// ChunkSize returns the configured read size.
func (s *Source) ChunkSize() int { return s.chunk }

// fill pulls from the underlying reader until at least want bytes are
// spooled or the reader is exhausted.
func (s *Source) fill(want int64) error {
	if s.sp == nil {
		return nil
	}

	buf := make([]byte, s.chunk)
	for !s.eof && s.sp.Size() < want {
		n, err := s.r.Read(buf)
		if n > 0 {
			if _, werr := s.sp.Write(buf[:n]); werr != nil {
				s.err = werr
				return werr
			}
		}

		if errors.Is(err, io.EOF) {
			s.eof = true
		} else if err != nil {
			s.err = err
			return err
		}
	}

	return nil
}

// ReadAt implements io.ReaderAt. Bytes are pulled from a forward-only reader
// only as far as needed to satisfy the request.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if s.closed {
		return 0, ErrSourceClosed
	}

	if s.ra != nil {
		if off >= s.size {
			return 0, io.EOF
		}
		return s.ra.ReadAt(p, off)
	}

	if s.err != nil {
		return 0, s.err
	}

	if err := s.fill(off + int64(len(p))); err != nil {
		return 0, err
	}

	return s.sp.ReadAt(p, off)
}

// Size returns the total length of the input. For forward-only readers this
// consumes the rest of the input.
func (s *Source) Size() (int64, error) {
	if s.closed {
		return 0, ErrSourceClosed
	}

	if s.ra != nil {
		return s.size, nil
	}

	for !s.eof {
		if s.err != nil {
			return s.sp.Size(), s.err
		}
		if err := s.fill(s.sp.Size() + int64(s.chunk)); err != nil {
			return s.sp.Size(), err
		}
	}

	return s.sp.Size(), nil
}

// Window returns a cursor over [start, end). An end less than zero leaves the
// window open to the end of input.
func (s *Source) Window(start, end int64, strict bool) *Window {
	return &Window{
		s:      s,
		start:  start,
		end:    end,
		pos:    start,
		strict: strict,
		bufOff: -1,
	}
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool { return s.closed }

// Close releases the spool. It does not close the reader given to New.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	if s.sp != nil {
		return s.sp.Close()
	}
	return nil
}
