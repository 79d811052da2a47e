package source

import (
	"bytes"
	"errors"
	"io"
)

// Position is an absolute offset into the source, as returned by Mark.
type Position int64

// Window is a buffered cursor over a range of a Source. It never returns
// bytes at or beyond its end, even when the source has more.
type Window struct {
	s      *Source
	start  int64
	end    int64
	pos    int64
	strict bool

	buf    []byte
	bufOff int64
}

// Start returns the offset of the first byte of the window.
func (w *Window) Start() int64 { return w.start }

// End returns the end of the window or -1 when it is unbounded.
func (w *Window) End() int64 { return w.end }

// Mark returns the current cursor position.
func (w *Window) Mark() Position { return Position(w.pos) }

// Restore moves the cursor to a position previously returned by Mark, or to
// any other offset inside the window. Positions outside are clamped.
func (w *Window) Restore(p Position) {
	pos := int64(p)
	if pos < w.start {
		pos = w.start
	}
	if w.end >= 0 && pos > w.end {
		pos = w.end
	}
	w.pos = pos
}

// Seek implements io.Seeker relative to the start of the window.
func (w *Window) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = w.start + offset
	case io.SeekCurrent:
		abs = w.pos + offset
	case io.SeekEnd:
		if w.end < 0 {
			size, err := w.s.Size()
			if err != nil {
				return w.pos - w.start, err
			}
			abs = size + offset
		} else {
			abs = w.end + offset
		}
	default:
		return w.pos - w.start, errors.New("source: invalid whence")
	}

	if abs < w.start {
		return w.pos - w.start, errors.New("source: negative position")
	}

	w.Restore(Position(abs))
	return w.pos - w.start, nil
}

// remaining returns how many bytes may still be read, or -1 if unbounded.
func (w *Window) remaining() int64 {
	if w.end < 0 {
		return -1
	}
	return w.end - w.pos
}

// buffered returns the buffered bytes starting at the cursor.
func (w *Window) buffered() []byte {
	if w.bufOff < 0 || w.pos < w.bufOff || w.pos >= w.bufOff+int64(len(w.buf)) {
		return nil
	}
	return w.buf[w.pos-w.bufOff:]
}

// fill buffers the next chunk at the cursor.
func (w *Window) fill() error {
	limit := int64(w.s.ChunkSize())
	if rem := w.remaining(); rem >= 0 && rem < limit {
		limit = rem
	}
	if limit <= 0 {
		return io.EOF
	}

	if int64(cap(w.buf)) < limit {
		w.buf = make([]byte, limit)
	}
	w.buf = w.buf[:limit]

	n, err := w.s.ReadAt(w.buf, w.pos)
	w.buf = w.buf[:n]
	w.bufOff = w.pos
	if n > 0 {
		return nil
	}

	switch {
	case err == nil, errors.Is(err, io.EOF):
		if w.end >= 0 && w.strict {
			return ErrTruncatedInput
		}
		return io.EOF
	default:
		return err
	}
}

// atEnd reports whether err marks the end of the readable range, as opposed to
// a failure of the source. Bytes read before the end are returned first.
func atEnd(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrTruncatedInput)
}

// Read implements io.Reader.
func (w *Window) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b := w.buffered()
	if b == nil {
		if err := w.fill(); err != nil {
			return 0, err
		}
		b = w.buffered()
	}

	n := copy(p, b)
	w.pos += int64(n)
	return n, nil
}

// ReadN returns up to max bytes. A short result means the window or the input
// ended; io.EOF is only returned when nothing at all could be read.
func (w *Window) ReadN(max int) ([]byte, error) {
	out := make([]byte, 0, max)
	for len(out) < max {
		b := w.buffered()
		if b == nil {
			if err := w.fill(); err != nil {
				if len(out) > 0 && atEnd(err) {
					break
				}
				return out, err
			}
			continue
		}

		if want := max - len(out); len(b) > want {
			b = b[:want]
		}
		out = append(out, b...)
		w.pos += int64(len(b))
	}

	return out, nil
}

// ReadUntil returns the bytes up to and including delim. At most max bytes
// are returned when max is positive; the result then ends without delim and
// the next call continues from there. If the window or the input ends first,
// the remaining bytes are returned without error and the following call
// returns io.EOF.
func (w *Window) ReadUntil(delim []byte, max int) ([]byte, error) {
	var out []byte
	for {
		b := w.buffered()
		if b == nil {
			if err := w.fill(); err != nil {
				if len(out) > 0 && atEnd(err) {
					return out, nil
				}
				return out, err
			}
			continue
		}

		n, found := len(b), false
		if i := delimEnd(out, b, delim); i >= 0 {
			n, found = i, true
		}
		if max > 0 && len(out)+n > max {
			n, found = max-len(out), false
		}

		out = append(out, b[:n]...)
		w.pos += int64(n)

		if found || (max > 0 && len(out) == max) {
			return out, nil
		}
	}
}

// delimEnd returns how many bytes of b are needed to complete the first delim
// in out followed by b, or -1 if b does not complete one. out never holds a
// whole delim.
func delimEnd(out, b, delim []byte) int {
	for k := min(len(delim)-1, len(out)); k > 0; k-- {
		if bytes.HasSuffix(out, delim[:k]) && bytes.HasPrefix(b, delim[k:]) {
			return len(delim) - k
		}
	}

	if i := bytes.Index(b, delim); i >= 0 {
		return i + len(delim)
	}
	return -1
}

var newline = []byte{'\n'}

// ReadLine reads through the next LF, or at most max bytes.
func (w *Window) ReadLine(max int) ([]byte, error) {
	return w.ReadUntil(newline, max)
}
