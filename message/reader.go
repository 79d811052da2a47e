package message

import (
	"errors"
	"io"

	"github.com/zostay/go-mimetree/internal/source"
)

// ErrInvalidSeek is returned when seeking content to a negative position or
// relative to its end.
var ErrInvalidSeek = errors.New("invalid seek of part content")

// rawCursor reads the undecoded content of a part. While the end of the part
// is unknown it only hands out bytes that cannot belong to the delimiter
// line that follows, advancing the boundary scan as it goes.
type rawCursor struct {
	p   *Part
	pos int64
	w   *source.Window
}

func (m *Message) newRawCursor(p *Part) *rawCursor {
	return &rawCursor{p: p, pos: p.bodyStart}
}

// openEnded is true for a leaf that nothing but the end of input can end.
func (m *Message) openEnded(p *Part) bool {
	return p.scan == nil && p.end < 0 && m.activeFrom(p) == nil
}

// safeLimit returns how far the content of pending part p is known to reach.
func (p *Part) safeLimit() int64 {
	limit := p.seek.off
	if !p.seek.mid {
		limit -= int64(p.seek.term)
	}
	return max(limit, p.bodyStart)
}

// Read reads raw content. The caller holds the message lock.
func (c *rawCursor) Read(b []byte) (int, error) {
	p, m := c.p, c.p.m
	if m.src.Closed() {
		return 0, ErrSourceClosed
	}

	if len(b) == 0 {
		return 0, nil
	}

	if p.scan != nil {
		m.finish(p)
	}

	for {
		switch {
		case p.end >= 0:
			return c.readTo(b, p.end)
		case m.openEnded(p):
			return c.readTo(b, -1)
		}

		if limit := p.safeLimit(); c.pos < limit {
			return c.readTo(b, limit)
		}

		if !m.step(p) {
			if m.err != nil {
				return 0, m.err
			}
			return 0, io.ErrUnexpectedEOF
		}
	}
}

func (c *rawCursor) readTo(b []byte, limit int64) (int, error) {
	p, m := c.p, c.p.m

	if limit >= 0 {
		if c.pos >= limit {
			if limit == p.end && p.truncated && m.cfg.strict {
				return 0, ErrTruncatedInput
			}
			return 0, io.EOF
		}

		if rem := limit - c.pos; int64(len(b)) > rem {
			b = b[:rem]
		}
	}

	if c.w == nil {
		c.w = m.src.Window(p.bodyStart, -1, false)
	}
	c.w.Restore(source.Position(c.pos))

	n, err := c.w.Read(b)
	c.pos += int64(n)

	if errors.Is(err, io.EOF) && limit < 0 && p.end < 0 {
		p.end = c.pos
	}

	if n > 0 {
		return n, nil
	}
	return n, err
}

// RawReader reads the content of a part as it appears in the input, before
// any decoding. Each RawReader has its own position.
type RawReader struct {
	c *rawCursor
}

// RawReader returns a new reader of the undecoded content of the part.
func (p *Part) RawReader() *RawReader {
	p.m.lock()
	defer p.m.unlock()
	return &RawReader{p.m.newRawCursor(p)}
}

// Read implements io.Reader.
func (r *RawReader) Read(b []byte) (int, error) {
	m := r.c.p.m
	m.lock()
	defer m.unlock()
	return r.c.Read(b)
}

// Seek implements io.Seeker relative to the start of the content. Seeking
// relative to the end scans for the end of the part.
func (r *RawReader) Seek(offset int64, whence int) (int64, error) {
	p, m := r.c.p, r.c.p.m
	m.lock()
	defer m.unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = p.bodyStart + offset
	case io.SeekCurrent:
		abs = r.c.pos + offset
	case io.SeekEnd:
		m.finish(p)
		if p.end < 0 {
			return r.c.pos - p.bodyStart, m.err
		}
		abs = p.end + offset
	default:
		return r.c.pos - p.bodyStart, ErrInvalidSeek
	}

	if abs < p.bodyStart {
		return r.c.pos - p.bodyStart, ErrInvalidSeek
	}

	r.c.pos = abs
	return abs - p.bodyStart, nil
}

// ContentReader reads the decoded content of a part. Each ContentReader
// decodes independently of every other reader of the same message.
type ContentReader struct {
	p   *Part
	r   io.Reader
	pos int64
}

func (m *Message) newContentReader(p *Part) *ContentReader {
	cr := &ContentReader{p: p}
	cr.reset()
	return cr
}

func (cr *ContentReader) reset() {
	cr.r = cr.p.recipe.Open(cr.p.m.newRawCursor(cr.p))
	cr.pos = 0
}

// Reader returns a new reader of the decoded content of the part.
func (p *Part) Reader() *ContentReader {
	p.m.lock()
	defer p.m.unlock()
	return p.m.newContentReader(p)
}

// Read implements io.Reader.
func (cr *ContentReader) Read(b []byte) (int, error) {
	m := cr.p.m
	m.lock()
	defer m.unlock()
	return cr.read(b)
}

func (cr *ContentReader) read(b []byte) (int, error) {
	if cr.p.m.src.Closed() {
		return 0, ErrSourceClosed
	}

	n, err := cr.r.Read(b)
	cr.pos += int64(n)
	return n, err
}

// Seek implements io.Seeker over the decoded content. Only io.SeekStart and
// io.SeekCurrent are supported. Seeking backward restarts decoding from the
// beginning and seeking forward decodes and discards. Seeking past the end
// stops at the end.
func (cr *ContentReader) Seek(offset int64, whence int) (int64, error) {
	m := cr.p.m
	m.lock()
	defer m.unlock()

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = cr.pos + offset
	default:
		return cr.pos, ErrInvalidSeek
	}

	if target < 0 {
		return cr.pos, ErrInvalidSeek
	}

	if target < cr.pos {
		cr.reset()
	}

	if target > cr.pos {
		n, err := io.CopyN(io.Discard, cr.r, target-cr.pos)
		cr.pos += n
		if err != nil && !errors.Is(err, io.EOF) {
			return cr.pos, err
		}
	}

	return cr.pos, nil
}

// ReadContent reads decoded content using a position kept by the part. Use
// Rewind to start over.
func (p *Part) ReadContent(b []byte) (int, error) {
	p.m.lock()
	defer p.m.unlock()

	if p.content == nil {
		p.content = p.m.newContentReader(p)
	}
	return p.content.read(b)
}

// ReadRaw reads undecoded content using a position kept by the part. Use
// Rewind to start over.
func (p *Part) ReadRaw(b []byte) (int, error) {
	p.m.lock()
	defer p.m.unlock()

	if p.raw == nil {
		p.raw = &RawReader{p.m.newRawCursor(p)}
	}
	return p.raw.c.Read(b)
}

// Rewind moves the positions used by ReadContent and ReadRaw back to the
// start of the content.
func (p *Part) Rewind() {
	p.m.lock()
	defer p.m.unlock()

	p.content = nil
	p.raw = nil
}
