package message

import (
	"bytes"
	"errors"
	"io"

	"github.com/zostay/go-mimetree/internal/scanner"
	"github.com/zostay/go-mimetree/internal/source"
	"github.com/zostay/go-mimetree/message/header"
	"github.com/zostay/go-mimetree/message/header/field"
	"github.com/zostay/go-mimetree/message/header/param"
)

type scanPhase int

// The phases of a multipart container's scan. A container moves from
// seekingFirstBoundary to atBoundary, then alternates between inPart and
// atBoundary until it is terminated.
const (
	seekingFirstBoundary scanPhase = iota
	inPart
	atBoundary
	terminated
)

func (s scanPhase) String() string {
	switch s {
	case seekingFirstBoundary:
		return "seeking first boundary"
	case inPart:
		return "in part"
	case atBoundary:
		return "at boundary"
	default:
		return "terminated"
	}
}

// scanState is where the scan of a multipart container left off.
type scanState struct {
	phase scanPhase
	off   int64  // start of the boundary line while atBoundary
	cur   PartID // the open child while inPart
}

// lineScan is the position of the search for the line that ends a part.
type lineScan struct {
	off  int64 // start of the next line
	term int   // length of the line break that ended the previous line
	mid  bool  // the previous line was cut before its line break
}

// scannedLine is one line handed out by nextLine.
type scannedLine struct {
	b    []byte
	off  int64
	prev int  // length of the line break before the line
	cont bool // the rest of a line that was too long
}

// checkBound tells whether line is a delimiter for bound ("--" and the
// boundary) and whether it is the close delimiter.
func checkBound(line, bound []byte) (bool, bool) {
	if !bytes.HasPrefix(line, bound) {
		return false, false
	}
	line = line[len(bound):]
	if bytes.HasPrefix(line, []byte("--")) {
		return true, true
	}
	if len(line) == 0 {
		return true, false
	}
	c := line[0]
	switch c {
	case ' ', '\t', '\r', '\n':
		return true, false
	}
	return false, false
}

func (m *Message) lineAt(off int64) ([]byte, error) {
	if m.src.Closed() {
		return nil, ErrSourceClosed
	}

	m.lines.Restore(source.Position(off))
	line, err := m.lines.ReadLine(m.cfg.maxLineLen)

	// A fragment cut between CR and LF leaves the CR for the next fragment
	// so that the line break is seen whole.
	if n := len(line); err == nil && n > 1 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, err
}

// startsHeader reports whether the line at off begins a header field. A line
// longer than the line length limit is read fragment by fragment until its
// colon turns up or it can no longer be a field name.
func (m *Message) startsHeader(off int64) bool {
	var line []byte
	for {
		frag, err := m.lineAt(off)
		if err != nil {
			break
		}

		line = append(line, frag...)
		off += int64(len(frag))

		if scanner.BreakLen(frag) > 0 || bytes.IndexByte(line, ':') >= 0 || !maybeFieldName(line) {
			break
		}
	}
	return field.LooksLikeField(line)
}

// maybeFieldName is true while b could still be the start of a field name.
func maybeFieldName(b []byte) bool {
	for _, c := range bytes.TrimRight(b, " \t") {
		if c <= ' ' || c >= 0x7f {
			return false
		}
	}
	return true
}

func (m *Message) nextLine(ls *lineScan) (scannedLine, error) {
	ln := scannedLine{off: ls.off, prev: ls.term, cont: ls.mid}

	b, err := m.lineAt(ls.off)
	if err != nil {
		return ln, err
	}

	ln.b = b
	ls.off += int64(len(b))
	ls.term = scanner.BreakLen(b)
	ls.mid = ls.term == 0
	return ln, nil
}

// active is true for a multipart container whose close delimiter has not
// been seen yet.
func (p *Part) active() bool {
	return p.scan != nil && p.scan.phase != terminated
}

// activeFrom returns the innermost container whose boundaries can end p.
func (m *Message) activeFrom(p *Part) *Part {
	if p.scan != nil && p.scan.phase == seekingFirstBoundary {
		return p
	}
	return m.part(p.parent)
}

// matchBound returns the innermost open container, starting at from, that
// line is a delimiter of.
func (m *Message) matchBound(line []byte, from *Part) *Part {
	for c := from; c != nil; c = m.part(c.parent) {
		if !c.active() {
			continue
		}
		if isBound, _ := checkBound(line, c.bound); isBound {
			return c
		}
	}
	return nil
}

// finish scans until the end of p is known or scanning gets stuck.
func (m *Message) finish(p *Part) {
	for p.end < 0 && m.step(p) {
	}
}

// step makes one unit of progress toward the end of p. It returns false if
// no progress could be made.
func (m *Message) step(p *Part) bool {
	if p.active() {
		return m.stepContainer(p)
	}
	return m.advanceEnd(p)
}

// stepContainer moves the scan of container c forward by one transition.
func (m *Message) stepContainer(c *Part) bool {
	switch c.scan.phase {
	case inPart:
		cur := m.parts[c.scan.cur]
		m.finish(cur)
		return cur.end >= 0
	case atBoundary:
		return m.readDelimiter(c)
	default:
		return m.advanceEnd(c)
	}
}

// advanceEnd examines the next line after p's content read so far. A
// delimiter of an open container ends p there. While p is itself looking for
// its first boundary, its own delimiter moves it to atBoundary instead.
func (m *Message) advanceEnd(p *Part) bool {
	if p.end >= 0 {
		return true
	}

	from := m.activeFrom(p)
	if from == nil {
		size, err := m.src.Size()
		if err != nil {
			m.fail(err)
			return false
		}
		p.end = max(size, p.bodyStart)
		return true
	}

	ln, err := m.nextLine(&p.seek)
	if errors.Is(err, io.EOF) {
		m.closeAtEOF(p, ln.off)
		return true
	} else if err != nil {
		m.fail(err)
		return false
	}

	if ln.cont {
		return true
	}

	if c := m.matchBound(ln.b, from); c != nil {
		m.boundaryAt(p, c, ln)
	}
	return true
}

// boundaryAt ends p and every container between p and c at the line before
// ln, which is a delimiter of c.
func (m *Message) boundaryAt(p, c *Part, ln scannedLine) {
	end := ln.off - int64(ln.prev)
	for q := p; q != c; q = m.part(q.parent) {
		q.end = max(end, q.bodyStart)
		if q.active() {
			q.scan.phase = terminated
			m.recovered(q, ln.off, ErrImplicitClose)
		}
	}

	c.scan.phase = atBoundary
	c.scan.off = ln.off
}

// closeAtEOF ends p and all of its open ancestors at the end of input.
func (m *Message) closeAtEOF(p *Part, eof int64) {
	for q := p; q != nil && q.end < 0; q = m.part(q.parent) {
		q.end = max(eof, q.bodyStart)
		q.truncated = true
		if q.active() {
			q.scan.phase = terminated
			m.recovered(q, eof, ErrMissingCloseDelimiter)
		}
	}
}

// readDelimiter handles the delimiter line container c stopped at, either
// closing c or opening its next child.
func (m *Message) readDelimiter(c *Part) bool {
	off := c.scan.off
	line, err := m.lineAt(off)
	if err != nil {
		m.fail(err)
		return false
	}

	_, closing := checkBound(line, c.bound)

	next := off + int64(len(line))
	term := scanner.BreakLen(line)
	for term == 0 {
		more, err := m.lineAt(next)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			m.fail(err)
			return false
		}
		next += int64(len(more))
		term = scanner.BreakLen(more)
	}

	if closing {
		c.scan.phase = terminated
		if len(c.children) == 0 {
			m.recovered(c, off, ErrFirstBoundaryCloses)
		}
		c.seek = lineScan{off: next, term: term}
		return true
	}

	child := m.newPart(c, next)
	c.scan.phase = inPart
	c.scan.cur = child.id
	return true
}

// discover scans container p until it has more than want children or has no
// more to find. A negative want finds them all. Plain text leaves are
// searched for uuencoded blocks instead.
func (m *Message) discover(p *Part, want int) {
	switch {
	case p.scan != nil:
		for (want < 0 || len(p.children) <= want) && p.active() {
			if !m.stepContainer(p) {
				return
			}
		}
	case p.recipe.ExciseUU && !p.uuScanned:
		m.scanUU(p)
	}
}

// newPart registers a part whose header starts at off and reads that header.
func (m *Message) newPart(parent *Part, off int64) *Part {
	p := &Part{
		m:           m,
		id:          PartID(len(m.parts)),
		parent:      NoPart,
		headerStart: off,
		end:         -1,
	}

	if parent != nil {
		p.parent = parent.id
		p.depth = parent.depth + 1
		parent.children = append(parent.children, p.id)
	}
	m.parts = append(m.parts, p)

	block := m.readHeader(p, parent)
	h, err := header.Parse(block)
	if err != nil {
		m.recovered(p, p.headerStart, err)
	}
	if h == nil {
		h = header.New(header.Meh)
	}
	p.header = h

	p.seek = lineScan{off: p.bodyStart}
	m.classify(p)
	return p
}

// readHeader collects the header block of p and sets the start of its body.
// The header stops at a blank line, which belongs to the header, or before a
// delimiter of an open container, the end of input or the length limit. When
// the first line is not a header field, the part has no header at all.
func (m *Message) readHeader(p, from *Part) []byte {
	var (
		block []byte
		off   = p.headerStart
		mid   bool
	)

	for {
		line, err := m.lineAt(off)
		if err != nil {
			m.fail(err)
			p.bodyStart = off
			return block
		}

		cont := mid
		mid = scanner.BreakLen(line) == 0
		if !cont {
			switch {
			case from != nil && m.matchBound(line, from) != nil:
				p.bodyStart = off
				return block
			case len(scanner.TrimBreak(line)) == 0:
				p.bodyStart = off + int64(len(line))
				return block
			case off == p.headerStart && !m.startsHeader(off):
				p.bodyStart = off
				return block
			}
		}

		if limit := m.cfg.maxHeaderLen; limit > 0 && len(block)+len(line) > limit {
			m.recovered(p, off, ErrLargeHeader)
			p.bodyStart = off
			return block
		}

		block = append(block, line...)
		off += int64(len(line))
	}
}

// classify decides whether p is split into parts and how its content is
// decoded.
func (m *Message) classify(p *Part) {
	if p.IsMultipart() {
		b := p.header.Parameter(header.ContentType, param.Boundary, "")
		switch {
		case b == "":
			m.recovered(p, p.headerStart, ErrMissingBoundary)
		case m.cfg.maxDepth >= 0 && p.depth >= m.cfg.maxDepth:
		default:
			p.bound = []byte("--" + b)
			p.scan = &scanState{cur: NoPart}
		}
	}

	p.recipe = m.recipeFor(p)
}
