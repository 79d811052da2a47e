// Package field splits a raw header block into fields. It deals only with
// lines, folding and the name/value split; the meaning of values is left to
// the packages above it.
package field

import (
	"bytes"
	"fmt"
)

// Field is a single header field as it appeared in the message: a name and an
// unfolded value.
type Field struct {
	name string
	body string
	raw  Line
}

// New returns a field with the given name and body. It has no raw form.
func New(name, body string) *Field {
	return &Field{name: name, body: body}
}

// Name returns the name of the header field as written in the message.
func (f *Field) Name() string {
	return f.name
}

// Body returns the unfolded value of the field with surrounding whitespace
// removed.
func (f *Field) Body() string {
	return f.body
}

// Raw returns the field's original bytes, including folding and the line
// break. It is nil for fields made with New.
func (f *Field) Raw() []byte {
	return f.raw
}

// String returns the field as "Name: body".
func (f *Field) String() string {
	return fmt.Sprintf("%s: %s", f.name, f.body)
}

// Line is the raw content of one logical field: the first physical line plus
// its continuation lines.
type Line []byte

// Lines is zero or more Line values.
type Lines []Line

// MalformedHeaderError reports the physical lines of a header block that
// could not be read as part of any field. Those lines are dropped; the rest of
// the block is still parsed.
type MalformedHeaderError struct {
	Skipped [][]byte
}

// Error returns the error message.
func (err *MalformedHeaderError) Error() string {
	return fmt.Sprintf("skipped %d malformed header line(s)", len(err.Skipped))
}

// splitPhysical splits m after each LF. A CR that is not followed by LF also
// ends a line.
func splitPhysical(m []byte) [][]byte {
	lines := make([][]byte, 0, len(m)/60+1)
	for len(m) > 0 {
		i := bytes.IndexAny(m, "\r\n")
		if i < 0 {
			lines = append(lines, m)
			break
		}

		end := i + 1
		if m[i] == '\r' && end < len(m) && m[end] == '\n' {
			end++
		}

		lines = append(lines, m[:end])
		m = m[end:]
	}
	return lines
}

func isContinuation(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// LooksLikeField reports whether line starts a new header field: it has a
// non-empty name made of printable characters other than space, followed by
// a colon.
func LooksLikeField(line []byte) bool {
	ix := bytes.IndexByte(line, ':')
	if ix < 1 {
		return false
	}

	name := bytes.TrimRight(line[:ix], " \t")
	if len(name) == 0 {
		return false
	}

	for _, c := range name {
		if c <= ' ' || c >= 0x7f {
			return false
		}
	}

	return true
}

// isBlank reports whether line holds nothing but its line break.
func isBlank(line []byte) bool {
	return len(bytes.TrimRight(line, "\r\n")) == 0
}

// ParseLines splits a header block into logical field lines. A line that
// begins with a space or tab continues the field before it. Blank lines are
// ignored. Any other line that does not look like "name:" is skipped and
// reported in a *MalformedHeaderError, which is returned along with the fields
// that could be read.
func ParseLines(m []byte) (Lines, error) {
	h := make(Lines, 0, len(m)/80+1)

	var err *MalformedHeaderError
	skip := func(line []byte) {
		if err == nil {
			err = &MalformedHeaderError{}
		}
		err.Skipped = append(err.Skipped, line)
	}

	for _, line := range splitPhysical(m) {
		switch {
		case isBlank(line):
			continue
		case isContinuation(line):
			if len(h) == 0 {
				skip(line)
				continue
			}
			last := len(h) - 1
			h[last] = append(h[last][:len(h[last]):len(h[last])], line...)
		case LooksLikeField(line):
			h = append(h, Line(line))
		default:
			skip(line)
		}
	}

	if err != nil {
		return h, err
	}
	return h, nil
}

// unfold joins the physical lines of f, replacing each line break and the
// leading whitespace of the next line with a single space.
func unfold(f []byte) []byte {
	lines := splitPhysical(f)
	out := make([]byte, 0, len(f))
	for i, line := range lines {
		line = bytes.TrimRight(line, "\r\n")
		if i > 0 {
			line = bytes.TrimLeft(line, " \t")
			out = append(out, ' ')
		}
		out = append(out, line...)
	}
	return out
}

// Parse turns a logical field line into a Field. The name is everything
// before the first colon; the body is the unfolded remainder with surrounding
// whitespace trimmed.
func Parse(f Line) *Field {
	unfolded := unfold(f)

	var name, body []byte
	if ix := bytes.IndexByte(unfolded, ':'); ix >= 0 {
		name, body = unfolded[:ix], unfolded[ix+1:]
	} else {
		name = unfolded
	}

	return &Field{
		name: string(bytes.TrimSpace(name)),
		body: string(bytes.TrimSpace(body)),
		raw:  f,
	}
}
