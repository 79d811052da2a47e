package message

import (
	"bufio"
	"io"

	"github.com/zostay/go-mimetree/internal/scanner"
	"github.com/zostay/go-mimetree/message/header"
	"github.com/zostay/go-mimetree/message/header/field"
	"github.com/zostay/go-mimetree/message/header/param"
	"github.com/zostay/go-mimetree/message/transfer"
)

// scanUU turns each uuencoded block in the content of p into a child part.
// A block runs from its begin line through its end line, or to the end of p
// when the end line is missing.
func (m *Message) scanUU(p *Part) {
	p.uuScanned = true

	sc := scanner.NewLineScanner(m.newRawCursor(p), scanner.ScanLinesWithBreaks)

	var (
		off  = p.bodyStart
		mid  bool
		open *Part
	)

	for sc.Scan() {
		line := sc.Bytes()
		lineOff := off
		off += int64(len(line))

		cont := mid
		mid = scanner.BreakLen(line) == 0
		if cont {
			continue
		}

		if open == nil {
			if mode, name, ok := transfer.ParseBeginLine(line); ok {
				open = m.newUUPart(p, lineOff, mode, name)
			}
		} else if transfer.IsEndLine(line) {
			open.end = off
			open = nil
		}
	}

	if err := sc.Err(); err != nil {
		m.fail(err)
	}

	if open != nil {
		open.end = off
		m.recovered(open, off, transfer.ErrMissingEnd)
	}
}

// newUUPart adds a synthetic attachment part for a uuencoded block that
// starts at off.
func (m *Message) newUUPart(parent *Part, off int64, mode uint32, name string) *Part {
	p := &Part{
		m:           m,
		id:          PartID(len(m.parts)),
		parent:      parent.id,
		depth:       parent.depth + 1,
		headerStart: off,
		bodyStart:   off,
		end:         -1,
		uu:          true,
		uuMode:      mode,
		uuScanned:   true,
	}

	p.header = header.New(parent.header.Break(),
		field.New("Content-Type", param.New("application/octet-stream", map[string]string{
			param.Name: name,
		}).String()),
		field.New("Content-Disposition", param.New("attachment", map[string]string{
			param.Filename: name,
		}).String()),
		field.New("Content-Transfer-Encoding", transfer.UUEncode),
	)

	parent.children = append(parent.children, p.id)
	m.parts = append(m.parts, p)

	p.recipe = m.recipeFor(p)
	return p
}

// uuExciser drops uuencoded blocks from a text stream, leaving the text
// around them.
type uuExciser struct {
	sc  *bufio.Scanner
	out []byte
	err error
}

func newUUExciser(r io.Reader) io.Reader {
	var inBlock, mid bool
	split := func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := scanner.ScanLinesWithBreaks(data, atEOF)
		if err != nil || token == nil {
			return advance, token, err
		}

		cont := mid
		mid = scanner.BreakLen(token) == 0

		switch {
		case cont && inBlock:
			return advance, nil, scanner.ErrContinue
		case cont:
			return advance, token, nil
		case inBlock:
			if transfer.IsEndLine(token) {
				inBlock = false
			}
			return advance, nil, scanner.ErrContinue
		case transfer.IsBeginLine(token):
			inBlock = true
			return advance, nil, scanner.ErrContinue
		}

		return advance, token, nil
	}

	return &uuExciser{
		sc: scanner.NewLineScanner(r, scanner.MakeSplitFuncExitByAdvance(split)),
	}
}

func (u *uuExciser) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(u.out) == 0 {
		if u.err != nil {
			return 0, u.err
		}

		if !u.sc.Scan() {
			u.err = u.sc.Err()
			if u.err == nil {
				u.err = io.EOF
			}
			continue
		}

		u.out = u.sc.Bytes()
	}

	n := copy(p, u.out)
	u.out = u.out[n:]
	return n, nil
}
