package transfer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/zostay/go-mimetree/internal/scanner"
)

// Errors reported by the strict uudecoder, wrapped in a *DecodeError.
var (
	ErrMissingBegin = errors.New("no begin line")
	ErrMissingEnd   = errors.New("no end line")
	ErrShortLine    = errors.New("line shorter than its length prefix")
	ErrBadCharacter = errors.New("character outside the uuencode alphabet")
)

const (
	uuSeekingBegin = iota
	uuInBody
	uuDone
)

// uuDecoder decodes the first uuencoded block found in its input.
type uuDecoder struct {
	sc     *bufio.Scanner
	strict bool
	state  int
	off    int64
	mid    bool
	dec    []byte
	out    []byte
	err    error
}

// NewUUDecoder returns a reader that skips ahead to the first "begin" line in
// r, decodes the length-prefixed lines that follow and stops at the "end"
// line. Anything after the block is ignored.
//
// In lenient mode short lines are padded with zero bits and unexpected
// characters are decoded as if they were in range. In strict mode either is a
// *DecodeError, as is input with no begin line or no end line.
func NewUUDecoder(r io.Reader, strict bool) io.Reader {
	return &uuDecoder{
		sc:     scanner.NewLineScanner(r, scanner.ScanLinesWithBreaks),
		strict: strict,
	}
}

// IsBeginLine returns true if line, without its line break, is a uuencode
// begin line of the form "begin <octal mode> <name>".
func IsBeginLine(line []byte) bool {
	_, _, ok := ParseBeginLine(line)
	return ok
}

// ParseBeginLine splits a uuencode begin line into its permission mode and
// file name. The mode must be three or four octal digits.
func ParseBeginLine(line []byte) (mode uint32, name string, ok bool) {
	line = scanner.TrimBreak(line)
	rest, found := bytes.CutPrefix(line, []byte("begin "))
	if !found {
		return 0, "", false
	}

	digits, fn, found := bytes.Cut(rest, []byte{' '})
	if !found || len(digits) < 3 || len(digits) > 4 {
		return 0, "", false
	}

	for _, c := range digits {
		if c < '0' || c > '7' {
			return 0, "", false
		}
		mode = mode<<3 | uint32(c-'0')
	}

	fn = bytes.TrimSpace(fn)
	if len(fn) == 0 {
		return 0, "", false
	}

	return mode, string(fn), true
}

// IsEndLine returns true if line, without its line break and trailing
// whitespace, is the uuencode end line.
func IsEndLine(line []byte) bool {
	return bytes.Equal(bytes.TrimRight(scanner.TrimBreak(line), " \t"), []byte("end"))
}

func (d *uuDecoder) fail(err error) {
	if d.strict {
		d.err = &DecodeError{Encoding: UUEncode, Offset: d.off, Err: err}
	}
}

func (d *uuDecoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(d.out) == 0 {
		if d.err != nil {
			return 0, d.err
		}

		if d.state == uuDone {
			d.err = io.EOF
			continue
		}

		if !d.sc.Scan() {
			switch {
			case d.sc.Err() != nil:
				d.err = d.sc.Err()
			case d.state == uuSeekingBegin:
				d.fail(ErrMissingBegin)
			default:
				d.fail(ErrMissingEnd)
			}

			if d.err == nil {
				d.err = io.EOF
			}
			continue
		}

		line := d.sc.Bytes()
		wasMid := d.mid
		d.mid = scanner.BreakLen(line) == 0
		d.off += int64(len(line))

		// fragments of overlong lines are never begin, end or data lines
		if wasMid {
			continue
		}

		d.dec = d.dec[:0]
		d.decodeLine(line)
		d.out = d.dec
	}

	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

func (d *uuDecoder) decodeLine(line []byte) {
	switch d.state {
	case uuSeekingBegin:
		if IsBeginLine(line) {
			d.state = uuInBody
		}
		return
	case uuInBody:
		if IsEndLine(line) {
			d.state = uuDone
			return
		}
	}

	data := scanner.TrimBreak(line)
	if len(data) == 0 {
		return
	}

	n := int((data[0] - ' ') & 0x3f)
	if n == 0 {
		return
	}

	chars := data[1:]
	need := (n + 2) / 3 * 4
	if len(chars) < need {
		d.fail(ErrShortLine)
		if d.err != nil {
			return
		}
	}

	var quad [4]byte
	for i := 0; i < need && n > 0; i += 4 {
		for j := range quad {
			quad[j] = 0
			if i+j < len(chars) {
				c := chars[i+j]
				if c < ' ' || c > '`' {
					d.fail(fmt.Errorf("%w: %q", ErrBadCharacter, c))
					if d.err != nil {
						return
					}
				}
				quad[j] = (c - ' ') & 0x3f
			}
		}

		b := [3]byte{
			quad[0]<<2 | quad[1]>>4,
			quad[1]<<4 | quad[2]>>2,
			quad[2]<<6 | quad[3],
		}

		take := min(n, 3)
		d.dec = append(d.dec, b[:take]...)
		n -= take
	}
}
