package transfer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"mime/quotedprintable"
)

// qpDecoder is a forgiving quoted-printable decoder. An "=" that does not start
// a valid escape or soft line break is passed through literally.
type qpDecoder struct {
	br    *bufio.Reader
	line  []byte
	carry []byte
	dec   []byte
	out   []byte
	err   error
}

// NewQuotedPrintableDecoder will read bytes from the given io.Reader and return
// them in the returned io.Reader after decoding them from quoted-printable
// format.
//
// Both modes drop whitespace at the end of a line and join lines ending in a
// soft line break. In lenient mode malformed escapes are kept as they are; in
// strict mode they are a *DecodeError.
func NewQuotedPrintableDecoder(r io.Reader, strict bool) io.Reader {
	if strict {
		return newStrictReader(QuotedPrintable, r, func(in io.Reader) io.Reader {
			return quotedprintable.NewReader(in)
		})
	}
	return &qpDecoder{br: bufio.NewReader(r)}
}

func (d *qpDecoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(d.out) == 0 {
		if d.err != nil {
			return 0, d.err
		}

		chunk, err := d.br.ReadSlice('\n')
		d.line = append(append(d.line[:0], d.carry...), chunk...)
		d.carry = d.carry[:0]
		d.dec = d.dec[:0]

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			d.decodeFragment()
		case err != nil:
			d.decodeLine(d.line)
			d.err = err
		default:
			d.decodeLine(d.line)
		}

		d.out = d.dec
	}

	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

func isQPSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// decodeFragment decodes a piece of a line too long for the buffer. Trailing
// whitespace and a trailing partial escape are held back, since they mean
// something different at the end of the line.
func (d *qpDecoder) decodeFragment() {
	keep := len(d.line)
	for keep > 0 && isQPSpace(d.line[keep-1]) {
		keep--
	}

	if i := bytes.LastIndexByte(d.line[:keep], '='); i >= 0 && i >= keep-2 {
		keep = i
	}

	d.carry = append(d.carry, d.line[keep:]...)
	d.unescape(d.line[:keep])
}

// decodeLine decodes a complete line, including its line break if it has one.
func (d *qpDecoder) decodeLine(line []byte) {
	var lbr []byte
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		lbr = line[len(line)-2:]
	case bytes.HasSuffix(line, []byte("\n")):
		lbr = line[len(line)-1:]
	}

	body := bytes.TrimRightFunc(line[:len(line)-len(lbr)], func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r'
	})

	if bytes.HasSuffix(body, []byte("=")) {
		d.unescape(body[:len(body)-1])
		return
	}

	d.unescape(body)
	d.dec = append(d.dec, lbr...)
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (d *qpDecoder) unescape(b []byte) {
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == '=' && i+2 < len(b) {
			hi, okHi := unhex(b[i+1])
			lo, okLo := unhex(b[i+2])
			if okHi && okLo {
				d.dec = append(d.dec, hi<<4|lo)
				i += 2
				continue
			}
		}
		d.dec = append(d.dec, c)
	}
}
