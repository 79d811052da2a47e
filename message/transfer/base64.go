package transfer

import (
	"encoding/base64"
	"io"
)

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Values = func() [256]byte {
	var vs [256]byte
	for i := range vs {
		vs[i] = 0xff
	}
	for i := 0; i < len(base64Alphabet); i++ {
		vs[base64Alphabet[i]] = byte(i)
	}
	return vs
}()

// base64Decoder decodes base64 one quartet at a time, carrying incomplete
// quartets over between reads. It never fails on bad data.
type base64Decoder struct {
	r   io.Reader
	buf [1024]byte
	dec []byte
	out []byte
	err error

	quad [4]byte
	nq   int
}

// NewBase64Decoder will translate all bytes read from the given io.Reader as
// base64 and return the binary data to the returned io.Reader.
//
// In lenient mode characters outside the base64 alphabet are ignored, a
// partial quartet is decoded as far as it goes when padding or the end of
// input is reached, and decoding picks up again after padding. In strict mode
// only line breaks may appear between quartets and anything else is a
// *DecodeError.
func NewBase64Decoder(r io.Reader, strict bool) io.Reader {
	if strict {
		return newStrictReader(Base64, r, func(in io.Reader) io.Reader {
			return base64.NewDecoder(base64.StdEncoding, in)
		})
	}
	return &base64Decoder{r: r}
}

func (d *base64Decoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(d.out) == 0 {
		if d.err != nil {
			return 0, d.err
		}

		d.dec = d.dec[:0]
		n, err := d.r.Read(d.buf[:])
		for _, c := range d.buf[:n] {
			d.feed(c)
		}

		if err != nil {
			d.flush()
			d.err = err
		}

		d.out = d.dec
	}

	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

func (d *base64Decoder) feed(c byte) {
	if c == '=' {
		d.flush()
		return
	}

	v := base64Values[c]
	if v == 0xff {
		return
	}

	d.quad[d.nq] = v
	d.nq++
	if d.nq == 4 {
		d.dec = append(d.dec,
			d.quad[0]<<2|d.quad[1]>>4,
			d.quad[1]<<4|d.quad[2]>>2,
			d.quad[2]<<6|d.quad[3],
		)
		d.nq = 0
	}
}

// flush decodes what it can of a partial quartet. A single leftover sextet
// does not make a byte and is dropped.
func (d *base64Decoder) flush() {
	switch d.nq {
	case 2:
		d.dec = append(d.dec, d.quad[0]<<2|d.quad[1]>>4)
	case 3:
		d.dec = append(d.dec,
			d.quad[0]<<2|d.quad[1]>>4,
			d.quad[1]<<4|d.quad[2]>>2,
		)
	}
	d.nq = 0
}
