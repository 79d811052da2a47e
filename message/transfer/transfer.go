package transfer

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	None            = ""                 // bytes will be left as-is
	Bit7            = "7bit"             // bytes will be left as-is
	Bit8            = "8bit"             // bytes will be left as-is
	Binary          = "binary"           // bytes will be left as-is
	QuotedPrintable = "quoted-printable" // bytes will be decoded from quoted-printable
	Base64          = "base64"           // bytes will be decoded from base64
	UUEncode        = "x-uuencode"       // bytes will be decoded from a uuencoded block
)

// aliases maps nonstandard names for a transfer encoding to the name used by
// Decoders.
var aliases = map[string]string{
	"uue":        UUEncode,
	"x-uue":      UUEncode,
	"uuencode":   UUEncode,
	"x-uuencode": UUEncode,
}

// Canonical returns the lowercased, trimmed form of a Content-Transfer-Encoding
// value with the known aliases resolved.
func Canonical(cte string) string {
	cte = strings.ToLower(strings.TrimSpace(cte))
	if c, isAlias := aliases[cte]; isAlias {
		return c
	}
	return cte
}

// IsIdentity returns true if the named transfer encoding leaves bytes as-is.
func IsIdentity(cte string) bool {
	_, transforms := Decoders[Canonical(cte)]
	return !transforms
}

// DecoderFunc returns an io.Reader that decodes what it reads from r. When
// strict is true, malformed input ends the stream with a *DecodeError.
type DecoderFunc func(r io.Reader, strict bool) io.Reader

// Decoders defines the transfer encodings that transform content and how to
// decode them. Names not present here are treated as identity encodings. It
// can be modified to change the global handling of transfer encodings, but
// only before any parsing starts.
var Decoders = map[string]DecoderFunc{
	QuotedPrintable: NewQuotedPrintableDecoder,
	Base64:          NewBase64Decoder,
	UUEncode:        NewUUDecoder,
}

// NewDecoder returns a reader that decodes r according to the named transfer
// encoding, which need not be canonical.
func NewDecoder(cte string, r io.Reader, strict bool) io.Reader {
	if dec, ok := Decoders[Canonical(cte)]; ok {
		return dec(r, strict)
	}
	return NewAsIsDecoder(r, strict)
}

// DecodeError is returned by strict decoders when the encoded data is
// malformed.
type DecodeError struct {
	// Encoding is the canonical transfer encoding being decoded.
	Encoding string

	// Offset is the number of encoded bytes consumed when the problem was
	// found.
	Offset int64

	// Err describes the problem.
	Err error
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decoding failed near encoded byte %d: %v", e.Encoding, e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// strictReader turns any failure other than io.EOF from the decoder it wraps
// into a *DecodeError.
type strictReader struct {
	encoding string
	in       *countingReader
	dec      io.Reader
	err      error
}

func newStrictReader(encoding string, r io.Reader, wrap func(io.Reader) io.Reader) io.Reader {
	in := &countingReader{r: r}
	return &strictReader{encoding: encoding, in: in, dec: wrap(in)}
}

func (s *strictReader) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	n, err := s.dec.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &DecodeError{Encoding: s.encoding, Offset: s.in.n, Err: err}
		}
		s.err = err
	}
	return n, err
}
