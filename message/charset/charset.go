// Package charset converts decoded text between character sets. Names are
// resolved through the IANA and WHATWG registries, so the labels seen in real
// mail ("latin1", "utf8", "x-sjis") all work.
package charset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	netcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Commonly used charset names.
const (
	UTF8     = "UTF-8"
	ISO88591 = "ISO-8859-1"
	USASCII  = "US-ASCII"
)

// UnknownCharsetError is returned when a charset label cannot be resolved to
// an encoding.
type UnknownCharsetError struct {
	Charset string
}

// Error returns the error message.
func (err *UnknownCharsetError) Error() string {
	return fmt.Sprintf("unknown charset %q", err.Charset)
}

// Lookup resolves a charset label to an encoding and its canonical name. The
// MIME and IANA registries are consulted first, then the WHATWG labels used by
// browsers.
func Lookup(label string) (encoding.Encoding, string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, "", &UnknownCharsetError{label}
	}

	for _, idx := range []*ianaindex.Index{ianaindex.MIME, ianaindex.IANA} {
		if enc, err := idx.Encoding(label); err == nil && enc != nil {
			return enc, nameOf(enc, label), nil
		}
	}

	if enc, err := htmlindex.Get(label); err == nil && enc != nil {
		return enc, nameOf(enc, label), nil
	}

	if enc, name := netcharset.Lookup(label); enc != nil {
		return enc, nameOf(enc, name), nil
	}

	return nil, "", &UnknownCharsetError{label}
}

// nameOf prefers the MIME name of an encoding, then its IANA name.
func nameOf(enc encoding.Encoding, label string) string {
	for _, idx := range []*ianaindex.Index{ianaindex.MIME, ianaindex.IANA} {
		if name, err := idx.Name(enc); err == nil && name != "" {
			return name
		}
	}
	return strings.ToUpper(label)
}

// Canonical returns the registered name for label, or label in upper case
// when it is unknown.
func Canonical(label string) string {
	if _, name, err := Lookup(label); err == nil {
		return name
	}
	return strings.ToUpper(strings.TrimSpace(label))
}

// Equal reports whether two labels name the same charset.
func Equal(a, b string) bool {
	return strings.EqualFold(Canonical(a), Canonical(b))
}

// IsUTF8 reports whether label names UTF-8.
func IsUTF8(label string) bool {
	return Equal(label, UTF8)
}

// NewReader returns a reader converting r from one charset to another. An
// empty to, or a to naming the same charset as from, returns r unchanged.
//
// Characters that the target cannot represent are replaced, unless strict is
// set, in which case the read fails.
func NewReader(r io.Reader, from, to string, strict bool) (io.Reader, error) {
	if to == "" || Equal(from, to) {
		return r, nil
	}

	src, _, err := Lookup(from)
	if err != nil {
		return nil, err
	}

	if IsUTF8(to) {
		return transform.NewReader(r, src.NewDecoder()), nil
	}

	dst, _, err := Lookup(to)
	if err != nil {
		return nil, err
	}

	enc := dst.NewEncoder()
	if !strict {
		enc = encoding.ReplaceUnsupported(enc)
	}

	return transform.NewReader(r, transform.Chain(src.NewDecoder(), enc)), nil
}

// errReader fails every read with err.
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// ErrReader returns a reader that always fails with err. It lets a conversion
// that cannot be set up report the problem at the first read.
func ErrReader(err error) io.Reader {
	return errReader{err}
}

// IsUnknown reports whether err is an *UnknownCharsetError.
func IsUnknown(err error) bool {
	var uce *UnknownCharsetError
	return errors.As(err, &uce)
}
