package charset

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/gogs/chardet"
)

// DetectSampleSize is how much of a stream NewDetectingReader inspects.
const DetectSampleSize = 2048

// trimPartialRune drops an incomplete UTF-8 sequence from the end of b, which
// happens when a sample is cut in the middle of a character.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < utf8.RuneSelf {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

// Detect guesses the charset of sample. Valid UTF-8 (including plain ASCII)
// is reported as UTF-8 without consulting the detector.
func Detect(sample []byte) (string, error) {
	if utf8.Valid(trimPartialRune(sample)) {
		return UTF8, nil
	}

	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		return "", err
	}

	return Canonical(res.Charset), nil
}

// detectingReader defers detection to the first read.
type detectingReader struct {
	r        io.Reader
	to       string
	fallback string
	strict   bool
	out      io.Reader
}

// NewDetectingReader is like NewReader for text whose charset was not
// declared. The first DetectSampleSize bytes are used to guess the source
// charset; fallback is used when the guess fails.
func NewDetectingReader(r io.Reader, to, fallback string, strict bool) io.Reader {
	return &detectingReader{r: r, to: to, fallback: fallback, strict: strict}
}

func (d *detectingReader) Read(p []byte) (int, error) {
	if d.out == nil {
		sample := make([]byte, DetectSampleSize)
		n, err := io.ReadFull(d.r, sample)
		sample = sample[:n]
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}

		from, derr := Detect(sample)
		if derr != nil {
			from = d.fallback
		}
		if _, _, lerr := Lookup(from); lerr != nil {
			from = d.fallback
		}

		rest := io.MultiReader(bytes.NewReader(sample), d.r)
		out, err := NewReader(rest, from, d.to, d.strict)
		if err != nil {
			out = ErrReader(err)
		}
		d.out = out
	}

	return d.out.Read(p)
}
