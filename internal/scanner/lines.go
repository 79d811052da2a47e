package scanner

import (
	"bufio"
	"bytes"
	"io"
)

// MaxFragment is the longest token ScanLinesWithBreaks returns for a line
// that has no line break yet. Longer lines come back in pieces.
const MaxFragment = 8192

// ScanLinesWithBreaks is a bufio.SplitFunc like bufio.ScanLines, except that
// the returned tokens keep their CRLF or LF terminator, so the sum of token
// lengths is the number of bytes consumed. Lines longer than MaxFragment are
// returned in fragments; only the last one ends with the terminator.
func ScanLinesWithBreaks(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		if i+1 > MaxFragment {
			return MaxFragment, data[:MaxFragment], nil
		}
		return i + 1, data[:i+1], nil
	}

	if len(data) >= MaxFragment {
		return MaxFragment, data[:MaxFragment], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// NewLineScanner returns a bufio.Scanner reading r with split, sized so that
// MaxFragment tokens always fit.
func NewLineScanner(r io.Reader, split bufio.SplitFunc) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxFragment+1)
	sc.Split(split)
	return sc
}

// TrimBreak returns line without its trailing CRLF or LF.
func TrimBreak(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// BreakLen returns the length of the CRLF or LF that ends line, or 0.
func BreakLen(line []byte) int {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return 2
	case bytes.HasSuffix(line, []byte{'\n'}):
		return 1
	default:
		return 0
	}
}
