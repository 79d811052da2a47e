package header

import "bytes"

// Break represents the line break used by a header block.
type Break string

// The line breaks a header block may use.
const (
	Meh  Break = ""         // no line break seen
	CRLF Break = "\x0d\x0a" // \r\n - Network linebreak
	LF   Break = "\x0a"     // \n - Unix/Linux/BSD linebreak
	CR   Break = "\x0d"     // \r - Commodores/old Macs linebreak
)

// String returns the break as a string.
func (b Break) String() string {
	return string(b)
}

// Bytes returns the break as a slice of bytes.
func (b Break) Bytes() []byte {
	return []byte(b)
}

// DetectBreak returns the line break that ends the first line of m.
func DetectBreak(m []byte) Break {
	i := bytes.IndexAny(m, "\r\n")
	switch {
	case i < 0:
		return Meh
	case m[i] == '\n':
		return LF
	case i+1 < len(m) && m[i+1] == '\n':
		return CRLF
	default:
		return CR
	}
}
