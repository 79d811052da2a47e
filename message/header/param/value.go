package param

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
)

// Parameter names with special handling.
const (
	Boundary = "boundary"
	Charset  = "charset"
	Filename = "filename"
	Name     = "name"
	Protocol = "protocol"
)

// ErrMalformedParameter is returned by Parse when some parameter fragments had
// to be skipped. The returned Value is still usable.
var ErrMalformedParameter = errors.New("malformed header parameter")

// Value is a parsed parameterized header value, such as the body of a
// Content-Type or Content-Disposition field.
type Value struct {
	v  string
	ps map[string]string
}

// New returns a Value with the given primary value and parameters. Parameter
// names are lowercased.
func New(v string, ps map[string]string) *Value {
	pv := &Value{v: v, ps: make(map[string]string, len(ps))}
	for k, val := range ps {
		pv.ps[strings.ToLower(k)] = val
	}
	return pv
}

// Parse reads a value of the form `primary; key=val; key2="val 2"`.
//
// The standard library parser is tried first since it handles RFC 2231
// continuations and charsets. When it rejects the input, a forgiving parser
// takes over: it splits on semicolons outside of quotes, strips quotes, keeps
// the first occurrence of each key and drops fragments it cannot make sense
// of. In that case the Value is returned together with an error wrapping
// ErrMalformedParameter.
func Parse(v string) (*Value, error) {
	mt, ps, err := mime.ParseMediaType(v)
	if err == nil {
		return &Value{v: mt, ps: ps}, nil
	}

	return parseLenient(v)
}

// splitUnquoted splits s at each sep outside of double quotes.
func splitUnquoted(s string, sep byte) []string {
	var (
		parts   []string
		start   int
		quoted  bool
		escaped bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && quoted:
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == sep && !quoted:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	return append(parts, s[start:])
}

// unquote strips surrounding double quotes and backslash escapes. An
// unterminated quote is tolerated.
func unquote(s string) string {
	if len(s) == 0 || s[0] != '"' {
		return s
	}

	s = s[1:]
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == '"':
			return b.String()
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func parseLenient(v string) (*Value, error) {
	fragments := splitUnquoted(v, ';')

	pv := &Value{
		v:  strings.ToLower(strings.TrimSpace(fragments[0])),
		ps: make(map[string]string, len(fragments)-1),
	}

	var skipped []string
	for _, frag := range fragments[1:] {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}

		ix := strings.IndexByte(frag, '=')
		if ix < 1 {
			skipped = append(skipped, frag)
			continue
		}

		key := strings.ToLower(strings.TrimSpace(frag[:ix]))
		if key == "" || strings.ContainsAny(key, " \t\"") {
			skipped = append(skipped, frag)
			continue
		}

		// RFC 2231 extended values that the standard parser rejected are kept
		// under their plain name when nothing better is present.
		key = strings.TrimSuffix(key, "*")

		if _, dup := pv.ps[key]; dup {
			continue
		}

		pv.ps[key] = unquote(strings.TrimSpace(frag[ix+1:]))
	}

	if len(skipped) > 0 {
		return pv, fmt.Errorf("%w: skipped %q", ErrMalformedParameter, skipped)
	}

	return pv, nil
}

// Value returns the primary value, before the first semicolon.
func (pv *Value) Value() string {
	return pv.v
}

// MediaType is a synonym for Value, for Content-Type fields.
func (pv *Value) MediaType() string {
	return pv.v
}

// Presentation is a synonym for Value, for Content-Disposition fields.
func (pv *Value) Presentation() string {
	return pv.v
}

// Type returns the part of the media type before the slash, or "" if there is
// no slash.
func (pv *Value) Type() string {
	if t, _, found := strings.Cut(pv.v, "/"); found {
		return t
	}
	return ""
}

// Subtype returns the part of the media type after the slash, or "" if there
// is no slash.
func (pv *Value) Subtype() string {
	if _, s, found := strings.Cut(pv.v, "/"); found {
		return s
	}
	return ""
}

// Parameters returns a copy of all the parameters, keyed by lowercase name.
func (pv *Value) Parameters() map[string]string {
	ps := make(map[string]string, len(pv.ps))
	for k, v := range pv.ps {
		ps[k] = v
	}
	return ps
}

// Parameter returns the named parameter, matched case-insensitively, or "".
func (pv *Value) Parameter(k string) string {
	return pv.ps[strings.ToLower(k)]
}

// Lookup is like Parameter, but reports whether the parameter is present.
func (pv *Value) Lookup(k string) (string, bool) {
	v, ok := pv.ps[strings.ToLower(k)]
	return v, ok
}

// Charset returns the charset parameter.
func (pv *Value) Charset() string {
	return pv.Parameter(Charset)
}

// Boundary returns the boundary parameter.
func (pv *Value) Boundary() string {
	return pv.Parameter(Boundary)
}

// Filename returns the filename parameter.
func (pv *Value) Filename() string {
	return pv.Parameter(Filename)
}

// Name returns the name parameter.
func (pv *Value) Name() string {
	return pv.Parameter(Name)
}

// Protocol returns the protocol parameter, as used by multipart/signed.
func (pv *Value) Protocol() string {
	return pv.Parameter(Protocol)
}

// String formats the value back into header syntax with parameters sorted by
// name. Values are quoted as MIME quoted-strings, or encoded per RFC 2231 when
// they hold bytes a quoted-string cannot carry, so the result parses back to
// the same Value.
func (pv *Value) String() string {
	if s := mime.FormatMediaType(pv.v, pv.ps); s != "" {
		return s
	}

	// FormatMediaType refuses values and names that are not tokens.
	keys := make([]string, 0, len(pv.ps))
	for k := range pv.ps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(pv.v)
	for _, k := range keys {
		b.WriteString("; ")
		b.WriteString(k)
		b.WriteString("=\"")
		for _, c := range []byte(pv.ps[k]) {
			if c == '"' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
		b.WriteByte('"')
	}
	return b.String()
}

// Clone returns a deep copy.
func (pv *Value) Clone() *Value {
	return &Value{v: pv.v, ps: pv.Parameters()}
}
