package header

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/zostay/go-addr/pkg/addr"

	"github.com/zostay/go-mimetree/message/charset"
	"github.com/zostay/go-mimetree/message/header/param"
)

// Errors returned by various header methods and functions.
var (
	// ErrNoSuchField is returned by Header methods when the operation
	// being performed failed because the header named does not exist.
	ErrNoSuchField = errors.New("no such header field")

	// ErrNoSuchFieldParameter is returned by Header methods when the
	// operation being performed failed because the header exists, but a
	// sub-field of the header does not exist.
	ErrNoSuchFieldParameter = errors.New("no such header field parameter")
)

// Names of the fields the parser cares about, plus a few common ones.
const (
	Cc                      = "Cc"
	ContentDisposition      = "Content-disposition"
	ContentID               = "Content-id"
	ContentTransferEncoding = "Content-transfer-encoding"
	ContentType             = "Content-type"
	Date                    = "Date"
	From                    = "From"
	MessageID               = "Message-id"
	Subject                 = "Subject"
	To                      = "To"
)

// Even more custom date formats, built from those seen in the wild that the
// usual parsers have trouble with.
const (
	// UnixDateWithEarlyYear is a weird one, eh?
	UnixDateWithEarlyYear = "Mon Jan 02 15:04:05 2006 MST"
)

// Header is the read-only, tokenized header of one part. Lookups are
// case-insensitive and return the first matching field.
type Header struct {
	// Base provides the low-level storage of header fields.
	Base

	mu sync.Mutex

	// valueCache holds parsed values keyed by lowercase field name. Only
	// values that are never modified after being stored may go in here.
	valueCache map[string]any
}

func (h *Header) getValue(name string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, found := h.valueCache[strings.ToLower(name)]
	return v, found
}

func (h *Header) setValue(name string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.valueCache == nil {
		h.valueCache = make(map[string]any, h.Len())
	}
	h.valueCache[strings.ToLower(name)] = value
}

// Get returns the body of the first field with the given name, or
// ErrNoSuchField.
func (h *Header) Get(name string) (string, error) {
	f := h.GetFieldNamed(name, 0)
	if f == nil {
		return "", ErrNoSuchField
	}
	return f.Body(), nil
}

// Value returns the body of the first field with the given name, or def when
// the header has no such field.
func (h *Header) Value(name, def string) string {
	if v, err := h.Get(name); err == nil {
		return v
	}
	return def
}

// GetAll returns the bodies of every field with the given name, in order. It
// returns ErrNoSuchField when there are none.
func (h *Header) GetAll(name string) ([]string, error) {
	fs := h.GetAllFieldsNamed(name)
	if len(fs) == 0 {
		return nil, ErrNoSuchField
	}

	bs := make([]string, len(fs))
	for i, f := range fs {
		bs[i] = f.Body()
	}
	return bs, nil
}

// getParamValue parses the named field as a param.Value. Malformed parameter
// fragments do not prevent the value from being cached and returned.
func (h *Header) getParamValue(name string) (*param.Value, error) {
	body, err := h.Get(name)
	if err != nil {
		return nil, err
	}

	pv, _ := param.Parse(body)
	h.setValue(name, pv)

	return pv, nil
}

// GetParamValue returns the first field with the given name parsed as a
// parameterized value. It returns ErrNoSuchField if there is no such field.
func (h *Header) GetParamValue(name string) (*param.Value, error) {
	v, found := h.getValue(name)
	if !found {
		return h.getParamValue(name)
	}

	pv, isPV := v.(*param.Value)
	if !isPV {
		return h.getParamValue(name)
	}

	// return a copy to prevent the cached value from being modified
	return pv.Clone(), nil
}

// GetParameter returns the named parameter of the named field. It returns
// ErrNoSuchField if the field is missing and ErrNoSuchFieldParameter if the
// parameter is.
func (h *Header) GetParameter(name, p string) (string, error) {
	pv, err := h.GetParamValue(name)
	if err != nil {
		return "", err
	}

	v, ok := pv.Lookup(p)
	if !ok {
		return "", ErrNoSuchFieldParameter
	}
	return v, nil
}

// Parameter is GetParameter with a default in place of the errors.
func (h *Header) Parameter(name, p, def string) string {
	if v, err := h.GetParameter(name, p); err == nil {
		return v
	}
	return def
}

// GetMediaType returns the primary value of the Content-Type field.
func (h *Header) GetMediaType() (string, error) {
	pv, err := h.GetParamValue(ContentType)
	if err != nil {
		return "", err
	}
	return pv.MediaType(), nil
}

// GetCharset returns the charset parameter of the Content-Type field.
func (h *Header) GetCharset() (string, error) {
	return h.GetParameter(ContentType, param.Charset)
}

// GetBoundary returns the boundary parameter of the Content-Type field.
func (h *Header) GetBoundary() (string, error) {
	return h.GetParameter(ContentType, param.Boundary)
}

// GetPresentation returns the primary value of the Content-Disposition field.
func (h *Header) GetPresentation() (string, error) {
	pv, err := h.GetParamValue(ContentDisposition)
	if err != nil {
		return "", err
	}
	return pv.Presentation(), nil
}

// GetFilename returns the filename parameter of the Content-Disposition field.
func (h *Header) GetFilename() (string, error) {
	return h.GetParameter(ContentDisposition, param.Filename)
}

// GetTransferEncoding returns the Content-Transfer-Encoding field.
func (h *Header) GetTransferEncoding() (string, error) {
	return h.Get(ContentTransferEncoding)
}

// GetContentID returns the Content-ID field without its angle brackets.
func (h *Header) GetContentID() (string, error) {
	id, err := h.Get(ContentID)
	if err != nil {
		return "", err
	}
	return TrimAngles(id), nil
}

// TrimAngles removes surrounding whitespace and one pair of enclosing angle
// brackets from a message or content identifier.
func TrimAngles(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return strings.TrimSpace(id)
}

// ParseTime parses a date field body. RFC 5322 syntax is tried first, then
// the many formats dateparse knows about.
func ParseTime(body string) (time.Time, error) {
	t, err := mail.ParseDate(body)
	if err == nil {
		return t, nil
	}

	t, err = dateparse.ParseAny(body)
	if err == nil {
		return t, nil
	}

	t, err = time.Parse(UnixDateWithEarlyYear, body)
	if err == nil {
		return t, nil
	}

	return t, fmt.Errorf("time string %q cannot be parsed", body)
}

// GetTime returns the named field parsed with ParseTime.
func (h *Header) GetTime(name string) (time.Time, error) {
	if v, found := h.getValue(name); found {
		if t, isTime := v.(time.Time); isTime {
			return t, nil
		}
	}

	body, err := h.Get(name)
	if err != nil {
		return time.Time{}, err
	}

	t, err := ParseTime(body)
	if err != nil {
		return t, err
	}

	h.setValue(name, t)
	return t, nil
}

// ParseAddressList parses an address field body. If the strict parser
// rejects it, each comma separated item is turned into a mailbox whose
// address is the last word and whose display name is the rest.
func ParseAddressList(body string) addr.AddressList {
	al, err := addr.ParseEmailAddressList(body)
	if err == nil {
		return al
	}

	items := strings.Split(body, ",")
	al = make(addr.AddressList, 0, len(items))
	for _, item := range items {
		words := strings.Fields(item)
		if len(words) == 0 {
			continue
		}

		email := strings.Trim(words[len(words)-1], "<>")
		dn := strings.Join(words[:len(words)-1], " ")

		local, domain, _ := strings.Cut(email, "@")
		spec := addr.NewAddrSpecParsed(local, domain, email)
		mb, err := addr.NewMailboxParsed(dn, spec, "", item)
		if err != nil {
			continue
		}

		al = append(al, mb)
	}

	return al
}

// GetAddressList returns the named field parsed with ParseAddressList.
func (h *Header) GetAddressList(name string) (addr.AddressList, error) {
	if v, found := h.getValue(name); found {
		if al, isAddrList := v.(addr.AddressList); isAddrList {
			return al, nil
		}
	}

	body, err := h.Get(name)
	if err != nil {
		return nil, err
	}

	al := ParseAddressList(body)
	h.setValue(name, al)
	return al, nil
}

var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(cs string, input io.Reader) (io.Reader, error) {
		return charset.NewReader(input, cs, charset.UTF8, false)
	},
}

// DecodeWords decodes RFC 2047 encoded-words in a field body. On failure the
// body is returned as it was along with the error.
func DecodeWords(body string) (string, error) {
	dec, err := wordDecoder.DecodeHeader(body)
	if err != nil {
		return body, err
	}
	return dec, nil
}

// GetDecoded returns the named field with RFC 2047 encoded-words decoded.
func (h *Header) GetDecoded(name string) (string, error) {
	body, err := h.Get(name)
	if err != nil {
		return "", err
	}
	return DecodeWords(body)
}
