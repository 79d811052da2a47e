package message

import (
	"os"
	"strings"

	"github.com/zostay/go-mimetree/message/header"
	"github.com/zostay/go-mimetree/message/header/field"
	"github.com/zostay/go-mimetree/message/header/param"
	"github.com/zostay/go-mimetree/message/transfer"
)

// Part is one node of the message tree: the whole message, a part of a
// multipart container or a uuencoded attachment found in plain text.
//
// The header of a part is read when the part is discovered. Its children and
// the end of its content are found as they are asked for.
type Part struct {
	m        *Message
	id       PartID
	parent   PartID
	depth    int
	children []PartID

	header      *header.Header
	headerStart int64
	bodyStart   int64
	end         int64
	truncated   bool
	errs        []error

	bound []byte
	scan  *scanState
	seek  lineScan

	recipe    Recipe
	uu        bool
	uuMode    uint32
	uuScanned bool

	content *ContentReader
	raw     *RawReader
}

// ID returns the ID of the part within its Message.
func (p *Part) ID() PartID {
	return p.id
}

// Message returns the parse session the part belongs to.
func (p *Part) Message() *Message {
	return p.m
}

// Depth returns how deep the part is nested. The root is at depth 0.
func (p *Part) Depth() int {
	return p.depth
}

// Parent returns the containing part, or nil for the root.
func (p *Part) Parent() *Part {
	return p.m.Part(p.parent)
}

// Root returns the top-level part of the message.
func (p *Part) Root() *Part {
	return p.m.Root()
}

// Header returns the tokenized header of the part. A part without a header
// returns an empty one.
func (p *Part) Header() *header.Header {
	return p.header
}

// Headers returns the header fields of the part in order.
func (p *Part) Headers() []*field.Field {
	return p.header.ListFields()
}

// HeaderValue returns the body of the first header field with the given
// name, matched case-insensitively, or def if there is none.
func (p *Part) HeaderValue(name, def string) string {
	return p.header.Value(name, def)
}

// HeaderParameter returns a parameter of the first header field with the
// given name, or def if either is missing.
func (p *Part) HeaderParameter(name, paramName, def string) string {
	return p.header.Parameter(name, paramName, def)
}

// ContentType returns the lowercase media type of the part, defaulting to
// text/plain.
func (p *Part) ContentType() string {
	return p.ContentTypeOr("text/plain")
}

// ContentTypeOr returns the lowercase media type of the part, or def when the
// part has none.
func (p *Part) ContentTypeOr(def string) string {
	mt, err := p.header.GetMediaType()
	mt = strings.ToLower(strings.TrimSpace(mt))
	if err != nil || mt == "" {
		return def
	}
	return mt
}

// Charset returns the uppercase charset of the part. A text/plain or
// text/html part without one, or with the charset "binary", is ISO-8859-1.
// Anything else without a charset is binary and this returns "".
func (p *Part) Charset() string {
	cs, declared := p.declaredCharset()
	if declared {
		return strings.ToUpper(cs)
	}

	switch p.ContentType() {
	case "text/plain", "text/html":
		return "ISO-8859-1"
	}
	return ""
}

// TransferEncoding returns the canonical Content-Transfer-Encoding of the
// part, defaulting to 7bit. Aliases such as "uue" are normalized.
func (p *Part) TransferEncoding() string {
	return p.TransferEncodingOr(transfer.Bit7)
}

// TransferEncodingOr returns the canonical Content-Transfer-Encoding of the
// part, or def when the part has none.
func (p *Part) TransferEncodingOr(def string) string {
	cte := transfer.Canonical(p.header.Value(header.ContentTransferEncoding, ""))
	if cte == "" {
		return transfer.Canonical(def)
	}
	return cte
}

// Disposition returns the lowercase Content-Disposition of the part,
// defaulting to inline.
func (p *Part) Disposition() string {
	return p.DispositionOr("inline")
}

// DispositionOr returns the lowercase Content-Disposition of the part, or def
// when the part has none.
func (p *Part) DispositionOr(def string) string {
	d, err := p.header.GetPresentation()
	d = strings.ToLower(strings.TrimSpace(d))
	if err != nil || d == "" {
		return def
	}
	return d
}

// Filename returns the filename parameter of the Content-Disposition, or the
// name parameter of the Content-Type, with encoded-words decoded. It returns
// "" if the part has neither.
func (p *Part) Filename() string {
	fn := p.header.Parameter(header.ContentDisposition, param.Filename, "")
	if fn == "" {
		fn = p.header.Parameter(header.ContentType, param.Name, "")
	}

	dec, _ := header.DecodeWords(fn)
	return dec
}

// IsMultipart returns true for multipart/* parts, whether or not they could
// be split.
func (p *Part) IsMultipart() bool {
	return strings.HasPrefix(p.ContentType(), "multipart/")
}

// IsText returns true when the part has a charset.
func (p *Part) IsText() bool {
	return p.Charset() != ""
}

// ContentID returns the Content-ID of the part without its angle brackets,
// or "".
func (p *Part) ContentID() string {
	id, _ := p.header.GetContentID()
	return id
}

// IsSignaturePart returns true for the second part of a message whose top
// level is multipart/signed. Signed parts nested deeper are not considered.
func (p *Part) IsSignaturePart() bool {
	root := p.m.Root()
	if p.parent != root.id || root.ContentType() != "multipart/signed" {
		return false
	}

	p.m.lock()
	defer p.m.unlock()
	return len(root.children) > 1 && root.children[1] == p.id
}

// IsUUEncoded returns true for the parts made from uuencoded blocks found in
// plain text.
func (p *Part) IsUUEncoded() bool {
	return p.uu
}

// UnixMode returns the file permissions given on the begin line of a
// uuencoded part, or 0 for other parts.
func (p *Part) UnixMode() os.FileMode {
	return os.FileMode(p.uuMode).Perm()
}

// Recipe returns how the content of the part is decoded.
func (p *Part) Recipe() Recipe {
	return p.recipe
}

// Errors returns the problems the parser recovered from while reading this
// part, such as malformed header lines or a missing close delimiter.
func (p *Part) Errors() []error {
	p.m.lock()
	defer p.m.unlock()

	errs := make([]error, len(p.errs))
	copy(errs, p.errs)
	return errs
}

// Truncated returns true if the end of input cut the part off before the
// multipart containing it was closed. Only parts whose end has been found
// can be known to be truncated.
func (p *Part) Truncated() bool {
	p.m.lock()
	defer p.m.unlock()
	return p.truncated
}

// HeaderOffset returns the offset in the input where the header starts.
func (p *Part) HeaderOffset() int64 {
	return p.headerStart
}

// BodyOffset returns the offset in the input where the content starts.
func (p *Part) BodyOffset() int64 {
	return p.bodyStart
}

// EndOffset returns the offset in the input just past the content. The
// content ends before the line break preceding the delimiter that follows
// it. This scans as far as necessary to find the end. It returns -1 if the
// end cannot be found because the input failed; see Message.Err.
func (p *Part) EndOffset() int64 {
	p.m.lock()
	defer p.m.unlock()

	p.m.finish(p)
	return p.end
}
