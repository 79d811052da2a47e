package message

import (
	"io"
	"strings"

	"github.com/zostay/go-mimetree/message/charset"
	"github.com/zostay/go-mimetree/message/header"
	"github.com/zostay/go-mimetree/message/header/param"
	"github.com/zostay/go-mimetree/message/transfer"
)

// Recipe describes how the raw content of a part is turned into its decoded
// content. It is worked out from the part's own header when the part is
// discovered and never changes after that.
type Recipe struct {
	// TransferEncoding is the canonical Content-Transfer-Encoding to decode.
	TransferEncoding string

	// SourceCharset is the charset of the transfer decoded text. It is empty
	// for binary content, which is never converted.
	SourceCharset string

	// TargetCharset is the charset text is converted to. When empty, or the
	// same as SourceCharset, text is left alone.
	TargetCharset string

	// Strict makes malformed content a read error instead of something to
	// work around.
	Strict bool

	// DetectSource says the charset was not declared, so the source charset
	// is guessed from the content with SourceCharset as the fallback.
	DetectSource bool

	// ExciseUU drops uuencoded blocks, which are children of the part, from
	// the content.
	ExciseUU bool
}

// Open returns a reader of the decoded content given a reader of the raw
// content.
func (rc Recipe) Open(raw io.Reader) io.Reader {
	r := raw
	if rc.ExciseUU {
		r = newUUExciser(r)
	}

	r = transfer.NewDecoder(rc.TransferEncoding, r, rc.Strict)

	if rc.SourceCharset == "" || rc.TargetCharset == "" {
		return r
	}

	if rc.DetectSource {
		return charset.NewDetectingReader(r, rc.TargetCharset, rc.SourceCharset, rc.Strict)
	}

	cr, err := charset.NewReader(r, rc.SourceCharset, rc.TargetCharset, rc.Strict)
	if err != nil {
		if rc.Strict {
			return charset.ErrReader(err)
		}
		return r
	}
	return cr
}

// recipeFor works out the recipe for p from its header and the parse options.
func (m *Message) recipeFor(p *Part) Recipe {
	if p.IsMultipart() {
		return Recipe{TransferEncoding: transfer.None, Strict: m.cfg.strict}
	}

	rc := Recipe{
		TransferEncoding: p.TransferEncoding(),
		Strict:           m.cfg.strict,
	}

	if cs := p.Charset(); cs != "" && m.cfg.targetCharset != "" {
		rc.SourceCharset = cs
		rc.TargetCharset = m.cfg.targetCharset

		_, declared := p.declaredCharset()
		rc.DetectSource = m.cfg.detect && !declared

		if !rc.DetectSource {
			if _, _, err := charset.Lookup(cs); err != nil {
				m.recovered(p, p.headerStart, err)
			}
		}
	}

	rc.ExciseUU = m.cfg.uuencode &&
		p.scan == nil &&
		p.ContentType() == "text/plain" &&
		transfer.IsIdentity(rc.TransferEncoding)

	return rc
}

// declaredCharset returns the charset parameter of the Content-type, if it
// is there and means something.
func (p *Part) declaredCharset() (string, bool) {
	cs, err := p.header.GetParameter(header.ContentType, param.Charset)
	cs = strings.TrimSpace(cs)
	if err != nil || cs == "" || strings.EqualFold(cs, "binary") {
		return "", false
	}
	return cs, true
}
