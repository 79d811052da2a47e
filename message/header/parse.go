package header

import (
	"errors"

	"github.com/zostay/go-mimetree/message/header/field"
)

// Parse tokenizes a header block. The whole input is treated as header; the
// caller is expected to have cut it at the blank line.
//
// Lines that cannot be read as fields are skipped. In that case the header is
// returned along with the *field.MalformedHeaderError describing what was
// dropped.
func Parse(m []byte) (*Header, error) {
	lines, err := field.ParseLines(m)

	var mhe *field.MalformedHeaderError
	var finalErr error
	if errors.As(err, &mhe) {
		finalErr = mhe
	} else if err != nil {
		return nil, err
	}

	fields := make([]*field.Field, len(lines))
	for i, line := range lines {
		fields[i] = field.Parse(line)
	}

	h := &Header{
		Base: Base{
			lbr:    DetectBreak(m),
			fields: fields,
		},
	}

	return h, finalErr
}

// New returns a header holding the given fields.
func New(lbr Break, fields ...*field.Field) *Header {
	fs := make([]*field.Field, len(fields))
	copy(fs, fields)
	return &Header{Base: Base{lbr: lbr, fields: fs}}
}
