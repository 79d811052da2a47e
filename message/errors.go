package message

import (
	"errors"

	"github.com/zostay/go-mimetree/internal/source"
)

// Errors returned from reads.
var (
	// ErrTruncatedInput is returned in strict mode by the last content or raw
	// read of a part that was cut off by the end of the input before its
	// multipart container was closed.
	ErrTruncatedInput = source.ErrTruncatedInput

	// ErrSourceClosed is returned by every read after Message.Close.
	ErrSourceClosed = source.ErrSourceClosed

	// ErrNotEmbedded is returned by ParseEmbedded for parts that are not
	// message/rfc822.
	ErrNotEmbedded = errors.New("part does not hold an embedded message")
)

// Problems the parser recovers from. These are never returned; they are
// recorded on the part where they happened and are available from
// Part.Errors.
var (
	// ErrMissingBoundary is recorded on a multipart part whose Content-type
	// has no boundary parameter. The part is treated as a leaf.
	ErrMissingBoundary = errors.New("the boundary parameter is missing from Content-type")

	// ErrImplicitClose is recorded on a multipart part that was ended by the
	// boundary of an enclosing multipart before its own close delimiter.
	ErrImplicitClose = errors.New("multipart was closed by an enclosing boundary")

	// ErrMissingCloseDelimiter is recorded on a multipart part that was ended
	// by the end of input.
	ErrMissingCloseDelimiter = errors.New("multipart ended without a close delimiter")

	// ErrFirstBoundaryCloses is recorded on a multipart part whose first
	// boundary is the close delimiter, leaving it without children.
	ErrFirstBoundaryCloses = errors.New("the first boundary of the multipart is a close delimiter")

	// ErrLargeHeader is recorded on a part whose header is longer than the
	// WithMaxHeaderLength option allows. The rest of the header is treated as
	// body.
	ErrLargeHeader = errors.New("the header exceeds the maximum parse length")
)
