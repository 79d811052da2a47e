package message

import (
	"bufio"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zostay/go-mimetree/internal/scanner"
	"github.com/zostay/go-mimetree/internal/source"
	"github.com/zostay/go-mimetree/message/charset"
)

// Constants related to Parse() options.
const (
	// DefaultChunkSize is the size of the chunks read from the input. Defaults
	// to 16K, though this could change at any time.
	DefaultChunkSize = source.DefaultChunkSize

	// DefaultMemoryLimit is how much of a forward-only input is kept in memory
	// before the rest is spooled to a temporary file.
	DefaultMemoryLimit = source.DefaultMemoryLimit

	// DefaultMaxHeaderLength is the default maximum byte length of a header
	// block.
	DefaultMaxHeaderLength = bufio.MaxScanTokenSize

	// DefaultMaxLineLength is the default length at which a line is split
	// into pieces while scanning for boundaries.
	DefaultMaxLineLength = scanner.MaxFragment

	// DefaultTargetCharset is the charset text content is converted to.
	DefaultTargetCharset = charset.UTF8
)

type parser struct {
	strict        bool
	maxHeaderLen  int
	maxLineLen    int
	maxDepth      int
	chunkSize     int
	memoryLimit   int64
	tempDir       string
	targetCharset string
	detect        bool
	uuencode      bool
	locking       bool
	logger        logrus.FieldLogger
}

func (pr *parser) clone() *parser {
	p := *pr
	return &p
}

var defaultParser = &parser{
	maxHeaderLen:  DefaultMaxHeaderLength,
	maxLineLen:    DefaultMaxLineLength,
	maxDepth:      -1,
	chunkSize:     DefaultChunkSize,
	memoryLimit:   DefaultMemoryLimit,
	targetCharset: DefaultTargetCharset,
	uuencode:      true,
}

// ParseOption refers to options that may be passed to the Parse function to
// modify how the parser works.
type ParseOption func(pr *parser)

// WithStrict is a ParseOption that turns recoverable read problems into
// errors. Content reads then fail with a *transfer.DecodeError on malformed
// encoded data, with a *charset.UnknownCharsetError on charsets that cannot
// be converted and with ErrTruncatedInput at the end of parts cut off by the
// end of input. The shape of the tree is discovered the same way in either
// mode.
func WithStrict() ParseOption {
	return func(pr *parser) { pr.strict = true }
}

// WithMaxHeaderLength is a ParseOption that sets the maximum size of a header
// block. Whatever follows the limit is treated as the start of the body and
// ErrLargeHeader is recorded on the part. Setting this to a value less than
// or equal to 0 will result in there being no maximum length. The default
// value is DefaultMaxHeaderLength.
func WithMaxHeaderLength(n int) ParseOption {
	return func(pr *parser) { pr.maxHeaderLen = n }
}

// WithMaxLineLength is a ParseOption that sets the length at which a long
// line is cut into pieces while scanning. Only the first piece of a line can
// be recognized as a boundary. The default is DefaultMaxLineLength.
func WithMaxLineLength(n int) ParseOption {
	return func(pr *parser) {
		if n > 0 {
			pr.maxLineLen = n
		}
	}
}

// WithChunkSize is a ParseOption that controls how many bytes to read at a time
// while parsing an email message. The default chunk size is DefaultChunkSize.
func WithChunkSize(chunkSize int) ParseOption {
	return func(pr *parser) { pr.chunkSize = chunkSize }
}

// WithMemoryLimit is a ParseOption that sets how many bytes of a forward-only
// input are held in memory. Past that, the input is spooled to a temporary
// file that is removed by Close. Inputs that already support io.ReaderAt are
// never copied. The default is DefaultMemoryLimit.
func WithMemoryLimit(n int64) ParseOption {
	return func(pr *parser) { pr.memoryLimit = n }
}

// WithTempDir is a ParseOption that sets where the spool file is created. The
// default is os.TempDir().
func WithTempDir(dir string) ParseOption {
	return func(pr *parser) { pr.tempDir = dir }
}

// WithMaxDepth is a ParseOption that controls how deep the parser will go in
// splitting nested multipart parts. The top-level part has depth 0. Parts at
// or below the limit are left whole. By default there is no limit.
func WithMaxDepth(maxDepth int) ParseOption {
	return func(pr *parser) { pr.maxDepth = maxDepth }
}

// WithoutMultipart is a ParseOption that will not allow parsing of any
// multipart messages. The root part returned from Parse() will always be a
// leaf.
//
// You should use this option if all you are interested in is the top-level
// headers. Only the header is read from the input.
func WithoutMultipart() ParseOption {
	return func(pr *parser) { pr.maxDepth = 0 }
}

// WithoutRecursion is a ParseOption that will only allow a single level of
// multipart parsing.
func WithoutRecursion() ParseOption {
	return func(pr *parser) { pr.maxDepth = 1 }
}

// WithUnlimitedRecursion is a ParseOption that will allow the parser to parse
// sub-parts of any depth. This is the default.
func WithUnlimitedRecursion() ParseOption {
	return func(pr *parser) { pr.maxDepth = -1 }
}

// WithTargetCharset is a ParseOption that sets the charset text content is
// converted to while reading. The default is DefaultTargetCharset.
func WithTargetCharset(cs string) ParseOption {
	return func(pr *parser) { pr.targetCharset = cs }
}

// WithoutCharsetConversion is a ParseOption that leaves text content in the
// charset it was sent in.
func WithoutCharsetConversion() ParseOption {
	return func(pr *parser) { pr.targetCharset = "" }
}

// DetectUndeclaredCharset is a ParseOption that guesses the charset of text
// parts that do not declare one, instead of assuming ISO-8859-1.
func DetectUndeclaredCharset() ParseOption {
	return func(pr *parser) { pr.detect = true }
}

// WithoutUUEncode is a ParseOption that disables the search for uuencoded
// attachments in plain text parts.
func WithoutUUEncode() ParseOption {
	return func(pr *parser) { pr.uuencode = false }
}

// WithLocking is a ParseOption that makes the returned Message safe for
// concurrent use by serializing every operation that moves a cursor or the
// boundary scanner.
func WithLocking() ParseOption {
	return func(pr *parser) { pr.locking = true }
}

// WithLogger is a ParseOption that sets the logger that recovered problems
// are reported to at debug level. By default nothing is logged.
func WithLogger(logger logrus.FieldLogger) ParseOption {
	return func(pr *parser) { pr.logger = logger }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

// Parse starts a parse session over the given reader. Only the top-level
// header is read before Parse returns; the rest of the input is read as parts
// are visited.
//
// If r implements io.ReaderAt and reports its size (as *bytes.Reader,
// *strings.Reader, *io.SectionReader and regular *os.File values do), it is
// read in place. Otherwise the input is pulled as needed and spooled, in
// memory up to the WithMemoryLimit option and in a temporary file after that.
// The reader must not be used by anything else until the Message is closed.
//
// Malformed input does not cause Parse to fail. The only error returned is a
// failure to read the header from r, in which case the returned Message holds
// whatever could be read.
func Parse(r io.Reader, opts ...ParseOption) (*Message, error) {
	pr := defaultParser.clone()
	for _, opt := range opts {
		opt(pr)
	}

	if pr.logger == nil {
		pr.logger = discardLogger()
	}

	m := &Message{
		cfg: pr,
		log: pr.logger,
		src: source.New(r, source.Options{
			ChunkSize:   pr.chunkSize,
			MemoryLimit: pr.memoryLimit,
			TempDir:     pr.tempDir,
		}),
	}

	if pr.locking {
		m.mu = &sync.Mutex{}
	}

	m.lines = m.src.Window(0, -1, false)
	m.root = m.newPart(nil, 0)

	return m, m.err
}

// ParseEmbedded parses the decoded content of a message/rfc822 part as a
// message of its own. The new Message reads through this one, so it stops
// working when this one is closed. It returns ErrNotEmbedded for any other
// kind of part.
func (p *Part) ParseEmbedded(opts ...ParseOption) (*Message, error) {
	if p.ContentType() != "message/rfc822" {
		return nil, ErrNotEmbedded
	}
	return Parse(p.Reader(), opts...)
}
