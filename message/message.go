package message

import (
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zostay/go-mimetree/internal/source"
)

// PartID identifies a part within its Message. IDs are assigned in the order
// parts are discovered, starting with 0 for the root.
type PartID int

// NoPart is the parent of the root part.
const NoPart PartID = -1

// Message is a parse session. It owns the input and every part discovered in
// it so far.
type Message struct {
	cfg *parser
	log logrus.FieldLogger
	mu  *sync.Mutex

	src   *source.Source
	lines *source.Window
	root  *Part
	parts []*Part
	err   error
}

func (m *Message) lock() {
	if m.mu != nil {
		m.mu.Lock()
	}
}

func (m *Message) unlock() {
	if m.mu != nil {
		m.mu.Unlock()
	}
}

// Root returns the top-level part. The root is set once by Parse and never
// changes, so no lock is needed.
func (m *Message) Root() *Part {
	return m.root
}

// Part returns the part with the given ID or nil if no such part has been
// discovered yet.
func (m *Message) Part(id PartID) *Part {
	m.lock()
	defer m.unlock()
	return m.part(id)
}

func (m *Message) part(id PartID) *Part {
	if id < 0 || int(id) >= len(m.parts) {
		return nil
	}
	return m.parts[id]
}

// Len returns the number of parts discovered so far.
func (m *Message) Len() int {
	m.lock()
	defer m.unlock()
	return len(m.parts)
}

// Err returns the first error that stopped the parser from discovering more
// of the message, such as a failing reader or a closed source. Structural
// methods never return errors, so this is how to tell a short tree from a
// broken input.
func (m *Message) Err() error {
	m.lock()
	defer m.unlock()
	return m.err
}

// Close releases the input. If the input was spooled to a temporary file, the
// file is removed. The reader given to Parse is not closed. Every read after
// Close fails with ErrSourceClosed.
func (m *Message) Close() error {
	m.lock()
	defer m.unlock()
	return m.src.Close()
}

// fail remembers an error that interrupted scanning.
func (m *Message) fail(err error) {
	if err == nil || errors.Is(err, io.EOF) {
		return
	}

	if m.src.Closed() {
		err = ErrSourceClosed
	}

	if m.err == nil {
		m.err = err
		m.log.WithError(err).Debug("scanning stopped")
	}
}

// recovered records a problem with the input that the parser worked around.
func (m *Message) recovered(p *Part, off int64, err error) {
	p.errs = append(p.errs, err)
	m.log.WithFields(logrus.Fields{
		"part":   p.id,
		"offset": off,
	}).WithError(err).Debug("recovered from malformed input")
}
