package message

import (
	"strings"

	"github.com/zostay/go-mimetree/message/header"
)

// Predicate tests a part for Find and friends.
type Predicate func(*Part) bool

// Children returns the parts directly contained in this one, in document
// order. For a multipart container this scans the rest of the container. A
// plain text part returns the uuencoded attachments found in it. The slice is
// a copy.
func (p *Part) Children() []*Part {
	p.m.lock()
	defer p.m.unlock()

	p.m.discover(p, -1)
	return p.m.snapshot(p.children)
}

// ChildCount returns the number of children, scanning for all of them.
func (p *Part) ChildCount() int {
	p.m.lock()
	defer p.m.unlock()

	p.m.discover(p, -1)
	return len(p.children)
}

// Child returns the child at index i, scanning only as far as needed to find
// it, or nil if there is no such child.
func (p *Part) Child(i int) *Part {
	if i < 0 {
		return nil
	}

	p.m.lock()
	defer p.m.unlock()

	p.m.discover(p, i)
	if i >= len(p.children) {
		return nil
	}
	return p.m.parts[p.children[i]]
}

func (m *Message) snapshot(ids []PartID) []*Part {
	ps := make([]*Part, len(ids))
	for i, id := range ids {
		ps[i] = m.parts[id]
	}
	return ps
}

// Find returns the first part, in pre-order starting with p itself, for
// which pred returns true. Parts are discovered only as far as needed. It
// returns nil if nothing matches.
//
// The predicate is called without any lock held, so it may use any method
// of the part it is given.
func (p *Part) Find(pred Predicate) *Part {
	if pred(p) {
		return p
	}

	for i := 0; ; i++ {
		c := p.Child(i)
		if c == nil {
			return nil
		}

		if found := c.Find(pred); found != nil {
			return found
		}
	}
}

// FindBreadthFirst is like Find, but visits every part at one depth before
// any deeper part.
func (p *Part) FindBreadthFirst(pred Predicate) *Part {
	queue := []*Part{p}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if pred(next) {
			return next
		}

		queue = append(queue, next.Children()...)
	}

	return nil
}

// FindAll returns every part, in pre-order starting with p itself, for which
// pred returns true. This discovers the whole tree below p.
func (p *Part) FindAll(pred Predicate) []*Part {
	var found []*Part
	p.Find(func(q *Part) bool {
		if pred(q) {
			found = append(found, q)
		}
		return false
	})
	return found
}

// FindByContentID returns the first part in pre-order whose Content-ID
// matches id. Surrounding angle brackets are ignored on both sides and the
// comparison is case-insensitive. It returns nil if there is no such part.
func (p *Part) FindByContentID(id string) *Part {
	id = header.TrimAngles(id)
	return p.Find(func(q *Part) bool {
		cid := q.ContentID()
		return cid != "" && strings.EqualFold(cid, id)
	})
}
