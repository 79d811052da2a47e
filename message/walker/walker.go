// Package walker visits the parts of a message tree in pre-order, discovering
// them as it goes.
package walker

import (
	"github.com/zostay/go-mimetree/message"
)

// PartWalker is a function that can be processed for each part of a message.
// The depth is relative to the part the walk started from and i is the index
// of the part among its siblings.
type PartWalker func(depth, i int, part *message.Part) error

// Walk performs a depth first search for all the parts of a message starting
// with the given part itself. It calls the PartWalker for each part of the
// message. If the PartWalker returns an error, then processing stops
// immediately and the error is returned.
func (w PartWalker) Walk(start *message.Part) error {
	type part struct {
		depth int
		i     int
		part  *message.Part
	}

	openStack := make([]part, 0, 10)

	pushStack := func(depth int, p *message.Part) {
		children := p.Children()
		for i := len(children) - 1; i >= 0; i-- {
			openStack = append(openStack, part{depth, i, children[i]})
		}
	}

	popStack := func() part {
		end := len(openStack) - 1
		p := openStack[end]
		openStack = openStack[:end]
		return p
	}

	openStack = append(openStack, part{0, 0, start})
	for len(openStack) > 0 {
		p := popStack()
		if err := w(p.depth, p.i, p.part); err != nil {
			return err
		}
		pushStack(p.depth+1, p.part)
	}

	return nil
}

// WalkLeaves will call the PartWalker function for each part without
// children using a depth first traversal. It will terminate the walk
// immediately if the PartWalker returns an error and will return the error.
func (w PartWalker) WalkLeaves(start *message.Part) error {
	var lw PartWalker = func(depth, i int, part *message.Part) error {
		if part.ChildCount() == 0 {
			if err := w(depth, i, part); err != nil {
				return err
			}
		}
		return nil
	}
	return lw.Walk(start)
}

// WalkMultipart will call the PartWalker function for each multipart part
// using a depth first traversal. It will terminate the walk immediately if the
// PartWalker returns an error and will return that error.
func (w PartWalker) WalkMultipart(start *message.Part) error {
	var mw PartWalker = func(depth, i int, part *message.Part) error {
		if part.IsMultipart() {
			if err := w(depth, i, part); err != nil {
				return err
			}
		}
		return nil
	}
	return mw.Walk(start)
}
