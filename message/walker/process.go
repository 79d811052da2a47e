package walker

import "github.com/zostay/go-mimetree/message"

// Processor is a callback that can be passed to the AndProcess() function to
// do any kind of generic processing of a message and its sub-parts.
//
// The Processor is given a part and the ancestry of the part. If len(parents)
// is zero, then this is the part that AndProcess() was called upon, which
// might not be the root of the message.
//
// The Processor may return an error to cause AndProcess() to terminate
// immediately and return that error.
type Processor func(part *message.Part, parents []*message.Part) error

// AndProcess will walk the tree below a part and call the given Processor
// function for each part found. It will terminate once all parts have been
// processed and return nil. If the Processor function returns an error, it
// will terminate early and return that error.
func AndProcess(processor Processor, start *message.Part) error {
	parents := make([]*message.Part, 0, 10)
	return andProcess(processor, start, parents)
}

func andProcess(processor Processor, part *message.Part, parents []*message.Part) error {
	err := processor(part, parents)
	if err != nil {
		return err
	}

	parents = append(parents, part)
	for i := 0; ; i++ {
		child := part.Child(i)
		if child == nil {
			return nil
		}

		if err := andProcess(processor, child, parents); err != nil {
			return err
		}
	}
}
