// Package message is the heart of this library. It turns a raw MIME message
// into a tree of parts that can be navigated and read without ever holding a
// decoded copy of the whole message. The parser is forgiving: malformed input
// degrades into fewer or opaque parts, never into a failed parse.
//
// Parse only reads the top-level header. Everything else is discovered on
// demand. Asking a part for its children scans just far enough to find them,
// and reading a part's content streams it through the transfer and charset
// decoders while the boundary scan advances behind it:
//
//	msg, err := message.Parse(in)
//	if err != nil {
//	  panic(err)
//	}
//	defer msg.Close()
//
//	html := msg.Root().Find(func(p *message.Part) bool {
//	  return p.ContentType() == "text/html"
//	})
//	if html != nil {
//	  _, _ = io.Copy(os.Stdout, html.Reader())
//	}
//
// A Message is not safe for concurrent use unless it was parsed with the
// WithLocking option.
package message
