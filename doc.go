// Package mimetree is the home of a streaming MIME message parser. A message
// is read from any io.Reader and exposed as a tree of parts that is discovered
// lazily: asking for a child, searching the tree or reading a body scans the
// source only as far as needed to answer.
//
// The parser lives in the message package. Start with message.Parse, which
// returns a message.Message whose Root is the top-level message.Part. Every
// part carries its parsed header (see the message/header package), the byte
// offsets of its header and body within the source, and two ways to read the
// body: RawReader returns the bytes as they appear on the wire and Reader
// returns them with the transfer encoding removed and text converted to UTF-8.
//
// Damaged input is handled leniently by default. Missing close delimiters,
// truncated bodies, bad transfer encodings and unknown charsets are recorded
// on the part where they were found and parsing carries on. Pass
// message.WithStrict to surface these as read errors instead.
//
// Plain text bodies are also searched for uuencoded blocks, which are turned
// into attachment parts of their own.
//
// The message/walker package provides depth-first traversal of the tree and
// the test/mimetree command prints, extracts and cross-checks the parts of
// messages from the command line.
package mimetree
