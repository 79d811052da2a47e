// Package header holds the tokenized header of a message part. Fields keep
// the order they had in the message and are looked up by case-insensitive
// name. Parameterized values (Content-Type, Content-Disposition) are parsed
// on demand through the param package and cached.
//
// The header is read-only. The interpretation helpers (GetTime,
// GetAddressList, GetDecoded) work on the raw field bodies and never change
// them.
package header
