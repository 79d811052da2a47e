// Package transfer decodes the Content-Transfer-Encodings found in the wild.
// Only quoted-printable, base64 and x-uuencode transform bytes. Every other
// value, including 7bit, 8bit, binary and names nobody has heard of, leaves the
// content as it is.
//
// Each decoder comes in two flavors. The lenient one never fails on bad input:
// it skips or passes through whatever it cannot interpret, which is what mail
// readers have always done. The strict one stops at the first problem and
// reports it as a *DecodeError.
package transfer
