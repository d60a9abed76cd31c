// Package address parses and formats physical addresses and byte values.
//
// Addresses are entered as bare hexadecimal digit strings, without a "0x"
// prefix, sign, separators or surrounding whitespace. Upper and lower case
// digits are both accepted:
//
//	addr, err := address.Parse("FF00D400")
//
// # Errors
//
// Parse and ParseByte return a *ParseError wrapping one of:
//   - ErrInvalidFormat: empty input or a character outside 0-9a-fA-F
//   - ErrOverflow: the value does not fit the target width
//
// Character validation happens before the numeric conversion, so input that
// is both malformed and too long reports ErrInvalidFormat. Leading zeros do
// not count towards the width.
package address
