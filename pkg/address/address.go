package address

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse errors.
var (
	ErrInvalidFormat = errors.New("invalid hex format")
	ErrOverflow      = errors.New("value out of range")
)

// MaxDigits is the number of hex digits in a 64-bit address.
const MaxDigits = 16

// ParseError records a failed conversion.
type ParseError struct {
	Func  string // the failing function (Parse, ParseByte)
	Input string // the input
	Err   error  // ErrInvalidFormat or ErrOverflow
}

func (e *ParseError) Error() string {
	return "address." + e.Func + ": parsing " + strconv.Quote(e.Input) + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse parses a hexadecimal physical address.
func Parse(text string) (uint64, error) {
	v, err := parseHex("Parse", text, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// ParseByte parses a hexadecimal byte value (00-FF).
func ParseByte(text string) (uint8, error) {
	v, err := parseHex("ParseByte", text, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// Format renders an address as upper-case hex without a prefix.
func Format(addr uint64) string {
	return strings.ToUpper(strconv.FormatUint(addr, 16))
}

// FormatByte renders a byte as two upper-case hex digits.
func FormatByte(v uint8) string {
	return fmt.Sprintf("%02X", v)
}

func parseHex(fn, text string, bitSize int) (uint64, error) {
	if text == "" {
		return 0, &ParseError{Func: fn, Input: text, Err: ErrInvalidFormat}
	}
	for i := 0; i < len(text); i++ {
		if !isHexDigit(text[i]) {
			return 0, &ParseError{Func: fn, Input: text, Err: ErrInvalidFormat}
		}
	}

	// base 16 without prefix: strconv rejects "0x", signs and underscores,
	// all of which were already filtered above.
	v, err := strconv.ParseUint(text, 16, bitSize)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &ParseError{Func: fn, Input: text, Err: ErrOverflow}
		}
		return 0, &ParseError{Func: fn, Input: text, Err: ErrInvalidFormat}
	}
	return v, nil
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	default:
		return false
	}
}
