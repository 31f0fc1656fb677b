// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package escape handles quoting and unquoting of JSON strings.
package escape

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// Unquote decodes a byte slice containing the JSON encoding of a string. The
// input must have the enclosing double quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents. A pair of
// \u escapes encoding a UTF-16 surrogate pair is combined into a single rune;
// an unpaired surrogate is replaced by the Unicode replacement rune. Unquote
// reports an error for an incomplete or invalid escape sequence.
func Unquote(src mem.RO) ([]byte, error) {
	dec := make([]byte, 0, src.Len())
	i := mem.IndexByte(src, '\\')
	if i < 0 {
		return mem.Append(dec, src), nil
	}

	for src.Len() != 0 {
		dec = mem.Append(dec, src.SliceTo(i))
		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return nil, errors.New("incomplete escape sequence")
		}
		c := src.At(0)
		src = src.SliceFrom(1)
		switch c {
		case '"', '\\', '/':
			dec = append(dec, c)
		case 'b':
			dec = append(dec, '\b')
		case 'f':
			dec = append(dec, '\f')
		case 'n':
			dec = append(dec, '\n')
		case 'r':
			dec = append(dec, '\r')
		case 't':
			dec = append(dec, '\t')
		case 'u':
			r, rest, err := unicodeEscape(src)
			if err != nil {
				return nil, err
			}
			dec = utf8.AppendRune(dec, r)
			src = rest
		default:
			return nil, fmt.Errorf("invalid escape %q", c)
		}

		// Look for the next escape sequence, and if one is not found we can blit
		// the rest of the input and go home.
		i = mem.IndexByte(src, '\\')
		if i < 0 {
			dec = mem.Append(dec, src)
			break
		}
	}
	return dec, nil
}

// unicodeEscape decodes the hex digits of a \u escape at the front of src,
// combining a following low surrogate escape if one is present.
func unicodeEscape(src mem.RO) (rune, mem.RO, error) {
	if src.Len() < 4 {
		return 0, src, errors.New("incomplete Unicode escape")
	}
	v, ok := ParseHex4(src.SliceTo(4))
	if !ok {
		return 0, src, fmt.Errorf("invalid Unicode escape %q", src.SliceTo(4).StringCopy())
	}
	src = src.SliceFrom(4)
	r := rune(v)
	if !utf16.IsSurrogate(r) {
		return r, src, nil
	}
	if r < 0xdc00 && src.Len() >= 6 && src.At(0) == '\\' && src.At(1) == 'u' {
		if lo, ok := ParseHex4(src.Slice(2, 6)); ok {
			if c := utf16.DecodeRune(r, rune(lo)); c != utf8.RuneError {
				return c, src.SliceFrom(6), nil
			}
		}
	}
	return utf8.RuneError, src, nil
}

// ParseHex4 decodes exactly four hexadecimal digits.
func ParseHex4(data mem.RO) (uint16, bool) {
	if data.Len() != 4 {
		return 0, false
	}
	var v uint16
	for i := range 4 {
		d, ok := HexValue(data.At(i))
		if !ok {
			return 0, false
		}
		v = v<<4 | uint16(d)
	}
	return v, true
}

// HexValue reports the value of the hexadecimal digit b.
func HexValue(b byte) (byte, bool) {
	switch {
	case '0' <= b && b <= '9':
		return b - '0', true
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10, true
	case 'A' <= b && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
