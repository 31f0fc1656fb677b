// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/creachadair/jbind/internal/escape"
)

// scanString consumes the body of a string through its closing quote q,
// whose opening quote has already been consumed. If decode is true, the
// decoded contents are appended to dst. The validation is the same whether or
// not the contents are decoded.
func (t *Tokenizer) scanString(q byte, dst []byte, decode bool) ([]byte, error) {
	for {
		w := t.src.window()
		i := 0
		for i < len(w) && isPlain(w[i], q) {
			i++
		}
		if decode {
			dst = append(dst, w[:i]...)
		}
		t.src.skip(i)

		b, ok := t.src.peek()
		if !ok {
			return dst, t.truncated("string")
		}
		var err error
		switch {
		case b == q:
			t.src.advance()
			return dst, nil
		case b == '\\':
			t.src.advance()
			dst, err = t.scanEscape(dst, decode)
		case b < ' ':
			if !t.features.Has(AllowUnescapedControlChars) {
				return dst, t.lexicalf("unescaped control character %s in string", quoteByte(b))
			}
			t.src.advance()
			dst = appendIf(dst, decode, b)
		case b >= utf8.RuneSelf:
			t.src.advance()
			dst, err = t.scanUTF8(b, dst, decode)
		default:
			// The other quotation mark.
			t.src.advance()
			dst = appendIf(dst, decode, b)
		}
		if err != nil {
			return dst, err
		}
	}
}

// isPlain reports whether b stands for itself in a string closed by q.
func isPlain(b, q byte) bool {
	return b >= ' ' && b < utf8.RuneSelf && b != q && b != '\\'
}

func appendIf(dst []byte, ok bool, b ...byte) []byte {
	if ok {
		return append(dst, b...)
	}
	return dst
}

func appendRuneIf(dst []byte, ok bool, r rune) []byte {
	if ok {
		return utf8.AppendRune(dst, r)
	}
	return dst
}

// scanUTF8 consumes the continuation bytes of a multi-byte UTF-8 sequence
// whose lead byte has already been consumed.
func (t *Tokenizer) scanUTF8(lead byte, dst []byte, decode bool) ([]byte, error) {
	var n int
	switch {
	case lead >= 0xc2 && lead <= 0xdf:
		n = 2
	case lead >= 0xe0 && lead <= 0xef:
		n = 3
	case lead >= 0xf0 && lead <= 0xf4:
		n = 4
	default:
		return dst, t.lexicalf("invalid UTF-8 start byte 0x%02x", lead)
	}
	var seq [utf8.UTFMax]byte
	seq[0] = lead
	for i := 1; i < n; i++ {
		b, ok := t.src.peek()
		if !ok {
			return dst, t.truncated("string")
		} else if b&0xc0 != 0x80 {
			return dst, t.lexicalf("invalid UTF-8 continuation byte 0x%02x", b)
		}
		t.src.advance()
		seq[i] = b
	}
	if r, size := utf8.DecodeRune(seq[:n]); r == utf8.RuneError && size <= 1 {
		return dst, t.lexicalf("invalid UTF-8 sequence % x", seq[:n])
	}
	return appendIf(dst, decode, seq[:n]...), nil
}

// scanEscape consumes an escape sequence whose backslash has already been
// consumed. A \u escape for a high surrogate followed by one for a low
// surrogate is decoded as a single rune; an unpaired surrogate is decoded as
// the Unicode replacement rune.
func (t *Tokenizer) scanEscape(dst []byte, decode bool) ([]byte, error) {
	c, ok := t.src.next()
	if !ok {
		return dst, t.truncated("escape sequence")
	} else if c != 'u' {
		return t.simpleEscape(c, dst, decode)
	}
	r, err := t.readHex4()
	if err != nil {
		return dst, err
	}
	for utf16.IsSurrogate(r) {
		if r >= 0xdc00 {
			r = utf8.RuneError // unpaired low surrogate
			break
		}
		if b, ok := t.src.peek(); !ok || b != '\\' {
			r = utf8.RuneError
			break
		}
		t.src.advance()
		c, ok := t.src.next()
		if !ok {
			return dst, t.truncated("escape sequence")
		} else if c != 'u' {
			dst = appendRuneIf(dst, decode, utf8.RuneError)
			return t.simpleEscape(c, dst, decode)
		}
		lo, err := t.readHex4()
		if err != nil {
			return dst, err
		}
		if lo >= 0xdc00 && lo < 0xe000 {
			r = utf16.DecodeRune(r, lo)
			break
		}
		dst = appendRuneIf(dst, decode, utf8.RuneError)
		r = lo
	}
	return appendRuneIf(dst, decode, r), nil
}

func (t *Tokenizer) simpleEscape(c byte, dst []byte, decode bool) ([]byte, error) {
	switch c {
	case '"', '\\', '/':
		return appendIf(dst, decode, c), nil
	case 'b':
		return appendIf(dst, decode, '\b'), nil
	case 'f':
		return appendIf(dst, decode, '\f'), nil
	case 'n':
		return appendIf(dst, decode, '\n'), nil
	case 'r':
		return appendIf(dst, decode, '\r'), nil
	case 't':
		return appendIf(dst, decode, '\t'), nil
	}
	if !t.features.Has(AllowBackslashEscapingAny) {
		return dst, t.lexicalf("invalid escape %s in string", quoteByte(c))
	} else if c >= utf8.RuneSelf {
		return t.scanUTF8(c, dst, decode)
	}
	return appendIf(dst, decode, c), nil
}

// readHex4 consumes the four hexadecimal digits of a \u escape.
func (t *Tokenizer) readHex4() (rune, error) {
	var v rune
	for range 4 {
		b, ok := t.src.next()
		if !ok {
			return 0, t.truncated("Unicode escape")
		}
		d, ok := escape.HexValue(b)
		if !ok {
			return 0, t.lexicalf("invalid hex digit %s in Unicode escape", quoteByte(b))
		}
		v = v<<4 | rune(d)
	}
	return v, nil
}
