// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// readNumber scans a number beginning with first, which has not been
// consumed. The text of the number is left in t.text.
func (t *Tokenizer) readNumber(first byte) (Token, error) {
	t.text = t.text[:0]
	if first == '-' {
		t.text = append(t.text, first)
		t.src.advance()
		b, ok := t.src.peek()
		if ok && b == 'I' {
			return t.readNonNumeric()
		} else if !ok || !isDigit(b) {
			if !ok {
				return Invalid, t.truncated("number")
			}
			return Invalid, t.lexicalf("expected digit after '-', found %s", quoteByte(b))
		}
	}

	intStart := len(t.text)
	t.text = t.readWhile(t.text, isDigit)
	if digits := t.text[intStart:]; len(digits) > 1 && digits[0] == '0' {
		if !t.features.Has(AllowLeadingZeros) {
			return Invalid, t.lexicalf("invalid number: leading zeros are not allowed")
		}
		i := 0
		for i < len(digits)-1 && digits[i] == '0' {
			i++
		}
		t.text = append(t.text[:intStart], digits[i:]...)
	}

	tok := Int
	b, ok := t.src.peek()
	if ok && b == '.' {
		t.text = append(t.text, b)
		t.src.advance()
		n := len(t.text)
		if t.text = t.readWhile(t.text, isDigit); len(t.text) == n {
			return Invalid, t.badNumber("expected digit after decimal point")
		}
		tok = Float
		b, ok = t.src.peek()
	}
	if ok && (b == 'e' || b == 'E') {
		t.text = append(t.text, b)
		t.src.advance()
		if b, ok = t.src.peek(); ok && (b == '+' || b == '-') {
			t.text = append(t.text, b)
			t.src.advance()
		}
		n := len(t.text)
		if t.text = t.readWhile(t.text, isDigit); len(t.text) == n {
			return Invalid, t.badNumber("expected digit in exponent")
		}
		tok = Float
	}
	if err := t.fail(t.src.readErr()); err != nil {
		return Invalid, err
	}

	t.tok = tok
	t.markEnd()
	if err := t.checkRootSeparator(); err != nil {
		return Invalid, err
	}
	return tok, nil
}

func (t *Tokenizer) badNumber(msg string) error {
	if _, ok := t.src.peek(); !ok {
		return t.truncated("number")
	}
	return t.lexicalf("invalid number %q: %s", t.text, msg)
}

// nonNumeric lists the spellings accepted by AllowNonNumericNumbers.
var nonNumeric = []string{"NaN", "Infinity", "+Infinity", "-Infinity"}

// readNonNumeric scans a bare word that may name a non-numeric number.
// A leading sign, if any, is already in t.text.
func (t *Tokenizer) readNonNumeric() (Token, error) {
	if len(t.text) == 0 {
		b, _ := t.src.next()
		t.text = append(t.text, b)
	}
	t.text = t.readWhile(t.text, isNameByte)
	if err := t.fail(t.src.readErr()); err != nil {
		return Invalid, err
	}
	word := string(t.text)
	for _, s := range nonNumeric {
		if word != s {
			continue
		} else if !t.features.Has(AllowNonNumericNumbers) {
			return Invalid, t.lexicalf("non-standard number %q is not allowed", word)
		}
		t.tok = Float
		t.markEnd()
		if err := t.checkRootSeparator(); err != nil {
			return Invalid, err
		}
		return Float, nil
	}
	return Invalid, t.lexicalf("unrecognized token %q", word)
}

var errNotFinite = errors.New("value is not a finite number")

func parseBigInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

func parseBigRat(s string) (*big.Rat, error) {
	switch s {
	case "NaN", "Infinity", "+Infinity", "-Infinity":
		return nil, errNotFinite
	}
	v, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func decodeBinary(enc *base64.Encoding, text []byte) ([]byte, error) {
	if enc == nil {
		enc = base64.StdEncoding
	}
	dst := make([]byte, enc.DecodedLen(len(text)))
	n, err := enc.Decode(dst, text)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}
