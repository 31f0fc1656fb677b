// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"errors"
	"strings"

	"github.com/creachadair/jbind/internal/escape"
	"go4.org/mem"
)

// Quote encodes src as a JSON string value. The contents are escaped and
// double quotation marks are added.
func Quote(src string) string {
	buf := make([]byte, 0, len(src)+2)
	buf = append(buf, '"')
	buf = escape.AppendQuote(buf, mem.S(src))
	return string(append(buf, '"'))
}

// AppendQuote appends the JSON encoding of src, with quotation marks, to dst.
func AppendQuote(dst []byte, src string) []byte {
	dst = append(dst, '"')
	dst = escape.AppendQuote(dst, mem.S(src))
	return append(dst, '"')
}

// Unquote decodes a JSON string value. Double quotation marks are removed,
// and escape sequences are replaced with their unescaped equivalents.
//
// An unpaired surrogate escape is replaced by the Unicode replacement rune.
// Unquote reports an error for an invalid or incomplete escape sequence.
func Unquote(src string) ([]byte, error) {
	if len(src) < 2 || !strings.HasPrefix(src, `"`) || !strings.HasSuffix(src, `"`) {
		return nil, errors.New("missing quotations")
	}
	return escape.Unquote(mem.S(src[1 : len(src)-1]))
}
