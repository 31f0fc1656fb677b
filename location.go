// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import "fmt"

// A Span is the range of absolute byte offsets occupied by a token, counted
// from the start of the input.
type Span struct {
	Pos int // offset of the first byte
	End int // offset one past the last byte
}

// A LineCol is a position in the input as a line and byte column.
type LineCol struct {
	Line   int // 1-based
	Column int // 0-based, in bytes
}

// String renders lc as "line:col".
func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// A Location is the position of a token: its byte span, plus the line and
// column where it begins (First) and ends (Last). Last is exclusive in the
// same sense as Span.End.
type Location struct {
	Span
	First, Last LineCol
}
