// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"errors"
	"fmt"
)

// ErrNoProgress is reported (wrapped in a *ReadError) when the underlying
// reader repeatedly returns no data and no error.
var ErrNoProgress = errors.New("reader returned no data and no error")

// ErrClosed is reported by a tokenizer after it has been closed.
var ErrClosed = errors.New("tokenizer is closed")

// ErrorKind classifies a *SyntaxError.
type ErrorKind byte

const (
	// Lexical errors concern malformed input text: bad bytes, invalid UTF-8,
	// invalid escapes, truncated literals.
	Lexical ErrorKind = iota + 1

	// Structural errors concern the grammar: mismatched brackets, missing
	// commas or colons, input ending inside an object or array.
	Structural
)

func (k ErrorKind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Structural:
		return "structural"
	}
	return "unknown"
}

// SyntaxError is the concrete type of errors reported for invalid input.
// Syntax errors are fatal to the token stream that reports them.
type SyntaxError struct {
	Kind     ErrorKind
	Location LineCol
	Offset   int    // absolute byte offset, 0-based
	Path     string // path of the enclosing entry, e.g. $.a[2]
	Message  string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at %s: %s", s.Location, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

// ReadError is reported when the underlying reader fails. It is distinct from
// the end of input, which is reported as io.EOF.
type ReadError struct {
	Offset int // absolute offset of the failed read
	Err    error
}

func (r *ReadError) Error() string {
	return fmt.Sprintf("read failed at offset %d: %v", r.Offset, r.Err)
}

// Unwrap supports error wrapping.
func (r *ReadError) Unwrap() error { return r.Err }

// TypeMismatchError is reported by an accessor that is not defined for the
// current token.
type TypeMismatchError struct {
	Token Token  // the current token
	Want  string // what the caller asked for
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot read %v as %s", e.Token, e.Want)
}

func mismatch(tok Token, want string) error { return &TypeMismatchError{Token: tok, Want: want} }
