// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// An Anchor represents a location in source text. The methods of an Anchor
// will report the location, token type, and contents of the anchor.
type Anchor interface {
	Token() Token          // Returns the token type of the anchor
	Text() (string, error) // Returns the decoded text of the anchor
	Location() Location    // Returns the full location of the anchor
}

// A Handler handles events from parsing an input stream. If a method reports
// an error, parsing stops and that error is returned to the caller.
// The parser ensures objects and arrays are correctly balanced.
//
// The Anchor argument to a Handler method is only valid for the duration of
// that method call.
type Handler interface {
	// Begin a new object, whose open brace is at loc.
	BeginObject(loc Anchor) error

	// End the most-recently-opened object, whose close brace is at loc.
	EndObject(loc Anchor) error

	// Begin a new array, whose open bracket is at loc.
	BeginArray(loc Anchor) error

	// End the most-recently-opened array, whose close bracket is at loc.
	EndArray(loc Anchor) error

	// Begin a new object member, whose name is at loc. The text of the anchor
	// is the decoded name.
	BeginMember(loc Anchor) error

	// End the current object member giving the location and type of the token
	// that followed it (either FieldName or EndObject).
	EndMember(loc Anchor) error

	// Report a data value at the given location. The type of the value can be
	// recovered from the token.
	Value(loc Anchor) error

	// EndOfInput reports the end of the input stream.
	EndOfInput(loc Anchor)
}

// Stream is a stream parser that consumes tokens and delivers events to a
// Handler corresponding with the structure of the input.
type Stream struct {
	p Parser
}

// NewStream constructs a new Stream that tokenizes input from r.
// If opts == nil, default options are used.
func NewStream(r io.Reader, opts *Options) *Stream { return &Stream{p: NewTokenizer(r, opts)} }

// NewStreamWithParser constructs a new Stream that consumes tokens from p.
func NewStreamWithParser(p Parser) *Stream { return &Stream{p: p} }

func (s *Stream) recoverParseError(errp *error) {
	if serr := recover(); serr != nil {
		switch err := serr.(type) {
		case *SyntaxError:
			*errp = err
		case handlerError:
			*errp = err.error
		case parserError:
			*errp = err.error
		default:
			panic(serr)
		}
	}
}

// Parse parses the input stream and delivers events to h until either an error
// occurs or the input is exhausted. In case of a syntax error, the returned
// error has type [*SyntaxError].
func (s *Stream) Parse(h Handler) (err error) {
	defer s.recoverParseError(&err)

	for {
		tok, err := s.p.NextToken()
		if err == io.EOF {
			h.EndOfInput(s.p)
			return nil
		} else if err != nil {
			panic(parserError{err})
		}
		s.parseElement(h, tok)
	}
}

// ParseOne parses a single value from the input stream and delivers events to
// h until the value is complete or an error occurs. If no further value is
// available from the input, ParseOne returns io.EOF.
func (s *Stream) ParseOne(h Handler) (err error) {
	defer s.recoverParseError(&err)

	tok, err := s.p.NextToken()
	if err == io.EOF {
		h.EndOfInput(s.p)
		return err
	} else if err != nil {
		panic(parserError{err})
	}
	s.parseElement(h, tok)
	return nil
}

// parseElement consumes a single value of any type, starting at tok.
func (s *Stream) parseElement(h Handler, tok Token) {
	switch tok {
	case StartObject:
		s.checkError(h.BeginObject(s.p))
		for next := s.advance(EndObject, FieldName); next != EndObject; {
			s.checkError(h.BeginMember(s.p))
			s.parseElement(h, s.advance())
			next = s.advance(EndObject, FieldName)
			s.checkError(h.EndMember(s.p))
		}
		s.checkError(h.EndObject(s.p))
	case StartArray:
		s.checkError(h.BeginArray(s.p))
		for next := s.advance(); next != EndArray; next = s.advance() {
			s.parseElement(h, next)
		}
		s.checkError(h.EndArray(s.p))
	case String, Int, Float, True, False, Null, Embedded:
		s.checkError(h.Value(s.p))
	default:
		s.syntaxError(nil, "unexpected %v", tok)
	}
}

func (s *Stream) advance(tokens ...Token) Token {
	tok, err := s.p.NextToken()
	if err == io.EOF {
		s.syntaxError(err, "%v", tokLabel(tokens, "end of input"))
	} else if err != nil {
		panic(parserError{err})
	}
	if len(tokens) != 0 && !slices.Contains(tokens, tok) {
		s.syntaxError(nil, "%v", tokLabel(tokens, tok))
	}
	return tok
}

func (s *Stream) syntaxError(err error, msg string, args ...any) {
	panic(&SyntaxError{
		Kind:     Structural,
		Location: s.p.Location().First,
		Offset:   s.p.Location().Pos,
		Message:  fmt.Sprintf(msg, args...),
		err:      err,
	})
}

func (s *Stream) checkError(err error) {
	if err != nil {
		panic(handlerError{err})
	}
}

type handlerError struct{ error }

func (h handlerError) Unwrap() error { return h.error }

// parserError carries an error reported by the underlying parser, which may
// already be a *SyntaxError.
type parserError struct{ error }

func (p parserError) Unwrap() error { return p.error }

// tokLabel makes a human-readable summary string for the given token types.
func tokLabel(tokens []Token, got any) string {
	if len(tokens) == 0 {
		return fmt.Sprintf("unexpected %v", got)
	}
	var exp string
	if len(tokens) == 1 {
		exp = tokens[0].String()
	} else {
		last := len(tokens) - 1
		ss := make([]string, last)
		for i, tok := range tokens[:last] {
			ss[i] = tok.String()
		}
		exp = strings.Join(ss, ", ") + " or " + tokens[last].String()
	}
	return fmt.Sprintf("expected %s, got %v", exp, got)
}

// IsSyntaxError reports whether err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var serr *SyntaxError
	return errors.As(err, &serr)
}
