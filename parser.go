// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"encoding/base64"
	"io"
	"math/big"
)

// A Parser is a forward-only stream of JSON tokens. A *Tokenizer is a Parser
// over JSON text; a [TokenBuffer] replays recorded tokens as a Parser; and
// [Sequence] concatenates parsers.
//
// The accessor methods report the payload of the current token, and report a
// *TypeMismatchError if the current token does not have a compatible type.
type Parser interface {
	// NextToken advances to the next token and returns it. At the end of the
	// stream it returns Invalid and io.EOF.
	NextToken() (Token, error)

	// Token returns the current token.
	Token() Token

	// Name returns the name of the current object member, or "".
	Name() string

	// Text returns the text of the current token.
	Text() (string, error)

	// NumberText returns the text of the current number token.
	NumberText() (string, error)

	// Int64 returns the value of the current Int token.
	Int64() (int64, error)

	// Float64 returns the value of the current number token; Int tokens are
	// widened.
	Float64() (float64, error)

	// BigInt returns the value of the current Int token.
	BigInt() (*big.Int, error)

	// BigRat returns the exact value of the current number token.
	BigRat() (*big.Rat, error)

	// Bool returns the value of the current True or False token.
	Bool() (bool, error)

	// Binary returns the base64-decoded value of the current String token,
	// or the contents of an Embedded []byte.
	Binary(enc *base64.Encoding) ([]byte, error)

	// Embedded returns the value of the current Embedded token.
	Embedded() (any, error)

	// SkipChildren skips to the end of the object or array opened by the
	// current token. It does nothing for other tokens.
	SkipChildren() error

	// Location returns the source location of the current token.
	Location() Location
}

// Sequence returns a Parser that delivers the tokens of each of ps in turn.
// When one parser reports io.EOF, the sequence continues with the next.
// Nested sequences are flattened.
func Sequence(ps ...Parser) Parser {
	var all []Parser
	for _, p := range ps {
		if s, ok := p.(*sequence); ok {
			all = append(all, s.ps[s.cur:]...)
		} else if p != nil {
			all = append(all, p)
		}
	}
	switch len(all) {
	case 0:
		return new(TokenBuffer).Parser()
	case 1:
		return all[0]
	}
	return &sequence{ps: all}
}

type sequence struct {
	ps  []Parser
	cur int
}

func (s *sequence) p() Parser { return s.ps[s.cur] }

func (s *sequence) NextToken() (Token, error) {
	for {
		tok, err := s.p().NextToken()
		if err == io.EOF && s.cur+1 < len(s.ps) {
			s.cur++
			continue
		}
		return tok, err
	}
}

func (s *sequence) Token() Token                              { return s.p().Token() }
func (s *sequence) Name() string                              { return s.p().Name() }
func (s *sequence) Text() (string, error)                     { return s.p().Text() }
func (s *sequence) NumberText() (string, error)               { return s.p().NumberText() }
func (s *sequence) Int64() (int64, error)                     { return s.p().Int64() }
func (s *sequence) Float64() (float64, error)                 { return s.p().Float64() }
func (s *sequence) BigInt() (*big.Int, error)                 { return s.p().BigInt() }
func (s *sequence) BigRat() (*big.Rat, error)                 { return s.p().BigRat() }
func (s *sequence) Bool() (bool, error)                       { return s.p().Bool() }
func (s *sequence) Binary(e *base64.Encoding) ([]byte, error) { return s.p().Binary(e) }
func (s *sequence) Embedded() (any, error)                    { return s.p().Embedded() }
func (s *sequence) SkipChildren() error                       { return s.p().SkipChildren() }
func (s *sequence) Location() Location                        { return s.p().Location() }
