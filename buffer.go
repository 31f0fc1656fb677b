// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"encoding/base64"
	"io"
	"math/big"

	"go4.org/mem"
)

// A TokenBuffer records a sequence of tokens and their payloads, which can
// later be replayed as a Parser. A recording does not depend on the input
// that produced it. The zero value is an empty buffer ready for use.
type TokenBuffer struct {
	toks []bufToken
}

type bufToken struct {
	tok  Token
	text string // field name, string contents, or number text
	val  any    // value of an Embedded token
	loc  Location
}

// Len reports the number of tokens recorded in b.
func (b *TokenBuffer) Len() int { return len(b.toks) }

// Reset discards the contents of b.
func (b *TokenBuffer) Reset() { b.toks = b.toks[:0] }

// Append records a token. For FieldName, String, Int and Float tokens, text
// is the payload of the token; for other tokens it is ignored.
func (b *TokenBuffer) Append(tok Token, text string) {
	b.toks = append(b.toks, bufToken{tok: tok, text: text})
}

// AppendEmbedded records an Embedded token carrying v.
func (b *TokenBuffer) AppendEmbedded(v any) {
	b.toks = append(b.toks, bufToken{tok: Embedded, val: v})
}

// AppendBuffer records the contents of o.
func (b *TokenBuffer) AppendBuffer(o *TokenBuffer) { b.toks = append(b.toks, o.toks...) }

// CopyCurrent records the current token of p, without descending into it.
func (b *TokenBuffer) CopyCurrent(p Parser) error {
	bt := bufToken{tok: p.Token()}
	var err error
	switch bt.tok {
	case Invalid:
		return mismatch(bt.tok, "recorded token")
	case FieldName:
		bt.text = p.Name()
	case String:
		bt.text, err = p.Text()
	case Int, Float:
		bt.text, err = p.NumberText()
	case Embedded:
		bt.val, err = p.Embedded()
	}
	if err != nil {
		return err
	}
	bt.loc = p.Location()
	b.toks = append(b.toks, bt)
	return nil
}

// CopyStructure records the complete value at the current token of p,
// leaving p positioned at the last token of the value. If the current token
// is a FieldName, the name and its value are both recorded.
func (b *TokenBuffer) CopyStructure(p Parser) error {
	if p.Token() == FieldName {
		if err := b.CopyCurrent(p); err != nil {
			return err
		}
		if _, err := p.NextToken(); err != nil {
			return err
		}
	}
	if err := b.CopyCurrent(p); err != nil {
		return err
	}
	if !p.Token().IsStructStart() {
		return nil
	}
	for depth := 1; depth > 0; {
		tok, err := p.NextToken()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		} else if err != nil {
			return err
		}
		if err := b.CopyCurrent(p); err != nil {
			return err
		}
		if tok.IsStructStart() {
			depth++
		} else if tok.IsStructEnd() {
			depth--
		}
	}
	return nil
}

// Parser returns a Parser that replays the contents of b from the beginning.
// Changes to b after Parser returns do not affect the replay.
func (b *TokenBuffer) Parser() Parser {
	return &replay{toks: b.toks[:len(b.toks):len(b.toks)], pos: -1, stack: []frame{{obj: true}}}
}

type frame struct {
	obj  bool
	name string
}

type replay struct {
	toks  []bufToken
	pos   int
	stack []frame // the bottom frame accepts names of a member fragment
}

func (r *replay) cur() *bufToken {
	if r.pos < 0 || r.pos >= len(r.toks) {
		return &bufToken{}
	}
	return &r.toks[r.pos]
}

func (r *replay) NextToken() (Token, error) {
	if r.pos < len(r.toks) {
		r.pos++
	}
	if r.pos >= len(r.toks) {
		return Invalid, io.EOF
	}
	bt := &r.toks[r.pos]
	switch bt.tok {
	case StartObject, StartArray:
		r.stack = append(r.stack, frame{obj: bt.tok == StartObject})
	case EndObject, EndArray:
		if len(r.stack) > 1 {
			r.stack = r.stack[:len(r.stack)-1]
		}
	case FieldName:
		r.stack[len(r.stack)-1].name = bt.text
	}
	return bt.tok, nil
}

func (r *replay) Token() Token { return r.cur().tok }

func (r *replay) Name() string {
	frames := r.stack
	if r.Token().IsStructStart() {
		frames = frames[:len(frames)-1]
	}
	if n := len(frames); n > 0 && frames[n-1].obj {
		return frames[n-1].name
	}
	return ""
}

func (r *replay) Text() (string, error) {
	switch bt := r.cur(); bt.tok {
	case String, FieldName, Int, Float:
		return bt.text, nil
	case Invalid, Embedded:
		return "", mismatch(bt.tok, "text")
	default:
		return literalText(bt.tok), nil
	}
}

func (r *replay) NumberText() (string, error) {
	if bt := r.cur(); bt.tok.IsNumber() {
		return bt.text, nil
	}
	return "", mismatch(r.Token(), "number")
}

func (r *replay) Int64() (int64, error) {
	if bt := r.cur(); bt.tok == Int {
		return mem.ParseInt(mem.S(bt.text), 10, 64)
	}
	return 0, mismatch(r.Token(), "int64")
}

func (r *replay) Float64() (float64, error) {
	if bt := r.cur(); bt.tok.IsNumber() {
		return mem.ParseFloat(mem.S(bt.text), 64)
	}
	return 0, mismatch(r.Token(), "float64")
}

func (r *replay) BigInt() (*big.Int, error) {
	if bt := r.cur(); bt.tok == Int {
		return parseBigInt(bt.text)
	}
	return nil, mismatch(r.Token(), "big.Int")
}

func (r *replay) BigRat() (*big.Rat, error) {
	if bt := r.cur(); bt.tok.IsNumber() {
		return parseBigRat(bt.text)
	}
	return nil, mismatch(r.Token(), "big.Rat")
}

func (r *replay) Bool() (bool, error) {
	switch r.Token() {
	case True:
		return true, nil
	case False:
		return false, nil
	}
	return false, mismatch(r.Token(), "bool")
}

func (r *replay) Binary(enc *base64.Encoding) ([]byte, error) {
	bt := r.cur()
	switch bt.tok {
	case String:
		return decodeBinary(enc, []byte(bt.text))
	case Embedded:
		if b, ok := bt.val.([]byte); ok {
			return b, nil
		}
	}
	return nil, mismatch(bt.tok, "binary")
}

func (r *replay) Embedded() (any, error) {
	if bt := r.cur(); bt.tok == Embedded {
		return bt.val, nil
	}
	return nil, mismatch(r.Token(), "embedded value")
}

func (r *replay) SkipChildren() error {
	if !r.Token().IsStructStart() {
		return nil
	}
	for depth := 1; depth > 0; {
		tok, err := r.NextToken()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		} else if err != nil {
			return err
		}
		if tok.IsStructStart() {
			depth++
		} else if tok.IsStructEnd() {
			depth--
		}
	}
	return nil
}

func (r *replay) Location() Location { return r.cur().loc }
