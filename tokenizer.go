// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/creachadair/jbind/symtab"
	"go4.org/mem"
)

// payloadState records the progress of decoding the body of a String token.
type payloadState byte

const (
	payloadIdle    payloadState = iota // no pending body
	payloadPending                     // body not yet consumed from the input
	payloadDecoded                     // body decoded into t.text
)

type posn struct {
	off int
	lc  LineCol
}

// A Tokenizer reads JSON tokens from an input stream. Each call to NextToken
// advances to the next token, or reports an error. The payload of the current
// token is available from accessor methods such as Text and Int64, which are
// defined only for compatible tokens.
//
// The body of a string value is not read until it is requested with Text, or
// until NextToken must skip past it. A caller that does not need the value of
// a string does not pay to decode it.
//
// A Tokenizer is not safe for concurrent use.
type Tokenizer struct {
	src      source
	features Feature
	maxDepth int
	syms     *symtab.Table // nil if names are not canonicalized

	ctx     *NestingContext
	tok     Token
	err     error // sticky
	payload payloadState
	quote   byte // closing quote of the current string

	text  []byte // decoded string body or number text
	str   string // cached string form of text
	strOK bool
	name  []byte // scratch for field names
	quads []uint32

	start, end posn
	closed     bool
}

// NewTokenizer constructs a tokenizer that consumes input from r.
// If opts == nil, default options are used.
func NewTokenizer(r io.Reader, opts *Options) *Tokenizer {
	return newTokenizer(newSource(r, opts.bufferSize()), opts)
}

// NewTokenizerBytes constructs a tokenizer that consumes input from data.
// The tokenizer does not modify data, but the caller must not modify it until
// tokenization is complete.
func NewTokenizerBytes(data []byte, opts *Options) *Tokenizer {
	return newTokenizer(newFixedSource(data), opts)
}

func newTokenizer(src source, opts *Options) *Tokenizer {
	t := &Tokenizer{
		src:      src,
		features: opts.features(),
		maxDepth: opts.maxDepth(),
		ctx:      newRootContext(),
	}
	if !t.features.Has(DisableCanonicalNames) {
		t.syms = opts.symbols().Child()
		t.syms.FailOnOverflow(!t.features.Has(TolerateSymbolOverflow))
	}
	return t
}

// Features reports the syntax extensions enabled for t.
func (t *Tokenizer) Features() Feature { return t.features }

// NextToken advances t to the next token of the input and returns it.
// At the end of the input, NextToken returns Invalid and io.EOF.
// Once NextToken has reported an error, it reports the same error on all
// subsequent calls.
func (t *Tokenizer) NextToken() (Token, error) {
	if t.err != nil {
		return Invalid, t.err
	}
	if t.payload == payloadPending {
		if err := t.finishString(false); err != nil {
			return Invalid, err
		}
	}
	t.payload = payloadIdle
	t.strOK = false
	prev := t.tok
	if (prev == EndArray || prev == EndObject) && t.ctx.kind == RootContext {
		// The separator after a root container is checked here, so that the
		// closing bracket is reported without waiting for more input. Stray
		// punctuation is left for readValue to report.
		if b, ok := t.src.peek(); ok && b != ']' && b != '}' && b != ',' && b != ':' {
			if err := t.checkRootSeparator(); err != nil {
				return Invalid, err
			}
		}
	}
	t.tok = Invalid

	b, ok, err := t.skipSpace()
	if err != nil {
		return Invalid, err
	}
	if prev == FieldName {
		if !ok {
			return Invalid, t.unexpectedEOF()
		} else if b != ':' {
			return Invalid, t.structuralf("expected ':' after field name, found %s", quoteByte(b))
		}
		t.src.advance()
		if b, ok, err = t.skipSpace(); err != nil {
			return Invalid, err
		} else if !ok {
			return Invalid, t.unexpectedEOF()
		}
		t.mark()
		return t.readValue(b)
	}
	if !ok {
		if t.ctx.kind != RootContext {
			return Invalid, t.unexpectedEOF()
		}
		t.releaseSymbols()
		t.err = io.EOF
		return Invalid, io.EOF
	}

	switch t.ctx.kind {
	case ArrayContext:
		if b == ']' {
			return t.closeContext(EndArray)
		}
		if t.ctx.index >= 0 {
			if b, err = t.requireComma(b, ']'); err != nil {
				return Invalid, err
			} else if b == ']' {
				return t.closeContext(EndArray)
			}
		}
		t.ctx.index++
		t.mark()
		return t.readValue(b)

	case ObjectContext:
		if b == '}' {
			return t.closeContext(EndObject)
		}
		if t.ctx.index >= 0 {
			if b, err = t.requireComma(b, '}'); err != nil {
				return Invalid, err
			} else if b == '}' {
				return t.closeContext(EndObject)
			}
		}
		t.ctx.index++
		t.mark()
		return t.readFieldName(b)

	default:
		t.ctx.index++
		t.mark()
		return t.readValue(b)
	}
}

// requireComma consumes the comma separating entries of a container closed
// by the given byte, and returns the first significant byte after it. If that
// byte is the closing bracket, a trailing comma must be allowed.
func (t *Tokenizer) requireComma(b, closer byte) (byte, error) {
	if b != ',' {
		return 0, t.structuralf("expected ',' or '%c', found %s", closer, quoteByte(b))
	}
	t.src.advance()
	b, ok, err := t.skipSpace()
	if err != nil {
		return 0, err
	} else if !ok {
		return 0, t.unexpectedEOF()
	} else if b == closer && !t.features.Has(AllowTrailingCommas) {
		return 0, t.structuralf("trailing comma before '%c'", closer)
	}
	return b, nil
}

func (t *Tokenizer) readValue(b byte) (Token, error) {
	switch b {
	case '{':
		return t.open(ObjectContext, StartObject)
	case '[':
		return t.open(ArrayContext, StartArray)
	case '"':
		return t.startString(b)
	case '\'':
		if t.features.Has(AllowSingleQuotes) {
			return t.startString(b)
		}
	case 't':
		return t.readLiteral(True, "true")
	case 'f':
		return t.readLiteral(False, "false")
	case 'n':
		return t.readLiteral(Null, "null")
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return t.readNumber(b)
	case 'N', 'I', '+':
		t.text = t.text[:0]
		return t.readNonNumeric()
	case ']', '}', ',', ':':
		return Invalid, t.structuralf("unexpected %s", quoteByte(b))
	}
	return Invalid, t.lexicalf("unexpected character %s", quoteByte(b))
}

func (t *Tokenizer) open(kind ContextKind, tok Token) (Token, error) {
	if t.maxDepth >= 0 && t.ctx.depth >= t.maxDepth {
		return Invalid, t.structuralf("maximum nesting depth %d exceeded", t.maxDepth)
	}
	t.src.advance()
	t.ctx = t.ctx.push(kind, t.start.lc)
	t.tok = tok
	t.markEnd()
	return tok, nil
}

func (t *Tokenizer) closeContext(tok Token) (Token, error) {
	t.mark()
	t.src.advance()
	t.ctx = t.ctx.parent
	t.tok = tok
	t.markEnd()
	return tok, nil
}

func (t *Tokenizer) startString(q byte) (Token, error) {
	t.src.advance()
	t.quote = q
	t.payload = payloadPending
	t.tok = String
	t.end = t.start
	return String, nil
}

// finishString consumes the rest of a pending string, decoding it into t.text
// if decode is true.
func (t *Tokenizer) finishString(decode bool) error {
	t.text = t.text[:0]
	text, err := t.scanString(t.quote, t.text, decode)
	if err != nil {
		return err
	}
	t.text = text
	if decode {
		t.payload = payloadDecoded
	} else {
		t.payload = payloadIdle
	}
	t.markEnd()
	return t.checkRootSeparator()
}

func (t *Tokenizer) readFieldName(b byte) (Token, error) {
	var err error
	switch {
	case b == '"' || (b == '\'' && t.features.Has(AllowSingleQuotes)):
		t.src.advance()
		t.name, err = t.scanString(b, t.name[:0], true)
	case t.features.Has(AllowUnquotedFieldNames) && isNameByte(b) && !isDigit(b):
		t.name = t.readWhile(t.name[:0], isNameByte)
		if err = t.fail(t.src.readErr()); err == nil && !utf8.Valid(t.name) {
			err = t.lexicalf("invalid UTF-8 in field name")
		}
	default:
		return Invalid, t.structuralf("expected field name, found %s", quoteByte(b))
	}
	if err != nil {
		return Invalid, err
	}
	name, err := t.intern(t.name)
	if err != nil {
		return Invalid, err
	}
	t.ctx.name = name
	t.tok = FieldName
	t.markEnd()
	return FieldName, nil
}

// intern returns the canonical string for name.
func (t *Tokenizer) intern(name []byte) (string, error) {
	if t.syms == nil {
		return string(name), nil
	}
	var n int
	t.quads, n = symtab.Pack(name, t.quads)
	if s, ok := t.syms.Find(t.quads, n); ok {
		return s, nil
	}
	s, err := t.syms.Add(string(name), t.quads, n)
	if err != nil {
		return "", t.fail(err)
	}
	return s, nil
}

func (t *Tokenizer) readLiteral(tok Token, want string) (Token, error) {
	for i := 0; i < len(want); i++ {
		b, ok := t.src.peek()
		if !ok || b != want[i] {
			return Invalid, t.badToken(want[:i])
		}
		t.src.advance()
	}
	if b, ok := t.src.peek(); ok && isNameByte(b) {
		return Invalid, t.badToken(want)
	}
	t.tok = tok
	t.markEnd()
	if err := t.checkRootSeparator(); err != nil {
		return Invalid, err
	}
	return tok, nil
}

// badToken reports an unrecognized bare word, whose consumed prefix is seen.
func (t *Tokenizer) badToken(seen string) error {
	if err := t.src.readErr(); err != nil {
		return t.fail(err)
	}
	word := t.readWhile([]byte(seen), isNameByte)
	if len(word) == 0 {
		b, _ := t.src.peek()
		return t.lexicalf("unexpected character %s", quoteByte(b))
	}
	return t.lexicalf("unrecognized token %q", word)
}

// checkRootSeparator verifies that a value at the top level is followed by
// whitespace or the end of input.
func (t *Tokenizer) checkRootSeparator() error {
	if t.ctx.kind != RootContext {
		return nil
	}
	b, ok := t.src.peek()
	if !ok {
		return t.fail(t.src.readErr())
	}
	switch {
	case isSpace(b):
	case b == '/' && t.features.Has(AllowComments):
	case b == '#' && t.features.Has(AllowYAMLComments):
	default:
		return t.lexicalf("expected whitespace or end of input after %v, found %s", t.tok, quoteByte(b))
	}
	return nil
}

// skipSpace skips whitespace and enabled comments, and returns the next
// significant byte without consuming it. At the end of input it reports
// false with a nil error.
func (t *Tokenizer) skipSpace() (byte, bool, error) {
	for {
		b, ok := t.src.peek()
		if !ok {
			return 0, false, t.fail(t.src.readErr())
		}
		switch {
		case isSpace(b):
			t.src.advance()
		case b == '/' && t.features.Has(AllowComments):
			if err := t.skipComment(); err != nil {
				return 0, false, err
			}
		case b == '#' && t.features.Has(AllowYAMLComments):
			t.skipLine()
		default:
			return b, true, nil
		}
	}
}

func (t *Tokenizer) skipComment() error {
	t.src.advance() // "/"
	b, ok := t.src.next()
	if !ok {
		return t.truncated("comment")
	}
	switch b {
	case '/':
		t.skipLine()
		return nil
	case '*':
		for star := false; ; {
			b, ok := t.src.next()
			if !ok {
				return t.truncated("block comment")
			} else if star && b == '/' {
				return nil
			}
			star = b == '*'
		}
	}
	return t.lexicalf("invalid comment: unexpected %s after '/'", quoteByte(b))
}

// skipLine consumes input through the next newline or the end of input.
func (t *Tokenizer) skipLine() {
	for {
		w := t.src.window()
		if i := bytes.IndexByte(w, '\n'); i >= 0 {
			t.src.skip(i)
			t.src.advance()
			return
		}
		t.src.skip(len(w))
		if _, ok := t.src.peek(); !ok {
			return
		}
	}
}

// readWhile appends bytes matching f to buf and consumes them.
func (t *Tokenizer) readWhile(buf []byte, f func(byte) bool) []byte {
	for {
		w := t.src.window()
		i := 0
		for i < len(w) && f(w[i]) {
			i++
		}
		buf = append(buf, w[:i]...)
		t.src.skip(i)
		if i < len(w) {
			return buf
		}
		if _, ok := t.src.peek(); !ok {
			return buf
		}
	}
}

// Token returns the type of the current token.
func (t *Tokenizer) Token() Token { return t.tok }

// Err returns the error that stopped t, if any. It is nil until NextToken has
// reported an error, and is io.EOF after the input has been exhausted.
func (t *Tokenizer) Err() error { return t.err }

// Context returns the nesting context of the current token. The context of a
// StartObject or StartArray token is the newly-opened container.
func (t *Tokenizer) Context() *NestingContext { return t.ctx }

// Location returns the location of the current token. For a string whose
// body has not yet been read, the end of the location is its start.
func (t *Tokenizer) Location() Location {
	return Location{
		Span:  Span{Pos: t.start.off, End: t.end.off},
		First: t.start.lc,
		Last:  t.end.lc,
	}
}

// Name returns the name of the current object member: for a FieldName token
// the name itself, and for a value the name of the member it belongs to.
// It returns "" outside an object.
func (t *Tokenizer) Name() string {
	c := t.ctx
	if t.tok.IsStructStart() {
		c = c.parent
	}
	if c != nil && c.kind == ObjectContext {
		return c.name
	}
	return ""
}

// Text returns the text of the current token: the decoded contents of a
// string, the name of a field, the text of a number, or the spelling of a
// literal or bracket.
func (t *Tokenizer) Text() (string, error) {
	switch t.tok {
	case String:
		if t.payload == payloadPending {
			if err := t.finishString(true); err != nil {
				return "", err
			}
		}
		return t.textString(), nil
	case FieldName:
		return t.ctx.name, nil
	case Int, Float:
		return t.textString(), nil
	case Invalid, Embedded:
		return "", mismatch(t.tok, "text")
	}
	return literalText(t.tok), nil
}

// TextBytes is as Text for strings and numbers, but returns a view of the
// decoded bytes that is valid only until the next call to NextToken.
func (t *Tokenizer) TextBytes() ([]byte, error) {
	switch t.tok {
	case String:
		if t.payload == payloadPending {
			if err := t.finishString(true); err != nil {
				return nil, err
			}
		}
		return t.text, nil
	case Int, Float:
		return t.text, nil
	}
	return nil, mismatch(t.tok, "text")
}

func (t *Tokenizer) textString() string {
	if !t.strOK {
		t.str = string(t.text)
		t.strOK = true
	}
	return t.str
}

// NumberText returns the text of the current number token.
func (t *Tokenizer) NumberText() (string, error) {
	if !t.tok.IsNumber() {
		return "", mismatch(t.tok, "number")
	}
	return t.textString(), nil
}

// Int64 returns the value of the current Int token as an int64.
func (t *Tokenizer) Int64() (int64, error) {
	if t.tok != Int {
		return 0, mismatch(t.tok, "int64")
	}
	return mem.ParseInt(mem.B(t.text), 10, 64)
}

// Int returns the value of the current Int token as an int.
func (t *Tokenizer) Int() (int, error) {
	if t.tok != Int {
		return 0, mismatch(t.tok, "int")
	}
	v, err := mem.ParseInt(mem.B(t.text), 10, strconv.IntSize)
	return int(v), err
}

// Float64 returns the value of the current number token as a float64.
// An Int token is widened to float64.
func (t *Tokenizer) Float64() (float64, error) {
	if !t.tok.IsNumber() {
		return 0, mismatch(t.tok, "float64")
	}
	return mem.ParseFloat(mem.B(t.text), 64)
}

// BigInt returns the value of the current Int token with arbitrary precision.
func (t *Tokenizer) BigInt() (*big.Int, error) {
	if t.tok != Int {
		return nil, mismatch(t.tok, "big.Int")
	}
	return parseBigInt(t.textString())
}

// BigRat returns the exact value of the current number token.
func (t *Tokenizer) BigRat() (*big.Rat, error) {
	if !t.tok.IsNumber() {
		return nil, mismatch(t.tok, "big.Rat")
	}
	return parseBigRat(t.textString())
}

// Bool returns the value of the current True or False token.
func (t *Tokenizer) Bool() (bool, error) {
	switch t.tok {
	case True:
		return true, nil
	case False:
		return false, nil
	}
	return false, mismatch(t.tok, "bool")
}

// Binary decodes the current String token using enc.
// If enc == nil, base64.StdEncoding is used.
func (t *Tokenizer) Binary(enc *base64.Encoding) ([]byte, error) {
	if t.tok != String {
		return nil, mismatch(t.tok, "binary")
	}
	text, err := t.TextBytes()
	if err != nil {
		return nil, err
	}
	return decodeBinary(enc, text)
}

// Embedded always reports an error, since a tokenizer never produces
// Embedded tokens.
func (t *Tokenizer) Embedded() (any, error) { return nil, mismatch(t.tok, "embedded value") }

// SkipChildren skips the contents of the object or array opened by the
// current token, leaving t positioned at the matching end token. For any
// other token, SkipChildren does nothing.
func (t *Tokenizer) SkipChildren() error {
	if !t.tok.IsStructStart() {
		return nil
	}
	for depth := 1; depth > 0; {
		tok, err := t.NextToken()
		if err != nil {
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

// Close releases the resources held by t, and offers any field names it has
// learned to its symbol table. After Close, NextToken reports ErrClosed.
func (t *Tokenizer) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.releaseSymbols()
	t.src.release()
	if t.err == nil || t.err == io.EOF {
		t.err = ErrClosed
	}
	t.tok = Invalid
	return nil
}

func (t *Tokenizer) releaseSymbols() {
	if t.syms != nil {
		t.syms.Release()
	}
}

func (t *Tokenizer) mark()    { t.start = posn{off: t.src.offset(), lc: t.src.lineCol()} }
func (t *Tokenizer) markEnd() { t.end = posn{off: t.src.offset(), lc: t.src.lineCol()} }

// fail records err as the sticky error of t and returns it.
// If err == nil, fail does nothing and returns nil.
func (t *Tokenizer) fail(err error) error {
	if err != nil {
		t.err = err
		t.tok = Invalid
		t.payload = payloadIdle
	}
	return err
}

func (t *Tokenizer) syntaxf(kind ErrorKind, msg string, args ...any) error {
	return t.fail(&SyntaxError{
		Kind:     kind,
		Location: t.src.lineCol(),
		Offset:   t.src.offset(),
		Path:     t.ctx.Path(),
		Message:  fmt.Sprintf(msg, args...),
	})
}

func (t *Tokenizer) lexicalf(msg string, args ...any) error {
	return t.syntaxf(Lexical, msg, args...)
}

func (t *Tokenizer) structuralf(msg string, args ...any) error {
	return t.syntaxf(Structural, msg, args...)
}

// unexpectedEOF reports the input ending inside a container.
func (t *Tokenizer) unexpectedEOF() error {
	if err := t.src.readErr(); err != nil {
		return t.fail(err)
	}
	return t.structuralf("unexpected end of input in %v", t.ctx.kind)
}

// truncated reports the input ending inside a token.
func (t *Tokenizer) truncated(what string) error {
	if err := t.src.readErr(); err != nil {
		return t.fail(err)
	}
	return t.lexicalf("unexpected end of input in %s", what)
}

func literalText(tok Token) string {
	switch tok {
	case StartObject:
		return "{"
	case EndObject:
		return "}"
	case StartArray:
		return "["
	case EndArray:
		return "]"
	case True:
		return "true"
	case False:
		return "false"
	case Null:
		return "null"
	}
	return ""
}

func quoteByte(b byte) string {
	if b >= ' ' && b < 0x7f {
		return fmt.Sprintf("'%c'", b)
	}
	return fmt.Sprintf("byte 0x%02x", b)
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }
func isDigit(b byte) bool { return '0' <= b && b <= '9' }

// isIdentByte reports whether b may appear in a plain path segment.
func isIdentByte(b byte) bool {
	return b == '_' || b == '$' || isDigit(b) || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// isNameByte reports whether b may appear in an unquoted field name or a
// bare word. Bytes of multi-byte UTF-8 sequences are accepted.
func isNameByte(b byte) bool { return isIdentByte(b) || b >= 0x80 }
