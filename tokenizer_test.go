// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind_test

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"
	"unsafe"

	"github.com/creachadair/jbind"
	"github.com/creachadair/jbind/symtab"
	"github.com/google/go-cmp/cmp"
)

// tokenString renders the current token of p and its payload.
func tokenString(p jbind.Parser) (string, error) {
	switch tok := p.Token(); tok {
	case jbind.FieldName:
		return "name:" + p.Name(), nil
	case jbind.String:
		s, err := p.Text()
		return "str:" + s, err
	case jbind.Int:
		s, err := p.NumberText()
		return "int:" + s, err
	case jbind.Float:
		s, err := p.NumberText()
		return "float:" + s, err
	default:
		return p.Text()
	}
}

// scanAll reads all the tokens from p, and reports the first error other
// than io.EOF.
func scanAll(p jbind.Parser) ([]string, error) {
	var out []string
	for {
		_, err := p.NextToken()
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		s, err := tokenString(p)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

func tokenize(input string, opts *jbind.Options) ([]string, error) {
	tz := jbind.NewTokenizer(strings.NewReader(input), opts)
	defer tz.Close()
	return scanAll(tz)
}

func TestTokenizer(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"  \t\r\n ", nil},
		{"true false null", []string{"true", "false", "null"}},
		{`{}`, []string{"{", "}"}},
		{`[]`, []string{"[", "]"}},
		{`{"a":1,"b":[true,false,null],"c":"x"}`, []string{
			"{", "name:a", "int:1", "name:b", "[", "true", "false", "null", "]", "name:c", "str:x", "}",
		}},
		{`10 10.0 1e1 -0 -1.5E+3 0.25e-2`, []string{
			"int:10", "float:10.0", "float:1e1", "int:-0", "float:-1.5E+3", "float:0.25e-2",
		}},
		{`"\u00e9"`, []string{"str:\u00e9"}},
		{`"\ud83d\ude00"`, []string{"str:\U0001f600"}},
		{`"\ud83d" "\ude00x" "\ud83d\n"`, []string{"str:\ufffd", "str:\ufffdx", "str:\ufffd\n"}},
		{`"\"\\\/\b\f\n\r\t"`, []string{"str:\"\\/\b\f\n\r\t"}},
		{"\"caf\u00e9 \U0001f600\"", []string{"str:caf\u00e9 \U0001f600"}},
		{`[[[]],{"":{}}]`, []string{"[", "[", "[", "]", "]", "{", "name:", "{", "}", "}", "]"}},
		{"{\"a\"\n:\n1\n}", []string{"{", "name:a", "int:1", "}"}},
		{`1 "two" [3]`, []string{"int:1", "str:two", "[", "int:3", "]"}},
		{"[1] 2\n{}\t{}", []string{"[", "int:1", "]", "int:2", "{", "}", "{", "}"}},
	}
	for _, test := range tests {
		got, err := tokenize(test.input, nil)
		if err != nil {
			t.Errorf("Input %#q: unexpected error: %v", test.input, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Input %#q: tokens (-want, +got):\n%s", test.input, diff)
		}
	}
}

func TestSurrogatePair(t *testing.T) {
	tz := jbind.NewTokenizerBytes([]byte(`"\ud83d\ude00"`), nil)
	if _, err := tz.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	s, err := tz.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if n := utf8.RuneCountInString(s); n != 1 {
		t.Errorf("Text: got %d runes, want 1", n)
	}
	if r, _ := utf8.DecodeRuneInString(s); r != 0x1f600 {
		t.Errorf("Text: got %U, want U+1F600", r)
	}
}

func TestNumberClassification(t *testing.T) {
	tests := []struct {
		input string
		want  jbind.Token
	}{
		{"10", jbind.Int},
		{"-10", jbind.Int},
		{"0", jbind.Int},
		{"10.0", jbind.Float},
		{"1e1", jbind.Float},
		{"1E+1", jbind.Float},
		{"100e-1", jbind.Float},
	}
	for _, test := range tests {
		tz := jbind.NewTokenizerBytes([]byte(test.input), nil)
		tok, err := tz.NextToken()
		if err != nil {
			t.Errorf("Input %q: %v", test.input, err)
			continue
		}
		if tok != test.want {
			t.Errorf("Input %q: got %v, want %v", test.input, tok, test.want)
		}
		if f, err := tz.Float64(); err != nil || f != 10 && f != -10 && f != 0 {
			t.Errorf("Input %q: Float64 = %v, %v", test.input, f, err)
		}
	}
}

func TestAccessors(t *testing.T) {
	tz := jbind.NewTokenizerBytes([]byte(`["s", 12, 1.5, 123456789012345678901234567890, 0.1, true, "aGVsbG8="]`), nil)
	next := func(want jbind.Token) {
		t.Helper()
		if tok, err := tz.NextToken(); err != nil || tok != want {
			t.Fatalf("NextToken: got %v, %v; want %v", tok, err, want)
		}
	}
	next(jbind.StartArray)

	next(jbind.String)
	var tm *jbind.TypeMismatchError
	if _, err := tz.Int64(); !errors.As(err, &tm) {
		t.Errorf("Int64 of string: got %v, want TypeMismatchError", err)
	}
	if loc := tz.Location(); loc.Pos != loc.End {
		t.Errorf("Location of pending string: got %+v, want empty span", loc)
	}
	for range 2 {
		if s, err := tz.Text(); err != nil || s != "s" {
			t.Errorf("Text: got %q, %v; want s", s, err)
		}
	}
	if loc := tz.Location(); loc.Pos != 1 || loc.End != 4 {
		t.Errorf("Location of decoded string: got %+v, want 1..4", loc.Span)
	}

	next(jbind.Int)
	if v, err := tz.Int64(); err != nil || v != 12 {
		t.Errorf("Int64: got %v, %v; want 12", v, err)
	}
	if v, err := tz.Int(); err != nil || v != 12 {
		t.Errorf("Int: got %v, %v; want 12", v, err)
	}
	if v, err := tz.Float64(); err != nil || v != 12 {
		t.Errorf("Float64 of Int: got %v, %v; want 12", v, err)
	}

	next(jbind.Float)
	if _, err := tz.Int64(); !errors.As(err, &tm) {
		t.Errorf("Int64 of float: got %v, want TypeMismatchError", err)
	}
	if v, err := tz.Float64(); err != nil || v != 1.5 {
		t.Errorf("Float64: got %v, %v; want 1.5", v, err)
	}

	next(jbind.Int)
	if _, err := tz.Int64(); err == nil {
		t.Error("Int64 of huge value: got nil error")
	}
	if v, err := tz.BigInt(); err != nil || v.String() != "123456789012345678901234567890" {
		t.Errorf("BigInt: got %v, %v", v, err)
	}

	next(jbind.Float)
	if v, err := tz.BigRat(); err != nil || v.RatString() != "1/10" {
		t.Errorf("BigRat: got %v, %v; want 1/10", v, err)
	}

	next(jbind.True)
	if v, err := tz.Bool(); err != nil || !v {
		t.Errorf("Bool: got %v, %v; want true", v, err)
	}

	next(jbind.String)
	if v, err := tz.Binary(nil); err != nil || string(v) != "hello" {
		t.Errorf("Binary: got %q, %v; want hello", v, err)
	}

	next(jbind.EndArray)
	if _, err := tz.NextToken(); err != io.EOF {
		t.Errorf("NextToken at end: got %v, want EOF", err)
	}
}

func TestTokenizerErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  jbind.ErrorKind
	}{
		{`12x`, jbind.Lexical},
		{`"a"x`, jbind.Lexical},
		{`truex`, jbind.Lexical},
		{`tru`, jbind.Lexical},
		{`nul`, jbind.Lexical},
		{`bogus`, jbind.Lexical},
		{`01`, jbind.Lexical},
		{`-`, jbind.Lexical},
		{`-x`, jbind.Lexical},
		{`1.`, jbind.Lexical},
		{`1.e5`, jbind.Lexical},
		{`1e`, jbind.Lexical},
		{`1e+`, jbind.Lexical},
		{`"abc`, jbind.Lexical},
		{`"\x"`, jbind.Lexical},
		{`"\u12"`, jbind.Lexical},
		{`"\u12x4"`, jbind.Lexical},
		{"\"a\x01b\"", jbind.Lexical},
		{"\"\xff\"", jbind.Lexical},
		{"\"\xc3\x28\"", jbind.Lexical},
		{"\"\xed\xa0\x80\"", jbind.Lexical}, // encoded surrogate
		{"\"\xe0\x80\xaf\"", jbind.Lexical}, // overlong
		{`NaN`, jbind.Lexical},
		{`Infinity`, jbind.Lexical},
		{`-Infinity`, jbind.Lexical},
		{"// c\n1", jbind.Lexical},
		{`'a'`, jbind.Lexical},
		{`[1,]`, jbind.Structural},
		{`{"a":1,}`, jbind.Structural},
		{`{"a" 1}`, jbind.Structural},
		{`{"a":1 "b":2}`, jbind.Structural},
		{`[1 2]`, jbind.Structural},
		{`[1}`, jbind.Structural},
		{`{"a":1]`, jbind.Structural},
		{`{`, jbind.Structural},
		{`[1,`, jbind.Structural},
		{`{"a":`, jbind.Structural},
		{`]`, jbind.Structural},
		{`{"a":1}}`, jbind.Structural},
		{`{a:1}`, jbind.Structural},
		{`{,}`, jbind.Structural},
		{`[,1]`, jbind.Structural},
		{`{"a":1,,"b":2}`, jbind.Structural},
		{`[1]2`, jbind.Lexical},
		{`{}{}`, jbind.Lexical},
		{`[]"x"`, jbind.Lexical},
		{`{}true`, jbind.Lexical},
		{`[],[]`, jbind.Structural},
	}
	for _, test := range tests {
		_, err := tokenize(test.input, nil)
		var serr *jbind.SyntaxError
		if !errors.As(err, &serr) {
			t.Errorf("Input %#q: got error %v, want SyntaxError", test.input, err)
			continue
		}
		if serr.Kind != test.kind {
			t.Errorf("Input %#q: got %v error (%v), want %v", test.input, serr.Kind, err, test.kind)
		}
	}
}

func TestErrorsAreSticky(t *testing.T) {
	tz := jbind.NewTokenizerBytes([]byte(`[1 2]`), nil)
	var first error
	for range 5 {
		if _, err := tz.NextToken(); err != nil {
			first = err
			break
		}
	}
	if first == nil {
		t.Fatal("No error reported")
	}
	for range 3 {
		if tok, err := tz.NextToken(); err != first || tok != jbind.Invalid {
			t.Errorf("NextToken after error: got %v, %v; want %v", tok, err, first)
		}
	}
}

func TestErrorLocation(t *testing.T) {
	_, err := tokenize("[1,\n  2x]", nil)
	var serr *jbind.SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("Got error %v, want SyntaxError", err)
	}
	want := jbind.LineCol{Line: 2, Column: 3}
	if serr.Location != want {
		t.Errorf("Error location: got %v, want %v", serr.Location, want)
	}
	if serr.Offset != 7 {
		t.Errorf("Error offset: got %d, want 7", serr.Offset)
	}
	if serr.Path != "$[1]" {
		t.Errorf("Error path: got %q, want $[1]", serr.Path)
	}
	if got, want := err.Error(), "at 2:3: expected ',' or ']', found 'x'"; got != want {
		t.Errorf("Error: got %q, want %q", got, want)
	}
}

func TestFeatures(t *testing.T) {
	tests := []struct {
		feature jbind.Feature
		input   string
		want    []string
	}{
		{jbind.AllowComments, "/* x */ [1, // y\n 2 /**/] // end", []string{"[", "int:1", "int:2", "]"}},
		{jbind.AllowComments, "1/* tight */", []string{"int:1"}},
		{jbind.AllowYAMLComments, "# hi\n[1] # bye", []string{"[", "int:1", "]"}},
		{jbind.AllowSingleQuotes, `{'a':'b"c', "d": 'e'}`, []string{"{", "name:a", `str:b"c`, "name:d", "str:e", "}"}},
		{jbind.AllowUnquotedFieldNames, `{a_1:1, $b :2, "c":3}`, []string{
			"{", "name:a_1", "int:1", "name:$b", "int:2", "name:c", "int:3", "}",
		}},
		{jbind.AllowLeadingZeros, `[007, -00, 00.5, 0]`, []string{"[", "int:7", "int:-0", "float:0.5", "int:0", "]"}},
		{jbind.AllowNonNumericNumbers, `[NaN, Infinity, -Infinity, +Infinity]`, []string{
			"[", "float:NaN", "float:Infinity", "float:-Infinity", "float:+Infinity", "]",
		}},
		{jbind.AllowTrailingCommas, `[1,2,] {"a":1,}`, []string{"[", "int:1", "int:2", "]", "{", "name:a", "int:1", "}"}},
		{jbind.AllowUnescapedControlChars, "\"a\tb\nc\"", []string{"str:a\tb\nc"}},
		{jbind.AllowBackslashEscapingAny, `"\q\'\u0041"`, []string{"str:q'A"}},
	}
	for _, test := range tests {
		// Each input must be rejected by default.
		if _, err := tokenize(test.input, nil); err == nil {
			t.Errorf("Input %#q: strict tokenizer did not report an error", test.input)
		}
		got, err := tokenize(test.input, &jbind.Options{Features: test.feature})
		if err != nil {
			t.Errorf("Input %#q [%v]: unexpected error: %v", test.input, test.feature, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Input %#q [%v]: tokens (-want, +got):\n%s", test.input, test.feature, diff)
		}
	}
}

func TestNonNumericValues(t *testing.T) {
	tz := jbind.NewTokenizerBytes([]byte(`-Infinity`), &jbind.Options{Features: jbind.AllowNonNumericNumbers})
	if tok, err := tz.NextToken(); err != nil || tok != jbind.Float {
		t.Fatalf("NextToken: got %v, %v; want Float", tok, err)
	}
	if v, err := tz.Float64(); err != nil || v > -1e308 {
		t.Errorf("Float64: got %v, %v; want -Inf", v, err)
	}
	if _, err := tz.BigRat(); err == nil {
		t.Error("BigRat of -Infinity: got nil error")
	}
}

func TestSmallReads(t *testing.T) {
	long := strings.Repeat("abcdefghij", 50)
	input := fmt.Sprintf(`{"%s": ["%s\u00e9\ud83d\ude00", 123456789012345, -1.25e+10, true, null], "n\u0041me": {}}`, long, long)
	want := []string{
		"{", "name:" + long, "[", "str:" + long + "\u00e9\U0001f600", "int:123456789012345", "float:-1.25e+10",
		"true", "null", "]", "name:nAme", "{", "}", "}",
	}
	tests := []struct {
		name string
		r    io.Reader
		opts *jbind.Options
	}{
		{"OneByte", iotest.OneByteReader(strings.NewReader(input)), nil},
		{"HalfReader", iotest.HalfReader(strings.NewReader(input)), &jbind.Options{BufferSize: 16}},
		{"DataErr", iotest.DataErrReader(strings.NewReader(input)), &jbind.Options{BufferSize: 17}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tz := jbind.NewTokenizer(test.r, test.opts)
			defer tz.Close()
			got, err := scanAll(tz)
			if err != nil {
				t.Fatalf("Tokenize: unexpected error: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Tokens (-want, +got):\n%s", diff)
			}
		})
	}
}

type stalledReader struct{ data string }

func (s *stalledReader) Read(buf []byte) (int, error) {
	if s.data == "" {
		return 0, nil
	}
	n := copy(buf, s.data)
	s.data = s.data[n:]
	return n, nil
}

type brokenReader struct {
	data string
	err  error
}

func (b *brokenReader) Read(buf []byte) (int, error) {
	if b.data == "" {
		return 0, b.err
	}
	n := copy(buf, b.data)
	b.data = b.data[n:]
	return n, nil
}

func TestReadErrors(t *testing.T) {
	t.Run("NoProgress", func(t *testing.T) {
		_, err := tokenize2(&stalledReader{data: `[1, 2`})
		var rerr *jbind.ReadError
		if !errors.As(err, &rerr) {
			t.Fatalf("Got error %v, want ReadError", err)
		}
		if !errors.Is(err, jbind.ErrNoProgress) {
			t.Errorf("Got error %v, want ErrNoProgress", err)
		}
		if jbind.IsSyntaxError(err) {
			t.Errorf("Read failure reported as syntax error: %v", err)
		}
	})
	t.Run("ReaderFailed", func(t *testing.T) {
		boom := errors.New("boom")
		got, err := tokenize2(&brokenReader{data: `[1, "ok", 2`, err: boom})
		if !errors.Is(err, boom) {
			t.Fatalf("Got error %v, want %v", err, boom)
		}
		if diff := cmp.Diff([]string{"[", "int:1", "str:ok"}, got); diff != "" {
			t.Errorf("Tokens before failure (-want, +got):\n%s", diff)
		}
	})
}

func tokenize2(r io.Reader) ([]string, error) {
	tz := jbind.NewTokenizer(r, nil)
	defer tz.Close()
	return scanAll(tz)
}

func TestMaxDepth(t *testing.T) {
	opts := &jbind.Options{MaxDepth: 3}
	if _, err := tokenize(`[[[1]]]`, opts); err != nil {
		t.Errorf("Depth 3: unexpected error: %v", err)
	}
	_, err := tokenize(`[[[[1]]]]`, opts)
	var serr *jbind.SyntaxError
	if !errors.As(err, &serr) || serr.Kind != jbind.Structural {
		t.Errorf("Depth 4: got %v, want structural error", err)
	}
	deep := strings.Repeat("[", 5000) + strings.Repeat("]", 5000)
	if _, err := tokenize(deep, &jbind.Options{MaxDepth: -1}); err != nil {
		t.Errorf("Unlimited depth: unexpected error: %v", err)
	}
}

func TestContextAndLocation(t *testing.T) {
	tz := jbind.NewTokenizerBytes([]byte("{\n  \"a\": [1, {\"b\": 2}]\n}"), nil)
	type probe struct {
		Tok  jbind.Token
		Path string
		Name string
		Loc  jbind.Location
	}
	var got []probe
	for {
		tok, err := tz.NextToken()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
		got = append(got, probe{tok, tz.Context().Path(), tz.Name(), tz.Location()})
	}
	loc := func(pos, end, line, c0, c1 int) jbind.Location {
		return jbind.Location{
			Span:  jbind.Span{Pos: pos, End: end},
			First: jbind.LineCol{Line: line, Column: c0},
			Last:  jbind.LineCol{Line: line, Column: c1},
		}
	}
	want := []probe{
		{jbind.StartObject, "$", "", loc(0, 1, 1, 0, 1)},
		{jbind.FieldName, "$.a", "a", loc(4, 7, 2, 2, 5)},
		{jbind.StartArray, "$.a", "a", loc(9, 10, 2, 7, 8)},
		{jbind.Int, "$.a[0]", "", loc(10, 11, 2, 8, 9)},
		{jbind.StartObject, "$.a[1]", "", loc(13, 14, 2, 11, 12)},
		{jbind.FieldName, "$.a[1].b", "b", loc(14, 17, 2, 12, 15)},
		{jbind.Int, "$.a[1].b", "b", loc(19, 20, 2, 17, 18)},
		{jbind.EndObject, "$.a[1]", "", loc(20, 21, 2, 18, 19)},
		{jbind.EndArray, "$.a", "a", loc(21, 22, 2, 19, 20)},
		{jbind.EndObject, "$", "", loc(23, 24, 3, 0, 1)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Probes (-want, +got):\n%s", diff)
	}
}

func TestSkipChildren(t *testing.T) {
	tz := jbind.NewTokenizerBytes([]byte(`{"skip": {"a": [1, {"b": "c"}], "d": "e"}, "keep": 5}`), nil)
	var got []string
	for {
		tok, err := tz.NextToken()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
		if tok == jbind.StartObject && tz.Name() == "skip" {
			if err := tz.SkipChildren(); err != nil {
				t.Fatalf("SkipChildren: %v", err)
			}
			if tz.Token() != jbind.EndObject {
				t.Errorf("After SkipChildren: got %v, want EndObject", tz.Token())
			}
			continue
		}
		s, _ := tokenString(tz)
		got = append(got, s)
	}
	if diff := cmp.Diff([]string{"{", "name:skip", "name:keep", "int:5", "}"}, got); diff != "" {
		t.Errorf("Tokens (-want, +got):\n%s", diff)
	}
}

func TestCanonicalNames(t *testing.T) {
	root := symtab.NewRoot(nil)
	opts := &jbind.Options{Symbols: root}
	firstName := func(input string) string {
		tz := jbind.NewTokenizerBytes([]byte(input), opts)
		defer tz.Close()
		tz.NextToken()
		if tok, err := tz.NextToken(); err != nil || tok != jbind.FieldName {
			t.Fatalf("NextToken: got %v, %v; want FieldName", tok, err)
		}
		return tz.Name()
	}
	a := firstName(`{"shared": 1}`)
	b := firstName(`{"shar\u0065d": 2}`)
	if a != "shared" || b != "shared" {
		t.Fatalf("Names: got %q, %q", a, b)
	}
	if unsafe.StringData(a) != unsafe.StringData(b) {
		t.Error("Names from the same symbol root do not share storage")
	}
	if root.Size() != 1 {
		t.Errorf("Root size: got %d, want 1", root.Size())
	}

	noCanon := &jbind.Options{Features: jbind.DisableCanonicalNames, Symbols: root}
	tz := jbind.NewTokenizerBytes([]byte(`{"shared": 1}`), noCanon)
	tz.NextToken()
	tz.NextToken()
	if c := tz.Name(); c != "shared" || unsafe.StringData(c) == unsafe.StringData(a) {
		t.Errorf("Uncanonicalized name %q shares storage", c)
	}
}

func TestSymbolOverflow(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("{")
	for i := range 500 {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `"k%d":%d`, i, i)
	}
	sb.WriteString("}")
	input := sb.String()

	small := &symtab.Config{InitialSize: 16, MaxSize: 16}
	_, err := tokenize(input, &jbind.Options{Symbols: symtab.NewRoot(small)})
	var cerr *symtab.CollisionOverflowError
	if !errors.As(err, &cerr) {
		t.Errorf("Got error %v, want CollisionOverflowError", err)
	}

	got, err := tokenize(input, &jbind.Options{
		Symbols:  symtab.NewRoot(small),
		Features: jbind.TolerateSymbolOverflow,
	})
	if err != nil {
		t.Fatalf("Tolerant tokenize: unexpected error: %v", err)
	}
	if len(got) != 1002 || got[1] != "name:k0" || got[999] != "name:k499" {
		t.Errorf("Tolerant tokenize: got %d tokens, first name %q", len(got), got[1])
	}
}

func TestClose(t *testing.T) {
	tz := jbind.NewTokenizer(strings.NewReader(`[1, 2]`), nil)
	tz.NextToken()
	if err := tz.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := tz.NextToken(); !errors.Is(err, jbind.ErrClosed) {
		t.Errorf("NextToken after Close: got %v, want ErrClosed", err)
	}
	if err := tz.Close(); err != nil {
		t.Errorf("Second Close: %v", err)
	}
}

// reencode renders tokens as JSON text, using Quote for strings.
func reencode(t *testing.T, p jbind.Parser) string {
	t.Helper()
	var sb strings.Builder
	first := []bool{true}
	afterName := false
	for {
		tok, err := p.NextToken()
		if err == io.EOF {
			return sb.String()
		} else if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
		top := len(first) - 1
		if tok.IsStructEnd() {
			sb.WriteString(map[jbind.Token]string{jbind.EndObject: "}", jbind.EndArray: "]"}[tok])
			first = first[:top]
			continue
		}
		if !afterName {
			if !first[top] {
				if top == 0 {
					sb.WriteByte(' ')
				} else {
					sb.WriteByte(',')
				}
			}
			first[top] = false
		}
		afterName = false
		switch tok {
		case jbind.FieldName:
			sb.WriteString(jbind.Quote(p.Name()) + ":")
			afterName = true
		case jbind.StartObject, jbind.StartArray:
			s, _ := p.Text()
			sb.WriteString(s)
			first = append(first, true)
		case jbind.String:
			s, _ := p.Text()
			sb.WriteString(jbind.Quote(s))
		default:
			s, _ := p.Text()
			sb.WriteString(s)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`{"a":1,"b":[true,false,null],"c":"x"}`,
		`[1.5e300, -0.000001, 123456789012345678901234567890, "tab\there", "\u0000\u001f\u2028"]`,
		`{"nested":{"deeper":{"deepest":[[],{}]}},"quote\"d":"back\\slash"}`,
		`"\ud83d\ude00 caf\u00e9" 42 [] {}`,
	}
	for _, input := range inputs {
		want, err := tokenize(input, nil)
		if err != nil {
			t.Fatalf("Input %#q: %v", input, err)
		}
		text := reencode(t, jbind.NewTokenizerBytes([]byte(input), nil))
		got, err := tokenize(text, nil)
		if err != nil {
			t.Fatalf("Re-encoded %#q: %v", text, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Input %#q re-encoded as %#q (-want, +got):\n%s", input, text, diff)
		}
	}
}
