// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package jbind implements a streaming JSON tokenizer.
//
// # Tokenizing
//
// The Tokenizer type reads JSON tokens from an io.Reader through a bounded
// window, without requiring the whole input to be resident. Construct a
// tokenizer and call its NextToken method to iterate over the stream:
//
//	t := jbind.NewTokenizer(input, nil)
//	defer t.Close()
//	for {
//	   tok, err := t.NextToken()
//	   if err == io.EOF {
//	      break
//	   } else if err != nil {
//	      log.Fatalf("Tokenizing failed: %v", err)
//	   }
//	   log.Printf("Next token: %v", tok)
//	}
//
// Numbers are reported as Int if they have no fraction or exponent, and as
// Float otherwise, so 10 is an Int while 10.0 and 1e1 are Floats. String
// contents are decoded only when requested by Text; a string that is never
// requested is validated and skipped without copying.
//
// Object field names are canonicalized through a symbol table (see package
// symtab) shared by all tokenizers using the same Options.Symbols, so that
// repeated names resolve to a single string.
//
// By default the tokenizer accepts only standard JSON (RFC 8259). The
// Features field of Options enables extensions, such as comments and trailing
// commas, independently of one another.
//
// Invalid input is reported as a *SyntaxError, whose Kind distinguishes
// lexical from structural errors. A failure of the underlying reader is
// reported as a *ReadError. Errors are sticky: once NextToken has failed, it
// continues to report the same error.
//
// # Parsers
//
// The Parser interface abstracts a stream of tokens. In addition to a
// Tokenizer, a TokenBuffer can record tokens from a parser and replay them
// later, and Sequence concatenates parsers. Package bind uses these to bind
// tokens to Go values.
//
// # Streaming
//
// The Stream type delivers the structure of a token stream as events to a
// Handler:
//
//	JSON type  | Methods                   | Description
//	---------- | ------------------------- | ---------------------------------
//	object     | BeginObject, EndObject    | { ... }
//	array      | BeginArray, EndArray      | [ ... ]
//	member     | BeginMember, EndMember    | "key": value
//	value      | Value                     | true, false, null, number, string
//	--         | EndOfInput                | end of input
//
// The parser ensures that corresponding Begin and End methods are correctly
// paired, or that an error is reported.
package jbind
