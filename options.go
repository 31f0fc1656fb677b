// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"strings"

	"github.com/creachadair/jbind/symtab"
)

// A Feature is a set of flags that enable non-standard tokenizer behavior.
// The zero value is strict RFC 8259 parsing with canonicalized field names.
type Feature uint32

const (
	// AllowComments accepts C++ style block (/* ... */) and line (// ...)
	// comments wherever whitespace is allowed.
	AllowComments Feature = 1 << iota

	// AllowYAMLComments accepts line comments beginning with "#".
	AllowYAMLComments

	// AllowSingleQuotes accepts strings and field names enclosed in
	// apostrophes as well as double quotation marks.
	AllowSingleQuotes

	// AllowUnquotedFieldNames accepts field names made of identifier
	// characters without quotation marks.
	AllowUnquotedFieldNames

	// AllowLeadingZeros accepts integers with redundant leading zeros, such
	// as 007. The extra zeros are removed from the number text.
	AllowLeadingZeros

	// AllowNonNumericNumbers accepts NaN, Infinity, +Infinity and -Infinity
	// as Float tokens.
	AllowNonNumericNumbers

	// AllowTrailingCommas accepts a comma after the last element of an
	// array or the last member of an object.
	AllowTrailingCommas

	// AllowUnescapedControlChars accepts raw control characters (U+0000 to
	// U+001F) inside strings.
	AllowUnescapedControlChars

	// AllowBackslashEscapingAny accepts a backslash before any character,
	// which then stands for itself.
	AllowBackslashEscapingAny

	// DisableCanonicalNames turns off interning of field names in the
	// symbol table; each name is a separately allocated string.
	DisableCanonicalNames

	// TolerateSymbolOverflow causes field names that cannot be placed in a
	// full symbol table to be returned uninterned, rather than failing with
	// a *symtab.CollisionOverflowError.
	TolerateSymbolOverflow
)

// Permissive enables all the syntax extensions.
const Permissive = AllowComments | AllowYAMLComments | AllowSingleQuotes |
	AllowUnquotedFieldNames | AllowLeadingZeros | AllowNonNumericNumbers |
	AllowTrailingCommas | AllowUnescapedControlChars | AllowBackslashEscapingAny

var featureNames = [...]string{
	"AllowComments", "AllowYAMLComments", "AllowSingleQuotes",
	"AllowUnquotedFieldNames", "AllowLeadingZeros", "AllowNonNumericNumbers",
	"AllowTrailingCommas", "AllowUnescapedControlChars", "AllowBackslashEscapingAny",
	"DisableCanonicalNames", "TolerateSymbolOverflow",
}

// Has reports whether all the flags in g are set in f.
func (f Feature) Has(g Feature) bool { return f&g == g }

func (f Feature) String() string {
	if f == 0 {
		return "Strict"
	}
	var ss []string
	for i, name := range featureNames {
		if f&(1<<i) != 0 {
			ss = append(ss, name)
		}
	}
	return strings.Join(ss, "|")
}

// ParseFeature returns the feature with the given name, as reported by its
// String method. Names are matched without regard to case.
func ParseFeature(name string) (Feature, bool) {
	for i, fn := range featureNames {
		if strings.EqualFold(fn, name) {
			return 1 << i, true
		}
	}
	if strings.EqualFold(name, "Permissive") {
		return Permissive, true
	}
	return 0, false
}

// Default settings for a tokenizer.
const (
	DefaultBufferSize = 8 << 10
	DefaultMaxDepth   = 1000

	minBufferSize = 16
)

// defaultSymbols is the symbol root shared by tokenizers that do not specify
// their own.
var defaultSymbols = symtab.NewRoot(nil)

// Options are settings for a Tokenizer. A nil *Options is ready for use and
// provides strict default settings.
type Options struct {
	// Features enables optional syntax extensions.
	Features Feature

	// Symbols, if non-nil, is the root symbol table used to canonicalize
	// field names. If nil, a process-wide default table is used.
	Symbols *symtab.Root

	// BufferSize is the size in bytes of the input window.
	// If zero, DefaultBufferSize is used.
	BufferSize int

	// MaxDepth is the maximum nesting depth of objects and arrays.
	// If zero, DefaultMaxDepth is used; if negative, depth is unlimited.
	MaxDepth int
}

func (o *Options) features() Feature {
	if o == nil {
		return 0
	}
	return o.Features
}

func (o *Options) symbols() *symtab.Root {
	if o == nil || o.Symbols == nil {
		return defaultSymbols
	}
	return o.Symbols
}

func (o *Options) bufferSize() int {
	if o == nil || o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return max(o.BufferSize, minBufferSize)
}

func (o *Options) maxDepth() int {
	if o == nil || o.MaxDepth == 0 {
		return DefaultMaxDepth
	} else if o.MaxDepth < 0 {
		return -1
	}
	return o.MaxDepth
}
