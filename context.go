// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

import (
	"strconv"
	"strings"
)

// ContextKind identifies the kind of a NestingContext.
type ContextKind byte

// Constants defining the valid ContextKind values.
const (
	RootContext ContextKind = iota
	ArrayContext
	ObjectContext
)

func (k ContextKind) String() string {
	switch k {
	case RootContext:
		return "root"
	case ArrayContext:
		return "array"
	case ObjectContext:
		return "object"
	}
	return "invalid"
}

// A NestingContext describes the position of the tokenizer within the
// structure of the input. Contexts are reused: a context returned by
// [Tokenizer.Context] is only valid until the next call to NextToken.
type NestingContext struct {
	kind   ContextKind
	parent *NestingContext
	child  *NestingContext // cached for reuse
	index  int             // index of the current entry, -1 before the first
	name   string          // current field name, if kind == ObjectContext
	start  LineCol         // location of the opening bracket
	depth  int
}

func newRootContext() *NestingContext {
	return &NestingContext{kind: RootContext, index: -1}
}

// push returns a child context of the given kind, reusing a cached context if
// one is available.
func (c *NestingContext) push(kind ContextKind, start LineCol) *NestingContext {
	child := c.child
	if child == nil {
		child = &NestingContext{parent: c}
		c.child = child
	}
	child.kind = kind
	child.index = -1
	child.name = ""
	child.start = start
	child.depth = c.depth + 1
	return child
}

// Kind reports the kind of c.
func (c *NestingContext) Kind() ContextKind { return c.kind }

// Parent returns the enclosing context of c, or nil if c is the root.
func (c *NestingContext) Parent() *NestingContext { return c.parent }

// Index reports the 0-based index of the current entry of c: the array
// element, object member, or root-level value. It is -1 before the first.
func (c *NestingContext) Index() int { return c.index }

// Name reports the name of the current member of an object context.
func (c *NestingContext) Name() string { return c.name }

// Depth reports the nesting depth of c; the root has depth 0.
func (c *NestingContext) Depth() int { return c.depth }

// Start reports the location of the bracket that opened c.
func (c *NestingContext) Start() LineCol { return c.start }

// Path renders the location of the current entry as a path expression, for
// example $.a[2].b.
func (c *NestingContext) Path() string {
	var chain []*NestingContext
	for p := c; p != nil && p.kind != RootContext; p = p.parent {
		chain = append(chain, p)
	}
	var sb strings.Builder
	sb.WriteByte('$')
	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]
		switch {
		case p.index < 0:
			// no entry yet
		case p.kind == ArrayContext:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(p.index))
			sb.WriteByte(']')
		case isPlainName(p.name):
			sb.WriteByte('.')
			sb.WriteString(p.name)
		default:
			sb.WriteByte('[')
			sb.WriteString(strconv.Quote(p.name))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

func isPlainName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) || (i == 0 && isDigit(s[i])) {
			return false
		}
	}
	return true
}
