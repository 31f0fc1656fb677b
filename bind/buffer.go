// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import "github.com/creachadair/jbind"

// A PropertyValueBuffer collects the arguments of a properties creator as
// their members arrive, in any order, along with the values of other
// properties that cannot be assigned until the instance exists.
type PropertyValueBuffer struct {
	td      *TypeDescriptor
	creator *Creator
	args    []any
	filled  []bool
	missing int // unfilled parameters that are not injected

	props  []deferredProp
	extras []deferredAny
}

type deferredProp struct {
	prop  *Property
	value any
}

type deferredAny struct {
	name  string
	value any
}

// NewPropertyValueBuffer constructs an empty buffer for the arguments of c,
// a creator for td. Injected parameters are filled from inject.
func NewPropertyValueBuffer(td *TypeDescriptor, c *Creator, inject map[string]any) *PropertyValueBuffer {
	b := &PropertyValueBuffer{
		td:      td,
		creator: c,
		args:    make([]any, len(c.Params)),
		filled:  make([]bool, len(c.Params)),
	}
	for i, p := range c.Params {
		if p.Inject == "" {
			b.missing++
		} else if v, ok := inject[p.Inject]; ok {
			b.args[i] = v
			b.filled[i] = true
		}
	}
	return b
}

// Assign sets the argument at index i to v, and reports whether every
// member-bound argument has now been supplied. Assigning the same argument
// again replaces its value.
func (b *PropertyValueBuffer) Assign(i int, v any) bool {
	if !b.filled[i] {
		b.filled[i] = true
		b.missing--
	}
	b.args[i] = v
	return b.Ready()
}

// Ready reports whether every member-bound argument has been supplied.
func (b *PropertyValueBuffer) Ready() bool { return b.missing == 0 }

// Defer records a value for a property to be assigned after construction.
func (b *PropertyValueBuffer) Defer(prop *Property, v any) {
	b.props = append(b.props, deferredProp{prop: prop, value: v})
}

// DeferAny records a value for the any-setter to be delivered after
// construction.
func (b *PropertyValueBuffer) DeferAny(name string, v any) {
	b.extras = append(b.extras, deferredAny{name: name, value: v})
}

// Args returns the creator arguments, filling any that were not supplied
// from their defaults. It reports a *MissingArgumentError for a required
// parameter with no value, or an injected parameter with no injectable.
func (b *PropertyValueBuffer) Args() ([]any, error) {
	for i, p := range b.creator.Params {
		if b.filled[i] {
			continue
		}
		switch {
		case p.Inject != "":
			return nil, &MissingArgumentError{Type: b.td.String(), Param: p.Inject, Index: i, Inject: true}
		case p.HasDefault:
			b.args[i] = p.Default
		case p.Required:
			return nil, &MissingArgumentError{Type: b.td.String(), Param: p.name(), Index: i}
		}
	}
	return b.args, nil
}

// Construct invokes the creator with the buffered arguments.
func (b *PropertyValueBuffer) Construct() (any, error) {
	args, err := b.Args()
	if err != nil {
		return nil, err
	}
	v, err := b.creator.Invoke(args)
	if err != nil {
		return nil, &ConstructionError{Type: b.td.String(), Err: err}
	}
	return v, nil
}

// An UnknownFieldSink records object members that cannot yet be bound,
// because the type that will receive them is not known until later in the
// input. The recorded members can be replayed as a Parser.
type UnknownFieldSink struct {
	buf jbind.TokenBuffer
	n   int
}

// Record records a member called name whose value begins at the current
// token of p. It leaves p at the last token of the value.
func (u *UnknownFieldSink) Record(name string, p jbind.Parser) error {
	u.buf.Append(jbind.FieldName, name)
	u.n++
	return u.buf.CopyStructure(p)
}

// Len reports the number of members recorded.
func (u *UnknownFieldSink) Len() int { return u.n }

// Parser returns a Parser that replays the recorded members. The tokens
// delivered are those of the members alone, without enclosing braces.
func (u *UnknownFieldSink) Parser() jbind.Parser { return u.buf.Parser() }

// Reset discards the recorded members.
func (u *UnknownFieldSink) Reset() { u.buf.Reset(); u.n = 0 }
