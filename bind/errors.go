// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"fmt"
	"strings"

	"github.com/creachadair/jbind"
)

// ConfigError reports a type descriptor that cannot be used for binding,
// typically because its creators are ambiguous or under-specified. It is
// reported when the type is resolved, independent of any input.
type ConfigError struct {
	Type    string
	Creator string // the offending creator, if any
	Index   int    // the offending parameter index, or -1
	Message string
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "bind: type %s", e.Type)
	if e.Creator != "" {
		fmt.Fprintf(&sb, ": %s", e.Creator)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&sb, ": parameter %d", e.Index)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

func configErrorf(td *TypeDescriptor, c *Creator, index int, msg string, args ...any) error {
	e := &ConfigError{Type: td.String(), Index: index, Message: fmt.Sprintf(msg, args...)}
	if c != nil {
		e.Creator = c.String()
	}
	return e
}

// UnknownPropertyError reports an input member that has no home in the type
// being bound.
type UnknownPropertyError struct {
	Type     string
	Name     string
	Location jbind.LineCol
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("bind: at %s: unknown property %q for type %s", e.Location, e.Name, e.Type)
}

// ConstructionError reports a failure by a creator, builder, or setter.
type ConstructionError struct {
	Type  string
	Field string // the member being bound, if known
	Err   error
}

func (e *ConstructionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("bind: constructing %s: field %q: %v", e.Type, e.Field, e.Err)
	}
	return fmt.Sprintf("bind: constructing %s: %v", e.Type, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// MissingArgumentError reports a required creator argument or property that
// was absent from the input and has no default.
type MissingArgumentError struct {
	Type   string
	Param  string // the member name, or the injectable id
	Index  int    // the creator parameter index, or -1 for a property
	Inject bool   // the parameter is injected
}

func (e *MissingArgumentError) Error() string {
	if e.Inject {
		return fmt.Sprintf("bind: type %s: no injectable value %q for parameter %d", e.Type, e.Param, e.Index)
	}
	return fmt.Sprintf("bind: type %s: missing required property %q", e.Type, e.Param)
}

// TypeIDError reports a polymorphic object whose type id is absent or does
// not name a known subtype.
type TypeIDError struct {
	Type     string
	Property string
	ID       string // "" if the id was absent
}

func (e *TypeIDError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("bind: type %s: missing type id property %q", e.Type, e.Property)
	}
	return fmt.Sprintf("bind: type %s: unknown type id %q", e.Type, e.ID)
}

// ReferenceError reports an object reference that could not be resolved, or
// an object id that was assigned more than once.
type ReferenceError struct {
	Type      string
	ID        string
	Duplicate bool
}

func (e *ReferenceError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("bind: type %s: duplicate object id %q", e.Type, e.ID)
	}
	return fmt.Sprintf("bind: type %s: unresolved object reference %q", e.Type, e.ID)
}
