// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"github.com/creachadair/jbind"
	"github.com/viant/tagly/format/text"
)

// A Kind identifies the shape of the values described by a TypeDescriptor.
type Kind byte

// Constants defining the valid Kind values.
const (
	UntypedKind Kind = iota // natural representation; see Map
	StringKind              // string
	IntKind                 // int
	Int64Kind               // int64
	FloatKind               // float64
	BoolKind                // bool
	BytesKind               // []byte, base64 in JSON text
	SliceKind               // sequence of Elem
	MapKind                 // string-keyed map of Elem
	ObjectKind              // constructed from properties and creators
)

var kindStr = [...]string{
	UntypedKind: "any",
	StringKind:  "string",
	IntKind:     "int",
	Int64Kind:   "int64",
	FloatKind:   "float64",
	BoolKind:    "bool",
	BytesKind:   "bytes",
	SliceKind:   "slice",
	MapKind:     "map",
	ObjectKind:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindStr) {
		return kindStr[k]
	}
	return "invalid"
}

// IsScalar reports whether k is a string, number, Boolean, or bytes kind.
func (k Kind) IsScalar() bool { return k >= StringKind && k <= BytesKind }

// A Shape selects the JSON representation accepted for an object type.
type Shape byte

const (
	ObjectShape Shape = iota // {"name": value, ...}
	ArrayShape               // [value, ...] in property order; objects are also accepted
)

// A TypeDescriptor describes how to construct values of one type from JSON.
// Descriptors are supplied by an introspection layer (see package introspect)
// or written by hand; the binder never inspects Go types itself.
//
// A descriptor must not be modified once it has been used for binding, since
// binders cache plans derived from it.
type TypeDescriptor struct {
	Name string // for diagnostics
	Kind Kind

	// Elem describes the elements of a SliceKind or MapKind type.
	// If nil, elements are untyped.
	Elem *TypeDescriptor

	// Collect, if set, converts the decoded elements of a SliceKind value.
	// Otherwise the value is a []any.
	Collect func(elems []any) (any, error)

	// CollectMap, if set, converts the decoded members of a MapKind value.
	// Otherwise the value is a map[string]any.
	CollectMap func(m map[string]any) (any, error)

	// Decode, if set, decodes a complete value from p, which is positioned at
	// the first token of the value. Decode must leave p at the last token of
	// the value. No other fields of the descriptor are consulted.
	Decode func(p jbind.Parser) (any, error)

	// The remaining fields apply only to ObjectKind.

	// New is the default creator, constructing an empty instance.
	New func() (any, error)

	// Creators are constructors or factories taking arguments.
	Creators []*Creator

	// Builder, if set, binds properties to a separate builder value which is
	// converted to the final value once the object ends.
	Builder *Builder

	// Properties are the named members accepted by the type.
	Properties []*Property

	// AnySetter, if set, receives members with no matching property as
	// untyped values.
	AnySetter func(obj any, name string, value any) error

	// Ignored lists member names that are discarded without binding.
	Ignored []string

	// IgnoreUnknown causes members with no home to be discarded rather than
	// reported as an *UnknownPropertyError.
	IgnoreUnknown bool

	// Shape selects whether the type also accepts positional array input.
	Shape Shape

	// Subtypes, if set, makes the type polymorphic: the concrete type of each
	// object is selected by a type id member.
	Subtypes *TypeInfo

	// ObjectID, if set, enables object identity for the type.
	ObjectID *ObjectID

	// Actual, if set, reports the descriptor of the concrete type of a value
	// constructed for this type, if that differs from this descriptor.
	// Members not known to this type are buffered until the value exists and
	// then bound against the actual descriptor.
	Actual func(v any) *TypeDescriptor
}

func (td *TypeDescriptor) String() string {
	if td == nil {
		return "any"
	} else if td.Name != "" {
		return td.Name
	}
	return td.Kind.String()
}

// A Property is a named member of an object type.
type Property struct {
	Name    string
	Aliases []string        // alternative names accepted on input
	Type    *TypeDescriptor // nil means untyped

	// Set assigns value to the property of obj. A null input value is
	// reported as nil.
	Set func(obj, value any) error

	// Views lists the views in which the property is visible. An empty list
	// means the property is visible in every view.
	Views []string

	// Required reports a *MissingArgumentError if the member is absent from
	// an object. A property not visible in the active view is not required.
	Required bool

	// Unwrapped, if set, indicates that the members of Type appear directly
	// in the enclosing object rather than nested under Name.
	Unwrapped *Unwrapped
}

// Unwrapped describes how the member names of an unwrapped property are
// spelled in the enclosing object: each name is converted to Case (if
// defined) and then given Prefix and Suffix.
type Unwrapped struct {
	Prefix string
	Suffix string
	Case   text.CaseFormat
}

// External returns the name under which the member called name of an
// unwrapped value appears in the enclosing object.
func (u *Unwrapped) External(name string) string {
	if u.Case.IsDefined() {
		src := text.DetectCaseFormat(name)
		if !src.IsDefined() {
			src = text.CaseFormatLowerCamel
		}
		name = src.Format(name, u.Case)
	}
	return u.Prefix + name + u.Suffix
}

// A CreatorMode is the binding mode requested for an explicit creator.
type CreatorMode byte

const (
	AutoMode       CreatorMode = iota // inferred from the parameters
	PropertiesMode                    // each parameter binds a named member
	DelegatingMode                    // the single parameter binds the whole value
)

// A Creator is a constructor or factory that produces a value from arguments.
type Creator struct {
	Name     string // for diagnostics
	Explicit bool   // designated as a creator rather than discovered
	Mode     CreatorMode
	Params   []*Param

	// Invoke calls the creator with one argument per parameter.
	Invoke func(args []any) (any, error)
}

func (c *Creator) String() string {
	if c.Name != "" {
		return c.Name
	}
	return "creator"
}

// A Param is a parameter of a Creator.
type Param struct {
	Name         string          // explicit member name
	ImplicitName string          // name discovered from metadata, if any
	Inject       string          // injectable id; see WithInjectable
	Type         *TypeDescriptor // nil means untyped
	Required     bool            // a missing member is an error
	Default      any             // used for a missing member if HasDefault
	HasDefault   bool
}

// name returns the member name bound by p, explicit or implicit.
func (p *Param) name() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ImplicitName
}

func (p *Param) explicit() bool { return p.Name != "" || p.Inject != "" }
func (p *Param) named() bool    { return p.name() != "" || p.Inject != "" }

// A Builder separates the mutable state of construction from the value it
// produces.
type Builder struct {
	New   func() (any, error)
	Build func(b any) (any, error)
}

// TypeInfo describes the subtypes of a polymorphic type.
type TypeInfo struct {
	Property string                     // member carrying the type id
	Subtypes map[string]*TypeDescriptor // by type id
	Default  *TypeDescriptor            // used when the id is absent or unknown
	Visible  bool                       // the id member is also bound by the subtype
}

// ObjectID enables object identity: the member named Property gives each
// instance an id, and a scalar where an object of the type is expected
// refers to the instance with that id. Types sharing an *ObjectID share ids.
type ObjectID struct {
	Property string
}

// Descriptors for scalar and untyped values.
var (
	Any    = &TypeDescriptor{Name: "any", Kind: UntypedKind}
	String = &TypeDescriptor{Name: "string", Kind: StringKind}
	Int    = &TypeDescriptor{Name: "int", Kind: IntKind}
	Int64  = &TypeDescriptor{Name: "int64", Kind: Int64Kind}
	Float  = &TypeDescriptor{Name: "float64", Kind: FloatKind}
	Bool   = &TypeDescriptor{Name: "bool", Kind: BoolKind}
	Bytes  = &TypeDescriptor{Name: "bytes", Kind: BytesKind}
)

// SliceOf returns a descriptor for a sequence of elem values, represented as
// a []any.
func SliceOf(elem *TypeDescriptor) *TypeDescriptor {
	return &TypeDescriptor{Name: "[]" + elem.String(), Kind: SliceKind, Elem: elem}
}

// MapOf returns a descriptor for an object of elem values, represented as a
// map[string]any.
func MapOf(elem *TypeDescriptor) *TypeDescriptor {
	return &TypeDescriptor{Name: "map[string]" + elem.String(), Kind: MapKind, Elem: elem}
}

func kindOf(td *TypeDescriptor) Kind {
	if td == nil {
		return UntypedKind
	}
	return td.Kind
}
