// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package bind constructs values from streams of JSON tokens, as directed by
// type descriptors.
//
// A [TypeDescriptor] declares the shape of a type: its properties, the
// creators (constructors or factories) that produce its values, and optional
// features such as builders, subtypes, views, and object identity. The
// binder consumes only the declared shape; descriptors for Go struct types
// can be derived with package introspect, or written by hand:
//
//	point := &bind.TypeDescriptor{
//	   Name: "Point",
//	   Kind: bind.ObjectKind,
//	   Creators: []*bind.Creator{{
//	      Explicit: true,
//	      Params: []*bind.Param{
//	         {Name: "x", Type: bind.Int},
//	         {Name: "y", Type: bind.Int},
//	      },
//	      Invoke: func(args []any) (any, error) {
//	         return Point{X: args[0].(int), Y: args[1].(int)}, nil
//	      },
//	   }},
//	}
//	v, err := bind.As[Point](bind.New().Unmarshal(data, point))
//
// # Creators
//
// The creators of a type are resolved once per descriptor (see [Resolve]).
// An object is bound by assigning properties to an instance made by the
// default creator, by buffering members in a [PropertyValueBuffer] until a
// properties creator has all of its arguments, or by passing the whole value
// to a delegating creator. Scalar input for an object type uses a scalar
// creator of the matching kind.
//
// # Untyped values
//
// Values bound without a descriptor, or with [Any], use a natural generic
// representation: objects are ordered [*Map] values, arrays are []any, and
// numbers are int64 or float64 (or exact values, see [WithExactNumbers]).
// [AppendJSON] re-encodes such values.
package bind
