// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/creachadair/jbind"
	"github.com/creachadair/jbind/internal/lru"
)

// A Binder constructs values from a stream of JSON tokens, as directed by
// type descriptors. A Binder is safe for concurrent use by multiple
// goroutines; each call binds one value.
type Binder struct {
	ignoreUnknown bool
	view          string
	exact         bool
	compact       bool
	single        bool
	lenient       bool
	inject        map[string]any
	topts         *jbind.Options

	resolver *Resolver
	plans    *lru.Cache[*TypeDescriptor, planResult]
}

// New constructs a Binder with the given options.
func New(opts ...Option) *Binder {
	b := &Binder{plans: lru.New[*TypeDescriptor, planResult](0)}
	for _, o := range opts {
		o.apply(b)
	}
	if b.resolver == nil {
		b.resolver = NewResolver(0)
	}
	return b
}

// Bind binds a value described by td from p. If p has not yet delivered a
// token, Bind first advances it; otherwise the current token of p is the
// first token of the value. If the current token is a FieldName, p is taken
// to be inside an object whose opening brace has been consumed, and td must
// be an object type.
//
// When Bind returns successfully, p is positioned at the last token of the
// value.
func (b *Binder) Bind(p jbind.Parser, td *TypeDescriptor) (any, error) {
	return b.BindInto(p, td, nil)
}

// BindInto is as Bind, but if existing != nil and td is an object type bound
// by assigning properties to an instance, the properties are assigned to
// existing instead of a new instance.
func (b *Binder) BindInto(p jbind.Parser, td *TypeDescriptor, existing any) (any, error) {
	if p.Token() == jbind.Invalid {
		if _, err := next(p); err != nil {
			return nil, err
		}
	}
	s := &session{b: b}
	v, err := s.start(p, td, existing)
	if err != nil {
		return nil, err
	}
	if err := s.resolveRefs(); err != nil {
		return nil, err
	}
	return v, nil
}

// start binds the top-level value of a call to BindInto.
func (s *session) start(p jbind.Parser, td *TypeDescriptor, existing any) (any, error) {
	switch {
	case p.Token() == jbind.FieldName:
		if kindOf(td) != ObjectKind {
			return nil, &jbind.TypeMismatchError{Token: jbind.FieldName, Want: td.String()}
		}
		pl, err := s.b.plan(td)
		if err != nil {
			return nil, err
		}
		return s.objectBody(p, pl, existing, true)
	case existing != nil && kindOf(td) == ObjectKind:
		return s.object(p, td, existing)
	}
	return s.value(p, td)
}

// Unmarshal binds a value described by td from data, which must contain
// exactly one JSON value.
func (b *Binder) Unmarshal(data []byte, td *TypeDescriptor) (any, error) {
	tok := jbind.NewTokenizerBytes(data, b.topts)
	defer tok.Close()
	v, err := b.Bind(tok, td)
	if err != nil {
		return nil, err
	}
	if _, err := tok.NextToken(); err != io.EOF {
		if err == nil {
			err = &jbind.SyntaxError{
				Kind:     jbind.Structural,
				Location: tok.Location().First,
				Offset:   tok.Location().Pos,
				Message:  "unexpected data after top-level value",
			}
		}
		return nil, err
	}
	return v, nil
}

// Decode binds a value described by td from the first JSON value read from r.
func (b *Binder) Decode(r io.Reader, td *TypeDescriptor) (any, error) {
	tok := jbind.NewTokenizer(r, b.topts)
	defer tok.Close()
	return b.Bind(tok, td)
}

// As converts the result of a call to Bind, Unmarshal, or Decode to type T.
// A nil value converts to the zero value of T.
func As[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	} else if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("bind: value of type %T is not %T", v, zero)
	}
	return t, nil
}

// A session holds the state of one call to Bind.
type session struct {
	b      *Binder
	ids    map[idKey]any
	fixups []fixup
}

type idKey struct {
	scope *ObjectID
	id    string
}

// A forwardRef is the placeholder value for a reference to an object id not
// yet seen. It is only produced for values assigned to properties.
type forwardRef struct {
	td  *TypeDescriptor
	key idKey
}

type fixup struct {
	obj  any
	prop *Property
	ref  forwardRef
}

// next advances p, reporting io.ErrUnexpectedEOF if the stream ends.
func next(p jbind.Parser) (jbind.Token, error) {
	tok, err := p.NextToken()
	if err == io.EOF {
		return tok, io.ErrUnexpectedEOF
	}
	return tok, err
}

func mismatch(tok jbind.Token, td *TypeDescriptor) error {
	return &jbind.TypeMismatchError{Token: tok, Want: td.String()}
}

// value binds a value described by td, starting at the current token of p.
func (s *session) value(p jbind.Parser, td *TypeDescriptor) (any, error) {
	if td != nil && td.Decode != nil {
		return td.Decode(p)
	}
	tok := p.Token()
	switch tok {
	case jbind.Null:
		return nil, nil
	case jbind.Embedded:
		return p.Embedded()
	}
	switch kindOf(td) {
	case UntypedKind:
		return s.untyped(p)
	case StringKind:
		if tok.IsScalar() {
			return p.Text()
		}
	case IntKind:
		v, err := s.integer(p, td)
		if err != nil || int64(int(v)) == v {
			return int(v), err
		}
		return nil, fmt.Errorf("bind: value %d overflows %s", v, td)
	case Int64Kind:
		return s.integer(p, td)
	case FloatKind:
		if tok.IsNumber() {
			return p.Float64()
		}
	case BoolKind:
		if tok == jbind.True || tok == jbind.False {
			return tok == jbind.True, nil
		}
	case BytesKind:
		if tok == jbind.String {
			return p.Binary(base64.StdEncoding)
		}
	case SliceKind:
		return s.slice(p, td)
	case MapKind:
		return s.mapValue(p, td)
	case ObjectKind:
		return s.object(p, td, nil)
	}
	return nil, mismatch(tok, td)
}

// integer binds an integer, accepting a Float token with an integral value.
func (s *session) integer(p jbind.Parser, td *TypeDescriptor) (int64, error) {
	switch p.Token() {
	case jbind.Int:
		return p.Int64()
	case jbind.Float:
		f, err := p.Float64()
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("bind: value %v is not a valid %s", f, td)
		}
		return int64(f), nil
	}
	return 0, mismatch(p.Token(), td)
}

func (s *session) slice(p jbind.Parser, td *TypeDescriptor) (any, error) {
	var elems []any
	if p.Token() != jbind.StartArray {
		if !s.b.single {
			return nil, mismatch(p.Token(), td)
		}
		v, err := s.value(p, td.Elem)
		if err != nil {
			return nil, err
		}
		elems = []any{v}
	} else {
		elems = []any{}
		for {
			tok, err := next(p)
			if err != nil {
				return nil, err
			} else if tok == jbind.EndArray {
				break
			}
			v, err := s.value(p, td.Elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		if s.b.compact {
			elems = slices.Clip(elems)
		}
	}
	if td.Collect != nil {
		return td.Collect(elems)
	}
	return elems, nil
}

func (s *session) mapValue(p jbind.Parser, td *TypeDescriptor) (any, error) {
	if p.Token() != jbind.StartObject {
		return nil, mismatch(p.Token(), td)
	}
	m := make(map[string]any)
	for {
		tok, err := next(p)
		if err != nil {
			return nil, err
		} else if tok == jbind.EndObject {
			break
		}
		name := p.Name()
		if _, err := next(p); err != nil {
			return nil, err
		}
		v, err := s.value(p, td.Elem)
		if err != nil {
			return nil, err
		}
		m[name] = v
	}
	if td.CollectMap != nil {
		return td.CollectMap(m)
	}
	return m, nil
}

// reference resolves a scalar in object position for a type with object
// identity. If the id has not been seen and forward is true, it returns a
// forwardRef to be resolved when binding ends.
func (s *session) reference(p jbind.Parser, td *TypeDescriptor, forward bool) (any, error) {
	id, err := p.Text()
	if err != nil {
		return nil, err
	}
	key := idKey{scope: td.ObjectID, id: id}
	if v, ok := s.ids[key]; ok {
		return v, nil
	} else if forward {
		return forwardRef{td: td, key: key}, nil
	}
	return nil, &ReferenceError{Type: td.String(), ID: id}
}

// register records obj as the instance with the given id.
func (s *session) register(td *TypeDescriptor, id string, obj any) error {
	key := idKey{scope: td.ObjectID, id: id}
	if _, ok := s.ids[key]; ok {
		return &ReferenceError{Type: td.String(), ID: id, Duplicate: true}
	}
	if s.ids == nil {
		s.ids = make(map[idKey]any)
	}
	s.ids[key] = obj
	return nil
}

// resolveRefs assigns the values of forward references once all ids are
// known.
func (s *session) resolveRefs() error {
	for _, f := range s.fixups {
		v, ok := s.ids[f.ref.key]
		if !ok {
			return &ReferenceError{Type: f.ref.td.String(), ID: f.ref.key.id}
		}
		if err := f.prop.Set(f.obj, v); err != nil {
			return &ConstructionError{Type: f.ref.td.String(), Field: f.prop.Name, Err: err}
		}
	}
	s.fixups = nil
	return nil
}

// textOf returns the text of a scalar token of p for use as an id.
func textOf(p jbind.Parser) (string, error) {
	if tok := p.Token(); !tok.IsScalar() || tok == jbind.Null {
		return "", &jbind.TypeMismatchError{Token: tok, Want: "scalar id"}
	}
	return p.Text()
}
