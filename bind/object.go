// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"fmt"
	"io"

	"github.com/creachadair/jbind"
	"github.com/creachadair/mds/mapset"
)

// A strategy defines how the value of an object type is produced: start
// prepares a target before any members are bound, and finish produces the
// value once the members are exhausted. The strategy for a type is selected
// once, when its plan is built.
type strategy struct {
	name   string
	start  func(s *session, t *target, existing any) error
	finish func(s *session, t *target) (any, error)
	array  bool // accepts positional array input
}

const (
	directStrategy = iota
	builderStrategy
	arrayStrategy
)

var strategies [3]strategy

func init() {
	strategies = [...]strategy{
		directStrategy:  {name: "direct", start: startInstance, finish: finishInstance},
		builderStrategy: {name: "builder", start: startBuilder, finish: finishBuilder},
		arrayStrategy:   {name: "array", start: startInstance, finish: finishInstance, array: true},
	}
}

func selectStrategy(td *TypeDescriptor) *strategy {
	switch {
	case td.Builder != nil:
		return &strategies[builderStrategy]
	case td.Shape == ArrayShape:
		return &strategies[arrayStrategy]
	}
	return &strategies[directStrategy]
}

// A target is the state of one object being bound.
type target struct {
	home *plan // the plan of the declared type
	pl   *plan // the plan of the actual type, once known
	obj  any   // the instance, or the builder
	buf  *PropertyValueBuffer
	sink UnknownFieldSink
	wrap *jbind.TokenBuffer // members claimed by unwrapped properties

	id         string
	hasID      bool
	registered bool
	seen       mapset.Set[string] // required properties present
}

// constructed reports whether the instance (or builder) exists.
func (t *target) constructed() bool { return t.buf == nil }

func startInstance(s *session, t *target, existing any) error {
	if existing != nil {
		t.obj = existing
		return s.afterConstruct(t)
	}
	td := t.pl.td
	switch cr := t.pl.creators; cr.Primary() {
	case PropertiesCreator:
		t.buf = NewPropertyValueBuffer(td, cr.Properties, s.b.inject)
		if t.buf.Ready() {
			return s.construct(t)
		}
		return nil
	case DefaultCreator:
		obj, err := cr.Default()
		if err != nil {
			return &ConstructionError{Type: td.String(), Err: err}
		}
		t.obj = obj
		return s.afterConstruct(t)
	}
	return mismatch(jbind.StartObject, td)
}

func finishInstance(s *session, t *target) (any, error) {
	if err := s.checkRequired(t); err != nil {
		return nil, err
	}
	if !t.constructed() {
		if err := s.construct(t); err != nil {
			return nil, err
		}
	}
	if err := s.bindUnwrapped(t); err != nil {
		return nil, err
	}
	return t.obj, nil
}

func startBuilder(s *session, t *target, existing any) error {
	td := t.pl.td
	if existing != nil {
		return configErrorf(td, nil, -1, "a builder type cannot be updated in place")
	}
	obj, err := td.Builder.New()
	if err != nil {
		return &ConstructionError{Type: td.String(), Err: err}
	}
	t.obj = obj
	return nil
}

func finishBuilder(s *session, t *target) (any, error) {
	td := t.pl.td
	if err := s.checkRequired(t); err != nil {
		return nil, err
	}
	if err := s.bindUnwrapped(t); err != nil {
		return nil, err
	}
	v, err := td.Builder.Build(t.obj)
	if err != nil {
		return nil, &ConstructionError{Type: td.String(), Err: err}
	}
	if t.hasID {
		if err := s.register(t.home.td, t.id, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// object binds a value of object type td from the current token of p.
func (s *session) object(p jbind.Parser, td *TypeDescriptor, existing any) (any, error) {
	pl, err := s.b.plan(td)
	if err != nil {
		return nil, err
	}
	cr := pl.creators
	switch tok := p.Token(); {
	case tok == jbind.Null:
		return nil, nil

	case tok == jbind.StartObject:
		if existing == nil && td.Builder == nil && td.Subtypes == nil && cr.Primary() == DelegatingCreator {
			return s.delegate(p, pl)
		}
		return s.objectBody(p, pl, existing, false)

	case tok == jbind.StartArray:
		if pl.strategy.array {
			return s.positional(p, pl, existing)
		} else if cr.Delegating != nil {
			return s.delegate(p, pl)
		}

	case tok.IsScalar():
		if td.ObjectID != nil {
			return s.reference(p, td, false)
		}
		if c := cr.scalarFor(tok); c != nil {
			v, err := s.value(p, c.Params[0].Type)
			if err != nil {
				return nil, err
			}
			return s.invoke(td, c, v)
		} else if cr.Delegating != nil {
			return s.delegate(p, pl)
		}
	}
	return nil, mismatch(p.Token(), td)
}

// scalarFor returns the scalar creator for a token, if any. An Int token
// may use a Float creator.
func (c *Creators) scalarFor(tok jbind.Token) *Creator {
	switch tok {
	case jbind.String:
		return c.String
	case jbind.Int:
		if c.Int != nil {
			return c.Int
		}
		return c.Float
	case jbind.Float:
		return c.Float
	case jbind.True, jbind.False:
		return c.Bool
	}
	return nil
}

func (s *session) delegate(p jbind.Parser, pl *plan) (any, error) {
	c := pl.creators.Delegating
	v, err := s.value(p, c.Params[0].Type)
	if err != nil {
		return nil, err
	}
	return s.invoke(pl.td, c, v)
}

func (s *session) invoke(td *TypeDescriptor, c *Creator, arg any) (any, error) {
	v, err := c.Invoke([]any{arg})
	if err != nil {
		return nil, &ConstructionError{Type: td.String(), Err: err}
	}
	return v, nil
}

// objectBody binds the members of an object whose opening brace is the
// current token of p. If atField is true, p is instead positioned at the
// first member name.
func (s *session) objectBody(p jbind.Parser, pl *plan, existing any, atField bool) (any, error) {
	if pl.td.Subtypes != nil && existing == nil {
		return s.polymorphic(p, pl, atField)
	}
	t := &target{home: pl, pl: pl}
	if err := pl.strategy.start(s, t, existing); err != nil {
		return nil, err
	}
	if err := s.members(p, t, atField); err != nil {
		return nil, err
	}
	return pl.strategy.finish(s, t)
}

func (s *session) members(p jbind.Parser, t *target, atField bool) error {
	tok := p.Token()
	for {
		if !atField {
			var err error
			if tok, err = next(p); err != nil {
				return err
			}
		}
		atField = false
		if tok == jbind.EndObject {
			return nil
		} else if tok != jbind.FieldName {
			return &jbind.TypeMismatchError{Token: tok, Want: "field name"}
		}
		name := p.Name()
		if _, err := next(p); err != nil {
			return err
		}
		if err := s.member(p, t, name); err != nil {
			return err
		}
	}
}

// positional binds an array whose elements are the members of an object
// type, in plan order.
func (s *session) positional(p jbind.Parser, pl *plan, existing any) (any, error) {
	t := &target{home: pl, pl: pl}
	if err := pl.strategy.start(s, t, existing); err != nil {
		return nil, err
	}
	for i := 0; ; i++ {
		tok, err := next(p)
		if err != nil {
			return nil, err
		} else if tok == jbind.EndArray {
			break
		}
		if i < len(pl.order) {
			err = s.member(p, t, pl.order[i])
		} else if s.ignoring(pl.td) {
			err = p.SkipChildren()
		} else {
			err = &UnknownPropertyError{Type: pl.td.String(), Name: fmt.Sprintf("[%d]", i), Location: p.Location().First}
		}
		if err != nil {
			return nil, err
		}
	}
	return pl.strategy.finish(s, t)
}

func (s *session) ignoring(td *TypeDescriptor) bool {
	return s.b.ignoreUnknown || s.b.lenient || td.IgnoreUnknown
}

// member binds the member called name, whose value is the current token of
// p, to the object in t.
func (s *session) member(p jbind.Parser, t *target, name string) error {
	if id := t.home.idProp; id != "" && name == id {
		v, err := textOf(p)
		if err != nil {
			return err
		}
		t.id, t.hasID = v, true
		if err := s.registerID(t); err != nil {
			return err
		}
		if _, ok := t.pl.props[name]; !ok {
			return nil
		}
	}

	pl := t.pl
	if ref, ok := pl.props[name]; ok {
		if !ref.visible(s.b.view) {
			return p.SkipChildren()
		}
		if ref.prop != nil && ref.prop.Required {
			if t.seen == nil {
				t.seen = mapset.New[string]()
			}
			t.seen.Add(ref.prop.Name)
		}
		if ref.param >= 0 && !t.constructed() {
			v, err := s.value(p, ref.ptype)
			if err != nil {
				return err
			}
			if t.buf.Assign(ref.param, v) {
				return s.construct(t)
			}
			return nil
		}
		if ref.prop == nil {
			return p.SkipChildren() // a creator argument repeated after construction
		}
		v, err := s.propertyValue(p, ref.prop.Type)
		if err != nil {
			return err
		}
		if !t.constructed() {
			t.buf.Defer(ref.prop, v)
			return nil
		}
		return s.assign(t, ref.prop, v)
	}

	if pl.ignored.Has(name) {
		return p.SkipChildren()
	}
	if _, ok := pl.claims[name]; ok {
		if t.wrap == nil {
			t.wrap = new(jbind.TokenBuffer)
		}
		t.wrap.Append(jbind.FieldName, name)
		return t.wrap.CopyStructure(p)
	}
	if set := pl.td.AnySetter; set != nil {
		v, err := s.untyped(p)
		if err != nil {
			return err
		}
		if !t.constructed() {
			t.buf.DeferAny(name, v)
			return nil
		}
		return s.setAny(t, name, v)
	}
	if !t.constructed() && pl.td.Actual != nil {
		return t.sink.Record(name, p)
	}
	if s.ignoring(pl.td) {
		return p.SkipChildren()
	}
	return &UnknownPropertyError{Type: pl.td.String(), Name: name, Location: p.Location().First}
}

// checkRequired reports the first required property of t that is visible in
// the active view and was not present in the input.
func (s *session) checkRequired(t *target) error {
	for _, ref := range t.pl.required {
		if ref.visible(s.b.view) && !t.seen.Has(ref.prop.Name) {
			return &MissingArgumentError{Type: t.pl.td.String(), Param: ref.prop.Name, Index: -1}
		}
	}
	return nil
}

// propertyValue binds the value of a property. A reference to an object id
// not yet seen is returned as a forwardRef.
func (s *session) propertyValue(p jbind.Parser, td *TypeDescriptor) (any, error) {
	if td != nil && td.Kind == ObjectKind && td.ObjectID != nil && td.Decode == nil {
		if tok := p.Token(); tok.IsScalar() && tok != jbind.Null && tok != jbind.Embedded {
			return s.reference(p, td, true)
		}
	}
	return s.value(p, td)
}

// assign sets a property of the object in t.
func (s *session) assign(t *target, prop *Property, v any) error {
	if ref, ok := v.(forwardRef); ok {
		s.fixups = append(s.fixups, fixup{obj: t.obj, prop: prop, ref: ref})
		return nil
	}
	if err := prop.Set(t.obj, v); err != nil {
		if s.b.lenient {
			return nil
		}
		return &ConstructionError{Type: t.pl.td.String(), Field: prop.Name, Err: err}
	}
	return nil
}

func (s *session) setAny(t *target, name string, v any) error {
	if err := t.pl.td.AnySetter(t.obj, name, v); err != nil {
		if s.b.lenient {
			return nil
		}
		return &ConstructionError{Type: t.pl.td.String(), Field: name, Err: err}
	}
	return nil
}

// construct invokes the properties creator of t with the buffered arguments,
// then assigns the buffered properties to the new instance.
func (s *session) construct(t *target) error {
	buf := t.buf
	obj, err := buf.Construct()
	if err != nil {
		return err
	}
	t.obj, t.buf = obj, nil
	for _, d := range buf.props {
		if err := s.assign(t, d.prop, d.value); err != nil {
			return err
		}
	}
	for _, e := range buf.extras {
		if err := s.setAny(t, e.name, e.value); err != nil {
			return err
		}
	}
	return s.afterConstruct(t)
}

// afterConstruct registers the id of a new instance, and binds any members
// held in the sink against the actual type of the instance.
func (s *session) afterConstruct(t *target) error {
	if err := s.registerID(t); err != nil {
		return err
	}
	if actual := t.home.td.Actual; actual != nil {
		if td := actual(t.obj); td != nil && td != t.pl.td {
			pl, err := s.b.plan(td)
			if err != nil {
				return err
			}
			t.pl = pl
		}
	}
	if t.sink.Len() == 0 {
		return nil
	}
	r := t.sink.Parser()
	for {
		if _, err := r.NextToken(); err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		name := r.Name()
		if _, err := next(r); err != nil {
			return err
		}
		if err := s.member(r, t, name); err != nil {
			return err
		}
	}
}

func (s *session) registerID(t *target) error {
	if !t.hasID || t.registered || !t.constructed() || t.pl.strategy == &strategies[builderStrategy] {
		return nil
	}
	t.registered = true
	return s.register(t.home.td, t.id, t.obj)
}

// bindUnwrapped binds each unwrapped property of t from the members it
// claimed, renamed to the names used by the unwrapped type.
func (s *session) bindUnwrapped(t *target) error {
	for i, prop := range t.pl.unwrapped {
		var sub jbind.TokenBuffer
		sub.Append(jbind.StartObject, "")
		if t.wrap != nil {
			if err := extract(t.wrap.Parser(), &sub, t.pl.claims, i); err != nil {
				return err
			}
		}
		sub.Append(jbind.EndObject, "")

		q := sub.Parser()
		if _, err := q.NextToken(); err != nil {
			return err
		}
		v, err := s.value(q, prop.Type)
		if err != nil {
			return err
		}
		if err := s.assign(t, prop, v); err != nil {
			return err
		}
	}
	return nil
}

// extract copies the members of r claimed by unwrapped property i to dst,
// under their inner names.
func extract(r jbind.Parser, dst *jbind.TokenBuffer, claims map[string]claim, i int) error {
	for {
		tok, err := r.NextToken()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		} else if tok != jbind.FieldName {
			return &jbind.TypeMismatchError{Token: tok, Want: "field name"}
		}
		c := claims[r.Name()]
		if _, err := next(r); err != nil {
			return err
		}
		if c.index != i {
			if err := r.SkipChildren(); err != nil {
				return err
			}
			continue
		}
		dst.Append(jbind.FieldName, c.inner)
		if err := dst.CopyStructure(r); err != nil {
			return err
		}
	}
}

// polymorphic binds an object of a type with subtypes. Members preceding the
// type id are held in a sink, then replayed ahead of the remaining members
// against the selected subtype.
func (s *session) polymorphic(p jbind.Parser, pl *plan, atField bool) (any, error) {
	info := pl.td.Subtypes
	var sink UnknownFieldSink
	tok := p.Token()
	for {
		if !atField {
			var err error
			if tok, err = next(p); err != nil {
				return nil, err
			}
		}
		atField = false
		if tok == jbind.EndObject {
			if info.Default == nil {
				return nil, &TypeIDError{Type: pl.td.String(), Property: info.Property}
			}
			sink.buf.Append(jbind.EndObject, "")
			return s.subtype(sink.Parser(), info.Default)
		} else if tok != jbind.FieldName {
			return nil, &jbind.TypeMismatchError{Token: tok, Want: "field name"}
		}

		name := p.Name()
		if _, err := next(p); err != nil {
			return nil, err
		}
		if name != info.Property {
			if err := sink.Record(name, p); err != nil {
				return nil, err
			}
			continue
		}

		id, err := textOf(p)
		if err != nil {
			return nil, err
		}
		sub := info.Subtypes[id]
		if sub == nil {
			sub = info.Default
		}
		if sub == nil {
			return nil, &TypeIDError{Type: pl.td.String(), Property: info.Property, ID: id}
		}
		if info.Visible {
			if err := sink.Record(name, p); err != nil {
				return nil, err
			}
		}
		return s.subtype(jbind.Sequence(sink.Parser(), p), sub)
	}
}

// subtype binds the members delivered by p to the subtype td. The next
// token of p is the first member name or the closing brace.
func (s *session) subtype(p jbind.Parser, td *TypeDescriptor) (any, error) {
	if td.Kind != ObjectKind {
		return nil, configErrorf(td, nil, -1, "subtype is not an object type")
	}
	pl, err := s.b.plan(td)
	if err != nil {
		return nil, err
	}
	if _, err := next(p); err != nil {
		return nil, err
	}
	return s.objectBody(p, pl, nil, true)
}
