// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package introspect derives bind type descriptors from Go types.
//
// Struct fields become properties named as encoding/json would name them,
// using the json tag, or the name and case of a format tag. Further options
// are given by a jbind tag:
//
//	alias=a|b        additional accepted member names
//	views=a|b        the property is bound only in the named views
//	unwrap           the members of a struct field appear in the parent
//	prefix=p         unwrap, adding p to each member name
//	suffix=s         unwrap, adding s to each member name
//	case=c           unwrap, rendering member names in case format c
//	id               the field holds the object id of the struct
//	rest             a map[string]any field receiving unknown members
//	required         the member must be present in the input
//
// Anonymous struct fields are unwrapped unless they have an explicit name.
// Options for the struct type itself are set on a blank field:
//
//	_ struct{} `jbind:"ignoreUnknown,array"`
//
// Go has no named constructors, so creators and subtypes are registered with
// a [Describer] by options.
package introspect

import (
	"encoding"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/creachadair/jbind"
	"github.com/creachadair/jbind/bind"
	"github.com/creachadair/jbind/internal/lru"
	"github.com/golang/glog"
	"github.com/viant/xunsafe"
)

// A Describer derives and caches type descriptors. A Describer is safe for
// concurrent use by multiple goroutines.
type Describer struct {
	mu       sync.Mutex
	cache    *lru.Cache[reflect.Type, described]
	creators map[reflect.Type][]creatorSpec
	subtypes map[reflect.Type]subtypeSpec
	err      error // from options
}

// described is the cached result of describing a type.
type described struct {
	td  *bind.TypeDescriptor
	err error
}

type creatorSpec struct {
	fn    reflect.Value
	names []string
}

type subtypeSpec struct {
	property string
	cases    map[string]reflect.Type
}

// An Option configures a Describer.
type Option func(*Describer)

// WithCacheSize sets the number of descriptors retained by the Describer.
func WithCacheSize(n int) Option {
	return func(d *Describer) { d.cache = lru.New[reflect.Type, described](n) }
}

// WithCreator registers fn as a creator for the struct type it returns. The
// function must return T or *T, optionally followed by an error.
//
// If names are given, the creator is explicit and names[i] is the member
// name of parameter i. A name ending in "!" marks a required parameter, and a
// name of the form "$id" marks a parameter injected from the binder. Without
// names the creator is implicit, and its parameters are unnamed.
func WithCreator(fn any, names ...string) Option {
	return func(d *Describer) {
		fv := reflect.ValueOf(fn)
		if fv.Kind() != reflect.Func {
			d.setErr(fmt.Errorf("introspect: creator is %T, not a function", fn))
			return
		}
		ft := fv.Type()
		if n := ft.NumOut(); n == 0 || n > 2 || (n == 2 && ft.Out(1) != errorType) {
			d.setErr(fmt.Errorf("introspect: creator %s has invalid results", ft))
			return
		} else if len(names) > ft.NumIn() {
			d.setErr(fmt.Errorf("introspect: creator %s has %d names for %d parameters", ft, len(names), ft.NumIn()))
			return
		}
		t := structType(ft.Out(0))
		if t == nil {
			d.setErr(fmt.Errorf("introspect: creator %s does not return a struct", ft))
			return
		}
		d.creators[t] = append(d.creators[t], creatorSpec{fn: fv, names: names})
	}
}

// WithSubtypes registers the concrete types of an interface. The base is a
// nil pointer to the interface type, and cases maps each type id to a value
// of the concrete type. A case with the id "" is the default subtype.
//
// For example:
//
//	introspect.WithSubtypes((*Shape)(nil), "type", map[string]any{
//	   "circle": Circle{},
//	   "square": Square{},
//	})
func WithSubtypes(base any, property string, cases map[string]any) Option {
	return func(d *Describer) {
		bt := reflect.TypeOf(base)
		if bt == nil || bt.Kind() != reflect.Pointer || bt.Elem().Kind() != reflect.Interface {
			d.setErr(fmt.Errorf("introspect: subtype base %T is not a pointer to an interface", base))
			return
		}
		it := bt.Elem()
		spec := subtypeSpec{property: property, cases: make(map[string]reflect.Type)}
		for id, c := range cases {
			ct := reflect.TypeOf(c)
			st := structType(ct)
			if st == nil || !(ct.Implements(it) || reflect.PointerTo(st).Implements(it)) {
				d.setErr(fmt.Errorf("introspect: subtype %q (%T) does not implement %s", id, c, it))
				return
			}
			spec.cases[id] = st
		}
		d.subtypes[it] = spec
	}
}

// New constructs a Describer with the given options.
func New(opts ...Option) *Describer {
	d := &Describer{
		creators: make(map[reflect.Type][]creatorSpec),
		subtypes: make(map[reflect.Type]subtypeSpec),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = lru.New[reflect.Type, described](0)
	}
	return d
}

func (d *Describer) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Describe returns a descriptor for values of type t. Results, including
// failures, are cached by type.
func (d *Describer) Describe(t reflect.Type) (*bind.TypeDescriptor, error) {
	if d.err != nil {
		return nil, d.err
	}
	if r, ok := d.cache.Get(t); ok {
		return r.td, r.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	st := &state{d: d, pending: make(map[reflect.Type]*bind.TypeDescriptor), active: make(map[reflect.Type]bool)}
	td, err := st.describe(t)
	if err != nil {
		// Descriptors still pending may refer to the failed type, so only
		// the failure is kept.
		d.cache.Set(t, described{err: err})
		return nil, err
	}
	for pt, ptd := range st.pending {
		d.cache.Set(pt, described{td: ptd})
	}
	d.cache.Set(t, described{td: td})
	return td, nil
}

// MustDescribe is as Describe, but panics if t cannot be described.
func (d *Describer) MustDescribe(t reflect.Type) *bind.TypeDescriptor {
	td, err := d.Describe(t)
	if err != nil {
		panic(err)
	}
	return td
}

var std = New()

// Describe returns a descriptor for t using a Describer with no options.
func Describe(t reflect.Type) (*bind.TypeDescriptor, error) { return std.Describe(t) }

// MustDescribe is as Describe, but panics if t cannot be described.
func MustDescribe(t reflect.Type) *bind.TypeDescriptor { return std.MustDescribe(t) }

// For returns a descriptor for type T using a Describer with no options.
func For[T any]() (*bind.TypeDescriptor, error) { return Describe(reflect.TypeFor[T]()) }

var (
	errorType         = reflect.TypeFor[error]()
	textUnmarshalType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// structType returns the struct type of t or *t, or nil.
func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t
	}
	return nil
}

// state is the state of one call to Describe. Descriptors for struct types
// are entered in pending before their properties are filled, so recursive
// types refer to themselves.
type state struct {
	d       *Describer
	pending map[reflect.Type]*bind.TypeDescriptor
	active  map[reflect.Type]bool // structs whose fields are being described
}

func (s *state) describe(t reflect.Type) (*bind.TypeDescriptor, error) {
	if r, ok := s.d.cache.Get(t); ok {
		return r.td, r.err
	} else if td, ok := s.pending[t]; ok {
		return td, nil
	}
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(textUnmarshalType) {
		return s.textType(t), nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		return s.describe(t.Elem())
	case reflect.String:
		return bind.String, nil
	case reflect.Int:
		return bind.Int, nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return bind.Int64, nil
	case reflect.Float32, reflect.Float64:
		return bind.Float, nil
	case reflect.Bool:
		return bind.Bool, nil
	case reflect.Interface:
		return s.interfaceType(t)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return bind.Bytes, nil
		}
		fallthrough
	case reflect.Array:
		elem, err := s.describe(t.Elem())
		if err != nil {
			return nil, err
		}
		td := bind.SliceOf(elem)
		td.Name = t.String()
		td.Collect = func(vs []any) (any, error) {
			rv, err := convert(vs, t)
			if err != nil {
				return nil, err
			}
			return rv.Interface(), nil
		}
		return td, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("introspect: map key type %s is not a string", t.Key())
		}
		elem, err := s.describe(t.Elem())
		if err != nil {
			return nil, err
		}
		td := bind.MapOf(elem)
		td.Name = t.String()
		td.CollectMap = func(m map[string]any) (any, error) {
			rv, err := convert(m, t)
			if err != nil {
				return nil, err
			}
			return rv.Interface(), nil
		}
		return td, nil
	case reflect.Struct:
		return s.structType(t)
	}
	return nil, fmt.Errorf("introspect: unsupported type %s", t)
}

// textType describes a type whose pointer implements TextUnmarshaler. Its
// values are bound from strings, and delivered as pointers.
func (s *state) textType(t reflect.Type) *bind.TypeDescriptor {
	td := &bind.TypeDescriptor{
		Name: t.String(),
		Kind: bind.StringKind,
		Decode: func(p jbind.Parser) (any, error) {
			if p.Token() == jbind.Null {
				return nil, nil
			}
			text, err := p.Text()
			if err != nil {
				return nil, err
			}
			v := reflect.New(t)
			if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
				return nil, err
			}
			return v.Interface(), nil
		},
	}
	s.pending[t] = td
	return td
}

func (s *state) interfaceType(t reflect.Type) (*bind.TypeDescriptor, error) {
	spec, ok := s.d.subtypes[t]
	if !ok {
		if t.NumMethod() == 0 {
			return bind.Any, nil
		}
		return nil, fmt.Errorf("introspect: interface %s has no registered subtypes", t)
	}
	info := &bind.TypeInfo{Property: spec.property, Subtypes: make(map[string]*bind.TypeDescriptor)}
	td := &bind.TypeDescriptor{Name: t.String(), Kind: bind.ObjectKind, Subtypes: info}
	s.pending[t] = td
	for id, ct := range spec.cases {
		sub, err := s.describe(ct)
		if err != nil {
			return nil, err
		}
		if id == "" {
			info.Default = sub
		} else {
			info.Subtypes[id] = sub
		}
	}
	return td, nil
}

func (s *state) structType(t reflect.Type) (*bind.TypeDescriptor, error) {
	td := &bind.TypeDescriptor{
		Name: t.String(),
		Kind: bind.ObjectKind,
		New:  func() (any, error) { return reflect.New(t).Interface(), nil },
	}
	s.pending[t] = td
	s.active[t] = true
	defer delete(s.active, t)

	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Name == "_" {
			to, err := parseTypeOptions(sf.Tag.Get(TagName))
			if err != nil {
				return nil, fmt.Errorf("introspect: type %s: %w", t, err)
			}
			td.IgnoreUnknown = td.IgnoreUnknown || to.ignoreUnknown
			if to.array {
				td.Shape = bind.ArrayShape
			}
			continue
		} else if !sf.IsExported() && !sf.Anonymous {
			continue
		}
		if err := s.field(td, t, sf); err != nil {
			return nil, fmt.Errorf("introspect: type %s: %w", t, err)
		}
	}

	for _, spec := range s.d.creators[t] {
		c, err := s.creator(t, spec)
		if err != nil {
			return nil, err
		}
		td.Creators = append(td.Creators, c)
	}
	if glog.V(2) {
		glog.Infof("introspect: %s: %d properties, %d creators", t, len(td.Properties), len(td.Creators))
	}
	return td, nil
}

func (s *state) field(td *bind.TypeDescriptor, t reflect.Type, sf reflect.StructField) error {
	ft, err := resolveFieldTag(sf)
	if err != nil {
		return err
	}
	if ft.ignore {
		td.Ignored = append(td.Ignored, ft.name)
		return nil
	}
	xf := xunsafe.NewField(sf)

	if ft.rest {
		if sf.Type.Kind() != reflect.Map || sf.Type.Key().Kind() != reflect.String {
			return fmt.Errorf("field %s: rest field is not a map with string keys", sf.Name)
		}
		td.AnySetter = restSetter(xf)
		return nil
	}
	if ft.unwrap {
		st := structType(sf.Type)
		if st == nil {
			if !sf.Anonymous {
				return fmt.Errorf("field %s: unwrapped field is not a struct", sf.Name)
			}
			ft.unwrap = false // an embedded non-struct is an ordinary field
		} else if s.active[st] {
			return fmt.Errorf("field %s: recursive unwrapped field", sf.Name)
		}
	}

	ftd, err := s.describe(sf.Type)
	if err != nil {
		return fmt.Errorf("field %s: %w", sf.Name, err)
	}
	prop := &bind.Property{
		Name:     ft.name,
		Aliases:  ft.aliases,
		Type:     ftd,
		Set:      setter(xf),
		Views:    ft.views,
		Required: ft.required,
	}
	if ft.unwrap {
		prop.Unwrapped = &bind.Unwrapped{Prefix: ft.prefix, Suffix: ft.suffix, Case: ft.caseFmt}
	}
	if ft.id {
		td.ObjectID = &bind.ObjectID{Property: ft.name}
	}
	td.Properties = append(td.Properties, prop)
	return nil
}

// restSetter returns an any-setter storing members in the map field f.
func restSetter(f *xunsafe.Field) func(obj any, name string, v any) error {
	return func(obj any, name string, v any) error {
		m := reflect.NewAt(f.Type, f.Pointer(xunsafe.AsPointer(obj))).Elem()
		if m.IsNil() {
			m.Set(reflect.MakeMap(f.Type))
		}
		ev, err := convert(v, f.Type.Elem())
		if err != nil {
			return err
		}
		m.SetMapIndex(reflect.ValueOf(name).Convert(f.Type.Key()), ev)
		return nil
	}
}

// creator builds a creator for struct type t from a registered function.
func (s *state) creator(t reflect.Type, spec creatorSpec) (*bind.Creator, error) {
	fv, ft := spec.fn, spec.fn.Type()
	c := &bind.Creator{
		Name:     funcName(fv),
		Explicit: len(spec.names) != 0,
	}
	for i := range ft.NumIn() {
		p := new(bind.Param)
		if i < len(spec.names) {
			name := spec.names[i]
			if id, ok := strings.CutPrefix(name, "$"); ok {
				p.Inject = id
			} else {
				name, p.Required = strings.CutSuffix(name, "!")
				p.Name = name
			}
		}
		if p.Inject == "" {
			ptd, err := s.describe(ft.In(i))
			if err != nil {
				return nil, fmt.Errorf("introspect: creator %s: parameter %d: %w", c.Name, i, err)
			}
			p.Type = ptd
		}
		c.Params = append(c.Params, p)
	}
	c.Invoke = func(args []any) (any, error) {
		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := convert(arg, ft.In(i))
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in[i] = v
		}
		out := fv.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		if v := out[0]; v.Kind() == reflect.Pointer {
			return v.Interface(), nil
		}
		p := reflect.New(t)
		p.Elem().Set(out[0])
		return p.Interface(), nil
	}
	return c, nil
}

func funcName(fv reflect.Value) string {
	if f := runtime.FuncForPC(fv.Pointer()); f != nil {
		return f.Name()
	}
	return fv.Type().String()
}
