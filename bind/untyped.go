// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"errors"
	"iter"
	"slices"
	"strconv"

	"github.com/creachadair/jbind"
)

// A Map is an object decoded without a type: an ordered collection of
// string-keyed members. The zero value is an empty map ready for use.
type Map struct {
	keys  []string
	vals  []any
	index map[string]int // built once the map is large
}

const mapIndexThreshold = 8

// NewMap constructs an empty map with room for n members.
func NewMap(n int) *Map {
	return &Map{keys: make([]string, 0, n), vals: make([]any, 0, n)}
}

// Len reports the number of members of m.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys of m in order.
func (m *Map) Keys() []string { return slices.Clone(m.keys) }

func (m *Map) find(key string) int {
	if m.index != nil {
		if i, ok := m.index[key]; ok {
			return i
		}
		return -1
	}
	return slices.Index(m.keys, key)
}

// Get reports the value of the member of m with the given key.
func (m *Map) Get(key string) (any, bool) {
	if i := m.find(key); i >= 0 {
		return m.vals[i], true
	}
	return nil, false
}

// Set sets the value of the member with the given key. A new key is added at
// the end; an existing key keeps its position.
func (m *Map) Set(key string, v any) {
	if i := m.find(key); i >= 0 {
		m.vals[i] = v
		return
	}
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
	if m.index != nil {
		m.index[key] = len(m.keys) - 1
	} else if len(m.keys) > mapIndexThreshold {
		m.index = make(map[string]int, len(m.keys))
		for i, k := range m.keys {
			m.index[k] = i
		}
	}
}

// All returns an iterator over the members of m in order.
func (m *Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for i, k := range m.keys {
			if !yield(k, m.vals[i]) {
				return
			}
		}
	}
}

// Untyped decodes a value from p without a type descriptor, as b would bind
// a value of type Any:
//
//   - an object becomes a *Map
//   - an array becomes a []any
//   - an Int becomes an int64, or a *big.Int if out of range
//   - a Float becomes a float64, or a *big.Rat with WithExactNumbers
//   - a string becomes a string, true and false a bool, and null nil
func (b *Binder) Untyped(p jbind.Parser) (any, error) { return b.Bind(p, Any) }

func (s *session) untyped(p jbind.Parser) (any, error) {
	switch tok := p.Token(); tok {
	case jbind.StartObject:
		return s.untypedObject(p)
	case jbind.StartArray:
		return s.untypedArray(p)
	case jbind.String:
		return p.Text()
	case jbind.Int:
		v, err := p.Int64()
		if errors.Is(err, strconv.ErrRange) {
			return p.BigInt()
		}
		return v, err
	case jbind.Float:
		if s.b.exact {
			if r, err := p.BigRat(); err == nil {
				return r, nil
			}
			// NaN and infinities have no exact representation.
		}
		return p.Float64()
	case jbind.True, jbind.False:
		return tok == jbind.True, nil
	case jbind.Null:
		return nil, nil
	case jbind.Embedded:
		return p.Embedded()
	default:
		return nil, &jbind.TypeMismatchError{Token: tok, Want: "value"}
	}
}

// untypedArray decodes an array. Arrays of up to two elements are allocated
// at their exact size.
func (s *session) untypedArray(p jbind.Parser) ([]any, error) {
	var first, second any
	n := 0
	for {
		tok, err := next(p)
		if err != nil {
			return nil, err
		} else if tok == jbind.EndArray {
			break
		}
		v, err := s.untyped(p)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			first = v
		} else if n == 1 {
			second = v
		} else {
			return s.untypedArrayTail(p, first, second, v)
		}
		n++
	}
	switch n {
	case 0:
		return []any{}, nil
	case 1:
		return []any{first}, nil
	}
	return []any{first, second}, nil
}

func (s *session) untypedArrayTail(p jbind.Parser, first, second, third any) ([]any, error) {
	out := make([]any, 3, 8)
	out[0], out[1], out[2] = first, second, third
	for {
		tok, err := next(p)
		if err != nil {
			return nil, err
		} else if tok == jbind.EndArray {
			break
		}
		v, err := s.untyped(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if s.b.compact {
		out = slices.Clip(out)
	}
	return out, nil
}

// untypedObject decodes an object. Objects of up to two members are
// allocated at their exact size.
func (s *session) untypedObject(p jbind.Parser) (*Map, error) {
	var keys [2]string
	var vals [2]any
	n := 0
	var m *Map
	for {
		tok, err := next(p)
		if err != nil {
			return nil, err
		} else if tok == jbind.EndObject {
			break
		}
		key := p.Name()
		if _, err := next(p); err != nil {
			return nil, err
		}
		v, err := s.untyped(p)
		if err != nil {
			return nil, err
		}
		if m != nil {
			m.Set(key, v)
			continue
		}
		if n < 2 && (n == 0 || keys[0] != key) {
			keys[n], vals[n] = key, v
			n++
			continue
		}
		m = NewMap(8)
		for i := range n {
			m.Set(keys[i], vals[i])
		}
		m.Set(key, v)
	}
	if m != nil {
		if s.b.compact {
			m.keys, m.vals = slices.Clip(m.keys), slices.Clip(m.vals)
		}
		return m, nil
	}
	return &Map{keys: slices.Clone(keys[:n]), vals: slices.Clone(vals[:n])}, nil
}
