// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package introspect

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/viant/xunsafe"
)

// setter returns a property setter for field f of a struct. The object
// passed to the setter must be a pointer to the struct.
func setter(f *xunsafe.Field) func(obj, v any) error {
	return func(obj, v any) error {
		return assign(f.Pointer(xunsafe.AsPointer(obj)), f.Type, v)
	}
}

// assign stores v at ptr, which addresses a value of type t.
func assign(ptr unsafe.Pointer, t reflect.Type, v any) error {
	switch x := v.(type) {
	case string:
		if t.Kind() == reflect.String {
			*xunsafe.AsStringPtr(ptr) = x
			return nil
		}
	case int:
		if t.Kind() == reflect.Int {
			*xunsafe.AsIntPtr(ptr) = x
			return nil
		}
	case int64:
		if t.Kind() == reflect.Int64 {
			*xunsafe.AsInt64Ptr(ptr) = x
			return nil
		}
	case float64:
		if t.Kind() == reflect.Float64 {
			*xunsafe.AsFloat64Ptr(ptr) = x
			return nil
		}
	case bool:
		if t.Kind() == reflect.Bool {
			*xunsafe.AsBoolPtr(ptr) = x
			return nil
		}
	}
	rv, err := convert(v, t)
	if err != nil {
		return err
	}
	reflect.NewAt(t, ptr).Elem().Set(rv)
	return nil
}

// convert converts a bound value v to a value of type t.
func convert(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	} else if rv.Kind() == reflect.Pointer && rv.Type().Elem() == t {
		return rv.Elem(), nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Pointer:
		elem, err := convert(v, t.Elem())
		if err != nil {
			return out, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(v)
		if !ok || out.OverflowInt(n) {
			return out, badValue(v, t)
		}
		out.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := toInt64(v)
		if !ok || n < 0 || out.OverflowUint(uint64(n)) {
			return out, badValue(v, t)
		}
		out.SetUint(uint64(n))

	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(v)
		if !ok || out.OverflowFloat(f) {
			return out, badValue(v, t)
		}
		out.SetFloat(f)

	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return out, badValue(v, t)
		}
		out.SetString(s)

	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return out, badValue(v, t)
		}
		out.SetBool(b)

	case reflect.Slice:
		if b, ok := v.([]byte); ok && t.Elem().Kind() == reflect.Uint8 {
			out.SetBytes(b)
			break
		}
		vs, ok := v.([]any)
		if !ok {
			return out, badValue(v, t)
		}
		out = reflect.MakeSlice(t, len(vs), len(vs))
		if err := convertElems(vs, out); err != nil {
			return out, err
		}

	case reflect.Array:
		vs, ok := v.([]any)
		if !ok || len(vs) > t.Len() {
			return out, badValue(v, t)
		}
		if err := convertElems(vs, out); err != nil {
			return out, err
		}

	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok || t.Key().Kind() != reflect.String {
			return out, badValue(v, t)
		}
		out = reflect.MakeMapWithSize(t, len(m))
		for key, elt := range m {
			ev, err := convert(elt, t.Elem())
			if err != nil {
				return out, fmt.Errorf("key %q: %w", key, err)
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), ev)
		}

	default:
		return out, badValue(v, t)
	}
	return out, nil
}

func convertElems(vs []any, out reflect.Value) error {
	et := out.Type().Elem()
	for i, elt := range vs {
		ev, err := convert(elt, et)
		if err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
		out.Index(i).Set(ev)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func badValue(v any, t reflect.Type) error {
	return fmt.Errorf("cannot use %T value as %s", v, t)
}
