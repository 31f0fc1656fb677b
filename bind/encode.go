// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"

	"github.com/creachadair/jbind"
)

// AppendJSON appends the JSON encoding of v to dst. It accepts the values
// produced by binding untyped input: nil, bool, string, int, int64, float64,
// *big.Int, *big.Rat, []byte (encoded as base64), []any, *Map, and
// map[string]any (encoded with sorted keys).
func AppendJSON(dst []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(dst, "null"...), nil
	case bool:
		return strconv.AppendBool(dst, t), nil
	case string:
		return jbind.AppendQuote(dst, t), nil
	case int:
		return strconv.AppendInt(dst, int64(t), 10), nil
	case int64:
		return strconv.AppendInt(dst, t, 10), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return dst, fmt.Errorf("bind: cannot encode %v as JSON", t)
		}
		return strconv.AppendFloat(dst, t, 'g', -1, 64), nil
	case *big.Int:
		return t.Append(dst, 10), nil
	case *big.Rat:
		return appendRat(dst, t), nil
	case []byte:
		dst = append(dst, '"')
		dst = base64.StdEncoding.AppendEncode(dst, t)
		return append(dst, '"'), nil
	case []any:
		dst = append(dst, '[')
		for i, elt := range t {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = AppendJSON(dst, elt); err != nil {
				return dst, err
			}
		}
		return append(dst, ']'), nil
	case *Map:
		return appendMembers(dst, t.keys, t.Get)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return appendMembers(dst, keys, func(k string) (any, bool) { v, ok := t[k]; return v, ok })
	default:
		return dst, fmt.Errorf("bind: cannot encode value of type %T", v)
	}
}

func appendMembers(dst []byte, keys []string, get func(string) (any, bool)) ([]byte, error) {
	dst = append(dst, '{')
	for i, key := range keys {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = jbind.AppendQuote(dst, key)
		dst = append(dst, ':')
		v, _ := get(key)
		var err error
		if dst, err = AppendJSON(dst, v); err != nil {
			return dst, err
		}
	}
	return append(dst, '}'), nil
}

// appendRat appends the decimal representation of r, exactly if r has a
// terminating decimal expansion.
func appendRat(dst []byte, r *big.Rat) []byte {
	if r.IsInt() {
		return r.Num().Append(dst, 10)
	}
	d := new(big.Int).Set(r.Denom())
	twos := int(d.TrailingZeroBits())
	d.Rsh(d, uint(twos))

	five, m := big.NewInt(5), new(big.Int)
	fives := 0
	for {
		q, rem := new(big.Int).QuoRem(d, five, m)
		if rem.Sign() != 0 {
			break
		}
		d, fives = q, fives+1
	}
	if d.Cmp(big.NewInt(1)) != 0 {
		f, _ := r.Float64()
		return strconv.AppendFloat(dst, f, 'g', -1, 64)
	}
	return append(dst, r.FloatString(max(twos, fives))...)
}
