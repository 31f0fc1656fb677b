// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind_test

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/creachadair/jbind"
	"github.com/creachadair/jbind/bind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	var m bind.Map
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get("x")
	assert.False(t, ok)

	// Grow past the size at which the map builds an index, and check that
	// lookups and updates work either way.
	var want []string
	for i := range 12 {
		key := fmt.Sprintf("k%d", i)
		m.Set(key, i)
		want = append(want, key)
	}
	m.Set("k3", "three")
	m.Set("k10", "ten")

	assert.Equal(t, 12, m.Len())
	assert.Equal(t, want, m.Keys())
	for i, key := range want {
		v, ok := m.Get(key)
		require.True(t, ok, "key %q", key)
		switch i {
		case 3:
			assert.Equal(t, "three", v)
		case 10:
			assert.Equal(t, "ten", v)
		default:
			assert.Equal(t, i, v)
		}
	}

	var keys []string
	for k := range m.All() {
		keys = append(keys, k)
		if len(keys) == 5 {
			break
		}
	}
	assert.Equal(t, want[:5], keys)

	// Keys returns a copy.
	ks := m.Keys()
	ks[0] = "bogus"
	assert.Equal(t, "k0", m.Keys()[0])
}

// mapOf constructs a *bind.Map from alternating keys and values.
func mapOf(kvs ...any) *bind.Map {
	m := bind.NewMap(len(kvs) / 2)
	for i := 0; i+1 < len(kvs); i += 2 {
		m.Set(kvs[i].(string), kvs[i+1])
	}
	return m
}

func TestUntyped(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{`null`, nil},
		{`true`, true},
		{`"a\tb"`, "a\tb"},
		{`17`, int64(17)},
		{`-0.5`, -0.5},
		{`1e3`, 1000.0},
		{`[]`, []any{}},
		{`[1]`, []any{int64(1)}},
		{`[1, "two"]`, []any{int64(1), "two"}},
		{`[1, 2, 3, 4]`, []any{int64(1), int64(2), int64(3), int64(4)}},
		{`[[], [[]], {}]`, []any{[]any{}, []any{[]any{}}, mapOf()}},
		{`{}`, mapOf()},
		{`{"a": 1}`, mapOf("a", int64(1))},
		{`{"b": 1, "a": 2}`, mapOf("b", int64(1), "a", int64(2))},
		{`{"a": 1, "a": 2}`, mapOf("a", int64(2))},
		{`{"c": 1, "b": 2, "a": 3, "b": 4}`, mapOf("c", int64(1), "b", int64(4), "a", int64(3))},
		{`{"x": [true, null, {"y": "z"}]}`, mapOf("x", []any{true, nil, mapOf("y", "z")})},
	}
	b := bind.New()
	for _, tc := range tests {
		got, err := b.Unmarshal([]byte(tc.input), nil)
		if assert.NoError(t, err, "input %s", tc.input) {
			assert.Equal(t, tc.want, got, "input %s", tc.input)
		}
	}
}

func TestUntypedNumbers(t *testing.T) {
	const input = `[12345678901234567890123, 0.1, 1.5e300, -7]`

	got, err := bind.As[[]any](bind.New().Unmarshal([]byte(input), bind.Any))
	require.NoError(t, err)
	require.Len(t, got, 4)
	want, _ := new(big.Int).SetString("12345678901234567890123", 10)
	assert.Equal(t, 0, want.Cmp(got[0].(*big.Int)))
	assert.Equal(t, 0.1, got[1])
	assert.Equal(t, 1.5e300, got[2])
	assert.Equal(t, int64(-7), got[3])

	exact, err := bind.As[[]any](bind.New(bind.WithExactNumbers(true)).Unmarshal([]byte(input), bind.Any))
	require.NoError(t, err)
	require.Len(t, exact, 4)
	tenth, ok := exact[1].(*big.Rat)
	require.True(t, ok, "got %T, want *big.Rat", exact[1])
	assert.Equal(t, "1/10", tenth.String())
	assert.Equal(t, int64(-7), exact[3])
}

func TestUntypedCompact(t *testing.T) {
	const input = `{"a": [1, 2, 3, 4, 5], "b": 1, "c": 2}`
	for _, compact := range []bool{false, true} {
		m, err := bind.As[*bind.Map](bind.New(bind.WithCompactArrays(compact)).Unmarshal([]byte(input), nil))
		require.NoError(t, err)
		v, ok := m.Get("a")
		require.True(t, ok)
		arr := v.([]any)
		assert.Len(t, arr, 5)
		if compact {
			assert.Equal(t, len(arr), cap(arr))
		}
	}
}

func TestUntypedParser(t *testing.T) {
	tok := jbind.NewTokenizerBytes([]byte(`{"a": [1, {"b": null}]} [2]`), nil)
	b := bind.New()

	v1, err := b.Untyped(tok)
	require.NoError(t, err)
	assert.Equal(t, mapOf("a", []any{int64(1), mapOf("b", nil)}), v1)

	_, err = tok.NextToken()
	require.NoError(t, err)
	v2, err := b.Untyped(tok)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, v2)
}

func TestAppendJSON(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, `null`},
		{true, `true`},
		{"a\"b", `"a\"b"`},
		{5, `5`},
		{int64(-5), `-5`},
		{2.5, `2.5`},
		{big.NewInt(1 << 40), `1099511627776`},
		{big.NewRat(3, 8), `0.375`},
		{big.NewRat(1, 3), `0.3333333333333333`},
		{big.NewRat(4, 2), `2`},
		{[]byte("hi"), `"aGk="`},
		{[]any{1, "x", []any{}}, `[1,"x",[]]`},
		{mapOf("z", 1, "a", nil), `{"z":1,"a":null}`},
		{map[string]any{"z": 1, "a": false}, `{"a":false,"z":1}`},
	}
	for _, tc := range tests {
		got, err := bind.AppendJSON(nil, tc.input)
		if assert.NoError(t, err, "input %v", tc.input) {
			assert.Equal(t, tc.want, string(got), "input %v", tc.input)
		}
	}

	for _, bad := range []any{struct{}{}, []any{1, make(chan int)}} {
		_, err := bind.AppendJSON(nil, bad)
		assert.Error(t, err, "input %v", bad)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`{"name":"widget","tags":["a","b","c"],"size":{"w":10,"h":2.5},"ok":true,"note":null}`,
		`[1,[2,[3,[4]]],{"":""}]`,
		`{"big":123456789012345678901234567890,"small":0.001}`,
	}
	b := bind.New(bind.WithExactNumbers(true))
	for _, input := range inputs {
		v, err := b.Unmarshal([]byte(input), nil)
		require.NoError(t, err, "input %s", input)
		got, err := bind.AppendJSON(nil, v)
		require.NoError(t, err)
		assert.Equal(t, input, string(got))

		// The output binds to the same value.
		w, err := b.Unmarshal(got, nil)
		require.NoError(t, err)
		assert.Equal(t, v, w)
	}
}
