// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package lru_test

import (
	"testing"

	"github.com/creachadair/jbind/internal/lru"
	"github.com/google/go-cmp/cmp"
)

func TestCache(t *testing.T) {
	c := lru.New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get a: got %v, %v; want 1, true", v, ok)
	}

	// "b" is now least recently used and should be evicted.
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("Get b: found evicted entry")
	}
	got := make(map[string]int)
	for _, k := range []string{"a", "b", "c"} {
		if v, ok := c.Get(k); ok {
			got[k] = v
		}
	}
	if diff := cmp.Diff(map[string]int{"a": 1, "c": 3}, got); diff != "" {
		t.Errorf("Contents (-want, +got):\n%s", diff)
	}
	if n := c.Len(); n != 2 {
		t.Errorf("Len: got %d, want 2", n)
	}
}

func TestGetOrSet(t *testing.T) {
	c := lru.New[int, string](0)
	calls := 0
	fn := func() string { calls++; return "x" }
	for range 3 {
		if got := c.GetOrSet(1, fn); got != "x" {
			t.Errorf("GetOrSet: got %q, want x", got)
		}
	}
	if calls != 1 {
		t.Errorf("Compute calls: got %d, want 1", calls)
	}
}
