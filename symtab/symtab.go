// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package symtab implements a canonicalizing symbol table for JSON object
// field names.
//
// Names are presented to the table as sequences of 4-byte "quads" packed from
// the decoded UTF-8 bytes of the name (see [Pack]). A [Root] holds the shared,
// read-mostly state of the table as a single immutable snapshot. Each
// tokenizer obtains a private [Table] from the root with [Root.Child]; the
// child shares the root's arrays until its first mutation, at which point it
// copies them. When the tokenizer is finished, [Table.Release] offers any new
// entries back to the root with a single compare-and-swap:
//
//	root := symtab.NewRoot(nil)
//	t := root.Child()
//	defer t.Release()
//
//	q, n := symtab.Pack(name, nil)
//	s, ok := t.Find(q, n)
//	if !ok {
//	   s, err = t.Add(string(name), q, n)
//	}
//
// Within one table generation, equal byte sequences always resolve to the
// same string, sharing a single backing array.
package symtab

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/golang/glog"
)

// Default configuration values.
const (
	DefaultInitialSize        = 64
	DefaultMaxSize            = 1 << 16
	DefaultMaxEntriesForReuse = 6000

	minSize = 16
)

// Config carries settings for a [Root]. A nil *Config is ready for use and
// provides default values.
type Config struct {
	// InitialSize is the number of primary slots in an empty table. It is
	// rounded up to a power of two no less than 16.
	InitialSize int

	// MaxSize is the largest number of primary slots a table may grow to.
	MaxSize int

	// MaxEntriesForReuse is the largest number of entries the root will
	// retain when a child is released. A child with more entries causes the
	// root to be reset to an empty table.
	MaxEntriesForReuse int

	// TolerateOverflow, if true, causes a table whose spill region is full
	// to return names without interning them, rather than reporting a
	// *CollisionOverflowError.
	TolerateOverflow bool

	// Seed, if nonzero, replaces the random hash seed. This is meant for
	// tests; a fixed seed makes the table vulnerable to crafted collisions.
	Seed uint32
}

func (c *Config) initialSize() int {
	want := DefaultInitialSize
	if c != nil && c.InitialSize > 0 {
		want = c.InitialSize
	}
	n := minSize
	for n < want && n < c.maxSize() {
		n <<= 1
	}
	return n
}

func (c *Config) maxSize() int {
	if c != nil && c.MaxSize >= minSize {
		return c.MaxSize
	}
	return DefaultMaxSize
}

func (c *Config) maxEntriesForReuse() int {
	if c != nil && c.MaxEntriesForReuse > 0 {
		return c.MaxEntriesForReuse
	}
	return DefaultMaxEntriesForReuse
}

func (c *Config) seed() uint32 {
	if c != nil && c.Seed != 0 {
		return c.Seed
	}
	for {
		if s := rand.Uint32(); s != 0 {
			return s
		}
	}
}

// A Root is the shared state of a symbol table. It is safe for concurrent use
// by multiple goroutines; each goroutine should use its own [Table].
type Root struct {
	cur      atomic.Pointer[state]
	seed     uint32
	initial  int
	maxSize  int
	maxReuse int
	tolerate bool
}

// NewRoot constructs a new empty root table with a freshly chosen hash seed.
// If cfg == nil, default settings are used.
func NewRoot(cfg *Config) *Root {
	r := &Root{
		seed:     cfg.seed(),
		initial:  cfg.initialSize(),
		maxSize:  cfg.maxSize(),
		maxReuse: cfg.maxEntriesForReuse(),
		tolerate: cfg != nil && cfg.TolerateOverflow,
	}
	r.cur.Store(newState(r.initial))
	return r
}

// Size reports the number of entries in the current root snapshot.
func (r *Root) Size() int { return r.cur.Load().count }

// Child returns a new table that shares the current contents of r.
// The caller should call Release on the table when it is no longer needed.
func (r *Root) Child() *Table {
	st := r.cur.Load()
	return &Table{
		root:     r,
		st:       st,
		shared:   true,
		seed:     r.seed,
		maxSize:  r.maxSize,
		failOver: !r.tolerate,
		start:    st.count,
	}
}

// merge offers child to the root. It makes at most one attempt to publish;
// if another child was published concurrently, this offer is discarded.
func (r *Root) merge(child *state) {
	cur := r.cur.Load()
	if child.count <= cur.count {
		return // nothing the root does not already have
	}
	next := child
	if child.count > r.maxReuse {
		if glog.V(1) {
			glog.Infof("symtab: resetting root table (%d entries exceeds reuse limit %d)", child.count, r.maxReuse)
		}
		next = newState(r.initial)
	}
	r.cur.CompareAndSwap(cur, next)
}

// A Table is a private view of a symbol table. A Table is not safe for
// concurrent use without external synchronization.
type Table struct {
	root       *Root
	st         *state
	shared     bool // st must be copied before it is modified
	needRehash bool
	released   bool
	seed       uint32
	maxSize    int
	failOver   bool
	start      int // entry count when the table was created
}

// FailOnOverflow configures whether t reports (true) or tolerates (false)
// exhaustion of its spill region. The default is taken from the root.
func (t *Table) FailOnOverflow(ok bool) { t.failOver = ok }

// Size reports the number of entries in t.
func (t *Table) Size() int { return t.st.count }

// Capacity reports the number of primary slots in t.
func (t *Table) Capacity() int { return t.st.size }

// SpillCount reports the number of entries occupying the spill region.
func (t *Table) SpillCount() int { return t.st.spill }

// Dirty reports whether entries have been added to t since it was created.
func (t *Table) Dirty() bool { return t.st.count != t.start }

// Find reports the interned name for the first n quads of q, if present.
func (t *Table) Find(q []uint32, n int) (string, bool) {
	if n == 0 {
		return "", true
	}
	return t.st.find(q, n, t.hash(q, n))
}

// Add interns name, whose packed representation is the first n quads of q,
// and returns the canonical string for it. The caller must ensure that q
// matches name (see [Pack]).
//
// If the table cannot place the name because its spill region is exhausted
// and it cannot grow, Add reports a *CollisionOverflowError,
// or if overflow is tolerated returns name without interning it.
func (t *Table) Add(name string, q []uint32, n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	if t.released {
		return name, nil // the root owns our state now
	}
	t.verifySharing()

	h := t.hash(q, n)
	slot, ok := t.st.offsetForAdd(h)
	if !ok && t.st.size < t.maxSize && t.rehash() {
		slot, ok = t.st.offsetForAdd(h)
	}
	if !ok {
		if t.failOver {
			return name, &CollisionOverflowError{Size: t.st.size, Count: t.st.count, Spill: t.st.spill}
		}
		if glog.V(2) {
			glog.Infof("symtab: spill region full at %d entries; %q not interned", t.st.count, name)
		}
		return name, nil
	}
	t.st.put(slot, h, name, q, n)
	t.checkRehash()
	return name, nil
}

// Release offers the contents of t back to its root, if t has added entries.
// After Release, t remains usable for lookups but no longer interns.
func (t *Table) Release() {
	if t.released || t.root == nil {
		return
	}
	t.released = true
	if t.Dirty() {
		t.root.merge(t.st)
	}
	t.shared = true
}

func (t *Table) verifySharing() {
	if t.shared {
		t.st = t.st.clone()
		t.shared = false
	}
	if t.needRehash {
		t.rehash()
	}
}

// checkRehash schedules a rehash once more than half the primary slots are
// used, or the spill region is more than half full. The rehash is performed
// on the next mutation.
func (t *Table) checkRehash() {
	st := t.st
	if st.size >= t.maxSize {
		return
	}
	if st.count > st.size>>1 || st.spill > st.size>>4 {
		t.needRehash = true
	}
}

// rehash moves the contents of t into a table with twice as many primary
// slots. If any entry cannot be placed in the larger table, t keeps its
// current contents and rehash reports false.
func (t *Table) rehash() bool {
	t.needRehash = false
	old := t.st
	size := old.size << 1
	if size > t.maxSize {
		return false
	}
	next := newState(size)
	for slot := range old.used() {
		q, n := old.quads(slot)
		if n == 0 {
			continue
		}
		h := old.words[slot*4]
		if n <= 3 {
			h = t.hash(q, n)
		}
		dst, ok := next.offsetForAdd(h)
		if !ok {
			if glog.V(2) {
				glog.Infof("symtab: cannot place %q in %d slots; keeping %d", old.names[slot], size, old.size)
			}
			return false
		}
		next.put(dst, h, old.names[slot], q, n)
	}
	t.st = next
	return true
}

// CollisionOverflowError is reported when a symbol table cannot place a name
// because its spill region is exhausted at maximum size. This typically
// indicates an input crafted to produce hash collisions.
type CollisionOverflowError struct {
	Size  int // primary slots
	Count int // entries
	Spill int // entries in the spill region
}

func (e *CollisionOverflowError) Error() string {
	return fmt.Sprintf("symbol table overflow: spill region full (%d slots, %d entries, %d spilled); possible hash collision attack",
		e.Size, e.Count, e.Spill)
}
