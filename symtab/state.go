// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package symtab

import "slices"

// A state is one generation of table contents. Once a state has been
// published to a Root it is never modified; tables copy it before writing.
//
// The slots of a table of size N are laid out as:
//
//	[0, N)            primary slots, indexed by hash
//	[N, 3N/2)         secondary slots, indexed by primary/2
//	[3N/2, 7N/4)      tertiary buckets of fixed size
//	[7N/4, 15N/8)     spill region, filled in order
//
// Each slot has four words. Names of up to three quads store the quads in
// words 0-2; longer names store the hash in word 0 and an offset into the
// long-name area in word 1. Word 3 holds the quad count, zero if empty.
type state struct {
	size   int // primary slot count, a power of 2
	count  int // number of entries
	spill  int // number of slots used in the spill region
	bshift int // log2 of tertiary bucket size

	words []uint32
	names []string
	long  []uint32 // quads of long names
}

func newState(size int) *state {
	slots := size + size>>1 + size>>2 + size>>3
	return &state{
		size:   size,
		bshift: bucketShift(size),
		words:  make([]uint32, 4*slots),
		names:  make([]string, slots),
	}
}

// bucketShift computes the log2 of the tertiary bucket size for a table with
// the given number of primary slots.
func bucketShift(size int) int {
	switch tert := size >> 2; {
	case tert < 64:
		return 2
	case tert <= 256:
		return 3
	case tert <= 1024:
		return 4
	default:
		return 5
	}
}

func (s *state) clone() *state {
	cp := *s
	cp.words = slices.Clone(s.words)
	cp.names = slices.Clone(s.names)
	cp.long = slices.Clone(s.long)
	return &cp
}

func (s *state) secondaryStart() int { return s.size }
func (s *state) tertiaryStart() int  { return s.size + s.size>>1 }
func (s *state) spillStart() int     { return s.tertiaryStart() + s.size>>2 }
func (s *state) spillLimit() int     { return s.size >> 3 }

// used reports the number of slots that may be occupied.
func (s *state) used() int { return s.spillStart() + s.spill }

func (s *state) primary(h uint32) int { return int(h) & (s.size - 1) }

func (s *state) secondary(p int) int { return s.secondaryStart() + p>>1 }

func (s *state) bucket(p int) int {
	return s.tertiaryStart() + (p>>(2+s.bshift))<<s.bshift
}

func (s *state) qlen(slot int) int { return int(s.words[4*slot+3]) }

// quads returns the quads stored for slot, and their count.
func (s *state) quads(slot int) ([]uint32, int) {
	w := s.words[4*slot : 4*slot+4]
	n := int(w[3])
	if n <= 3 {
		return w[:3], n
	}
	off := int(w[1])
	return s.long[off : off+n], n
}

func (s *state) match(slot int, q []uint32, n int, h uint32) bool {
	w := s.words[4*slot : 4*slot+4]
	if int(w[3]) != n {
		return false
	}
	switch n {
	case 1:
		return w[0] == q[0]
	case 2:
		return w[0] == q[0] && w[1] == q[1]
	case 3:
		return w[0] == q[0] && w[1] == q[1] && w[2] == q[2]
	}
	if w[0] != h {
		return false
	}
	off := int(w[1])
	return slices.Equal(s.long[off:off+n], q[:n])
}

func (s *state) find(q []uint32, n int, h uint32) (string, bool) {
	p := s.primary(h)
	if s.qlen(p) == 0 {
		return "", false
	} else if s.match(p, q, n, h) {
		return s.names[p], true
	}

	sec := s.secondary(p)
	if s.qlen(sec) == 0 {
		return "", false
	} else if s.match(sec, q, n, h) {
		return s.names[sec], true
	}

	b := s.bucket(p)
	for slot := b; slot < b+1<<s.bshift; slot++ {
		if s.qlen(slot) == 0 {
			return "", false
		} else if s.match(slot, q, n, h) {
			return s.names[slot], true
		}
	}

	start := s.spillStart()
	for slot := start; slot < start+s.spill; slot++ {
		if s.match(slot, q, n, h) {
			return s.names[slot], true
		}
	}
	return "", false
}

// offsetForAdd returns the first free slot for a name with hash h, or false
// if the spill region is full.
func (s *state) offsetForAdd(h uint32) (int, bool) {
	p := s.primary(h)
	if s.qlen(p) == 0 {
		return p, true
	}
	if sec := s.secondary(p); s.qlen(sec) == 0 {
		return sec, true
	}
	b := s.bucket(p)
	for slot := b; slot < b+1<<s.bshift; slot++ {
		if s.qlen(slot) == 0 {
			return slot, true
		}
	}
	if s.spill < s.spillLimit() {
		slot := s.spillStart() + s.spill
		s.spill++
		return slot, true
	}
	return 0, false
}

func (s *state) put(slot int, h uint32, name string, q []uint32, n int) {
	w := s.words[4*slot : 4*slot+4]
	if n <= 3 {
		copy(w[:3], q[:n])
	} else {
		w[0] = h
		w[1] = uint32(len(s.long))
		s.long = append(s.long, q[:n]...)
	}
	w[3] = uint32(n)
	s.names[slot] = name
	s.count++
}
