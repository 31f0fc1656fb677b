// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package symtab

const (
	mult  = 33
	mult2 = 65599
	mult3 = 31
)

// hash computes the seeded hash of the first n quads of q.
func (t *Table) hash(q []uint32, n int) uint32 {
	switch n {
	case 1:
		return hash1(t.seed, q[0])
	case 2:
		return hash2(t.seed, q[0], q[1])
	case 3:
		return hash3(t.seed, q[0], q[1], q[2])
	}
	return hashN(t.seed, q, n)
}

func hash1(seed, q1 uint32) uint32 {
	h := q1 ^ seed
	h += h >> 16
	h ^= h << 3
	h += h >> 12
	return h
}

func hash2(seed, q1, q2 uint32) uint32 {
	h := q1
	h += h >> 15
	h ^= h >> 9
	h += q2 * mult
	h ^= seed
	h += h >> 16
	h ^= h >> 4
	h += h << 3
	return h
}

func hash3(seed, q1, q2, q3 uint32) uint32 {
	h := q1 ^ seed
	h += h >> 9
	h *= mult3
	h += q2
	h *= mult
	h += h >> 15
	h ^= q3
	h += h >> 4
	h += h >> 15
	h ^= h << 9
	return h
}

// hashN handles names of four or more quads.
func hashN(seed uint32, q []uint32, n int) uint32 {
	h := q[0] ^ seed
	h += h >> 9
	h += q[1]
	h += h >> 15
	h *= mult
	h ^= q[2]
	h += h >> 4
	for _, v := range q[3:n] {
		h += v ^ v>>21
	}
	h *= mult2
	h += h >> 19
	h ^= h << 5
	return h
}

// Pack packs the bytes of name into little-endian quads, appending them to
// buf, and returns the updated slice along with the number of quads used.
// Unused bytes of the final quad are set to 0xff, which cannot occur in valid
// UTF-8, so names of different lengths never share a representation.
func Pack(name []byte, buf []uint32) ([]uint32, int) {
	n := (len(name) + 3) / 4
	buf = buf[:0]
	for i := 0; i < len(name); i += 4 {
		var q uint32
		end := min(i+4, len(name))
		for j := i; j < end; j++ {
			q |= uint32(name[j]) << (8 * (j - i))
		}
		if k := end - i; k < 4 {
			q |= 0xffffffff << (8 * k)
		}
		buf = append(buf, q)
	}
	return buf, n
}
