// hash_test.go -- tests for the banded keyed hasher
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package bdzmph

import "testing"

func TestKeyedHasherTripleBands(t *testing.T) {
	assert := newAsserter(t)

	m := uint64(30)
	h := newKeyedHasher(42, m)
	band := m / 3

	for _, w := range keyw {
		v0, v1, v2 := h.triple([]byte(w))
		assert(v0 < band, "v0 out of band: %d", v0)
		assert(v1 >= band && v1 < 2*band, "v1 out of band: %d", v1)
		assert(v2 >= 2*band && v2 < 3*band, "v2 out of band: %d", v2)
	}
}

func TestKeyedHasherDeterministic(t *testing.T) {
	assert := newAsserter(t)

	h1 := newKeyedHasher(7, 300)
	h2 := newKeyedHasher(7, 300)

	for _, w := range keyw {
		a0, a1, a2 := h1.triple([]byte(w))
		b0, b1, b2 := h2.triple([]byte(w))
		assert(a0 == b0 && a1 == b1 && a2 == b2, "triple differs for same seed: %q", w)
	}
}

func TestKeyedHasherDifferentSeeds(t *testing.T) {
	assert := newAsserter(t)

	h1 := newKeyedHasher(1, 300)
	h2 := newKeyedHasher(2, 300)

	var diff int
	for _, w := range keyw {
		a0, _, _ := h1.triple([]byte(w))
		b0, _, _ := h2.triple([]byte(w))
		if a0 != b0 {
			diff++
		}
	}
	assert(diff > 0, "expected different seeds to produce different digests for at least one key")
}

func TestReduce64Range(t *testing.T) {
	assert := newAsserter(t)

	n := uint32(1000)
	for _, x := range []uint32{0, 1, 1 << 31, ^uint32(0)} {
		got := reduce64(x, n)
		assert(got < uint64(n), "reduce64(%d, %d) = %d, out of range", x, n, got)
	}
}
