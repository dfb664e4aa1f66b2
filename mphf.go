// mphf.go -- the frozen MPHF value and its query path (component E)
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

// MPHF is an immutable minimal perfect hash function over a fixed key set,
// built by Builder.Build. Queries are read-only and safe for unsynchronized
// concurrent use once construction has happened-before the first call.
type MPHF struct {
	n     uint64
	m     uint64
	gamma float32
	seed  uint64
	g     *packed2
	rank  *rankDict
}

// Len returns n, the number of keys this MPHF was built over.
func (mp *MPHF) Len() uint64 {
	return mp.n
}

// Lookup returns key's index in [0, n). The result is meaningful only for
// keys that were present in the original build set; a key outside that set
// returns some unspecified-but-deterministic value in [0, n) with no
// indication that it wasn't a member. Lookup never fails: callers needing
// membership must layer their own verification (e.g. a stored fingerprint,
// as DBReader does).
func (mp *MPHF) Lookup(key []byte) uint64 {
	h := newKeyedHasher(mp.seed, mp.m)
	v0, v1, v2 := h.triple(key)

	g0, g1, g2 := mp.g.get(v0), mp.g.get(v1), mp.g.get(v2)
	w := sumMod3(g0, g1, g2)

	var vstar uint64
	switch w {
	case 0:
		vstar = v0
	case 1:
		vstar = v1
	default:
		vstar = v2
	}

	return mp.rank.rank(mp.g, vstar)
}

// sumMod3 adds up to three 2-bit labels, treating the unused sentinel (3)
// as 0, and reduces the result mod 3.
func sumMod3(a, b, c uint8) uint8 {
	var s int
	if a != unusedLabel {
		s += int(a)
	}
	if b != unusedLabel {
		s += int(b)
	}
	if c != unusedLabel {
		s += int(c)
	}
	return uint8(s % 3)
}
