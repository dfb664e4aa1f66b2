// hash.go -- keyed hasher for the BDZ hypergraph construction (component A)
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

import (
	"encoding/binary"

	"github.com/dchest/siphash"
)

// keyedHasher produces the three banded vertex indices for a key, given a
// seed. It is deterministic and endianness-independent, so a serialized
// MPHF is portable across platforms: the seed -> siphash key derivation and
// the mix()/rotl64 spreading below are pinned as part of the wire format.
type keyedHasher struct {
	salt [16]byte // siphash key, derived from the build seed
	seed uint64
	band uint64 // m / 3
	m    uint64
}

func newKeyedHasher(seed, m uint64) *keyedHasher {
	h := &keyedHasher{seed: seed, m: m, band: m / 3}

	var k0, k1 [8]byte
	binary.LittleEndian.PutUint64(k0[:], mix(seed))
	binary.LittleEndian.PutUint64(k1[:], mix(seed^0x9E3779B97F4A7C15))
	copy(h.salt[0:8], k0[:])
	copy(h.salt[8:16], k1[:])
	return h
}

// digest computes the single 64-bit siphash digest of a key under this
// hasher's seed-derived salt.
func (h *keyedHasher) digest(key []byte) uint64 {
	s := siphash.New(h.salt[:])
	s.Write(key)
	return s.Sum64()
}

// triple returns the three banded vertex indices (v0, v1, v2) for key.
// Band i covers [i*band, (i+1)*band); the caller is responsible for
// ensuring m is a multiple of 3 so the bands are equal sized (see
// Builder.Build). Because the three outputs are drawn from disjoint bands,
// they are always pairwise distinct.
func (h *keyedHasher) triple(key []byte) (v0, v1, v2 uint64) {
	d := h.digest(key)

	r0 := uint32(d)
	r1 := uint32(rotl64(d, 21))
	r2 := uint32(rotl64(d, 42))

	band := uint32(h.band) // bands stay well under 2^32 for any n this package targets
	v0 = reduce64(r0, band)
	v1 = h.band + reduce64(r1, band)
	v2 = 2*h.band + reduce64(r2, band)
	return
}

// reduce64 maps a uniform 32-bit value into [0, n) without a division (the
// standard Lemire "multiply-shift" trick), returning a uint64 to match the
// vertex-index type used throughout.
func reduce64(x, n uint32) uint64 {
	return (uint64(x) * uint64(n)) >> 32
}
