// rank.go -- O(1) rank dictionary over the assignment table (component D)
//
// Generalizes the teacher's bitVector.Rank/ComputeRank (bitvector.go), which
// tallies a 1-bit-per-slot vector by scanning words with math/bits.OnesCount64,
// into a *blocked* rank index over a 2-bit-per-slot table: one cumulative
// counter every 512 vertices, plus a SWAR popcount of the partial block, so a
// query touches one counter and at most one rank block (16 words) of the
// packed table instead of rescanning from the start every time.
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

import "math/bits"

// rankBlockSize is the number of vertices (not bits, not words) covered by
// one cumulative rank counter.
const rankBlockSize = 512

const wordsPerRankBlock = rankBlockSize / 32 // 32 two-bit slots per 64-bit word

// rankDict holds one cumulative "used vertex" count per rank block, plus
// the total population count (== n for a valid MPHF).
type rankDict struct {
	block []uint64
	total uint64
}

func buildRankDict(g *packed2) *rankDict {
	nblocks := (g.m + rankBlockSize - 1) / rankBlockSize
	rd := &rankDict{block: make([]uint64, nblocks)}

	var cum uint64
	nwords := uint64(len(g.v))
	for b := uint64(0); b < nblocks; b++ {
		rd.block[b] = cum

		start := b * wordsPerRankBlock
		end := start + wordsPerRankBlock
		if end > nwords {
			end = nwords
		}
		for w := start; w < end; w++ {
			cum += usedCountInWord(g.v[w])
		}
	}
	rd.total = cum
	return rd
}

// usedCountInWord returns the number of 2-bit slots in w that are not the
// unused sentinel (0b11), via the SWAR formula from the design notes: a slot
// is "used" iff its two bits are not both set.
func usedCountInWord(w uint64) uint64 {
	const mask01 = 0x5555555555555555
	usedMask := ^(w & (w >> 1)) & mask01
	return uint64(bits.OnesCount64(usedMask))
}

// rank returns the number of used vertices strictly before position v, i.e.
// |{ u < v : g[u] != unused }|.
func (rd *rankDict) rank(g *packed2, v uint64) uint64 {
	block := v / rankBlockSize
	r := rd.block[block]

	blockStartWord := block * wordsPerRankBlock
	targetWord := v / 32

	for w := blockStartWord; w < targetWord; w++ {
		r += usedCountInWord(g.v[w])
	}

	if rem := v % 32; rem > 0 {
		w := g.v[targetWord]
		keepBits := rem * 2
		// slots at or after v are forced to the unused pattern (0b11)
		w |= ^((uint64(1) << keepBits) - 1)
		r += usedCountInWord(w)
	}
	return r
}

