// rank_test.go -- tests for the packed 2-bit table and its rank dictionary
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

func TestPacked2GetSet(t *testing.T) {
	assert := newAsserter(t)

	p := newPacked2(100)
	for i := uint64(0); i < 100; i++ {
		assert(p.get(i) == unusedLabel, "slot %d: expected unused initially", i)
	}

	p.set(0, 0)
	p.set(1, 1)
	p.set(63, 2)
	p.set(99, 0)

	assert(p.get(0) == 0, "slot 0")
	assert(p.get(1) == 1, "slot 1")
	assert(p.get(63) == 2, "slot 63")
	assert(p.get(99) == 0, "slot 99")
	assert(p.get(2) == unusedLabel, "slot 2 untouched")
}

func TestPacked2MarshalRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	m := uint64(130)
	p := newPacked2(m)
	for i := uint64(0); i < m; i++ {
		p.set(i, uint8(i%3))
	}

	buf := p.marshalBytes()
	assert(uint64(len(buf)) == p.byteLen(), "byteLen mismatch")

	p2, err := unmarshalPacked2(m, buf)
	assert(err == nil, "unmarshal failed: %v", err)

	for i := uint64(0); i < m; i++ {
		assert(p2.get(i) == p.get(i), "slot %d mismatch after round-trip", i)
	}
}

func TestPacked2UnmarshalTooSmall(t *testing.T) {
	assert := newAsserter(t)
	_, err := unmarshalPacked2(1000, make([]byte, 4))
	assert(err == ErrTooSmall, "exp ErrTooSmall, saw %v", err)
}

func TestRankDictBasic(t *testing.T) {
	assert := newAsserter(t)

	m := uint64(1200) // spans multiple rank blocks
	p := newPacked2(m)

	// mark every third vertex as used
	var want uint64
	for i := uint64(0); i < m; i++ {
		if i%3 == 0 {
			p.set(i, 0)
			want++
		}
	}

	rd := buildRankDict(p)
	assert(rd.total == want, "total: exp %d, saw %d", want, rd.total)

	var running uint64
	for i := uint64(0); i < m; i++ {
		got := rd.rank(p, i)
		assert(got == running, "rank(%d): exp %d, saw %d", i, running, got)
		if p.get(i) != unusedLabel {
			running++
		}
	}
}

func TestRankDictBlockBoundary(t *testing.T) {
	assert := newAsserter(t)

	// m is an exact multiple of rankBlockSize -- checks that building the
	// rank dictionary stays in range and counts every slot in the total.
	m := uint64(rankBlockSize * 3)
	p := newPacked2(m)
	for i := uint64(0); i < m; i++ {
		p.set(i, 1)
	}

	rd := buildRankDict(p)
	assert(rd.total == m, "total: exp %d, saw %d", m, rd.total)
}
