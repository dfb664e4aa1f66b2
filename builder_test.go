// builder_test.go -- tests for Builder/MPHF construction and lookup
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
	"bytes"
	"fmt"
	"testing"

	"github.com/opencoff/go-fasthash"
)

func wordKeys(words []string) [][]byte {
	keys := make([][]byte, len(words))
	for i, w := range words {
		keys[i] = []byte(w)
	}
	return keys
}

// syntheticKeys generates n distinct byte-string keys deterministically via
// fasthash, for sizes larger than the built-in word list.
func syntheticKeys(n int) [][]byte {
	keys := make([][]byte, n)
	for i := 0; i < n; i++ {
		s := fmt.Sprintf("key-%d-%x", i, fasthash.Hash64(uint64(i), []byte("bdzmph")))
		keys[i] = []byte(s)
	}
	return keys
}

func buildAndVerify(t *testing.T, keys [][]byte) *MPHF {
	t.Helper()
	assert := newAsserter(t)

	b := NewBuilder().BaseSeed(0xdeadbeef)
	for _, k := range keys {
		assert(b.Add(k) == nil, "add failed")
	}

	mp, err := b.Build()
	assert(err == nil, "build failed: %v", err)
	assert(mp.Len() == uint64(len(keys)), "Len: exp %d, saw %d", len(keys), mp.Len())

	seen := make([]bool, len(keys))
	for _, k := range keys {
		i := mp.Lookup(k)
		assert(i < mp.Len(), "lookup out of range: %d", i)
		assert(!seen[i], "collision at index %d", i)
		seen[i] = true
	}
	for i, ok := range seen {
		assert(ok, "index %d never produced by any key", i)
	}
	return mp
}

func TestBuilderSimple(t *testing.T) {
	buildAndVerify(t, wordKeys(keyw))
}

func TestBuilderSingleKey(t *testing.T) {
	buildAndVerify(t, [][]byte{[]byte("onlykey")})
}

func TestBuilderTwoKeys(t *testing.T) {
	buildAndVerify(t, [][]byte{[]byte("alpha"), []byte("beta")})
}

func TestBuilderLargeKeySet(t *testing.T) {
	buildAndVerify(t, syntheticKeys(25000))
}

func TestBuilderEmptyKeySet(t *testing.T) {
	assert := newAsserter(t)
	b := NewBuilder()
	_, err := b.Build()
	assert(err == ErrEmptyKeySet, "exp ErrEmptyKeySet, saw %v", err)
}

func TestBuilderInvalidGamma(t *testing.T) {
	assert := newAsserter(t)
	b := NewBuilder().Gamma(1.0)
	assert(b.Add([]byte("x")) == nil, "add failed")
	_, err := b.Build()
	assert(err == ErrInvalidGamma, "exp ErrInvalidGamma, saw %v", err)
}

func TestBuilderDuplicateKey(t *testing.T) {
	assert := newAsserter(t)
	b := NewBuilder()
	assert(b.Add([]byte("dup")) == nil, "add failed")
	assert(b.Add([]byte("dup")) == nil, "add failed")
	_, err := b.Build()
	assert(err == ErrDuplicateKey, "exp ErrDuplicateKey, saw %v", err)
}

func TestBuilderDeterministicWithBaseSeed(t *testing.T) {
	assert := newAsserter(t)
	keys := wordKeys(keyw)

	b1 := NewBuilder().BaseSeed(12345)
	b2 := NewBuilder().BaseSeed(12345)
	for _, k := range keys {
		assert(b1.Add(k) == nil, "add failed")
		assert(b2.Add(k) == nil, "add failed")
	}

	m1, err := b1.Build()
	assert(err == nil, "build 1 failed: %v", err)
	m2, err := b2.Build()
	assert(err == nil, "build 2 failed: %v", err)

	for _, k := range keys {
		assert(m1.Lookup(k) == m2.Lookup(k), "non-deterministic lookup for %q", k)
	}
}

func TestMPHFSerializationRoundTrip(t *testing.T) {
	assert := newAsserter(t)
	keys := wordKeys(keyw)

	mp := buildAndVerify(t, keys)

	var buf bytes.Buffer
	n, err := mp.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %v", err)
	assert(n == buf.Len(), "marshal returned %d, wrote %d", n, buf.Len())

	mp2, err := ReadMPHF(buf.Bytes())
	assert(err == nil, "unmarshal failed: %v", err)
	assert(mp2.Len() == mp.Len(), "Len mismatch after round-trip")

	for _, k := range keys {
		assert(mp.Lookup(k) == mp2.Lookup(k), "lookup mismatch for %q after round-trip", k)
	}
}

func TestMPHFSerializationCorruption(t *testing.T) {
	assert := newAsserter(t)
	keys := wordKeys(keyw)
	mp := buildAndVerify(t, keys)

	var buf bytes.Buffer
	_, err := mp.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %v", err)

	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[len(corrupt)-1] ^= 0xff

	_, err = ReadMPHF(corrupt)
	assert(err != nil, "expected checksum failure on corrupted buffer")
}

func TestMPHFSerializationTruncated(t *testing.T) {
	assert := newAsserter(t)
	keys := wordKeys(keyw)
	mp := buildAndVerify(t, keys)

	var buf bytes.Buffer
	_, err := mp.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %v", err)

	_, err = ReadMPHF(buf.Bytes()[:buf.Len()/2])
	assert(err != nil, "expected error on truncated buffer")
}
