// mmap_test.go -- tests for the memory-mapped cold start path
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
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMPHFRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	keys := wordKeys(keyw)
	mp := buildAndVerify(t, keys)

	dir := t.TempDir()
	fn := filepath.Join(dir, "test.mphf")

	fd, err := os.Create(fn)
	assert(err == nil, "create: %v", err)
	_, err = mp.MarshalBinary(fd)
	assert(err == nil, "marshal: %v", err)
	assert(fd.Close() == nil, "close: %v", err)

	mm, err := OpenMPHF(fn)
	assert(err == nil, "OpenMPHF: %v", err)
	defer mm.Close()

	assert(mm.Len() == mp.Len(), "Len mismatch")
	for _, k := range keys {
		assert(mm.Lookup(k) == mp.Lookup(k), "lookup mismatch for %q", k)
	}
}

func TestOpenMPHFMissingFile(t *testing.T) {
	assert := newAsserter(t)
	_, err := OpenMPHF(filepath.Join(t.TempDir(), "does-not-exist"))
	assert(err != nil, "expected error opening missing file")
}
