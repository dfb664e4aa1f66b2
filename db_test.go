// db_test.go -- tests for the constant key/value DB (DBWriter/DBReader)
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

func TestDBWriterReaderRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	dir := t.TempDir()
	fn := filepath.Join(dir, "test.db")

	w, err := NewDBWriter(fn, DefaultGamma)
	assert(err == nil, "new writer: %v", err)

	vals := make(map[string]string, len(keyw))
	for i, k := range keyw {
		v := keyw[(i+1)%len(keyw)]
		vals[k] = v
		assert(w.Add([]byte(k), []byte(v)) == nil, "add %q failed", k)
	}

	assert(w.Len() == len(keyw), "Len: exp %d, saw %d", len(keyw), w.Len())
	assert(w.Freeze() == nil, "freeze failed")

	rd, err := NewDBReader(fn, 16)
	assert(err == nil, "new reader: %v", err)
	defer rd.Close()

	assert(rd.Len() == len(keyw), "reader Len: exp %d, saw %d", len(keyw), rd.Len())

	for k, v := range vals {
		got, ok := rd.Lookup([]byte(k))
		assert(ok, "lookup %q failed", k)
		assert(string(got) == v, "lookup %q: exp %q, saw %q", k, v, got)
	}

	_, ok := rd.Lookup([]byte("not-a-member-of-this-db"))
	assert(!ok, "expected non-member lookup to fail")
}

func TestDBWriterDuplicateKey(t *testing.T) {
	assert := newAsserter(t)

	dir := t.TempDir()
	fn := filepath.Join(dir, "test.db")

	w, err := NewDBWriter(fn, DefaultGamma)
	assert(err == nil, "new writer: %v", err)

	assert(w.Add([]byte("k"), []byte("v1")) == nil, "first add failed")
	err = w.Add([]byte("k"), []byte("v2"))
	assert(err == ErrExists, "exp ErrExists, saw %v", err)

	assert(w.Abort() == nil, "abort failed")
	_, statErr := os.Stat(fn)
	assert(os.IsNotExist(statErr), "expected no final file after abort")
}

func TestDBIterFunc(t *testing.T) {
	assert := newAsserter(t)

	dir := t.TempDir()
	fn := filepath.Join(dir, "test.db")

	w, err := NewDBWriter(fn, DefaultGamma)
	assert(err == nil, "new writer: %v", err)

	for _, k := range keyw {
		assert(w.Add([]byte(k), []byte(k)) == nil, "add %q failed", k)
	}
	assert(w.Freeze() == nil, "freeze failed")

	rd, err := NewDBReader(fn, 16)
	assert(err == nil, "new reader: %v", err)
	defer rd.Close()

	var count int
	err = rd.IterFunc(func(fp uint64, v []byte) error {
		count++
		return nil
	})
	assert(err == nil, "iter failed: %v", err)
	assert(count == len(keyw), "iter count: exp %d, saw %d", len(keyw), count)
}

func TestDBKeysOnly(t *testing.T) {
	assert := newAsserter(t)

	dir := t.TempDir()
	fn := filepath.Join(dir, "test.db")

	w, err := NewDBWriter(fn, DefaultGamma)
	assert(err == nil, "new writer: %v", err)

	for _, k := range keyw {
		assert(w.Add([]byte(k), nil) == nil, "add %q failed", k)
	}
	assert(w.Freeze() == nil, "freeze failed")

	rd, err := NewDBReader(fn, 16)
	assert(err == nil, "new reader: %v", err)
	defer rd.Close()

	for _, k := range keyw {
		got, ok := rd.Lookup([]byte(k))
		assert(ok, "lookup %q failed", k)
		assert(len(got) == 0, "expected empty value for keys-only DB, got %q", got)
	}
}
