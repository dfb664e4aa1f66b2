// dbreader.go -- Constant key/value DB reader (see dbwriter.go for layout)
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
	"fmt"
	"io"
	"os"
	"strings"

	"crypto/sha512"
	"crypto/subtle"

	"github.com/dchest/siphash"
	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-mmap"
)

// DBReader queries a constant DB previously built with DBWriter. Because the
// MPHF gives no membership guarantee on its own, every lookup is verified
// against a stored siphash fingerprint of the key before the value record is
// trusted.
type DBReader struct {
	mp *MPHF

	cache *arc.ARCCache[string, []byte]

	flags uint32
	salt  []byte

	fp  []uint64
	off []uint64
	vl  []uint32

	nkeys  uint64
	offtbl uint64

	mm *mmap.Mapping
	fd *os.File
	fn string
}

// NewDBReader opens a previously constructed DB in file 'fn' and prepares it
// for querying. Up to 'cache' decoded value records are retained in memory
// (default 128 if cache <= 0).
func NewDBReader(fn string, cache int) (rd *DBReader, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}

	if cache <= 0 {
		cache = 128
	}

	rd = &DBReader{fd: fd, fn: fn}

	st, err := fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: can't stat: %w", fn, err)
	}
	if st.Size() < 64+32 {
		return nil, fmt.Errorf("%s: file too small or corrupted", fn)
	}

	var hdrb [64]byte
	if _, err = io.ReadFull(fd, hdrb[:]); err != nil {
		return nil, fmt.Errorf("%s: can't read header: %w", fn, err)
	}

	offtbl, err := rd.decodeHeader(hdrb[:], st.Size())
	if err != nil {
		return nil, err
	}

	if err = rd.verifyChecksum(hdrb[:], offtbl, st.Size()); err != nil {
		return nil, err
	}

	keysOnly := rd.flags&_DB_KeysOnly > 0
	tblsz := rd.nkeys * 8
	if !keysOnly {
		tblsz += rd.nkeys * (8 + 4)
	}
	if uint64(st.Size()) < 64+32+tblsz {
		return nil, fmt.Errorf("%s: corrupt header: index table truncated", fn)
	}

	rd.cache, err = arc.NewARC[string, []byte](cache)
	if err != nil {
		return nil, err
	}

	mmapsz := st.Size() - int64(offtbl) - 32
	mm := mmap.New(fd)
	mapping, err := mm.Map(mmapsz, int64(offtbl), mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		return nil, fmt.Errorf("%s: can't mmap %d bytes at off %d: %w", fn, mmapsz, offtbl, err)
	}
	rd.mm = mapping

	bs := mapping.Bytes()
	le := binary.LittleEndian

	fpsz := rd.nkeys * 8
	rd.fp = make([]uint64, rd.nkeys)
	for i := uint64(0); i < rd.nkeys; i++ {
		rd.fp[i] = le.Uint64(bs[i*8:])
	}
	pos := fpsz

	if !keysOnly {
		rd.off = make([]uint64, rd.nkeys)
		for i := uint64(0); i < rd.nkeys; i++ {
			rd.off[i] = le.Uint64(bs[pos+i*8:])
		}
		pos += rd.nkeys * 8

		rd.vl = make([]uint32, rd.nkeys)
		for i := uint64(0); i < rd.nkeys; i++ {
			rd.vl[i] = le.Uint32(bs[pos+i*4:])
		}
		pos += rd.nkeys * 4
	}

	// the writer pads the index table to an 8-byte boundary
	pos = (pos + 7) &^ 7

	mp, err := ReadMPHF(bs[pos:])
	if err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal MPHF: %w", fn, err)
	}
	rd.mp = mp

	return rd, nil
}

// Len returns the number of keys in the DB.
func (rd *DBReader) Len() int {
	return int(rd.nkeys)
}

// Close releases the memory map, the file handle, and the value cache.
func (rd *DBReader) Close() {
	rd.mm.Unmap()
	rd.fd.Close()
	rd.cache.Purge()
	rd.salt = nil
	rd.mp = nil
	rd.fd = nil
	rd.fn = ""
}

// Lookup looks up key and returns its value, or (nil, false) if key is not a
// member of the DB.
func (rd *DBReader) Lookup(key []byte) ([]byte, bool) {
	v, err := rd.Find(key)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Find looks up key and returns an error if it isn't a member, or if disk
// i/o or a checksum fails.
func (rd *DBReader) Find(key []byte) ([]byte, error) {
	ks := string(key)
	if v, ok := rd.cache.Get(ks); ok {
		return v, nil
	}

	i := rd.mp.Lookup(key)

	fh := newFingerprinter(rd.salt)
	if fh(key) != rd.fp[i] {
		return nil, ErrNoKey
	}

	if rd.off == nil {
		rd.cache.Add(ks, nil)
		return nil, nil
	}

	val, err := rd.decodeRecord(rd.off[i], rd.vl[i])
	if err != nil {
		return nil, err
	}

	rd.cache.Add(ks, val)
	return val, nil
}

// IterFunc calls fp on every (key-fingerprint, value) pair in the DB. Since
// this store never retains the original key bytes, the callback receives
// each key's siphash fingerprint rather than the key itself. If fp returns
// a non-nil error, iteration stops and that error is returned.
func (rd *DBReader) IterFunc(fp func(fingerprint uint64, v []byte) error) error {
	for i := uint64(0); i < rd.nkeys; i++ {
		var val []byte
		var err error
		if rd.off != nil {
			val, err = rd.decodeRecord(rd.off[i], rd.vl[i])
			if err != nil {
				return fmt.Errorf("iter: slot %d: %w", i, err)
			}
		}
		if err := fp(rd.fp[i], val); err != nil {
			return err
		}
	}
	return nil
}

// DumpMeta writes a human-readable description of the DB to w.
func (rd *DBReader) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "%s", rd.Desc())
	for i := uint64(0); i < rd.nkeys; i++ {
		if rd.off != nil {
			fmt.Fprintf(w, "  %8d: fp %#016x, %d bytes at %#x\n", i, rd.fp[i], rd.vl[i], rd.off[i])
		} else {
			fmt.Fprintf(w, "  %8d: fp %#016x\n", i, rd.fp[i])
		}
	}
}

// Desc returns a one-line-plus description of the DB.
func (rd *DBReader) Desc() string {
	var w strings.Builder
	kind := "<KEYS+VALS>"
	if rd.off == nil {
		kind = "<KEYS>"
	}
	fmt.Fprintf(&w, "bdzmph DB: %s %d keys, offtbl at %#x\n", kind, rd.nkeys, rd.offtbl)
	fmt.Fprintf(&w, "  mphf: n=%d m=%d\n", rd.mp.Len(), rd.mp.m)
	return w.String()
}

func (rd *DBReader) decodeRecord(off uint64, vlen uint32) ([]byte, error) {
	// the writer stores no record for an empty value
	if vlen == 0 {
		return nil, nil
	}

	if _, err := rd.fd.Seek(int64(off), 0); err != nil {
		return nil, err
	}

	data := make([]byte, uint64(vlen)+8)
	if _, err := io.ReadFull(rd.fd, data); err != nil {
		return nil, err
	}

	be := binary.BigEndian
	csum := be.Uint64(data[:8])

	var o [8]byte
	be.PutUint64(o[:], off)

	h := siphash.New(rd.salt)
	h.Write(o[:])
	h.Write(data[8:])
	exp := h.Sum64()

	if csum != exp {
		return nil, fmt.Errorf("%s: corrupted record at off %d (exp %#x, saw %#x)", rd.fn, off, exp, csum)
	}
	return data[8:], nil
}

func (rd *DBReader) verifyChecksum(hdrb []byte, offtbl uint64, sz int64) error {
	h := sha512.New512_256()
	h.Write(hdrb)

	remsz := sz - int64(offtbl) - 32

	if _, err := rd.fd.Seek(int64(offtbl), 0); err != nil {
		return err
	}

	nw, err := io.CopyN(h, rd.fd, remsz)
	if err != nil {
		return fmt.Errorf("%s: metadata i/o error: %w", rd.fn, err)
	}
	if nw != remsz {
		return fmt.Errorf("%s: partial read while verifying checksum, exp %d, saw %d", rd.fn, remsz, nw)
	}

	var expsum [32]byte
	if _, err := rd.fd.Seek(sz-32, 0); err != nil {
		return err
	}
	if _, err := io.ReadFull(rd.fd, expsum[:]); err != nil {
		return fmt.Errorf("%s: checksum i/o error: %w", rd.fn, err)
	}

	csum := h.Sum(nil)
	if subtle.ConstantTimeCompare(csum, expsum[:]) != 1 {
		return fmt.Errorf("%s: checksum failure; exp %#x, saw %#x", rd.fn, expsum[:], csum)
	}

	_, err = rd.fd.Seek(int64(offtbl), 0)
	return err
}

func (rd *DBReader) decodeHeader(b []byte, sz int64) (uint64, error) {
	if string(b[:4]) != string(dbMagic[:]) {
		return 0, fmt.Errorf("%s: bad file magic <%s>", rd.fn, string(b[:4]))
	}

	be := binary.BigEndian
	i := 4

	rd.flags = be.Uint32(b[i : i+4])
	i += 4

	rd.salt = append([]byte(nil), b[i:i+16]...)
	i += 16
	rd.nkeys = be.Uint64(b[i : i+8])
	i += 8
	rd.offtbl = be.Uint64(b[i : i+8])

	if rd.offtbl < 64 || rd.offtbl >= uint64(sz-32) {
		return 0, fmt.Errorf("%s: corrupt header", rd.fn)
	}

	return rd.offtbl, nil
}
