// dbwriter.go -- Constant key/value DB built on top of an MPHF
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
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
)

// The on-disk DB has the following general structure:
//   - 64 byte file header: big-endian encoding of all multibyte ints
//      * magic    [4]byte
//      * flags    uint32 (indicates if DB is keys-only or keys+vals)
//      * salt     [16]byte random salt for siphash fingerprints and record integrity
//      * nkeys    uint64  Number of keys in the DB
//      * offtbl   uint64  File offset of the index table (page-aligned)
//
//   - Contiguous series of value records, one per key with a non-empty
//     value (keys are not stored):
//      * cksum    uint64  Siphash checksum of value, offset (big endian)
//      * val      []byte  value bytes
//
//   - Possibly a gap until the next page boundary (os.Getpagesize())
//   - The index table: three arrays, each indexed by MPHF slot i in [0, n):
//      * fingerprint  [n]uint64  siphash-2-4 of the key that owns slot i
//      * offset       [n]uint64  (keys+vals only) file offset of the value record
//      * vlen         [n]uint32  (keys+vals only) length of the value
//     Since the keys this library hashes are arbitrary-length byte strings
//     (not the teacher's fixed uint64 keys), the table cannot simply store
//     the key itself as an MPHF membership check -- it stores a fixed-size
//     fingerprint instead, and Find() recomputes and compares it.
//     The table is memory mapped and all entries are little-endian encoded.
//   - Zero padding up to the next 8-byte boundary
//   - The marshaled MPHF (see marshal.go)
//   - 32 bytes of strong checksum (SHA512-256) over the file header, index
//     table and marshaled MPHF.

const (
	_DB_KeysOnly = 1 << iota
)

var dbMagic = [4]byte{'B', 'D', 'Z', 'D'}

type wstate int

const (
	_Aborted wstate = -1
	_Open    wstate = 0
	_Frozen  wstate = 1
)

// DBWriter builds a read-only constant database keyed by arbitrary byte
// strings, backed by a BDZ MPHF. Values are stored sequentially in the file
// with a per-record siphash-2-4 checksum; the DB metadata (header, index
// table, MPHF) is protected by a single strong SHA512-256 checksum computed
// once over everything from the index table onward.
type DBWriter struct {
	fd *os.File
	b  *Builder

	keymap map[string]*value

	salt []byte

	off     uint64
	valSize uint64

	fntmp string
	fn    string
	state wstate
}

type value struct {
	key  []byte
	off  uint64
	vlen uint32
}

// NewDBWriter prepares file 'fn' to hold a constant DB built using a BDZ
// MPHF constructed with the given gamma (vertex-inflation factor).
func NewDBWriter(fn string, gamma float64) (*DBWriter, error) {
	tmp := fmt.Sprintf("%s.tmp.%x", fn, rand64())
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &DBWriter{
		fd:     fd,
		b:      NewBuilder().Gamma(gamma),
		keymap: make(map[string]*value),
		salt:   randbytes(16),
		off:    64,
		fn:     fn,
		fntmp:  tmp,
	}

	var z [64]byte
	if _, err := writeAll(fd, z[:]); err != nil {
		return nil, err
	}

	return w, nil
}

// Len returns the total number of distinct keys in the DB.
func (w *DBWriter) Len() int {
	return len(w.keymap)
}

// Filename returns the final (post-Freeze) filename of the DB.
func (w *DBWriter) Filename() string {
	return w.fn
}

// Add adds a single key/value pair. Duplicate keys are rejected.
func (w *DBWriter) Add(key []byte, val []byte) error {
	if w.state != _Open {
		return ErrFrozen
	}
	_, err := w.addRecord(key, val)
	return err
}

// AddKeyVals adds a batch of key/value pairs; if the slices are of unequal
// length, only the smaller length is used. Returns the number of records
// added.
func (w *DBWriter) AddKeyVals(keys [][]byte, vals [][]byte) (int, error) {
	if w.state != _Open {
		return 0, ErrFrozen
	}

	n := len(keys)
	if len(vals) < n {
		n = len(vals)
	}

	var z int
	for i := 0; i < n; i++ {
		if ok, err := w.addRecord(keys[i], vals[i]); err != nil {
			return z, err
		} else if ok {
			z++
		}
	}
	return z, nil
}

// Abort discards a construction in progress.
func (w *DBWriter) Abort() error {
	if w.state != _Open {
		return ErrFrozen
	}
	return w.abort()
}

func (w *DBWriter) abort() error {
	name := w.fd.Name()
	w.fd.Close()
	if err := os.Remove(name); err != nil {
		return err
	}
	w.state = _Aborted
	return nil
}

// Freeze builds the MPHF over the accumulated keys, writes the index table
// and MPHF to disk, appends the strong checksum trailer, and atomically
// renames the result into place.
func (w *DBWriter) Freeze() (err error) {
	defer func(e *error) {
		if *e != nil {
			w.abort()
		}
	}(&err)

	if w.state != _Open {
		return ErrFrozen
	}

	var mp *MPHF
	mp, err = w.b.Build()
	if err != nil {
		return err
	}

	h := sha512.New512_256()
	tee := io.MultiWriter(w.fd, h)

	pgsz := uint64(os.Getpagesize())
	pgszM1 := pgsz - 1
	offtbl := w.off + pgszM1
	offtbl &= ^pgszM1

	if offtbl > w.off {
		zeroes := make([]byte, offtbl-w.off)
		if _, err = writeAll(w.fd, zeroes); err != nil {
			return err
		}
		w.off = offtbl
	}

	keysOnly := w.valSize == 0

	var ehdr [64]byte
	be := binary.BigEndian
	copy(ehdr[:4], dbMagic[:])

	i := 4
	if keysOnly {
		be.PutUint32(ehdr[i:i+4], uint32(_DB_KeysOnly))
	}
	i += 4
	i += copy(ehdr[i:], w.salt)
	be.PutUint64(ehdr[i:i+8], mp.Len())
	i += 8
	be.PutUint64(ehdr[i:i+8], offtbl)

	h.Write(ehdr[:])

	if err = w.marshalIndex(tee, mp, keysOnly); err != nil {
		return err
	}

	align := w.off + 7
	align &= ^uint64(7)
	if align > w.off {
		zeroes := make([]byte, align-w.off)
		if _, err = writeAll(tee, zeroes); err != nil {
			return err
		}
		w.off = align
	}

	var nw int
	nw, err = mp.MarshalBinary(tee)
	if err != nil {
		return err
	}
	w.off += uint64(nw)

	cksum := h.Sum(nil)
	if _, err = writeAll(w.fd, cksum); err != nil {
		return err
	}

	if _, err = w.fd.Seek(0, 0); err != nil {
		return err
	}
	if _, err = writeAll(w.fd, ehdr[:]); err != nil {
		return err
	}

	if err = w.fd.Sync(); err != nil {
		return err
	}
	if err = w.fd.Close(); err != nil {
		return err
	}
	if err = os.Rename(w.fntmp, w.fn); err != nil {
		return err
	}

	w.state = _Frozen
	return nil
}

// marshalIndex writes the per-slot fingerprint (and, unless keysOnly,
// offset+vlen) table, indexed by the slot the MPHF assigns each key.
func (w *DBWriter) marshalIndex(tee io.Writer, mp *MPHF, keysOnly bool) error {
	n := mp.Len()
	fp := make([]uint64, n)
	var off []uint64
	var vlen []uint32
	if !keysOnly {
		off = make([]uint64, n)
		vlen = make([]uint32, n)
	}

	fh := newFingerprinter(w.salt)
	for k, rec := range w.keymap {
		key := []byte(k)
		i := mp.Lookup(key)
		fp[i] = fh(key)
		if !keysOnly {
			off[i] = rec.off
			vlen[i] = rec.vlen
		}
	}

	le := binary.LittleEndian
	buf := make([]byte, 8*n)
	for idx, v := range fp {
		le.PutUint64(buf[idx*8:], v)
	}
	if _, err := writeAll(tee, buf); err != nil {
		return err
	}
	w.off += uint64(len(buf))

	if !keysOnly {
		buf = make([]byte, 8*n)
		for idx, v := range off {
			le.PutUint64(buf[idx*8:], v)
		}
		if _, err := writeAll(tee, buf); err != nil {
			return err
		}
		w.off += uint64(len(buf))

		buf = make([]byte, 4*n)
		for idx, v := range vlen {
			le.PutUint32(buf[idx*4:], v)
		}
		if _, err := writeAll(tee, buf); err != nil {
			return err
		}
		w.off += uint64(len(buf))
	}

	return nil
}

// newFingerprinter returns a closure computing the siphash-2-4 fingerprint
// of a key under the DB's salt; used both when writing the index table and
// (symmetrically) when verifying a lookup in DBReader.
func newFingerprinter(salt []byte) func([]byte) uint64 {
	return func(key []byte) uint64 {
		s := siphash.New(salt)
		s.Write(key)
		return s.Sum64()
	}
}

func (w *DBWriter) addRecord(key, val []byte) (bool, error) {
	if uint64(len(val)) > uint64(1<<32)-1 {
		return false, ErrValueTooLarge
	}

	ks := string(key)
	if _, ok := w.keymap[ks]; ok {
		return false, ErrExists
	}

	kcopy := make([]byte, len(key))
	copy(kcopy, key)
	if err := w.b.Add(kcopy); err != nil {
		return false, err
	}

	v := &value{key: kcopy, off: w.off, vlen: uint32(len(val))}
	w.keymap[ks] = v

	if len(val) > 0 {
		if err := w.writeRecord(val, v.off); err != nil {
			return false, err
		}
		w.valSize += uint64(len(val))
	}

	return true, nil
}

func (w *DBWriter) writeRecord(val []byte, off uint64) error {
	var o [8]byte
	var c [8]byte

	be := binary.BigEndian
	be.PutUint64(o[:], off)

	h := siphash.New(w.salt)
	h.Write(o[:])
	h.Write(val)
	be.PutUint64(c[:], h.Sum64())

	if _, err := writeAll(w.fd, c[:]); err != nil {
		return err
	}
	if _, err := writeAll(w.fd, val); err != nil {
		return err
	}

	w.off += uint64(len(val)) + 8
	return nil
}

func writeAll(w io.Writer, buf []byte) (int, error) {
	n, err := w.Write(buf)
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return n, errShortWrite("db", n)
	}
	return n, nil
}
