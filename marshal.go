// marshal.go -- canonical on-disk layout for a frozen MPHF (component E)
//
// Layout (little-endian throughout, offsets from spec):
//
//	 0   8   magic "MPHFBDZ\0"
//	 8   4   format version (1)
//	12   4   reserved/flags
//	16   8   n
//	24   8   m
//	32   8   seed
//	40   4   gamma (IEEE-754 binary32)
//	44   4   rank block size B
//	48   8   length of packed g, in bytes
//	56   8   number of rank blocks
//	64   -   packed g (2 bits/entry, little-endian within byte)
//	 -   -   rank counters (u64 each)
//	tail 8   CRC-64 of all preceding bytes
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
	"hash/crc64"
	"io"
	"math"
)

var magic = [8]byte{'M', 'P', 'H', 'F', 'B', 'D', 'Z', 0}

const formatVersion uint32 = 1
const headerSize = 64

var crcTable = crc64.MakeTable(crc64.ECMA)

// MarshalBinary writes the canonical serialized form of mp to w.
func (mp *MPHF) MarshalBinary(w io.Writer) (int, error) {
	glen := mp.g.byteLen()
	nblocks := uint64(len(mp.rank.block))

	var hdr [headerSize]byte
	le := binary.LittleEndian

	copy(hdr[0:8], magic[:])
	le.PutUint32(hdr[8:12], formatVersion)
	le.PutUint32(hdr[12:16], 0)
	le.PutUint64(hdr[16:24], mp.n)
	le.PutUint64(hdr[24:32], mp.m)
	le.PutUint64(hdr[32:40], mp.seed)
	le.PutUint32(hdr[40:44], math.Float32bits(mp.gamma))
	le.PutUint32(hdr[44:48], uint32(rankBlockSize))
	le.PutUint64(hdr[48:56], glen)
	le.PutUint64(hdr[56:64], nblocks)

	h := crc64.New(crcTable)
	tee := io.MultiWriter(w, h)
	ew := newErrWriter(tee)

	n, _ := ew.Write(hdr[:])

	gbytes := mp.g.marshalBytes()
	m, _ := ew.Write(gbytes)
	n += m

	rbytes := make([]byte, nblocks*8)
	for i, c := range mp.rank.block {
		le.PutUint64(rbytes[i*8:], c)
	}
	m, _ = ew.Write(rbytes)
	n += m

	if err := ew.Error(); err != nil {
		return n, err
	}

	var tail [8]byte
	le.PutUint64(tail[:], h.Sum64())
	m, err := w.Write(tail[:])
	n += m
	return n, err
}

// ReadMPHF reconstructs a previously serialized MPHF from buf. buf may be a
// plain byte slice or the backing of a memory-mapped file (see OpenMPHF).
// The tables are decoded into new slices, so the result does not reference
// buf once ReadMPHF returns.
func ReadMPHF(buf []byte) (*MPHF, error) {
	if len(buf) < headerSize+8 {
		return nil, &CorruptSerializationError{Reason: "truncated header"}
	}

	le := binary.LittleEndian
	hdr := buf[:headerSize]

	if string(hdr[0:8]) != string(magic[:]) {
		return nil, &CorruptSerializationError{Reason: "bad magic", Err: ErrBadMagic}
	}
	if v := le.Uint32(hdr[8:12]); v != formatVersion {
		return nil, &CorruptSerializationError{Reason: "unsupported version", Err: ErrBadVersion}
	}

	n := le.Uint64(hdr[16:24])
	m := le.Uint64(hdr[24:32])
	seed := le.Uint64(hdr[32:40])
	gamma := math.Float32frombits(le.Uint32(hdr[40:44]))
	blockSize := le.Uint32(hdr[44:48])
	glen := le.Uint64(hdr[48:56])
	nblocks := le.Uint64(hdr[56:64])

	if blockSize != rankBlockSize {
		return nil, &CorruptSerializationError{Reason: "rank block size mismatch"}
	}

	need := headerSize + glen + nblocks*8 + 8
	if uint64(len(buf)) < need {
		return nil, &CorruptSerializationError{Reason: "truncated body"}
	}

	body := buf[headerSize : need-8]
	gbytes := body[:glen]
	rbytes := body[glen : glen+nblocks*8]
	tail := buf[need-8 : need]

	h := crc64.New(crcTable)
	h.Write(hdr)
	h.Write(gbytes)
	h.Write(rbytes)
	gotSum := h.Sum64()
	wantSum := le.Uint64(tail)
	if gotSum != wantSum {
		return nil, &CorruptSerializationError{Reason: "CRC-64 mismatch", Err: ErrChecksum}
	}

	g, err := unmarshalPacked2(m, gbytes)
	if err != nil {
		return nil, &CorruptSerializationError{Reason: "bad assignment table", Err: err}
	}

	rd := &rankDict{block: make([]uint64, nblocks)}
	for i := uint64(0); i < nblocks; i++ {
		rd.block[i] = le.Uint64(rbytes[i*8:])
	}
	if nblocks > 0 {
		rd.total = rd.block[nblocks-1]
		lastBlockStart := (nblocks - 1) * rankBlockSize
		rd.total += tailPopcount(g, lastBlockStart, m)
	}

	return &MPHF{
		n:     n,
		m:     m,
		gamma: gamma,
		seed:  seed,
		g:     g,
		rank:  rd,
	}, nil
}

// tailPopcount sums used slots in [from, to) -- used only to recompute
// rank.total after deserializing, since the wire format doesn't carry it
// directly (it's cheap to derive and keeps the on-disk layout minimal).
func tailPopcount(g *packed2, from, to uint64) uint64 {
	var c uint64
	for v := from; v < to; v++ {
		if g.get(v) != unusedLabel {
			c++
		}
	}
	return c
}
