// doc.go - top level documentation
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

// Package bdzmph implements a minimal perfect hash function (MPHF) over a
// fixed, known-in-advance set of keys, using the BDZ algorithm (Botelho,
// Pagh, Ziviani 2007): random 3-uniform hypergraph generation, peelability
// testing via iterative leaf removal, and a 2-bit-per-vertex assignment
// table whose sum-mod-3 recovers, for every original key, a dense index in
// [0, n).
//
// Construction proceeds through a sequence of seeded attempts: hash all keys
// to hyperedges, try to peel the resulting hypergraph, and on failure retry
// with a new seed. On success, the peel order yields a 2-bit assignment
// table and a rank dictionary that compacts "used" vertex indices down to
// [0, n) in O(1).
//
// The primary entry points are Builder (construction) and MPHF (the frozen,
// queryable result). A frozen MPHF is immutable, safe for concurrent
// lookups, and can be serialized to and read back from a byte stream -
// including from a memory-mapped file (OpenMPHF), whose tables are decoded
// into heap copies rather than used in place.
//
// bdzmph additionally exposes a constant key/value database built atop the
// MPHF (DBWriter/DBReader) for the common case where lookups vastly
// outnumber updates.
package bdzmph
