// parallel.go -- the one part of the BDZ build that is embarrassingly
// parallel: hashing keys into hyperedges. Peeling and assignment are
// sequential over the peel order and stay on a single goroutine.
//
// This follows the same shard/synchronize shape as the teacher's
// concurrent() in bbhash.go (partition keys across NumCPU goroutines,
// join at a sync.WaitGroup), simplified because our per-key work has no
// shared mutable state to reconcile: each key's triple is independent, so
// there is no analogue of bbhash's collision/redo bookkeeping.
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
	"runtime"
	"sync"
	"sync/atomic"
)

// parallelHashThreshold mirrors the teacher's MinParallelKeys: below this
// many keys, the overhead of spawning goroutines isn't worth it.
const parallelHashThreshold = 20000

// buildEdges hashes every key under h into a hyperedge, in parallel once
// the key count crosses parallelHashThreshold. It returns false if any
// key's triple has a within-edge duplicate -- which should not happen given
// the banded hasher (hash.go), but is checked defensively per spec: a seed
// that somehow produces a degenerate edge is rejected wholesale and the
// caller retries with the next seed.
func buildEdges(h *keyedHasher, keys [][]byte) ([]edge, bool) {
	n := len(keys)
	edges := make([]edge, n)

	if n < parallelHashThreshold {
		for i, k := range keys {
			if !hashOne(h, k, &edges[i]) {
				return nil, false
			}
		}
		return edges, true
	}

	ncpu := runtime.NumCPU()
	chunk := (n + ncpu - 1) / ncpu

	var wg sync.WaitGroup
	var bad int32

	for c := 0; c < ncpu; c++ {
		start := c * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if !hashOne(h, keys[i], &edges[i]) {
					atomic.StoreInt32(&bad, 1)
					return
				}
			}
		}(start, end)
	}

	wg.Wait()

	if atomic.LoadInt32(&bad) != 0 {
		return nil, false
	}
	return edges, true
}

func hashOne(h *keyedHasher, key []byte, e *edge) bool {
	v0, v1, v2 := h.triple(key)
	if v0 == v1 || v1 == v2 || v0 == v2 {
		return false
	}
	e.v = [3]uint64{v0, v1, v2}
	return true
}
