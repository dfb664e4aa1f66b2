// peel.go -- hypergraph construction and leaf-removal peeling (component B)
//
// The peeling algorithm below is the XOR-accumulator trick used by
// FastFilter's fuse/xor filter construction (PopulateFuse8 in the xor
// filter family): instead of an adjacency list per vertex (which would
// triple memory during build for no benefit), each vertex keeps a running
// XOR of the indices of its still-incident edges. When a vertex's degree
// drops to exactly 1, that XOR accumulator *is* the index of its one
// remaining edge, recovered with no search.
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

// edge is a 3-uniform hyperedge: the three vertex indices derived from one
// key. All three are guaranteed distinct by construction (they come from
// disjoint hash bands; see hash.go).
type edge struct {
	v [3]uint64
}

// peelEntry records one peeled edge and which of its three vertices was the
// degree-1 ("leaf") vertex at the moment of removal.
type peelEntry struct {
	edge uint32
	pos  uint8 // 0, 1 or 2: index into edges[edge].v
}

// peelHypergraph attempts to find a peel order for edges over m vertices.
// On success it returns a slice of length len(edges) with order[0] the
// first-peeled edge and order[len-1] the last-peeled edge -- i.e. component
// C must walk this slice back-to-front to process edges in reverse removal
// order. (Building the result by always appending the edge peeled *this*
// round, in round order, is equivalent to the "insert-at-front, then
// reverse" description in the algorithm write-up: prepending at every step
// and then reversing the whole list just recovers encounter order.)
func peelHypergraph(edges []edge, m uint64) ([]peelEntry, bool) {
	n := len(edges)

	degree := make([]int32, m)
	xorAcc := make([]uint64, m)

	for e := range edges {
		for _, v := range edges[e].v {
			degree[v]++
			xorAcc[v] ^= uint64(e)
		}
	}

	queue := make([]uint64, 0, m)
	for v := uint64(0); v < m; v++ {
		if degree[v] == 1 {
			queue = append(queue, v)
		}
	}

	order := make([]peelEntry, 0, n)
	for len(queue) > 0 {
		v := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if degree[v] != 1 {
			continue
		}

		e := xorAcc[v]
		ed := &edges[e]
		pos := whichOf(ed, v)
		order = append(order, peelEntry{edge: uint32(e), pos: pos})
		degree[v] = 0

		for i := 0; i < 3; i++ {
			u := ed.v[i]
			if u == v {
				continue
			}
			degree[u]--
			xorAcc[u] ^= e
			if degree[u] == 1 {
				queue = append(queue, u)
			}
		}
	}

	if len(order) != n {
		return nil, false
	}
	return order, true
}

// whichOf returns the position (0, 1, or 2) of vertex v within edge e.
func whichOf(e *edge, v uint64) uint8 {
	switch v {
	case e.v[0]:
		return 0
	case e.v[1]:
		return 1
	default:
		return 2
	}
}
