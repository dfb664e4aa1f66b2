// builder.go -- Builder orchestration: seed retry loop, state machine
// (component E)
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

import "math"

const (
	// DefaultGamma is the default vertex-inflation factor m = ceil(gamma*n).
	DefaultGamma = 1.27

	// MinGamma and MaxGamma bound the valid gamma range.
	MinGamma = 1.23
	MaxGamma = 2.0

	// DefaultMaxRetries bounds the number of seeded peeling attempts.
	DefaultMaxRetries = 16
)

// buildState tracks the builder's progress through Init -> Hashing ->
// Peeling -> Assigning -> RankBuilding -> Ready | Failed. A failed attempt
// has no state of its own: Build goes back to Hashing with the next seed.
type buildState int32

const (
	stateInit buildState = iota
	stateHashing
	statePeeling
	stateAssigning
	stateRankBuilding
	stateReady
	stateFailed
)

// Builder accumulates a key set and configuration, then freezes it into an
// MPHF via Build. A Builder is not safe for concurrent use.
type Builder struct {
	keys         [][]byte
	gamma        float64
	maxRetries   int
	baseSeed     uint64
	haveBaseSeed bool
	state        buildState

	cancel func() bool // optional cancellation check, polled between retries
}

// NewBuilder creates a Builder with the default gamma (1.27) and
// max-retries (16). Use Gamma, MaxRetries and BaseSeed to override before
// calling Add/AddStrings and Build.
func NewBuilder() *Builder {
	return &Builder{
		gamma:      DefaultGamma,
		maxRetries: DefaultMaxRetries,
		state:      stateInit,
	}
}

// Gamma sets the vertex-inflation factor; must be in [1.23, 2.0] (checked at
// Build time, not here, so setters can be chained freely).
func (b *Builder) Gamma(g float64) *Builder {
	b.gamma = g
	return b
}

// MaxRetries sets the maximum number of seed attempts during peeling.
func (b *Builder) MaxRetries(n int) *Builder {
	b.maxRetries = n
	return b
}

// BaseSeed pins the seed used to derive each attempt's seed, for
// reproducible builds: two builds with the same keys (in the same order),
// gamma, max-retries and base seed produce byte-identical serializations.
// Without a BaseSeed, Build draws a random one.
func (b *Builder) BaseSeed(seed uint64) *Builder {
	b.baseSeed = seed
	b.haveBaseSeed = true
	return b
}

// Cancel installs a function polled at each retry boundary; if it returns
// true, Build aborts early with a BuildFailedError reporting the attempts
// completed so far. There is no long-running I/O to cancel mid-attempt --
// build is CPU-bound, so cancellation is checked only between attempts.
func (b *Builder) Cancel(fn func() bool) *Builder {
	b.cancel = fn
	return b
}

// Add appends a single key. The key's bytes are copied.
func (b *Builder) Add(key []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	b.keys = append(b.keys, k)
	return nil
}

// AddStrings appends a batch of string keys.
func (b *Builder) AddStrings(keys []string) error {
	for _, s := range keys {
		if err := b.Add([]byte(s)); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of keys added so far.
func (b *Builder) Len() int {
	return len(b.keys)
}

// Build computes m, then tries seeds (derived deterministically from the
// base seed and attempt number) until one yields a peelable hypergraph, up
// to MaxRetries attempts. On success it derives the 2-bit assignment table
// and rank dictionary and returns the frozen MPHF.
func (b *Builder) Build() (*MPHF, error) {
	b.state = stateInit

	n := len(b.keys)
	if n == 0 {
		b.state = stateFailed
		return nil, ErrEmptyKeySet
	}
	if b.gamma < MinGamma || b.gamma > MaxGamma {
		b.state = stateFailed
		return nil, ErrInvalidGamma
	}
	if b.hasDuplicate() {
		b.state = stateFailed
		return nil, ErrDuplicateKey
	}

	m := computeM(uint64(n), b.gamma)

	base := b.baseSeed
	if !b.haveBaseSeed {
		base = rand64()
	}

	attempts := 0
	for ; attempts < b.maxRetries; attempts++ {
		if b.cancel != nil && b.cancel() {
			b.state = stateFailed
			return nil, &BuildFailedError{Attempts: attempts}
		}

		seed := deriveSeed(base, attempts)
		h := newKeyedHasher(seed, m)

		b.state = stateHashing
		edges, ok := buildEdges(h, b.keys)
		if !ok {
			debugf("bdzmph: attempt %d: degenerate edge, retrying", attempts)
			continue
		}

		b.state = statePeeling
		order, ok := peelHypergraph(edges, m)
		if !ok {
			debugf("bdzmph: attempt %d: not peelable, retrying", attempts)
			continue
		}

		b.state = stateAssigning
		g := buildAssignment(order, edges, m)

		b.state = stateRankBuilding
		rd := buildRankDict(g)

		b.state = stateReady
		return &MPHF{
			n:     uint64(n),
			m:     m,
			gamma: float32(b.gamma),
			seed:  seed,
			g:     g,
			rank:  rd,
		}, nil
	}

	b.state = stateFailed
	return nil, &BuildFailedError{Attempts: attempts}
}

// hasDuplicate opportunistically scans for duplicate keys before hashing.
// This is a pre-build convenience, not a guarantee: callers remain
// responsible for deduplicating their own input.
func (b *Builder) hasDuplicate() bool {
	seen := make(map[string]struct{}, len(b.keys))
	for _, k := range b.keys {
		s := string(k)
		if _, ok := seen[s]; ok {
			return true
		}
		seen[s] = struct{}{}
	}
	return false
}

// computeM rounds gamma*n up to the nearest multiple of 3, so the three
// hash bands are exactly equal sized. With two or more keys m is at least
// 6: one vertex per band would give every key the same edge, which never
// peels.
func computeM(n uint64, gamma float64) uint64 {
	m := uint64(math.Ceil(gamma * float64(n)))
	if m < n {
		m = n
	}
	if rem := m % 3; rem != 0 {
		m += 3 - rem
	}
	if n > 1 && m < 6 {
		m = 6
	}
	if m == 0 {
		m = 3
	}
	return m
}

// deriveSeed deterministically derives the per-attempt seed from a base
// seed and attempt number, so reproducible builds only need to fix the base
// seed (see BaseSeed).
func deriveSeed(base uint64, attempt int) uint64 {
	return mix(base ^ (uint64(attempt)*0x9E3779B97F4A7C15 + 1))
}
