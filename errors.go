// errors.go - public errors exposed by bdzmph
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
	"errors"
	"fmt"
)

func errShortWrite(who string, n int) error {
	return fmt.Errorf("%s: incomplete write; wrote %d bytes", who, n)
}

var (
	// ErrEmptyKeySet is returned when Builder.Build is called with zero keys.
	ErrEmptyKeySet = errors.New("bdzmph: empty key set")

	// ErrInvalidGamma is returned when gamma falls outside [1.23, 2.0].
	ErrInvalidGamma = errors.New("bdzmph: gamma out of range [1.23, 2.0]")

	// ErrDuplicateKey is returned when the input key set contains a
	// duplicate. Detection is opportunistic (a pre-build set scan); callers
	// remain responsible for deduplicating their input.
	ErrDuplicateKey = errors.New("bdzmph: duplicate key in input set")

	// ErrFrozen is returned when attempting to add new records to an
	// already frozen DB, or to freeze a DB that's already frozen.
	ErrFrozen = errors.New("bdzmph: DB already frozen")

	// ErrValueTooLarge is returned if the value-length is larger than 2^32-1 bytes
	ErrValueTooLarge = errors.New("bdzmph: value is larger than 2^32-1 bytes")

	// ErrExists is returned if a duplicate key is added to the DB
	ErrExists = errors.New("bdzmph: key exists in DB")

	// ErrNoKey is returned when a key cannot be found in the DB
	ErrNoKey = errors.New("bdzmph: no such key")

	// ErrTooSmall is returned when there isn't enough data to unmarshal.
	ErrTooSmall = errors.New("bdzmph: not enough data to unmarshal")

	// ErrBadMagic is returned when a serialized MPHF's magic bytes don't match.
	ErrBadMagic = errors.New("bdzmph: bad magic in serialized MPHF")

	// ErrBadVersion is returned when a serialized MPHF's format version is unsupported.
	ErrBadVersion = errors.New("bdzmph: unsupported format version")

	// ErrChecksum is returned when a serialized MPHF fails its CRC-64 check.
	ErrChecksum = errors.New("bdzmph: checksum mismatch in serialized MPHF")
)

// BuildFailedError is a terminal build error: the peeler could not find a
// peelable hypergraph within the allotted number of seed attempts. Callers
// may retry with a larger gamma or a larger max-retries budget.
type BuildFailedError struct {
	Attempts int
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("bdzmph: failed to build MPH after %d attempts", e.Attempts)
}

// CorruptSerializationError wraps a specific reason a serialized MPHF could
// not be reconstructed: bad magic, bad version, truncated tables, or a
// failing CRC-64.
type CorruptSerializationError struct {
	Reason string
	Err    error
}

func (e *CorruptSerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bdzmph: corrupt serialization: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("bdzmph: corrupt serialization: %s", e.Reason)
}

func (e *CorruptSerializationError) Unwrap() error {
	return e.Err
}
