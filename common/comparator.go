package common

import "bytes"

// Comparator is an interface for comparing two items of the same type,
// imposing a total ordering on them.
type Comparator[T any] interface {
	// Compare returns a negative number if a < b, zero if a == b,
	// and a positive number if a > b.
	Compare(a, b *T) int
}

// KeyComparator orders keys by their big-endian byte representation.
type KeyComparator struct{}

func (c KeyComparator) Compare(a, b *Key) int {
	return bytes.Compare(a[:], b[:])
}

