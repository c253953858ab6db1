package common

import (
	"encoding/hex"
)

// Hash is a 32-byte cryptographic digest.
type Hash [32]byte

// Address is a 20-byte account address.
type Address [20]byte

// Key is a 32-byte storage key. Keys are totally ordered by the
// lexicographic order of their bytes, i.e. as big-endian integers.
type Key [32]byte

// Value is a 32-byte storage value.
type Value [32]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (k Key) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

func (v Value) String() string {
	return "0x" + hex.EncodeToString(v[:])
}

// MaxKey returns the largest representable key, 2^256-1.
func MaxKey() Key {
	var k Key
	for i := range k {
		k[i] = 0xff
	}
	return k
}
