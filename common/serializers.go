package common

import "encoding/binary"

// Serializer converts a value of a fixed-size type to its canonical byte
// representation and back.
type Serializer[T any] interface {
	// ToBytes returns the serialized form of the value.
	ToBytes(T) []byte
	// FromBytes reconstructs a value from its serialized form.
	FromBytes([]byte) T
	// Size returns the length of the serialized form in bytes.
	Size() int
}

// KeySerializer is a Serializer of the Key type
type KeySerializer struct{}

func (a KeySerializer) ToBytes(key Key) []byte {
	return key[:]
}
func (a KeySerializer) FromBytes(bytes []byte) Key {
	var key Key
	copy(key[:], bytes)
	return key
}
func (a KeySerializer) Size() int {
	return 32
}

// ValueSerializer is a Serializer of the Value type
type ValueSerializer struct{}

func (a ValueSerializer) ToBytes(value Value) []byte {
	return value[:]
}
func (a ValueSerializer) FromBytes(bytes []byte) Value {
	var value Value
	copy(value[:], bytes)
	return value
}
func (a ValueSerializer) Size() int {
	return 32
}

// HashSerializer is a Serializer of the Hash type
type HashSerializer struct{}

func (a HashSerializer) ToBytes(hash Hash) []byte {
	return hash[:]
}
func (a HashSerializer) FromBytes(bytes []byte) Hash {
	var hash Hash
	copy(hash[:], bytes)
	return hash
}
func (a HashSerializer) Size() int {
	return 32
}

// Uint64Serializer is a Serializer of the uint64 type, using the
// little-endian encoding.
type Uint64Serializer struct{}

func (a Uint64Serializer) ToBytes(value uint64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{}, value)
}
func (a Uint64Serializer) FromBytes(bytes []byte) uint64 {
	return binary.LittleEndian.Uint64(bytes)
}
func (a Uint64Serializer) Size() int {
	return 8
}
