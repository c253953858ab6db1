package common

import (
	"bytes"
	"testing"
)

func TestSerializers_Uint64IsLittleEndian(t *testing.T) {
	serializer := Uint64Serializer{}
	data := serializer.ToBytes(0x0102030405060708)
	want := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	if !bytes.Equal(data, want) {
		t.Fatalf("invalid encoding, got %x, want %x", data, want)
	}
	if got := serializer.FromBytes(data); got != 0x0102030405060708 {
		t.Errorf("invalid round trip, got %x", got)
	}
}

func TestSerializers_KeyRoundTrip(t *testing.T) {
	serializer := KeySerializer{}
	key := Key{1, 2, 3}
	if got := serializer.FromBytes(serializer.ToBytes(key)); got != key {
		t.Errorf("invalid round trip, got %v, want %v", got, key)
	}
	if got, want := len(serializer.ToBytes(key)), serializer.Size(); got != want {
		t.Errorf("invalid encoding size, got %d, want %d", got, want)
	}
}

func TestKeyComparator_OrdersKeysAsBigEndianIntegers(t *testing.T) {
	comparator := KeyComparator{}
	low := Key{0, 1}
	high := Key{1, 0}
	if comparator.Compare(&low, &high) >= 0 {
		t.Errorf("keys are not ordered lexicographically")
	}
	if comparator.Compare(&high, &low) <= 0 {
		t.Errorf("comparator is not antisymmetric")
	}
	if comparator.Compare(&low, &low) != 0 {
		t.Errorf("comparator is not reflexive")
	}
	max := MaxKey()
	if comparator.Compare(&high, &max) >= 0 {
		t.Errorf("the maximum key is not the largest")
	}
}
