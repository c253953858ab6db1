// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package flat

import (
	"testing"
)

func TestMemoryStore_UnknownSlotsYieldEmptyLeaf(t *testing.T) {
	store := NewMemoryStore()
	leaf, err := store.GetLeaf(12)
	if err != nil {
		t.Fatalf("cannot get leaf: %v", err)
	}
	if !leaf.IsEmpty() {
		t.Errorf("unknown slot yields non-empty leaf %v", leaf)
	}
}

func TestMemoryStore_UnknownNodesAreAbsent(t *testing.T) {
	store := NewMemoryStore()
	if _, found, err := store.GetNodeHash(3, 5); err != nil || found {
		t.Errorf("unknown node reported present, found %t, err %v", found, err)
	}
	hash := emptyHashes[3]
	if err := store.SetNodeHash(3, 5, hash); err != nil {
		t.Fatalf("cannot set node hash: %v", err)
	}
	if got, found, _ := store.GetNodeHash(3, 5); !found || got != hash {
		t.Errorf("stored node hash not retrieved, got %v, want %v", got, hash)
	}
}

func TestMemoryStore_NeighborQueriesAreStrict(t *testing.T) {
	store := NewMemoryStore()
	for _, seed := range []uint64{2, 4, 6} {
		if err := store.SetSlotForKey(testKey(seed), seed); err != nil {
			t.Fatalf("cannot set key: %v", err)
		}
	}

	if _, found, _ := store.PredecessorSlotForKey(testKey(2)); found {
		t.Errorf("smallest key reports a predecessor")
	}
	if slot, found, _ := store.PredecessorSlotForKey(testKey(3)); !found || slot != 2 {
		t.Errorf("invalid predecessor, got %d (%t), want 2", slot, found)
	}
	if slot, found, _ := store.PredecessorSlotForKey(testKey(4)); !found || slot != 2 {
		t.Errorf("predecessor query is not strict, got %d (%t), want 2", slot, found)
	}

	if _, found, _ := store.SuccessorSlotForKey(testKey(6)); found {
		t.Errorf("largest key reports a successor")
	}
	if slot, found, _ := store.SuccessorSlotForKey(testKey(4)); !found || slot != 6 {
		t.Errorf("successor query is not strict, got %d (%t), want 6", slot, found)
	}
	if slot, found, _ := store.SuccessorSlotForKey(testKey(5)); !found || slot != 6 {
		t.Errorf("invalid successor, got %d (%t), want 6", slot, found)
	}
}

func TestMemoryStore_DeletedKeysAreRemovedFromNeighborQueries(t *testing.T) {
	store := NewMemoryStore()
	for _, seed := range []uint64{2, 4, 6} {
		if err := store.SetSlotForKey(testKey(seed), seed); err != nil {
			t.Fatalf("cannot set key: %v", err)
		}
	}
	if err := store.DeleteSlotForKey(testKey(4)); err != nil {
		t.Fatalf("cannot delete key: %v", err)
	}
	if slot, found, _ := store.PredecessorSlotForKey(testKey(6)); !found || slot != 2 {
		t.Errorf("deleted key still answers predecessor queries, got %d (%t)", slot, found)
	}
	if slot, found, _ := store.SuccessorSlotForKey(testKey(2)); !found || slot != 6 {
		t.Errorf("deleted key still answers successor queries, got %d (%t)", slot, found)
	}
}

func TestMemoryStore_MetadataRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	if _, found, err := store.GetMetadata(); err != nil || found {
		t.Fatalf("fresh store reports metadata, found %t, err %v", found, err)
	}
	metadata := TreeMetadata{NextFreeSlot: 9, FreeSlots: []uint64{5, 3}}
	if err := store.SetMetadata(metadata); err != nil {
		t.Fatalf("cannot set metadata: %v", err)
	}
	restored, found, err := store.GetMetadata()
	if err != nil || !found {
		t.Fatalf("cannot get metadata, found %t, err %v", found, err)
	}
	if restored.NextFreeSlot != metadata.NextFreeSlot || len(restored.FreeSlots) != 2 ||
		restored.FreeSlots[0] != 5 || restored.FreeSlots[1] != 3 {
		t.Errorf("restored metadata differs, got %v, want %v", restored, metadata)
	}
}
