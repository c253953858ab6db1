// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"testing"

	"github.com/Fantom-foundation/Violetta/go/common"
	"github.com/Fantom-foundation/Violetta/go/database/flat"
	"github.com/holiman/uint256"
)

func testKey(i uint64) common.Key {
	return common.Key(uint256.NewInt(i).Bytes32())
}

func testValue(i uint64) common.Value {
	return common.Value(uint256.NewInt(i).Bytes32())
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("cannot open store: %v", err)
	}
	return store
}

func TestStore_LeafRoundTrip(t *testing.T) {
	store := openStore(t, t.TempDir())
	defer store.Close()

	leaf, err := store.GetLeaf(5)
	if err != nil {
		t.Fatalf("cannot get leaf: %v", err)
	}
	if !leaf.IsEmpty() {
		t.Errorf("unknown slot yields non-empty leaf %v", leaf)
	}

	want := flat.Leaf{Key: testKey(1), Value: testValue(2), NextKey: testKey(3)}
	if err := store.SetLeaf(5, want); err != nil {
		t.Fatalf("cannot set leaf: %v", err)
	}
	if got, err := store.GetLeaf(5); err != nil || got != want {
		t.Errorf("invalid leaf, got %v, want %v, err %v", got, want, err)
	}
}

func TestStore_NodeHashRoundTrip(t *testing.T) {
	store := openStore(t, t.TempDir())
	defer store.Close()

	if _, found, err := store.GetNodeHash(7, 3); err != nil || found {
		t.Errorf("unknown node reported present, found %t, err %v", found, err)
	}
	want := common.Hash{1, 2, 3}
	if err := store.SetNodeHash(7, 3, want); err != nil {
		t.Fatalf("cannot set node hash: %v", err)
	}
	if got, found, err := store.GetNodeHash(7, 3); err != nil || !found || got != want {
		t.Errorf("invalid node hash, got %v (%t), want %v, err %v", got, found, want, err)
	}
	if _, found, _ := store.GetNodeHash(8, 3); found {
		t.Errorf("node hash leaks into other levels")
	}
}

func TestStore_NeighborQueriesAreStrict(t *testing.T) {
	store := openStore(t, t.TempDir())
	defer store.Close()

	for _, seed := range []uint64{2, 4, 6} {
		if err := store.SetSlotForKey(testKey(seed), seed); err != nil {
			t.Fatalf("cannot set key: %v", err)
		}
	}

	if _, found, _ := store.PredecessorSlotForKey(testKey(2)); found {
		t.Errorf("smallest key reports a predecessor")
	}
	if slot, found, _ := store.PredecessorSlotForKey(testKey(4)); !found || slot != 2 {
		t.Errorf("predecessor query is not strict, got %d (%t), want 2", slot, found)
	}
	if slot, found, _ := store.SuccessorSlotForKey(testKey(4)); !found || slot != 6 {
		t.Errorf("successor query is not strict, got %d (%t), want 6", slot, found)
	}
	if _, found, _ := store.SuccessorSlotForKey(testKey(6)); found {
		t.Errorf("largest key reports a successor")
	}

	if err := store.DeleteSlotForKey(testKey(4)); err != nil {
		t.Fatalf("cannot delete key: %v", err)
	}
	if slot, found, _ := store.PredecessorSlotForKey(testKey(6)); !found || slot != 2 {
		t.Errorf("deleted key still answers predecessor queries, got %d (%t)", slot, found)
	}
}

func TestStore_MetadataRoundTrip(t *testing.T) {
	store := openStore(t, t.TempDir())
	defer store.Close()

	if _, found, err := store.GetMetadata(); err != nil || found {
		t.Fatalf("fresh store reports metadata, found %t, err %v", found, err)
	}
	want := flat.TreeMetadata{NextFreeSlot: 9, FreeSlots: []uint64{5, 3}}
	if err := store.SetMetadata(want); err != nil {
		t.Fatalf("cannot set metadata: %v", err)
	}
	got, found, err := store.GetMetadata()
	if err != nil || !found {
		t.Fatalf("cannot get metadata, found %t, err %v", found, err)
	}
	if got.NextFreeSlot != want.NextFreeSlot || len(got.FreeSlots) != 2 ||
		got.FreeSlots[0] != 5 || got.FreeSlots[1] != 3 {
		t.Errorf("invalid metadata, got %v, want %v", got, want)
	}
}

func TestStore_TreeMatchesInMemoryTree(t *testing.T) {
	persistent, err := flat.NewTree(openStore(t, t.TempDir()))
	if err != nil {
		t.Fatalf("cannot create tree: %v", err)
	}
	defer persistent.Close()
	volatile, err := flat.NewMemoryTree()
	if err != nil {
		t.Fatalf("cannot create tree: %v", err)
	}

	batches := [][]flat.SlotUpdate{
		{
			{Key: testKey(1), CurrentValue: testValue(10), IsNewSlot: true},
			{Key: testKey(2), CurrentValue: testValue(20), IsNewSlot: true},
			{Key: testKey(3), CurrentValue: testValue(30), IsNewSlot: true},
		},
		{
			{Key: testKey(2), InitialValue: testValue(20)},
			{Key: testKey(1), InitialValue: testValue(10), CurrentValue: testValue(11)},
		},
		{
			{Key: testKey(4), CurrentValue: testValue(40), IsNewSlot: true},
		},
	}
	for i, batch := range batches {
		if err := persistent.ApplyBatch(batch); err != nil {
			t.Fatalf("cannot apply batch %d: %v", i, err)
		}
		if err := volatile.ApplyBatch(batch); err != nil {
			t.Fatalf("cannot apply batch %d: %v", i, err)
		}
		persistentCommitment, err := persistent.Commitment()
		if err != nil {
			t.Fatalf("cannot get commitment: %v", err)
		}
		volatileCommitment, err := volatile.Commitment()
		if err != nil {
			t.Fatalf("cannot get commitment: %v", err)
		}
		if persistentCommitment != volatileCommitment {
			t.Fatalf("stores diverged after batch %d, got %v, want %v",
				i, &persistentCommitment, &volatileCommitment)
		}
	}
}

func TestStore_TreeSurvivesReopening(t *testing.T) {
	dir := t.TempDir()
	tree, err := flat.NewTree(openStore(t, dir))
	if err != nil {
		t.Fatalf("cannot create tree: %v", err)
	}
	if err := tree.ApplyBatch([]flat.SlotUpdate{
		{Key: testKey(1), CurrentValue: testValue(10), IsNewSlot: true},
		{Key: testKey(2), CurrentValue: testValue(20), IsNewSlot: true},
	}); err != nil {
		t.Fatalf("cannot apply batch: %v", err)
	}
	if err := tree.ApplyBatch([]flat.SlotUpdate{
		{Key: testKey(1), InitialValue: testValue(10)},
	}); err != nil {
		t.Fatalf("cannot apply batch: %v", err)
	}
	before, err := tree.Commitment()
	if err != nil {
		t.Fatalf("cannot get commitment: %v", err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("cannot close tree: %v", err)
	}

	reopened, err := flat.NewTree(openStore(t, dir))
	if err != nil {
		t.Fatalf("cannot reopen tree: %v", err)
	}
	defer reopened.Close()
	after, err := reopened.Commitment()
	if err != nil {
		t.Fatalf("cannot get commitment: %v", err)
	}
	if before != after {
		t.Errorf("commitment changed by reopening, got %v, want %v", &after, &before)
	}
	if value, found, _ := reopened.GetValue(testKey(2)); !found || value != testValue(20) {
		t.Errorf("value lost by reopening, got %v (%t)", value, found)
	}

	// The reopened tree can still serve as an oracle for verification.
	commitment := after
	if err := commitment.VerifyAndApplyBatch(reopened, []flat.SlotUpdate{
		{Key: testKey(2), InitialValue: testValue(20), CurrentValue: testValue(21)},
	}); err != nil {
		t.Errorf("cannot verify batch against reopened tree: %v", err)
	}
}
