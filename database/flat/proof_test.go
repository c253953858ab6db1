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

func TestLeafProof_TamperedProofDoesNotVerify(t *testing.T) {
	tree, err := NewMemoryTree()
	if err != nil {
		t.Fatalf("cannot create tree: %v", err)
	}
	if err := tree.ApplyBatch([]SlotUpdate{
		{Key: testKey(1), CurrentValue: testValue(1), IsNewSlot: true},
	}); err != nil {
		t.Fatalf("cannot apply batch: %v", err)
	}
	root, err := tree.Root()
	if err != nil {
		t.Fatalf("cannot get root: %v", err)
	}
	proof, err := tree.ProofForSlot(firstRegularSlot)
	if err != nil {
		t.Fatalf("cannot get proof: %v", err)
	}
	if !proof.VerifiesAgainst(root) {
		t.Fatalf("unmodified proof does not verify")
	}

	tampered := proof
	tampered.Leaf.Value = testValue(2)
	if tampered.VerifiesAgainst(root) {
		t.Errorf("proof with modified leaf verifies")
	}
	tampered = proof
	tampered.Path[17][0] ^= 1
	if tampered.VerifiesAgainst(root) {
		t.Errorf("proof with modified path verifies")
	}
	tampered = proof
	tampered.Index++
	if tampered.VerifiesAgainst(root) {
		t.Errorf("proof with modified index verifies")
	}
}

func TestLeafProof_SerializerRoundTrip(t *testing.T) {
	tree, err := NewMemoryTree()
	if err != nil {
		t.Fatalf("cannot create tree: %v", err)
	}
	if err := tree.ApplyBatch([]SlotUpdate{
		{Key: testKey(1), CurrentValue: testValue(1), IsNewSlot: true},
	}); err != nil {
		t.Fatalf("cannot apply batch: %v", err)
	}
	proof, err := tree.ProofForSlot(firstRegularSlot)
	if err != nil {
		t.Fatalf("cannot get proof: %v", err)
	}

	serializer := LeafProofSerializer{}
	data := serializer.ToBytes(proof)
	if got, want := len(data), serializer.Size(); got != want {
		t.Fatalf("invalid encoding length, got %d, want %d", got, want)
	}
	if restored := serializer.FromBytes(data); restored != proof {
		t.Errorf("restored proof differs, got %v, want %v", &restored, &proof)
	}
}
