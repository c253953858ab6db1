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
	"fmt"

	"golang.org/x/crypto/blake2s"

	"github.com/Fantom-foundation/Violetta/go/common"
)

// FreeSlotStack is the committed form of the stack of tree slots freed by
// deletions and available for reuse. Only the chain state and the element
// count are carried; the stack contents are reconstructed on demand from
// oracle-supplied preimages. Pushing a slot advances the chain as
// state' = H(state ‖ slot), so arbitrarily many freed slots can be tracked
// across blocks without growing the committed state.
type FreeSlotStack struct {
	State common.Hash
	Size  uint64
}

// IsEmpty returns true if the stack commits to no slots.
func (s *FreeSlotStack) IsEmpty() bool {
	return s.Size == 0
}

// Push adds a slot to the stack, advancing the chain state.
func (s *FreeSlotStack) Push(slot uint64) {
	s.State = chainFreeSlot(s.State, slot)
	s.Size++
}

// Pop removes the most recently pushed slot, using the oracle to obtain
// the (previous state, slot) preimage of the current chain state. The
// preimage is verified by re-hashing; a mismatch is a fatal witness fault.
func (s *FreeSlotStack) Pop(oracle Oracle) (uint64, error) {
	if s.Size == 0 {
		return 0, fmt.Errorf("%w: pop from empty free-slot stack", ErrInvalidWitness)
	}
	previous, slot, err := oracle.FreeSlotsPreimage(s.State, s.Size)
	if err != nil {
		return 0, err
	}
	if chainFreeSlot(previous, slot) != s.State {
		return 0, fmt.Errorf("%w: state %v does not extend %v with slot %d",
			ErrStackProofMismatch, s.State, previous, slot)
	}
	s.State = previous
	s.Size--
	return slot, nil
}

// chainFreeSlot computes H(state ‖ slot) with the slot index encoded as
// 8 little-endian bytes.
func chainFreeSlot(state common.Hash, slot uint64) common.Hash {
	hasher, _ := blake2s.New256(nil)
	hasher.Write(state[:])
	hasher.Write(common.Uint64Serializer{}.ToBytes(slot))
	var res common.Hash
	hasher.Sum(res[0:0])
	return res
}
