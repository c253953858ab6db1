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

	"github.com/Fantom-foundation/Violetta/go/common"
)

// Commitment is the externally visible state of the tree and the only
// state persisted between batches: the Merkle root, the smallest slot
// index never yet allocated, and the free-slot stack commitment. It is a
// plain value owned by the caller; VerifyAndApplyBatch mutates it in
// place exactly once per successfully verified batch.
type Commitment struct {
	Root         common.Hash
	NextFreeSlot uint64
	FreeSlots    FreeSlotStack
}

// commitmentSize is the length of the canonical commitment encoding:
// root ‖ nextFreeSlot ‖ stack state ‖ stack size, with little-endian
// 8-byte integers.
const commitmentSize = 32 + 8 + 32 + 8

// ToBytes returns the canonical 80-byte encoding of the commitment.
func (c *Commitment) ToBytes() []byte {
	res := make([]byte, 0, commitmentSize)
	res = append(res, c.Root[:]...)
	res = append(res, common.Uint64Serializer{}.ToBytes(c.NextFreeSlot)...)
	res = append(res, c.FreeSlots.State[:]...)
	res = append(res, common.Uint64Serializer{}.ToBytes(c.FreeSlots.Size)...)
	return res
}

// SetBytes restores a commitment from its canonical encoding.
func (c *Commitment) SetBytes(data []byte) error {
	if len(data) != commitmentSize {
		return fmt.Errorf("invalid commitment encoding: got %d bytes, want %d", len(data), commitmentSize)
	}
	copy(c.Root[:], data[0:32])
	c.NextFreeSlot = common.Uint64Serializer{}.FromBytes(data[32:40])
	copy(c.FreeSlots.State[:], data[40:72])
	c.FreeSlots.Size = common.Uint64Serializer{}.FromBytes(data[72:80])
	return nil
}

func (c *Commitment) String() string {
	return fmt.Sprintf("commitment{root: %v, nextFreeSlot: %d, freeSlots: %d}",
		c.Root, c.NextFreeSlot, c.FreeSlots.Size)
}
