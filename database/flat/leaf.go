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
	"github.com/Fantom-foundation/Violetta/go/common"
)

// TreeDepth is the number of levels between a leaf and the root of the
// tree, fixing its capacity at 2^TreeDepth slots.
const TreeDepth = 64

// Slot indices of the two permanent sentinel leaves anchoring the sorted
// key list. The sentinels are created when a tree is initialized and are
// never deleted or relocated.
const (
	lowSentinelSlot  = 0
	highSentinelSlot = 1
	firstRegularSlot = 2
)

// Leaf is one slot of the tree: a storage key, its value, and the key of
// the lexicographically next occupied leaf. A deleted or never-used slot
// is represented by the all-zero leaf.
type Leaf struct {
	Key     common.Key
	Value   common.Value
	NextKey common.Key
}

// IsEmpty returns true if the leaf is the all-zero record, marking a
// deleted or never-used slot.
func (l *Leaf) IsEmpty() bool {
	return *l == Leaf{}
}

// LeafSerializer is a common.Serializer of the Leaf type, encoding the
// three fields in their hashing order.
type LeafSerializer struct{}

func (s LeafSerializer) ToBytes(leaf Leaf) []byte {
	res := make([]byte, 0, s.Size())
	res = append(res, common.KeySerializer{}.ToBytes(leaf.Key)...)
	res = append(res, common.ValueSerializer{}.ToBytes(leaf.Value)...)
	res = append(res, common.KeySerializer{}.ToBytes(leaf.NextKey)...)
	return res
}

func (s LeafSerializer) FromBytes(data []byte) Leaf {
	return Leaf{
		Key:     common.KeySerializer{}.FromBytes(data[0:32]),
		Value:   common.ValueSerializer{}.FromBytes(data[32:64]),
		NextKey: common.KeySerializer{}.FromBytes(data[64:96]),
	}
}

func (s LeafSerializer) Size() int {
	return 96
}
