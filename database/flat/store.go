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
	"sync"
	"unsafe"

	"github.com/Fantom-foundation/Violetta/go/common"
	"golang.org/x/exp/slices"
)

// keyComparator fixes the order of the key index.
var keyComparator common.KeyComparator

func compareKeys(a, b common.Key) int {
	return keyComparator.Compare(&a, &b)
}

// TreeMetadata is the bookkeeping state a tree keeps next to its nodes: the
// position of the next never-used slot and the content of the free-slot
// stack, bottom first.
type TreeMetadata struct {
	NextFreeSlot uint64
	FreeSlots    []uint64
}

// TreeStore is the persistence interface of a Tree. It stores leaves and
// interior node hashes by position, maintains a key to slot index usable
// for predecessor queries, and retains the tree metadata. Node hashes of
// fully empty subtrees may be absent; readers fall back to the canonical
// empty hashes. Implementations are not required to be thread-safe; the
// Tree serializes its accesses.
type TreeStore interface {
	// GetLeaf retrieves the leaf in the given slot; slots never written
	// yield the zero leaf.
	GetLeaf(slot uint64) (Leaf, error)
	SetLeaf(slot uint64, leaf Leaf) error

	// GetNodeHash retrieves the hash of the node at the given level and
	// index, level 0 being the leaf hashes and level TreeDepth the root.
	// The second return value reports whether the hash is present.
	GetNodeHash(level int, index uint64) (common.Hash, bool, error)
	SetNodeHash(level int, index uint64, hash common.Hash) error

	// SlotForKey resolves the slot holding the leaf with the given key.
	SlotForKey(key common.Key) (uint64, bool, error)
	SetSlotForKey(key common.Key, slot uint64) error
	DeleteSlotForKey(key common.Key) error

	// PredecessorSlotForKey resolves the slot of the leaf with the
	// largest key strictly smaller than the given key.
	PredecessorSlotForKey(key common.Key) (uint64, bool, error)

	// SuccessorSlotForKey resolves the slot of the leaf with the
	// smallest key strictly greater than the given key.
	SuccessorSlotForKey(key common.Key) (uint64, bool, error)

	GetMetadata() (TreeMetadata, bool, error)
	SetMetadata(metadata TreeMetadata) error

	// Flush writes all cached state to the underlying storage.
	Flush() error
	// Close flushes and releases the underlying storage.
	Close() error

	common.MemoryFootprintProvider
}

// memoryStore is an in-memory TreeStore keeping everything in maps and a
// sorted key list. It is the backing of choice for tests and for proving
// over bounded state.
type memoryStore struct {
	leaves     map[uint64]Leaf
	hashes     map[nodeId]common.Hash
	slots      map[common.Key]uint64
	sortedKeys []common.Key
	metadata   TreeMetadata
	hasMeta    bool
	mu         sync.Mutex
}

type nodeId struct {
	level int
	index uint64
}

// NewMemoryStore creates an empty in-memory TreeStore.
func NewMemoryStore() TreeStore {
	return &memoryStore{
		leaves: map[uint64]Leaf{},
		hashes: map[nodeId]common.Hash{},
		slots:  map[common.Key]uint64{},
	}
}

func (s *memoryStore) GetLeaf(slot uint64) (Leaf, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaves[slot], nil
}

func (s *memoryStore) SetLeaf(slot uint64, leaf Leaf) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves[slot] = leaf
	return nil
}

func (s *memoryStore) GetNodeHash(level int, index uint64) (common.Hash, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, found := s.hashes[nodeId{level, index}]
	return hash, found, nil
}

func (s *memoryStore) SetNodeHash(level int, index uint64, hash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[nodeId{level, index}] = hash
	return nil
}

func (s *memoryStore) SlotForKey(key common.Key) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, found := s.slots[key]
	return slot, found, nil
}

func (s *memoryStore) SetSlotForKey(key common.Key, slot uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.slots[key]; !found {
		pos, _ := slices.BinarySearchFunc(s.sortedKeys, key, compareKeys)
		s.sortedKeys = slices.Insert(s.sortedKeys, pos, key)
	}
	s.slots[key] = slot
	return nil
}

func (s *memoryStore) DeleteSlotForKey(key common.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.slots[key]; found {
		delete(s.slots, key)
		pos, _ := slices.BinarySearchFunc(s.sortedKeys, key, compareKeys)
		s.sortedKeys = slices.Delete(s.sortedKeys, pos, pos+1)
	}
	return nil
}

func (s *memoryStore) PredecessorSlotForKey(key common.Key) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, _ := slices.BinarySearchFunc(s.sortedKeys, key, compareKeys)
	if pos == 0 {
		return 0, false, nil
	}
	return s.slots[s.sortedKeys[pos-1]], true, nil
}

func (s *memoryStore) SuccessorSlotForKey(key common.Key) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, found := slices.BinarySearchFunc(s.sortedKeys, key, compareKeys)
	if found {
		pos++
	}
	if pos >= len(s.sortedKeys) {
		return 0, false, nil
	}
	return s.slots[s.sortedKeys[pos]], true, nil
}

func (s *memoryStore) GetMetadata() (TreeMetadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata, s.hasMeta, nil
}

func (s *memoryStore) SetMetadata(metadata TreeMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = metadata
	s.hasMeta = true
	return nil
}

func (s *memoryStore) Flush() error {
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

func (s *memoryStore) GetMemoryFootprint() *common.MemoryFootprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("leaves", common.NewMemoryFootprint(uintptr(len(s.leaves))*(unsafe.Sizeof(uint64(0))+unsafe.Sizeof(Leaf{}))))
	mf.AddChild("hashes", common.NewMemoryFootprint(uintptr(len(s.hashes))*(unsafe.Sizeof(nodeId{})+unsafe.Sizeof(common.Hash{}))))
	mf.AddChild("slots", common.NewMemoryFootprint(uintptr(len(s.slots))*(unsafe.Sizeof(common.Key{})+unsafe.Sizeof(uint64(0)))))
	mf.AddChild("sortedKeys", common.NewMemoryFootprint(uintptr(len(s.sortedKeys))*unsafe.Sizeof(common.Key{})))
	return mf
}
