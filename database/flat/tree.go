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
	"bytes"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/Fantom-foundation/Violetta/go/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Tree is the materialized form of the commitment: it holds every leaf,
// every interior node hash, and the full content of the free-slot stack,
// and can therefore answer any Oracle query. A Tree backs the trusted
// side of the system, serving witness data to untrusted verifiers and
// applying the same batches natively to stay in sync with them.
//
// All operations are safe for concurrent use.
type Tree struct {
	store  TreeStore
	hasher TreeHasher

	nextFreeSlot uint64
	freeSlots    []uint64      // bottom of the stack first
	stackStates  []common.Hash // chain state after the first i pushes

	mu sync.Mutex
}

// NewTree opens a tree on the given store, initializing the two sentinel
// leaves and the metadata if the store is empty.
func NewTree(store TreeStore) (*Tree, error) {
	tree := &Tree{
		store:  store,
		hasher: Blake2sHasher{},
	}
	metadata, found, err := store.GetMetadata()
	if err != nil {
		return nil, err
	}
	if !found {
		if err := tree.initialize(); err != nil {
			return nil, err
		}
		metadata, _, err = store.GetMetadata()
		if err != nil {
			return nil, err
		}
	}
	tree.nextFreeSlot = metadata.NextFreeSlot
	tree.freeSlots = metadata.FreeSlots
	tree.stackStates = chainStates(metadata.FreeSlots)
	return tree, nil
}

// NewMemoryTree creates an empty tree backed by an in-memory store.
func NewMemoryTree() (*Tree, error) {
	return NewTree(NewMemoryStore())
}

// NewTreeWithEntries creates a tree on the given store pre-populated with
// the given key/value pairs. Zero values are ignored.
func NewTreeWithEntries(store TreeStore, entries map[common.Key]common.Value) (*Tree, error) {
	tree, err := NewTree(store)
	if err != nil {
		return nil, err
	}
	keys := maps.Keys(entries)
	slices.SortFunc(keys, func(a, b common.Key) int {
		return bytes.Compare(a[:], b[:])
	})
	batch := make([]SlotUpdate, 0, len(keys))
	for _, key := range keys {
		if entries[key] == (common.Value{}) {
			continue
		}
		batch = append(batch, SlotUpdate{
			Key:          key,
			CurrentValue: entries[key],
			IsNewSlot:    true,
		})
	}
	if err := tree.ApplyBatch(batch); err != nil {
		return nil, err
	}
	return tree, nil
}

func (t *Tree) initialize() error {
	maxKey := common.MaxKey()
	low := Leaf{NextKey: maxKey}
	high := Leaf{Key: maxKey, NextKey: maxKey}
	if err := t.setLeaf(lowSentinelSlot, low); err != nil {
		return err
	}
	if err := t.setLeaf(highSentinelSlot, high); err != nil {
		return err
	}
	if err := t.store.SetSlotForKey(low.Key, lowSentinelSlot); err != nil {
		return err
	}
	if err := t.store.SetSlotForKey(high.Key, highSentinelSlot); err != nil {
		return err
	}
	return t.store.SetMetadata(TreeMetadata{NextFreeSlot: firstRegularSlot})
}

// Root returns the current Merkle root of the tree.
func (t *Tree) Root() (common.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodeHash(TreeDepth, 0)
}

// Commitment returns the commitment the tree currently materializes. A
// verifier seeded with this commitment accepts the tree as its oracle.
func (t *Tree) Commitment() (Commitment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	root, err := t.nodeHash(TreeDepth, 0)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{
		Root:         root,
		NextFreeSlot: t.nextFreeSlot,
		FreeSlots: FreeSlotStack{
			State: t.stackStates[len(t.freeSlots)],
			Size:  uint64(len(t.freeSlots)),
		},
	}, nil
}

// GetValue retrieves the value stored under the given key and whether the
// key is present at all.
func (t *Tree) GetValue(key common.Key) (common.Value, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, found, err := t.store.SlotForKey(key)
	if err != nil || !found {
		return common.Value{}, false, err
	}
	leaf, err := t.store.GetLeaf(slot)
	if err != nil {
		return common.Value{}, false, err
	}
	return leaf.Value, true, nil
}

// ProofForSlot produces the Merkle proof for the given slot against the
// current root. Slots beyond the allocated range prove the empty leaf.
func (t *Tree) ProofForSlot(slot uint64) (LeafProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.proofForSlot(slot)
}

func (t *Tree) proofForSlot(slot uint64) (LeafProof, error) {
	leaf, err := t.store.GetLeaf(slot)
	if err != nil {
		return LeafProof{}, err
	}
	proof := LeafProof{Index: slot, Leaf: leaf}
	index := slot
	for level := 0; level < TreeDepth; level++ {
		sibling, err := t.nodeHash(level, index^1)
		if err != nil {
			return LeafProof{}, err
		}
		proof.Path[level] = sibling
		index >>= 1
	}
	return proof, nil
}

// IndexForKey is part of the Oracle interface.
func (t *Tree) IndexForKey(key common.Key) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, found, err := t.store.SlotForKey(key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("key %v is not present", key)
	}
	return slot, nil
}

// PrevIndexForKey is part of the Oracle interface.
func (t *Tree) PrevIndexForKey(key common.Key) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot, found, err := t.store.PredecessorSlotForKey(key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("key %v has no predecessor", key)
	}
	return slot, nil
}

// ProofForIndex is part of the Oracle interface.
func (t *Tree) ProofForIndex(index uint64) (LeafProof, error) {
	return t.ProofForSlot(index)
}

// FreeSlotsPreimage is part of the Oracle interface.
func (t *Tree) FreeSlotsPreimage(state common.Hash, size uint64) (common.Hash, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if size == 0 || size > uint64(len(t.freeSlots)) {
		return common.Hash{}, 0, fmt.Errorf("no free-slot stack of size %d", size)
	}
	if t.stackStates[size] != state {
		return common.Hash{}, 0, fmt.Errorf("unknown free-slot stack state %v", state)
	}
	return t.stackStates[size-1], t.freeSlots[size-1], nil
}

// ApplyBatch applies a batch of slot transitions directly to the tree.
// Slots are allocated in the same order a verifier allocates them, so a
// commitment advanced by VerifyAndApplyBatch with this tree as its oracle
// and the tree itself advanced by ApplyBatch stay in lockstep.
func (t *Tree) ApplyBatch(batch []SlotUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// The batch is validated in full against the current state before
	// anything is mutated; a rejected batch leaves the tree untouched.
	seen := make(map[common.Key]struct{}, len(batch))
	numInserts, numFreed := uint64(0), uint64(0)
	for i := range batch {
		u := &batch[i]
		if _, dup := seen[u.Key]; dup {
			return fmt.Errorf("%w: key %v appears twice", ErrInvalidBatch, u.Key)
		}
		seen[u.Key] = struct{}{}
		if u.isRead() {
			continue
		}
		_, found, err := t.store.SlotForKey(u.Key)
		if err != nil {
			return err
		}
		if u.IsNewSlot {
			if found {
				return fmt.Errorf("%w: key %v is already present", ErrInvalidBatch, u.Key)
			}
			numInserts++
		} else {
			if !found {
				return fmt.Errorf("%w: key %v is not present", ErrInvalidBatch, u.Key)
			}
			if u.CurrentValue == (common.Value{}) {
				numFreed++
			}
		}
	}
	if reusable := numFreed + uint64(len(t.freeSlots)); numInserts > reusable {
		if numInserts-reusable > math.MaxUint64-t.nextFreeSlot {
			return fmt.Errorf("%w: no free slots left", ErrCapacityExhausted)
		}
	}

	dirty := map[uint64]Leaf{}
	affected := map[common.Key]struct{}{}
	var freedInBatch []uint64
	freeSlots := slices.Clone(t.freeSlots)
	nextFree := t.nextFreeSlot

	load := func(slot uint64) (Leaf, error) {
		if leaf, ok := dirty[slot]; ok {
			return leaf, nil
		}
		return t.store.GetLeaf(slot)
	}

	for i := range batch {
		u := &batch[i]
		if u.isRead() {
			continue
		}
		if u.IsNewSlot {
			continue // inserts run after all deletes freed their slots
		}
		slot, _, err := t.store.SlotForKey(u.Key)
		if err != nil {
			return err
		}
		leaf, err := load(slot)
		if err != nil {
			return err
		}
		if u.CurrentValue == (common.Value{}) {
			dirty[slot] = Leaf{}
			if err := t.store.DeleteSlotForKey(u.Key); err != nil {
				return err
			}
			pos, _ := slices.BinarySearch(freedInBatch, slot)
			freedInBatch = slices.Insert(freedInBatch, pos, slot)
		} else {
			leaf.Value = u.CurrentValue
			dirty[slot] = leaf
		}
	}

	for i := range batch {
		u := &batch[i]
		if u.isRead() || !u.IsNewSlot {
			continue
		}
		var slot uint64
		if len(freedInBatch) > 0 {
			slot = freedInBatch[len(freedInBatch)-1]
			freedInBatch = freedInBatch[:len(freedInBatch)-1]
		} else if len(freeSlots) > 0 {
			slot = freeSlots[len(freeSlots)-1]
			freeSlots = freeSlots[:len(freeSlots)-1]
		} else {
			slot = nextFree
			nextFree++
		}
		dirty[slot] = Leaf{Key: u.Key, Value: u.CurrentValue}
		if err := t.store.SetSlotForKey(u.Key, slot); err != nil {
			return err
		}
		affected[u.Key] = struct{}{}
	}

	// The next-key pointers of the neighborhood of every delete and
	// insert are recomputed from the updated key index.
	for i := range batch {
		u := &batch[i]
		if u.isRead() || (!u.IsNewSlot && u.CurrentValue != (common.Value{})) {
			continue
		}
		slot, found, err := t.store.PredecessorSlotForKey(u.Key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("key %v has no predecessor", u.Key)
		}
		leaf, err := load(slot)
		if err != nil {
			return err
		}
		affected[leaf.Key] = struct{}{}
	}
	for key := range affected {
		slot, found, err := t.store.SlotForKey(key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("relinked key %v vanished", key)
		}
		succSlot, found, err := t.store.SuccessorSlotForKey(key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("relinked key %v has no successor", key)
		}
		succ, err := load(succSlot)
		if err != nil {
			return err
		}
		leaf, err := load(slot)
		if err != nil {
			return err
		}
		leaf.NextKey = succ.Key
		dirty[slot] = leaf
	}

	slots := maps.Keys(dirty)
	slices.Sort(slots)
	for _, slot := range slots {
		if err := t.setLeaf(slot, dirty[slot]); err != nil {
			return err
		}
	}

	// Leftover freed slots go onto the stack, highest first.
	for i := len(freedInBatch) - 1; i >= 0; i-- {
		freeSlots = append(freeSlots, freedInBatch[i])
	}
	t.freeSlots = freeSlots
	t.stackStates = chainStates(freeSlots)
	t.nextFreeSlot = nextFree
	return t.store.SetMetadata(TreeMetadata{
		NextFreeSlot: nextFree,
		FreeSlots:    freeSlots,
	})
}

// Flush writes all pending state to the underlying store.
func (t *Tree) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Flush()
}

// Close flushes and releases the underlying store.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Close()
}

// GetMemoryFootprint provides the size of the tree in memory.
func (t *Tree) GetMemoryFootprint() *common.MemoryFootprint {
	t.mu.Lock()
	defer t.mu.Unlock()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*t))
	mf.AddChild("store", t.store.GetMemoryFootprint())
	mf.AddChild("freeSlots", common.NewMemoryFootprint(uintptr(len(t.freeSlots))*unsafe.Sizeof(uint64(0))))
	mf.AddChild("stackStates", common.NewMemoryFootprint(uintptr(len(t.stackStates))*unsafe.Sizeof(common.Hash{})))
	return mf
}

func (t *Tree) setLeaf(slot uint64, leaf Leaf) error {
	if err := t.store.SetLeaf(slot, leaf); err != nil {
		return err
	}
	hash := t.hasher.HashLeaf(&leaf)
	if err := t.store.SetNodeHash(0, slot, hash); err != nil {
		return err
	}
	index := slot
	for level := 0; level < TreeDepth; level++ {
		left, err := t.nodeHash(level, index&^1)
		if err != nil {
			return err
		}
		right, err := t.nodeHash(level, index|1)
		if err != nil {
			return err
		}
		index >>= 1
		if err := t.store.SetNodeHash(level+1, index, t.hasher.HashNode(left, right)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) nodeHash(level int, index uint64) (common.Hash, error) {
	hash, found, err := t.store.GetNodeHash(level, index)
	if err != nil {
		return common.Hash{}, err
	}
	if !found {
		return emptyHashes[level], nil
	}
	return hash, nil
}

// chainStates computes the free-slot stack chain state after each prefix
// of the given pushes, starting from the zero state.
func chainStates(slots []uint64) []common.Hash {
	states := make([]common.Hash, len(slots)+1)
	for i, slot := range slots {
		states[i+1] = chainFreeSlot(states[i], slot)
	}
	return states
}
