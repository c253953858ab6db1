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

	"github.com/Fantom-foundation/Violetta/go/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SlotUpdate describes the net effect of a batch on a single storage slot:
// the value the slot held before the batch and the value it holds after.
// IsNewSlot marks keys that were absent from the tree before the batch; the
// initial value of such a slot is always zero.
//
// A slot whose current value equals its initial value is a read and leaves
// the tree untouched. A transition to the zero value deletes the slot, a
// transition from a fresh slot to a non-zero value inserts it, and any
// other transition updates it in place.
type SlotUpdate struct {
	Key          common.Key
	InitialValue common.Value
	CurrentValue common.Value
	IsNewSlot    bool
}

func (u *SlotUpdate) isRead() bool {
	return u.CurrentValue == u.InitialValue
}

// relinkOp is a deferred next-key fix-up produced by a delete or insert:
// the live leaf preceding the given key must be re-pointed at it. For
// inserts the target is the slot of the inserted leaf, which additionally
// inherits the outgoing pointer of its predecessor.
type relinkOp struct {
	targetIndex uint64
	insert      bool
}

// VerifyAndApplyBatch verifies a batch of slot transitions against the
// commitment, using the oracle to obtain the required witness data, and
// advances the commitment to the resulting state. The batch is applied
// atomically: on any error the commitment is left unchanged.
//
// Errors wrapping ErrInconsistentReads or ErrInvalidWitness indicate that
// the witness data contradicts the committed state; errors wrapping
// ErrInvalidBatch indicate a malformed batch. All errors are fatal for the
// batch.
func (c *Commitment) VerifyAndApplyBatch(oracle Oracle, batch []SlotUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	seen := make(map[common.Key]struct{}, len(batch))
	for i := range batch {
		if _, dup := seen[batch[i].Key]; dup {
			return fmt.Errorf("%w: key %v appears twice", ErrInvalidBatch, batch[i].Key)
		}
		seen[batch[i].Key] = struct{}{}
	}

	ctx := newBatchContext(oracle, c.NextFreeSlot)
	nextFree := c.NextFreeSlot
	stack := c.FreeSlots
	relinks := map[common.Key]relinkOp{}
	numWrites := 0
	numInserts := 0

	// Phase 1: verify reads, including non-membership of fresh slots.
	for i := range batch {
		u := &batch[i]
		if !u.isRead() {
			continue
		}
		if u.IsNewSlot {
			if u.InitialValue != (common.Value{}) {
				return fmt.Errorf("%w: fresh slot %v reports initial value %v", ErrInvalidBatch, u.Key, u.InitialValue)
			}
			record, _, err := ctx.getPredecessor(u.Key)
			if err != nil {
				return err
			}
			if bytes.Compare(record.persisted.Leaf.NextKey[:], u.Key[:]) <= 0 {
				return fmt.Errorf("%w: key %v marked fresh but predecessor links to %v", ErrInvalidWitness, u.Key, record.persisted.Leaf.NextKey)
			}
			continue
		}
		record, index, err := ctx.getExisting(u.Key)
		if err != nil {
			return err
		}
		if record.current.Value != u.InitialValue {
			return fmt.Errorf("%w: slot %d of key %v holds %v, expected %v", ErrInconsistentReads, index, u.Key, record.current.Value, u.InitialValue)
		}
	}

	// Phase 2: in-place updates of existing slots.
	for i := range batch {
		u := &batch[i]
		if u.isRead() || u.IsNewSlot || u.CurrentValue == (common.Value{}) {
			continue
		}
		record, index, err := ctx.getExisting(u.Key)
		if err != nil {
			return err
		}
		if record.current.Value != u.InitialValue {
			return fmt.Errorf("%w: slot %d of key %v holds %v, expected %v", ErrInconsistentReads, index, u.Key, record.current.Value, u.InitialValue)
		}
		record.current.Value = u.CurrentValue
		numWrites++
	}

	// Phase 3: deletes. Processed in descending key order so that the
	// staged next-key of each predecessor is still intact when checked.
	var deletes []int
	for i := range batch {
		u := &batch[i]
		if !u.isRead() && !u.IsNewSlot && u.CurrentValue == (common.Value{}) {
			deletes = append(deletes, i)
		}
	}
	slices.SortFunc(deletes, func(a, b int) int {
		return bytes.Compare(batch[b].Key[:], batch[a].Key[:])
	})
	for _, i := range deletes {
		u := &batch[i]
		record, index, err := ctx.removeExisting(u.Key)
		if err != nil {
			return err
		}
		if record.current.Value != u.InitialValue {
			return fmt.Errorf("%w: slot %d of key %v holds %v, expected %v", ErrInconsistentReads, index, u.Key, record.current.Value, u.InitialValue)
		}
		successor := record.current.NextKey
		record.current = Leaf{}
		prev, prevIndex, err := ctx.getPredecessor(u.Key)
		if err != nil {
			return err
		}
		if prevIndex == index {
			return fmt.Errorf("%w: slot %d precedes itself", ErrInvalidWitness, index)
		}
		if prev.current.NextKey != u.Key {
			return fmt.Errorf("%w: predecessor of %v links to %v", ErrInvalidWitness, u.Key, prev.current.NextKey)
		}
		if _, dup := relinks[successor]; dup {
			return fmt.Errorf("%w: conflicting relink of key %v", ErrInvalidWitness, successor)
		}
		relinks[successor] = relinkOp{targetIndex: index}
		if err := ctx.stageFreedSlot(index); err != nil {
			return err
		}
		numWrites++
	}

	// Phase 4: inserts. Freed slots of this batch are reused first,
	// highest slot first, then slots popped from the persistent free
	// stack, and only then fresh slots appended at the end of the tree.
	for i := range batch {
		u := &batch[i]
		if u.isRead() || !u.IsNewSlot {
			continue
		}
		if u.InitialValue != (common.Value{}) {
			return fmt.Errorf("%w: fresh slot %v reports initial value %v", ErrInvalidBatch, u.Key, u.InitialValue)
		}
		prev, _, err := ctx.getPredecessor(u.Key)
		if err != nil {
			return err
		}
		if bytes.Compare(prev.persisted.Leaf.NextKey[:], u.Key[:]) <= 0 {
			return fmt.Errorf("%w: key %v marked fresh but predecessor links to %v", ErrInvalidWitness, u.Key, prev.persisted.Leaf.NextKey)
		}

		var index uint64
		var record *leafRecord
		if len(ctx.freedSlots) > 0 {
			index = ctx.popFreedSlot()
			record = ctx.records[index]
			if record == nil || !record.current.IsEmpty() {
				return fmt.Errorf("freed slot %d is not staged empty", index)
			}
		} else if !stack.IsEmpty() {
			index, err = stack.Pop(oracle)
			if err != nil {
				return err
			}
			if index >= ctx.savedNextFree {
				return fmt.Errorf("%w: free stack slot %d was never allocated", ErrInvalidWitness, index)
			}
			if _, ok := ctx.records[index]; ok {
				return fmt.Errorf("%w: free stack slot %d already witnessed in this batch", ErrInvalidWitness, index)
			}
			record, err = ctx.fetch(index)
			if err != nil {
				return err
			}
			if !record.current.IsEmpty() {
				return fmt.Errorf("%w: free stack slot %d is not empty", ErrInvalidWitness, index)
			}
			ctx.records[index] = record
		} else {
			if nextFree == math.MaxUint64 {
				return fmt.Errorf("%w: no free slots left", ErrCapacityExhausted)
			}
			index = nextFree
			nextFree++
			record = &leafRecord{}
			ctx.records[index] = record
		}

		if _, dup := ctx.keyToSlot[u.Key]; dup {
			return fmt.Errorf("%w: key %v witnessed in two slots", ErrInvalidWitness, u.Key)
		}
		ctx.keyToSlot[u.Key] = index
		record.current.Key = u.Key
		record.current.Value = u.CurrentValue
		if _, dup := relinks[u.Key]; dup {
			return fmt.Errorf("%w: conflicting relink of key %v", ErrInvalidWitness, u.Key)
		}
		relinks[u.Key] = relinkOp{targetIndex: index, insert: true}
		numWrites++
		numInserts++
	}

	// Appending slots changes the hashes on the right edge of the
	// occupied range, so the former last slot must be witnessed as well.
	if numInserts > 0 {
		last := ctx.savedNextFree - 1
		if _, ok := ctx.records[last]; !ok {
			record, err := ctx.fetch(last)
			if err != nil {
				return err
			}
			ctx.records[last] = record
		}
	}

	if err := ctx.relink(relinks); err != nil {
		return err
	}

	readRoot, writeRoot, err := ctx.recomputeRoots(Blake2sHasher{})
	if err != nil {
		return err
	}
	if readRoot != c.Root {
		return fmt.Errorf("%w: witnessed root %v does not match committed root %v", ErrInconsistentReads, readRoot, c.Root)
	}
	if writeRoot == nil {
		if numWrites != 0 {
			return fmt.Errorf("no state root produced for %d writes", numWrites)
		}
		return nil
	}
	if numWrites > 0 && *writeRoot == c.Root {
		return fmt.Errorf("state root unchanged by %d writes", numWrites)
	}

	// Slots freed by the batch but not reused are returned to the free
	// stack, highest slot pushed first so the lowest one pops first.
	for i := len(ctx.freedSlots) - 1; i >= 0; i-- {
		stack.Push(ctx.freedSlots[i])
	}
	c.Root = *writeRoot
	c.NextFreeSlot = nextFree
	c.FreeSlots = stack
	return nil
}

// relink rewires the next-key pointers of the staged leaves so that every
// deleted key is skipped and every inserted key is linked in. Relinked keys
// are processed in ascending order; the live leaf preceding each key is
// found among the staged records, which is complete for this purpose since
// every delete and insert witnessed its predecessor.
func (ctx *batchContext) relink(relinks map[common.Key]relinkOp) error {
	if len(relinks) == 0 {
		return nil
	}
	type liveLeaf struct {
		key  common.Key
		slot uint64
	}
	live := make([]liveLeaf, 0, len(ctx.records))
	for slot, record := range ctx.records {
		if !record.current.IsEmpty() {
			live = append(live, liveLeaf{record.current.Key, slot})
		}
	}
	slices.SortFunc(live, func(a, b liveLeaf) int {
		return bytes.Compare(a.key[:], b.key[:])
	})
	keys := maps.Keys(relinks)
	slices.SortFunc(keys, func(a, b common.Key) int {
		return bytes.Compare(a[:], b[:])
	})
	for _, key := range keys {
		low, _ := slices.BinarySearchFunc(live, key, func(l liveLeaf, k common.Key) int {
			return bytes.Compare(l.key[:], k[:])
		})
		if low == 0 {
			return fmt.Errorf("%w: no witnessed predecessor for relinked key %v", ErrInvalidWitness, key)
		}
		source := ctx.records[live[low-1].slot]
		op := relinks[key]
		if op.insert {
			target := ctx.records[op.targetIndex]
			target.current.NextKey = source.current.NextKey
		}
		source.current.NextKey = key
	}
	// Relinking must leave every staged leaf in strict list order.
	maxKey := common.MaxKey()
	for _, l := range live {
		record := ctx.records[l.slot]
		if l.key == maxKey {
			continue
		}
		if bytes.Compare(record.current.NextKey[:], l.key[:]) <= 0 {
			return fmt.Errorf("%w: leaf %v links backwards to %v", ErrInvalidWitness, l.key, record.current.NextKey)
		}
	}
	return nil
}
