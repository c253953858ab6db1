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

	"github.com/Fantom-foundation/Violetta/go/common"
	"golang.org/x/exp/slices"
)

// leafRecord is the batch-local view of one witnessed or created slot: the
// proof it was fetched with, if it was ever persisted, and the staged state
// of the leaf as modified by the batch so far.
type leafRecord struct {
	persisted *LeafProof // nil for slots appended by this batch
	current   Leaf
}

// isModified returns true if the staged leaf differs from the persisted one.
func (r *leafRecord) isModified() bool {
	return r.persisted == nil || r.current != r.persisted.Leaf
}

// batchContext carries the per-batch caches shared by all phases of
// VerifyAndApplyBatch: a key to slot index map and a slot index to leaf
// record map, so that any slot is fetched from the oracle at most once per
// batch. It also stages the slots freed by deletes of this batch, kept in
// ascending order. All of it is discarded when the batch ends.
type batchContext struct {
	oracle        Oracle
	keyToSlot     map[common.Key]uint64
	records       map[uint64]*leafRecord
	freedSlots    []uint64
	savedNextFree uint64
}

func newBatchContext(oracle Oracle, savedNextFree uint64) *batchContext {
	return &batchContext{
		oracle:        oracle,
		keyToSlot:     map[common.Key]uint64{},
		records:       map[uint64]*leafRecord{},
		savedNextFree: savedNextFree,
	}
}

// fetch pulls the proof for a slot from the oracle and turns it into a
// fresh record. The proof content is not yet authenticated here; all
// witnessed pre-images are verified collectively against the committed
// root during root recomputation.
func (ctx *batchContext) fetch(index uint64) (*leafRecord, error) {
	proof, err := ctx.oracle.ProofForIndex(index)
	if err != nil {
		return nil, err
	}
	if proof.Index != index {
		return nil, fmt.Errorf("%w: proof for slot %d reports slot %d", ErrInvalidWitness, index, proof.Index)
	}
	return &leafRecord{persisted: &proof, current: proof.Leaf}, nil
}

// getExisting resolves the record of the leaf holding exactly the given
// key, asking the oracle for the slot index unless it is already cached.
func (ctx *batchContext) getExisting(key common.Key) (*leafRecord, uint64, error) {
	index, cached := ctx.keyToSlot[key]
	if !cached {
		var err error
		index, err = ctx.oracle.IndexForKey(key)
		if err != nil {
			return nil, 0, err
		}
	}
	record, err := ctx.recordForExisting(key, index, cached)
	return record, index, err
}

// removeExisting is getExisting for a key about to be deleted; the key is
// dropped from the key cache so the slot can be re-keyed by a later insert.
func (ctx *batchContext) removeExisting(key common.Key) (*leafRecord, uint64, error) {
	index, cached := ctx.keyToSlot[key]
	if cached {
		delete(ctx.keyToSlot, key)
	} else {
		var err error
		index, err = ctx.oracle.IndexForKey(key)
		if err != nil {
			return nil, 0, err
		}
	}
	record, err := ctx.recordForExisting(key, index, true)
	return record, index, err
}

func (ctx *batchContext) recordForExisting(key common.Key, index uint64, keyCached bool) (*leafRecord, error) {
	if index >= ctx.savedNextFree {
		return nil, fmt.Errorf("%w: slot %d for key %v was never allocated", ErrInvalidWitness, index, key)
	}
	record, ok := ctx.records[index]
	if !ok {
		var err error
		record, err = ctx.fetch(index)
		if err != nil {
			return nil, err
		}
		ctx.records[index] = record
		if !keyCached {
			ctx.keyToSlot[key] = index
		}
	}
	if record.current.Key != key {
		return nil, fmt.Errorf("%w: slot %d holds key %v, not %v", ErrInvalidWitness, index, record.current.Key, key)
	}
	return record, nil
}

// getPredecessor resolves the record of the leaf holding the largest key
// strictly smaller than the given key. Predecessor indices are always
// answered by the oracle against the pre-batch state of the tree.
func (ctx *batchContext) getPredecessor(key common.Key) (*leafRecord, uint64, error) {
	index, err := ctx.oracle.PrevIndexForKey(key)
	if err != nil {
		return nil, 0, err
	}
	if index >= ctx.savedNextFree {
		return nil, 0, fmt.Errorf("%w: predecessor slot %d for key %v was never allocated", ErrInvalidWitness, index, key)
	}
	record, ok := ctx.records[index]
	if !ok {
		record, err = ctx.fetch(index)
		if err != nil {
			return nil, 0, err
		}
		if _, conflict := ctx.keyToSlot[record.current.Key]; conflict {
			return nil, 0, fmt.Errorf("%w: key %v witnessed in two slots", ErrInvalidWitness, record.current.Key)
		}
		ctx.records[index] = record
		ctx.keyToSlot[record.current.Key] = index
	}
	// The predecessor relation is checked against the pre-batch leaf,
	// since the slot may already have been deleted or re-keyed by an
	// earlier operation of the same batch.
	if record.persisted == nil {
		return nil, 0, fmt.Errorf("%w: predecessor slot %d was never persisted", ErrInvalidWitness, index)
	}
	if bytes.Compare(record.persisted.Leaf.Key[:], key[:]) >= 0 {
		return nil, 0, fmt.Errorf("%w: predecessor key %v is not below %v", ErrInvalidWitness, record.persisted.Leaf.Key, key)
	}
	return record, index, nil
}

// stageFreedSlot records a slot freed by a delete of this batch, keeping
// the staged list sorted ascending.
func (ctx *batchContext) stageFreedSlot(slot uint64) error {
	pos, present := slices.BinarySearch(ctx.freedSlots, slot)
	if present {
		return fmt.Errorf("%w: slot %d freed twice", ErrInvalidWitness, slot)
	}
	ctx.freedSlots = slices.Insert(ctx.freedSlots, pos, slot)
	return nil
}

// popFreedSlot removes and returns the highest staged freed slot.
func (ctx *batchContext) popFreedSlot() uint64 {
	last := len(ctx.freedSlots) - 1
	slot := ctx.freedSlots[last]
	ctx.freedSlots = ctx.freedSlots[:last]
	return slot
}
