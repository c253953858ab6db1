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
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// pathPoint tracks one open authentication path during root recomputation.
// At tree level L it carries the node index at that level, the slot the
// path started from, the hash of the pre-batch state at that node, and the
// hash of the post-batch state if anything below it was modified. A nil
// read hash marks a path starting at a slot appended by this batch, which
// has no pre-batch state beyond the implicit empty subtree.
type pathPoint struct {
	index     uint64
	leafSlot  uint64
	readHash  *common.Hash
	writeHash *common.Hash
}

// recomputeRoots folds the authentication paths of all touched slots up to
// the root, merging paths as they meet. It returns the root of the
// pre-batch state implied by the witnessed proofs and, if any leaf was
// modified, the root of the post-batch state.
func (ctx *batchContext) recomputeRoots(hasher TreeHasher) (common.Hash, *common.Hash, error) {
	slots := maps.Keys(ctx.records)
	slices.Sort(slots)

	points := make([]pathPoint, 0, len(slots))
	for _, slot := range slots {
		record := ctx.records[slot]
		point := pathPoint{index: slot, leafSlot: slot}
		if record.persisted != nil {
			h := hasher.HashLeaf(&record.persisted.Leaf)
			point.readHash = &h
		} else if slot < ctx.savedNextFree {
			return common.Hash{}, nil, fmt.Errorf("persisted slot %d has no proof", slot)
		}
		if record.isModified() {
			h := hasher.HashLeaf(&record.current)
			point.writeHash = &h
		}
		points = append(points, point)
	}
	if len(points) == 0 {
		return common.Hash{}, nil, fmt.Errorf("no slots witnessed")
	}

	next := make([]pathPoint, 0, len(points))
	for level := 0; level < TreeDepth; level++ {
		next = next[:0]
		for i := 0; i < len(points); {
			if i+1 < len(points) && points[i].index>>1 == points[i+1].index>>1 {
				merged, err := mergePoints(hasher, level, &points[i], &points[i+1], ctx.savedNextFree)
				if err != nil {
					return common.Hash{}, nil, err
				}
				next = append(next, merged)
				i += 2
			} else {
				next = append(next, ctx.advancePoint(hasher, level, &points[i]))
				i++
			}
		}
		points, next = next, points
	}
	if len(points) != 1 || points[0].index != 0 {
		return common.Hash{}, nil, fmt.Errorf("paths did not converge to the root")
	}
	root := points[0]
	if root.readHash == nil {
		return common.Hash{}, nil, fmt.Errorf("%w: no persisted slot witnessed", ErrInvalidWitness)
	}
	return *root.readHash, root.writeHash, nil
}

// mergePoints joins two sibling paths into their common parent.
func mergePoints(hasher TreeHasher, level int, left, right *pathPoint, savedNextFree uint64) (pathPoint, error) {
	empty := emptyHashes[level]
	leftRead, rightRead := empty, empty
	if left.readHash != nil {
		leftRead = *left.readHash
	}
	if right.readHash != nil {
		rightRead = *right.readHash
	}

	merged := pathPoint{index: left.index >> 1, leafSlot: left.leafSlot}
	if left.readHash != nil || right.readHash != nil {
		h := hasher.HashNode(leftRead, rightRead)
		merged.readHash = &h
	} else if left.leafSlot < savedNextFree || right.leafSlot < savedNextFree {
		return pathPoint{}, fmt.Errorf("persisted slot %d or %d has no proof", left.leafSlot, right.leafSlot)
	}

	switch {
	case left.writeHash != nil && right.writeHash != nil:
		h := hasher.HashNode(*left.writeHash, *right.writeHash)
		merged.writeHash = &h
	case left.writeHash != nil:
		h := hasher.HashNode(*left.writeHash, rightRead)
		merged.writeHash = &h
	case right.writeHash != nil:
		h := hasher.HashNode(leftRead, *right.writeHash)
		merged.writeHash = &h
	default:
		if merged.readHash == nil {
			return pathPoint{}, fmt.Errorf("path of slot %d carries neither reads nor writes", left.leafSlot)
		}
	}
	return merged, nil
}

// advancePoint moves a lone path one level up, taking the sibling hash from
// the witnessed proof of the slot the path started from, or the empty
// subtree hash for slots appended by this batch.
func (ctx *batchContext) advancePoint(hasher TreeHasher, level int, point *pathPoint) pathPoint {
	sibling := emptyHashes[level]
	if record, ok := ctx.records[point.leafSlot]; ok && record.persisted != nil {
		sibling = record.persisted.Path[level]
	}

	advanced := pathPoint{index: point.index >> 1, leafSlot: point.leafSlot}
	if point.readHash != nil {
		var h common.Hash
		if point.index&1 == 0 {
			h = hasher.HashNode(*point.readHash, sibling)
		} else {
			h = hasher.HashNode(sibling, *point.readHash)
		}
		advanced.readHash = &h
	}
	if point.writeHash != nil {
		var h common.Hash
		if point.index&1 == 0 {
			h = hasher.HashNode(*point.writeHash, sibling)
		} else {
			h = hasher.HashNode(sibling, *point.writeHash)
		}
		advanced.writeHash = &h
	}
	return advanced
}
