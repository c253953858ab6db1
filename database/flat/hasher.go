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
	"golang.org/x/crypto/blake2s"

	"github.com/Fantom-foundation/Violetta/go/common"
)

// TreeHasher provides the two hash operations of the tree. The leaf and
// node framings consume inputs of different lengths (96 vs 64 bytes) and
// are therefore not interchangeable.
type TreeHasher interface {
	// HashLeaf hashes a leaf record, consuming key ‖ value ‖ nextKey.
	HashLeaf(leaf *Leaf) common.Hash

	// HashNode hashes two sibling hashes into their parent,
	// consuming left ‖ right.
	HashNode(left, right common.Hash) common.Hash
}

// Blake2sHasher is the production TreeHasher, instantiated with
// BLAKE2s-256. The resulting roots are consensus-critical; any deviation
// in framing or digest produces a different root for identical state.
type Blake2sHasher struct{}

func (Blake2sHasher) HashLeaf(leaf *Leaf) common.Hash {
	hasher, _ := blake2s.New256(nil)
	hasher.Write(leaf.Key[:])
	hasher.Write(leaf.Value[:])
	hasher.Write(leaf.NextKey[:])
	var res common.Hash
	hasher.Sum(res[0:0])
	return res
}

func (Blake2sHasher) HashNode(left, right common.Hash) common.Hash {
	hasher, _ := blake2s.New256(nil)
	hasher.Write(left[:])
	hasher.Write(right[:])
	var res common.Hash
	hasher.Sum(res[0:0])
	return res
}

// emptyHashes[i] is the hash of an empty (all-zero) subtree of height i:
// emptyHashes[0] is the hash of the empty leaf, emptyHashes[TreeDepth] the
// root of a completely empty tree. Computed once at package load.
var emptyHashes = func() [TreeDepth + 1]common.Hash {
	var res [TreeDepth + 1]common.Hash
	hasher := Blake2sHasher{}
	empty := Leaf{}
	res[0] = hasher.HashLeaf(&empty)
	for i := 0; i < TreeDepth; i++ {
		res[i+1] = hasher.HashNode(res[i], res[i])
	}
	return res
}()
