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

// LeafProof is a Merkle proof for a single slot: the slot index, the leaf
// stored there, and the sibling hash on every level of the path up to the
// root. Proofs are self-verifiable and are the only primitive trusted to
// authenticate oracle-supplied data.
type LeafProof struct {
	Index uint64
	Leaf  Leaf
	Path  [TreeDepth]common.Hash
}

// RootOf recomputes the root the proof commits to, by hashing the leaf and
// folding in the sibling of each level, branching on the parity of the
// slot index at that level.
func (p *LeafProof) RootOf() common.Hash {
	hasher := Blake2sHasher{}
	current := hasher.HashLeaf(&p.Leaf)
	index := p.Index
	for _, sibling := range p.Path {
		if index&1 == 0 {
			current = hasher.HashNode(current, sibling)
		} else {
			current = hasher.HashNode(sibling, current)
		}
		index >>= 1
	}
	return current
}

// VerifiesAgainst returns true if the proof is consistent with the given
// root.
func (p *LeafProof) VerifiesAgainst(root common.Hash) bool {
	return p.RootOf() == root
}

// leafProofSize is the length of the canonical proof encoding: the slot
// index, the leaf record, and TreeDepth sibling hashes.
const leafProofSize = 8 + 96 + TreeDepth*32

// LeafProofSerializer is a common.Serializer of the LeafProof type.
type LeafProofSerializer struct{}

func (s LeafProofSerializer) ToBytes(proof LeafProof) []byte {
	res := make([]byte, 0, s.Size())
	res = append(res, common.Uint64Serializer{}.ToBytes(proof.Index)...)
	res = append(res, LeafSerializer{}.ToBytes(proof.Leaf)...)
	for _, sibling := range proof.Path {
		res = append(res, sibling[:]...)
	}
	return res
}

func (s LeafProofSerializer) FromBytes(data []byte) LeafProof {
	var proof LeafProof
	proof.Index = common.Uint64Serializer{}.FromBytes(data[0:8])
	proof.Leaf = LeafSerializer{}.FromBytes(data[8:104])
	for i := range proof.Path {
		copy(proof.Path[i][:], data[104+i*32:])
	}
	return proof
}

func (s LeafProofSerializer) Size() int {
	return leafProofSize
}

func (p *LeafProof) String() string {
	return fmt.Sprintf("proof{slot: %d, leaf: {%v, %v, %v}}", p.Index, p.Leaf.Key, p.Leaf.Value, p.Leaf.NextKey)
}
