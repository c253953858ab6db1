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

//go:generate mockgen -source oracle.go -destination oracle_mocks.go -package flat

// Oracle supplies witness data for batch verification: slot indices,
// Merkle proofs, and free-slot stack preimages. An oracle is untrusted;
// every answer is hashed back against the committed state before it may
// influence control flow. Implementations return plain data and an error
// if the requested witness cannot be produced.
//
// The batch verifier never issues a query it can answer from data it has
// already witnessed within the same batch.
type Oracle interface {
	// IndexForKey returns the slot index of the leaf holding exactly the
	// given key.
	IndexForKey(key common.Key) (uint64, error)

	// PrevIndexForKey returns the slot index of the leaf holding the
	// largest key strictly smaller than the given key.
	PrevIndexForKey(key common.Key) (uint64, error)

	// ProofForIndex returns the full Merkle proof for the given slot.
	ProofForIndex(index uint64) (LeafProof, error)

	// FreeSlotsPreimage returns, for a free-slot stack in the given state
	// with the given number of elements, the predecessor state and the
	// slot whose push produced the current state.
	FreeSlotsPreimage(state common.Hash, size uint64) (common.Hash, uint64, error)
}
