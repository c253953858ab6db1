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

import "github.com/Fantom-foundation/Violetta/go/common"

// Every failure of the batch verifier falls in one of three families, and
// all of them are fatal: the batch as a whole is rejected and the
// commitment remains untouched. Callers are expected to discard the block
// or transaction that produced the batch, not to recover per sub-code.
const (
	// ErrInconsistentReads indicates that the pre-images witnessed for the
	// batch do not hash back to the committed root; the oracle supplied
	// tampered or stale data.
	ErrInconsistentReads = common.ConstError("storage reads are inconsistent with the committed root")

	// ErrStackProofMismatch indicates that a free-slot stack preimage
	// supplied by the oracle does not hash to the committed stack state.
	ErrStackProofMismatch = common.ConstError("free-slot stack preimage mismatch")

	// ErrInvalidWitness indicates any other inconsistency in oracle
	// responses: wrong key in a proof, out-of-range slot index, or a
	// reused slot that is not actually empty.
	ErrInvalidWitness = common.ConstError("inconsistent witness data")

	// ErrInvalidBatch indicates a violation of the caller contract, such
	// as a batch naming the same key twice or claiming a non-zero
	// initial value for a fresh slot.
	ErrInvalidBatch = common.ConstError("invalid batch")

	// ErrCapacityExhausted indicates that the slot index space is used up.
	// Unlike the errors above it signals a capacity problem of the tree
	// configuration, not a malicious witness provider.
	ErrCapacityExhausted = common.ConstError("tree capacity exhausted")
)
