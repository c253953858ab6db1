// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package flat implements a flat, content-addressed storage commitment for
// rollup state: a binary Merkle tree of fixed depth whose slots hold
// (key, value, nextKey) leaf records. The nextKey fields thread a key-sorted
// singly-linked list through the tree, which allows proving both membership
// and non-membership of arbitrary keys without walking key bits.
//
// The externally visible state is a Commitment: the tree root, the next
// never-used slot index, and a hash-chained stack committing to the set of
// slots freed by deletions. A batch of storage accesses is authenticated
// and applied to a Commitment by VerifyAndApplyBatch, which pulls witness
// data (proofs, slot indices, stack preimages) from an untrusted Oracle and
// re-verifies everything against the committed root before accepting it.
//
// The package also contains the prover-side counterpart: a Tree holding all
// leaves and node hashes, able to answer every oracle query and to apply
// the same batches directly. A Tree can be held fully in memory or backed
// by a persistent store (see the ldb sub-package).
package flat
