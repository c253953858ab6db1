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

// DeriveStorageKey maps an (address, storage key) pair to the flat key
// the tree is indexed by, by hashing the address zero-extended to 32 bytes
// followed by the storage key.
//
// The tree is deliberately keyed by this digest rather than by the raw
// pair: uniform keys prevent an attacker from choosing storage slots that
// share a long prefix with a victim's address and thereby degenerating
// the tree shape. The price is that key existence can no longer be decided
// by walking key bits, which is what the nextKey list is for.
func DeriveStorageKey(address common.Address, key common.Key) common.Key {
	hasher, _ := blake2s.New256(nil)
	var extended [32]byte
	copy(extended[12:], address[:])
	hasher.Write(extended[:])
	hasher.Write(key[:])
	var res common.Key
	hasher.Sum(res[0:0])
	return res
}
