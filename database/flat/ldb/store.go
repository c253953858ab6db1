// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ldb provides a LevelDB backed implementation of the flat tree
// store, suitable for trees exceeding main memory.
package ldb

import (
	"encoding/binary"
	"unsafe"

	"github.com/Fantom-foundation/Violetta/go/common"
	"github.com/Fantom-foundation/Violetta/go/database/flat"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// tableSpace divides the key-value store into spaces by a one byte key
// prefix.
type tableSpace byte

const (
	// leafSpace maps big-endian slot indices to leaf records.
	leafSpace tableSpace = 'L'
	// hashSpace maps (level, big-endian node index) to node hashes.
	hashSpace tableSpace = 'H'
	// keySpace maps flat keys to little-endian slot indices; the raw key
	// bytes sort lexicographically, so predecessor and successor queries
	// are iterator seeks.
	keySpace tableSpace = 'K'
	// metadataSpace holds the single tree metadata record.
	metadataSpace tableSpace = 'M'
)

// Store is a flat.TreeStore persisting all tree data in a LevelDB
// instance, with an LRU cache in front of the leaves.
type Store struct {
	db        *leveldb.DB
	leafCache *common.LruCache[uint64, flat.Leaf]
}

// LeafCacheSize is the number of leaves the store keeps in memory.
const LeafCacheSize = 1 << 16

// NewStore opens a store in the given directory, creating it if needed.
func NewStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:        db,
		leafCache: common.NewLruCache[uint64, flat.Leaf](LeafCacheSize),
	}, nil
}

func slotKey(space tableSpace, slot uint64) []byte {
	var key [9]byte
	key[0] = byte(space)
	binary.BigEndian.PutUint64(key[1:], slot)
	return key[:]
}

func nodeKey(level int, index uint64) []byte {
	var key [10]byte
	key[0] = byte(hashSpace)
	key[1] = byte(level)
	binary.BigEndian.PutUint64(key[2:], index)
	return key[:]
}

func flatKey(key common.Key) []byte {
	res := make([]byte, 0, 33)
	res = append(res, byte(keySpace))
	res = append(res, key[:]...)
	return res
}

func (s *Store) GetLeaf(slot uint64) (flat.Leaf, error) {
	if leaf, exists := s.leafCache.Get(slot); exists {
		return leaf, nil
	}
	data, err := s.db.Get(slotKey(leafSpace, slot), nil)
	if err == leveldb.ErrNotFound {
		return flat.Leaf{}, nil
	}
	if err != nil {
		return flat.Leaf{}, err
	}
	leaf := flat.LeafSerializer{}.FromBytes(data)
	s.leafCache.Set(slot, leaf)
	return leaf, nil
}

func (s *Store) SetLeaf(slot uint64, leaf flat.Leaf) error {
	if err := s.db.Put(slotKey(leafSpace, slot), flat.LeafSerializer{}.ToBytes(leaf), nil); err != nil {
		return err
	}
	s.leafCache.Set(slot, leaf)
	return nil
}

func (s *Store) GetNodeHash(level int, index uint64) (common.Hash, bool, error) {
	data, err := s.db.Get(nodeKey(level, index), nil)
	if err == leveldb.ErrNotFound {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, err
	}
	return common.HashSerializer{}.FromBytes(data), true, nil
}

func (s *Store) SetNodeHash(level int, index uint64, hash common.Hash) error {
	return s.db.Put(nodeKey(level, index), hash[:], nil)
}

func (s *Store) SlotForKey(key common.Key) (uint64, bool, error) {
	data, err := s.db.Get(flatKey(key), nil)
	if err == leveldb.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return common.Uint64Serializer{}.FromBytes(data), true, nil
}

func (s *Store) SetSlotForKey(key common.Key, slot uint64) error {
	return s.db.Put(flatKey(key), common.Uint64Serializer{}.ToBytes(slot), nil)
}

func (s *Store) DeleteSlotForKey(key common.Key) error {
	return s.db.Delete(flatKey(key), nil)
}

func (s *Store) PredecessorSlotForKey(key common.Key) (uint64, bool, error) {
	// All keys in [prefix, prefix+key) hold keys strictly below the
	// given one; the predecessor is the last of them.
	iter := s.db.NewIterator(&util.Range{Start: []byte{byte(keySpace)}, Limit: flatKey(key)}, nil)
	defer iter.Release()
	if !iter.Last() {
		return 0, false, iter.Error()
	}
	return common.Uint64Serializer{}.FromBytes(iter.Value()), true, iter.Error()
}

func (s *Store) SuccessorSlotForKey(key common.Key) (uint64, bool, error) {
	iter := s.db.NewIterator(&util.Range{Start: flatKey(key), Limit: []byte{byte(keySpace) + 1}}, nil)
	defer iter.Release()
	found := iter.First()
	if found && string(iter.Key()) == string(flatKey(key)) {
		found = iter.Next()
	}
	if !found {
		return 0, false, iter.Error()
	}
	return common.Uint64Serializer{}.FromBytes(iter.Value()), true, iter.Error()
}

func (s *Store) GetMetadata() (flat.TreeMetadata, bool, error) {
	data, err := s.db.Get([]byte{byte(metadataSpace)}, nil)
	if err == leveldb.ErrNotFound {
		return flat.TreeMetadata{}, false, nil
	}
	if err != nil {
		return flat.TreeMetadata{}, false, err
	}
	metadata := flat.TreeMetadata{
		NextFreeSlot: common.Uint64Serializer{}.FromBytes(data[0:8]),
	}
	count := common.Uint64Serializer{}.FromBytes(data[8:16])
	metadata.FreeSlots = make([]uint64, count)
	for i := range metadata.FreeSlots {
		metadata.FreeSlots[i] = common.Uint64Serializer{}.FromBytes(data[16+8*i:])
	}
	return metadata, true, nil
}

func (s *Store) SetMetadata(metadata flat.TreeMetadata) error {
	data := make([]byte, 0, 16+8*len(metadata.FreeSlots))
	data = append(data, common.Uint64Serializer{}.ToBytes(metadata.NextFreeSlot)...)
	data = append(data, common.Uint64Serializer{}.ToBytes(uint64(len(metadata.FreeSlots)))...)
	for _, slot := range metadata.FreeSlots {
		data = append(data, common.Uint64Serializer{}.ToBytes(slot)...)
	}
	return s.db.Put([]byte{byte(metadataSpace)}, data, nil)
}

func (s *Store) Flush() error {
	return nil // all writes go through to the database
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetMemoryFootprint provides the size of the store in memory.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("leafCache", s.leafCache.GetMemoryFootprint(0))
	return mf
}
