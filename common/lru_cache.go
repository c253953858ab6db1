// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import "unsafe"

// LruCache is a fixed-capacity key-value cache evicting the least recently
// used entry when full. It is not safe for concurrent use.
type LruCache[K comparable, V any] struct {
	cache    map[K]*lruEntry[K, V]
	capacity int
	head     *lruEntry[K, V]
	tail     *lruEntry[K, V]
}

type lruEntry[K comparable, V any] struct {
	key        K
	val        V
	prev, next *lruEntry[K, V]
}

// NewLruCache returns a new cache with the given capacity.
func NewLruCache[K comparable, V any](capacity int) *LruCache[K, V] {
	return &LruCache[K, V]{
		cache:    make(map[K]*lruEntry[K, V], capacity),
		capacity: capacity,
	}
}

// Get returns the value cached under the key, if present, and marks the
// entry as most recently used.
func (c *LruCache[K, V]) Get(key K) (V, bool) {
	if entry, exists := c.cache[key]; exists {
		c.touch(entry)
		return entry.val, true
	}
	var empty V
	return empty, false
}

// Set caches the value under the key, evicting the least recently used
// entry if the capacity is exceeded. It returns the evicted key-value pair
// if an eviction took place.
func (c *LruCache[K, V]) Set(key K, val V) (evictedKey K, evictedValue V, evicted bool) {
	if entry, exists := c.cache[key]; exists {
		entry.val = val
		c.touch(entry)
		return
	}
	if len(c.cache) >= c.capacity {
		entry := c.tail
		c.remove(entry)
		delete(c.cache, entry.key)
		evictedKey, evictedValue, evicted = entry.key, entry.val, true
	}
	entry := &lruEntry[K, V]{key: key, val: val}
	c.cache[key] = entry
	c.pushFront(entry)
	return
}

// Remove drops the entry cached under the key, returning whether it was present.
func (c *LruCache[K, V]) Remove(key K) bool {
	entry, exists := c.cache[key]
	if exists {
		c.remove(entry)
		delete(c.cache, key)
	}
	return exists
}

// Iterate calls the callback for each cached key-value pair until the
// callback returns false.
func (c *LruCache[K, V]) Iterate(callback func(K, V) bool) {
	for key, entry := range c.cache {
		if !callback(key, entry.val) {
			return
		}
	}
}

// Clear removes all entries.
func (c *LruCache[K, V]) Clear() {
	c.cache = make(map[K]*lruEntry[K, V], c.capacity)
	c.head = nil
	c.tail = nil
}

// GetMemoryFootprint provides the size of the cache in memory in bytes.
func (c *LruCache[K, V]) GetMemoryFootprint(referencedValueSize uintptr) *MemoryFootprint {
	var k K
	var v V
	entrySize := unsafe.Sizeof(lruEntry[K, V]{})
	size := uintptr(c.capacity) * (entrySize + unsafe.Sizeof(k) + unsafe.Sizeof(v) + referencedValueSize)
	return NewMemoryFootprint(unsafe.Sizeof(*c) + size)
}

func (c *LruCache[K, V]) touch(entry *lruEntry[K, V]) {
	c.remove(entry)
	c.pushFront(entry)
}

func (c *LruCache[K, V]) pushFront(entry *lruEntry[K, V]) {
	entry.prev = nil
	entry.next = c.head
	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry
	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LruCache[K, V]) remove(entry *lruEntry[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}
