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

import (
	"testing"
)

func TestLruCache_SetAndGet(t *testing.T) {
	cache := NewLruCache[int, string](3)
	if _, exists := cache.Get(1); exists {
		t.Errorf("empty cache reports a hit")
	}
	cache.Set(1, "a")
	if value, exists := cache.Get(1); !exists || value != "a" {
		t.Errorf("invalid value, got %s (%t), want a", value, exists)
	}
}

func TestLruCache_LeastRecentlyUsedEntryIsEvicted(t *testing.T) {
	cache := NewLruCache[int, string](2)
	cache.Set(1, "a")
	cache.Set(2, "b")
	cache.Get(1) // make 2 the least recently used entry

	evictedKey, evictedValue, evicted := cache.Set(3, "c")
	if !evicted || evictedKey != 2 || evictedValue != "b" {
		t.Errorf("invalid eviction, got %d/%s (%t), want 2/b", evictedKey, evictedValue, evicted)
	}
	if _, exists := cache.Get(2); exists {
		t.Errorf("evicted entry still present")
	}
	for key, want := range map[int]string{1: "a", 3: "c"} {
		if value, exists := cache.Get(key); !exists || value != want {
			t.Errorf("entry %d lost, got %s (%t), want %s", key, value, exists, want)
		}
	}
}

func TestLruCache_UpdatingDoesNotEvict(t *testing.T) {
	cache := NewLruCache[int, string](2)
	cache.Set(1, "a")
	cache.Set(2, "b")
	if _, _, evicted := cache.Set(1, "c"); evicted {
		t.Errorf("updating an entry evicted another one")
	}
	if value, _ := cache.Get(1); value != "c" {
		t.Errorf("invalid value after update, got %s, want c", value)
	}
}

func TestLruCache_RemovedEntriesAreGone(t *testing.T) {
	cache := NewLruCache[int, string](2)
	cache.Set(1, "a")
	if !cache.Remove(1) {
		t.Errorf("removing a present entry reports a miss")
	}
	if cache.Remove(1) {
		t.Errorf("removing an absent entry reports a hit")
	}
	if _, exists := cache.Get(1); exists {
		t.Errorf("removed entry still present")
	}
}

func TestLruCache_IterateVisitsAllEntries(t *testing.T) {
	cache := NewLruCache[int, string](3)
	cache.Set(1, "a")
	cache.Set(2, "b")
	visited := map[int]string{}
	cache.Iterate(func(key int, value string) bool {
		visited[key] = value
		return true
	})
	if len(visited) != 2 || visited[1] != "a" || visited[2] != "b" {
		t.Errorf("invalid entries visited: %v", visited)
	}
}
