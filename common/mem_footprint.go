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
	"fmt"
	"sort"
	"strings"
)

// MemoryFootprintProvider is implemented by components able to report the
// approximate amount of main memory they occupy.
type MemoryFootprintProvider interface {
	GetMemoryFootprint() *MemoryFootprint
}

// MemoryFootprint describes the memory consumption of a component as a tree
// of the component's own size and the footprints of its named children.
type MemoryFootprint struct {
	value    uintptr
	children map[string]*MemoryFootprint
}

// NewMemoryFootprint creates a footprint node accounting for the given number
// of bytes owned directly by the component itself.
func NewMemoryFootprint(value uintptr) *MemoryFootprint {
	return &MemoryFootprint{
		value:    value,
		children: make(map[string]*MemoryFootprint),
	}
}

// AddChild attaches the footprint of a sub-component under the given name.
func (mf *MemoryFootprint) AddChild(name string, child *MemoryFootprint) {
	mf.children[name] = child
}

// Value provides the amount of bytes consumed by the component itself,
// not including its children.
func (mf *MemoryFootprint) Value() uintptr {
	return mf.value
}

// Total provides the amount of bytes consumed by the component including
// all its children. Shared children are counted only once.
func (mf *MemoryFootprint) Total() uintptr {
	seen := map[*MemoryFootprint]bool{}
	return mf.total(seen)
}

func (mf *MemoryFootprint) total(seen map[*MemoryFootprint]bool) uintptr {
	if seen[mf] {
		return 0
	}
	seen[mf] = true
	sum := mf.value
	for _, child := range mf.children {
		sum += child.total(seen)
	}
	return sum
}

func (mf *MemoryFootprint) String() string {
	var sb strings.Builder
	mf.describe(&sb, ".")
	return sb.String()
}

func (mf *MemoryFootprint) describe(sb *strings.Builder, path string) {
	names := make([]string, 0, len(mf.children))
	for name := range mf.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mf.children[name].describe(sb, path+"/"+name)
	}
	fmt.Fprintf(sb, "%d %s\n", mf.Total(), path)
}
