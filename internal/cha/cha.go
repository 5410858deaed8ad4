// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cha builds the universal class hierarchy for a dependency closure:
// a directed graph of subtype/supertype relationships, with precomputed
// transitive ancestor and descendant sets per type. The closure is computed
// with an iterative worklist so cyclic (malformed) hierarchy metadata cannot
// cause unbounded recursion.
package cha

import (
	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/store"
)

// typeID is an interned, dense identifier for a TypeURI. Interning keeps the
// per-type adjacency and closure sets as slices of uint32 rather than
// hashed sets of strings, which dominates memory for closures spanning tens
// of thousands of types (spec.md §5).
type typeID uint32

// Hierarchy is the built universal class hierarchy: ancestors and
// descendants are both reflexive and transitively closed.
type Hierarchy struct {
	interned   []model.TypeURI
	ids        map[model.TypeURI]typeID
	children   [][]typeID // direct subtypes, indexed by typeID
	parents    [][]typeID // direct supertypes, indexed by typeID
	ancestors  [][]typeID // memoized transitive closures
	descendant [][]typeID
}

// Builder accumulates hierarchy rows before the closure is computed.
type Builder struct {
	ids      map[model.TypeURI]typeID
	interned []model.TypeURI
	children map[typeID]map[typeID]struct{}
	parents  map[typeID]map[typeID]struct{}
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		ids:      make(map[model.TypeURI]typeID),
		children: make(map[typeID]map[typeID]struct{}),
		parents:  make(map[typeID]map[typeID]struct{}),
	}
}

func (b *Builder) intern(t model.TypeURI) typeID {
	if id, ok := b.ids[t]; ok {
		return id
	}
	id := typeID(len(b.interned))
	b.interned = append(b.interned, t)
	b.ids[t] = id
	return id
}

// AddRow ingests one HierarchyRow, adding a parent->child edge for every
// (child=row.Namespace, parent) in superClasses ∪ superInterfaces. Duplicate
// edges are no-ops.
func (b *Builder) AddRow(row store.HierarchyRow) {
	child := b.intern(row.Namespace)
	for _, parent := range row.SuperClasses {
		b.addEdge(b.intern(parent), child)
	}
	for _, parent := range row.SuperInterfaces {
		b.addEdge(b.intern(parent), child)
	}
	// Ensure the type itself is a vertex even with no recorded parents.
	if _, ok := b.children[child]; !ok {
		b.children[child] = make(map[typeID]struct{})
	}
}

func (b *Builder) addEdge(parent, child typeID) {
	if _, ok := b.children[parent]; !ok {
		b.children[parent] = make(map[typeID]struct{})
	}
	b.children[parent][child] = struct{}{}
	if _, ok := b.parents[child]; !ok {
		b.parents[child] = make(map[typeID]struct{})
	}
	b.parents[child][parent] = struct{}{}
	if _, ok := b.children[child]; !ok {
		b.children[child] = make(map[typeID]struct{})
	}
	if _, ok := b.parents[parent]; !ok {
		b.parents[parent] = make(map[typeID]struct{})
	}
}

// Build computes the reflexive-transitive closure of every vertex's
// outgoing (descendants) and incoming (ancestors) edges using an iterative
// worklist with a visited set, so cycles in the raw metadata become fixed
// points rather than causing non-termination.
func (b *Builder) Build() *Hierarchy {
	n := len(b.interned)
	h := &Hierarchy{
		interned:   b.interned,
		ids:        b.ids,
		children:   make([][]typeID, n),
		parents:    make([][]typeID, n),
		ancestors:  make([][]typeID, n),
		descendant: make([][]typeID, n),
	}
	for id := typeID(0); int(id) < n; id++ {
		h.children[id] = setToSlice(b.children[id])
		h.parents[id] = setToSlice(b.parents[id])
	}
	for id := typeID(0); int(id) < n; id++ {
		h.descendant[id] = closure(id, h.children)
		h.ancestors[id] = closure(id, h.parents)
	}
	return h
}

func setToSlice(s map[typeID]struct{}) []typeID {
	if len(s) == 0 {
		return nil
	}
	out := make([]typeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// closure computes the reflexive-transitive closure of start following adj,
// via an explicit LIFO worklist (depth-first) guarded by a visited set.
func closure(start typeID, adj [][]typeID) []typeID {
	visited := map[typeID]struct{}{start: {}}
	worklist := []typeID{start}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, next := range adj[cur] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			worklist = append(worklist, next)
		}
	}
	out := make([]typeID, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	return out
}

// Descendants returns the reflexive-transitive set of subtypes of t
// (including t itself). Unknown types yield an empty set, not an error.
func (h *Hierarchy) Descendants(t model.TypeURI) []model.TypeURI {
	id, ok := h.ids[t]
	if !ok {
		return nil
	}
	return h.decodeAll(h.descendant[id])
}

// Ancestors returns the reflexive-transitive set of supertypes of t
// (including t itself). Unknown types yield an empty set, not an error.
func (h *Hierarchy) Ancestors(t model.TypeURI) []model.TypeURI {
	id, ok := h.ids[t]
	if !ok {
		return nil
	}
	return h.decodeAll(h.ancestors[id])
}

// Contains reports whether t was seen as a vertex during construction.
func (h *Hierarchy) Contains(t model.TypeURI) bool {
	_, ok := h.ids[t]
	return ok
}

func (h *Hierarchy) decodeAll(ids []typeID) []model.TypeURI {
	if len(ids) == 0 {
		return nil
	}
	out := make([]model.TypeURI, len(ids))
	for i, id := range ids {
		out[i] = h.interned[id]
	}
	return out
}
