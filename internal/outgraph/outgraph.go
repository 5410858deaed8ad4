// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package outgraph accumulates the merged, resolved call graph. It follows
// the teacher's building/read-only graph lifecycle: a Builder accepts
// idempotent AddNode/AddArc calls, and Freeze produces an immutable
// MergedGraph snapshot with O(1) successor and predecessor iteration.
package outgraph

import (
	"sort"

	"github.com/AleutianAI/chamerge/internal/model"
)

// State is the lifecycle stage of a Builder.
type State int

const (
	// StateBuilding accepts AddNode/AddArc calls.
	StateBuilding State = iota
	// StateFrozen has been snapshotted into a MergedGraph and rejects
	// further mutation.
	StateFrozen
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// Builder accumulates nodes and arcs for one merge invocation.
type Builder struct {
	state      State
	nodes      map[model.CallableId]struct{}
	successors map[model.CallableId]map[model.CallableId]struct{}
}

// NewBuilder returns an empty, building-state Builder.
func NewBuilder() *Builder {
	return &Builder{
		state:      StateBuilding,
		nodes:      make(map[model.CallableId]struct{}),
		successors: make(map[model.CallableId]map[model.CallableId]struct{}),
	}
}

// AddNode idempotently records id as a node. No-op once frozen.
func (b *Builder) AddNode(id model.CallableId) {
	if b.state == StateFrozen {
		return
	}
	b.nodes[id] = struct{}{}
}

// AddArc idempotently records a directed arc from src to dst, adding both
// endpoints as nodes if they are not already present. No-op once frozen.
func (b *Builder) AddArc(src, dst model.CallableId) {
	if b.state == StateFrozen {
		return
	}
	b.AddNode(src)
	b.AddNode(dst)
	succ, ok := b.successors[src]
	if !ok {
		succ = make(map[model.CallableId]struct{})
		b.successors[src] = succ
	}
	succ[dst] = struct{}{}
}

// Freeze transitions the Builder to StateFrozen and returns an immutable
// MergedGraph snapshot. Calling Freeze more than once returns the same
// underlying data.
func (b *Builder) Freeze() *MergedGraph {
	b.state = StateFrozen

	predecessors := make(map[model.CallableId]map[model.CallableId]struct{}, len(b.nodes))
	for src, succs := range b.successors {
		for dst := range succs {
			pred, ok := predecessors[dst]
			if !ok {
				pred = make(map[model.CallableId]struct{})
				predecessors[dst] = pred
			}
			pred[src] = struct{}{}
		}
	}

	return &MergedGraph{
		nodes:        b.nodes,
		successors:   b.successors,
		predecessors: predecessors,
	}
}

// MergedGraph is the immutable, resolved cross-artifact call graph.
// Node identity is the CallableId; no node metadata is carried beyond the
// id, since metadata lookups happen out-of-band against the dependency
// store.
type MergedGraph struct {
	nodes        map[model.CallableId]struct{}
	successors   map[model.CallableId]map[model.CallableId]struct{}
	predecessors map[model.CallableId]map[model.CallableId]struct{}
}

// Nodes returns every node id, in ascending order.
func (g *MergedGraph) Nodes() []model.CallableId {
	out := make([]model.CallableId, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sortCallableIds(out)
	return out
}

// Successors returns the direct successors of id, in ascending order.
func (g *MergedGraph) Successors(id model.CallableId) []model.CallableId {
	return sortedKeys(g.successors[id])
}

// Predecessors returns the direct predecessors of id, in ascending order.
func (g *MergedGraph) Predecessors(id model.CallableId) []model.CallableId {
	return sortedKeys(g.predecessors[id])
}

// Arcs returns every (source, target) pair, lexicographically ordered for
// reproducibility.
func (g *MergedGraph) Arcs() [][2]model.CallableId {
	out := make([][2]model.CallableId, 0)
	for _, src := range g.Nodes() {
		for _, dst := range g.Successors(src) {
			out = append(out, [2]model.CallableId{src, dst})
		}
	}
	return out
}

// HasNode reports whether id was added as a node.
func (g *MergedGraph) HasNode(id model.CallableId) bool {
	_, ok := g.nodes[id]
	return ok
}

func sortedKeys(m map[model.CallableId]struct{}) []model.CallableId {
	out := make([]model.CallableId, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sortCallableIds(out)
	return out
}

func sortCallableIds(ids []model.CallableId) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
