// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memstore is a fully in-memory implementation of the store
// interfaces, used by component tests and by the merge orchestrator's own
// test suite in place of a real dependency/graph/metadata backend.
package memstore

import (
	"context"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/store"
)

// Dependency is one fixture entry: a coordinate plus the data it owns.
type Dependency struct {
	Coordinate string
	Callables  []store.CallableRef
	Hierarchy  []store.HierarchyRow
	Graph      *model.PartialGraph
}

// Store is an in-memory DependencyStore + GraphStore + EdgeMetadataStore
// backed by a fixed set of Dependency fixtures and an edge-metadata table
// keyed by (source, target).
type Store struct {
	byCoordinate map[string]store.DependencyId
	byID         map[store.DependencyId]Dependency
	edges        map[store.EdgeQuery][]model.InvocationSite
	nextID       store.DependencyId
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		byCoordinate: make(map[string]store.DependencyId),
		byID:         make(map[store.DependencyId]Dependency),
		edges:        make(map[store.EdgeQuery][]model.InvocationSite),
	}
}

// AddDependency registers a fixture dependency under a fresh DependencyId
// and returns that id.
func (s *Store) AddDependency(dep Dependency) store.DependencyId {
	s.nextID++
	id := s.nextID
	s.byCoordinate[dep.Coordinate] = id
	s.byID[id] = dep
	return id
}

// AddEdgeMetadata registers the invocation sites for one (source, target) pair.
func (s *Store) AddEdgeMetadata(source, target model.CallableId, sites []model.InvocationSite) {
	s.edges[store.EdgeQuery{Source: source, Target: target}] = sites
}

// ResolveIds implements store.DependencyStore.
func (s *Store) ResolveIds(_ context.Context, coordinates []string) (map[store.DependencyId]struct{}, error) {
	seen := make(map[string]struct{}, len(coordinates))
	out := make(map[store.DependencyId]struct{})
	for _, c := range coordinates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if id, ok := s.byCoordinate[c]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// CallablesOf implements store.DependencyStore.
func (s *Store) CallablesOf(_ context.Context, deps map[store.DependencyId]struct{}) ([]model.CallableId, error) {
	var out []model.CallableId
	for id := range deps {
		dep, ok := s.byID[id]
		if !ok {
			continue
		}
		for _, ref := range dep.Callables {
			out = append(out, ref.ID)
		}
	}
	return out, nil
}

// URIsOf implements store.DependencyStore.
func (s *Store) URIsOf(_ context.Context, callables []model.CallableId) (map[model.CallableId]string, error) {
	want := make(map[model.CallableId]struct{}, len(callables))
	for _, c := range callables {
		want[c] = struct{}{}
	}
	out := make(map[model.CallableId]string)
	for _, dep := range s.byID {
		for _, ref := range dep.Callables {
			if _, ok := want[ref.ID]; ok {
				out[ref.ID] = ref.FastenURI
			}
		}
	}
	return out, nil
}

// HierarchyOf implements store.DependencyStore. The fixture model does not
// filter rows by the requested callable set; it returns the hierarchy of
// every registered dependency, matching common test usage where callers
// pass the full closure's callables back in.
func (s *Store) HierarchyOf(_ context.Context, _ []model.CallableId) ([]store.HierarchyRow, error) {
	var out []store.HierarchyRow
	for _, dep := range s.byID {
		out = append(out, dep.Hierarchy...)
	}
	return out, nil
}

// PartialGraph implements store.GraphStore.
func (s *Store) PartialGraph(_ context.Context, dep store.DependencyId) (*model.PartialGraph, error) {
	d, ok := s.byID[dep]
	if !ok || d.Graph == nil {
		return nil, model.ErrFocalGraphMissing
	}
	return d.Graph, nil
}

// Edges implements store.EdgeMetadataStore.
func (s *Store) Edges(_ context.Context, queries []store.EdgeQuery) ([]store.EdgeMetadata, error) {
	out := make([]store.EdgeMetadata, 0, len(queries))
	for _, q := range queries {
		sites, ok := s.edges[q]
		if !ok {
			continue
		}
		out = append(out, store.EdgeMetadata{Source: q.Source, Target: q.Target, Sites: sites})
	}
	return out, nil
}
