// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store declares the external collaborator contracts the merger
// depends on: dependency resolution, partial-graph retrieval, and edge
// metadata lookup. All three are out of scope for this module — the bytecode
// analyzer, the persistent metadata store, and the Maven resolver live
// elsewhere. The in-memory store in internal/store/memstore implements all
// three; internal/store/gcsstore implements GraphStore only.
package store

import (
	"context"

	"github.com/AleutianAI/chamerge/internal/model"
)

// DependencyId is an opaque identifier for a package-version assigned by the
// dependency store; it is unique across the target forge.
type DependencyId uint64

// HierarchyRow is one module's hierarchy metadata: its own namespace plus
// the namespaces of its direct super-classes and super-interfaces.
type HierarchyRow struct {
	Namespace       model.TypeURI
	SuperClasses    []model.TypeURI
	SuperInterfaces []model.TypeURI
}

// CallableRef pairs a CallableId with its undecoded FASTEN URI.
type CallableRef struct {
	ID       model.CallableId
	FastenURI string
}

// EdgeQuery identifies one (source, target) pair to fetch invocation sites
// for.
type EdgeQuery struct {
	Source model.CallableId
	Target model.CallableId
}

// EdgeMetadata is the invocation-site payload for one (source, target) pair.
type EdgeMetadata struct {
	Source model.CallableId
	Target model.CallableId
	Sites  []model.InvocationSite
}

// DependencyStore resolves coordinate strings to dependency ids and fetches
// the callables and hierarchy metadata owned by those ids.
//
// Failure handling follows spec.md §4.7: coordinates absent from the target
// forge are silently dropped (resolveIds degrades the closure rather than
// failing); per-dependency fetch failures inside CallablesOf/HierarchyOf are
// for the implementation to log and skip. An error returned from either call
// aborts the merge.
type DependencyStore interface {
	// ResolveIds deduplicates coordinates and returns the subset of ids
	// present under the target forge.
	ResolveIds(ctx context.Context, coordinates []string) (map[DependencyId]struct{}, error)

	// CallablesOf returns only the internal (non-external) callables of
	// each dependency's partial graph.
	CallablesOf(ctx context.Context, deps map[DependencyId]struct{}) ([]model.CallableId, error)

	// URIsOf batch-fetches the FASTEN URI for each callable.
	URIsOf(ctx context.Context, callables []model.CallableId) (map[model.CallableId]string, error)

	// HierarchyOf returns one row per module that owns at least one of the
	// given callables.
	HierarchyOf(ctx context.Context, callables []model.CallableId) ([]HierarchyRow, error)
}

// GraphStore fetches a partial call graph by dependency id.
type GraphStore interface {
	PartialGraph(ctx context.Context, dep DependencyId) (*model.PartialGraph, error)
}

// EdgeMetadataStore fetches invocation-site metadata for a batch of
// (source, target) pairs in one request.
type EdgeMetadataStore interface {
	Edges(ctx context.Context, queries []EdgeQuery) ([]EdgeMetadata, error)
}
