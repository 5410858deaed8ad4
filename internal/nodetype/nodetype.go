// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nodetype resolves every node id referenced by the focal partial
// graph to a decoded Node(typeUri, signature), by fetching its FASTEN URI
// and running it through the URI codec.
package nodetype

import (
	"context"
	"fmt"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/store"
	"github.com/AleutianAI/chamerge/internal/uri"
)

// Table is the id -> Node mapping for one focal artifact's partial graph.
// Ids whose URI failed to parse are absent; callers treat a missing id as
// "untyped" rather than an error, per spec.md §4.7.
type Table struct {
	nodes   map[model.CallableId]model.Node
	dropped []model.CallableId
}

// Build fetches the URI of every id referenced by g (internal and external
// nodes alike) and decodes it into a Node.
func Build(ctx context.Context, depStore store.DependencyStore, g *model.PartialGraph) (*Table, error) {
	ids := make([]model.CallableId, 0, len(g.InternalNodes)+len(g.ExternalNodes))
	for id := range g.InternalNodes {
		ids = append(ids, id)
	}
	for id := range g.ExternalNodes {
		ids = append(ids, id)
	}

	uris, err := depStore.URIsOf(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch node uris: %w", err)
	}

	t := &Table{nodes: make(map[model.CallableId]model.Node, len(uris))}
	for _, id := range ids {
		raw, ok := uris[id]
		if !ok {
			t.dropped = append(t.dropped, id)
			continue
		}
		node, err := uri.Parse(raw)
		if err != nil {
			t.dropped = append(t.dropped, id)
			continue
		}
		t.nodes[id] = node
	}
	return t, nil
}

// Node returns the decoded Node for id, if it was successfully typed.
func (t *Table) Node(id model.CallableId) (model.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Dropped returns the ids whose URI could not be fetched or parsed.
func (t *Table) Dropped() []model.CallableId {
	return t.dropped
}
