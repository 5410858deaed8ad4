// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package harvester selects the edges of the focal partial graph that need
// resolution and fetches their invocation-site metadata in one batched
// query. Internal-to-internal edges other than self-loops are already
// resolved and are emitted verbatim by the merge orchestrator; this package
// never sees them.
package harvester

import (
	"context"
	"fmt"
	"sort"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/store"
)

// Harvest selects arcs where the source or target is external, or the edge
// is a self-loop (possible super-constructor call), and fetches their
// invocation sites in one batched EdgeMetadataStore.Edges call. Arcs are
// returned sorted by (Source, Target) ascending so downstream resolution
// order — and therefore its logs — is deterministic.
func Harvest(ctx context.Context, metaStore store.EdgeMetadataStore, g *model.PartialGraph) ([]model.Arc, error) {
	edges := g.Edges()

	var selected []struct{ Source, Target model.CallableId }
	for _, e := range edges {
		if g.IsExternal(e.Source) || g.IsExternal(e.Target) || e.Source == e.Target {
			selected = append(selected, e)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Source != selected[j].Source {
			return selected[i].Source < selected[j].Source
		}
		return selected[i].Target < selected[j].Target
	})

	queries := make([]store.EdgeQuery, len(selected))
	for i, e := range selected {
		queries[i] = store.EdgeQuery{Source: e.Source, Target: e.Target}
	}

	metas, err := metaStore.Edges(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("fetch edge metadata: %w", err)
	}

	byPair := make(map[store.EdgeQuery][]model.InvocationSite, len(metas))
	for _, m := range metas {
		byPair[store.EdgeQuery{Source: m.Source, Target: m.Target}] = m.Sites
	}

	arcs := make([]model.Arc, 0, len(selected))
	for _, e := range selected {
		arcs = append(arcs, model.Arc{
			Source: e.Source,
			Target: e.Target,
			Sites:  byPair[store.EdgeQuery{Source: e.Source, Target: e.Target}],
		})
	}
	return arcs, nil
}
