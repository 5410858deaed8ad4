// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package merge is the orchestrator that ties every merger stage together
// into one Merge call: dependency resolution, parallel universal-hierarchy
// and type-dictionary construction, edge harvesting, resolution, and
// verbatim pass-through of already-resolved internal edges.
package merge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/chamerge/internal/cha"
	"github.com/AleutianAI/chamerge/internal/coordinate"
	"github.com/AleutianAI/chamerge/internal/harvester"
	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/nodetype"
	"github.com/AleutianAI/chamerge/internal/outgraph"
	"github.com/AleutianAI/chamerge/internal/report"
	"github.com/AleutianAI/chamerge/internal/resolver"
	"github.com/AleutianAI/chamerge/internal/store"
	"github.com/AleutianAI/chamerge/internal/typedict"
)

// Package-level tracer and meter for the orchestrator's otel instrumentation.
var (
	tracer = otel.Tracer("chamerge.merge")
	meter  = otel.Meter("chamerge.merge")
)

var (
	mergesTotal    metric.Int64Counter
	mergeDuration  metric.Float64Histogram
	harvestedArcs  metric.Int64Histogram
	metricsOnce    sync.Once
	metricsInitErr error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		mergesTotal, err = meter.Int64Counter(
			"chamerge_merges_total",
			metric.WithDescription("Total number of merge invocations"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		mergeDuration, err = meter.Float64Histogram(
			"chamerge_merge_duration_seconds",
			metric.WithDescription("Duration of a full merge invocation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		harvestedArcs, err = meter.Int64Histogram(
			"chamerge_harvested_arcs",
			metric.WithDescription("Number of arcs harvested per merge"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
	})
	return metricsInitErr
}

// Event is one progress notification emitted during a merge. Phase names are
// the stage just completed.
type Event struct {
	CorrelationID string
	Phase         string
	At            time.Time
}

const (
	PhaseResolveDependencies = "resolve_dependencies"
	PhaseFetchFocalGraph     = "fetch_focal_graph"
	PhaseBuildClosure        = "build_closure"
	PhaseHarvest             = "harvest"
	PhaseResolve             = "resolve"
	PhaseDone                = "done"
)

// Options configures one Merge invocation.
type Options struct {
	// DynamicSitePolicy governs unresolved "dynamic" invocation sites.
	DynamicSitePolicy resolver.DynamicSitePolicy
	// Warn receives one line per dynamic site under PolicyWarn. May be nil.
	Warn resolver.Warner
	// ShouldAbort is polled between harvested arcs during resolution. May be nil.
	ShouldAbort func() bool
	// Progress, if non-nil, receives one Event per completed phase. Sends are
	// best-effort: a full or unconsumed channel never blocks the merge.
	Progress chan<- Event
}

// Merge runs the full pipeline described in spec.md section 4 against
// focalCoordinate's partial graph, resolving cross-artifact edges against the
// dependency closure named by depCoordinates.
func Merge(ctx context.Context, depStore store.DependencyStore, graphStore store.GraphStore, edgeStore store.EdgeMetadataStore, focalCoordinate string, depCoordinates []string, opts Options) (*outgraph.MergedGraph, *report.MergeReport, error) {
	correlationID := uuid.NewString()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "Merge",
		trace.WithAttributes(
			attribute.String("merge.correlation_id", correlationID),
			attribute.String("merge.focal_coordinate", focalCoordinate),
			attribute.Int("merge.dependency_count", len(depCoordinates)),
		),
	)
	defer span.End()

	rep := report.New()
	emit := func(phase string) {
		if opts.Progress == nil {
			return
		}
		select {
		case opts.Progress <- Event{CorrelationID: correlationID, Phase: phase, At: time.Now()}:
		default:
		}
	}

	if _, err := coordinate.Parse(focalCoordinate); err != nil {
		return nil, rep, fmt.Errorf("parse focal coordinate: %w", err)
	}

	focalIDs, err := depStore.ResolveIds(ctx, []string{focalCoordinate})
	if err != nil {
		return nil, rep, fmt.Errorf("resolve focal coordinate: %w", err)
	}
	if len(focalIDs) != 1 {
		return nil, rep, model.ErrFocalGraphMissing
	}
	var focalID store.DependencyId
	for id := range focalIDs {
		focalID = id
	}

	uniqueDeps := make(map[string]struct{}, len(depCoordinates))
	for _, c := range depCoordinates {
		uniqueDeps[c] = struct{}{}
	}
	depIDs, err := depStore.ResolveIds(ctx, depCoordinates)
	if err != nil {
		return nil, rep, fmt.Errorf("resolve dependency coordinates: %w", err)
	}
	if dropped := len(uniqueDeps) - len(depIDs); dropped > 0 {
		rep.AddDependenciesDropped(int64(dropped))
	}
	emit(PhaseResolveDependencies)

	focalGraph, err := graphStore.PartialGraph(ctx, focalID)
	if err != nil {
		return nil, rep, fmt.Errorf("fetch focal partial graph: %w", err)
	}
	emit(PhaseFetchFocalGraph)

	closureIDs := make(map[store.DependencyId]struct{}, len(depIDs)+1)
	closureIDs[focalID] = struct{}{}
	for id := range depIDs {
		closureIDs[id] = struct{}{}
	}

	closureCallables, err := depStore.CallablesOf(ctx, closureIDs)
	if err != nil {
		return nil, rep, fmt.Errorf("fetch closure callables: %w", err)
	}

	var (
		hierarchy *cha.Hierarchy
		dict      *typedict.Dictionary
		nodes     *nodetype.Table
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := depStore.HierarchyOf(gctx, closureCallables)
		if err != nil {
			return fmt.Errorf("fetch hierarchy rows: %w", err)
		}
		b := cha.NewBuilder()
		for _, row := range rows {
			b.AddRow(row)
		}
		hierarchy = b.Build()
		return nil
	})
	g.Go(func() error {
		uris, err := depStore.URIsOf(gctx, closureCallables)
		if err != nil {
			return fmt.Errorf("fetch closure uris: %w", err)
		}
		b := typedict.NewBuilder()
		for _, id := range closureCallables {
			if raw, ok := uris[id]; ok {
				b.AddCallable(id, raw)
			}
		}
		dict = b.Build()
		rep.AddCallablesDropped(int64(len(b.Dropped())))
		return nil
	})
	g.Go(func() error {
		t, err := nodetype.Build(gctx, depStore, focalGraph)
		if err != nil {
			return fmt.Errorf("type focal graph nodes: %w", err)
		}
		nodes = t
		rep.AddCallablesDropped(int64(len(t.Dropped())))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, rep, err
	}
	emit(PhaseBuildClosure)

	arcs, err := harvester.Harvest(ctx, edgeStore, focalGraph)
	if err != nil {
		return nil, rep, fmt.Errorf("harvest edges: %w", err)
	}
	emit(PhaseHarvest)

	out := outgraph.NewBuilder()
	if err := resolver.Resolve(focalGraph, nodes, hierarchy, dict, arcs, out, rep, opts.DynamicSitePolicy, opts.Warn, opts.ShouldAbort); err != nil {
		return nil, rep, err
	}

	// Internal-to-internal edges other than self-loops are already fully
	// resolved inside the focal artifact; the Edge Harvester never selects
	// them, so they are added to the output graph verbatim here.
	for _, e := range focalEdgesSorted(focalGraph) {
		if e[0] == e[1] {
			continue
		}
		if focalGraph.IsExternal(e[0]) || focalGraph.IsExternal(e[1]) {
			continue
		}
		out.AddArc(e[0], e[1])
	}
	emit(PhaseResolve)

	merged := out.Freeze()
	emit(PhaseDone)

	if err := initMetrics(); err == nil {
		attrs := metric.WithAttributes(attribute.String("focal_coordinate", focalCoordinate))
		mergesTotal.Add(ctx, 1, attrs)
		mergeDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		harvestedArcs.Record(ctx, int64(len(arcs)), attrs)
	}

	span.SetAttributes(
		attribute.Int64("merge.dependencies_dropped", rep.Snapshot().DependenciesDropped),
		attribute.Int64("merge.callables_dropped", rep.Snapshot().CallablesDropped),
	)

	return merged, rep, nil
}

func focalEdgesSorted(g *model.PartialGraph) [][2]model.CallableId {
	edges := g.Edges()
	out := make([][2]model.CallableId, len(edges))
	for i, e := range edges {
		out[i] = [2]model.CallableId{e.Source, e.Target}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
