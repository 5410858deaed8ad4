// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AleutianAI/chamerge/internal/merge"
	"github.com/AleutianAI/chamerge/internal/outgraph"
	"github.com/AleutianAI/chamerge/internal/report"
	"github.com/AleutianAI/chamerge/internal/store"
	"github.com/AleutianAI/chamerge/internal/tui"
)

// runMergePipeline runs one Merge invocation against the loaded config's
// dynamic-site policy, rendering progress phases to stderr as they land and
// forwarding them to onEvent (if non-nil, e.g. for a websocket broadcast).
func runMergePipeline(ctx context.Context, depStore store.DependencyStore, graphStore store.GraphStore, edgeStore store.EdgeMetadataStore, focal string, deps []string, onEvent func(merge.Event)) (*outgraph.MergedGraph, *report.MergeReport, error) {
	policy, err := cfg.DynamicSitePolicyValue()
	if err != nil {
		return nil, nil, err
	}

	events := make(chan merge.Event, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			fmt.Fprintln(os.Stderr, tui.ProgressLine(e))
			if onEvent != nil {
				onEvent(e)
			}
		}
	}()

	opts := merge.Options{
		DynamicSitePolicy: policy,
		Warn:              func(msg string) { logger.Warn(msg) },
		Progress:          events,
	}

	graph, rep, err := merge.Merge(ctx, depStore, graphStore, edgeStore, focal, deps, opts)
	close(events)
	<-done
	return graph, rep, err
}

func tuiReportSummary(snap report.Snapshot) string {
	return tui.ReportSummary(snap)
}
