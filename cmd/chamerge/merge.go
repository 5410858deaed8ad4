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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/chamerge/internal/outgraph"
	"github.com/AleutianAI/chamerge/internal/report"
)

// --- MERGE COMMAND FLAGS ---
var (
	mergeFocal      string
	mergeDeps       []string
	mergeOutputPath string
	mergeJSON       bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the focal artifact's partial graph against its dependency closure",
	Run:   runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeFocal, "focal", "", "Focal artifact coordinate (required)")
	mergeCmd.Flags().StringSliceVar(&mergeDeps, "dep", nil, "Dependency coordinate; repeatable")
	mergeCmd.Flags().StringVar(&mergeOutputPath, "output", "", "Path to write the merged-graph snapshot JSON (default: stdout)")
	mergeCmd.Flags().BoolVar(&mergeJSON, "json", false, "Print the merge report as JSON instead of a styled terminal box")
	mergeCmd.MarkFlagRequired("focal")
}

func runMerge(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	depStore, graphStore, edgeStore, closeStores, err := openStores(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge merge:", err)
		os.Exit(ExitError)
	}
	defer closeStores()

	graph, rep, err := runMergePipeline(ctx, depStore, graphStore, edgeStore, mergeFocal, mergeDeps, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge merge:", err)
		os.Exit(ExitError)
	}

	if err := writeSnapshot(graph, mergeOutputPath); err != nil {
		fmt.Fprintln(os.Stderr, "chamerge merge:", err)
		os.Exit(ExitError)
	}

	if mergeJSON {
		fmt.Println(reportJSON(rep.Snapshot()))
	} else {
		fmt.Println(tuiReportSummary(rep.Snapshot()))
	}
	os.Exit(ExitSuccess)
}

func writeSnapshot(graph *outgraph.MergedGraph, path string) error {
	if path == "" {
		return outgraph.WriteJSON(os.Stdout, graph)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	return outgraph.WriteJSON(f, graph)
}

func reportJSON(snap report.Snapshot) string {
	return fmt.Sprintf(`{"dependenciesDropped":%d,"callablesDropped":%d,"dynamicSitesUnresolved":%d,"sitesResolvedZero":%d}`,
		snap.DependenciesDropped, snap.CallablesDropped, snap.DynamicSitesUnresolved, snap.SitesResolvedZero)
}
