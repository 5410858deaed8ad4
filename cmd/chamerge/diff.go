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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/chamerge/internal/diffgraph"
	"github.com/AleutianAI/chamerge/internal/outgraph"
)

// --- DIFF COMMAND FLAGS ---
var (
	diffOld string
	diffNew string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff two merged-graph snapshots (e.g. the same focal artifact across a dependency bump)",
	Run:   runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffOld, "old", "", "Path to the older merged-graph snapshot JSON (required)")
	diffCmd.Flags().StringVar(&diffNew, "new", "", "Path to the newer merged-graph snapshot JSON (required)")
	diffCmd.MarkFlagRequired("old")
	diffCmd.MarkFlagRequired("new")
}

func runDiff(cmd *cobra.Command, args []string) {
	oldGraph, err := readSnapshot(diffOld)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge diff:", err)
		os.Exit(ExitError)
	}
	newGraph, err := readSnapshot(diffNew)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge diff:", err)
		os.Exit(ExitError)
	}

	rep := diffgraph.Diff(oldGraph, newGraph)
	rendered, err := diffgraph.Render(oldGraph, newGraph)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge diff:", err)
		os.Exit(ExitError)
	}

	fmt.Printf("nodes added: %d, removed: %d\n", len(rep.AddedNodes), len(rep.RemovedNodes))
	fmt.Printf("arcs added: %d, removed: %d\n", len(rep.AddedArcs), len(rep.RemovedArcs))
	if rendered != "" {
		fmt.Println()
		fmt.Print(rendered)
	}
	os.Exit(ExitSuccess)
}

func readSnapshot(path string) (*outgraph.MergedGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return outgraph.ReadJSON(f)
}
