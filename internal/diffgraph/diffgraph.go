// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diffgraph computes and renders the difference between two merged
// call graphs, e.g. the same focal artifact merged against two dependency
// sets across a version bump.
package diffgraph

import (
	"bytes"
	"fmt"
	"sort"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/outgraph"
)

// Report is the set-level difference between two merged graphs.
type Report struct {
	AddedNodes   []model.CallableId
	RemovedNodes []model.CallableId
	AddedArcs    [][2]model.CallableId
	RemovedArcs  [][2]model.CallableId
}

// Diff computes the added and removed nodes and arcs going from a to b.
func Diff(a, b *outgraph.MergedGraph) Report {
	oldNodes := idSet(a.Nodes())
	newNodes := idSet(b.Nodes())

	var rep Report
	for _, n := range b.Nodes() {
		if !oldNodes[n] {
			rep.AddedNodes = append(rep.AddedNodes, n)
		}
	}
	for _, n := range a.Nodes() {
		if !newNodes[n] {
			rep.RemovedNodes = append(rep.RemovedNodes, n)
		}
	}

	oldArcs := arcSet(a.Arcs())
	newArcs := arcSet(b.Arcs())
	for _, e := range b.Arcs() {
		if !oldArcs[e] {
			rep.AddedArcs = append(rep.AddedArcs, e)
		}
	}
	for _, e := range a.Arcs() {
		if !newArcs[e] {
			rep.RemovedArcs = append(rep.RemovedArcs, e)
		}
	}
	return rep
}

// Render renders a unified-diff-style textual report, one synthetic file
// per source node whose successor list changed between a and b. Node
// "file" names are node/<id>; lines are target callable ids.
func Render(a, b *outgraph.MergedGraph) (string, error) {
	var out bytes.Buffer
	for _, src := range unionNodes(a, b) {
		oldSucc := a.Successors(src)
		newSucc := b.Successors(src)
		if equalIDs(oldSucc, newSucc) {
			continue
		}

		fd := fileDiffFor(src, oldSucc, newSucc)
		rendered, err := godiff.PrintFileDiff(fd)
		if err != nil {
			return "", fmt.Errorf("diffgraph: render node %d: %w", src, err)
		}
		out.Write(rendered)
	}
	return out.String(), nil
}

func fileDiffFor(src model.CallableId, oldSucc, newSucc []model.CallableId) *godiff.FileDiff {
	name := fmt.Sprintf("node/%d", src)
	body, oldCount, newCount := successorHunkBody(oldSucc, newSucc)
	hunk := &godiff.Hunk{
		OrigStartLine: 1,
		OrigLines:     int32(oldCount),
		NewStartLine:  1,
		NewLines:      int32(newCount),
		Body:          body,
	}
	return &godiff.FileDiff{OrigName: name, NewName: name, Hunks: []*godiff.Hunk{hunk}}
}

// successorHunkBody renders a hunk body over sorted successor id lists: one
// line per id, context (" "), deletion ("-"), or addition ("+") prefixed.
func successorHunkBody(oldSucc, newSucc []model.CallableId) ([]byte, int, int) {
	oldSet := idSet(oldSucc)
	newSet := idSet(newSucc)

	var buf bytes.Buffer
	oldCount, newCount := 0, 0
	for _, id := range oldSucc {
		if newSet[id] {
			fmt.Fprintf(&buf, " %d\n", id)
			oldCount++
			newCount++
		} else {
			fmt.Fprintf(&buf, "-%d\n", id)
			oldCount++
		}
	}
	for _, id := range newSucc {
		if !oldSet[id] {
			fmt.Fprintf(&buf, "+%d\n", id)
			newCount++
		}
	}
	return buf.Bytes(), oldCount, newCount
}

func unionNodes(a, b *outgraph.MergedGraph) []model.CallableId {
	seen := idSet(a.Nodes())
	out := append([]model.CallableId{}, a.Nodes()...)
	for _, n := range b.Nodes() {
		if !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	sortCallableIds(out)
	return out
}

func equalIDs(a, b []model.CallableId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func idSet(ids []model.CallableId) map[model.CallableId]bool {
	set := make(map[model.CallableId]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func arcSet(arcs [][2]model.CallableId) map[[2]model.CallableId]bool {
	set := make(map[[2]model.CallableId]bool, len(arcs))
	for _, a := range arcs {
		set[a] = true
	}
	return set
}

func sortCallableIds(ids []model.CallableId) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
