// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package outgraph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/AleutianAI/chamerge/internal/model"
)

// snapshotDoc is the merge output wire format from spec.md section 6: nodes
// in ascending order, arcs lexicographically ordered. It mirrors the shape
// store/gcsstore writes to a bucket, so a snapshot is portable between a
// local file and an object-storage blob.
type snapshotDoc struct {
	Nodes []model.CallableId    `json:"nodes"`
	Arcs  [][2]model.CallableId `json:"arcs"`
}

// WriteJSON encodes g in the {nodes, arcs} wire format to w.
func WriteJSON(w io.Writer, g *MergedGraph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshotDoc{Nodes: g.Nodes(), Arcs: g.Arcs()}); err != nil {
		return fmt.Errorf("outgraph: encode snapshot: %w", err)
	}
	return nil
}

// ReadJSON decodes a previously written {nodes, arcs} snapshot back into a
// frozen MergedGraph.
func ReadJSON(r io.Reader) (*MergedGraph, error) {
	var doc snapshotDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("outgraph: decode snapshot: %w", err)
	}

	b := NewBuilder()
	for _, n := range doc.Nodes {
		b.AddNode(n)
	}
	for _, a := range doc.Arcs {
		b.AddArc(a[0], a[1])
	}
	return b.Freeze(), nil
}
