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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/chamerge/internal/model"
)

func TestBuilder_IdempotentInsertion(t *testing.T) {
	b := NewBuilder()
	b.AddNode(1)
	b.AddArc(1, 2)
	b.AddArc(1, 2) // duplicate
	b.AddArc(1, 2)

	g := b.Freeze()
	assert.ElementsMatch(t, []model.CallableId{1, 2}, g.Nodes())
	assert.Equal(t, []model.CallableId{2}, g.Successors(1))
	assert.Equal(t, []model.CallableId{1}, g.Predecessors(2))
	assert.Len(t, g.Arcs(), 1)
}

func TestBuilder_FreezeRejectsFurtherMutation(t *testing.T) {
	b := NewBuilder()
	b.AddArc(1, 2)
	g := b.Freeze()

	b.AddArc(3, 4)
	g2 := b.Freeze()

	assert.False(t, g.HasNode(3))
	assert.False(t, g2.HasNode(3))
}

func TestMergedGraph_ArcsAreLexicographicallyOrdered(t *testing.T) {
	b := NewBuilder()
	b.AddArc(2, 9)
	b.AddArc(1, 5)
	b.AddArc(1, 2)

	g := b.Freeze()
	assert.Equal(t, [][2]model.CallableId{{1, 2}, {1, 5}, {2, 9}}, g.Arcs())
}
