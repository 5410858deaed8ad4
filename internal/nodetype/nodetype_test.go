// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nodetype

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/store"
	"github.com/AleutianAI/chamerge/internal/store/memstore"
)

func TestBuild_TypesInternalAndExternalNodes(t *testing.T) {
	s := memstore.New()
	s.AddDependency(memstore.Dependency{
		Coordinate: "g:a:1.0",
		Callables: []store.CallableRef{
			{ID: 1, FastenURI: "/a/A.m()V"},
			{ID: 2, FastenURI: "/a/B.n()V"},
		},
	})

	g := model.NewPartialGraph()
	g.AddInternalNode(1)
	g.AddExternalNode(2)

	table, err := Build(context.Background(), s, g)
	require.NoError(t, err)

	n1, ok := table.Node(1)
	require.True(t, ok)
	assert.Equal(t, model.TypeURI("/a/A"), n1.TypeURI)

	n2, ok := table.Node(2)
	require.True(t, ok)
	assert.Equal(t, model.TypeURI("/a/B"), n2.TypeURI)
}

func TestBuild_MalformedURIIsDroppedNotFatal(t *testing.T) {
	s := memstore.New()
	s.AddDependency(memstore.Dependency{
		Coordinate: "g:a:1.0",
		Callables: []store.CallableRef{
			{ID: 1, FastenURI: "not-a-uri"},
		},
	})

	g := model.NewPartialGraph()
	g.AddInternalNode(1)

	table, err := Build(context.Background(), s, g)
	require.NoError(t, err)
	_, ok := table.Node(1)
	assert.False(t, ok)
	assert.Equal(t, []model.CallableId{1}, table.Dropped())
}
