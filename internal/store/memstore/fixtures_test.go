// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/store"
)

const sampleFixtures = `{
  "dependencies": [
    {
      "coordinate": "g:focal:1.0",
      "callables": [{"id": 1, "fastenUri": "/ns/Focal.m()V"}],
      "hierarchy": [{"namespace": "/ns/Focal", "superClasses": [], "superInterfaces": []}],
      "graph": {
        "internalNodes": [1],
        "externalNodes": [2],
        "edges": [[1, 2]]
      }
    },
    {
      "coordinate": "g:dep:1.0",
      "callables": [{"id": 2, "fastenUri": "/ns/Dep.n()V"}],
      "hierarchy": [{"namespace": "/ns/Dep", "superClasses": [], "superInterfaces": []}]
    }
  ],
  "edgeMetadata": [
    {"source": 1, "target": 2, "sites": [{"sourceLine": 10, "kind": "virtual", "receiverType": "/ns/Dep"}]}
  ]
}`

func writeFixtures(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadFile_PopulatesAllThreeStoreInterfaces(t *testing.T) {
	path := writeFixtures(t, sampleFixtures)
	s, err := LoadFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	ids, err := s.ResolveIds(ctx, []string{"g:focal:1.0", "g:dep:1.0"})
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	var focalID store.DependencyId
	for id, dep := range s.byID {
		if dep.Coordinate == "g:focal:1.0" {
			focalID = id
		}
	}

	graph, err := s.PartialGraph(ctx, focalID)
	require.NoError(t, err)
	assert.True(t, graph.IsInternal(1))
	assert.True(t, graph.IsExternal(2))

	sites, err := s.Edges(ctx, []store.EdgeQuery{{Source: 1, Target: 2}})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, model.InvocationVirtual, sites[0].Sites[0].Kind)
	assert.Equal(t, int32(10), sites[0].Sites[0].SourceLine)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadFile_MalformedJSON(t *testing.T) {
	path := writeFixtures(t, "{not json")
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_UnknownInvocationKind(t *testing.T) {
	path := writeFixtures(t, `{
	  "dependencies": [{"coordinate": "g:a:1.0"}],
	  "edgeMetadata": [{"source": 1, "target": 2, "sites": [{"kind": "bogus"}]}]
	}`)
	_, err := LoadFile(path)
	assert.Error(t, err)
}
