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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/chamerge/internal/store"
)

func TestGCSObjectKey(t *testing.T) {
	key, err := gcsObjectKey(store.DependencyId(42))
	require.NoError(t, err)
	assert.Equal(t, "partial-graphs/42.json", key)
}

func TestOpenStores_RequiresFixtures(t *testing.T) {
	old := flagFixtures
	flagFixtures = ""
	defer func() { flagFixtures = old }()

	_, _, _, _, err := openStores(context.Background())
	assert.Error(t, err)
}

func TestOpenStores_LoadsFixturesWithoutGCS(t *testing.T) {
	oldFixtures, oldBucket := flagFixtures, cfg.GCS.Bucket
	defer func() { flagFixtures = oldFixtures; cfg.GCS.Bucket = oldBucket }()

	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dependencies":[{"coordinate":"g:a:1.0"}]}`), 0o600))
	flagFixtures = path
	cfg.GCS.Bucket = ""

	depStore, graphStore, edgeStore, closeFunc, err := openStores(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, depStore)
	assert.NotNil(t, graphStore)
	assert.NotNil(t, edgeStore)
	assert.NoError(t, closeFunc())
}
