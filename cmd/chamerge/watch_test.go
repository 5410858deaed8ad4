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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotPath_EmptyWhenNoOutputDir(t *testing.T) {
	old := watchOutputDir
	watchOutputDir = ""
	defer func() { watchOutputDir = old }()

	assert.Equal(t, "", snapshotPath())
}

func TestSnapshotPath_UnderOutputDir(t *testing.T) {
	old := watchOutputDir
	watchOutputDir = "/tmp/snapshots"
	defer func() { watchOutputDir = old }()

	got := snapshotPath()
	assert.True(t, strings.HasPrefix(got, "/tmp/snapshots/merge-"))
	assert.True(t, strings.HasSuffix(got, ".json"))
}
