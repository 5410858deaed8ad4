// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeReport_Counters(t *testing.T) {
	r := New()
	r.AddDependenciesDropped(2)
	r.AddCallablesDropped(3)
	r.IncDynamicSiteUnresolved()
	r.IncDynamicSiteUnresolved()
	r.IncSiteResolvedZero()

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.DependenciesDropped)
	assert.Equal(t, int64(3), snap.CallablesDropped)
	assert.Equal(t, int64(2), snap.DynamicSitesUnresolved)
	assert.Equal(t, int64(1), snap.SitesResolvedZero)
}

func TestMergeReport_ConcurrentIncrementsAreSafe(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.IncDynamicSiteUnresolved()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), r.Snapshot().DynamicSitesUnresolved)
}
