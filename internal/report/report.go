// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report defines MergeReport, the side channel that surfaces
// non-fatal degradation (dropped dependencies, dropped callables, unresolved
// dynamic sites) alongside the merged graph.
package report

import "sync/atomic"

// MergeReport accumulates the counters a merge surfaces to its caller. All
// fields are accessed through atomic adds so the resolver's future
// parallelization does not require a lock.
type MergeReport struct {
	dependenciesDropped    int64
	callablesDropped       int64
	dynamicSitesUnresolved int64
	sitesResolvedZero      int64
}

// New returns an empty MergeReport.
func New() *MergeReport {
	return &MergeReport{}
}

// AddDependenciesDropped records n dependencies dropped from the closure
// (coordinate not found, or fetch failure).
func (r *MergeReport) AddDependenciesDropped(n int64) {
	atomic.AddInt64(&r.dependenciesDropped, n)
}

// AddCallablesDropped records n callables dropped from the type dictionary
// or node-typing table due to a missing or unparseable URI.
func (r *MergeReport) AddCallablesDropped(n int64) {
	atomic.AddInt64(&r.callablesDropped, n)
}

// IncDynamicSiteUnresolved records one dynamic-kind invocation site that
// produced no resolved edges.
func (r *MergeReport) IncDynamicSiteUnresolved() {
	atomic.AddInt64(&r.dynamicSitesUnresolved, 1)
}

// IncSiteResolvedZero records one non-dynamic site whose dispatch produced
// no resolved edges (unknown receiver type, or signature absent from every
// candidate's dictionary entry).
func (r *MergeReport) IncSiteResolvedZero() {
	atomic.AddInt64(&r.sitesResolvedZero, 1)
}

// Snapshot is a point-in-time, immutable read of the counters.
type Snapshot struct {
	DependenciesDropped    int64
	CallablesDropped       int64
	DynamicSitesUnresolved int64
	SitesResolvedZero      int64
}

// Snapshot reads the current counter values.
func (r *MergeReport) Snapshot() Snapshot {
	return Snapshot{
		DependenciesDropped:    atomic.LoadInt64(&r.dependenciesDropped),
		CallablesDropped:       atomic.LoadInt64(&r.callablesDropped),
		DynamicSitesUnresolved: atomic.LoadInt64(&r.dynamicSitesUnresolved),
		SitesResolvedZero:      atomic.LoadInt64(&r.sitesResolvedZero),
	}
}
