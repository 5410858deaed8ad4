// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/chamerge/internal/cha"
	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/outgraph"
	"github.com/AleutianAI/chamerge/internal/report"
	"github.com/AleutianAI/chamerge/internal/store"
	"github.com/AleutianAI/chamerge/internal/typedict"
)

// fakeNodes is a fixture satisfying resolver.NodeTyper without a store
// round-trip.
type fakeNodes struct {
	entries map[model.CallableId]model.Node
}

func (f *fakeNodes) Node(id model.CallableId) (model.Node, bool) {
	n, ok := f.entries[id]
	return n, ok
}

func TestResolve_VirtualDispatchOverSubclasses(t *testing.T) {
	b := cha.NewBuilder()
	b.AddRow(store.HierarchyRow{Namespace: "/a/A"})
	b.AddRow(store.HierarchyRow{Namespace: "/a/B", SuperClasses: []model.TypeURI{"/a/A"}})
	b.AddRow(store.HierarchyRow{Namespace: "/a/C", SuperClasses: []model.TypeURI{"/a/A"}})
	hierarchy := b.Build()

	dict := typedict.NewBuilder()
	dict.AddCallable(1, "/a/A.m()V")
	dict.AddCallable(2, "/a/B.m()V")
	dict.AddCallable(3, "/a/C.m()V")
	d := dict.Build()

	focal := model.NewPartialGraph()
	focal.AddExternalNode(100)
	focal.AddInternalNode(200)
	focal.AddEdge(200, 100)

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{
		100: {TypeURI: "/a/A", Signature: "m()V"},
	}}

	arcs := []model.Arc{{
		Source: 200, Target: 100,
		Sites: []model.InvocationSite{{SourceLine: 1, Kind: model.InvocationVirtual, ReceiverType: "/a/A"}},
	}}

	out := outgraph.NewBuilder()
	rep := report.New()
	err := Resolve(focal, nodes, hierarchy, d, arcs, out, rep, PolicyWarn, nil, nil)
	require.NoError(t, err)

	g := out.Freeze()
	assert.ElementsMatch(t, []model.CallableId{1, 2, 3}, g.Successors(200))
}

func TestResolve_InterfaceDispatch(t *testing.T) {
	b := cha.NewBuilder()
	b.AddRow(store.HierarchyRow{Namespace: "/a/I"})
	b.AddRow(store.HierarchyRow{Namespace: "/a/X", SuperInterfaces: []model.TypeURI{"/a/I"}})
	b.AddRow(store.HierarchyRow{Namespace: "/a/Y", SuperInterfaces: []model.TypeURI{"/a/I"}})
	hierarchy := b.Build()

	dict := typedict.NewBuilder()
	dict.AddCallable(10, "/a/X.m()V")
	d := dict.Build()

	focal := model.NewPartialGraph()
	focal.AddExternalNode(1)
	focal.AddInternalNode(2)
	focal.AddEdge(2, 1)

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{1: {TypeURI: "/a/I", Signature: "m()V"}}}
	arcs := []model.Arc{{Source: 2, Target: 1, Sites: []model.InvocationSite{{Kind: model.InvocationInterface, ReceiverType: "/a/I"}}}}

	out := outgraph.NewBuilder()
	rep := report.New()
	require.NoError(t, Resolve(focal, nodes, hierarchy, d, arcs, out, rep, PolicyWarn, nil, nil))

	g := out.Freeze()
	assert.Equal(t, []model.CallableId{10}, g.Successors(2))
}

func TestResolve_StaticCall(t *testing.T) {
	hierarchy := cha.NewBuilder().Build()
	dict := typedict.NewBuilder()
	dict.AddCallable(42, "/a/U.s()V")
	d := dict.Build()

	focal := model.NewPartialGraph()
	focal.AddExternalNode(1)
	focal.AddInternalNode(2)
	focal.AddEdge(2, 1)

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{1: {TypeURI: "/a/U", Signature: "s()V"}}}
	arcs := []model.Arc{{Source: 2, Target: 1, Sites: []model.InvocationSite{{Kind: model.InvocationStatic, ReceiverType: "/a/U"}}}}

	out := outgraph.NewBuilder()
	rep := report.New()
	require.NoError(t, Resolve(focal, nodes, hierarchy, d, arcs, out, rep, PolicyWarn, nil, nil))

	g := out.Freeze()
	assert.Equal(t, []model.CallableId{42}, g.Successors(2))
}

func TestResolve_ConstructorChain(t *testing.T) {
	b := cha.NewBuilder()
	b.AddRow(store.HierarchyRow{Namespace: "/a/Object"})
	b.AddRow(store.HierarchyRow{Namespace: "/a/Super", SuperClasses: []model.TypeURI{"/a/Object"}})
	b.AddRow(store.HierarchyRow{Namespace: "/a/Sub", SuperClasses: []model.TypeURI{"/a/Super"}})
	hierarchy := b.Build()

	dict := typedict.NewBuilder()
	dict.AddCallable(100, "/a/Super.<init>()V")
	dict.AddCallable(200, "/a/Object.<init>()V")
	dict.AddCallable(101, "/a/Super.<clinit>()V")
	d := dict.Build()

	focal := model.NewPartialGraph()
	focal.AddInternalNode(5)
	focal.AddEdge(5, 5) // self-loop representing the implicit super-ctor call

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{5: {TypeURI: "/a/Sub", Signature: "<init>()V"}}}
	arcs := []model.Arc{{Source: 5, Target: 5, Sites: nil}}

	out := outgraph.NewBuilder()
	rep := report.New()
	require.NoError(t, Resolve(focal, nodes, hierarchy, d, arcs, out, rep, PolicyWarn, nil, nil))

	g := out.Freeze()
	assert.ElementsMatch(t, []model.CallableId{100, 200, 101}, g.Successors(5))
}

func TestResolve_DynamicSiteWarnPolicy(t *testing.T) {
	hierarchy := cha.NewBuilder().Build()
	dict := typedict.NewBuilder().Build()

	focal := model.NewPartialGraph()
	focal.AddExternalNode(1)
	focal.AddInternalNode(2)
	focal.AddEdge(2, 1)

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{1: {TypeURI: "/a/U", Signature: "s()V"}}}
	arcs := []model.Arc{{Source: 2, Target: 1, Sites: []model.InvocationSite{{Kind: model.InvocationDynamic, ReceiverType: "/a/U"}}}}

	out := outgraph.NewBuilder()
	rep := report.New()
	require.NoError(t, Resolve(focal, nodes, hierarchy, dict, arcs, out, rep, PolicyWarn, func(string) {}, nil))

	g := out.Freeze()
	assert.Empty(t, g.Successors(2))
	assert.Equal(t, int64(1), rep.Snapshot().DynamicSitesUnresolved)
}

func TestResolve_DynamicSiteFailPolicy(t *testing.T) {
	hierarchy := cha.NewBuilder().Build()
	dict := typedict.NewBuilder().Build()

	focal := model.NewPartialGraph()
	focal.AddExternalNode(1)
	focal.AddInternalNode(2)
	focal.AddEdge(2, 1)

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{1: {TypeURI: "/a/U", Signature: "s()V"}}}
	arcs := []model.Arc{{Source: 2, Target: 1, Sites: []model.InvocationSite{{Kind: model.InvocationDynamic, ReceiverType: "/a/U"}}}}

	out := outgraph.NewBuilder()
	rep := report.New()
	err := Resolve(focal, nodes, hierarchy, dict, arcs, out, rep, PolicyFail, nil, nil)
	assert.ErrorIs(t, err, ErrDynamicSiteRejected)
}

func TestResolve_CallbackEdgeInvertsDirection(t *testing.T) {
	hb := cha.NewBuilder()
	hb.AddRow(store.HierarchyRow{Namespace: "/a/Focal"})
	hierarchy := hb.Build()
	dict := typedict.NewBuilder()
	dict.AddCallable(7, "/a/Focal.m()V")
	d := dict.Build()

	focal := model.NewPartialGraph()
	focal.AddExternalNode(1) // source is external: a callback into the focal artifact
	focal.AddInternalNode(2)
	focal.AddEdge(1, 2)

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{2: {TypeURI: "/a/Focal", Signature: "m()V"}}}
	arcs := []model.Arc{{Source: 1, Target: 2, Sites: []model.InvocationSite{{Kind: model.InvocationVirtual, ReceiverType: "/a/Focal"}}}}

	out := outgraph.NewBuilder()
	rep := report.New()
	require.NoError(t, Resolve(focal, nodes, hierarchy, d, arcs, out, rep, PolicyWarn, nil, nil))

	g := out.Freeze()
	// direction inverted: resolved target (7) -> original source (1)
	assert.Equal(t, []model.CallableId{1}, g.Successors(7))
	assert.Empty(t, g.Successors(1))
}

func TestResolve_CancellationStopsAtNextArc(t *testing.T) {
	hierarchy := cha.NewBuilder().Build()
	dict := typedict.NewBuilder().Build()
	focal := model.NewPartialGraph()
	focal.AddInternalNode(1)
	focal.AddInternalNode(2)
	focal.AddEdge(1, 1)
	focal.AddEdge(2, 2)

	nodes := &fakeNodes{entries: map[model.CallableId]model.Node{1: {}, 2: {}}}
	arcs := []model.Arc{{Source: 1, Target: 1}, {Source: 2, Target: 2}}

	out := outgraph.NewBuilder()
	rep := report.New()
	calls := 0
	err := Resolve(focal, nodes, hierarchy, dict, arcs, out, rep, PolicyWarn, nil, func() bool {
		calls++
		return calls > 1
	})
	assert.ErrorIs(t, err, model.ErrCancelled)
}
