// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolver is the merger's hot loop: for every harvested arc and
// every invocation site on it, it applies Class Hierarchy Analysis to
// produce zero or more resolved (source, target) pairs in the output graph,
// and handles the direction inversion callback edges require.
package resolver

import (
	"errors"
	"strconv"

	"github.com/AleutianAI/chamerge/internal/cha"
	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/outgraph"
	"github.com/AleutianAI/chamerge/internal/report"
	"github.com/AleutianAI/chamerge/internal/typedict"
)

// NodeTyper resolves a callable id to its decoded Node, as produced by
// package nodetype. Declared as an interface here so the resolver's tests
// can supply a fixture without a store round-trip.
type NodeTyper interface {
	Node(id model.CallableId) (model.Node, bool)
}

// DynamicSitePolicy governs how an invocation site of kind "dynamic" is
// handled; dynamic dispatch is always unresolved, but the caller chooses
// whether that is merely logged or treated as a hard failure.
type DynamicSitePolicy int

const (
	// PolicyWarn logs the unresolved site and continues. Default.
	PolicyWarn DynamicSitePolicy = iota
	// PolicyDrop silently drops the site with no log.
	PolicyDrop
	// PolicyFail aborts the merge with ErrDynamicSiteRejected.
	PolicyFail
)

// ErrDynamicSiteRejected is returned when PolicyFail is configured and a
// dynamic invocation site is encountered.
var ErrDynamicSiteRejected = errors.New("dynamic invocation site rejected by policy")

// Warner receives one line of text per dynamic site under PolicyWarn. The
// merge orchestrator supplies its slog-backed logger; tests may pass nil.
type Warner func(msg string)

// Resolve runs the resolver over every harvested arc, emitting resolved
// edges into out. Arcs and their sites are walked in the order given — the
// caller (the Edge Harvester) is responsible for a deterministic order.
//
// Cancellation: shouldAbort is polled once per arc; on a true result,
// Resolve stops immediately and returns model.ErrCancelled. Partial output
// already written to out is the orchestrator's to discard.
func Resolve(
	focal *model.PartialGraph,
	nodes NodeTyper,
	hierarchy *cha.Hierarchy,
	dict *typedict.Dictionary,
	arcs []model.Arc,
	out *outgraph.Builder,
	rep *report.MergeReport,
	policy DynamicSitePolicy,
	warn Warner,
	shouldAbort func() bool,
) error {
	for _, arc := range arcs {
		if shouldAbort != nil && shouldAbort() {
			return model.ErrCancelled
		}

		node, isCallback, ok := typeContext(focal, nodes, arc)
		if !ok {
			continue // node typing failed upstream; already counted as dropped
		}

		emit := func(resolved model.CallableId) {
			if isCallback {
				out.AddArc(resolved, arc.Source)
			} else {
				out.AddArc(arc.Source, resolved)
			}
		}

		if node.IsConstructor() {
			for _, resolved := range resolveConstructorChain(hierarchy, dict, node) {
				emit(resolved)
			}
		}

		for _, site := range arc.Sites {
			resolved, err := dispatch(hierarchy, dict, node, site, policy, rep, warn)
			if err != nil {
				return err
			}
			if len(resolved) == 0 && site.Kind != model.InvocationDynamic {
				rep.IncSiteResolvedZero()
			}
			for _, r := range resolved {
				emit(r)
			}
		}
	}
	return nil
}

// typeContext implements spec.md §4.6 step 1: determine the type context
// (the declaring node whose signature drives dispatch) and whether the
// resolved edges must be emitted with their direction inverted.
func typeContext(focal *model.PartialGraph, nodes NodeTyper, arc model.Arc) (model.Node, bool, bool) {
	if focal.IsExternal(arc.Target) {
		node, ok := nodes.Node(arc.Target)
		return node, false, ok
	}
	node, ok := nodes.Node(arc.Source)
	return node, focal.IsExternal(arc.Source), ok
}

// dispatch resolves one invocation site against the type dictionary,
// following the table in spec.md §4.6.
func dispatch(
	hierarchy *cha.Hierarchy,
	dict *typedict.Dictionary,
	node model.Node,
	site model.InvocationSite,
	policy DynamicSitePolicy,
	rep *report.MergeReport,
	warn Warner,
) ([]model.CallableId, error) {
	switch site.Kind {
	case model.InvocationVirtual, model.InvocationInterface:
		var out []model.CallableId
		for _, t := range hierarchy.Descendants(site.ReceiverType) {
			out = append(out, dict.Lookup(t, node.Signature)...)
		}
		return out, nil

	case model.InvocationSpecial:
		// Special dispatch is constructor/super dispatch: resolved the same
		// way as the implicit constructor chain, scoped to this node.
		return resolveConstructorChain(hierarchy, dict, node), nil

	case model.InvocationDynamic:
		rep.IncDynamicSiteUnresolved()
		switch policy {
		case PolicyFail:
			return nil, ErrDynamicSiteRejected
		case PolicyWarn:
			if warn != nil {
				warn("unresolved dynamic invocation site at line " + strconv.Itoa(int(site.SourceLine)))
			}
		}
		return nil, nil

	default: // static, and unknown kinds per spec.md §6 ("unknown kinds map to static")
		return dict.Lookup(site.ReceiverType, node.Signature), nil
	}
}

// resolveConstructorChain implements spec.md §4.6: for every ancestor of
// node's declaring type (reflexive), emit edges to the super-constructor of
// the same signature and to the static initializer triggered by
// instantiating that ancestor.
func resolveConstructorChain(hierarchy *cha.Hierarchy, dict *typedict.Dictionary, node model.Node) []model.CallableId {
	var out []model.CallableId
	clinitSig := node.ClinitSignature()
	for _, ancestor := range hierarchy.Ancestors(node.TypeURI) {
		out = append(out, dict.Lookup(ancestor, node.Signature)...)
		out = append(out, dict.Lookup(ancestor, clinitSig)...)
	}
	return out
}
