// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typedict builds the (TypeURI, Signature) -> set<CallableId> index
// that the resolver uses to turn a dispatch target's receiver type into the
// concrete callables that implement it across the dependency closure.
package typedict

import (
	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/uri"
)

// Dictionary maps a type and signature to the set of callables declared
// there. A given CallableId appears under at most one (TypeURI, Signature)
// pair — the one implied by its own URI.
type Dictionary struct {
	entries map[model.TypeURI]map[model.Signature]map[model.CallableId]struct{}
}

// Builder accumulates callable URIs before the dictionary is frozen.
type Builder struct {
	dict    *Dictionary
	dropped []model.CallableId
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		dict: &Dictionary{entries: make(map[model.TypeURI]map[model.Signature]map[model.CallableId]struct{})},
	}
}

// AddCallable parses fastenURI and inserts id under the resulting
// (TypeURI, Signature). A parse failure drops the callable from the
// dictionary without aborting the build (spec.md §4.7); the id is recorded
// in Dropped for reporting.
func (b *Builder) AddCallable(id model.CallableId, fastenURI string) {
	node, err := uri.Parse(fastenURI)
	if err != nil {
		b.dropped = append(b.dropped, id)
		return
	}
	byType, ok := b.dict.entries[node.TypeURI]
	if !ok {
		byType = make(map[model.Signature]map[model.CallableId]struct{})
		b.dict.entries[node.TypeURI] = byType
	}
	bySig, ok := byType[node.Signature]
	if !ok {
		bySig = make(map[model.CallableId]struct{})
		byType[node.Signature] = bySig
	}
	bySig[id] = struct{}{}
}

// Dropped returns the ids that failed URI parsing and were excluded from
// the dictionary.
func (b *Builder) Dropped() []model.CallableId {
	return b.dropped
}

// Build returns the finished Dictionary.
func (b *Builder) Build() *Dictionary {
	return b.dict
}

// Lookup returns the callables declared under (typeURI, sig). Missing
// entries default to an empty (nil) slice rather than an error.
func (d *Dictionary) Lookup(typeURI model.TypeURI, sig model.Signature) []model.CallableId {
	byType, ok := d.entries[typeURI]
	if !ok {
		return nil
	}
	ids, ok := byType[sig]
	if !ok {
		return nil
	}
	out := make([]model.CallableId, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}
