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
	"encoding/json"
	"fmt"
	"os"

	"github.com/AleutianAI/chamerge/internal/model"
	"github.com/AleutianAI/chamerge/internal/store"
)

// fixturesDoc is the on-disk JSON shape consumed by LoadFile, the CLI's
// offline/fixture mode backing store. It is a separate wire type from the
// core model structs so that JSON tags never leak into internal/model.
type fixturesDoc struct {
	Dependencies []dependencyDoc   `json:"dependencies"`
	EdgeMetadata []edgeMetadataDoc `json:"edgeMetadata"`
}

type dependencyDoc struct {
	Coordinate string           `json:"coordinate"`
	Callables  []callableDoc    `json:"callables"`
	Hierarchy  []hierarchyDoc   `json:"hierarchy"`
	Graph      *partialGraphDoc `json:"graph"`
}

type callableDoc struct {
	ID        model.CallableId `json:"id"`
	FastenURI string           `json:"fastenUri"`
}

type hierarchyDoc struct {
	Namespace       model.TypeURI   `json:"namespace"`
	SuperClasses    []model.TypeURI `json:"superClasses"`
	SuperInterfaces []model.TypeURI `json:"superInterfaces"`
}

type partialGraphDoc struct {
	InternalNodes []model.CallableId    `json:"internalNodes"`
	ExternalNodes []model.CallableId    `json:"externalNodes"`
	Edges         [][2]model.CallableId `json:"edges"`
}

type edgeMetadataDoc struct {
	Source model.CallableId `json:"source"`
	Target model.CallableId `json:"target"`
	Sites  []siteDoc        `json:"sites"`
}

type siteDoc struct {
	SourceLine   int32  `json:"sourceLine"`
	Kind         string `json:"kind"`
	ReceiverType string `json:"receiverType"`
}

// LoadFile reads a fixtures JSON file and returns a populated Store, the
// CLI's "offline/fixture mode" DependencyStore/GraphStore/EdgeMetadataStore
// backing. The CLI always uses it as DependencyStore and EdgeMetadataStore;
// a configured GCS bucket replaces only the GraphStore.
func LoadFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memstore: read %s: %w", path, err)
	}

	var doc fixturesDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("memstore: parse %s: %w", path, err)
	}

	s := New()
	for _, dd := range doc.Dependencies {
		dep := Dependency{Coordinate: dd.Coordinate}
		for _, c := range dd.Callables {
			dep.Callables = append(dep.Callables, store.CallableRef{ID: c.ID, FastenURI: c.FastenURI})
		}
		for _, h := range dd.Hierarchy {
			dep.Hierarchy = append(dep.Hierarchy, store.HierarchyRow{
				Namespace:       h.Namespace,
				SuperClasses:    h.SuperClasses,
				SuperInterfaces: h.SuperInterfaces,
			})
		}
		if dd.Graph != nil {
			g := model.NewPartialGraph()
			for _, id := range dd.Graph.InternalNodes {
				g.AddInternalNode(id)
			}
			for _, id := range dd.Graph.ExternalNodes {
				g.AddExternalNode(id)
			}
			for _, e := range dd.Graph.Edges {
				g.AddEdge(e[0], e[1])
			}
			dep.Graph = g
		}
		s.AddDependency(dep)
	}

	for _, em := range doc.EdgeMetadata {
		sites := make([]model.InvocationSite, 0, len(em.Sites))
		for _, sd := range em.Sites {
			kind, err := parseKindName(sd.Kind)
			if err != nil {
				return nil, fmt.Errorf("memstore: %s: %w", path, err)
			}
			sites = append(sites, model.InvocationSite{
				SourceLine:   sd.SourceLine,
				Kind:         kind,
				ReceiverType: model.TypeURI(sd.ReceiverType),
			})
		}
		s.AddEdgeMetadata(em.Source, em.Target, sites)
	}

	return s, nil
}

func parseKindName(name string) (model.InvocationKind, error) {
	switch name {
	case "", "virtual":
		return model.InvocationVirtual, nil
	case "interface":
		return model.InvocationInterface, nil
	case "special":
		return model.InvocationSpecial, nil
	case "static":
		return model.InvocationStatic, nil
	case "dynamic":
		return model.InvocationDynamic, nil
	default:
		return 0, fmt.Errorf("unrecognized invocation kind %q", name)
	}
}
