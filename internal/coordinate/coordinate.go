// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coordinate parses the "group:artifact:version" strings that name
// a dependency closure's members, and orders them deterministically for
// closure-cache key derivation.
package coordinate

import (
	"fmt"
	"sort"
	"strings"
)

// Coordinate identifies a single artifact within a dependency closure.
type Coordinate struct {
	Group    string
	Artifact string
	Version  string
}

// String renders the coordinate back to its canonical "group:artifact:version" form.
func (c Coordinate) String() string {
	return c.Group + ":" + c.Artifact + ":" + c.Version
}

// Parse splits s into its group, artifact, and version components. The
// grammar is exactly two unescaped colons separating three non-empty
// components; there is no escaping, so a group or artifact containing a
// colon cannot be represented.
func Parse(s string) (Coordinate, error) {
	first := strings.IndexByte(s, ':')
	if first < 0 {
		return Coordinate{}, fmt.Errorf("%w: %q has no colon separators", ErrMalformedCoordinate, s)
	}
	last := strings.LastIndexByte(s, ':')
	if last == first {
		return Coordinate{}, fmt.Errorf("%w: %q has only one colon separator", ErrMalformedCoordinate, s)
	}
	if strings.IndexByte(s[first+1:last], ':') >= 0 {
		return Coordinate{}, fmt.Errorf("%w: %q has more than two colon separators", ErrMalformedCoordinate, s)
	}

	group := s[:first]
	artifact := s[first+1 : last]
	version := s[last+1:]
	if group == "" || artifact == "" || version == "" {
		return Coordinate{}, fmt.Errorf("%w: %q has an empty component", ErrMalformedCoordinate, s)
	}

	return Coordinate{Group: group, Artifact: artifact, Version: version}, nil
}

// ParseAll parses a slice of coordinate strings, failing on the first
// malformed entry.
func ParseAll(raw []string) ([]Coordinate, error) {
	out := make([]Coordinate, 0, len(raw))
	for _, s := range raw {
		c, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Sort orders coordinates lexicographically by their canonical string form,
// giving closure-cache keys a deterministic input regardless of discovery
// order.
func Sort(coords []Coordinate) {
	sort.Slice(coords, func(i, j int) bool {
		return coords[i].String() < coords[j].String()
	})
}
