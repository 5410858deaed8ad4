// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package uri

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/AleutianAI/chamerge/internal/model"
)

// authorityPattern matches a leading "<scheme>://<authority>" prefix on a
// full URI, e.g. "fasten://mvn!group:artifact$1.0/namespace/Class.m()V".
var authorityPattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*)://([^/]*)(/.*)$`)

// Parse decomposes a method URI into its Node: the declaring TypeURI and the
// Signature. It isolates the entity component (the path after any
// scheme://authority prefix), splits at the first unescaped '.', and
// percent-decodes the namespace/class-name half.
//
// Parse fails with ErrMalformedURI when: the namespace/class-name path is
// missing its leading '/'; there is no unescaped '.' separating the class
// name from the signature; the signature has unbalanced parentheses; or a
// percent escape is not valid hex.
func Parse(rawURI string) (model.Node, error) {
	path := stripAuthority(rawURI)

	if len(path) == 0 || path[0] != '/' {
		return model.Node{}, fmt.Errorf("%w: missing leading namespace separator in %q", ErrMalformedURI, rawURI)
	}
	body := path[1:]

	slashIdx := strings.IndexByte(body, '/')
	if slashIdx <= 0 {
		return model.Node{}, fmt.Errorf("%w: missing namespace/class separator in %q", ErrMalformedURI, rawURI)
	}
	namespace := body[:slashIdx]
	rest := body[slashIdx+1:]

	dotIdx, err := indexUnescapedByte(rest, '.')
	if err != nil {
		return model.Node{}, fmt.Errorf("%w: %v in %q", ErrMalformedURI, err, rawURI)
	}
	if dotIdx <= 0 {
		return model.Node{}, fmt.Errorf("%w: missing class/signature separator in %q", ErrMalformedURI, rawURI)
	}
	className := rest[:dotIdx]
	sig := rest[dotIdx+1:]

	if err := validateBalancedParens(sig); err != nil {
		return model.Node{}, fmt.Errorf("%w: %v in %q", ErrMalformedURI, err, rawURI)
	}

	decodedNamespace, err := url.PathUnescape(namespace)
	if err != nil {
		return model.Node{}, fmt.Errorf("%w: invalid percent escape in namespace %q", ErrMalformedURI, namespace)
	}
	decodedClassName, err := url.PathUnescape(className)
	if err != nil {
		return model.Node{}, fmt.Errorf("%w: invalid percent escape in class name %q", ErrMalformedURI, className)
	}

	return model.Node{
		TypeURI:   model.TypeURI("/" + decodedNamespace + "/" + decodedClassName),
		Signature: model.Signature(sig),
	}, nil
}

// Build composes a URI from a Node, the inverse of Parse for well-formed
// inputs. The namespace and class name are taken from typeURI (already
// percent-decoded form) and are percent-encoded back for storage.
func Build(typeURI model.TypeURI, sig model.Signature) (string, error) {
	trimmed := strings.TrimPrefix(string(typeURI), "/")
	slashIdx := strings.IndexByte(trimmed, '/')
	if slashIdx <= 0 {
		return "", fmt.Errorf("%w: type URI %q has no namespace/class separator", ErrMalformedURI, typeURI)
	}
	namespace := url.PathEscape(trimmed[:slashIdx])
	className := url.PathEscape(trimmed[slashIdx+1:])
	return "/" + namespace + "/" + className + "." + string(sig), nil
}

// stripAuthority removes a leading "scheme://authority" prefix, if present,
// returning just the "/namespace/Class.sig" path.
func stripAuthority(rawURI string) string {
	if m := authorityPattern.FindStringSubmatch(rawURI); m != nil {
		return m[3]
	}
	return rawURI
}

// splitAuthority separates a raw URI into (scheme, authority, path). ok is
// false when rawURI carries no scheme://authority prefix.
func splitAuthority(rawURI string) (scheme, authority, path string, ok bool) {
	m := authorityPattern.FindStringSubmatch(rawURI)
	if m == nil {
		return "", "", rawURI, false
	}
	return m[1], m[2], m[3], true
}

// indexUnescapedByte returns the index of the first literal occurrence of b
// in s, skipping over valid "%XX" percent-escape sequences. It returns an
// error if a '%' is not followed by two hex digits.
func indexUnescapedByte(s string, b byte) (int, error) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return 0, fmt.Errorf("invalid percent escape at offset %d", i)
			}
			i += 2
		case b:
			return i, nil
		}
	}
	return -1, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// validateBalancedParens walks a signature string and verifies its
// parentheses are balanced, skipping over percent-escaped bytes so an
// escaped paren (e.g. "%28") inside an argument sub-URI is never mistaken
// for signature-level grouping.
func validateBalancedParens(sig string) error {
	depth := 0
	for i := 0; i < len(sig); i++ {
		switch sig[i] {
		case '%':
			if i+2 >= len(sig) || !isHex(sig[i+1]) || !isHex(sig[i+2]) {
				return fmt.Errorf("invalid percent escape at offset %d", i)
			}
			i += 2
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses at offset %d", i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses: %d unclosed", depth)
	}
	return nil
}
