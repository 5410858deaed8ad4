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
	"strings"
)

// Canonicalize attaches authority to rawURI and to every argument sub-URI in
// its signature that does not already carry one of its own; the return type
// after the closing parenthesis is left unchanged. It is the inverse of
// Decanonicalize for inputs with no cross-authority sub-URIs.
func Canonicalize(rawURI, authority string) (string, error) {
	scheme, existingAuthority, path, hasAuthority := splitAuthority(rawURI)
	if !hasAuthority {
		scheme = "fasten"
		existingAuthority = authority
	}

	_, argsStart, argsEnd, err := locateSignature(path)
	if err != nil {
		return "", err
	}
	head := path[:argsStart]
	args := path[argsStart:argsEnd]
	tail := path[argsEnd:]

	rewritten, err := rewriteTopLevelURIs(args, func(sub string) (string, error) {
		if sub == "" {
			return sub, nil
		}
		decoded, err := url.PathUnescape(sub)
		if err != nil {
			return "", fmt.Errorf("%w: invalid percent escape in argument %q", ErrMalformedURI, sub)
		}
		if _, _, _, already := splitAuthority(decoded); already {
			return sub, nil // already carries its own authority; leave as-is
		}
		canonical := fmt.Sprintf("%s://%s%s", scheme, authority, decoded)
		return url.PathEscape(canonical), nil
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s://%s%s", scheme, existingAuthority, head+rewritten+tail), nil
}

// Decanonicalize strips the authority from argument sub-URIs that match the
// outer URI's own authority, recovering the short form that was used before
// storage canonicalized it. The return type is left unchanged.
func Decanonicalize(rawURI string) (string, error) {
	scheme, authority, path, hasAuthority := splitAuthority(rawURI)

	_, argsStart, argsEnd, err := locateSignature(path)
	if err != nil {
		return "", err
	}
	head := path[:argsStart]
	args := path[argsStart:argsEnd]
	tail := path[argsEnd:]

	rewritten, err := rewriteTopLevelURIs(args, func(sub string) (string, error) {
		if sub == "" {
			return sub, nil
		}
		decoded, err := url.PathUnescape(sub)
		if err != nil {
			return "", fmt.Errorf("%w: invalid percent escape in argument %q", ErrMalformedURI, sub)
		}
		subScheme, subAuthority, subPath, subHasAuthority := splitAuthority(decoded)
		if !subHasAuthority {
			return sub, nil
		}
		if !hasAuthority || subScheme != scheme || subAuthority != authority {
			return sub, nil // cross-authority reference; keep the full form
		}
		return url.PathEscape(subPath), nil
	})
	if err != nil {
		return "", err
	}

	if !hasAuthority {
		return head + rewritten + tail, nil
	}
	return fmt.Sprintf("%s://%s%s", scheme, authority, head+rewritten+tail), nil
}

// locateSignature finds the offsets of the '(' and ')' delimiting the
// top-level argument list within a "/namespace/Class.sig" path, returning
// the start of the signature (the '.' separator index + 1), the index just
// after '(', and the index of the matching ')'.
func locateSignature(path string) (sigStart, argsStart, argsEnd int, err error) {
	if len(path) == 0 || path[0] != '/' {
		return 0, 0, 0, fmt.Errorf("%w: missing leading namespace separator in %q", ErrMalformedURI, path)
	}
	body := path[1:]
	slashIdx := strings.IndexByte(body, '/')
	if slashIdx <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: missing namespace/class separator in %q", ErrMalformedURI, path)
	}
	rest := body[slashIdx+1:]
	dotIdx, err := indexUnescapedByte(rest, '.')
	if err != nil || dotIdx <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: missing class/signature separator in %q", ErrMalformedURI, path)
	}
	sig := rest[dotIdx+1:]
	parenIdx, err := indexUnescapedByte(sig, '(')
	if err != nil || parenIdx < 0 {
		return 0, 0, 0, fmt.Errorf("%w: missing argument list in %q", ErrMalformedURI, path)
	}
	if err := validateBalancedParens(sig); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	closeIdx := matchingParen(sig, parenIdx)
	if closeIdx < 0 {
		return 0, 0, 0, fmt.Errorf("%w: unmatched '(' in %q", ErrMalformedURI, path)
	}

	base := 1 + slashIdx + 1 + dotIdx + 1 // offset of sig within path
	return base, base + parenIdx + 1, base + closeIdx, nil
}

// matchingParen returns the index (within s) of the ')' matching the '(' at
// openIdx, skipping percent-escaped bytes.
func matchingParen(s string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(s); i++ {
		switch s[i] {
		case '%':
			i += 2
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// rewriteTopLevelURIs splits a comma-separated argument list at top-level
// (unescaped) commas, applies fn to each element, and rejoins with commas.
func rewriteTopLevelURIs(args string, fn func(string) (string, error)) (string, error) {
	if args == "" {
		return "", nil
	}
	parts, err := splitTopLevel(args, ',')
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	for i, p := range parts {
		rewritten, err := fn(p)
		if err != nil {
			return "", err
		}
		parts[i] = rewritten
	}
	return strings.Join(parts, ","), nil
}

// splitTopLevel splits s on literal occurrences of sep, skipping over valid
// "%XX" escapes so an escaped separator never triggers a split.
func splitTopLevel(s string, sep byte) ([]string, error) {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return nil, fmt.Errorf("invalid percent escape at offset %d", i)
			}
			i += 2
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts, nil
}
