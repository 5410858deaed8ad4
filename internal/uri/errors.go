// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package uri parses and canonicalizes method identifiers of the form
// "/<namespace>/<ClassName>.<signature>", where each argument and the return
// type inside the signature is a recursively percent-encoded sub-URI.
package uri

import "errors"

// ErrMalformedURI is the sentinel wrapped with call-site context whenever a
// URI fails to parse. A single callable's parse failure drops that callable
// from the type dictionary; it is never fatal to the merge.
var ErrMalformedURI = errors.New("malformed URI")
