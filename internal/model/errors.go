// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import "errors"

// Sentinel errors shared across merger stages.
var (
	// ErrFocalGraphMissing indicates the focal artifact has no partial graph
	// in the GraphStore. Fatal to the merge per spec.md section 7.
	ErrFocalGraphMissing = errors.New("focal artifact has no partial graph")

	// ErrStoreUnavailable indicates an unrecoverable failure of an external
	// store during a batched fetch. Fatal per spec.md section 7.
	ErrStoreUnavailable = errors.New("external store unavailable")

	// ErrCancelled is returned when the cooperative shouldAbort check fires.
	ErrCancelled = errors.New("merge cancelled")
)
