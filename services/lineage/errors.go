// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lineage

import "errors"

// Sentinel errors for the lineage service.
var (
	// ErrInvalidIdentifier indicates an identifier that does not decode to
	// three words of the canonical length. It is distinct from ErrNotFound:
	// the input was never looked up.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNotFound indicates a well-formed identifier with no starter behind
	// it. Returned errors also match storage.ErrNotFound.
	ErrNotFound = errors.New("starter not found")

	// ErrValidation indicates a create request that failed field validation.
	ErrValidation = errors.New("request validation failed")

	// ErrStoreUnavailable indicates the store failed its readiness ping.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNilStore indicates NewService was given no store.
	ErrNilStore = errors.New("store must not be nil")
)
