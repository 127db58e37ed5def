// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "errors"

// Sentinel errors for the verification data model.
var (
	// ErrInvalidClaim indicates a claim failed constructor validation.
	ErrInvalidClaim = errors.New("invalid claim")

	// ErrInvalidProofResult indicates a malformed proof result.
	ErrInvalidProofResult = errors.New("invalid proof result")

	// ErrProvedWithoutEvidence indicates an attempt to construct a PROVED
	// result with no evidence references. This is a contract violation,
	// not a recoverable runtime condition.
	ErrProvedWithoutEvidence = errors.New("proved result requires evidence refs")

	// ErrNoEvidence indicates a run arrived with neither metrics nor
	// artifacts. The orchestrator should treat this as a run-level failure.
	ErrNoEvidence = errors.New("no evidence: metrics and artifacts both absent")
)
