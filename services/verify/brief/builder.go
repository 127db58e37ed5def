// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package brief assembles proof results into the terminal CandidateBrief
// artifact.
//
// A brief is write-once per version: Build always returns version 1 with a
// fresh id; the brief store assigns subsequent versions on regeneration and
// never overwrites an existing one.
package brief

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
	"github.com/AleutianAI/attest/services/verify/interview"
)

// ErrMissingSubject indicates Build was called without application or
// candidate identifiers.
var ErrMissingSubject = errors.New("brief: application and candidate ids are required")

// UnprovenClaim pairs an unproven result with its suggested follow-ups.
type UnprovenClaim struct {
	Result             datatypes.ProofResult         `json:"result"`
	SuggestedQuestions []interview.InterviewQuestion `json:"suggested_questions,omitempty"`
}

// CandidateBrief is the terminal, versioned artifact for an application.
type CandidateBrief struct {
	ID              string `json:"id"`
	ApplicationID   string `json:"application_id"`
	CandidateID     string `json:"candidate_id"`
	RoleID          string `json:"role_id,omitempty"`
	SimulationRunID string `json:"simulation_run_id,omitempty"`

	// Version starts at 1; the store assigns later versions.
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	ProvenClaims   []datatypes.ProofResult `json:"proven_claims"`
	UnprovenClaims []UnprovenClaim         `json:"unproven_claims"`

	RiskFlags []datatypes.RiskFlag `json:"risk_flags,omitempty"`

	// DimensionsCovered maps every known dimension to its coverage state.
	// A proven claim wins over everything for its dimensions.
	DimensionsCovered map[string]datatypes.CoverageStatus `json:"dimensions_covered"`

	// ProofRate is proven/total in [0,1]; 0.0 when no claims were evaluated.
	ProofRate float64 `json:"proof_rate"`

	// COMSnapshot records the operating model the proofs ran under.
	COMSnapshot com.COM `json:"com_snapshot"`
}

// BuildInput carries everything the builder needs. All fields are read-only.
type BuildInput struct {
	ApplicationID   string
	CandidateID     string
	RoleID          string
	SimulationRunID string

	ProofResults []datatypes.ProofResult
	Evidence     datatypes.Evidence

	// KnownDimensions seeds the coverage map (typically the claim
	// catalog's dimension set). Dimensions appearing on claims are added
	// regardless.
	KnownDimensions []string

	// Bank is the interview question bank; nil means the embedded default.
	Bank *interview.Bank

	COM com.COM
}

// Build assembles a CandidateBrief from proof results.
//
// A brief is always produced once the pipeline ran: everything-UNPROVED is
// a valid, complete output, not an error. The only failure is a missing
// subject, which is a programming error at the call site.
func Build(in BuildInput) (*CandidateBrief, error) {
	if in.ApplicationID == "" || in.CandidateID == "" {
		return nil, ErrMissingSubject
	}

	b := &CandidateBrief{
		ID:              uuid.NewString(),
		ApplicationID:   in.ApplicationID,
		CandidateID:     in.CandidateID,
		RoleID:          in.RoleID,
		SimulationRunID: in.SimulationRunID,
		Version:         1,
		GeneratedAt:     time.Now().UTC(),
		ProvenClaims:    make([]datatypes.ProofResult, 0),
		UnprovenClaims:  make([]UnprovenClaim, 0),
		COMSnapshot:     in.COM,
	}

	for _, res := range in.ProofResults {
		if res.Status == datatypes.StatusProved {
			b.ProvenClaims = append(b.ProvenClaims, res)
			continue
		}
		// Per-claim question generation, so each unproven claim carries
		// its own suggestions.
		qs := interview.Generate(in.Bank, []datatypes.ProofResult{res})
		b.UnprovenClaims = append(b.UnprovenClaims, UnprovenClaim{
			Result:             res,
			SuggestedQuestions: qs,
		})
	}

	b.DimensionsCovered = coverDimensions(in.KnownDimensions, in.ProofResults)
	b.RiskFlags = deriveRiskFlags(in.ProofResults, in.Evidence, in.COM)

	if total := len(in.ProofResults); total > 0 {
		b.ProofRate = float64(len(b.ProvenClaims)) / float64(total)
	}

	return b, nil
}

// coverDimensions computes per-dimension coverage. Unproven marks run
// first; proven marks overwrite afterwards, so proven can never be
// downgraded by a later unproven claim on the same dimension.
func coverDimensions(known []string, results []datatypes.ProofResult) map[string]datatypes.CoverageStatus {
	covered := make(map[string]datatypes.CoverageStatus, len(known))
	for _, d := range known {
		covered[d] = datatypes.CoverageNotEvaluated
	}
	for _, res := range results {
		for _, d := range res.Claim.Dimensions {
			if _, ok := covered[d]; !ok {
				covered[d] = datatypes.CoverageNotEvaluated
			}
		}
	}

	for _, res := range results {
		if res.Status != datatypes.StatusUnproved {
			continue
		}
		for _, d := range res.Claim.Dimensions {
			covered[d] = datatypes.CoverageUnproven
		}
	}
	for _, res := range results {
		if res.Status != datatypes.StatusProved {
			continue
		}
		for _, d := range res.Claim.Dimensions {
			covered[d] = datatypes.CoverageProven
		}
	}
	return covered
}
