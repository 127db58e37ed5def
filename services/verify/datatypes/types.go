// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the core data model for claim verification.
//
// Every type here is immutable once constructed: constructors copy slices
// and maps, and no component mutates another component's output. The one
// hard contract lives in NewProofResult — a PROVED result with no evidence
// references is rejected at construction time, never at runtime downstream.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// verifyValidate is the shared validator instance for verification datatypes.
var verifyValidate *validator.Validate

func init() {
	verifyValidate = validator.New()
}

// ProofStatus is the outcome of evaluating a claim.
type ProofStatus string

const (
	// StatusProved means at least one rule demonstrated the claim from evidence.
	StatusProved ProofStatus = "PROVED"

	// StatusUnproved is the fail-closed default for everything else.
	StatusUnproved ProofStatus = "UNPROVED"
)

// Subject identifies who a claim is about.
type Subject struct {
	CandidateID   string `json:"candidate_id" validate:"required"`
	ApplicationID string `json:"application_id" validate:"required"`
}

// Claim is a specific, falsifiable assertion about a candidate.
//
// Claims are created by the claim generator and consumed by the proof
// engine. They are never mutated after construction.
type Claim struct {
	// ClaimType keys rule lookup (e.g. "added_regression_test").
	ClaimType string `json:"claim_type" validate:"required"`

	// Subject is the candidate/application the claim is about.
	Subject Subject `json:"subject" validate:"required"`

	// Statement is the human-readable assertion being proved.
	Statement string `json:"statement" validate:"required"`

	// Dimensions is the ordered set of rubric dimensions the claim speaks to.
	// The first entry is the primary dimension used for prioritization.
	Dimensions []string `json:"dimensions" validate:"required,min=1,dive,required"`

	// Confidence is the generator's prior in [0,1]. Informational only;
	// it never influences proof outcomes.
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`

	// EvidenceRequirements names the artifact kinds a rule needs to
	// evaluate this claim (e.g. "diff", "test_log").
	EvidenceRequirements []string `json:"evidence_requirements,omitempty"`
}

// NewClaim constructs a validated Claim.
//
// Outputs:
//   - Claim: The claim with defensively copied slices.
//   - error: Non-nil if required fields are missing or confidence is
//     outside [0,1].
func NewClaim(claimType string, subject Subject, statement string, dimensions []string, confidence float64, evidenceReqs []string) (Claim, error) {
	c := Claim{
		ClaimType:            claimType,
		Subject:              subject,
		Statement:            statement,
		Dimensions:           append([]string(nil), dimensions...),
		Confidence:           confidence,
		EvidenceRequirements: append([]string(nil), evidenceReqs...),
	}
	if err := verifyValidate.Struct(c); err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}
	return c, nil
}

// PrimaryDimension returns the first dimension, or "" for a zero claim.
func (c Claim) PrimaryDimension() string {
	if len(c.Dimensions) == 0 {
		return ""
	}
	return c.Dimensions[0]
}

// EvidenceRefType distinguishes metric citations from artifact citations.
type EvidenceRefType string

const (
	RefMetric   EvidenceRefType = "metric"
	RefArtifact EvidenceRefType = "artifact"
)

// EvidenceRef is a citation pointing at exactly one measured fact.
type EvidenceRef struct {
	Type  EvidenceRefType `json:"type"`
	ID    string          `json:"id"`
	Field string          `json:"field,omitempty"`
	Value any             `json:"value,omitempty"`
}

// MetricRef cites a named metric and the value a rule relied on.
func MetricRef(name string, value any) EvidenceRef {
	return EvidenceRef{Type: RefMetric, ID: name, Value: value}
}

// ArtifactRef cites a field inside an artifact (e.g. a writeup quote).
func ArtifactRef(id, field string, value any) EvidenceRef {
	return EvidenceRef{Type: RefArtifact, ID: id, Field: field, Value: value}
}

// ProofResult is the unit of audit: exactly one per claim per proof run.
type ProofResult struct {
	Claim        Claim         `json:"claim"`
	Status       ProofStatus   `json:"status"`
	EvidenceRefs []EvidenceRef `json:"evidence_refs,omitempty"`
	RuleID       string        `json:"rule_id"`
	Reason       string        `json:"reason"`
}

// NewProofResult constructs a validated ProofResult.
//
// A PROVED result must cite at least one evidence reference. This is the
// fail-closed contract: attempting to construct a PROVED result with empty
// refs is a programming error and returns ErrProvedWithoutEvidence.
func NewProofResult(claim Claim, status ProofStatus, ruleID, reason string, refs []EvidenceRef) (ProofResult, error) {
	if status != StatusProved && status != StatusUnproved {
		return ProofResult{}, fmt.Errorf("%w: status %q", ErrInvalidProofResult, status)
	}
	if ruleID == "" {
		return ProofResult{}, fmt.Errorf("%w: empty rule id", ErrInvalidProofResult)
	}
	if status == StatusProved && len(refs) == 0 {
		return ProofResult{}, fmt.Errorf("%w: rule %s", ErrProvedWithoutEvidence, ruleID)
	}
	return ProofResult{
		Claim:        claim,
		Status:       status,
		EvidenceRefs: append([]EvidenceRef(nil), refs...),
		RuleID:       ruleID,
		Reason:       reason,
	}, nil
}

// Unproved constructs an UNPROVED result. It cannot fail the evidence
// contract, so it returns the value directly.
func Unproved(claim Claim, ruleID, reason string, refs ...EvidenceRef) ProofResult {
	return ProofResult{
		Claim:        claim,
		Status:       StatusUnproved,
		EvidenceRefs: append([]EvidenceRef(nil), refs...),
		RuleID:       ruleID,
		Reason:       reason,
	}
}

// RiskSeverity grades a risk flag.
type RiskSeverity string

const (
	SeverityLow    RiskSeverity = "low"
	SeverityMedium RiskSeverity = "medium"
	SeverityHigh   RiskSeverity = "high"
)

// RiskFlag is a derived signal for the brief. It is not authoritative
// evidence and never feeds back into proof outcomes.
type RiskFlag struct {
	FlagType    string       `json:"flag_type"`
	Severity    RiskSeverity `json:"severity"`
	Description string       `json:"description"`
}

// CoverageStatus is the per-dimension coverage state in a brief.
type CoverageStatus string

const (
	CoverageProven       CoverageStatus = "proven"
	CoverageUnproven     CoverageStatus = "unproven"
	CoverageNotEvaluated CoverageStatus = "not_evaluated"
)
