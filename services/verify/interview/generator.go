// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package interview maps unproven claims to follow-up interview questions.
//
// The mapping is deterministic and purely static: each unproven claim's
// first uncovered dimension selects one bank entry. Output capping (e.g.
// top 10) is the caller's concern, not this package's.
package interview

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/attest/services/verify/datatypes"
)

//go:embed question_bank.yaml
var defaultBankYAML []byte

var (
	defaultBankOnce sync.Once
	defaultBank     *Bank
)

// BankEntry is the follow-up guidance for one dimension.
type BankEntry struct {
	Question          string   `yaml:"question"`
	WhatGoodLooksLike []string `yaml:"what_good_looks_like"`
	RedFlags          []string `yaml:"red_flags"`
}

// Bank is the static per-dimension question bank.
type Bank struct {
	Dimensions map[string]BankEntry `yaml:"dimensions"`
}

// LoadBank parses a question bank from YAML.
func LoadBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("interview: parse bank: %w", err)
	}
	for dim, e := range b.Dimensions {
		if e.Question == "" {
			return nil, fmt.Errorf("interview: dimension %q has no question", dim)
		}
	}
	return &b, nil
}

// DefaultBank returns the embedded bank. Embedded YAML is compile-time
// data, so a parse failure is a build defect and panics.
func DefaultBank() *Bank {
	defaultBankOnce.Do(func() {
		b, err := LoadBank(defaultBankYAML)
		if err != nil {
			panic(fmt.Sprintf("interview: embedded bank: %v", err))
		}
		defaultBank = b
	})
	return defaultBank
}

// InterviewQuestion is one suggested follow-up for an unproven claim.
type InterviewQuestion struct {
	Dimension         string   `json:"dimension"`
	Question          string   `json:"question"`
	WhatGoodLooksLike []string `json:"what_good_looks_like"`
	RedFlags          []string `json:"red_flags"`

	// SourceClaim is the claim type whose failure suggested this question.
	SourceClaim string `json:"source_claim"`
}

// Generate emits at most one question per dimension for a set of unproven
// results.
//
// For each result, the first of its dimensions not yet covered in this
// call is selected (first-seen wins across the whole set); the selected
// dimension is looked up in the bank. A dimension with no bank entry is
// silently skipped. Proved results in the input are ignored.
func Generate(bank *Bank, unproven []datatypes.ProofResult) []InterviewQuestion {
	if bank == nil {
		bank = DefaultBank()
	}

	covered := make(map[string]struct{})
	var out []InterviewQuestion

	for _, res := range unproven {
		if res.Status != datatypes.StatusUnproved {
			continue
		}

		var dim string
		for _, d := range res.Claim.Dimensions {
			if _, seen := covered[d]; !seen {
				dim = d
				break
			}
		}
		if dim == "" {
			continue
		}
		covered[dim] = struct{}{}

		entry, ok := bank.Dimensions[dim]
		if !ok {
			continue
		}
		out = append(out, InterviewQuestion{
			Dimension:         dim,
			Question:          entry.Question,
			WhatGoodLooksLike: append([]string(nil), entry.WhatGoodLooksLike...),
			RedFlags:          append([]string(nil), entry.RedFlags...),
			SourceClaim:       res.Claim.ClaimType,
		})
	}
	return out
}
