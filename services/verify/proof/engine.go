// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package proof implements the fail-closed rule registry and proof engine.
//
// # Description
//
// Rules are registered into a claim-type keyed registry at process start
// (initialize-then-freeze; the registry is never mutated concurrently with
// reads). Evaluation is total: every claim yields exactly one PROVED or
// UNPROVED result, and nothing a rule does — returning an error, panicking,
// or violating its own evidence contract — can escape the engine boundary
// or silently mark a claim PROVED.
//
// # Thread Safety
//
// An Engine is safe for concurrent Evaluate calls once registration is
// complete. Register is not safe concurrently with Evaluate.
package proof

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
)

// NoRuleID is the rule_id reported when a claim type has no registered rule.
const NoRuleID = "no_rule"

// Sentinel errors for registration.
var (
	// ErrNilRule indicates Register was called with a nil rule.
	ErrNilRule = errors.New("nil rule")

	// ErrDuplicateRule indicates a rule id was registered twice.
	ErrDuplicateRule = errors.New("rule already registered")

	// ErrNoClaimTypes indicates a rule declared no claim types.
	ErrNoClaimTypes = errors.New("rule declares no claim types")
)

// Rule proves one or more claim types from evidence.
//
// Implementations must be stateless and pure: no network calls, no clocks,
// O(evidence size). A rule returning a PROVED result must cite every
// condition it relied on in the result's evidence refs.
type Rule interface {
	// ID uniquely identifies the rule for audit.
	ID() string

	// ClaimTypes lists the claim types this rule can evaluate.
	ClaimTypes() []string

	// Dimensions lists the rubric dimensions this rule speaks to.
	Dimensions() []string

	// Evaluate proves or fails to prove the claim from evidence.
	// Returning an error never crashes the engine; it is folded into
	// the aggregate UNPROVED reason.
	Evaluate(claim datatypes.Claim, ev datatypes.Evidence, c com.COM) (datatypes.ProofResult, error)
}

// Engine evaluates claims against registered rules.
type Engine struct {
	rules  map[string][]Rule
	ids    map[string]struct{}
	logger *slog.Logger
}

// NewEngine creates an empty engine. A nil logger means slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:  make(map[string][]Rule),
		ids:    make(map[string]struct{}),
		logger: logger,
	}
}

// Register adds a rule for every claim type it declares. O(1) per type.
// Registration order is evaluation order within a claim type.
func (e *Engine) Register(r Rule) error {
	if r == nil {
		return ErrNilRule
	}
	if len(r.ClaimTypes()) == 0 {
		return fmt.Errorf("%w: %s", ErrNoClaimTypes, r.ID())
	}
	if _, dup := e.ids[r.ID()]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID())
	}
	e.ids[r.ID()] = struct{}{}
	for _, ct := range r.ClaimTypes() {
		e.rules[ct] = append(e.rules[ct], r)
	}
	return nil
}

// MustRegister registers a rule and panics on error. Startup use only.
func (e *Engine) MustRegister(r Rule) {
	if err := e.Register(r); err != nil {
		panic(fmt.Sprintf("proof: register rule: %v", err))
	}
}

// RuleIDs returns the sorted ids of all registered rules.
func (e *Engine) RuleIDs() []string {
	out := make([]string, 0, len(e.ids))
	for id := range e.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RulesFor returns the rules registered for a claim type, in registration
// order. The returned slice must not be mutated.
func (e *Engine) RulesFor(claimType string) []Rule {
	return e.rules[claimType]
}

// Evaluate proves or fails to prove a single claim.
//
// 1. No registered rule: terminal UNPROVED with rule_id "no_rule".
// 2. Rules run in registration order. A rule error or panic contributes
//    a "{rule_id}: Error - {message}" reason fragment and evaluation
//    continues.
// 3. The first PROVED result short-circuits.
// 4. Otherwise UNPROVED, aggregating all refs and joined reasons, with
//    rule_id set to the first attempted rule.
func (e *Engine) Evaluate(claim datatypes.Claim, ev datatypes.Evidence, c com.COM) datatypes.ProofResult {
	rules := e.rules[claim.ClaimType]
	if len(rules) == 0 {
		res := datatypes.Unproved(claim, NoRuleID,
			fmt.Sprintf("no rule exists for claim type %s", claim.ClaimType))
		e.observe(NoRuleID, res)
		return res
	}

	var reasons []string
	var refs []datatypes.EvidenceRef

	for _, r := range rules {
		res, err := e.evaluateRule(r, claim, ev, c)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: Error - %v", r.ID(), err))
			ruleEvaluations.WithLabelValues(r.ID(), "error").Inc()
			continue
		}

		if res.Status == datatypes.StatusProved {
			if len(res.EvidenceRefs) == 0 {
				// Contract violation by the rule. Fail closed.
				reasons = append(reasons, fmt.Sprintf("%s: Error - %v", r.ID(), datatypes.ErrProvedWithoutEvidence))
				ruleEvaluations.WithLabelValues(r.ID(), "error").Inc()
				continue
			}
			e.observe(r.ID(), res)
			return res
		}

		if res.Reason != "" {
			reasons = append(reasons, res.Reason)
		}
		refs = append(refs, res.EvidenceRefs...)
		ruleEvaluations.WithLabelValues(r.ID(), "unproved").Inc()
	}

	res := datatypes.Unproved(claim, rules[0].ID(), strings.Join(reasons, "; "), refs...)
	e.observe(rules[0].ID(), res)
	return res
}

// EvaluateAll maps Evaluate over the claims. Each result's evidence refs
// are independent; nothing leaks between claims.
func (e *Engine) EvaluateAll(claims []datatypes.Claim, ev datatypes.Evidence, c com.COM) []datatypes.ProofResult {
	results := make([]datatypes.ProofResult, 0, len(claims))
	for _, claim := range claims {
		results = append(results, e.Evaluate(claim, ev, c))
	}
	return results
}

// evaluateRule invokes a rule, converting panics into errors so a buggy
// rule can never crash the pipeline.
func (e *Engine) evaluateRule(r Rule, claim datatypes.Claim, ev datatypes.Evidence, c com.COM) (res datatypes.ProofResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.Evaluate(claim, ev, c)
}

// observe records the outcome for audit logging and metrics.
func (e *Engine) observe(ruleID string, res datatypes.ProofResult) {
	status := strings.ToLower(string(res.Status))
	if res.Status == datatypes.StatusProved {
		ruleEvaluations.WithLabelValues(ruleID, "proved").Inc()
	}
	claimsEvaluated.WithLabelValues(status).Inc()
	e.logger.Info("claim evaluated",
		"claim_type", res.Claim.ClaimType,
		"candidate_id", res.Claim.Subject.CandidateID,
		"application_id", res.Claim.Subject.ApplicationID,
		"rule_id", res.RuleID,
		"status", res.Status,
		"evidence_refs", len(res.EvidenceRefs),
	)
}
