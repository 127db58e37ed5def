// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package proof

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
)

// LLM tag names the rules recognize. Tags arrive pre-validated with a
// citation quote; the rules only read them.
const (
	TagRootCauseIdentified = "root_cause_identified"
)

// NewDefaultEngine returns an engine with the built-in rules registered,
// in their canonical order. This is the composition root; tests build
// smaller engines with whatever subset they need.
func NewDefaultEngine(logger *slog.Logger) *Engine {
	e := NewEngine(logger)
	e.MustRegister(AddedRegressionTestRule{})
	e.MustRegister(DebuggingEffectiveRule{})
	e.MustRegister(TestingDisciplineRule{})
	e.MustRegister(TimeEfficientRule{})
	e.MustRegister(HandlesEdgeCasesRule{})
	e.MustRegister(CommunicationClearRule{})
	return e
}

// proved is a construction helper. A nil error from NewProofResult is
// guaranteed here because every caller passes at least one ref.
func proved(claim datatypes.Claim, ruleID, reason string, refs []datatypes.EvidenceRef) (datatypes.ProofResult, error) {
	return datatypes.NewProofResult(claim, datatypes.StatusProved, ruleID, reason, refs)
}

// AddedRegressionTestRule proves added_regression_test: the full suite
// passes and the diff shows new test evidence.
type AddedRegressionTestRule struct{}

func (AddedRegressionTestRule) ID() string           { return "added_regression_test" }
func (AddedRegressionTestRule) ClaimTypes() []string { return []string{"added_regression_test"} }
func (AddedRegressionTestRule) Dimensions() []string { return []string{"testing"} }

func (r AddedRegressionTestRule) Evaluate(claim datatypes.Claim, ev datatypes.Evidence, _ com.COM) (datatypes.ProofResult, error) {
	passed, ok := ev.Metrics.Bool("tests_passed")
	if !ok {
		return datatypes.Unproved(claim, r.ID(), "test results not measured"), nil
	}
	if !passed {
		return datatypes.Unproved(claim, r.ID(), "tests did not pass",
			datatypes.MetricRef("tests_passed", false)), nil
	}

	refs := []datatypes.EvidenceRef{datatypes.MetricRef("tests_passed", true)}

	if added, ok := ev.Metrics.Bool("test_added"); ok && added {
		refs = append(refs, datatypes.MetricRef("test_added", true))
		return proved(claim, r.ID(), "regression test added and full suite passed", refs)
	}

	testFiles, _ := ev.Metrics.Int("test_files_changed")
	addedCount, _ := ev.Metrics.Int("tests_added_count")
	if testFiles >= 1 && addedCount >= 1 {
		refs = append(refs,
			datatypes.MetricRef("test_files_changed", testFiles),
			datatypes.MetricRef("tests_added_count", addedCount))
		return proved(claim, r.ID(),
			fmt.Sprintf("regression test evidence: %d test file(s) changed, %d test(s) added, suite passed", testFiles, addedCount),
			refs)
	}

	return datatypes.Unproved(claim, r.ID(), "no new test evidence in diff"), nil
}

// DebuggingEffectiveRule proves debugging_effective: tests pass and either
// an LLM root-cause tag is present or previously failing tests now pass.
type DebuggingEffectiveRule struct{}

func (DebuggingEffectiveRule) ID() string           { return "debugging_effective" }
func (DebuggingEffectiveRule) ClaimTypes() []string { return []string{"debugging_effective"} }
func (DebuggingEffectiveRule) Dimensions() []string { return []string{"debugging"} }

func (r DebuggingEffectiveRule) Evaluate(claim datatypes.Claim, ev datatypes.Evidence, _ com.COM) (datatypes.ProofResult, error) {
	passed, ok := ev.Metrics.Bool("tests_passed")
	if !ok {
		return datatypes.Unproved(claim, r.ID(), "test results not measured"), nil
	}
	if !passed {
		return datatypes.Unproved(claim, r.ID(), "tests did not pass",
			datatypes.MetricRef("tests_passed", false)), nil
	}

	refs := []datatypes.EvidenceRef{datatypes.MetricRef("tests_passed", true)}

	if tag, ok := ev.Tag(TagRootCauseIdentified); ok {
		refs = append(refs, datatypes.ArtifactRef("llm_tags", TagRootCauseIdentified, tag.EvidenceQuote))
		return proved(claim, r.ID(), "root cause identified and suite passed", refs)
	}

	if before, ok := ev.Metrics.Int("failed_tests_before"); ok && before > 0 {
		refs = append(refs, datatypes.MetricRef("failed_tests_before", before))
		return proved(claim, r.ID(),
			fmt.Sprintf("%d previously failing test(s) now pass", before), refs)
	}

	return datatypes.Unproved(claim, r.ID(), "no root-cause tag and no previously failing tests recorded"), nil
}

// TestingDisciplineRule proves testing_discipline: new tests, no skipped
// tests, and coverage did not regress beyond the COM tolerance.
type TestingDisciplineRule struct{}

func (TestingDisciplineRule) ID() string           { return "testing_discipline" }
func (TestingDisciplineRule) ClaimTypes() []string { return []string{"testing_discipline"} }
func (TestingDisciplineRule) Dimensions() []string { return []string{"testing", "code_quality"} }

func (r TestingDisciplineRule) Evaluate(claim datatypes.Claim, ev datatypes.Evidence, c com.COM) (datatypes.ProofResult, error) {
	addedCount, ok := ev.Metrics.Int("tests_added_count")
	if !ok || addedCount < 1 {
		return datatypes.Unproved(claim, r.ID(), "no tests added"), nil
	}

	if skipped, ok := ev.Metrics.Int("skipped_tests_added"); ok && skipped > 0 {
		return datatypes.Unproved(claim, r.ID(),
			fmt.Sprintf("added %d skipped test(s)", skipped),
			datatypes.MetricRef("skipped_tests_added", skipped)), nil
	}

	delta, ok := coverageDelta(ev.Metrics)
	if !ok {
		return datatypes.Unproved(claim, r.ID(), "coverage change not measured"), nil
	}
	tolerance := c.Thresholds.CoverageRegressionTolerance
	if delta < tolerance {
		return datatypes.Unproved(claim, r.ID(),
			fmt.Sprintf("coverage regressed %.1f percentage points (tolerance %.1f)", delta, tolerance),
			datatypes.MetricRef("coverage_delta", delta)), nil
	}

	return proved(claim, r.ID(),
		fmt.Sprintf("%d test(s) added, none skipped, coverage delta %.1f within tolerance", addedCount, delta),
		[]datatypes.EvidenceRef{
			datatypes.MetricRef("tests_added_count", addedCount),
			datatypes.MetricRef("skipped_tests_added", 0),
			datatypes.MetricRef("coverage_delta", delta),
		})
}

// coverageDelta resolves the coverage change in percentage points, from an
// explicit coverage_delta metric or from before/after percentages.
func coverageDelta(m datatypes.Metrics) (float64, bool) {
	if d, ok := m.Float("coverage_delta"); ok {
		return d, true
	}
	after, okAfter := m.Float("coverage_percent")
	before, okBefore := m.Float("coverage_percent_before")
	if okAfter && okBefore {
		return after - before, true
	}
	return 0, false
}

// TimeEfficientRule proves time_efficient: time to green is under the
// COM-derived pace threshold.
type TimeEfficientRule struct{}

func (TimeEfficientRule) ID() string           { return "time_efficient" }
func (TimeEfficientRule) ClaimTypes() []string { return []string{"time_efficient"} }
func (TimeEfficientRule) Dimensions() []string { return []string{"efficiency"} }

func (r TimeEfficientRule) Evaluate(claim datatypes.Claim, ev datatypes.Evidence, c com.COM) (datatypes.ProofResult, error) {
	metric := "time_to_green_seconds"
	duration, ok := ev.Metrics.Float(metric)
	if !ok {
		metric = "duration_seconds"
		duration, ok = ev.Metrics.Float(metric)
	}
	if !ok {
		return datatypes.Unproved(claim, r.ID(), "run duration not measured"), nil
	}

	threshold := c.EffectivePaceSeconds()
	if threshold <= 0 || duration >= threshold {
		return datatypes.Unproved(claim, r.ID(),
			fmt.Sprintf("duration %.0fs at or above pace threshold %.0fs", duration, threshold),
			datatypes.MetricRef(metric, duration)), nil
	}

	return proved(claim, r.ID(),
		fmt.Sprintf("reached green in %.0fs, under pace threshold %.0fs", duration, threshold),
		[]datatypes.EvidenceRef{datatypes.MetricRef(metric, duration)})
}

// HandlesEdgeCasesRule proves handles_edge_cases: the suite contains
// edge-case-labeled tests and all of them pass.
type HandlesEdgeCasesRule struct{}

func (HandlesEdgeCasesRule) ID() string           { return "handles_edge_cases" }
func (HandlesEdgeCasesRule) ClaimTypes() []string { return []string{"handles_edge_cases"} }
func (HandlesEdgeCasesRule) Dimensions() []string { return []string{"robustness", "testing"} }

func (r HandlesEdgeCasesRule) Evaluate(claim datatypes.Claim, ev datatypes.Evidence, _ com.COM) (datatypes.ProofResult, error) {
	total, ok := ev.Metrics.Int("edge_case_tests_total")
	if !ok || total < 1 {
		return datatypes.Unproved(claim, r.ID(), "no edge-case-labeled tests found"), nil
	}
	passed, _ := ev.Metrics.Int("edge_case_tests_passed")
	if passed < total {
		return datatypes.Unproved(claim, r.ID(),
			fmt.Sprintf("%d of %d edge-case test(s) failing", total-passed, total),
			datatypes.MetricRef("edge_case_tests_passed", passed),
			datatypes.MetricRef("edge_case_tests_total", total)), nil
	}

	return proved(claim, r.ID(),
		fmt.Sprintf("%d edge-case test(s) present and passing", total),
		[]datatypes.EvidenceRef{
			datatypes.MetricRef("edge_case_tests_passed", passed),
			datatypes.MetricRef("edge_case_tests_total", total),
		})
}

// CommunicationClearRule proves communication_clear: the writeup shows at
// least the COM-required number of {root cause, tradeoffs, monitoring}
// signals, each backed by a direct quote.
type CommunicationClearRule struct{}

func (CommunicationClearRule) ID() string           { return "communication_clear" }
func (CommunicationClearRule) ClaimTypes() []string { return []string{"communication_clear"} }
func (CommunicationClearRule) Dimensions() []string { return []string{"communication"} }

func (r CommunicationClearRule) Evaluate(claim datatypes.Claim, ev datatypes.Evidence, c com.COM) (datatypes.ProofResult, error) {
	signals := []string{"root_cause", "tradeoffs", "monitoring"}

	var refs []datatypes.EvidenceRef
	for _, sig := range signals {
		present, _ := ev.Metrics.Bool("writeup_has_" + sig)
		quote, hasQuote := ev.Quotes[sig]
		if present && hasQuote {
			refs = append(refs, datatypes.ArtifactRef("writeup", sig, quote))
		}
	}

	required := c.Thresholds.WriteupSignalsRequired
	if len(refs) < required {
		return datatypes.Unproved(claim, r.ID(),
			fmt.Sprintf("writeup shows %d of %d required signals with quotes", len(refs), required),
			refs...), nil
	}

	return proved(claim, r.ID(),
		fmt.Sprintf("writeup covers %d signal(s), each with a direct quote", len(refs)), refs)
}
