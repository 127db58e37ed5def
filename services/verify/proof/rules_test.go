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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
)

func metricsEvidence(m datatypes.Metrics) datatypes.Evidence {
	return datatypes.Evidence{Metrics: m}
}

func TestAddedRegressionTestRule(t *testing.T) {
	rule := AddedRegressionTestRule{}
	claim := mustClaim(t, "added_regression_test")

	t.Run("test added and suite green", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"tests_passed": true,
			"test_added":   true,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
		assert.Equal(t, "regression test added and full suite passed", res.Reason)
		assert.Len(t, res.EvidenceRefs, 2)
	})

	t.Run("diff counts substitute for the flag", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"tests_passed":       true,
			"test_files_changed": 1,
			"tests_added_count":  2,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
	})

	t.Run("suite red", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"tests_passed": false,
			"test_added":   true,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
		assert.Equal(t, "tests did not pass", res.Reason)
	})

	t.Run("no test results measured", func(t *testing.T) {
		res, err := rule.Evaluate(claim, metricsEvidence(datatypes.Metrics{}), com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
	})
}

func TestDebuggingEffectiveRule(t *testing.T) {
	rule := DebuggingEffectiveRule{}
	claim := mustClaim(t, "debugging_effective")

	t.Run("root cause tag with quote", func(t *testing.T) {
		ev := datatypes.Evidence{
			Metrics: datatypes.Metrics{"tests_passed": true},
			LLMTags: []datatypes.LLMTag{{
				Tag:           TagRootCauseIdentified,
				Confidence:    0.92,
				EvidenceQuote: "the cart cached a stale subtotal",
			}},
		}
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		require.Equal(t, datatypes.StatusProved, res.Status)

		var quoted bool
		for _, ref := range res.EvidenceRefs {
			if ref.Type == datatypes.RefArtifact && ref.Field == TagRootCauseIdentified {
				quoted = true
			}
		}
		assert.True(t, quoted, "the tag's quote must be cited")
	})

	t.Run("previously failing tests now pass", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"tests_passed":        true,
			"failed_tests_before": 3,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
	})

	t.Run("green suite alone is not enough", func(t *testing.T) {
		res, err := rule.Evaluate(claim, metricsEvidence(datatypes.Metrics{"tests_passed": true}), com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
	})
}

func TestTestingDisciplineRule(t *testing.T) {
	rule := TestingDisciplineRule{}
	claim := mustClaim(t, "testing_discipline")

	t.Run("skipped tests block the proof", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"tests_added_count":   3,
			"skipped_tests_added": 2,
			"coverage_delta":      1.5,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
		assert.Equal(t, "added 2 skipped test(s)", res.Reason)
	})

	t.Run("clean tests within coverage tolerance", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"tests_added_count":   3,
			"skipped_tests_added": 0,
			"coverage_delta":      -4.0,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
	})

	t.Run("coverage regression beyond tolerance", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"tests_added_count":       2,
			"coverage_percent":        60.0,
			"coverage_percent_before": 85.0,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
		assert.Contains(t, res.Reason, "coverage regressed")
	})

	t.Run("unknown coverage change fails closed", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{"tests_added_count": 2})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
		assert.Equal(t, "coverage change not measured", res.Reason)
	})
}

func TestTimeEfficientRule(t *testing.T) {
	rule := TimeEfficientRule{}
	claim := mustClaim(t, "time_efficient")

	t.Run("under the pace threshold", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{"time_to_green_seconds": 1200.0})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
		require.Len(t, res.EvidenceRefs, 1)
		assert.Equal(t, "time_to_green_seconds", res.EvidenceRefs[0].ID)
	})

	t.Run("pace profile tightens the budget", func(t *testing.T) {
		c := com.Default()
		c.Pace = com.PaceFast // 2700s effective
		ev := metricsEvidence(datatypes.Metrics{"time_to_green_seconds": 3000.0})
		res, err := rule.Evaluate(claim, ev, c)
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
	})

	t.Run("duration_seconds fallback", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{"duration_seconds": 600.0})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
		require.Len(t, res.EvidenceRefs, 1)
		assert.Equal(t, "duration_seconds", res.EvidenceRefs[0].ID,
			"the ref names the metric actually read")
	})

	t.Run("no duration measured", func(t *testing.T) {
		res, err := rule.Evaluate(claim, metricsEvidence(datatypes.Metrics{}), com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
	})
}

func TestHandlesEdgeCasesRule(t *testing.T) {
	rule := HandlesEdgeCasesRule{}
	claim := mustClaim(t, "handles_edge_cases")

	t.Run("all edge-case tests pass", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"edge_case_tests_total":  4,
			"edge_case_tests_passed": 4,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
	})

	t.Run("some failing", func(t *testing.T) {
		ev := metricsEvidence(datatypes.Metrics{
			"edge_case_tests_total":  4,
			"edge_case_tests_passed": 2,
		})
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
		assert.Contains(t, res.Reason, "2 of 4")
	})

	t.Run("none labeled", func(t *testing.T) {
		res, err := rule.Evaluate(claim, metricsEvidence(datatypes.Metrics{}), com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
	})
}

func TestCommunicationClearRule(t *testing.T) {
	rule := CommunicationClearRule{}
	claim := mustClaim(t, "communication_clear")

	t.Run("two quoted signals meet the default bar", func(t *testing.T) {
		ev := datatypes.Evidence{
			Metrics: datatypes.Metrics{
				"writeup_has_root_cause": true,
				"writeup_has_tradeoffs":  true,
			},
			Quotes: map[string]string{
				"root_cause": "## Root Cause",
				"tradeoffs":  "## Trade-offs",
			},
		}
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusProved, res.Status)
		assert.Len(t, res.EvidenceRefs, 2)
	})

	t.Run("signal without a quote does not count", func(t *testing.T) {
		ev := datatypes.Evidence{
			Metrics: datatypes.Metrics{
				"writeup_has_root_cause": true,
				"writeup_has_tradeoffs":  true,
			},
			Quotes: map[string]string{"root_cause": "## Root Cause"},
		}
		res, err := rule.Evaluate(claim, ev, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
		assert.Contains(t, res.Reason, "1 of 2")
	})

	t.Run("no writeup evidence", func(t *testing.T) {
		res, err := rule.Evaluate(claim, datatypes.Evidence{Metrics: datatypes.Metrics{}}, com.Default())
		require.NoError(t, err)
		assert.Equal(t, datatypes.StatusUnproved, res.Status)
	})
}

func TestNewDefaultEngine_CoversCatalogClaimTypes(t *testing.T) {
	e := NewDefaultEngine(nil)

	for _, claimType := range []string{
		"added_regression_test", "debugging_effective", "testing_discipline",
		"time_efficient", "handles_edge_cases", "communication_clear",
	} {
		assert.NotEmpty(t, e.RulesFor(claimType), claimType)
	}
}
