// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package brief

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
)

// Risk flag types the builder derives. Flags are heuristics for the
// reader; they never feed back into proof outcomes.
const (
	FlagSkippedTests       = "skipped_tests"
	FlagLongCompletionTime = "long_completion_time"
	FlagTestsNeverPassed   = "tests_never_passed"
)

// deriveRiskFlags inspects proof results and run metadata for heuristic
// risk signals.
func deriveRiskFlags(results []datatypes.ProofResult, ev datatypes.Evidence, c com.COM) []datatypes.RiskFlag {
	var flags []datatypes.RiskFlag

	for _, res := range results {
		if res.Status == datatypes.StatusUnproved &&
			res.Claim.ClaimType == "testing_discipline" &&
			strings.Contains(res.Reason, "skipped") {
			flags = append(flags, datatypes.RiskFlag{
				FlagType:    FlagSkippedTests,
				Severity:    datatypes.SeverityMedium,
				Description: "testing discipline unproven: " + res.Reason,
			})
			break
		}
	}

	duration, ok := ev.Metrics.Float("time_to_green_seconds")
	if !ok {
		duration, ok = ev.Metrics.Float("duration_seconds")
	}
	if ceiling := c.Thresholds.LongRunCeilingSeconds; ok && ceiling > 0 && duration > ceiling {
		flags = append(flags, datatypes.RiskFlag{
			FlagType:    FlagLongCompletionTime,
			Severity:    datatypes.SeverityLow,
			Description: fmt.Sprintf("run took %.0fs, over the %.0fs ceiling", duration, ceiling),
		})
	}

	if len(results) > 0 && !anyTestsPassedEvidence(results) {
		flags = append(flags, datatypes.RiskFlag{
			FlagType:    FlagTestsNeverPassed,
			Severity:    datatypes.SeverityHigh,
			Description: "no claim's evidence shows the test suite ever passing",
		})
	}

	return flags
}

// anyTestsPassedEvidence reports whether any result cites tests_passed=true.
func anyTestsPassedEvidence(results []datatypes.ProofResult) bool {
	for _, res := range results {
		for _, ref := range res.EvidenceRefs {
			if ref.Type == datatypes.RefMetric && ref.ID == "tests_passed" {
				if v, ok := ref.Value.(bool); ok && v {
					return true
				}
			}
		}
	}
	return false
}
