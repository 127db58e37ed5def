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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ruleEvaluations counts per-rule outcomes (proved/unproved/error).
	ruleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attest",
			Subsystem: "proof",
			Name:      "rule_evaluations_total",
			Help:      "Rule evaluation outcomes by rule id and outcome.",
		},
		[]string{"rule_id", "outcome"},
	)

	// claimsEvaluated counts terminal claim statuses.
	claimsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attest",
			Subsystem: "proof",
			Name:      "claims_evaluated_total",
			Help:      "Claims evaluated by final status.",
		},
		[]string{"status"},
	)
)
