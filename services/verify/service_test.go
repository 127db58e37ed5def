// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
)

func quietService() *Service {
	return New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

const greenDiff = "--- a/tests/test_orders.py\n" +
	"+++ b/tests/test_orders.py\n" +
	"@@ -1,1 +1,4 @@\n" +
	" import pytest\n" +
	"+\n" +
	"+def test_discount_rounds_half_up():\n" +
	"+    assert apply_discount(100, 0.155) == 84.50\n"

const greenTestLog = "==================== 9 passed in 2.10s ====================\n"

const greenWriteup = `## Root Cause

The discount was applied twice; the root cause was a stale cached subtotal.

## Trade-offs

The tradeoff is extra recomputation on coupon change.
`

func greenRequest() VerifyRequest {
	return VerifyRequest{
		ApplicationID:   "app-1",
		CandidateID:     "cand-1",
		SimulationRunID: "run-1",
		Metrics: datatypes.Metrics{
			"time_to_green_seconds": 1500.0,
		},
		Artifacts: RawArtifacts{
			Diff:    greenDiff,
			TestLog: greenTestLog,
			Writeup: greenWriteup,
		},
		COM: com.Default(),
	}
}

func TestVerify_EndToEnd(t *testing.T) {
	svc := quietService()

	res, err := svc.Verify(context.Background(), greenRequest())
	require.NoError(t, err)
	require.NotNil(t, res.Brief)

	assert.Len(t, res.Claims, 6, "an empty rubric evaluates the full catalog")
	assert.Len(t, res.ProofResults, 6)
	assert.Equal(t, "app-1", res.Brief.ApplicationID)
	assert.Equal(t, 1, res.Brief.Version)

	proven := make(map[string]bool)
	for _, p := range res.Brief.ProvenClaims {
		proven[p.Claim.ClaimType] = true
	}
	assert.True(t, proven["added_regression_test"], "green suite plus new test must prove")
	assert.True(t, proven["time_efficient"], "1500s is under the standard 3600s pace")
	assert.True(t, proven["communication_clear"], "root cause and tradeoffs are both quoted")

	assert.Greater(t, res.Brief.ProofRate, 0.0)
	assert.LessOrEqual(t, res.Brief.ProofRate, 1.0)

	t.Run("extractor metrics fill gaps", func(t *testing.T) {
		passed, ok := res.Evidence.Metrics.Bool("tests_passed")
		require.True(t, ok)
		assert.True(t, passed)

		added, ok := res.Evidence.Metrics.Bool("test_added")
		require.True(t, ok)
		assert.True(t, added)
	})

	t.Run("runner metrics stay authoritative", func(t *testing.T) {
		req := greenRequest()
		req.Metrics["tests_passed"] = false

		res, err := svc.Verify(context.Background(), req)
		require.NoError(t, err)

		passed, ok := res.Evidence.Metrics.Bool("tests_passed")
		require.True(t, ok)
		assert.False(t, passed, "the log says green but metrics.json wins")
	})
}

func TestVerify_Deterministic(t *testing.T) {
	svc := quietService()

	first, err := svc.Verify(context.Background(), greenRequest())
	require.NoError(t, err)
	second, err := svc.Verify(context.Background(), greenRequest())
	require.NoError(t, err)

	assert.Equal(t, first.ProofResults, second.ProofResults)
	assert.Equal(t, first.Brief.DimensionsCovered, second.Brief.DimensionsCovered)
	assert.InDelta(t, first.Brief.ProofRate, second.Brief.ProofRate, 1e-12)
	assert.NotEqual(t, first.Brief.ID, second.Brief.ID, "ids are fresh per build")
}

func TestVerify_NoEvidence(t *testing.T) {
	svc := quietService()

	_, err := svc.Verify(context.Background(), VerifyRequest{
		ApplicationID: "app-1",
		CandidateID:   "cand-1",
		COM:           com.Default(),
	})
	assert.ErrorIs(t, err, datatypes.ErrNoEvidence)
}

func TestVerify_MalformedArtifactsStillProduceBrief(t *testing.T) {
	svc := quietService()

	res, err := svc.Verify(context.Background(), VerifyRequest{
		ApplicationID: "app-1",
		CandidateID:   "cand-1",
		Artifacts: RawArtifacts{
			Diff:    "garbage that is not a diff",
			TestLog: "garbage that is not a summary",
		},
		COM: com.Default(),
	})
	require.NoError(t, err, "unparseable artifacts are absent evidence, not failures")
	require.NotNil(t, res.Brief)

	assert.Empty(t, res.Brief.ProvenClaims, "nothing can be proved from garbage")
	assert.Len(t, res.Brief.UnprovenClaims, len(res.Claims))
}

func TestVerify_RubricScoping(t *testing.T) {
	svc := quietService()
	req := greenRequest()
	req.Rubric = com.Rubric{Dimensions: map[string]float64{"testing": 1.0}}

	res, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	for _, c := range res.Claims {
		assert.Contains(t, c.Dimensions, "testing",
			"only claims touching a weighted dimension survive")
	}
}

func TestVerifyAll(t *testing.T) {
	svc := quietService()

	reqs := make([]VerifyRequest, 5)
	for i := range reqs {
		reqs[i] = greenRequest()
	}

	results, err := svc.VerifyAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, res := range results {
		require.NotNil(t, res, "result %d", i)
		assert.Equal(t, results[0].Brief.ProofRate, res.Brief.ProofRate,
			"identical runs must verify identically")
	}

	t.Run("one bad run fails the batch", func(t *testing.T) {
		bad := append(reqs[:2:2], VerifyRequest{ApplicationID: "app-x", CandidateID: "cand-x", COM: com.Default()})
		_, err := svc.VerifyAll(context.Background(), bad)
		assert.ErrorIs(t, err, datatypes.ErrNoEvidence)
	})
}
