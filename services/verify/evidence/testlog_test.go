// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTestLog_PytestMixedOutcomes(t *testing.T) {
	log := `============================= test session starts ==============================
collected 10 items

tests/test_orders.py ........F s                                         [100%]

=========================== short test summary info ============================
FAILED tests/test_orders.py::test_discount_rounds - AssertionError
==================== 8 passed, 1 failed, 1 skipped in 2.34s ====================
`
	stats := ParseTestLog(log)

	require.False(t, stats.ParseError)
	assert.Equal(t, 10, stats.TotalTests)
	assert.Equal(t, 8, stats.PassedCount)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Equal(t, 1, stats.SkippedCount)
	assert.InDelta(t, 2.34, stats.DurationSeconds, 1e-9)
	assert.False(t, stats.TestsPassed)
}

func TestParseTestLog_PytestAllGreen(t *testing.T) {
	stats := ParseTestLog("========= 12 passed in 0.41s =========\n")

	require.False(t, stats.ParseError)
	assert.Equal(t, 12, stats.TotalTests)
	assert.True(t, stats.TestsPassed)
}

func TestParseTestLog_PytestErrorsCountAsFailures(t *testing.T) {
	stats := ParseTestLog("==== 3 passed, 2 errors in 1.10s ====\n")

	require.False(t, stats.ParseError)
	assert.Equal(t, 2, stats.FailedCount)
	assert.Equal(t, 5, stats.TotalTests)
	assert.False(t, stats.TestsPassed)
}

func TestParseTestLog_LastSummaryWins(t *testing.T) {
	log := "==== 3 passed, 2 failed in 1.00s ====\n" +
		"rerunning failed tests\n" +
		"==== 5 passed in 1.20s ====\n"
	stats := ParseTestLog(log)

	require.False(t, stats.ParseError)
	assert.Equal(t, 5, stats.PassedCount)
	assert.Equal(t, 0, stats.FailedCount)
	assert.True(t, stats.TestsPassed)
}

func TestParseTestLog_JestBlock(t *testing.T) {
	log := `PASS src/cart.spec.js
FAIL src/billing.spec.js

Tests:       1 failed, 1 skipped, 6 passed, 8 total
Snapshots:   0 total
Time:        2.5 s
`
	stats := ParseTestLog(log)

	require.False(t, stats.ParseError)
	assert.Equal(t, 8, stats.TotalTests)
	assert.Equal(t, 6, stats.PassedCount)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Equal(t, 1, stats.SkippedCount)
	assert.InDelta(t, 2.5, stats.DurationSeconds, 1e-9)
	assert.False(t, stats.TestsPassed)
}

func TestParseTestLog_NoSummary(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		stats := ParseTestLog("")
		assert.True(t, stats.ParseError)
		assert.False(t, stats.TestsPassed)
	})

	t.Run("chatter without a summary line", func(t *testing.T) {
		stats := ParseTestLog("the suite has 4 passed gates in the pipeline\n")
		assert.True(t, stats.ParseError, "phrases without a duration must not match")
	})
}
