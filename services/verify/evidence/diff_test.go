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

// Blank context lines carry their leading space, so the fixtures are
// assembled by concatenation rather than raw literals.
var pyRegressionDiff = "--- a/tests/test_orders.py\n" +
	"+++ b/tests/test_orders.py\n" +
	"@@ -1,4 +1,8 @@\n" +
	" import pytest\n" +
	" \n" +
	"+def test_discount_rounds_half_up():\n" +
	"+    assert apply_discount(100, 0.155) == 84.50\n" +
	"+\n" +
	"+\n" +
	" def existing_helper():\n" +
	"     pass\n"

var pySkippedDiff = "--- a/tests/test_orders.py\n" +
	"+++ b/tests/test_orders.py\n" +
	"@@ -1,2 +1,8 @@\n" +
	" import pytest\n" +
	" \n" +
	"+@pytest.mark.skip(reason=\"flaky\")\n" +
	"+def test_discount_negative_amount():\n" +
	"+    assert apply_discount(-1, 0.1) == 0\n" +
	"+\n" +
	"+def test_discount_zero():\n" +
	"+    assert apply_discount(0, 0.1) == 0\n"

func TestExtractDiff_AddedPytestTest(t *testing.T) {
	stats := ExtractDiff(pyRegressionDiff)

	require.False(t, stats.ParseError)
	assert.True(t, stats.TestAdded)
	assert.Equal(t, 1, stats.TestsAddedCount)
	assert.Equal(t, 0, stats.SkippedTestsAdded)
	assert.Equal(t, []string{"tests/test_orders.py"}, stats.FilesChanged)
	assert.Equal(t, []string{"tests/test_orders.py"}, stats.TestFilesChanged)
	assert.Equal(t, 4, stats.LinesAdded)
	assert.Equal(t, 0, stats.LinesRemoved)
}

func TestExtractDiff_SkipAdjacentDefinition(t *testing.T) {
	stats := ExtractDiff(pySkippedDiff)

	require.False(t, stats.ParseError)
	assert.Equal(t, 2, stats.TestsAddedCount)
	assert.Equal(t, 1, stats.SkippedTestsAdded, "only the annotated test counts as skipped")
}

func TestExtractDiff_GoAndJestDefinitions(t *testing.T) {
	goDiff := `--- a/parser_test.go
+++ b/parser_test.go
@@ -1,1 +1,4 @@
 package parser
+
+func TestParseEmptyInput(t *testing.T) {
+}
`
	jsDiff := `--- a/src/cart.spec.js
+++ b/src/cart.spec.js
@@ -1,1 +1,4 @@
 const cart = require('./cart');
+it('rejects negative quantities', () => {});
+it.skip('handles currency conversion', () => {});
+test('applies the discount once', () => {});
`

	t.Run("go test function", func(t *testing.T) {
		stats := ExtractDiff(goDiff)
		require.False(t, stats.ParseError)
		assert.Equal(t, 1, stats.TestsAddedCount)
		assert.Equal(t, []string{"parser_test.go"}, stats.TestFilesChanged)
	})

	t.Run("jest it and skip forms", func(t *testing.T) {
		stats := ExtractDiff(jsDiff)
		require.False(t, stats.ParseError)
		assert.Equal(t, 3, stats.TestsAddedCount)
		assert.Equal(t, 1, stats.SkippedTestsAdded)
	})
}

func TestExtractDiff_NonTestChange(t *testing.T) {
	d := `--- a/src/billing.py
+++ b/src/billing.py
@@ -10,1 +10,1 @@ def apply_discount(amount, rate):
-    return amount * rate
+    return round(amount * (1 - rate), 2)
`
	stats := ExtractDiff(d)

	require.False(t, stats.ParseError)
	assert.False(t, stats.TestAdded)
	assert.Empty(t, stats.TestFilesChanged)
	assert.Equal(t, 1, stats.LinesAdded)
	assert.Equal(t, 1, stats.LinesRemoved)
}

func TestExtractDiff_MalformedInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t", "this is not a diff at all"} {
		stats := ExtractDiff(input)
		assert.True(t, stats.ParseError, "input %q should flag a parse error", input)
		assert.Zero(t, stats.TestsAddedCount)
	}
}

func TestIsTestPath(t *testing.T) {
	cases := map[string]bool{
		"tests/test_orders.py":     true,
		"pkg/parser/parser_test.go": true,
		"src/cart.spec.js":         true,
		"src/Cart.test.tsx":        true,
		"__tests__/cart.js":        true,
		"src/billing.py":           false,
		"contest/entry.go":         false,
	}
	for path, want := range cases {
		assert.Equal(t, want, isTestPath(path), path)
	}
}
