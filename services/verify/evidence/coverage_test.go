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

const coberturaSample = `<?xml version="1.0" ?>
<coverage line-rate="0.75" branch-rate="0.5" version="6.0" timestamp="1700000000">
  <packages>
    <package name="billing">
      <classes>
        <class name="billing" filename="src/billing.py">
          <lines>
            <line number="10" hits="3"/>
            <line number="11" hits="3"/>
            <line number="12" hits="0"/>
            <line number="20" hits="1"/>
          </lines>
        </class>
      </classes>
    </package>
  </packages>
</coverage>
`

func TestParseCoverage_RootRatesAuthoritative(t *testing.T) {
	stats := ParseCoverage([]byte(coberturaSample))

	require.False(t, stats.ParseError)
	assert.InDelta(t, 75.0, stats.LineCoveragePercent, 1e-9)
	assert.InDelta(t, 50.0, stats.BranchCoveragePercent, 1e-9)
	assert.Equal(t, 3, stats.LinesCovered)
	assert.Equal(t, 4, stats.LinesTotal)
	assert.Equal(t, map[string][]int{"src/billing.py": {12}}, stats.UncoveredFiles)
}

func TestParseCoverage_ComputedFallback(t *testing.T) {
	xml := `<coverage>
  <packages><package><classes>
    <class filename="a.py"><lines>
      <line number="1" hits="1"/>
      <line number="2" hits="0"/>
    </lines></class>
  </classes></package></packages>
</coverage>`
	stats := ParseCoverage([]byte(xml))

	require.False(t, stats.ParseError)
	assert.InDelta(t, 50.0, stats.LineCoveragePercent, 1e-9)
	assert.Zero(t, stats.BranchCoveragePercent)
}

func TestParseCoverage_UncoveredLinesSorted(t *testing.T) {
	xml := `<coverage line-rate="0.0">
  <packages><package><classes>
    <class filename="a.py"><lines>
      <line number="30" hits="0"/>
      <line number="5" hits="0"/>
      <line number="12" hits="0"/>
    </lines></class>
  </classes></package></packages>
</coverage>`
	stats := ParseCoverage([]byte(xml))

	require.False(t, stats.ParseError)
	assert.Equal(t, []int{5, 12, 30}, stats.UncoveredFiles["a.py"])
}

func TestParseCoverage_Malformed(t *testing.T) {
	for name, input := range map[string][]byte{
		"empty":       nil,
		"whitespace":  []byte("   \n"),
		"truncated":   []byte("<coverage><packages>"),
		"not xml":     []byte("line-rate: 0.75"),
	} {
		t.Run(name, func(t *testing.T) {
			stats := ParseCoverage(input)
			assert.True(t, stats.ParseError)
		})
	}
}
