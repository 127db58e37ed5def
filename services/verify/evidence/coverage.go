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
	"bytes"
	"encoding/xml"
	"io"
	"sort"
)

// MaxCoverageSize is the maximum coverage payload size accepted.
const MaxCoverageSize = 50 * 1024 * 1024 // 50MB

// CoverageStats is the structured form of a Cobertura coverage report.
type CoverageStats struct {
	// LineCoveragePercent and BranchCoveragePercent are 0-100 rates
	// derived from Cobertura's 0-1 rate attributes.
	LineCoveragePercent   float64 `json:"line_coverage_percent"`
	BranchCoveragePercent float64 `json:"branch_coverage_percent"`

	LinesCovered int `json:"lines_covered"`
	LinesTotal   int `json:"lines_total"`

	// UncoveredFiles maps file names to the sorted set of uncovered lines.
	UncoveredFiles map[string][]int `json:"uncovered_files,omitempty"`

	// ParseError is set when the XML could not be decoded.
	ParseError bool `json:"parse_error,omitempty"`
}

// ParseCoverage parses Cobertura-style XML into CoverageStats.
//
// The root line-rate/branch-rate attributes are authoritative when present;
// otherwise rates are computed from per-line hit counts.
func ParseCoverage(xmlData []byte) CoverageStats {
	if len(bytes.TrimSpace(xmlData)) == 0 || len(xmlData) > MaxCoverageSize {
		return CoverageStats{ParseError: true}
	}

	// Cobertura structure, decoded with inline types.
	type cLine struct {
		Number int `xml:"number,attr"`
		Hits   int `xml:"hits,attr"`
	}
	type cClass struct {
		Filename string  `xml:"filename,attr"`
		Lines    []cLine `xml:"lines>line"`
	}
	type cPackage struct {
		Classes []cClass `xml:"classes>class"`
	}
	type cCoverage struct {
		LineRate   *float64   `xml:"line-rate,attr"`
		BranchRate *float64   `xml:"branch-rate,attr"`
		Packages   []cPackage `xml:"packages>package"`
	}

	decoder := xml.NewDecoder(io.LimitReader(bytes.NewReader(xmlData), MaxCoverageSize))
	var cov cCoverage
	if err := decoder.Decode(&cov); err != nil {
		return CoverageStats{ParseError: true}
	}

	var stats CoverageStats
	uncovered := make(map[string][]int)

	for _, pkg := range cov.Packages {
		for _, cls := range pkg.Classes {
			for _, line := range cls.Lines {
				stats.LinesTotal++
				if line.Hits > 0 {
					stats.LinesCovered++
				} else if cls.Filename != "" {
					uncovered[cls.Filename] = append(uncovered[cls.Filename], line.Number)
				}
			}
		}
	}

	for _, lines := range uncovered {
		sort.Ints(lines)
	}
	if len(uncovered) > 0 {
		stats.UncoveredFiles = uncovered
	}

	switch {
	case cov.LineRate != nil:
		stats.LineCoveragePercent = *cov.LineRate * 100
	case stats.LinesTotal > 0:
		stats.LineCoveragePercent = float64(stats.LinesCovered) / float64(stats.LinesTotal) * 100
	}
	if cov.BranchRate != nil {
		stats.BranchCoveragePercent = *cov.BranchRate * 100
	}

	return stats
}
