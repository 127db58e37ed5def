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
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// TestLogStats is the structured form of raw test-runner output.
type TestLogStats struct {
	TotalTests      int     `json:"total_tests"`
	PassedCount     int     `json:"passed_count"`
	FailedCount     int     `json:"failed_count"`
	SkippedCount    int     `json:"skipped_count"`
	DurationSeconds float64 `json:"duration_seconds"`

	// TestsPassed is true iff no test failed and at least one test ran.
	TestsPassed bool `json:"tests_passed"`

	// ParseError is set when no recognized summary was found.
	ParseError bool `json:"parse_error,omitempty"`
}

var (
	// pytest: "8 passed, 1 failed, 1 skipped in 2.34s" (token order varies,
	// and pytest wraps the line in "=" padding).
	pytestTokenRe    = regexp.MustCompile(`(\d+)\s+(passed|failed|skipped|errors?|xfailed|xpassed|warnings?|deselected)\b`)
	pytestDurationRe = regexp.MustCompile(`\bin\s+([0-9]+(?:\.[0-9]+)?)s\b`)

	// Jest: "Tests:       1 failed, 2 passed, 3 total" + "Time:        2.5 s".
	jestTestsRe = regexp.MustCompile(`^Tests:\s+(.*)$`)
	jestTokenRe = regexp.MustCompile(`(\d+)\s+(failed|passed|skipped|todo|total)\b`)
	jestTimeRe  = regexp.MustCompile(`^Time:\s+([0-9]+(?:\.[0-9]+)?)\s*s\b`)
)

// ParseTestLog parses test-runner stdout/stderr into TestLogStats.
//
// Two summary grammars are recognized: the pytest single-line summary and
// the Jest multi-line "Tests:"/"Time:" block. When a log contains several
// summary lines (reruns), the last one wins.
func ParseTestLog(out string) TestLogStats {
	var stats TestLogStats
	found := false

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if m := jestTestsRe.FindStringSubmatch(line); m != nil {
			s := TestLogStats{DurationSeconds: stats.DurationSeconds}
			for _, tok := range jestTokenRe.FindAllStringSubmatch(m[1], -1) {
				n, _ := strconv.Atoi(tok[1])
				switch tok[2] {
				case "passed":
					s.PassedCount = n
				case "failed":
					s.FailedCount = n
				case "skipped", "todo":
					s.SkippedCount += n
				case "total":
					s.TotalTests = n
				}
			}
			if s.TotalTests == 0 {
				s.TotalTests = s.PassedCount + s.FailedCount + s.SkippedCount
			}
			stats = s
			found = true
			continue
		}

		if m := jestTimeRe.FindStringSubmatch(line); m != nil {
			d, _ := strconv.ParseFloat(m[1], 64)
			stats.DurationSeconds = d
			continue
		}

		// The pytest summary always carries a duration; requiring it keeps
		// incidental "N passed" phrases in captured output from matching.
		if dm := pytestDurationRe.FindStringSubmatch(line); dm != nil {
			toks := pytestTokenRe.FindAllStringSubmatch(line, -1)
			if len(toks) == 0 {
				continue
			}
			s := TestLogStats{}
			s.DurationSeconds, _ = strconv.ParseFloat(dm[1], 64)
			for _, tok := range toks {
				n, _ := strconv.Atoi(tok[1])
				switch {
				case tok[2] == "passed":
					s.PassedCount = n
				case tok[2] == "failed":
					s.FailedCount = n
				case tok[2] == "skipped":
					s.SkippedCount = n
				case strings.HasPrefix(tok[2], "error"):
					// Collection/setup errors count against the run.
					s.FailedCount += n
				}
			}
			s.TotalTests = s.PassedCount + s.FailedCount + s.SkippedCount
			stats = s
			found = true
		}
	}

	if !found {
		return TestLogStats{ParseError: true}
	}

	stats.TestsPassed = stats.FailedCount == 0 && stats.PassedCount > 0
	return stats
}
