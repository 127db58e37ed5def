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
	"regexp"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// DiffStats is the structured form of a unified diff.
type DiffStats struct {
	// FilesChanged is the sorted set of file paths touched by the diff.
	FilesChanged []string `json:"files_changed"`

	// LinesAdded and LinesRemoved count content lines, not hunk headers.
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`

	// TestFilesChanged is the subset of FilesChanged classified as tests.
	TestFilesChanged []string `json:"test_files_changed"`

	// TestAdded is true when at least one new test definition was added.
	TestAdded bool `json:"test_added"`

	// TestsAddedCount counts added test definitions across all files.
	TestsAddedCount int `json:"tests_added_count"`

	// SkippedTestsAdded counts added test definitions carrying a skip
	// annotation directly adjacent to the definition.
	SkippedTestsAdded int `json:"skipped_tests_added"`

	// ParseError is set when the input could not be parsed as a diff.
	ParseError bool `json:"parse_error,omitempty"`
}

// Test definition grammars for the languages the grading runner supports.
var (
	pyTestDefRe = regexp.MustCompile(`^\s*(?:async\s+)?def\s+test_\w+`)
	goTestDefRe = regexp.MustCompile(`^func\s+Test[A-Z0-9_]\w*\s*\(`)
	jsTestDefRe = regexp.MustCompile(`^\s*(?:it|test)(?:\.\w+)?\s*\(`)

	skipMarkerRe = regexp.MustCompile(
		`@pytest\.mark\.skip|@unittest\.skip|pytest\.skip\(|t\.Skip\(|t\.SkipNow\(|(?:it|test|describe)\.skip\s*\(|\bxit\s*\(|\bxtest\s*\(`)

	jsSkipDefRe = regexp.MustCompile(`^\s*(?:it|test)\.skip\s*\(|^\s*(?:xit|xtest)\s*\(`)
)

// ExtractDiff parses unified-diff text into DiffStats.
//
// A file is classified as a test by path heuristic: its base name contains
// "test_", "_test.", ".test." or ".spec.", or it lives under a tests/
// directory. Skip counting pairs a skip annotation with the test definition
// on the same added line or the immediately preceding added line.
func ExtractDiff(diffText string) DiffStats {
	if strings.TrimSpace(diffText) == "" {
		return DiffStats{ParseError: true}
	}

	fds, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil || len(fds) == 0 {
		return DiffStats{ParseError: true}
	}

	var stats DiffStats
	fileSet := make(map[string]struct{})
	testFileSet := make(map[string]struct{})

	for _, fd := range fds {
		path := diffFilePath(fd)
		if path == "" {
			continue
		}
		fileSet[path] = struct{}{}
		isTest := isTestPath(path)
		if isTest {
			testFileSet[path] = struct{}{}
		}

		for _, hunk := range fd.Hunks {
			lines := strings.Split(string(hunk.Body), "\n")
			prevAddedSkip := false
			for _, line := range lines {
				switch {
				case strings.HasPrefix(line, "+"):
					stats.LinesAdded++
					content := line[1:]
					isDef := pyTestDefRe.MatchString(content) ||
						goTestDefRe.MatchString(content) ||
						jsTestDefRe.MatchString(content)
					if isDef {
						stats.TestsAddedCount++
						stats.TestAdded = true
						if prevAddedSkip || jsSkipDefRe.MatchString(content) {
							stats.SkippedTestsAdded++
						}
					}
					prevAddedSkip = skipMarkerRe.MatchString(content) && !isDef
				case strings.HasPrefix(line, "-"):
					stats.LinesRemoved++
					prevAddedSkip = false
				default:
					// Context lines break skip adjacency.
					prevAddedSkip = false
				}
			}
		}
	}

	stats.FilesChanged = sortedKeys(fileSet)
	stats.TestFilesChanged = sortedKeys(testFileSet)
	return stats
}

// diffFilePath returns the post-image path of a file diff, falling back to
// the pre-image for deletions. Git's a/ and b/ prefixes are stripped.
func diffFilePath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	if name == "" || name == "/dev/null" {
		return ""
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}

// isTestPath classifies a file path as test code.
func isTestPath(path string) bool {
	base := strings.ToLower(path[strings.LastIndex(path, "/")+1:])
	if strings.HasPrefix(base, "test_") ||
		strings.Contains(base, "_test.") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") {
		return true
	}
	for _, seg := range strings.Split(strings.ToLower(path), "/") {
		if seg == "tests" || seg == "test" || seg == "__tests__" {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
