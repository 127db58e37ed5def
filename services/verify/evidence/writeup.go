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
	"strings"
)

// WriteupStats is the structured form of a candidate's free-text writeup.
type WriteupStats struct {
	WordCount int `json:"word_count"`

	// Sections is the sorted set of detected section labels (lowercased).
	Sections []string `json:"sections,omitempty"`

	HasRootCause  bool `json:"has_root_cause"`
	HasTradeoffs  bool `json:"has_tradeoffs"`
	HasMonitoring bool `json:"has_monitoring"`

	// PromptsAnswered is the sorted set of known writeup prompts the
	// sections map onto.
	PromptsAnswered []string `json:"prompts_answered,omitempty"`

	// Excerpts maps signal names (root_cause, tradeoffs, monitoring) to
	// the first supporting line, so rules can cite a direct quote.
	Excerpts map[string]string `json:"excerpts,omitempty"`

	// ParseError is set when the input is empty.
	ParseError bool `json:"parse_error,omitempty"`
}

// Writeup signal vocabulary. A heading match or in-paragraph vocabulary
// match flips the corresponding flag.
var writeupSignals = map[string][]string{
	"root_cause": {"root cause", "underlying cause", "caused by", "culprit"},
	"tradeoffs":  {"trade-off", "tradeoff", "alternatives considered", "pros and cons"},
	"monitoring": {"monitoring", "alerting", "observability", "dashboard", "alert on"},
}

// promptLabels maps section-label vocabulary to the writeup prompts the
// simulation asks candidates to answer.
var promptLabels = map[string]string{
	"what happened": "what_happened",
	"summary":       "what_happened",
	"root cause":    "root_cause",
	"the fix":       "fix_description",
	"fix":           "fix_description",
	"solution":      "fix_description",
	"trade-offs":    "tradeoffs",
	"tradeoffs":     "tradeoffs",
	"alternatives":  "tradeoffs",
	"testing":       "testing",
	"monitoring":    "monitoring",
	"follow-up":     "followups",
	"next steps":    "followups",
}

var (
	mdHeadingRe    = regexp.MustCompile(`^#{1,6}\s+(.{1,80})$`)
	plainHeadingRe = regexp.MustCompile(`^([A-Z][A-Za-z /&-]{1,40}):?\s*$`)
)

// ExtractWriteup parses a free-text writeup into WriteupStats.
func ExtractWriteup(text string) WriteupStats {
	if strings.TrimSpace(text) == "" {
		return WriteupStats{ParseError: true}
	}

	stats := WriteupStats{
		WordCount: len(strings.Fields(text)),
		Excerpts:  make(map[string]string),
	}
	sectionSet := make(map[string]struct{})
	promptSet := make(map[string]struct{})

	flip := func(signal, line string) {
		switch signal {
		case "root_cause":
			stats.HasRootCause = true
		case "tradeoffs":
			stats.HasTradeoffs = true
		case "monitoring":
			stats.HasMonitoring = true
		}
		if _, seen := stats.Excerpts[signal]; !seen {
			stats.Excerpts[signal] = clip(line)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		var heading string
		if m := mdHeadingRe.FindStringSubmatch(trimmed); m != nil {
			heading = m[1]
		} else if m := plainHeadingRe.FindStringSubmatch(trimmed); m != nil {
			heading = m[1]
		}

		if heading != "" {
			label := strings.ToLower(strings.TrimRight(strings.TrimSpace(heading), ":"))
			sectionSet[label] = struct{}{}
			for vocab, prompt := range promptLabels {
				if strings.Contains(label, vocab) {
					promptSet[prompt] = struct{}{}
				}
			}
		}

		lower := strings.ToLower(trimmed)
		for signal, vocab := range writeupSignals {
			for _, term := range vocab {
				if strings.Contains(lower, term) {
					flip(signal, trimmed)
					break
				}
			}
		}
	}

	stats.Sections = sortedKeys(sectionSet)
	stats.PromptsAnswered = sortedKeys(promptSet)
	if len(stats.Excerpts) == 0 {
		stats.Excerpts = nil
	}
	return stats
}
