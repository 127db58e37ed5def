// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence turns raw run output into structured, typed metrics.
//
// # Description
//
// Four independent, pure extractors: unified diffs, test-runner logs,
// Cobertura coverage XML, and free-text writeups. Each takes one raw
// input and returns a typed stats struct.
//
// # Error Contract
//
// Extractors never return errors and never panic. On malformed input they
// return a zero-value struct with ParseError set, so a single corrupt
// artifact cannot abort a verification run. Downstream rules simply see
// absent metrics and correctly fail to prove claims that depend on them.
//
// # Thread Safety
//
// All extractors are pure functions with no shared state. Safe for
// concurrent use.
package evidence

import "strings"

// maxExcerptLen caps stored writeup excerpts so briefs stay readable.
const maxExcerptLen = 200

// clip truncates s to maxExcerptLen runes, never splitting a rune.
func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxExcerptLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxExcerptLen {
		return s
	}
	return string(runes[:maxExcerptLen])
}
