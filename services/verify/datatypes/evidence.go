// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ArtifactType tags a stored run artifact.
type ArtifactType string

const (
	ArtifactDiff         ArtifactType = "diff"
	ArtifactTestLog      ArtifactType = "test_log"
	ArtifactCoverage     ArtifactType = "coverage"
	ArtifactWriteup      ArtifactType = "writeup"
	ArtifactSourceBundle ArtifactType = "source_bundle"
	ArtifactMetricsJSON  ArtifactType = "metrics_json"
	ArtifactLLMOutput    ArtifactType = "llm_output"
)

// Artifact is a read-only reference to a stored blob. The core only ever
// sees its extracted, structured form; raw bytes are touched exclusively
// by the evidence extractors.
type Artifact struct {
	Type       ArtifactType `json:"type"`
	ContentRef string       `json:"content_ref"`
}

// LLMTag is a bounded, citation-required tag produced by a schema-validated
// LLM call outside the core. Treated purely as evidence input.
type LLMTag struct {
	Tag           string  `json:"tag"`
	Confidence    float64 `json:"confidence"`
	EvidenceQuote string  `json:"evidence_quote"`
}

// Metrics is a flat mapping from metric name to a float, bool, or string,
// as produced by the sandboxed grading runner (metrics.json shape) and
// supplemented by the evidence extractors.
type Metrics map[string]any

// Float returns the metric as a float64. Integer values decode cleanly;
// anything else reports absent.
func (m Metrics) Float(name string) (float64, bool) {
	v, ok := m[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Int returns the metric as an int, truncating float values.
func (m Metrics) Int(name string) (int, bool) {
	f, ok := m.Float(name)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool returns the metric as a bool.
func (m Metrics) Bool(name string) (bool, bool) {
	v, ok := m[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Str returns the metric as a string.
func (m Metrics) Str(name string) (string, bool) {
	v, ok := m[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy. Used when merging extractor-derived
// metrics so the caller's map is never mutated.
func (m Metrics) Clone() Metrics {
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Evidence bundles everything a rule may consult. Read-only by contract.
type Evidence struct {
	// Metrics holds runner-produced and extractor-derived measurements.
	Metrics Metrics `json:"metrics"`

	// Artifacts references the raw blobs the metrics were derived from.
	Artifacts []Artifact `json:"artifacts,omitempty"`

	// LLMTags is optional bounded tag evidence. Absent means empty.
	LLMTags []LLMTag `json:"llm_tags,omitempty"`

	// Quotes maps writeup signal names to the supporting excerpt, so
	// rules can cite a direct quote for each writeup-backed condition.
	Quotes map[string]string `json:"quotes,omitempty"`
}

// Tag returns the first LLM tag with the given name.
func (e Evidence) Tag(name string) (LLMTag, bool) {
	for _, t := range e.LLMTags {
		if t.Tag == name {
			return t, true
		}
	}
	return LLMTag{}, false
}

// HasArtifact reports whether an artifact of the given type is present.
func (e Evidence) HasArtifact(t ArtifactType) bool {
	for _, a := range e.Artifacts {
		if a.Type == t {
			return true
		}
	}
	return false
}

// Empty reports whether the evidence carries neither metrics nor
// artifacts. An empty Evidence is a run-level failure the orchestrator
// must reject before invoking the pipeline.
func (e Evidence) Empty() bool {
	return len(e.Metrics) == 0 && len(e.Artifacts) == 0
}
