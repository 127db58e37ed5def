// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package com provides the Company Operating Model and rubric configuration.
//
// The COM supplies the role-level thresholds rules read (pace, coverage
// tolerance, writeup signal count); the rubric supplies per-dimension
// weights for claim prioritization. Both are read-only to the core.
//
// Rule thresholds are deliberately configuration, not constants. Defaults
// are documented on the Thresholds fields.
package com

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxConfigSize is the maximum allowed COM/rubric YAML size (1MB).
const MaxConfigSize = 1024 * 1024

// comValidate is the validator instance for COM documents.
var comValidate = validator.New()

// PaceProfile describes the hiring org's expected working pace.
type PaceProfile string

const (
	PaceFast       PaceProfile = "fast"
	PaceStandard   PaceProfile = "standard"
	PaceDeliberate PaceProfile = "deliberate"
)

// paceFactor scales the base pace threshold per profile.
var paceFactor = map[PaceProfile]float64{
	PaceFast:       0.75,
	PaceStandard:   1.0,
	PaceDeliberate: 1.25,
}

// Thresholds holds the numeric knobs rules consult.
type Thresholds struct {
	// CoverageRegressionTolerance is the most negative coverage delta
	// (percentage points) TestingDiscipline tolerates. Default: -10.0.
	CoverageRegressionTolerance float64 `yaml:"coverage_regression_tolerance"`

	// PaceSeconds is the base time-to-green budget for TimeEfficient,
	// before pace-profile scaling. Default: 3600.
	PaceSeconds float64 `yaml:"pace_seconds" validate:"gte=0"`

	// WriteupSignalsRequired is how many of {root cause, tradeoffs,
	// monitoring} CommunicationClear requires. Default: 2.
	WriteupSignalsRequired int `yaml:"writeup_signals_required" validate:"gte=1,lte=3"`

	// LongRunCeilingSeconds is the run duration beyond which the brief
	// carries a long_completion_time risk flag. Default: 3600.
	LongRunCeilingSeconds float64 `yaml:"long_run_ceiling_seconds" validate:"gte=0"`
}

// COM is the Company Operating Model for a role.
type COM struct {
	Version            string      `yaml:"version"`
	Pace               PaceProfile `yaml:"pace" validate:"omitempty,oneof=fast standard deliberate"`
	QualityBar         string      `yaml:"quality_bar"`
	AmbiguityTolerance string      `yaml:"ambiguity_tolerance"`
	Thresholds         Thresholds  `yaml:"thresholds"`
}

// Default returns the documented default COM.
func Default() COM {
	return COM{
		Version: "v1",
		Pace:    PaceStandard,
		Thresholds: Thresholds{
			CoverageRegressionTolerance: -10.0,
			PaceSeconds:                 3600,
			WriteupSignalsRequired:      2,
			LongRunCeilingSeconds:       3600,
		},
	}
}

// EffectivePaceSeconds returns the pace budget scaled by the pace profile.
func (c COM) EffectivePaceSeconds() float64 {
	f, ok := paceFactor[c.Pace]
	if !ok {
		f = 1.0
	}
	return c.Thresholds.PaceSeconds * f
}

// Load parses a COM YAML document layered over defaults.
func Load(data []byte) (COM, error) {
	if len(data) > MaxConfigSize {
		return COM{}, fmt.Errorf("com: document too large: %d bytes (max %d)", len(data), MaxConfigSize)
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return COM{}, fmt.Errorf("com: parse: %w", err)
	}
	if err := comValidate.Struct(c); err != nil {
		return COM{}, fmt.Errorf("com: validate: %w", err)
	}
	return c, nil
}

// LoadFile reads and parses a COM YAML file, enforcing the size cap
// before reading.
func LoadFile(path string) (COM, error) {
	info, err := os.Stat(path)
	if err != nil {
		return COM{}, fmt.Errorf("com: stat: %w", err)
	}
	if info.Size() > MaxConfigSize {
		return COM{}, fmt.Errorf("com: file too large: %d bytes (max %d)", info.Size(), MaxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return COM{}, fmt.Errorf("com: read: %w", err)
	}
	return Load(data)
}

// Rubric assigns weights to evaluation dimensions for a role.
type Rubric struct {
	Dimensions map[string]float64 `yaml:"dimensions"`
}

// Weight returns the rubric weight for a dimension; unknown dimensions
// weigh zero.
func (r Rubric) Weight(dimension string) float64 {
	return r.Dimensions[dimension]
}

// LoadRubric parses a rubric YAML document.
func LoadRubric(data []byte) (Rubric, error) {
	if len(data) > MaxConfigSize {
		return Rubric{}, fmt.Errorf("rubric: document too large: %d bytes (max %d)", len(data), MaxConfigSize)
	}
	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rubric{}, fmt.Errorf("rubric: parse: %w", err)
	}
	for dim, w := range r.Dimensions {
		if w < 0 {
			return Rubric{}, fmt.Errorf("rubric: dimension %q has negative weight %v", dim, w)
		}
	}
	return r, nil
}

// LoadRubricFile reads and parses a rubric YAML file.
func LoadRubricFile(path string) (Rubric, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Rubric{}, fmt.Errorf("rubric: stat: %w", err)
	}
	if info.Size() > MaxConfigSize {
		return Rubric{}, fmt.Errorf("rubric: file too large: %d bytes (max %d)", info.Size(), MaxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, fmt.Errorf("rubric: read: %w", err)
	}
	return LoadRubric(data)
}
