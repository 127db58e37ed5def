// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package claimgen generates and prioritizes claims for an application.
//
// Generation is deterministic: the same catalog, subject, and rubric always
// produce the same claim list. There is no randomness and no time-of-day
// dependence anywhere in this package.
package claimgen

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// CatalogEntry is one claim template in the catalog.
type CatalogEntry struct {
	ClaimType            string   `yaml:"claim_type"`
	Statement            string   `yaml:"statement"`
	Dimensions           []string `yaml:"dimensions"`
	Confidence           float64  `yaml:"confidence"`
	EvidenceRequirements []string `yaml:"evidence_requirements"`
}

// Catalog is the fixed set of claim templates for a simulation kind.
type Catalog struct {
	Claims []CatalogEntry `yaml:"claims"`
}

// LoadCatalog parses a claim catalog from YAML.
func LoadCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("claimgen: parse catalog: %w", err)
	}
	if len(cat.Claims) == 0 {
		return nil, fmt.Errorf("claimgen: catalog has no claims")
	}
	seen := make(map[string]struct{}, len(cat.Claims))
	for i, e := range cat.Claims {
		if e.ClaimType == "" || e.Statement == "" || len(e.Dimensions) == 0 {
			return nil, fmt.Errorf("claimgen: catalog entry %d incomplete", i)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return nil, fmt.Errorf("claimgen: catalog entry %q: confidence %v out of range", e.ClaimType, e.Confidence)
		}
		if _, dup := seen[e.ClaimType]; dup {
			return nil, fmt.Errorf("claimgen: duplicate claim type %q", e.ClaimType)
		}
		seen[e.ClaimType] = struct{}{}
	}
	return &cat, nil
}

// DefaultCatalog returns the embedded catalog. The embedded YAML is
// compile-time data, so a parse failure is a build defect and panics.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		cat, err := LoadCatalog(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("claimgen: embedded catalog: %v", err))
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}

// Dimensions returns the sorted set of dimensions the catalog touches.
// The brief builder seeds its coverage map from this.
func (c *Catalog) Dimensions() []string {
	set := make(map[string]struct{})
	for _, e := range c.Claims {
		for _, d := range e.Dimensions {
			set[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Generate instantiates catalog entries into claims for one application.
//
// A claim is relevant to the role when the rubric assigns positive weight
// to at least one of its dimensions; an empty rubric keeps everything.
// Output order is catalog order, so repeated calls with identical inputs
// yield identical lists.
func Generate(cat *Catalog, subject datatypes.Subject, rubric com.Rubric) ([]datatypes.Claim, error) {
	if cat == nil {
		cat = DefaultCatalog()
	}

	claims := make([]datatypes.Claim, 0, len(cat.Claims))
	for _, e := range cat.Claims {
		if !relevant(e, rubric) {
			continue
		}
		c, err := datatypes.NewClaim(e.ClaimType, subject, e.Statement, e.Dimensions, e.Confidence, e.EvidenceRequirements)
		if err != nil {
			return nil, fmt.Errorf("claimgen: %s: %w", e.ClaimType, err)
		}
		claims = append(claims, c)
	}
	return claims, nil
}

func relevant(e CatalogEntry, rubric com.Rubric) bool {
	if len(rubric.Dimensions) == 0 {
		return true
	}
	for _, d := range e.Dimensions {
		if rubric.Weight(d) > 0 {
			return true
		}
	}
	return false
}

// Prioritize reorders claims by the rubric weight of each claim's primary
// dimension, descending. The sort is stable, so ties keep generation
// order. Claims are never dropped; the input slice is not mutated.
//
// Ordering affects presentation only, never proof outcomes.
func Prioritize(claims []datatypes.Claim, rubric com.Rubric) []datatypes.Claim {
	out := append([]datatypes.Claim(nil), claims...)
	sort.SliceStable(out, func(i, j int) bool {
		return rubric.Weight(out[i].PrimaryDimension()) > rubric.Weight(out[j].PrimaryDimension())
	})
	return out
}
