// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verify wires the verification pipeline: evidence extraction,
// claim generation, proof evaluation, and brief assembly.
//
// # Description
//
// The Service is the orchestrator-facing boundary. Everything inside a
// Verify call is synchronous and pure; I/O (fetching artifacts, persisting
// briefs) happens before and after, in the caller. Independent runs share
// no mutable state, so VerifyAll processes them in parallel without locks.
// The rule registry is populated once at construction and frozen.
package verify

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/attest/services/verify/brief"
	"github.com/AleutianAI/attest/services/verify/claimgen"
	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
	"github.com/AleutianAI/attest/services/verify/evidence"
	"github.com/AleutianAI/attest/services/verify/interview"
	"github.com/AleutianAI/attest/services/verify/proof"
)

// tracerName identifies pipeline spans. Exporter wiring is the embedding
// process's concern; with no exporter these spans are no-ops.
const tracerName = "github.com/AleutianAI/attest/services/verify"

// defaultMaxConcurrentRuns bounds VerifyAll parallelism.
const defaultMaxConcurrentRuns = 4

// Config configures a verification Service.
type Config struct {
	// Engine is the proof engine. Nil means NewDefaultEngine with the
	// built-in rules.
	Engine *proof.Engine

	// Catalog is the claim catalog. Nil means the embedded default.
	Catalog *claimgen.Catalog

	// Bank is the interview question bank. Nil means the embedded default.
	Bank *interview.Bank

	// Logger receives pipeline and audit logs. Nil means slog.Default().
	Logger *slog.Logger

	// MaxConcurrentRuns bounds VerifyAll parallelism. Zero means the
	// default (4).
	MaxConcurrentRuns int
}

// Service runs the verification pipeline. Safe for concurrent use.
type Service struct {
	engine  *proof.Engine
	catalog *claimgen.Catalog
	bank    *interview.Bank
	logger  *slog.Logger
	maxRuns int
}

// New builds a Service. This is the composition root: the engine's rule
// registry is complete before the Service is returned and never mutated
// afterwards.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = proof.NewDefaultEngine(logger)
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = claimgen.DefaultCatalog()
	}
	bank := cfg.Bank
	if bank == nil {
		bank = interview.DefaultBank()
	}
	maxRuns := cfg.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = defaultMaxConcurrentRuns
	}
	return &Service{
		engine:  engine,
		catalog: catalog,
		bank:    bank,
		logger:  logger,
		maxRuns: maxRuns,
	}
}

// RawArtifacts carries the raw textual run output for extraction. Empty
// fields mean the artifact was not produced by the run.
type RawArtifacts struct {
	Diff        string
	TestLog     string
	CoverageXML []byte
	Writeup     string
}

// VerifyRequest is one completed simulation run to verify.
type VerifyRequest struct {
	ApplicationID   string
	CandidateID     string
	RoleID          string
	SimulationRunID string

	// Metrics is the runner-produced metrics.json payload. Runner metrics
	// are authoritative; extractor-derived metrics only fill gaps.
	Metrics datatypes.Metrics

	// Artifacts is the raw run output to extract evidence from.
	Artifacts RawArtifacts

	// LLMTags is optional bounded tag evidence. Absent means empty.
	LLMTags []datatypes.LLMTag

	COM    com.COM
	Rubric com.Rubric
}

// VerifyResult is the pipeline output for one run.
type VerifyResult struct {
	Brief        *brief.CandidateBrief
	Claims       []datatypes.Claim
	ProofResults []datatypes.ProofResult
	Evidence     datatypes.Evidence
}

// Verify runs the full pipeline for one completed run.
//
// The only run-level failure is complete absence of evidence: with any
// metrics or artifacts at all, a brief is always produced, even when every
// claim is UNPROVED.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "verify.pipeline")
	defer span.End()
	span.SetAttributes(
		attribute.String("application_id", req.ApplicationID),
		attribute.String("simulation_run_id", req.SimulationRunID),
	)

	ev := s.assembleEvidence(ctx, req)
	if ev.Empty() {
		return nil, fmt.Errorf("verify %s: %w", req.ApplicationID, datatypes.ErrNoEvidence)
	}

	subject := datatypes.Subject{
		CandidateID:   req.CandidateID,
		ApplicationID: req.ApplicationID,
	}
	claims, err := claimgen.Generate(s.catalog, subject, req.Rubric)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", req.ApplicationID, err)
	}
	claims = claimgen.Prioritize(claims, req.Rubric)

	_, proveSpan := tracer.Start(ctx, "verify.prove")
	results := s.engine.EvaluateAll(claims, ev, req.COM)
	proveSpan.SetAttributes(attribute.Int("claims", len(claims)))
	proveSpan.End()

	b, err := brief.Build(brief.BuildInput{
		ApplicationID:   req.ApplicationID,
		CandidateID:     req.CandidateID,
		RoleID:          req.RoleID,
		SimulationRunID: req.SimulationRunID,
		ProofResults:    results,
		Evidence:        ev,
		KnownDimensions: s.catalog.Dimensions(),
		Bank:            s.bank,
		COM:             req.COM,
	})
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", req.ApplicationID, err)
	}

	s.logger.Info("verification complete",
		"application_id", req.ApplicationID,
		"claims", len(claims),
		"proven", len(b.ProvenClaims),
		"proof_rate", b.ProofRate,
	)

	return &VerifyResult{
		Brief:        b,
		Claims:       claims,
		ProofResults: results,
		Evidence:     ev,
	}, nil
}

// VerifyAll verifies independent runs in parallel. Each run's pipeline is
// isolated; a failed run cancels the batch and the first error is returned.
func (s *Service) VerifyAll(ctx context.Context, reqs []VerifyRequest) ([]*VerifyResult, error) {
	results := make([]*VerifyResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxRuns)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Verify(ctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// assembleEvidence merges runner metrics with extractor-derived metrics.
// Runner metrics win; extraction only fills absent names. Extractor parse
// failures are logged and otherwise treated as absent evidence.
func (s *Service) assembleEvidence(ctx context.Context, req VerifyRequest) datatypes.Evidence {
	_, span := otel.Tracer(tracerName).Start(ctx, "verify.extract")
	defer span.End()

	metrics := req.Metrics.Clone()
	if metrics == nil {
		metrics = make(datatypes.Metrics)
	}
	ev := datatypes.Evidence{
		Metrics: metrics,
		LLMTags: append([]datatypes.LLMTag(nil), req.LLMTags...),
	}

	setIfAbsent := func(name string, value any) {
		if _, exists := metrics[name]; !exists {
			metrics[name] = value
		}
	}

	if req.Artifacts.Diff != "" {
		ev.Artifacts = append(ev.Artifacts, datatypes.Artifact{Type: datatypes.ArtifactDiff, ContentRef: "diff"})
		stats := evidence.ExtractDiff(req.Artifacts.Diff)
		if stats.ParseError {
			s.logger.Warn("diff extraction failed", "application_id", req.ApplicationID)
		} else {
			setIfAbsent("files_changed", len(stats.FilesChanged))
			setIfAbsent("lines_added", stats.LinesAdded)
			setIfAbsent("lines_removed", stats.LinesRemoved)
			setIfAbsent("test_files_changed", len(stats.TestFilesChanged))
			setIfAbsent("test_added", stats.TestAdded)
			setIfAbsent("tests_added_count", stats.TestsAddedCount)
			setIfAbsent("skipped_tests_added", stats.SkippedTestsAdded)
		}
	}

	if req.Artifacts.TestLog != "" {
		ev.Artifacts = append(ev.Artifacts, datatypes.Artifact{Type: datatypes.ArtifactTestLog, ContentRef: "test_log"})
		stats := evidence.ParseTestLog(req.Artifacts.TestLog)
		if stats.ParseError {
			s.logger.Warn("test log parsing failed", "application_id", req.ApplicationID)
		} else {
			setIfAbsent("tests_passed", stats.TestsPassed)
			setIfAbsent("total_tests", stats.TotalTests)
			setIfAbsent("passed_count", stats.PassedCount)
			setIfAbsent("failed_count", stats.FailedCount)
			setIfAbsent("skipped_count", stats.SkippedCount)
			setIfAbsent("duration_seconds", stats.DurationSeconds)
		}
	}

	if len(req.Artifacts.CoverageXML) > 0 {
		ev.Artifacts = append(ev.Artifacts, datatypes.Artifact{Type: datatypes.ArtifactCoverage, ContentRef: "coverage"})
		stats := evidence.ParseCoverage(req.Artifacts.CoverageXML)
		if stats.ParseError {
			s.logger.Warn("coverage parsing failed", "application_id", req.ApplicationID)
		} else {
			setIfAbsent("coverage_percent", stats.LineCoveragePercent)
			setIfAbsent("branch_coverage_percent", stats.BranchCoveragePercent)
			setIfAbsent("lines_covered", stats.LinesCovered)
			setIfAbsent("lines_total", stats.LinesTotal)
		}
	}

	if req.Artifacts.Writeup != "" {
		ev.Artifacts = append(ev.Artifacts, datatypes.Artifact{Type: datatypes.ArtifactWriteup, ContentRef: "writeup"})
		stats := evidence.ExtractWriteup(req.Artifacts.Writeup)
		if stats.ParseError {
			s.logger.Warn("writeup extraction failed", "application_id", req.ApplicationID)
		} else {
			setIfAbsent("writeup_word_count", stats.WordCount)
			setIfAbsent("writeup_has_root_cause", stats.HasRootCause)
			setIfAbsent("writeup_has_tradeoffs", stats.HasTradeoffs)
			setIfAbsent("writeup_has_monitoring", stats.HasMonitoring)
			if len(stats.Excerpts) > 0 {
				ev.Quotes = stats.Excerpts
			}
		}
	}

	if len(req.Metrics) > 0 {
		ev.Artifacts = append(ev.Artifacts, datatypes.Artifact{Type: datatypes.ArtifactMetricsJSON, ContentRef: "metrics"})
	}
	if len(req.LLMTags) > 0 {
		ev.Artifacts = append(ev.Artifacts, datatypes.Artifact{Type: datatypes.ArtifactLLMOutput, ContentRef: "llm_tags"})
	}

	return ev
}
