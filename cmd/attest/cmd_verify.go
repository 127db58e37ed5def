// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/attest/services/verify"
	"github.com/AleutianAI/attest/services/verify/briefstore"
	"github.com/AleutianAI/attest/services/verify/com"
	"github.com/AleutianAI/attest/services/verify/datatypes"
)

var (
	verifyApplicationID   string
	verifyCandidateID     string
	verifyRoleID          string
	verifySimulationRunID string

	verifyDiffPath     string
	verifyTestLogPath  string
	verifyCoveragePath string
	verifyWriteupPath  string
	verifyMetricsPath  string
	verifyLLMTagsPath  string
	verifyCOMPath      string
	verifyRubricPath   string

	verifyStoreDir string
	verifyOutPath  string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one simulation run and emit a candidate brief",
	Long: "Reads the run's artifacts, extracts evidence, evaluates every " +
		"relevant claim against the registered proof rules, and writes the " +
		"resulting candidate brief as JSON. With --store, the brief is also " +
		"persisted under the next version number for the application.",
	RunE: runVerify,
}

func init() {
	f := verifyCmd.Flags()
	f.StringVar(&verifyApplicationID, "application-id", "", "Application identifier (required)")
	f.StringVar(&verifyCandidateID, "candidate-id", "", "Candidate identifier (required)")
	f.StringVar(&verifyRoleID, "role-id", "", "Role identifier")
	f.StringVar(&verifySimulationRunID, "run-id", "", "Simulation run identifier")

	f.StringVar(&verifyDiffPath, "diff", "", "Unified diff produced by the run")
	f.StringVar(&verifyTestLogPath, "test-log", "", "Test runner output (pytest or jest)")
	f.StringVar(&verifyCoveragePath, "coverage", "", "Cobertura coverage XML")
	f.StringVar(&verifyWriteupPath, "writeup", "", "Candidate writeup (markdown or plain text)")
	f.StringVar(&verifyMetricsPath, "metrics", "", "Runner metrics.json (authoritative)")
	f.StringVar(&verifyLLMTagsPath, "llm-tags", "", "Pre-computed LLM tag evidence (JSON array)")
	f.StringVar(&verifyCOMPath, "com", "", "Claim object model YAML (defaults apply if omitted)")
	f.StringVar(&verifyRubricPath, "rubric", "", "Role rubric YAML (omitted keeps every claim, ranked in catalog order)")

	f.StringVar(&verifyStoreDir, "store", "", "Persist the brief in a badger store at this directory")
	f.StringVarP(&verifyOutPath, "output", "o", "", "Write the brief JSON here instead of stdout")

	_ = verifyCmd.MarkFlagRequired("application-id")
	_ = verifyCmd.MarkFlagRequired("candidate-id")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	req, err := buildRequest()
	if err != nil {
		return err
	}

	svc := verify.New(verify.Config{Logger: logger.Slog()})
	result, err := svc.Verify(cmd.Context(), req)
	if err != nil {
		return err
	}

	if verifyStoreDir != "" {
		store, err := briefstore.Open(briefstore.Config{
			Path:   verifyStoreDir,
			Logger: logger.Slog(),
		})
		if err != nil {
			return fmt.Errorf("open brief store: %w", err)
		}
		defer store.Close()

		version, err := store.Put(cmd.Context(), result.Brief)
		if err != nil {
			return fmt.Errorf("persist brief: %w", err)
		}
		logger.Info("brief persisted",
			"application_id", req.ApplicationID, "version", version)
	}

	payload, err := json.MarshalIndent(result.Brief, "", "  ")
	if err != nil {
		return fmt.Errorf("encode brief: %w", err)
	}
	payload = append(payload, '\n')

	if verifyOutPath != "" {
		if err := os.WriteFile(verifyOutPath, payload, 0o644); err != nil {
			return fmt.Errorf("write brief: %w", err)
		}
		logger.Info("brief written", "path", verifyOutPath,
			"proven", len(result.Brief.ProvenClaims),
			"unproven", len(result.Brief.UnprovenClaims))
		return nil
	}
	_, err = cmd.OutOrStdout().Write(payload)
	return err
}

// buildRequest reads every provided artifact file into a VerifyRequest.
// Missing optional flags leave the corresponding evidence absent; the
// pipeline decides what is provable from what remains.
func buildRequest() (verify.VerifyRequest, error) {
	req := verify.VerifyRequest{
		ApplicationID:   verifyApplicationID,
		CandidateID:     verifyCandidateID,
		RoleID:          verifyRoleID,
		SimulationRunID: verifySimulationRunID,
		COM:             com.Default(),
	}

	readText := func(path string) (string, error) {
		if path == "" {
			return "", nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}

	var err error
	if req.Artifacts.Diff, err = readText(verifyDiffPath); err != nil {
		return req, err
	}
	if req.Artifacts.TestLog, err = readText(verifyTestLogPath); err != nil {
		return req, err
	}
	if req.Artifacts.Writeup, err = readText(verifyWriteupPath); err != nil {
		return req, err
	}
	if verifyCoveragePath != "" {
		if req.Artifacts.CoverageXML, err = os.ReadFile(verifyCoveragePath); err != nil {
			return req, fmt.Errorf("read %s: %w", verifyCoveragePath, err)
		}
	}

	if verifyMetricsPath != "" {
		data, err := os.ReadFile(verifyMetricsPath)
		if err != nil {
			return req, fmt.Errorf("read %s: %w", verifyMetricsPath, err)
		}
		if err := json.Unmarshal(data, &req.Metrics); err != nil {
			return req, fmt.Errorf("parse metrics %s: %w", verifyMetricsPath, err)
		}
	}
	if verifyLLMTagsPath != "" {
		data, err := os.ReadFile(verifyLLMTagsPath)
		if err != nil {
			return req, fmt.Errorf("read %s: %w", verifyLLMTagsPath, err)
		}
		var tags []datatypes.LLMTag
		if err := json.Unmarshal(data, &tags); err != nil {
			return req, fmt.Errorf("parse llm tags %s: %w", verifyLLMTagsPath, err)
		}
		req.LLMTags = tags
	}

	if verifyCOMPath != "" {
		if req.COM, err = com.LoadFile(verifyCOMPath); err != nil {
			return req, err
		}
	}
	if verifyRubricPath != "" {
		if req.Rubric, err = com.LoadRubricFile(verifyRubricPath); err != nil {
			return req, err
		}
	}
	return req, nil
}
