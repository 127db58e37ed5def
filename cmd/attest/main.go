// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command attest runs the deterministic claim verification pipeline over
// the artifacts of a completed simulation run.
//
// Usage:
//
//	attest verify --metrics metrics.json --diff change.diff \
//	    --test-log pytest.out --coverage coverage.xml \
//	    --writeup writeup.md --com com.yaml --rubric rubric.yaml \
//	    --application-id app-1 --candidate-id cand-1 -o brief.json
//
//	attest rules
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/attest/pkg/logging"
)

var (
	logger *logging.Logger

	flagDebug  bool
	flagLogDir string
)

var rootCmd = &cobra.Command{
	Use:   "attest",
	Short: "Deterministic claim verification for hiring simulations",
	Long: "attest turns raw simulation evidence (diffs, test logs, coverage, " +
		"writeups) into PROVED/UNPROVED claims about a candidate and assembles " +
		"a versioned candidate brief. A claim is never reported PROVED unless " +
		"a registered rule demonstrated it from cited evidence.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if flagDebug {
			level = logging.LevelDebug
		}
		logger = logging.New(logging.Config{
			Level:   level,
			LogDir:  flagLogDir,
			Service: "attest",
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Also write JSON logs to this directory")
}
