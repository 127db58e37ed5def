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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/attest/services/verify/claimgen"
	"github.com/AleutianAI/attest/services/verify/proof"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the registered proof rules",
	Long: "Prints every rule in the default proof engine with the claim " +
		"types it evaluates and the dimensions it speaks to. Claim types " +
		"without a listed rule can never be PROVED.",
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	engine := proof.NewDefaultEngine(logger.Slog())
	catalog := claimgen.DefaultCatalog()

	out := cmd.OutOrStdout()
	for _, entry := range catalog.Claims {
		rules := engine.RulesFor(entry.ClaimType)
		if len(rules) == 0 {
			fmt.Fprintf(out, "%-24s (no rule: claims are fail-closed UNPROVED)\n", entry.ClaimType)
			continue
		}
		for _, r := range rules {
			fmt.Fprintf(out, "%-24s rule=%s dimensions=%s\n",
				entry.ClaimType, r.ID(), strings.Join(r.Dimensions(), ","))
		}
	}
	return nil
}
