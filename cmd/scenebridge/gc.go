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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SceneBridge/services/bridge/transfer"
)

var gcMaxAge time.Duration

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Sweep the staging directory once",
	Long: `Deletes staged files older than the configured TTL. Safe to run
while a bridge is serving: writers always stage under fresh names and
the sweep only touches files already past their age threshold.`,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().DurationVar(&gcMaxAge, "max-age", 0,
		"age threshold; zero uses the configured staging TTL")
}

func runGC(cmd *cobra.Command, args []string) error {
	maxAge := gcMaxAge
	if maxAge <= 0 {
		maxAge = cfg.StagingTTL()
	}

	manager := transfer.NewManager(transfer.Config{Dir: cfg.StagingDir, TTL: cfg.StagingTTL()})
	deleted, err := manager.GC(maxAge)
	if err != nil {
		return err
	}
	fmt.Printf("%s deleted %d staged file(s) older than %s from %s\n",
		render(styleSuccess, "✓"), deleted, maxAge, cfg.StagingDir)
	return nil
}
