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
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	initOutput string
	initForce  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file interactively",
	Long: `Walks through the common settings and writes a YAML config file.
Everything it asks has a sensible default; settings it skips (rate
limiting, InfluxDB, telemetry exporters) keep theirs and can be edited
into the file afterwards.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initOutput, "output", "scenebridge.yaml", "file to write")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", initOutput)
		}
	}

	out := cfg
	port := strconv.Itoa(out.Port)
	journalDir := out.Journal.Dir

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bind host").
				Description("The bridge is unauthenticated; keep it on loopback unless you know why not.").
				Value(&out.Host),
			huh.NewInput().
				Title("Port").
				Description("0 picks a free port at startup.").
				Validate(validatePort).
				Value(&port),
			huh.NewInput().
				Title("Staging directory").
				Description("Bulk results too large for inline JSON land here.").
				Value(&out.StagingDir),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Scene file").
				Description("Optional; reported by the host and watched for saves.").
				Value(&out.ScenePath),
			huh.NewConfirm().
				Title("Watch the scene file for external saves?").
				Value(&out.WatchScene),
			huh.NewConfirm().
				Title("Keep an operation journal?").
				Value(&out.Journal.Enabled),
			huh.NewInput().
				Title("Journal directory").
				Description("Empty keeps the journal in memory only.").
				Value(&journalDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions("json", "text")...).
				Value(&out.LogFormat),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&out.LogLevel),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	out.Port, _ = strconv.Atoi(port)
	out.Journal.Dir = journalDir
	if err := out.Validate(); err != nil {
		return fmt.Errorf("resulting config is invalid: %w", err)
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(initOutput, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", initOutput, err)
	}

	fmt.Println(render(styleSuccess, "✓") + " wrote " + initOutput)
	fmt.Println(render(styleMuted, "  start the bridge with: scenebridge serve --config "+initOutput))
	return nil
}

// validatePort accepts 0 (ephemeral) through 65535.
func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 65535 {
		return errors.New("port must be 0-65535")
	}
	return nil
}
