// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command scenebridge runs and operates the SceneBridge sidecar.
//
// Usage:
//
//	scenebridge serve                  # run the bridge against the reference host
//	scenebridge serve --config bridge.yaml
//	scenebridge status                 # one-shot health and staging report
//	scenebridge monitor                # live invalidation event feed
//	scenebridge init                   # interactive config wizard
//	scenebridge backup --bucket my-bkt # archive scene + journal, upload to GCS
//	scenebridge gc                     # one-shot staging sweep
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SceneBridge/services/bridge"
)

var (
	configPath string
	cfg        bridge.ServiceConfig

	rootCmd = &cobra.Command{
		Use:   "scenebridge",
		Short: "A JSON HTTP bridge into a live scene graph host",
		Long: `SceneBridge exposes a node-graph authoring host over a small JSON
HTTP API: node and parameter inspection, mutations grouped into undo
steps, bulk attribute extraction with staged files, and an
invalidation event feed for polling clients.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"YAML config file; defaults and SCENEBRIDGE_* env vars apply either way")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := bridge.LoadServiceConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogging(cfg)
		return nil
	}
	rootCmd.AddCommand(serveCmd, statusCmd, monitorCmd, initCmd, backupCmd, gcCmd)
}

// setupLogging installs the process-wide slog handler from the loaded
// configuration.
func setupLogging(cfg bridge.ServiceConfig) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// baseURL is where the operational commands reach a running bridge.
func baseURL() string {
	return "http://" + cfg.Addr()
}
