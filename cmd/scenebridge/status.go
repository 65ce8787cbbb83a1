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
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report a running bridge's health",
	Long: `Queries /ping, /scene/info, and /extract/stats on a running bridge
and prints a one-shot report. Exits non-zero when the bridge is down.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "",
		"bridge address as host:port; defaults to the configured listen address")
}

// pingReport is the /ping response shape the CLI cares about.
type pingReport struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Time          float64 `json:"time"`
	HostAvailable bool    `json:"host_available"`
}

// sceneReport is the subset of /scene/info shown by status.
type sceneReport struct {
	SceneFile string  `json:"file"`
	Frame     float64 `json:"frame"`
	FPS       float64 `json:"fps"`
	NodeCount int     `json:"node_count"`
}

// stagingReport is the /extract/stats response.
type stagingReport struct {
	Dir        string `json:"dir"`
	FileCount  int    `json:"file_count"`
	TotalBytes int64  `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := baseURL()
	if statusAddr != "" {
		base = "http://" + statusAddr
	}
	client := &http.Client{Timeout: 5 * time.Second}

	var ping pingReport
	if err := fetchJSON(client, base+"/ping", &ping); err != nil {
		return fmt.Errorf("bridge unreachable at %s: %w", base, err)
	}

	var scene sceneReport
	sceneErr := fetchJSON(client, base+"/scene/info", &scene)

	var staging stagingReport
	stagingErr := fetchJSON(client, base+"/extract/stats", &staging)

	fmt.Println(formatStatus(base, ping, scene, sceneErr == nil, staging, stagingErr == nil))
	return nil
}

// formatStatus renders the report. Separated from runStatus so tests can
// check the layout without a live server.
func formatStatus(base string, ping pingReport, scene sceneReport, haveScene bool, staging stagingReport, haveStaging bool) string {
	var b strings.Builder

	b.WriteString(render(styleTitle, "SceneBridge") + " " + ping.Version + " @ " + base + "\n")
	if ping.HostAvailable {
		b.WriteString(render(styleSuccess, "✓") + " host executor running\n")
	} else {
		b.WriteString(render(styleWarning, "⚠") + " host executor not running\n")
	}

	if haveScene {
		file := scene.SceneFile
		if file == "" {
			file = "(unsaved)"
		}
		b.WriteString(fmt.Sprintf("  scene   %s  frame %.1f @ %.4g fps  nodes %d\n",
			file, scene.Frame, scene.FPS, scene.NodeCount))
	}
	if haveStaging {
		b.WriteString(fmt.Sprintf("  staging %s  %d files, %s used, %s free, ttl %ds\n",
			staging.Dir, staging.FileCount,
			formatBytes(staging.TotalBytes), formatBytes(int64(staging.FreeBytes)),
			staging.TTLSeconds))
	} else {
		b.WriteString(render(styleMuted, "  staging stats unavailable (extraction routes not mounted)") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// fetchJSON GETs url and decodes the body into out.
func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
