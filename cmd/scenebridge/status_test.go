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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.n), "n=%d", tt.n)
	}
}

func TestFormatStatus(t *testing.T) {
	ping := pingReport{Status: "ok", Version: "1.0.0", HostAvailable: true}
	scene := sceneReport{SceneFile: "/tmp/shot.hip", Frame: 12, FPS: 24, NodeCount: 42}
	staging := stagingReport{Dir: "/tmp/staging", FileCount: 2, TotalBytes: 2048, FreeBytes: 1 << 30, TTLSeconds: 300}

	out := formatStatus("http://127.0.0.1:8765", ping, scene, true, staging, true)
	assert.Contains(t, out, "1.0.0")
	assert.Contains(t, out, "host executor running")
	assert.Contains(t, out, "/tmp/shot.hip")
	assert.Contains(t, out, "nodes 42")
	assert.Contains(t, out, "2 files")
	assert.Contains(t, out, "2.0 KiB used")
	assert.Contains(t, out, "ttl 300s")
}

func TestFormatStatusDegraded(t *testing.T) {
	ping := pingReport{Status: "ok", Version: "1.0.0", HostAvailable: false}

	out := formatStatus("http://127.0.0.1:8765", ping, sceneReport{}, false, stagingReport{}, false)
	assert.Contains(t, out, "host executor not running")
	assert.Contains(t, out, "staging stats unavailable")
	assert.NotContains(t, out, "frame")
}

func TestFormatStatusUnsavedScene(t *testing.T) {
	ping := pingReport{Status: "ok", Version: "1.0.0", HostAvailable: true}
	out := formatStatus("http://x", ping, sceneReport{FPS: 24}, true, stagingReport{}, true)
	assert.Contains(t, out, "(unsaved)")
}
