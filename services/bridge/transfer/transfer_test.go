// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transfer

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestManager(t *testing.T, threshold int) *Manager {
	t.Helper()
	return NewManager(Config{
		Dir:             filepath.Join(t.TempDir(), "staging"),
		TTL:             300 * time.Second,
		InlineThreshold: threshold,
	})
}

func floatPayload(n, tupleSize int) Payload {
	vals := make([]float32, n*tupleSize)
	for i := range vals {
		vals[i] = float32(i) * 0.5
	}
	return Payload{
		NodePath: "/obj/geo1/grid1",
		Data: &host.AttribData{
			Info:   host.AttribInfo{Name: "P", Class: host.ClassPoint, Type: host.AttribFloat, TupleSize: tupleSize},
			Total:  n,
			Floats: vals,
		},
		Start: 0,
		Count: -1,
	}
}

// TestClampRange covers the clamping rules for partial reads.
func TestClampRange(t *testing.T) {
	cases := []struct {
		name                string
		start, count, total int
		lo, hi              int
	}{
		{"full via -1", 0, -1, 10, 0, 10},
		{"window", 2, 3, 10, 2, 5},
		{"past end", 8, 5, 10, 8, 10},
		{"start beyond total", 15, 3, 10, 10, 10},
		{"negative start", -4, 3, 10, 0, 3},
		{"zero count", 4, 0, 10, 4, 4},
		{"empty total", 0, -1, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lo, hi := ClampRange(tc.start, tc.count, tc.total)
			assert.Equal(t, tc.lo, lo)
			assert.Equal(t, tc.hi, hi)
		})
	}
}

// TestEncodeInline checks the inline document for each attribute type.
func TestEncodeInline(t *testing.T) {
	m := newTestManager(t, InlineThreshold)

	t.Run("float tuples nest", func(t *testing.T) {
		out, err := m.Encode(floatPayload(2, 3))
		require.NoError(t, err)
		doc, ok := out.(map[string]any)
		require.True(t, ok)

		assert.Equal(t, "inline", doc["encoding"])
		assert.Equal(t, "/obj/geo1/grid1", doc["node_path"])
		assert.Equal(t, 2, doc["count"])
		assert.Equal(t, 2, doc["total"])
		data, ok := doc["data"].([][]float32)
		require.True(t, ok)
		require.Len(t, data, 2)
		assert.Equal(t, []float32{0, 0.5, 1}, data[0])
	})

	t.Run("scalar ints stay flat", func(t *testing.T) {
		p := Payload{
			NodePath: "/obj/geo1/scatter1",
			Data: &host.AttribData{
				Info:  host.AttribInfo{Name: "id", Class: host.ClassPoint, Type: host.AttribInt, TupleSize: 1},
				Total: 3,
				Ints:  []int32{7, 8, 9},
			},
			Count: -1,
		}
		out, err := m.Encode(p)
		require.NoError(t, err)
		doc := out.(map[string]any)
		assert.Equal(t, []int32{7, 8, 9}, doc["data"])
	})

	t.Run("strings", func(t *testing.T) {
		p := Payload{
			NodePath: "/obj/geo1/color1",
			Data: &host.AttribData{
				Info:    host.AttribInfo{Name: "colorspace", Class: host.ClassDetail, Type: host.AttribString, TupleSize: 1},
				Total:   1,
				Strings: []string{"linear"},
			},
			Count: -1,
		}
		out, err := m.Encode(p)
		require.NoError(t, err)
		doc := out.(map[string]any)
		assert.Equal(t, []string{"linear"}, doc["data"])
	})
}

// TestEncodeBoundary pins the inline/staged decision to the exact
// threshold.
func TestEncodeBoundary(t *testing.T) {
	// Threshold 40 bytes with 4-byte elements: 9 elements inline,
	// 10 and 11 staged.
	m := newTestManager(t, 40)

	out, err := m.Encode(floatPayload(9, 1))
	require.NoError(t, err)
	_, inline := out.(map[string]any)
	assert.True(t, inline, "estimate below threshold must inline")

	out, err = m.Encode(floatPayload(10, 1))
	require.NoError(t, err)
	_, staged := out.(contract.FileRef)
	assert.True(t, staged, "estimate at threshold must stage")

	out, err = m.Encode(floatPayload(11, 1))
	require.NoError(t, err)
	_, staged = out.(contract.FileRef)
	assert.True(t, staged, "estimate above threshold must stage")
}

// TestEncodeStagedFloats round-trips a staged binary payload through
// its file and sidecar.
func TestEncodeStagedFloats(t *testing.T) {
	m := newTestManager(t, 8)
	p := floatPayload(4, 1)

	out, err := m.Encode(p)
	require.NoError(t, err)
	ref, ok := out.(contract.FileRef)
	require.True(t, ok)

	assert.Equal(t, contract.FileRefType, ref.Type)
	assert.Equal(t, "binary", ref.Format)
	assert.Equal(t, int64(16), ref.SizeBytes)
	assert.Equal(t, 300, ref.TTLSeconds)
	assert.True(t, filepath.IsAbs(ref.Path) || filepath.Dir(ref.Path) == m.Dir())

	raw, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	require.Len(t, raw, 16)
	got := make([]float32, 4)
	for i := range got {
		got[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	assert.Equal(t, p.Data.Floats, got)

	metaRaw, err := os.ReadFile(ref.MetadataPath)
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(metaRaw, &meta))
	assert.Equal(t, "/obj/geo1/grid1", meta["node_path"])
	assert.Equal(t, "float32", meta["encoding"])
	assert.Equal(t, "little", meta["byte_order"])
	assert.EqualValues(t, 4, meta["count"])
	assert.EqualValues(t, 4, meta["total"])
	assert.Equal(t, "P", meta["attrib_name"])
	assert.Equal(t, "point", meta["attrib_class"])
}

// TestEncodeStagedStrings checks the UTF-8 JSON path.
func TestEncodeStagedStrings(t *testing.T) {
	m := newTestManager(t, 4)
	p := Payload{
		NodePath: "/obj/geo1/color1",
		Data: &host.AttribData{
			Info:    host.AttribInfo{Name: "name", Class: host.ClassPrim, Type: host.AttribString, TupleSize: 1},
			Total:   2,
			Strings: []string{"left", "right"},
		},
		Count: -1,
	}

	out, err := m.Encode(p)
	require.NoError(t, err)
	ref, ok := out.(contract.FileRef)
	require.True(t, ok)
	assert.Equal(t, "json", ref.Format)

	raw, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	var got []string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"left", "right"}, got)
}

// TestEncodeRange checks that staged and inline paths honor the
// requested window.
func TestEncodeRange(t *testing.T) {
	m := newTestManager(t, InlineThreshold)
	p := floatPayload(4, 3)
	p.Start = 2
	p.Count = 5 // clamps to 2 remaining elements

	out, err := m.Encode(p)
	require.NoError(t, err)
	doc := out.(map[string]any)
	assert.Equal(t, 2, doc["start"])
	assert.Equal(t, 2, doc["count"])
	assert.Equal(t, 4, doc["total"])

	data := doc["data"].([][]float32)
	require.Len(t, data, 2)
	assert.Equal(t, []float32{3, 3.5, 4}, data[0])
}

// TestStageBytes checks direct staging for pre-encoded payloads.
func TestStageBytes(t *testing.T) {
	m := newTestManager(t, InlineThreshold)

	ref, err := m.StageBytes("geo_export", "obj", []byte("v 0 0 0\n"))
	require.NoError(t, err)
	assert.Equal(t, "obj", ref.Format)
	assert.Equal(t, int64(8), ref.SizeBytes)
	assert.Empty(t, ref.MetadataPath)
	assert.Contains(t, filepath.Base(ref.Path), "geo_export_")

	raw, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	assert.Equal(t, "v 0 0 0\n", string(raw))
}

// TestGC checks age-based reclamation.
func TestGC(t *testing.T) {
	m := newTestManager(t, InlineThreshold)

	old, err := m.StageBytes("old", "bin", []byte{1, 2, 3})
	require.NoError(t, err)
	fresh, err := m.StageBytes("fresh", "bin", []byte{4, 5, 6})
	require.NoError(t, err)

	stale := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(old.Path, stale, stale))

	deleted, err := m.GC(5 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(old.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh.Path)
	assert.NoError(t, err)
}

// TestGCMissingDir checks that collection before any write is a no-op.
func TestGCMissingDir(t *testing.T) {
	m := NewManager(Config{Dir: filepath.Join(t.TempDir(), "never_created")})
	deleted, err := m.GC(time.Minute)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

// TestStats checks the staging usage report.
func TestStats(t *testing.T) {
	m := newTestManager(t, InlineThreshold)

	t.Run("empty before first write", func(t *testing.T) {
		s, err := m.Stats()
		require.NoError(t, err)
		assert.Zero(t, s.FileCount)
		assert.Zero(t, s.TotalBytes)
	})

	_, err := m.StageBytes("a", "bin", make([]byte, 100))
	require.NoError(t, err)
	_, err = m.StageBytes("b", "bin", make([]byte, 50))
	require.NoError(t, err)

	s, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, s.FileCount)
	assert.Equal(t, int64(150), s.TotalBytes)
	assert.Greater(t, s.FreeBytes, uint64(0))
	assert.Equal(t, 300, s.TTLSeconds)
}

// TestGCRunner checks the background collection loop.
func TestGCRunner(t *testing.T) {
	m := newTestManager(t, InlineThreshold)
	ref, err := m.StageBytes("doomed", "bin", []byte{1})
	require.NoError(t, err)
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(ref.Path, stale, stale))

	runner, err := NewGCRunner(m, 10*time.Millisecond, time.Minute, nil)
	require.NoError(t, err)
	runner.Start()
	defer runner.Stop()

	require.Eventually(t, func() bool {
		_, err := os.Stat(ref.Path)
		return os.IsNotExist(err)
	}, 2*time.Second, 5*time.Millisecond)

	runner.Stop()
	runner.Stop() // idempotent
}

// TestGCRunnerValidation checks constructor input checks.
func TestGCRunnerValidation(t *testing.T) {
	m := newTestManager(t, InlineThreshold)

	_, err := NewGCRunner(nil, time.Second, time.Second, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(m, 0, time.Second, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(m, time.Second, 0, nil)
	assert.Error(t, err)
}
