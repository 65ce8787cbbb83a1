// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extraction

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SceneBridge/services/bridge"
	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/events"
	"github.com/AleutianAI/SceneBridge/services/bridge/host/memory"
	"github.com/AleutianAI/SceneBridge/services/bridge/hostexec"
	"github.com/AleutianAI/SceneBridge/services/bridge/transfer"
)

// newTestProvider wires a routed extraction surface over the reference
// host. threshold controls the inline/staged boundary so tests can force
// either path with a 10x10 grid.
func newTestProvider(t *testing.T, threshold int) (*gin.Engine, *memory.Host, *events.Bus, *transfer.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := memory.New()
	exec := hostexec.New(h, hostexec.Config{QueueSize: 16, DefaultTimeout: 2 * time.Second})
	exec.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, exec.Stop(ctx))
	})

	manager := transfer.NewManager(transfer.Config{
		Dir:             t.TempDir(),
		TTL:             time.Minute,
		InlineThreshold: threshold,
	})
	bus := events.NewBus(events.NewQueue(16))
	dispatch := bridge.NewDispatcher(exec, 2*time.Second)
	provider := NewProvider(dispatch, manager, bus)

	router := gin.New()
	router.Use(bridge.RecoveryMiddleware())
	router.NoRoute(bridge.NoRouteHandler())
	bridge.RegisterRoutes(router.Group("/"), bridge.NewHandlers(dispatch), provider)
	return router, h, bus, manager
}

// seedGrid builds /obj/geo1/grid1, a 10x10 grid with 100 points.
func seedGrid(t *testing.T, h *memory.Host) string {
	t.Helper()
	geo, err := h.CreateNode("/obj", "geo", "geo1")
	require.NoError(t, err)
	grid, err := h.CreateNode(geo.Path, "grid", "grid1")
	require.NoError(t, err)
	return grid.Path
}

func get(t *testing.T, router *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func TestHandleGeoInfo(t *testing.T) {
	router, h, _, _ := newTestProvider(t, transfer.InlineThreshold)
	grid := seedGrid(t, h)

	w := get(t, router, "/extract/geo_info?path="+grid)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	assert.Equal(t, 100.0, body["point_count"])
	assert.Equal(t, 81.0, body["prim_count"])
	assert.Len(t, body["bounds"].([]any), 6)

	catalog := body["attributes"].(map[string]any)
	points := catalog["point"].([]any)
	var names []string
	for _, entry := range points {
		names = append(names, entry.(map[string]any)["name"].(string))
	}
	assert.Contains(t, names, "P")
}

func TestHandleGeoInfoErrors(t *testing.T) {
	router, _, _, _ := newTestProvider(t, transfer.InlineThreshold)

	t.Run("missing path", func(t *testing.T) {
		w := get(t, router, "/extract/geo_info")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(contract.CodeInvalidParams), decodeBody(t, w)["code"])
	})

	t.Run("unknown node", func(t *testing.T) {
		w := get(t, router, "/extract/geo_info?path=/obj/nope")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(contract.CodeNodeNotFound), decodeBody(t, w)["code"])
	})
}

func TestHandleAttribReadInline(t *testing.T) {
	router, h, _, _ := newTestProvider(t, transfer.InlineThreshold)
	grid := seedGrid(t, h)

	w := get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=P")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	assert.Equal(t, "inline", body["encoding"])
	assert.Equal(t, "P", body["attrib_name"])
	assert.Equal(t, 100.0, body["count"])
	assert.Equal(t, 100.0, body["total"])
	data := body["data"].([]any)
	require.Len(t, data, 100)
	assert.Len(t, data[0].([]any), 3)
}

func TestHandleAttribReadStaged(t *testing.T) {
	// 100 points x 3 floats x 4 bytes = 1200 estimated bytes.
	router, h, _, manager := newTestProvider(t, 64)
	grid := seedGrid(t, h)

	w := get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=P")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	require.Equal(t, contract.FileRefType, body["type"], "body: %v", body)
	assert.Equal(t, "binary", body["format"])

	raw, err := os.ReadFile(body["path"].(string))
	require.NoError(t, err)
	require.Len(t, raw, 100*3*4)

	metaRaw, err := os.ReadFile(body["metadata_path"].(string))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(metaRaw, &meta))
	assert.Equal(t, "float32", meta["encoding"])
	assert.Equal(t, "little", meta["byte_order"])
	assert.Equal(t, 100.0, meta["count"])

	// The binary matches what the host holds for the same range.
	data, err := h.ReadAttrib(grid, "point", "P")
	require.NoError(t, err)
	for i, want := range data.Floats {
		got := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		require.Equal(t, want, got, "element %d", i)
	}

	stats, err := manager.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FileCount, "payload plus sidecar")
}

func TestHandleAttribReadRange(t *testing.T) {
	router, h, _, _ := newTestProvider(t, transfer.InlineThreshold)
	grid := seedGrid(t, h)

	t.Run("clamps past the end", func(t *testing.T) {
		w := get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=P&start=90&count=100")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, 90.0, body["start"])
		assert.Equal(t, 10.0, body["count"])
		assert.Len(t, body["data"].([]any), 10)
	})

	t.Run("count -1 reads to the end", func(t *testing.T) {
		w := get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=P&start=95&count=-1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeBody(t, w)["data"].([]any), 5)
	})
}

func TestHandleAttribReadErrors(t *testing.T) {
	router, h, _, _ := newTestProvider(t, transfer.InlineThreshold)
	grid := seedGrid(t, h)

	t.Run("missing attrib_name", func(t *testing.T) {
		w := get(t, router, "/extract/attrib_read?path="+grid)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(contract.CodeInvalidParams), decodeBody(t, w)["code"])
	})

	t.Run("bad class", func(t *testing.T) {
		w := get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=P&attrib_class=edge")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad count", func(t *testing.T) {
		w := get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=P&count=-2")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		w := get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=uv")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(contract.CodeParmNotFound), decodeBody(t, w)["code"])
	})
}

func TestHandleEventsDrains(t *testing.T) {
	router, _, bus, _ := newTestProvider(t, transfer.InlineThreshold)

	bus.Push(events.EventNodeCreated, events.ScopeNetwork, "/obj/a")
	bus.Push(events.EventParmChanged, events.ScopeNode, "/obj/a/tx")

	w := get(t, router, "/extract/events")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 2.0, body["count"])
	drained := body["events"].([]any)
	require.Len(t, drained, 2)
	assert.Equal(t, "node_created", drained[0].(map[string]any)["event_type"])

	// A second poll returns nothing: polls see disjoint sets.
	w = get(t, router, "/extract/events")
	body = decodeBody(t, w)
	assert.Equal(t, 0.0, body["count"])
	assert.Len(t, body["events"].([]any), 0)
}

func TestHandleStats(t *testing.T) {
	router, h, _, _ := newTestProvider(t, 64)
	grid := seedGrid(t, h)

	// Empty staging area first.
	w := get(t, router, "/extract/stats")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 0.0, body["file_count"])

	// One staged read adds the payload and its sidecar.
	get(t, router, "/extract/attrib_read?path="+grid+"&attrib_name=P")
	w = get(t, router, "/extract/stats")
	body = decodeBody(t, w)
	assert.Equal(t, 2.0, body["file_count"])
	assert.Greater(t, body["total_bytes"], 0.0)
	assert.Greater(t, body["free_bytes"], 0.0)
}
