// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// newTestScene builds a host with one geo container ready for SOPs.
func newTestScene(t *testing.T) (*Host, string) {
	t.Helper()
	h := New()
	geo, err := h.CreateNode("/obj", "geo", "geo1")
	require.NoError(t, err)
	return h, geo.Path
}

// TestSceneInfo verifies the initial scene summary.
func TestSceneInfo(t *testing.T) {
	h := New(WithScenePath("/tmp/test.hip"), WithFPS(30))

	info, err := h.SceneInfo()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.hip", info.FilePath)
	assert.Equal(t, 30.0, info.FPS)
	assert.Equal(t, 1.0, info.Frame)
	assert.ElementsMatch(t, []string{"/obj", "/out"}, info.RootPaths)
	assert.Equal(t, 2, info.NodeCount)
}

// TestCreateNode covers naming, container rules, and unknown types.
func TestCreateNode(t *testing.T) {
	h, geoPath := newTestScene(t)

	t.Run("assigns unique names", func(t *testing.T) {
		first, err := h.CreateNode(geoPath, "grid", "")
		require.NoError(t, err)
		assert.Equal(t, "grid", first.Name)

		second, err := h.CreateNode(geoPath, "grid", "")
		require.NoError(t, err)
		assert.Equal(t, "grid1", second.Name)
		assert.Equal(t, geoPath+"/grid1", second.Path)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := h.CreateNode(geoPath, "nope", "")
		assert.ErrorIs(t, err, host.ErrUnknownType)
	})

	t.Run("rejects type in wrong container", func(t *testing.T) {
		_, err := h.CreateNode("/obj", "grid", "")
		assert.ErrorIs(t, err, host.ErrUnknownType)
	})

	t.Run("missing parent", func(t *testing.T) {
		_, err := h.CreateNode("/obj/absent", "grid", "")
		assert.ErrorIs(t, err, host.ErrNodeNotFound)
	})

	t.Run("first sop takes display flag", func(t *testing.T) {
		h2, p := newTestScene(t)
		n, err := h2.CreateNode(p, "grid", "")
		require.NoError(t, err)
		assert.Contains(t, n.Flags, "display")
		assert.Contains(t, n.Flags, "render")
	})
}

// TestFindNodes checks substring name search and type filtering.
func TestFindNodes(t *testing.T) {
	h, geoPath := newTestScene(t)
	_, err := h.CreateNode(geoPath, "grid", "ground")
	require.NoError(t, err)
	_, err = h.CreateNode(geoPath, "scatter", "pts")
	require.NoError(t, err)

	byName, err := h.FindNodes("/", "groun", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, geoPath+"/ground", byName[0].Path)

	byType, err := h.FindNodes("/obj", "", "scatter")
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "pts", byType[0].Name)

	none, err := h.FindNodes("/out", "ground", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestGridCook checks synthesized grid geometry end to end.
func TestGridCook(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)

	require.NoError(t, h.SetParm(grid.Path, "rows", 3))
	require.NoError(t, h.SetParm(grid.Path, "cols", 4))
	require.NoError(t, h.SetParm(grid.Path, "size", []float64{2, 2}))

	geo, err := h.Geometry(grid.Path)
	require.NoError(t, err)
	assert.Equal(t, 12, geo.PointCount)
	assert.Equal(t, 6, geo.PrimCount)
	assert.Equal(t, 24, geo.VertexCount)
	assert.Equal(t, map[string]int{"Polygon": 6}, geo.PrimTypes)
	require.Len(t, geo.Bounds, 6)
	assert.InDelta(t, -1.0, geo.Bounds[0], 1e-6)
	assert.InDelta(t, 1.0, geo.Bounds[3], 1e-6)

	names := make([]string, 0, len(geo.Attribs))
	for _, a := range geo.Attribs {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"P", "N"}, names)
	assert.Greater(t, geo.MemoryBytes, int64(0))
}

// TestCookLaziness verifies caching, dirty propagation, and container
// staleness.
func TestCookLaziness(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)

	_, err = h.Geometry(grid.Path)
	require.NoError(t, err)
	status, err := h.CookStatus(grid.Path)
	require.NoError(t, err)
	assert.True(t, status.Cooked)
	assert.Equal(t, 1, status.CookCount)

	// A clean node does not recook.
	_, err = h.Geometry(grid.Path)
	require.NoError(t, err)
	status, err = h.CookStatus(grid.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, status.CookCount)

	// Changing a parameter dirties the node and its container.
	require.NoError(t, h.SetParm(grid.Path, "rows", 5))
	status, err = h.CookStatus(grid.Path)
	require.NoError(t, err)
	assert.False(t, status.Cooked)

	geo, err := h.Geometry(geoPath)
	require.NoError(t, err)
	assert.Equal(t, 50, geo.PointCount)
	status, err = h.CookStatus(grid.Path)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CookCount)
}

// TestScatterCook checks determinism and the missing-input error.
func TestScatterCook(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)
	scatter, err := h.CreateNode(geoPath, "scatter", "")
	require.NoError(t, err)

	t.Run("fails without input", func(t *testing.T) {
		_, err := h.Geometry(scatter.Path)
		assert.ErrorIs(t, err, host.ErrCookFailed)

		status, err := h.CookStatus(scatter.Path)
		require.NoError(t, err)
		assert.False(t, status.Cooked)
		assert.NotEmpty(t, status.Errors)
	})

	require.NoError(t, h.ConnectNodes(grid.Path, scatter.Path, 0))
	require.NoError(t, h.SetParm(scatter.Path, "npts", 100))

	t.Run("same seed is deterministic", func(t *testing.T) {
		first, err := h.ReadAttrib(scatter.Path, host.ClassPoint, "P")
		require.NoError(t, err)
		require.Equal(t, 100, first.Total)

		// Force a recook with the same seed.
		require.NoError(t, h.SetParm(scatter.Path, "seed", 0))
		second, err := h.ReadAttrib(scatter.Path, host.ClassPoint, "P")
		require.NoError(t, err)
		assert.Equal(t, first.Floats, second.Floats)

		require.NoError(t, h.SetParm(scatter.Path, "seed", 7))
		third, err := h.ReadAttrib(scatter.Path, host.ClassPoint, "P")
		require.NoError(t, err)
		assert.NotEqual(t, first.Floats, third.Floats)
	})

	t.Run("id attribute", func(t *testing.T) {
		ids, err := h.ReadAttrib(scatter.Path, host.ClassPoint, "id")
		require.NoError(t, err)
		assert.Equal(t, host.AttribInt, ids.Info.Type)
		assert.Len(t, ids.Ints, 100)
	})
}

// TestColorCook checks the added point and detail attributes.
func TestColorCook(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)
	color, err := h.CreateNode(geoPath, "color", "")
	require.NoError(t, err)
	require.NoError(t, h.ConnectNodes(grid.Path, color.Path, 0))
	require.NoError(t, h.SetParm(color.Path, "color", []float64{1, 0.5, 0}))

	cd, err := h.ReadAttrib(color.Path, host.ClassPoint, "Cd")
	require.NoError(t, err)
	assert.Equal(t, 100, cd.Total)
	require.GreaterOrEqual(t, len(cd.Floats), 3)
	assert.InDelta(t, 0.5, float64(cd.Floats[1]), 1e-6)

	space, err := h.ReadAttrib(color.Path, host.ClassDetail, "colorspace")
	require.NoError(t, err)
	assert.Equal(t, []string{"linear"}, space.Strings)
}

// TestMergeAndSwitch checks multi-input SOP behavior.
func TestMergeAndSwitch(t *testing.T) {
	h, geoPath := newTestScene(t)
	a, err := h.CreateNode(geoPath, "grid", "a")
	require.NoError(t, err)
	b, err := h.CreateNode(geoPath, "grid", "b")
	require.NoError(t, err)
	require.NoError(t, h.SetParm(b.Path, "rows", 3))
	require.NoError(t, h.SetParm(b.Path, "cols", 3))

	t.Run("merge concatenates", func(t *testing.T) {
		merge, err := h.CreateNode(geoPath, "merge", "")
		require.NoError(t, err)
		require.NoError(t, h.ConnectNodes(a.Path, merge.Path, 0))
		require.NoError(t, h.ConnectNodes(b.Path, merge.Path, 1))

		geo, err := h.Geometry(merge.Path)
		require.NoError(t, err)
		assert.Equal(t, 109, geo.PointCount)

		p, err := h.ReadAttrib(merge.Path, host.ClassPoint, "P")
		require.NoError(t, err)
		assert.Len(t, p.Floats, 109*3)
	})

	t.Run("switch selects input", func(t *testing.T) {
		sw, err := h.CreateNode(geoPath, "switch", "")
		require.NoError(t, err)
		require.NoError(t, h.ConnectNodes(a.Path, sw.Path, 0))
		require.NoError(t, h.ConnectNodes(b.Path, sw.Path, 1))

		geo, err := h.Geometry(sw.Path)
		require.NoError(t, err)
		assert.Equal(t, 100, geo.PointCount)

		require.NoError(t, h.SetParm(sw.Path, "input", 1))
		geo, err = h.Geometry(sw.Path)
		require.NoError(t, err)
		assert.Equal(t, 9, geo.PointCount)

		require.NoError(t, h.SetParm(sw.Path, "input", 3))
		_, err = h.Geometry(sw.Path)
		assert.ErrorIs(t, err, host.ErrCookFailed)
	})
}

// TestConnections covers wiring rules and disconnects.
func TestConnections(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)
	null, err := h.CreateNode(geoPath, "null", "")
	require.NoError(t, err)

	t.Run("rejects self connection", func(t *testing.T) {
		err := h.ConnectNodes(null.Path, null.Path, 0)
		assert.ErrorIs(t, err, host.ErrInvalidInput)
	})

	t.Run("rejects cross-network wires", func(t *testing.T) {
		other, err := h.CreateNode("/obj", "geo", "")
		require.NoError(t, err)
		far, err := h.CreateNode(other.Path, "grid", "")
		require.NoError(t, err)
		assert.ErrorIs(t, h.ConnectNodes(far.Path, null.Path, 0), host.ErrInvalidInput)
	})

	t.Run("rejects out-of-range input", func(t *testing.T) {
		assert.ErrorIs(t, h.ConnectNodes(grid.Path, null.Path, 5), host.ErrInvalidInput)
		assert.ErrorIs(t, h.ConnectNodes(null.Path, grid.Path, 0), host.ErrInvalidInput)
	})

	t.Run("connect then disconnect", func(t *testing.T) {
		require.NoError(t, h.ConnectNodes(grid.Path, null.Path, 0))
		n, err := h.NodeByPath(null.Path)
		require.NoError(t, err)
		assert.Equal(t, []string{grid.Path}, n.Inputs)

		src, err := h.NodeByPath(grid.Path)
		require.NoError(t, err)
		assert.Contains(t, src.Outputs, null.Path)

		require.NoError(t, h.DisconnectInput(null.Path, 0))
		n, err = h.NodeByPath(null.Path)
		require.NoError(t, err)
		assert.Empty(t, n.Inputs)
	})
}

// TestDeleteNode checks wire cleanup and root protection.
func TestDeleteNode(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)
	null, err := h.CreateNode(geoPath, "null", "")
	require.NoError(t, err)
	require.NoError(t, h.ConnectNodes(grid.Path, null.Path, 0))

	require.NoError(t, h.DeleteNode(grid.Path))

	_, err = h.NodeByPath(grid.Path)
	assert.ErrorIs(t, err, host.ErrNodeNotFound)

	n, err := h.NodeByPath(null.Path)
	require.NoError(t, err)
	assert.Empty(t, n.Inputs)

	assert.ErrorIs(t, h.DeleteNode("/"), host.ErrInvalidInput)
	assert.ErrorIs(t, h.DeleteNode("/obj/absent"), host.ErrNodeNotFound)
}

// TestRenameNode checks collision handling.
func TestRenameNode(t *testing.T) {
	h, geoPath := newTestScene(t)
	a, err := h.CreateNode(geoPath, "grid", "a")
	require.NoError(t, err)
	_, err = h.CreateNode(geoPath, "grid", "b")
	require.NoError(t, err)

	renamed, err := h.RenameNode(a.Path, "base")
	require.NoError(t, err)
	assert.Equal(t, geoPath+"/base", renamed.Path)

	_, err = h.RenameNode(renamed.Path, "b")
	assert.ErrorIs(t, err, host.ErrNameInUse)

	_, err = h.RenameNode(renamed.Path, "")
	assert.ErrorIs(t, err, host.ErrInvalidInput)
}

// TestParms covers get, set, coercion, revert, and expressions.
func TestParms(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)
	color, err := h.CreateNode(geoPath, "color", "")
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		p, err := h.Parm(grid.Path, "rows")
		require.NoError(t, err)
		assert.True(t, p.IsDefault)
		assert.Equal(t, 10, p.Value)
	})

	t.Run("int accepts float value", func(t *testing.T) {
		require.NoError(t, h.SetParm(grid.Path, "rows", 20.0))
		p, err := h.Parm(grid.Path, "rows")
		require.NoError(t, err)
		assert.Equal(t, 20, p.Value)
		assert.False(t, p.IsDefault)
	})

	t.Run("type mismatch", func(t *testing.T) {
		assert.ErrorIs(t, h.SetParm(grid.Path, "rows", "ten"), host.ErrTypeMismatch)
		assert.ErrorIs(t, h.SetParm(grid.Path, "size", []float64{1}), host.ErrTypeMismatch)
		assert.ErrorIs(t, h.SetParm(grid.Path, "size", "big"), host.ErrTypeMismatch)
	})

	t.Run("missing parm", func(t *testing.T) {
		_, err := h.Parm(grid.Path, "absent")
		assert.ErrorIs(t, err, host.ErrParmNotFound)
		assert.ErrorIs(t, h.SetParm(grid.Path, "absent", 1), host.ErrParmNotFound)
	})

	t.Run("revert restores default", func(t *testing.T) {
		require.NoError(t, h.RevertParm(grid.Path, "rows"))
		p, err := h.Parm(grid.Path, "rows")
		require.NoError(t, err)
		assert.True(t, p.IsDefault)
		assert.Equal(t, 10, p.Value)
	})

	t.Run("tuple classification", func(t *testing.T) {
		tpl, err := h.ParmTemplate(color.Path, "color")
		require.NoError(t, err)
		assert.Equal(t, "color", tpl.Type)

		tpl, err = h.ParmTemplate(grid.Path, "size")
		require.NoError(t, err)
		assert.Equal(t, "vector2", tpl.Type)
	})

	t.Run("expressions", func(t *testing.T) {
		require.NoError(t, h.SetParmExpression(grid.Path, "rows", "$F", ""))
		p, err := h.Parm(grid.Path, "rows")
		require.NoError(t, err)
		assert.True(t, p.HasExpression)
		assert.Equal(t, "$F", p.Expression)
		assert.Equal(t, "hscript", p.ExpressionLanguage)

		// Setting a value clears the expression.
		require.NoError(t, h.SetParm(grid.Path, "rows", 4))
		p, err = h.Parm(grid.Path, "rows")
		require.NoError(t, err)
		assert.False(t, p.HasExpression)
	})

	t.Run("parms are ordered", func(t *testing.T) {
		parms, err := h.Parms(grid.Path)
		require.NoError(t, err)
		require.Len(t, parms, 3)
		assert.Equal(t, "rows", parms[0].Name)
		assert.Equal(t, "cols", parms[1].Name)
		assert.Equal(t, "size", parms[2].Name)
	})
}

// TestFlags checks display exclusivity, bypass, and unknown flags.
func TestFlags(t *testing.T) {
	h, geoPath := newTestScene(t)
	a, err := h.CreateNode(geoPath, "grid", "a")
	require.NoError(t, err)
	b, err := h.CreateNode(geoPath, "grid", "b")
	require.NoError(t, err)

	t.Run("display is exclusive", func(t *testing.T) {
		require.NoError(t, h.SetFlag(b.Path, "display", true))
		na, err := h.NodeByPath(a.Path)
		require.NoError(t, err)
		assert.NotContains(t, na.Flags, "display")
		nb, err := h.NodeByPath(b.Path)
		require.NoError(t, err)
		assert.Contains(t, nb.Flags, "display")
	})

	t.Run("unknown flag", func(t *testing.T) {
		assert.ErrorIs(t, h.SetFlag(a.Path, "sparkle", true), host.ErrUnknownFlag)
	})

	t.Run("bypass passes input through", func(t *testing.T) {
		null, err := h.CreateNode(geoPath, "null", "")
		require.NoError(t, err)
		scatter, err := h.CreateNode(geoPath, "scatter", "")
		require.NoError(t, err)
		require.NoError(t, h.ConnectNodes(a.Path, scatter.Path, 0))
		require.NoError(t, h.ConnectNodes(scatter.Path, null.Path, 0))
		require.NoError(t, h.SetParm(scatter.Path, "npts", 5))

		geo, err := h.Geometry(null.Path)
		require.NoError(t, err)
		assert.Equal(t, 5, geo.PointCount)

		require.NoError(t, h.SetFlag(scatter.Path, "bypass", true))
		geo, err = h.Geometry(null.Path)
		require.NoError(t, err)
		assert.Equal(t, 100, geo.PointCount)
	})
}

// TestReadAttribErrors checks the missing-attribute sentinel.
func TestReadAttribErrors(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)

	_, err = h.ReadAttrib(grid.Path, host.ClassPoint, "uv")
	assert.ErrorIs(t, err, host.ErrAttribNotFound)

	_, err = h.ReadAttrib(grid.Path, host.ClassPrim, "P")
	assert.ErrorIs(t, err, host.ErrAttribNotFound)

	_, err = h.ReadAttrib("/obj", host.ClassPoint, "P")
	assert.ErrorIs(t, err, host.ErrNoGeometry)
}

// TestExportGeometry checks both formats and the unknown-format error.
func TestExportGeometry(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)

	t.Run("geo json", func(t *testing.T) {
		data, format, err := h.ExportGeometry(grid.Path, "")
		require.NoError(t, err)
		assert.Equal(t, "geo", format)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.EqualValues(t, 100, doc["point_count"])
	})

	t.Run("obj", func(t *testing.T) {
		data, format, err := h.ExportGeometry(grid.Path, "obj")
		require.NoError(t, err)
		assert.Equal(t, "obj", format)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Len(t, lines, 100)
		assert.True(t, strings.HasPrefix(lines[0], "v "))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := h.ExportGeometry(grid.Path, "usd")
		assert.ErrorIs(t, err, host.ErrTypeMismatch)
	})
}

// TestChangeEvents verifies the notification stream for a typical edit
// session.
func TestChangeEvents(t *testing.T) {
	h := New()

	var kinds []host.ChangeKind
	remove := h.Subscribe(func(c host.Change) {
		kinds = append(kinds, c.Kind)
	})

	geo, err := h.CreateNode("/obj", "geo", "")
	require.NoError(t, err)
	grid, err := h.CreateNode(geo.Path, "grid", "")
	require.NoError(t, err)
	null, err := h.CreateNode(geo.Path, "null", "")
	require.NoError(t, err)
	require.NoError(t, h.ConnectNodes(grid.Path, null.Path, 0))
	require.NoError(t, h.SetParm(grid.Path, "rows", 4))
	require.NoError(t, h.DeleteNode(null.Path))
	require.NoError(t, h.SetFrame(10))

	assert.Equal(t, []host.ChangeKind{
		host.ChangeChildCreated,
		host.ChangeChildCreated,
		host.ChangeChildCreated,
		host.ChangeInputRewired,
		host.ChangeParmTupleChanged,
		host.ChangeChildDeleted,
		host.ChangeFrameChanged,
	}, kinds)

	// Removal stops delivery.
	remove()
	seen := len(kinds)
	_, err = h.CreateNode("/obj", "geo", "")
	require.NoError(t, err)
	assert.Len(t, kinds, seen)
}

// TestUndoBlocks checks label recording and nested collapse.
func TestUndoBlocks(t *testing.T) {
	h := New()

	end := h.BeginUndo("MCP: Create Node")
	inner := h.BeginUndo("inner")
	inner()
	end()
	end() // double close is safe

	end2 := h.BeginUndo("MCP: Set Parm")
	end2()

	assert.Equal(t, []string{"MCP: Create Node", "MCP: Set Parm"}, h.UndoLabels())
}

// TestSaveScene checks file output and path bookkeeping.
func TestSaveScene(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "scene.hip")

	h, geoPath := newTestScene(t)
	_, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)

	saved, err := h.SaveScene(target)
	require.NoError(t, err)
	assert.Equal(t, target, saved)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "scenebridge-scene", doc["format"])

	// Saving with no path reuses the last one.
	again, err := h.SaveScene("")
	require.NoError(t, err)
	assert.Equal(t, target, again)

	info, err := h.SceneInfo()
	require.NoError(t, err)
	assert.Equal(t, target, info.FilePath)
}

// TestNodeSnapshotShape checks the exported node view.
func TestNodeSnapshotShape(t *testing.T) {
	h, geoPath := newTestScene(t)
	grid, err := h.CreateNode(geoPath, "grid", "")
	require.NoError(t, err)

	n, err := h.NodeByPath(geoPath)
	require.NoError(t, err)
	assert.Equal(t, "geo", n.Type)
	assert.Equal(t, "Object", n.Category)
	assert.Equal(t, "/obj", n.Parent)
	assert.Equal(t, []string{grid.Path}, n.Children)

	root, err := h.NodeByPath("/")
	require.NoError(t, err)
	assert.Equal(t, "", root.Parent)

	children, err := h.ListChildren("/obj")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, geoPath, children[0].Path)
}
