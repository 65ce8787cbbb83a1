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
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// attribKey identifies one attribute within a geometry.
type attribKey struct {
	class host.AttribClass
	name  string
}

// geoData is cooked geometry: element counts plus attribute arrays.
type geoData struct {
	points    int
	prims     int
	verts     int
	primTypes map[string]int
	attribs   map[attribKey]*host.AttribData
	groups    []string
}

func newGeoData() *geoData {
	return &geoData{
		primTypes: map[string]int{},
		attribs:   map[attribKey]*host.AttribData{},
	}
}

func (g *geoData) setFloatAttrib(class host.AttribClass, name string, tupleSize, total int, values []float32) {
	g.attribs[attribKey{class, name}] = &host.AttribData{
		Info:   host.AttribInfo{Name: name, Class: class, Type: host.AttribFloat, TupleSize: tupleSize},
		Total:  total,
		Floats: values,
	}
}

func (g *geoData) setIntAttrib(class host.AttribClass, name string, tupleSize, total int, values []int32) {
	g.attribs[attribKey{class, name}] = &host.AttribData{
		Info:  host.AttribInfo{Name: name, Class: class, Type: host.AttribInt, TupleSize: tupleSize},
		Total: total,
		Ints:  values,
	}
}

func (g *geoData) setStringAttrib(class host.AttribClass, name string, total int, values []string) {
	g.attribs[attribKey{class, name}] = &host.AttribData{
		Info:    host.AttribInfo{Name: name, Class: class, Type: host.AttribString, TupleSize: 1},
		Total:   total,
		Strings: values,
	}
}

// typeSpec describes one node type in the table.
type typeSpec struct {
	category  string
	container string
	maxInputs int
	geometric bool
	parms     []host.ParmTemplate
	cook      func(h *Host, n *node, inputs []*geoData) (*geoData, error)
}

// typeTable is the reference host's node type catalog. Assigned in
// init() because the cook funcs read the table back through
// (*Host).cook, which a package-level literal would turn into an
// initialization cycle.
var typeTable map[string]typeSpec

func init() {
	typeTable = map[string]typeSpec{
		"geo": {
			category:  categoryObject,
			container: categoryManager,
			maxInputs: 4,
			geometric: true,
			parms: []host.ParmTemplate{
				{Name: "t", Label: "Translate", Type: "float", TupleSize: 3, Default: []float64{0, 0, 0}},
			},
			cook: cookGeoContainer,
		},
		"grid": {
			category:  categorySop,
			container: categoryObject,
			maxInputs: 0,
			geometric: true,
			parms: []host.ParmTemplate{
				{Name: "rows", Label: "Rows", Type: "int", TupleSize: 1, Default: 10, Min: 2, Max: 1000},
				{Name: "cols", Label: "Columns", Type: "int", TupleSize: 1, Default: 10, Min: 2, Max: 1000},
				{Name: "size", Label: "Size", Type: "float", TupleSize: 2, Default: []float64{10, 10}},
			},
			cook: cookGrid,
		},
		"scatter": {
			category:  categorySop,
			container: categoryObject,
			maxInputs: 1,
			geometric: true,
			parms: []host.ParmTemplate{
				{Name: "npts", Label: "Point Count", Type: "int", TupleSize: 1, Default: 1000, Min: 0, Max: 10000000},
				{Name: "seed", Label: "Seed", Type: "int", TupleSize: 1, Default: 0},
			},
			cook: cookScatter,
		},
		"color": {
			category:  categorySop,
			container: categoryObject,
			maxInputs: 1,
			geometric: true,
			parms: []host.ParmTemplate{
				{Name: "color", Label: "Color", Type: "float", TupleSize: 3, Default: []float64{1, 1, 1}},
			},
			cook: cookColor,
		},
		"merge": {
			category:  categorySop,
			container: categoryObject,
			maxInputs: 4,
			geometric: true,
			cook:      cookMerge,
		},
		"switch": {
			category:  categorySop,
			container: categoryObject,
			maxInputs: 4,
			geometric: true,
			parms: []host.ParmTemplate{
				{Name: "input", Label: "Select Input", Type: "int", TupleSize: 1, Default: 0},
			},
			cook: cookSwitch,
		},
		"null": {
			category:  categorySop,
			container: categoryObject,
			maxInputs: 1,
			geometric: true,
			cook:      cookNull,
		},
	}
}

func (n *node) timeDependent() bool {
	// Nothing in the reference type table evaluates the frame.
	return false
}

// cook evaluates the node lazily: clean nodes return their cached
// geometry, dirty ones recook and notify listeners.
func (h *Host) cook(n *node) (*geoData, error) {
	spec, ok := typeTable[n.typeName]
	if !ok || !spec.geometric {
		return nil, fmt.Errorf("%w: %s", host.ErrNoGeometry, n.path())
	}
	if !n.dirty && n.geo != nil {
		return n.geo, nil
	}

	inputs := make([]*geoData, len(n.inputs))
	for i, in := range n.inputs {
		if in == nil {
			continue
		}
		g, err := h.cook(in)
		if err != nil {
			return nil, err
		}
		inputs[i] = g
	}

	start := now()
	var g *geoData
	var err error
	if n.flags["bypass"] {
		if len(inputs) > 0 && inputs[0] != nil {
			g = inputs[0]
		} else {
			g = newGeoData()
		}
	} else {
		g, err = spec.cook(h, n, inputs)
	}
	n.lastCookMS = float64(now().Sub(start).Microseconds()) / 1000.0
	n.cookCount++

	if err != nil {
		n.geo = nil
		n.cookErrs = []string{err.Error()}
		return nil, fmt.Errorf("%w: %v", host.ErrCookFailed, err)
	}
	n.geo = g
	n.dirty = false
	n.cookErrs = nil

	h.emit(host.Change{Kind: host.ChangeAppearanceChanged, NodePath: n.path()})
	return g, nil
}

func cookGeoContainer(h *Host, n *node, _ []*geoData) (*geoData, error) {
	// An object container shows whichever SOP holds the display flag,
	// falling back to the last child.
	var display *node
	for _, c := range n.children {
		if c.flags["display"] {
			display = c
		}
	}
	if display == nil && len(n.children) > 0 {
		display = n.children[len(n.children)-1]
	}
	if display == nil {
		return newGeoData(), nil
	}
	return h.cook(display)
}

func cookGrid(_ *Host, n *node, _ []*geoData) (*geoData, error) {
	rows := n.parmInt("rows", 10)
	cols := n.parmInt("cols", 10)
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("grid needs at least 2 rows and columns")
	}
	size := n.parmTuple("size", []float64{10, 10})

	points := rows * cols
	pos := make([]float32, 0, points*3)
	nrm := make([]float32, 0, points*3)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := (float64(c)/float64(cols-1) - 0.5) * size[0]
			z := (float64(r)/float64(rows-1) - 0.5) * size[1]
			pos = append(pos, float32(x), 0, float32(z))
			nrm = append(nrm, 0, 1, 0)
		}
	}

	g := newGeoData()
	g.points = points
	g.prims = (rows - 1) * (cols - 1)
	g.verts = g.prims * 4
	g.primTypes["Polygon"] = g.prims
	g.setFloatAttrib(host.ClassPoint, "P", 3, points, pos)
	g.setFloatAttrib(host.ClassPoint, "N", 3, points, nrm)
	return g, nil
}

func cookScatter(_ *Host, n *node, inputs []*geoData) (*geoData, error) {
	if len(inputs) == 0 || inputs[0] == nil {
		return nil, fmt.Errorf("scatter has no input geometry")
	}
	npts := n.parmInt("npts", 1000)
	seed := n.parmInt("seed", 0)

	lo, hi, ok := boundsOf(inputs[0])
	if !ok {
		return nil, fmt.Errorf("scatter input has no positions")
	}

	rng := rand.New(rand.NewSource(int64(seed)))
	pos := make([]float32, 0, npts*3)
	ids := make([]int32, 0, npts)
	for i := 0; i < npts; i++ {
		for axis := 0; axis < 3; axis++ {
			span := hi[axis] - lo[axis]
			pos = append(pos, float32(lo[axis]+rng.Float64()*span))
		}
		ids = append(ids, int32(i))
	}

	g := newGeoData()
	g.points = npts
	g.setFloatAttrib(host.ClassPoint, "P", 3, npts, pos)
	g.setIntAttrib(host.ClassPoint, "id", 1, npts, ids)
	return g, nil
}

func cookColor(_ *Host, n *node, inputs []*geoData) (*geoData, error) {
	if len(inputs) == 0 || inputs[0] == nil {
		return nil, fmt.Errorf("color has no input geometry")
	}
	in := inputs[0]
	c := n.parmTuple("color", []float64{1, 1, 1})

	g := copyGeoData(in)
	cd := make([]float32, 0, g.points*3)
	for i := 0; i < g.points; i++ {
		cd = append(cd, float32(c[0]), float32(c[1]), float32(c[2]))
	}
	g.setFloatAttrib(host.ClassPoint, "Cd", 3, g.points, cd)
	g.setStringAttrib(host.ClassDetail, "colorspace", 1, []string{"linear"})
	return g, nil
}

func cookMerge(_ *Host, _ *node, inputs []*geoData) (*geoData, error) {
	g := newGeoData()
	for _, in := range inputs {
		if in == nil {
			continue
		}
		appendGeoData(g, in)
	}
	return g, nil
}

func cookSwitch(_ *Host, n *node, inputs []*geoData) (*geoData, error) {
	sel := n.parmInt("input", 0)
	if sel < 0 || sel >= len(inputs) || inputs[sel] == nil {
		return nil, fmt.Errorf("switch input %d is not connected", sel)
	}
	return inputs[sel], nil
}

func cookNull(_ *Host, _ *node, inputs []*geoData) (*geoData, error) {
	if len(inputs) > 0 && inputs[0] != nil {
		return inputs[0], nil
	}
	return newGeoData(), nil
}

func copyGeoData(in *geoData) *geoData {
	g := newGeoData()
	g.points = in.points
	g.prims = in.prims
	g.verts = in.verts
	for k, v := range in.primTypes {
		g.primTypes[k] = v
	}
	for k, v := range in.attribs {
		g.attribs[k] = v
	}
	g.groups = append(g.groups, in.groups...)
	return g
}

// appendGeoData concatenates src onto dst, merging attributes that agree
// on class, name, type, and tuple size. Point positions always merge.
func appendGeoData(dst, src *geoData) {
	for k, sv := range src.attribs {
		dv, ok := dst.attribs[k]
		if !ok {
			if dst.points == 0 && dst.prims == 0 {
				cp := *sv
				cp.Floats = append([]float32{}, sv.Floats...)
				cp.Ints = append([]int32{}, sv.Ints...)
				cp.Strings = append([]string{}, sv.Strings...)
				dst.attribs[k] = &cp
			}
			continue
		}
		if dv.Info.Type != sv.Info.Type || dv.Info.TupleSize != sv.Info.TupleSize {
			continue
		}
		switch dv.Info.Type {
		case host.AttribFloat:
			dv.Floats = append(dv.Floats, sv.Floats...)
		case host.AttribInt:
			dv.Ints = append(dv.Ints, sv.Ints...)
		case host.AttribString:
			dv.Strings = append(dv.Strings, sv.Strings...)
		}
		dv.Total += sv.Total
	}
	dst.points += src.points
	dst.prims += src.prims
	dst.verts += src.verts
	for k, v := range src.primTypes {
		dst.primTypes[k] += v
	}
}

func boundsOf(g *geoData) (lo, hi [3]float64, ok bool) {
	p := g.attribs[attribKey{host.ClassPoint, "P"}]
	if p == nil || len(p.Floats) < 3 {
		return lo, hi, false
	}
	for i := 0; i < 3; i++ {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}
	for i := 0; i+2 < len(p.Floats); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := float64(p.Floats[i+axis])
			lo[axis] = math.Min(lo[axis], v)
			hi[axis] = math.Max(hi[axis], v)
		}
	}
	return lo, hi, true
}

// Geometry cooks the node if needed and returns its geometry summary.
func (h *Host) Geometry(path string) (*host.Geometry, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	g, err := h.cook(n)
	if err != nil {
		return nil, err
	}

	out := &host.Geometry{
		PointCount:  g.points,
		PrimCount:   g.prims,
		VertexCount: g.verts,
		PrimTypes:   g.primTypes,
		Groups:      append([]string{}, g.groups...),
	}
	if lo, hi, ok := boundsOf(g); ok {
		out.Bounds = []float64{lo[0], lo[1], lo[2], hi[0], hi[1], hi[2]}
	}
	var memory int64
	for _, a := range g.attribs {
		out.Attribs = append(out.Attribs, a.Info)
		memory += int64(len(a.Floats))*4 + int64(len(a.Ints))*4
		for _, s := range a.Strings {
			memory += int64(len(s))
		}
	}
	sort.Slice(out.Attribs, func(i, j int) bool {
		if out.Attribs[i].Class != out.Attribs[j].Class {
			return out.Attribs[i].Class < out.Attribs[j].Class
		}
		return out.Attribs[i].Name < out.Attribs[j].Name
	})
	out.MemoryBytes = memory
	return out, nil
}

// ReadAttrib cooks the node if needed and returns one attribute's full
// contents.
func (h *Host) ReadAttrib(path string, class host.AttribClass, name string) (*host.AttribData, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	g, err := h.cook(n)
	if err != nil {
		return nil, err
	}
	data, ok := g.attribs[attribKey{class, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s on %s", host.ErrAttribNotFound, class, name, path)
	}
	return data, nil
}

// ExportGeometry serializes cooked geometry. Supported formats: "geo"
// (JSON) and "obj" (positions only).
func (h *Host) ExportGeometry(path, format string) ([]byte, string, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, "", err
	}
	g, err := h.cook(n)
	if err != nil {
		return nil, "", err
	}
	if format == "" {
		format = "geo"
	}

	switch format {
	case "geo":
		doc := map[string]any{
			"point_count": g.points,
			"prim_count":  g.prims,
			"attributes":  map[string]any{},
		}
		attribs := doc["attributes"].(map[string]any)
		for k, a := range g.attribs {
			entry := map[string]any{"type": a.Info.Type, "size": a.Info.TupleSize}
			switch a.Info.Type {
			case host.AttribFloat:
				entry["values"] = a.Floats
			case host.AttribInt:
				entry["values"] = a.Ints
			case host.AttribString:
				entry["values"] = a.Strings
			}
			attribs[string(k.class)+"/"+k.name] = entry
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, "", fmt.Errorf("serialize geometry: %w", err)
		}
		return data, "geo", nil

	case "obj":
		p := g.attribs[attribKey{host.ClassPoint, "P"}]
		var b strings.Builder
		if p != nil {
			for i := 0; i+2 < len(p.Floats); i += 3 {
				fmt.Fprintf(&b, "v %g %g %g\n", p.Floats[i], p.Floats[i+1], p.Floats[i+2])
			}
		}
		return []byte(b.String()), "obj", nil

	default:
		return nil, "", fmt.Errorf("%w: export format %s", host.ErrTypeMismatch, format)
	}
}

// CookStatus reports cook state without forcing a cook.
func (h *Host) CookStatus(path string) (*host.CookInfo, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	return &host.CookInfo{
		Path:       n.path(),
		Cooked:     !n.dirty && n.geo != nil,
		CookCount:  n.cookCount,
		LastCookMS: n.lastCookMS,
		Errors:     append([]string{}, n.cookErrs...),
		Warnings:   []string{},
	}, nil
}
