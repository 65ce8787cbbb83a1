// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package host

// AttribClass identifies which geometry element an attribute is bound to.
type AttribClass string

const (
	ClassPoint  AttribClass = "point"
	ClassPrim   AttribClass = "prim"
	ClassVertex AttribClass = "vertex"
	ClassDetail AttribClass = "detail"
)

// NormalizeAttribClass maps accepted aliases onto the canonical class names.
//
// "primitive" and "prim" are the same class, as are "global" and "detail".
// Returns false for anything outside the vocabulary.
func NormalizeAttribClass(s string) (AttribClass, bool) {
	switch s {
	case "point":
		return ClassPoint, true
	case "prim", "primitive":
		return ClassPrim, true
	case "vertex":
		return ClassVertex, true
	case "detail", "global":
		return ClassDetail, true
	default:
		return "", false
	}
}

// AttribType is the element type of an attribute.
type AttribType string

const (
	AttribFloat  AttribType = "float"
	AttribInt    AttribType = "int"
	AttribString AttribType = "string"
)

// Node is a snapshot of one node in the scene graph.
//
// Inputs holds the absolute paths of connected inputs in slot order;
// unconnected slots are omitted. Flags carries the standard flag set
// (display, render, bypass, template, selectable).
type Node struct {
	Path            string          `json:"path"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	Parent          string          `json:"parent"`
	Children        []string        `json:"children"`
	Inputs          []string        `json:"inputs"`
	Outputs         []string        `json:"outputs"`
	Flags           map[string]bool `json:"flags"`
	Errors          []string        `json:"errors"`
	Warnings        []string        `json:"warnings"`
	IsTimeDependent bool            `json:"is_time_dependent"`
}

// Parm is a snapshot of one parameter on a node.
type Parm struct {
	Name               string   `json:"name"`
	Label              string   `json:"label"`
	Type               string   `json:"type"`
	Value              any      `json:"value"`
	Default            any      `json:"default"`
	IsDefault          bool     `json:"is_default"`
	HasExpression      bool     `json:"has_expression"`
	Expression         string   `json:"expression,omitempty"`
	ExpressionLanguage string   `json:"expression_language,omitempty"`
	Min                float64  `json:"min"`
	Max                float64  `json:"max"`
	MenuItems          []string `json:"menu_items,omitempty"`
	TupleSize          int      `json:"tuple_size"`
}

// ParmTemplate describes a parameter without its current value.
type ParmTemplate struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"`
	Default   any      `json:"default"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	MenuItems []string `json:"menu_items,omitempty"`
	TupleSize int      `json:"tuple_size"`
}

// AttribInfo describes one attribute in a geometry's catalog.
type AttribInfo struct {
	Name      string      `json:"name"`
	Class     AttribClass `json:"class"`
	Type      AttribType  `json:"type"`
	TupleSize int         `json:"size"`
}

// Geometry is a summary of a node's cooked geometry.
type Geometry struct {
	PointCount  int            `json:"point_count"`
	PrimCount   int            `json:"prim_count"`
	VertexCount int            `json:"vertex_count"`
	Bounds      []float64      `json:"bounds"`
	PrimTypes   map[string]int `json:"prim_types"`
	Attribs     []AttribInfo   `json:"attributes"`
	Groups      []string       `json:"groups"`
	MemoryBytes int64          `json:"memory_bytes"`
}

// AttribData is the full contents of one attribute across all elements.
//
// Exactly one of Floats, Ints, Strings is populated, selected by
// Info.Type. TupleSize components are stored flat, element-major:
// element i occupies indices [i*TupleSize, (i+1)*TupleSize).
type AttribData struct {
	Info    AttribInfo
	Total   int
	Floats  []float32
	Ints    []int32
	Strings []string
}

// CookInfo reports the cook state of one node.
type CookInfo struct {
	Path       string   `json:"path"`
	Cooked     bool     `json:"cooked"`
	CookCount  int      `json:"cook_count"`
	LastCookMS float64  `json:"last_cook_ms"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
}

// SceneStats is a summary of the live scene.
type SceneStats struct {
	FilePath  string   `json:"file"`
	Frame     float64  `json:"frame"`
	FPS       float64  `json:"fps"`
	NodeCount int      `json:"node_count"`
	RootPaths []string `json:"roots"`
}
