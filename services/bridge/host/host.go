// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package host defines the boundary between the bridge and the embedding
// scene application.
//
// The Host interface exposes the scene operations the bridge needs: node
// graph inspection and mutation, parameter access, geometry extraction,
// frame control, persistence, undo grouping, and change subscription.
// Implementations wrap either the real application's API or the in-memory
// reference host in the memory subpackage.
//
// # Thread Safety
//
// Host implementations are NOT required to be safe for concurrent use.
// The embedding applications this package targets only allow API access
// from one thread, so the bridge funnels every call through an execution
// serializer. The single exception is Subscribe/the returned remove
// function, which must tolerate being called from any goroutine.
package host

// Host is the scene application as seen by the bridge.
//
// All methods report failures with the sentinel errors in this package
// (possibly wrapped); callers map them onto wire codes with errors.Is.
type Host interface {
	// --- Node graph ---

	// NodeByPath returns the node at an absolute path.
	NodeByPath(path string) (*Node, error)

	// ListChildren returns the direct children of the node at path.
	ListChildren(path string) ([]*Node, error)

	// FindNodes searches the subtree under root for nodes whose name
	// contains name case-insensitively (when non-empty) and whose type
	// equals typeName (when non-empty).
	FindNodes(root, name, typeName string) ([]*Node, error)

	// CreateNode creates a child of the given type under parent. An empty
	// name lets the host pick one; a taken name is uniquified the way the
	// host always does it.
	CreateNode(parent, typeName, name string) (*Node, error)

	// DeleteNode removes the node and its subtree.
	DeleteNode(path string) error

	// RenameNode renames the node in place and returns its new snapshot.
	RenameNode(path, name string) (*Node, error)

	// ConnectNodes wires from's output into to's input slot.
	ConnectNodes(from, to string, inputIndex int) error

	// DisconnectInput clears one input slot.
	DisconnectInput(path string, inputIndex int) error

	// SetFlag sets one of the node's standard flags
	// (display, render, bypass, template, selectable).
	SetFlag(path, flag string, value bool) error

	// LayoutChildren re-lays-out the children of the node at path.
	LayoutChildren(path string) error

	// --- Parameters ---

	// Parm returns one parameter snapshot.
	Parm(path, name string) (*Parm, error)

	// Parms returns all parameters on the node.
	Parms(path string) ([]*Parm, error)

	// ParmTemplate returns the template metadata for one parameter.
	ParmTemplate(path, name string) (*ParmTemplate, error)

	// SetParm sets a parameter value, clearing any expression.
	SetParm(path, name string, value any) error

	// RevertParm restores a parameter to its default.
	RevertParm(path, name string) error

	// SetParmExpression attaches an expression to a parameter. The
	// expression text is opaque to the bridge.
	SetParmExpression(path, name, expression, language string) error

	// --- Geometry ---

	// Geometry cooks the node if needed and returns its geometry summary.
	Geometry(path string) (*Geometry, error)

	// ReadAttrib cooks the node if needed and returns the full contents
	// of one attribute. Range slicing is the caller's concern.
	ReadAttrib(path string, class AttribClass, name string) (*AttribData, error)

	// ExportGeometry serializes the node's cooked geometry in the named
	// format and returns the raw bytes plus the file extension to use.
	ExportGeometry(path, format string) ([]byte, string, error)

	// CookStatus reports the node's cook state without forcing a cook.
	CookStatus(path string) (*CookInfo, error)

	// --- Scene ---

	// SceneInfo returns a summary of the live scene.
	SceneInfo() (*SceneStats, error)

	// SaveScene writes the scene to path, or to its current file when
	// path is empty. Returns the path written.
	SaveScene(path string) (string, error)

	// SetFrame moves the playbar to the given frame.
	SetFrame(frame float64) error

	// --- Undo ---

	// BeginUndo opens an undo group with the given label. The returned
	// function closes the group and must be called exactly once.
	BeginUndo(label string) (end func())

	// --- Change notification ---

	// Subscribe registers a listener for scene changes. The returned
	// function removes it. Both are safe to call from any goroutine.
	Subscribe(fn Listener) (remove func())
}
