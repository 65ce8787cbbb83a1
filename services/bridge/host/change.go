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

// ChangeKind identifies a category of scene change at the host boundary.
//
// The set is closed on purpose: host adapters translate whatever their
// native callback system reports into one of these kinds, or drop the
// callback entirely. Consumers switch exhaustively on ChangeKind and never
// parse host-specific event names.
type ChangeKind int

const (
	// ChangeChildCreated fires when a node gains a child.
	ChangeChildCreated ChangeKind = iota

	// ChangeChildDeleted fires when a node loses a child.
	ChangeChildDeleted

	// ChangeParmTupleChanged fires when a parameter value changes.
	ChangeParmTupleChanged

	// ChangeInputRewired fires when a node's input connections change.
	ChangeInputRewired

	// ChangeAppearanceChanged fires when a node's cooked output changes.
	ChangeAppearanceChanged

	// ChangeFrameChanged fires when the playbar frame moves.
	ChangeFrameChanged

	// ChangeSceneSaved fires when the scene file is written.
	ChangeSceneSaved
)

// String returns the kind's name for logs.
func (k ChangeKind) String() string {
	switch k {
	case ChangeChildCreated:
		return "child_created"
	case ChangeChildDeleted:
		return "child_deleted"
	case ChangeParmTupleChanged:
		return "parm_tuple_changed"
	case ChangeInputRewired:
		return "input_rewired"
	case ChangeAppearanceChanged:
		return "appearance_changed"
	case ChangeFrameChanged:
		return "frame_changed"
	case ChangeSceneSaved:
		return "scene_saved"
	default:
		return "unknown"
	}
}

// Change is one scene change as observed at the host boundary.
//
// NodePath is the node the change occurred on (the parent network for
// child events). The remaining fields are set per kind: Child for
// ChangeChildCreated, ParmName for ChangeParmTupleChanged, Frame for
// ChangeFrameChanged, ScenePath for ChangeSceneSaved.
type Change struct {
	Kind      ChangeKind
	NodePath  string
	Child     string
	ParmName  string
	Frame     float64
	ScenePath string
}

// Listener receives scene changes synchronously on the host thread.
//
// Implementations must not block: they run inside host mutation paths.
type Listener func(Change)
