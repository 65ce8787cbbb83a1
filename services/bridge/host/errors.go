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

import "errors"

// Sentinel errors for host operations.
var (
	// ErrNodeNotFound indicates a node path resolved to nothing.
	ErrNodeNotFound = errors.New("node not found")

	// ErrParmNotFound indicates the node has no parameter with that name.
	ErrParmNotFound = errors.New("parameter not found")

	// ErrAttribNotFound indicates the geometry has no such attribute.
	ErrAttribNotFound = errors.New("attribute not found")

	// ErrNoGeometry indicates the node type does not produce geometry.
	ErrNoGeometry = errors.New("node has no geometry")

	// ErrCookFailed indicates node evaluation failed or produced nothing.
	ErrCookFailed = errors.New("cook failed")

	// ErrTypeMismatch indicates a value does not fit the parameter type.
	ErrTypeMismatch = errors.New("value type mismatch")

	// ErrUnknownFlag indicates the flag name is outside the node's flag set.
	ErrUnknownFlag = errors.New("unknown node flag")

	// ErrUnknownType indicates the node type name is not registered.
	ErrUnknownType = errors.New("unknown node type")

	// ErrInvalidInput indicates a connection index is out of range.
	ErrInvalidInput = errors.New("invalid input index")

	// ErrNameInUse indicates a rename target collides with a sibling.
	ErrNameInUse = errors.New("node name already in use")
)
