// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that address
// scene nodes or end up in file names. Using these validators keeps
// malformed addresses out of the host and prevents path traversal through
// node names.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// nodeNamePattern matches one path component of a scene address.
// Allows: letters, digits, underscores, and non-leading dots or hyphens.
// Max length: 128 characters.
var nodeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.\-]{0,127}$`)

// validFlags is the closed vocabulary of node flags the bridge accepts.
var validFlags = map[string]bool{
	"display":    true,
	"render":     true,
	"bypass":     true,
	"template":   true,
	"selectable": true,
}

// validAttribClasses is the closed vocabulary of attribute classes.
var validAttribClasses = map[string]bool{
	"point":  true,
	"prim":   true,
	"vertex": true,
	"detail": true,
}

// ValidateNodePath validates an absolute scene address like /obj/geo1/grid1.
//
// Valid paths:
//   - Start with "/"
//   - "/" alone addresses the scene root
//   - Each component is 1-128 chars of letters, digits, underscores,
//     dots, or hyphens, and does not start with a dot or hyphen
//
// "." and ".." components are rejected outright, so a validated path can
// never climb out of the scene tree.
//
// Example:
//
//	if err := validation.ValidateNodePath(req.Path); err != nil {
//	    return nil, fmt.Errorf("invalid path: %w", err)
//	}
//	// Safe to hand to the host
func ValidateNodePath(path string) error {
	if path == "" {
		return fmt.Errorf("node path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("node path must be absolute: %q", path)
	}
	if path == "/" {
		return nil
	}

	for _, part := range strings.Split(path[1:], "/") {
		if err := ValidateNodeName(part); err != nil {
			return fmt.Errorf("invalid node path %q: %w", path, err)
		}
	}
	return nil
}

// ValidateNodeName validates a single node name.
//
// Returns an error if the name is empty, contains a path separator, or
// falls outside the allowed character set.
func ValidateNodeName(name string) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if !nodeNamePattern.MatchString(name) {
		return fmt.Errorf("invalid node name: %q (must be 1-128 chars: letters, digits, underscore, dot, hyphen; no leading dot or hyphen)", name)
	}
	return nil
}

// SanitizeNodePath normalizes and validates a scene address.
// Returns the path with surrounding whitespace and any trailing slash
// removed, or an error if the result is not a valid address.
//
// Use this when you need both validation and normalization:
//
//	safePath, err := validation.SanitizeNodePath(userInput)
//	if err != nil {
//	    return err
//	}
//	// safePath is absolute and validated
func SanitizeNodePath(path string) (string, error) {
	normalized := strings.TrimSpace(path)
	if normalized != "/" {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	if err := ValidateNodePath(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateFlag checks a node flag name against the closed vocabulary
// (display, render, bypass, template, selectable).
func ValidateFlag(flag string) error {
	if !validFlags[flag] {
		return fmt.Errorf("unknown node flag: %q", flag)
	}
	return nil
}

// ValidateAttribClass checks a geometry attribute class against the
// closed vocabulary (point, prim, vertex, detail).
func ValidateAttribClass(class string) error {
	if !validAttribClasses[class] {
		return fmt.Errorf("unknown attribute class: %q", class)
	}
	return nil
}
