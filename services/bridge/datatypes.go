// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridge

// This file holds the request bodies for the mutation routes. Handlers
// bind them with ShouldBindJSON, apply EnsureDefaults, then Validate;
// batch sub-operations decode into the same types so both surfaces share
// one vocabulary.

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/SceneBridge/pkg/validation"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxNameLength bounds node and parameter names.
	MaxNameLength = 128

	// MaxBatchOperations bounds the sub-operation list of one batch
	// request.
	MaxBatchOperations = 100

	// MaxExpressionLength bounds parameter expression bodies.
	MaxExpressionLength = 8192
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// validate is the validator for request and config types.
// Initialized in init() with the scene-path validators.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("node_path", validateNodePathField)
	_ = validate.RegisterValidation("node_name", validateNodeNameField)
}

func validateNodePathField(fl validator.FieldLevel) bool {
	return validation.ValidateNodePath(fl.Field().String()) == nil
}

func validateNodeNameField(fl validator.FieldLevel) bool {
	return validation.ValidateNodeName(fl.Field().String()) == nil
}

// =============================================================================
// Node Mutation Requests
// =============================================================================

// NodeCreateRequest creates a node under a parent network.
//
// # Description
//
// Parent defaults to "/obj" when omitted, mirroring how artists build
// object-level networks. An empty Name lets the host pick one; a taken
// name is uniquified by the host rather than rejected.
//
// # Validation
//
//   - Parent: absolute node path (after defaulting)
//   - Type: required, at most MaxNameLength characters
//   - Name: optional, host name rules when present
type NodeCreateRequest struct {
	Parent string `json:"parent" validate:"required,node_path"`
	Type   string `json:"type" validate:"required,max=128"`
	Name   string `json:"name" validate:"omitempty,node_name"`
}

// Validate checks the request against its declared constraints.
func (r *NodeCreateRequest) Validate() error {
	return validate.Struct(r)
}

// EnsureDefaults populates optional fields.
func (r *NodeCreateRequest) EnsureDefaults() {
	if r.Parent == "" {
		r.Parent = "/obj"
	}
}

// NodeDeleteRequest removes a node and its subtree.
type NodeDeleteRequest struct {
	Path string `json:"path" validate:"required,node_path"`
}

// Validate checks the request against its declared constraints.
func (r *NodeDeleteRequest) Validate() error {
	return validate.Struct(r)
}

// NodeRenameRequest renames a node in place.
type NodeRenameRequest struct {
	Path string `json:"path" validate:"required,node_path"`
	Name string `json:"name" validate:"required,node_name"`
}

// Validate checks the request against its declared constraints.
func (r *NodeRenameRequest) Validate() error {
	return validate.Struct(r)
}

// NodeConnectRequest wires one node's output into another's input slot.
type NodeConnectRequest struct {
	FromPath   string `json:"from_path" validate:"required,node_path"`
	ToPath     string `json:"to_path" validate:"required,node_path"`
	InputIndex int    `json:"input_index" validate:"min=0"`
}

// Validate checks the request against its declared constraints.
func (r *NodeConnectRequest) Validate() error {
	return validate.Struct(r)
}

// NodeDisconnectRequest clears one input slot.
type NodeDisconnectRequest struct {
	Path       string `json:"path" validate:"required,node_path"`
	InputIndex int    `json:"input_index" validate:"min=0"`
}

// Validate checks the request against its declared constraints.
func (r *NodeDisconnectRequest) Validate() error {
	return validate.Struct(r)
}

// NodeFlagRequest sets one of the standard node flags. The flag vocabulary
// is enforced by the host so an unknown flag reports TYPE_MISMATCH, not a
// bind failure.
type NodeFlagRequest struct {
	Path  string `json:"path" validate:"required,node_path"`
	Flag  string `json:"flag" validate:"required,max=32"`
	Value *bool  `json:"value"`
}

// Validate checks the request against its declared constraints.
func (r *NodeFlagRequest) Validate() error {
	return validate.Struct(r)
}

// EnsureDefaults populates optional fields. An omitted value means "turn
// the flag on".
func (r *NodeFlagRequest) EnsureDefaults() {
	if r.Value == nil {
		on := true
		r.Value = &on
	}
}

// NodeLayoutRequest re-lays-out the children of a network.
type NodeLayoutRequest struct {
	Path string `json:"path" validate:"required,node_path"`
}

// Validate checks the request against its declared constraints.
func (r *NodeLayoutRequest) Validate() error {
	return validate.Struct(r)
}

// EnsureDefaults populates optional fields.
func (r *NodeLayoutRequest) EnsureDefaults() {
	if r.Path == "" {
		r.Path = "/obj"
	}
}

// =============================================================================
// Parameter Mutation Requests
// =============================================================================

// ParmSetRequest sets a parameter value, clearing any expression.
type ParmSetRequest struct {
	Path  string `json:"path" validate:"required,node_path"`
	Name  string `json:"name" validate:"required,max=128"`
	Value any    `json:"value"`
}

// Validate checks the request against its declared constraints. Value is
// checked by hand: zero is a legitimate parameter value, so a tag-level
// required would reject it.
func (r *ParmSetRequest) Validate() error {
	if r.Value == nil {
		return fmt.Errorf("value is required")
	}
	return validate.Struct(r)
}

// ParmRevertRequest restores a parameter to its default value.
type ParmRevertRequest struct {
	Path string `json:"path" validate:"required,node_path"`
	Name string `json:"name" validate:"required,max=128"`
}

// Validate checks the request against its declared constraints.
func (r *ParmRevertRequest) Validate() error {
	return validate.Struct(r)
}

// ParmExpressionRequest attaches an expression to a parameter.
type ParmExpressionRequest struct {
	Path       string `json:"path" validate:"required,node_path"`
	Name       string `json:"name" validate:"required,max=128"`
	Expression string `json:"expression" validate:"required,max=8192"`
	Language   string `json:"language" validate:"omitempty,oneof=hscript python"`
}

// Validate checks the request against its declared constraints.
func (r *ParmExpressionRequest) Validate() error {
	return validate.Struct(r)
}

// EnsureDefaults populates optional fields.
func (r *ParmExpressionRequest) EnsureDefaults() {
	if r.Language == "" {
		r.Language = "hscript"
	}
}

// =============================================================================
// Scene Requests
// =============================================================================

// SceneSaveRequest writes the scene to disk. Path is a file system path,
// not a node path; empty saves to the scene's current file.
type SceneSaveRequest struct {
	Path string `json:"path" validate:"omitempty,max=1024"`
}

// Validate checks the request against its declared constraints.
func (r *SceneSaveRequest) Validate() error {
	return validate.Struct(r)
}

// FrameSetRequest moves the playbar. Frame is a pointer so frame 0, a
// legitimate target, survives the required check.
type FrameSetRequest struct {
	Frame *float64 `json:"frame" validate:"required"`
}

// Validate checks the request against its declared constraints.
func (r *FrameSetRequest) Validate() error {
	return validate.Struct(r)
}

// GeoExportRequest serializes a node's cooked geometry into the staging
// area. An empty Format selects the host's native format.
type GeoExportRequest struct {
	Path   string `json:"path" validate:"required,node_path"`
	Format string `json:"format" validate:"omitempty,max=16"`
}

// Validate checks the request against its declared constraints.
func (r *GeoExportRequest) Validate() error {
	return validate.Struct(r)
}

// =============================================================================
// Batch Requests
// =============================================================================

// BatchOperation is one sub-operation of a batch request. Args is decoded
// into the matching request type once the operation type is known.
type BatchOperation struct {
	Type string          `json:"type" validate:"required"`
	Args json.RawMessage `json:"args"`
}

// BatchRequest carries an ordered list of sub-operations executed inside
// one host undo group.
//
// # Description
//
// Supported operation types are create, connect, set_parm, and set_flag.
// Execution does not abort on failure: a failing sub-operation records an
// error result at its index and later operations still run.
type BatchRequest struct {
	Operations []BatchOperation `json:"operations" validate:"required,min=1,max=100,dive"`
}

// Validate checks the request against its declared constraints.
func (r *BatchRequest) Validate() error {
	return validate.Struct(r)
}
