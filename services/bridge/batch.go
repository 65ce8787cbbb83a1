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

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// batchResult is one slot in a batch response.
type batchResult struct {
	Index  int    `json:"index"`
	Type   string `json:"type"`
	Result any    `json:"result"`
}

// HandleBatch executes up to MaxBatchOperations mutations in one host
// round trip.
//
// Description:
//
//	The whole batch runs inside a single undo group and a single host
//	job, so no other queued request interleaves with it and one Ctrl-Z
//	in the host rolls the entire batch back. Operations fail
//	independently: a failed slot carries an error envelope in its
//	result while the remaining slots still run.
//
// Inputs:
//
//	c - gin context carrying a BatchRequest body.
//
// Outputs:
//
//	200 with {"results": [{index, type, result}], "count": N}.
func (h *Handlers) HandleBatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBatch")

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"operations": len(req.Operations)}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Batch Operation")
		defer end()

		results := make([]batchResult, 0, len(req.Operations))
		for i, op := range req.Operations {
			results = append(results, batchResult{
				Index:  i,
				Type:   op.Type,
				Result: runBatchOp(logger, hst, op),
			})
		}
		return gin.H{"results": results, "count": len(results)}, nil
	})
}

// runBatchOp executes one batch slot, converting panics into error
// envelopes so one bad operation cannot abort its siblings.
func runBatchOp(logger *slog.Logger, hst host.Host, op BatchOperation) (result any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Batch operation panicked", "type", op.Type, "panic", r)
			result = contract.Errorf(contract.CodeExtractionFailed, "operation panicked: %v", r).Envelope()
		}
	}()
	return applyBatchOp(hst, op)
}

// applyBatchOp dispatches one operation to the host. Slot args reuse the
// top-level request types, so a batched create accepts exactly what
// POST /node/create accepts.
func applyBatchOp(hst host.Host, op BatchOperation) any {
	switch op.Type {
	case "create":
		var req NodeCreateRequest
		if env := decodeBatchArgs(op.Args, &req); env != nil {
			return env
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			return contract.Errorf(contract.CodeInvalidParams, "invalid create args: %v", err).Envelope()
		}
		node, err := hst.CreateNode(req.Parent, req.Type, req.Name)
		if err != nil {
			return ErrorFrom(err, contract.CodeExtractionFailed).Envelope()
		}
		return gin.H{"path": node.Path, "name": node.Name}

	case "connect":
		var req NodeConnectRequest
		if env := decodeBatchArgs(op.Args, &req); env != nil {
			return env
		}
		if err := req.Validate(); err != nil {
			return contract.Errorf(contract.CodeInvalidParams, "invalid connect args: %v", err).Envelope()
		}
		if err := hst.ConnectNodes(req.FromPath, req.ToPath, req.InputIndex); err != nil {
			return ErrorFrom(err, contract.CodeExtractionFailed).Envelope()
		}
		return gin.H{"success": true}

	case "set_parm":
		var req ParmSetRequest
		if env := decodeBatchArgs(op.Args, &req); env != nil {
			return env
		}
		if err := req.Validate(); err != nil {
			return contract.Errorf(contract.CodeInvalidParams, "invalid set_parm args: %v", err).Envelope()
		}
		if err := hst.SetParm(req.Path, req.Name, req.Value); err != nil {
			return ErrorFrom(err, contract.CodeExtractionFailed).Envelope()
		}
		parm, err := hst.Parm(req.Path, req.Name)
		if err != nil {
			return ErrorFrom(err, contract.CodeExtractionFailed).Envelope()
		}
		return gin.H{"value": parm.Value}

	case "set_flag":
		var req NodeFlagRequest
		if env := decodeBatchArgs(op.Args, &req); env != nil {
			return env
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			return contract.Errorf(contract.CodeInvalidParams, "invalid set_flag args: %v", err).Envelope()
		}
		if err := hst.SetFlag(req.Path, req.Flag, *req.Value); err != nil {
			return ErrorFrom(err, contract.CodeExtractionFailed).Envelope()
		}
		return gin.H{"success": true}

	default:
		return contract.Errorf(contract.CodeTypeMismatch, "unknown operation type: %s", op.Type).Envelope()
	}
}

// decodeBatchArgs unmarshals a slot's args into its request type,
// returning an error envelope on malformed or absent args.
func decodeBatchArgs(raw json.RawMessage, dst any) any {
	if len(raw) == 0 {
		return contract.NewError(contract.CodeInvalidParams, "missing operation args").Envelope()
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return contract.Errorf(contract.CodeInvalidParams, "invalid operation args: %v", err).Envelope()
	}
	return nil
}
