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
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
	"github.com/AleutianAI/SceneBridge/services/bridge/journal"
	"github.com/AleutianAI/SceneBridge/services/bridge/stream"
	"github.com/AleutianAI/SceneBridge/services/bridge/transfer"
)

// Handlers implements the primary route table.
//
// Thread Safety: safe for concurrent use once constructed.
type Handlers struct {
	dispatch *Dispatcher
	transfer *transfer.Manager
	journal  *journal.Journal
	hub      *stream.Hub
}

// NewHandlers creates handlers dispatching through d.
func NewHandlers(d *Dispatcher) *Handlers {
	return &Handlers{dispatch: d}
}

// WithTransfer stages geometry exports through m.
func (h *Handlers) WithTransfer(m *transfer.Manager) *Handlers {
	h.transfer = m
	return h
}

// WithJournal serves /journal/recent from j.
func (h *Handlers) WithJournal(j *journal.Journal) *Handlers {
	h.journal = j
	return h
}

// WithStream serves /events/stream from hub.
func (h *Handlers) WithStream(hub *stream.Hub) *Handlers {
	h.hub = hub
	return h
}

// ============================================================================
// GET HANDLERS (Inspection)
// ============================================================================

// HandlePing reports liveness without touching the host thread, so it
// stays responsive even while a long cook holds the host.
func (h *Handlers) HandlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"time":           float64(time.Now().UnixNano()) / 1e9,
		"version":        Version,
		"host_available": h.dispatch.exec.Running(),
	})
}

// HandleSceneInfo returns the scene summary.
func (h *Handlers) HandleSceneInfo(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSceneInfo")

	h.dispatch.Call(c, logger, nil, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		stats, err := hst.SceneInfo()
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeInternalError)
		}
		return stats, nil
	})
}

// HandleNodeGet returns one node's serialization.
func (h *Handlers) HandleNodeGet(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeGet")

	nodePath, ok := nodePathQuery(c, logger, "path")
	if !ok {
		return
	}

	h.dispatch.Call(c, logger, gin.H{"path": nodePath}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		node, err := hst.NodeByPath(nodePath)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeInternalError)
		}
		return node, nil
	})
}

// HandleNodeTree returns the children tree under a node.
//
// Description:
//
//	Walks the graph from ?path= (default /obj) down to ?depth= levels
//	(default 2). Each entry carries the node's serialization minus its
//	flat child-path list; nested entries appear under "children" while
//	the depth budget lasts.
func (h *Handlers) HandleNodeTree(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeTree")

	raw := c.DefaultQuery("path", "/obj")
	nodePath, err := sanitizedPath(c, logger, "path", raw)
	if err != nil {
		return
	}
	depth, err := intQuery(c, logger, "depth", 2)
	if err != nil {
		return
	}

	h.dispatch.Call(c, logger, gin.H{"path": nodePath, "depth": depth}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		root, herr := hst.NodeByPath(nodePath)
		if herr != nil {
			return nil, ErrorFrom(herr, contract.CodeInternalError)
		}
		tree, herr := buildTree(hst, root, 0, depth)
		if herr != nil {
			return nil, ErrorFrom(herr, contract.CodeInternalError)
		}
		return tree, nil
	})
}

// buildTree serializes node and, while depth remains, its children.
func buildTree(hst host.Host, node *host.Node, level, maxDepth int) (gin.H, error) {
	entry := gin.H{
		"path":     node.Path,
		"name":     node.Name,
		"type":     node.Type,
		"category": node.Category,
		"flags":    node.Flags,
		"inputs":   node.Inputs,
		"outputs":  node.Outputs,
	}
	if level >= maxDepth || len(node.Children) == 0 {
		return entry, nil
	}
	children, err := hst.ListChildren(node.Path)
	if err != nil {
		return nil, err
	}
	nested := make([]gin.H, 0, len(children))
	for _, child := range children {
		sub, err := buildTree(hst, child, level+1, maxDepth)
		if err != nil {
			return nil, err
		}
		nested = append(nested, sub)
	}
	entry["children"] = nested
	return entry, nil
}

// HandleNodeSearch finds nodes by name substring and exact type.
func (h *Handlers) HandleNodeSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeSearch")

	raw := c.DefaultQuery("root", "/")
	root, err := sanitizedPath(c, logger, "root", raw)
	if err != nil {
		return
	}
	name := c.Query("name")
	typeName := c.Query("type")

	params := gin.H{"root": root, "name": name, "type": typeName}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		nodes, herr := hst.FindNodes(root, name, typeName)
		if herr != nil {
			return nil, ErrorFrom(herr, contract.CodeInternalError)
		}
		results := make([]gin.H, 0, len(nodes))
		for _, n := range nodes {
			results = append(results, gin.H{"path": n.Path, "name": n.Name, "type": n.Type})
		}
		return gin.H{"results": results, "count": len(results)}, nil
	})
}

// HandleParmGet returns one parameter, or the modified set when ?name= is
// omitted.
func (h *Handlers) HandleParmGet(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleParmGet")

	nodePath, ok := nodePathQuery(c, logger, "path")
	if !ok {
		return
	}
	name := c.Query("name")

	h.dispatch.Call(c, logger, gin.H{"path": nodePath, "name": name}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		if name != "" {
			parm, err := hst.Parm(nodePath, name)
			if err != nil {
				return nil, ErrorFrom(err, contract.CodeInternalError)
			}
			return parm, nil
		}

		parms, err := hst.Parms(nodePath)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeInternalError)
		}
		modified := make([]*host.Parm, 0)
		for _, p := range parms {
			if !p.IsDefault {
				modified = append(modified, p)
			}
		}
		return gin.H{
			"node":           nodePath,
			"parm_count":     len(parms),
			"modified_parms": modified,
		}, nil
	})
}

// HandleParmTemplate returns template metadata for one parameter, or for
// all of the node's parameters when ?name= is omitted.
func (h *Handlers) HandleParmTemplate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleParmTemplate")

	nodePath, ok := nodePathQuery(c, logger, "path")
	if !ok {
		return
	}
	name := c.Query("name")

	h.dispatch.Call(c, logger, gin.H{"path": nodePath, "name": name}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		if name != "" {
			tpl, err := hst.ParmTemplate(nodePath, name)
			if err != nil {
				return nil, ErrorFrom(err, contract.CodeInternalError)
			}
			return tpl, nil
		}

		parms, err := hst.Parms(nodePath)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeInternalError)
		}
		templates := make([]*host.ParmTemplate, 0, len(parms))
		for _, p := range parms {
			tpl, err := hst.ParmTemplate(nodePath, p.Name)
			if err != nil {
				return nil, ErrorFrom(err, contract.CodeInternalError)
			}
			templates = append(templates, tpl)
		}
		return gin.H{"node": nodePath, "templates": templates}, nil
	})
}

// HandleCookStatus reports a node's cook state without forcing a cook.
func (h *Handlers) HandleCookStatus(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCookStatus")

	nodePath, ok := nodePathQuery(c, logger, "path")
	if !ok {
		return
	}

	h.dispatch.Call(c, logger, gin.H{"path": nodePath}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		info, err := hst.CookStatus(nodePath)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeInternalError)
		}
		return info, nil
	})
}

// HandleJournalRecent returns the newest journal entries, newest first.
func (h *Handlers) HandleJournalRecent(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleJournalRecent")

	limit, err := intQuery(c, logger, "limit", 50)
	if err != nil {
		return
	}

	h.dispatch.Direct(c, logger, gin.H{"limit": limit}, func(ctx context.Context) (any, *contract.Error) {
		if h.journal == nil {
			return gin.H{"entries": []journal.Entry{}, "count": 0}, nil
		}
		entries, jerr := h.journal.Recent(limit)
		if jerr != nil {
			return nil, contract.Errorf(contract.CodeInternalError, "reading journal: %v", jerr)
		}
		return gin.H{"entries": entries, "count": len(entries)}, nil
	})
}

// ============================================================================
// POST HANDLERS (Mutations)
// ============================================================================

// HandleNodeCreate creates a node.
//
// Description:
//
//	Binds and validates the body before any host work is scheduled, then
//	creates the node inside an undo group so the whole request reads as
//	one artist action in the host's undo stack. The response reports the
//	path the host actually assigned, which may differ from the requested
//	name when the host had to uniquify it.
func (h *Handlers) HandleNodeCreate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeCreate")

	var req NodeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"parent": req.Parent, "type": req.Type, "name": req.Name}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Create Node")
		defer end()

		node, err := hst.CreateNode(req.Parent, req.Type, req.Name)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{
			"success": true,
			"path":    node.Path,
			"name":    node.Name,
			"type":    node.Type,
		}, nil
	})
}

// HandleNodeDelete removes a node and its subtree.
func (h *Handlers) HandleNodeDelete(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeDelete")

	var req NodeDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	h.dispatch.Call(c, logger, gin.H{"path": req.Path}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Delete Node")
		defer end()

		if err := hst.DeleteNode(req.Path); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "deleted": req.Path}, nil
	})
}

// HandleNodeRename renames a node in place.
func (h *Handlers) HandleNodeRename(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeRename")

	var req NodeRenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"path": req.Path, "name": req.Name}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Rename Node")
		defer end()

		node, err := hst.RenameNode(req.Path, req.Name)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{
			"success":  true,
			"old_path": req.Path,
			"new_path": node.Path,
			"name":     node.Name,
		}, nil
	})
}

// HandleNodeConnect wires one node's output into another's input slot.
func (h *Handlers) HandleNodeConnect(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeConnect")

	var req NodeConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"from_path": req.FromPath, "to_path": req.ToPath, "input_index": req.InputIndex}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Connect Nodes")
		defer end()

		if err := hst.ConnectNodes(req.FromPath, req.ToPath, req.InputIndex); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{
			"success":     true,
			"from_path":   req.FromPath,
			"to_path":     req.ToPath,
			"input_index": req.InputIndex,
		}, nil
	})
}

// HandleNodeDisconnect clears one input slot.
func (h *Handlers) HandleNodeDisconnect(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeDisconnect")

	var req NodeDisconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"path": req.Path, "input_index": req.InputIndex}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Disconnect Node")
		defer end()

		if err := hst.DisconnectInput(req.Path, req.InputIndex); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "path": req.Path, "input_index": req.InputIndex}, nil
	})
}

// HandleNodeFlag sets one of the standard node flags. Unknown flag names
// report TYPE_MISMATCH, matching the closed vocabulary the host enforces.
func (h *Handlers) HandleNodeFlag(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeFlag")

	var req NodeFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	value := *req.Value
	params := gin.H{"path": req.Path, "flag": req.Flag, "value": value}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Set Flag")
		defer end()

		if err := hst.SetFlag(req.Path, req.Flag, value); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "path": req.Path, "flag": req.Flag, "value": value}, nil
	})
}

// HandleNodeLayout re-lays-out the children of a network.
func (h *Handlers) HandleNodeLayout(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNodeLayout")

	var req NodeLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	h.dispatch.Call(c, logger, gin.H{"path": req.Path}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		if err := hst.LayoutChildren(req.Path); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "path": req.Path}, nil
	})
}

// HandleParmSet sets a parameter value and reports the evaluated result.
func (h *Handlers) HandleParmSet(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleParmSet")

	var req ParmSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"path": req.Path, "name": req.Name, "value": req.Value}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Set Parameter")
		defer end()

		if err := hst.SetParm(req.Path, req.Name, req.Value); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		parm, err := hst.Parm(req.Path, req.Name)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "name": req.Name, "value": parm.Value}, nil
	})
}

// HandleParmRevert restores a parameter to its default value.
func (h *Handlers) HandleParmRevert(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleParmRevert")

	var req ParmRevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"path": req.Path, "name": req.Name}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Revert Parameter")
		defer end()

		if err := hst.RevertParm(req.Path, req.Name); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		parm, err := hst.Parm(req.Path, req.Name)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "name": req.Name, "value": parm.Value}, nil
	})
}

// HandleParmExpression attaches an expression to a parameter.
func (h *Handlers) HandleParmExpression(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleParmExpression")

	var req ParmExpressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"path": req.Path, "name": req.Name, "language": req.Language}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		end := hst.BeginUndo("MCP: Set Expression")
		defer end()

		if err := hst.SetParmExpression(req.Path, req.Name, req.Expression, req.Language); err != nil {
			// Expression text the host cannot evaluate is a type problem,
			// not an extraction one.
			return nil, ErrorFrom(err, contract.CodeTypeMismatch)
		}
		parm, err := hst.Parm(req.Path, req.Name)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{
			"success":    true,
			"name":       req.Name,
			"expression": req.Expression,
			"language":   req.Language,
			"value":      parm.Value,
		}, nil
	})
}

// HandleSceneSave writes the scene to disk.
func (h *Handlers) HandleSceneSave(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSceneSave")

	var req SceneSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	h.dispatch.Call(c, logger, gin.H{"path": req.Path}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		written, err := hst.SaveScene(req.Path)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "path": written}, nil
	})
}

// HandleFrameSet moves the playbar.
func (h *Handlers) HandleFrameSet(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleFrameSet")

	var req FrameSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	frame := *req.Frame
	h.dispatch.Call(c, logger, gin.H{"frame": frame}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		if err := hst.SetFrame(frame); err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		return gin.H{"success": true, "frame": frame}, nil
	})
}

// HandleGeoExport serializes a node's cooked geometry into the staging
// area.
//
// Description:
//
//	The export always goes through the transfer manager rather than an
//	arbitrary caller-supplied output path, so exports obey the staging
//	TTL and the collector reclaims them like any other bulk result. The
//	response carries the file reference plus the cooked geometry's
//	counts and bounds.
func (h *Handlers) HandleGeoExport(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGeoExport")

	var req GeoExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailure(c, logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		bindFailure(c, logger, err)
		return
	}

	params := gin.H{"path": req.Path, "format": req.Format}
	h.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		geo, err := hst.Geometry(req.Path)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		data, format, err := hst.ExportGeometry(req.Path, req.Format)
		if err != nil {
			return nil, ErrorFrom(err, contract.CodeExtractionFailed)
		}
		ref, err := h.transfer.StageBytes(path.Base(req.Path), format, data)
		if err != nil {
			return nil, contract.Errorf(contract.CodeExtractionFailed, "staging export: %v", err)
		}
		return gin.H{
			"success":  true,
			"file_ref": ref,
			"stats": gin.H{
				"points":   geo.PointCount,
				"prims":    geo.PrimCount,
				"vertices": geo.VertexCount,
				"bounds":   geo.Bounds,
			},
		}, nil
	})
}

