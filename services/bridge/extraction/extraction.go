// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extraction mounts the bulk-data surface as a route provider.
//
// The /extract/* endpoints carry the payloads too large to treat like
// ordinary responses: attribute arrays, geometry summaries, the
// invalidation poll, and staging-area stats. They ship as a provider
// rather than in the primary table because the host-side plugin that
// backs them installs separately from the core bridge; a bridge built
// without the provider serves everything else unchanged.
package extraction

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SceneBridge/pkg/validation"
	"github.com/AleutianAI/SceneBridge/services/bridge"
	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/events"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
	"github.com/AleutianAI/SceneBridge/services/bridge/transfer"
)

// Provider serves the /extract/* routes.
//
// Thread Safety: safe for concurrent use once constructed.
type Provider struct {
	dispatch *bridge.Dispatcher
	transfer *transfer.Manager
	bus      *events.Bus
}

// NewProvider creates the extraction surface around the server's
// dispatcher, staging manager, and event bus.
func NewProvider(d *bridge.Dispatcher, m *transfer.Manager, bus *events.Bus) *Provider {
	return &Provider{dispatch: d, transfer: m, bus: bus}
}

// Routes implements bridge.RouteProvider.
//
// Description:
//
//	GET /extract/geo_info    - cooked geometry summary with attribute catalog
//	GET /extract/attrib_read - one attribute's contents, inline or staged
//	GET /extract/events      - drain the invalidation queue
//	GET /extract/stats       - staging area usage
func (p *Provider) Routes() []bridge.Route {
	return []bridge.Route{
		{Method: http.MethodGet, Path: "/extract/geo_info", Handler: p.HandleGeoInfo},
		{Method: http.MethodGet, Path: "/extract/attrib_read", Handler: p.HandleAttribRead},
		{Method: http.MethodGet, Path: "/extract/events", Handler: p.HandleEvents},
		{Method: http.MethodGet, Path: "/extract/stats", Handler: p.HandleStats},
	}
}

// HandleGeoInfo returns a node's cooked geometry summary: element
// counts, bounds, primitive types, groups, and the attribute catalog
// keyed by class. Clients use it to decide which attributes to read
// and whether to expect a staged file.
func (p *Provider) HandleGeoInfo(c *gin.Context) {
	logger := slog.With("request_id", bridge.RequestID(c), "handler", "HandleGeoInfo")

	nodePath, ok := nodePathQuery(c, logger)
	if !ok {
		return
	}

	p.dispatch.Call(c, logger, gin.H{"path": nodePath}, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		geo, err := hst.Geometry(nodePath)
		if err != nil {
			return nil, bridge.ErrorFrom(err, contract.CodeExtractionFailed)
		}

		catalog := map[string][]gin.H{}
		for _, a := range geo.Attribs {
			class := string(a.Class)
			catalog[class] = append(catalog[class], gin.H{
				"name": a.Name,
				"type": a.Type,
				"size": a.TupleSize,
			})
		}
		return gin.H{
			"node_path":    nodePath,
			"point_count":  geo.PointCount,
			"prim_count":   geo.PrimCount,
			"vertex_count": geo.VertexCount,
			"bounds":       geo.Bounds,
			"prim_types":   geo.PrimTypes,
			"groups":       geo.Groups,
			"memory_bytes": geo.MemoryBytes,
			"attributes":   catalog,
		}, nil
	})
}

// HandleAttribRead reads a range of one attribute.
//
// Description:
//
//	?path= names the node, ?attrib_class= the element class (default
//	point), ?attrib_name= the attribute. ?start= and ?count= select a
//	sub-range; count -1 means to the end, and out-of-range windows
//	clamp rather than error. The transfer manager decides inline versus
//	staged from the clamped range's estimated size.
func (p *Provider) HandleAttribRead(c *gin.Context) {
	logger := slog.With("request_id", bridge.RequestID(c), "handler", "HandleAttribRead")

	nodePath, ok := nodePathQuery(c, logger)
	if !ok {
		return
	}
	name := c.Query("attrib_name")
	if name == "" {
		answerInvalid(c, logger, "missing required parameter: attrib_name")
		return
	}
	class, ok := host.NormalizeAttribClass(c.DefaultQuery("attrib_class", "point"))
	if !ok {
		answerInvalid(c, logger, "invalid attrib_class: %q", c.Query("attrib_class"))
		return
	}
	start, ok := rangeQuery(c, logger, "start", 0)
	if !ok {
		return
	}
	count, ok := rangeQuery(c, logger, "count", -1)
	if !ok {
		return
	}

	params := gin.H{
		"path":         nodePath,
		"attrib_class": class,
		"attrib_name":  name,
		"start":        start,
		"count":        count,
	}
	p.dispatch.Call(c, logger, params, func(ctx context.Context, hst host.Host) (any, *contract.Error) {
		data, err := hst.ReadAttrib(nodePath, class, name)
		if err != nil {
			return nil, bridge.ErrorFrom(err, contract.CodeExtractionFailed)
		}
		result, err := p.transfer.Encode(transfer.Payload{
			NodePath: nodePath,
			Data:     data,
			Start:    start,
			Count:    count,
		})
		if err != nil {
			return nil, contract.Errorf(contract.CodeExtractionFailed, "encoding attribute: %v", err)
		}
		return result, nil
	})
}

// HandleEvents drains the invalidation queue. Repeated polls return
// disjoint sets; clients that poll slower than the scene changes see
// evictions, not an error.
func (p *Provider) HandleEvents(c *gin.Context) {
	logger := slog.With("request_id", bridge.RequestID(c), "handler", "HandleEvents")

	p.dispatch.Direct(c, logger, nil, func(ctx context.Context) (any, *contract.Error) {
		drained := p.bus.Queue().Drain()
		return gin.H{"events": drained, "count": len(drained)}, nil
	})
}

// HandleStats reports staging area usage so operators can see what the
// collector is up against.
func (p *Provider) HandleStats(c *gin.Context) {
	logger := slog.With("request_id", bridge.RequestID(c), "handler", "HandleStats")

	p.dispatch.Direct(c, logger, nil, func(ctx context.Context) (any, *contract.Error) {
		stats, err := p.transfer.Stats()
		if err != nil {
			return nil, contract.Errorf(contract.CodeExtractionFailed, "reading staging stats: %v", err)
		}
		return stats, nil
	})
}

// answerInvalid writes a 400 INVALID_PARAMS envelope.
func answerInvalid(c *gin.Context, logger *slog.Logger, format string, args ...any) {
	cerr := contract.Errorf(contract.CodeInvalidParams, format, args...)
	logger.Warn("Invalid request", "message", cerr.Message)
	c.JSON(http.StatusBadRequest, cerr.Envelope())
}

// nodePathQuery fetches and sanitizes the mandatory ?path= parameter.
func nodePathQuery(c *gin.Context, logger *slog.Logger) (string, bool) {
	raw := c.Query("path")
	if raw == "" {
		answerInvalid(c, logger, "missing required parameter: path")
		return "", false
	}
	clean, err := validation.SanitizeNodePath(raw)
	if err != nil {
		answerInvalid(c, logger, "invalid path: %v", err)
		return "", false
	}
	return clean, true
}

// rangeQuery parses a range parameter. Unlike ordinary counts, -1 is
// in-vocabulary here ("to the end"), so only unparseable values or
// anything below -1 are rejected.
func rangeQuery(c *gin.Context, logger *slog.Logger, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < -1 {
		answerInvalid(c, logger, "invalid %s: %q", key, raw)
		return 0, false
	}
	return value, true
}
