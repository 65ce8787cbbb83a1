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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SceneBridge/services/bridge/telemetry"
)

// Route binds one HTTP method and path to a handler.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// RouteProvider contributes routes to the service's table. Auxiliary
// surfaces such as the extraction endpoints implement this to mount
// themselves next to the primary table.
type RouteProvider interface {
	Routes() []Route
}

// Routes returns the primary route table. The stream and metrics routes
// appear only when their backends were wired in.
func (h *Handlers) Routes() []Route {
	routes := []Route{
		{http.MethodGet, "/ping", h.HandlePing},
		{http.MethodGet, "/scene/info", h.HandleSceneInfo},
		{http.MethodGet, "/node/get", h.HandleNodeGet},
		{http.MethodGet, "/node/tree", h.HandleNodeTree},
		{http.MethodGet, "/node/search", h.HandleNodeSearch},
		{http.MethodGet, "/parm/get", h.HandleParmGet},
		{http.MethodGet, "/parm/template", h.HandleParmTemplate},
		{http.MethodGet, "/cook/status", h.HandleCookStatus},
		{http.MethodGet, "/journal/recent", h.HandleJournalRecent},

		{http.MethodPost, "/node/create", h.HandleNodeCreate},
		{http.MethodPost, "/node/delete", h.HandleNodeDelete},
		{http.MethodPost, "/node/rename", h.HandleNodeRename},
		{http.MethodPost, "/node/connect", h.HandleNodeConnect},
		{http.MethodPost, "/node/disconnect", h.HandleNodeDisconnect},
		{http.MethodPost, "/node/flag", h.HandleNodeFlag},
		{http.MethodPost, "/node/layout", h.HandleNodeLayout},
		{http.MethodPost, "/parm/set", h.HandleParmSet},
		{http.MethodPost, "/parm/revert", h.HandleParmRevert},
		{http.MethodPost, "/parm/expression", h.HandleParmExpression},
		{http.MethodPost, "/scene/save", h.HandleSceneSave},
		{http.MethodPost, "/frame/set", h.HandleFrameSet},
		{http.MethodPost, "/geo/export", h.HandleGeoExport},
		{http.MethodPost, "/batch", h.HandleBatch},
	}
	if h.hub != nil {
		routes = append(routes, Route{http.MethodGet, "/events/stream", h.hub.Handler()})
	}
	if mh := telemetry.MetricsHandler(); mh != nil {
		routes = append(routes, Route{http.MethodGet, "/metrics", gin.WrapH(mh)})
	}
	return routes
}

// RegisterRoutes installs the primary table and any provider tables.
//
// Description:
//
//	Primary endpoints:
//
//	  GET  /ping             - liveness probe, never touches the host
//	  GET  /scene/info       - scene summary
//	  GET  /node/get         - one node's serialization
//	  GET  /node/tree        - children tree under a node
//	  GET  /node/search      - find nodes by name substring and type
//	  GET  /parm/get         - one parameter, or the modified set
//	  GET  /parm/template    - parameter template metadata
//	  GET  /cook/status      - cook state without forcing a cook
//	  GET  /journal/recent   - newest journal entries
//	  GET  /events/stream    - websocket event feed (when wired)
//	  GET  /metrics          - Prometheus scrape (when wired)
//	  POST /node/create      - create a node
//	  POST /node/delete      - delete a node and its subtree
//	  POST /node/rename      - rename a node
//	  POST /node/connect     - wire an output into an input slot
//	  POST /node/disconnect  - clear an input slot
//	  POST /node/flag        - set a standard node flag
//	  POST /node/layout      - lay out a network's children
//	  POST /parm/set         - set a parameter value
//	  POST /parm/revert      - revert a parameter to its default
//	  POST /parm/expression  - attach an expression to a parameter
//	  POST /scene/save       - write the scene to disk
//	  POST /frame/set        - move the playbar
//	  POST /geo/export       - stage a node's cooked geometry
//	  POST /batch            - run several mutations in one host trip
//
//	Providers register after the primary table. A provider route whose
//	method and path collide with an already-registered route is skipped
//	with a warning, so the primary table always wins.
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, providers ...RouteProvider) {
	seen := make(map[string]bool)
	install := func(routes []Route) {
		for _, r := range routes {
			key := r.Method + " " + r.Path
			if seen[key] {
				slog.Warn("Skipping duplicate route", "method", r.Method, "path", r.Path)
				continue
			}
			seen[key] = true
			rg.Handle(r.Method, r.Path, r.Handler)
		}
	}
	install(handlers.Routes())
	for _, p := range providers {
		install(p.Routes())
	}
}
