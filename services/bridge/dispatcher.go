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
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/SceneBridge/pkg/validation"
	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/hostexec"
	"github.com/AleutianAI/SceneBridge/services/bridge/journal"
	"github.com/AleutianAI/SceneBridge/services/bridge/telemetry"
)

// requestIDKey is the gin context key caching the request correlation ID.
const requestIDKey = "bridge_request_id"

// getOrCreateRequestID returns the request's correlation ID, minting one
// when the client did not send X-Request-ID. The ID is echoed on the
// response and cached on the context so the handler, the dispatcher, and
// the journal all see the same value.
func getOrCreateRequestID(c *gin.Context) string {
	if cached, ok := c.Get(requestIDKey); ok {
		if id, ok := cached.(string); ok {
			return id
		}
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDKey, requestID)
	c.Header("X-Request-ID", requestID)
	return requestID
}

// RequestID returns the request's correlation ID, minting and caching one
// when the client did not send X-Request-ID. Route providers use it so
// their log lines correlate with the journal.
func RequestID(c *gin.Context) string {
	return getOrCreateRequestID(c)
}

// ============================================================================
// DISPATCHER
// ============================================================================

// Dispatcher normalizes operation outcomes onto the wire contract.
//
// Description:
//
//	Handlers hand the dispatcher a closure producing a two-case
//	(value, *contract.Error) result. Call funnels the closure through the
//	execution serializer; Direct runs it on the request goroutine for
//	routes that never touch host state. Both write exactly one response:
//	the raw value on success, the error envelope otherwise. Domain
//	failures ride HTTP 200 so clients branch on code; TIMEOUT and
//	HOST_UNAVAILABLE, synthesized by the serializer, get 504 and 503.
//
// Thread Safety: safe for concurrent use once constructed.
type Dispatcher struct {
	exec    *hostexec.Serializer
	timeout time.Duration
	journal *journal.Journal
	metrics *telemetry.Metrics
}

// NewDispatcher creates a dispatcher running host work through exec with
// the given per-call timeout.
func NewDispatcher(exec *hostexec.Serializer, timeout time.Duration) *Dispatcher {
	return &Dispatcher{exec: exec, timeout: timeout}
}

// WithJournal records every dispatched operation in j.
func (d *Dispatcher) WithJournal(j *journal.Journal) *Dispatcher {
	d.journal = j
	return d
}

// WithMetrics records host call counts and latencies on m.
func (d *Dispatcher) WithMetrics(m *telemetry.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Call runs fn on the host thread and writes the normalized response.
// params becomes the journal entry's parameter map; nil is fine.
func (d *Dispatcher) Call(c *gin.Context, logger *slog.Logger, params map[string]any, fn hostexec.HostFunc) {
	start := time.Now()
	value, cerr := d.exec.Run(c.Request.Context(), d.timeout, fn)
	d.finish(c, logger, params, start, value, cerr, true)
}

// Direct runs fn on the request goroutine, with the same normalization
// and journaling as Call, for routes that never touch host state.
func (d *Dispatcher) Direct(c *gin.Context, logger *slog.Logger, params map[string]any, fn func(ctx context.Context) (any, *contract.Error)) {
	start := time.Now()
	value, cerr := fn(c.Request.Context())
	d.finish(c, logger, params, start, value, cerr, false)
}

func (d *Dispatcher) finish(c *gin.Context, logger *slog.Logger, params map[string]any, start time.Time, value any, cerr *contract.Error, hostCall bool) {
	elapsed := time.Since(start)
	op := c.FullPath()

	code := ""
	if cerr != nil {
		code = string(cerr.Code)
	}

	if d.journal != nil {
		d.journal.Record(journal.Entry{
			Kind:       journal.KindOperation,
			RequestID:  getOrCreateRequestID(c),
			Operation:  op,
			Params:     params,
			Code:       code,
			DurationMS: float64(elapsed.Microseconds()) / 1000.0,
		})
	}

	ctx := c.Request.Context()
	if d.metrics != nil && hostCall {
		attrs := metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("code", code),
		)
		d.metrics.HostCallsTotal.Add(ctx, 1, attrs)
		d.metrics.HostCallDuration.Record(ctx, elapsed.Seconds(), attrs)
	}

	if cerr != nil {
		logger.Error("Operation failed",
			"operation", op,
			"code", cerr.Code,
			"message", cerr.Message,
			"duration_ms", elapsed.Milliseconds(),
		)
		if d.metrics != nil {
			d.metrics.ErrorsTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("code", code)))
		}
		c.JSON(statusFor(cerr.Code), cerr.Envelope())
		return
	}

	logger.Info("Operation completed",
		"operation", op,
		"duration_ms", elapsed.Milliseconds(),
	)
	c.JSON(http.StatusOK, value)
}

// statusFor maps wire codes onto HTTP statuses. Domain failures stay 200
// so route-level 404/400 are never reused for missing-resource errors;
// only the serializer-synthesized infrastructure codes get transport
// statuses.
func statusFor(code contract.Code) int {
	switch code {
	case contract.CodeTimeout:
		return http.StatusGatewayTimeout
	case contract.CodeHostUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// ============================================================================
// BIND HELPERS
// ============================================================================

// bindFailure answers an unparseable or invalid request body with 400 and
// the INVALID_PARAMS envelope, before any host work is scheduled.
func bindFailure(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("Invalid request body", "error", err)
	cerr := contract.Errorf(contract.CodeInvalidParams, "invalid request: %v", err)
	c.JSON(http.StatusBadRequest, cerr.Envelope())
}

// requireQuery fetches a mandatory query parameter, answering 400 when it
// is absent.
func requireQuery(c *gin.Context, logger *slog.Logger, key string) (string, bool) {
	value := c.Query(key)
	if value == "" {
		logger.Warn("Missing required query parameter", "param", key)
		cerr := contract.Errorf(contract.CodeInvalidParams, "missing required parameter: %s", key)
		c.JSON(http.StatusBadRequest, cerr.Envelope())
		return "", false
	}
	return value, true
}

// nodePathQuery fetches and sanitizes a mandatory node path parameter.
func nodePathQuery(c *gin.Context, logger *slog.Logger, key string) (string, bool) {
	raw, ok := requireQuery(c, logger, key)
	if !ok {
		return "", false
	}
	path, err := sanitizedPath(c, logger, key, raw)
	if err != nil {
		return "", false
	}
	return path, true
}

// sanitizedPath normalizes an already-fetched node path value, answering
// 400 on syntactically invalid paths.
func sanitizedPath(c *gin.Context, logger *slog.Logger, key, raw string) (string, error) {
	clean, err := validation.SanitizeNodePath(raw)
	if err != nil {
		logger.Warn("Invalid node path parameter", "param", key, "error", err)
		cerr := contract.Errorf(contract.CodeInvalidParams, "invalid %s: %v", key, err)
		c.JSON(http.StatusBadRequest, cerr.Envelope())
		return "", err
	}
	return clean, nil
}

// intQuery parses an optional integer query parameter, answering 400 on
// garbage or negative values.
func intQuery(c *gin.Context, logger *slog.Logger, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		logger.Warn("Invalid integer query parameter", "param", key, "value", raw)
		cerr := contract.Errorf(contract.CodeInvalidParams, "invalid %s: %q", key, raw)
		c.JSON(http.StatusBadRequest, cerr.Envelope())
		if err == nil {
			err = strconv.ErrRange
		}
		return 0, err
	}
	return value, nil
}

// ============================================================================
// MIDDLEWARE
// ============================================================================

// RecoveryMiddleware converts handler panics into INTERNAL_ERROR envelopes
// so a syntactically valid request always receives well-formed JSON. Debug
// mode attaches the stack to the envelope context.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Recovered panic in handler",
					"request_id", getOrCreateRequestID(c),
					"path", c.Request.URL.Path,
					"panic", fmt.Sprint(r),
				)
				cerr := contract.Errorf(contract.CodeInternalError, "internal error: %v", r)
				if gin.Mode() == gin.DebugMode {
					cerr = cerr.WithContext("stack", string(debug.Stack()))
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, cerr.Envelope())
			}
		}()
		c.Next()
	}
}

// RateLimitMiddleware paces requests through limiter, waiting rather than
// rejecting so interactive clients keep their FIFO slot under load.
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limiter.Wait(c.Request.Context()); err != nil {
			cerr := contract.Errorf(contract.CodeHostUnavailable, "request abandoned while rate limited: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, cerr.Envelope())
			return
		}
		c.Next()
	}
}

// MetricsMiddleware records request counts and latencies per route.
func MetricsMiddleware(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.Int("status", c.Writer.Status()),
		)
		ctx := c.Request.Context()
		m.HTTPRequestsTotal.Add(ctx, 1, attrs)
		m.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

// NoRouteHandler answers unknown paths with the route-level NOT_FOUND
// code, which is never reused for missing-resource domain failures.
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cerr := contract.Errorf(contract.CodeNotFound, "unknown route: %s %s", c.Request.Method, c.Request.URL.Path)
		c.JSON(http.StatusNotFound, cerr.Envelope())
	}
}
