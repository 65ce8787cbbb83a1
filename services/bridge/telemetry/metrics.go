// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the scene bridge.
//
// Description:
//
//	Provides standard counters, histograms, and gauges for HTTP
//	requests, serialized host calls, geometry staging, and event
//	delivery. All metrics use the "bridge_" prefix for consistent
//	naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// --- Host Metrics ---

	// HostCallsTotal counts serialized host calls by operation and code.
	HostCallsTotal metric.Int64Counter

	// HostCallDuration records host call duration in seconds.
	HostCallDuration metric.Float64Histogram

	// HostQueueDepth tracks pending jobs on the host executor.
	// Registered separately via RegisterHostQueueDepth.
	HostQueueDepth metric.Int64ObservableGauge

	// --- Transfer Metrics ---

	// StagedFilesTotal counts files written to the staging directory.
	StagedFilesTotal metric.Int64Counter

	// StagedBytesTotal counts bytes written to the staging directory.
	StagedBytesTotal metric.Int64Counter

	// --- Event Metrics ---

	// EventsPublishedTotal counts invalidation events by event type.
	EventsPublishedTotal metric.Int64Counter

	// --- Error Metrics ---

	// ErrorsTotal counts total errors by code and component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
//
// Description:
//
//	Registers all pre-defined metrics with the provided meter.
//	Returns an error if any metric registration fails.
//
// Inputs:
//
//	meter - The OTel meter to use for metric registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with all counters and histograms initialized.
//	error - Non-nil if metric registration fails.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- HTTP Metrics ---
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"bridge_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"bridge_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	// --- Host Metrics ---
	m.HostCallsTotal, err = meter.Int64Counter(
		"bridge_host_calls_total",
		metric.WithDescription("Total serialized host calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create host_calls_total: %w", err)
	}

	m.HostCallDuration, err = meter.Float64Histogram(
		"bridge_host_call_duration_seconds",
		metric.WithDescription("Host call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create host_call_duration: %w", err)
	}

	// --- Transfer Metrics ---
	m.StagedFilesTotal, err = meter.Int64Counter(
		"bridge_staged_files_total",
		metric.WithDescription("Files written to the staging directory"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create staged_files_total: %w", err)
	}

	m.StagedBytesTotal, err = meter.Int64Counter(
		"bridge_staged_bytes_total",
		metric.WithDescription("Bytes written to the staging directory"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create staged_bytes_total: %w", err)
	}

	// --- Event Metrics ---
	m.EventsPublishedTotal, err = meter.Int64Counter(
		"bridge_events_published_total",
		metric.WithDescription("Invalidation events published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events_published_total: %w", err)
	}

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"bridge_errors_total",
		metric.WithDescription("Total errors by code and component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RegisterHostQueueDepth registers a callback for the host queue gauge.
//
// Description:
//
//	Sets up an observable gauge that reports how many jobs are waiting
//	on the host executor. The callback is invoked each time metrics are
//	scraped.
//
// Inputs:
//
//	meter - The OTel meter to use for registration.
//	depthFunc - A function that returns the current queue depth.
//
// Outputs:
//
//	metric.Registration - Registration handle for cleanup.
//	error - Non-nil if registration fails.
func (m *Metrics) RegisterHostQueueDepth(meter metric.Meter, depthFunc func() int64) (metric.Registration, error) {
	var err error
	m.HostQueueDepth, err = meter.Int64ObservableGauge(
		"bridge_host_queue_depth",
		metric.WithDescription("Jobs waiting on the host executor"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create host_queue_depth: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.HostQueueDepth, depthFunc())
		return nil
	}, m.HostQueueDepth)
}
