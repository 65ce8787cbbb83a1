// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxConfig holds connection settings for the event recorder.
type InfluxConfig struct {
	// URL of the InfluxDB instance, e.g. http://localhost:8086.
	URL string

	// Token authorizes writes to the bucket.
	Token string

	// Org is the InfluxDB organization.
	Org string

	// Bucket receives scene_events points.
	Bucket string
}

// InfluxSink records invalidation events as InfluxDB points for offline
// analysis of edit sessions.
//
// Record never blocks: points are handed to a writer goroutine through
// a bounded buffer and dropped with a warning when the buffer is full.
type InfluxSink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking

	points    chan *write.Point
	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

const influxSinkBuffer = 256

// NewInfluxSink connects to InfluxDB and starts the writer goroutine.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	s := newInfluxSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket))
	s.client = client
	return s
}

// NewInfluxSinkWithAPI builds a sink over an existing write API. Used
// by tests to substitute a mock.
func NewInfluxSinkWithAPI(w api.WriteAPIBlocking) *InfluxSink {
	return newInfluxSink(w)
}

func newInfluxSink(w api.WriteAPIBlocking) *InfluxSink {
	s := &InfluxSink{
		write:  w,
		points: make(chan *write.Point, influxSinkBuffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Record queues one event for writing.
func (s *InfluxSink) Record(e Event) {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	p := influxdb2.NewPoint(
		"scene_events",
		map[string]string{
			"event_type": e.EventType,
			"scope":      e.Scope,
		},
		map[string]interface{}{
			"path": e.Path,
		},
		time.Unix(sec, nsec),
	)

	select {
	case s.points <- p:
	case <-s.stopCh:
	default:
		slog.Warn("InfluxDB sink buffer full, dropping event",
			"event_type", e.EventType,
			"path", e.Path)
	}
}

// Close stops the writer and releases the client.
func (s *InfluxSink) Close() {
	s.closeOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	if s.client != nil {
		s.client.Close()
	}
}

func (s *InfluxSink) writeLoop() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			// Flush whatever is still buffered before exiting.
			for {
				select {
				case p := <-s.points:
					s.writePoint(p)
				default:
					return
				}
			}
		case p := <-s.points:
			s.writePoint(p)
		}
	}
}

func (s *InfluxSink) writePoint(p *write.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.write.WritePoint(ctx, p); err != nil {
		slog.Warn("Failed to write event to InfluxDB", "error", err)
	}
}
