// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bridge exposes a 3D host application's scene graph over a
// small JSON HTTP API.
//
// The service runs as a sidecar embedded in (or next to) the host
// process. Every scene operation funnels through one host executor, so
// the host only ever sees single-threaded access, while inspection,
// mutation, bulk extraction, and event streaming share the same HTTP
// surface. Domain failures travel as error envelopes with stable codes
// on 200 responses; only transport-level failures (bad requests,
// unknown routes, timeouts, an unavailable host) surface as non-200
// status codes.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/SceneBridge/services/bridge/events"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
	"github.com/AleutianAI/SceneBridge/services/bridge/hostexec"
	"github.com/AleutianAI/SceneBridge/services/bridge/journal"
	"github.com/AleutianAI/SceneBridge/services/bridge/stream"
	"github.com/AleutianAI/SceneBridge/services/bridge/telemetry"
	"github.com/AleutianAI/SceneBridge/services/bridge/transfer"
)

// Version is reported by /ping and stamped on telemetry.
const Version = "1.0.0"

// journalSink mirrors scene events into the journal alongside the
// operations that caused them.
type journalSink struct {
	j *journal.Journal
}

func (s journalSink) Record(e events.Event) {
	s.j.Record(journal.Entry{
		Kind:      journal.KindEvent,
		Operation: e.EventType,
		Params:    map[string]any{"scope": e.Scope, "path": e.Path},
	})
}

// BridgeServer owns the full service stack: the host executor, the
// event fan-out, the staging area, the journal, and the HTTP surface.
//
// Thread Safety: construct and Start from one goroutine; Stop and the
// accessors may be called from any goroutine afterwards.
type BridgeServer struct {
	cfg  ServiceConfig
	host host.Host

	exec     *hostexec.Serializer
	bus      *events.Bus
	observer *events.Observer
	watcher  *events.SceneWatcher
	hub      *stream.Hub
	influx   *events.InfluxSink
	manager  *transfer.Manager
	gc       *transfer.GCRunner
	journal  *journal.Journal

	metrics    *telemetry.Metrics
	queueGauge metric.Registration
	otelStop   func(context.Context) error

	dispatch  *Dispatcher
	handlers  *Handlers
	providers []RouteProvider

	router   *gin.Engine
	httpSrv  *http.Server
	listener net.Listener
	group    *errgroup.Group
	started  bool
}

// New assembles a server around h. Nothing runs until Start.
//
// Description:
//
//	Initializes telemetry, builds the host executor, the event bus with
//	its sinks (stream hub, journal, optional InfluxDB), the staging
//	manager, and the gin router with its middleware chain. Route
//	registration is deferred to Start so callers can mount auxiliary
//	RouteProviders in between.
//
// Inputs:
//
//	cfg - Service configuration, typically from LoadServiceConfig.
//	h - The scene host to serve.
//
// Errors:
//   - invalid configuration
//   - telemetry or metric initialization failures
//   - journal open failures (when journaling is enabled with a path)
func New(cfg ServiceConfig, h host.Host) (*BridgeServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if h == nil {
		return nil, errors.New("host is required")
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = Version
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	otelStop, err := telemetry.Init(context.Background(), tcfg)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	s := &BridgeServer{cfg: cfg, host: h, otelStop: otelStop}

	s.exec = hostexec.New(h, hostexec.Config{
		QueueSize:      cfg.QueueCapacity,
		DefaultTimeout: cfg.CallTimeout(),
	})

	meter := otel.Meter("scenebridge")
	s.metrics, err = telemetry.NewMetrics(meter)
	if err != nil {
		return nil, s.fail(fmt.Errorf("creating metrics: %w", err))
	}
	s.queueGauge, err = s.metrics.RegisterHostQueueDepth(meter, func() int64 {
		return int64(s.exec.QueueDepth())
	})
	if err != nil {
		return nil, s.fail(fmt.Errorf("registering queue gauge: %w", err))
	}

	if cfg.Journal.Enabled {
		s.journal, err = journal.Open(journal.Config{
			Path:     cfg.Journal.Dir,
			InMemory: cfg.Journal.Dir == "",
			TTL:      cfg.Journal.TTL(),
		})
		if err != nil {
			return nil, s.fail(fmt.Errorf("opening journal: %w", err))
		}
	}

	s.hub = stream.NewHub()
	sinks := []events.Sink{s.hub}
	if s.journal != nil {
		sinks = append(sinks, journalSink{s.journal})
	}
	if cfg.Influx.URL != "" {
		s.influx = events.NewInfluxSink(events.InfluxConfig{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		})
		sinks = append(sinks, s.influx)
	}
	s.bus = events.NewBus(events.NewQueue(cfg.EventCapacity), sinks...)
	s.observer = events.NewObserver(s.bus)

	s.manager = transfer.NewManager(transfer.Config{
		Dir:             cfg.StagingDir,
		TTL:             cfg.StagingTTL(),
		InlineThreshold: cfg.InlineThreshold,
	})
	if cfg.GCInterval() > 0 {
		s.gc, err = transfer.NewGCRunner(s.manager, cfg.GCInterval(), cfg.StagingTTL(), slog.Default())
		if err != nil {
			return nil, s.fail(fmt.Errorf("creating staging collector: %w", err))
		}
	}

	s.dispatch = NewDispatcher(s.exec, cfg.CallTimeout()).WithMetrics(s.metrics)
	if s.journal != nil {
		s.dispatch = s.dispatch.WithJournal(s.journal)
	}
	s.handlers = NewHandlers(s.dispatch).WithTransfer(s.manager).WithStream(s.hub)
	if s.journal != nil {
		s.handlers = s.handlers.WithJournal(s.journal)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(otelgin.Middleware("scenebridge"))
	router.Use(MetricsMiddleware(s.metrics))
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		router.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)))
	}
	router.NoRoute(NoRouteHandler())

	s.router = router
	s.httpSrv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// fail unwinds partially constructed state on a constructor error.
func (s *BridgeServer) fail(err error) error {
	if s.journal != nil {
		_ = s.journal.Close()
	}
	if s.queueGauge != nil {
		_ = s.queueGauge.Unregister()
	}
	if s.otelStop != nil {
		_ = s.otelStop(context.Background())
	}
	return err
}

// AddRouteProvider mounts an auxiliary route table next to the primary
// one. Providers added after Start are ignored with a warning, as the
// route tree is frozen once the server is serving.
func (s *BridgeServer) AddRouteProvider(p RouteProvider) {
	if s.started {
		slog.Warn("Ignoring route provider added after Start")
		return
	}
	s.providers = append(s.providers, p)
}

// Start begins serving on the configured address.
//
// Description:
//
//	Starts the host executor, the event observer, the staging
//	collector, and the optional scene file watcher, then registers the
//	route tables, binds the listener, and serves HTTP until Stop. Port
//	0 binds an ephemeral port; Addr reports the bound address. A scene
//	watcher that cannot be created is logged and skipped rather than
//	failing startup, since event delivery is advisory.
func (s *BridgeServer) Start(ctx context.Context) error {
	if s.started {
		return errors.New("server already started")
	}

	s.exec.Start()
	s.observer.Start(s.host)
	if s.gc != nil {
		s.gc.Start()
	}
	if s.cfg.WatchScene && s.cfg.ScenePath != "" {
		watcher, err := events.NewSceneWatcher(s.bus, s.cfg.ScenePath)
		if err != nil {
			slog.Warn("Scene watcher unavailable", "path", s.cfg.ScenePath, "error", err)
		} else {
			s.watcher = watcher
		}
	}

	RegisterRoutes(s.router.Group("/"), s.handlers, s.providers...)

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln
	s.started = true

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	s.group = g

	slog.Info("SceneBridge listening",
		"addr", ln.Addr().String(),
		"version", Version,
		"watch_scene", s.watcher != nil)
	return nil
}

// Stop shuts the stack down. The HTTP listener closes first so no new
// work arrives, then the event fan-out and background loops, and
// finally the executor, stores, and telemetry.
func (s *BridgeServer) Stop(ctx context.Context) error {
	var errs []error
	if s.started {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	s.hub.Close()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scene watcher: %w", err))
		}
	}
	s.observer.Stop()
	if s.gc != nil {
		s.gc.Stop()
	}
	if err := s.exec.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("host executor: %w", err))
	}
	if s.influx != nil {
		s.influx.Close()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if s.queueGauge != nil {
		if err := s.queueGauge.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("queue gauge: %w", err))
		}
	}
	if s.otelStop != nil {
		if err := s.otelStop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until the serve loop exits.
func (s *BridgeServer) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

// Addr reports the bound listen address, empty before Start.
func (s *BridgeServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Dispatcher exposes the dispatcher for auxiliary route providers.
func (s *BridgeServer) Dispatcher() *Dispatcher { return s.dispatch }

// Transfer exposes the staging manager for auxiliary route providers.
func (s *BridgeServer) Transfer() *transfer.Manager { return s.manager }

// Bus exposes the event bus for auxiliary route providers.
func (s *BridgeServer) Bus() *events.Bus { return s.bus }
