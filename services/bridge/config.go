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
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig configures the bridge service.
//
// Durations are expressed in whole seconds (hours for the journal) so the
// YAML form stays plain integers.
type ServiceConfig struct {
	// Host is the interface the HTTP listener binds. The bridge is an
	// unauthenticated local sidecar; anything beyond loopback exposes
	// scene control to the network.
	// Default: "127.0.0.1"
	Host string `yaml:"host" validate:"required"`

	// Port is the TCP port the listener binds. Port 0 picks a free port.
	// Default: 8765
	Port int `yaml:"port" validate:"min=0,max=65535"`

	// CallTimeoutSeconds bounds how long a request waits for the host
	// thread before failing with TIMEOUT.
	// Default: 30
	CallTimeoutSeconds int `yaml:"call_timeout_seconds" validate:"min=1"`

	// QueueCapacity is the host work queue size. Submissions beyond it
	// fail with HOST_UNAVAILABLE instead of blocking.
	// Default: 1000
	QueueCapacity int `yaml:"queue_capacity" validate:"min=1"`

	// EventCapacity is the invalidation queue size. The oldest event is
	// evicted when a push finds the queue full.
	// Default: 1000
	EventCapacity int `yaml:"event_capacity" validate:"min=1"`

	// StagingDir is where bulk results too large for inline JSON are
	// written.
	// Default: <os.TempDir()>/scenebridge_staging
	StagingDir string `yaml:"staging_dir" validate:"required"`

	// StagingTTLSeconds is how long staged files live before the
	// collector may delete them.
	// Default: 300
	StagingTTLSeconds int `yaml:"staging_ttl_seconds" validate:"min=1"`

	// GCIntervalSeconds is how often the staging collector sweeps. Zero
	// disables the background sweep; the gc command still works.
	// Default: 60
	GCIntervalSeconds int `yaml:"gc_interval_seconds" validate:"min=0"`

	// InlineThreshold is the estimated byte size at which attribute
	// reads switch from inline JSON to staged binary files.
	// Default: 1000000
	InlineThreshold int `yaml:"inline_threshold" validate:"min=1"`

	// ScenePath is the scene file reported by the reference host and
	// watched for external saves. Optional.
	ScenePath string `yaml:"scene_path"`

	// WatchScene turns on-disk writes to ScenePath into hip_saved
	// events. Ignored while ScenePath is empty.
	// Default: false
	WatchScene bool `yaml:"watch_scene"`

	// RateLimitRPS caps sustained requests per second. Excess requests
	// wait their turn rather than fail. Zero disables limiting.
	// Default: 0
	RateLimitRPS float64 `yaml:"rate_limit_rps" validate:"min=0"`

	// RateLimitBurst is the burst allowance when limiting is enabled.
	// Default: 10
	RateLimitBurst int `yaml:"rate_limit_burst" validate:"min=0"`

	// Journal configures the operation journal behind /journal/recent.
	Journal JournalConfig `yaml:"journal"`

	// Influx configures the optional event time-series sink. Disabled
	// while URL is empty.
	Influx InfluxConfig `yaml:"influx"`

	// Telemetry selects trace and metric exporters.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// LogLevel is one of debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat is "json" or "text".
	// Default: "json"
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`
}

// JournalConfig configures the badger-backed operation journal.
type JournalConfig struct {
	// Enabled turns journaling on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Dir is the journal database directory. Empty selects an in-memory
	// journal that does not survive restarts.
	Dir string `yaml:"dir"`

	// TTLHours is how long entries are retained.
	// Default: 24
	TTLHours int `yaml:"ttl_hours" validate:"min=1"`
}

// InfluxConfig configures the event time-series sink.
type InfluxConfig struct {
	// URL is the InfluxDB endpoint. Empty disables the sink.
	URL string `yaml:"url" validate:"omitempty,url"`

	// Token authenticates writes. Prefer SCENEBRIDGE_INFLUX_TOKEN over
	// putting the token in the file.
	Token string `yaml:"token"`

	// Org is the InfluxDB organization.
	Org string `yaml:"org"`

	// Bucket receives the event points.
	Bucket string `yaml:"bucket"`
}

// TelemetryConfig selects exporters for traces and metrics.
type TelemetryConfig struct {
	// TraceExporter is one of otlp, stdout, none.
	// Default: "none"
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`

	// MetricExporter is one of prometheus, stdout, none. The prometheus
	// exporter serves scrapes on the bridge's own /metrics route.
	// Default: "prometheus"
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`

	// OTLPEndpoint is the collector address for the otlp exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// DefaultServiceConfig returns sensible defaults for a workstation sidecar.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Host:               "127.0.0.1",
		Port:               8765,
		CallTimeoutSeconds: 30,
		QueueCapacity:      1000,
		EventCapacity:      1000,
		StagingDir:         filepath.Join(os.TempDir(), "scenebridge_staging"),
		StagingTTLSeconds:  300,
		GCIntervalSeconds:  60,
		InlineThreshold:    1_000_000,
		RateLimitRPS:       0,
		RateLimitBurst:     10,
		Journal: JournalConfig{
			Enabled:  true,
			TTLHours: 24,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadServiceConfig builds the effective configuration: defaults, then an
// optional YAML file, then SCENEBRIDGE_* environment overrides.
//
// Inputs:
//   - path: YAML file path; empty skips the file layer
//
// Errors:
//   - unreadable file, invalid YAML, or a constraint violation
func LoadServiceConfig(path string) (ServiceConfig, error) {
	cfg := DefaultServiceConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *ServiceConfig) applyEnvOverrides() {
	if v := os.Getenv("SCENEBRIDGE_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("SCENEBRIDGE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("SCENEBRIDGE_STAGING_DIR"); v != "" {
		c.StagingDir = v
	}
	if v := os.Getenv("SCENEBRIDGE_SCENE_PATH"); v != "" {
		c.ScenePath = v
	}
	if v := os.Getenv("SCENEBRIDGE_INFLUX_URL"); v != "" {
		c.Influx.URL = v
	}
	if v := os.Getenv("SCENEBRIDGE_INFLUX_TOKEN"); v != "" {
		c.Influx.Token = v
	}
	if v := os.Getenv("SCENEBRIDGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SCENEBRIDGE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

// Validate checks the configuration against its declared constraints.
func (c *ServiceConfig) Validate() error {
	return validate.Struct(c)
}

// Addr is the listen address in host:port form.
func (c *ServiceConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CallTimeout is the per-call host deadline.
func (c *ServiceConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// StagingTTL is the staged file lifetime.
func (c *ServiceConfig) StagingTTL() time.Duration {
	return time.Duration(c.StagingTTLSeconds) * time.Second
}

// GCInterval is the staging sweep cadence; zero disables the loop.
func (c *ServiceConfig) GCInterval() time.Duration {
	return time.Duration(c.GCIntervalSeconds) * time.Second
}

// TTL is the journal entry lifetime.
func (c *JournalConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}
