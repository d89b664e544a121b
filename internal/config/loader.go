// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvDataDir             = "HTSPSYNC_DATA"
	EnvLogLevel            = "HTSPSYNC_LOG_LEVEL"
	EnvLogService          = "HTSPSYNC_LOG_SERVICE"
	EnvMetricsAddr         = "HTSPSYNC_METRICS_ADDR"
	EnvNATSURL             = "HTSPSYNC_NATS_URL"
	EnvNATSSubjectPrefix   = "HTSPSYNC_NATS_SUBJECT_PREFIX"
	EnvNATSRequestTimeout  = "HTSPSYNC_NATS_REQUEST_TIMEOUT"
	EnvNATSMaxReconnects   = "HTSPSYNC_NATS_MAX_RECONNECTS"
	EnvAutorecUseRegex     = "HTSPSYNC_AUTOREC_USE_REGEX"
	EnvSnapshotEnabled     = "HTSPSYNC_SNAPSHOT_ENABLED"
	EnvSnapshotPath        = "HTSPSYNC_SNAPSHOT_PATH"
	EnvSnapshotExportPath  = "HTSPSYNC_SNAPSHOT_EXPORT_PATH"
	EnvSnapshotMinInterval = "HTSPSYNC_SNAPSHOT_MIN_INTERVAL"
	EnvTracingEnabled      = "HTSPSYNC_TRACING_ENABLED"
	EnvTracingExporter     = "HTSPSYNC_TRACING_EXPORTER"
	EnvTracingEndpoint     = "HTSPSYNC_TRACING_ENDPOINT"
	EnvTracingSamplingRate = "HTSPSYNC_TRACING_SAMPLING_RATE"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Set defaults
	l.setDefaults(&cfg)

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Snapshot.Path != "" && !filepath.IsAbs(cfg.Snapshot.Path) {
		cfg.Snapshot.Path = filepath.Join(cfg.DataDir, cfg.Snapshot.Path)
	}
	if cfg.Snapshot.ExportPath != "" && !filepath.IsAbs(cfg.Snapshot.ExportPath) {
		cfg.Snapshot.ExportPath = filepath.Join(cfg.DataDir, cfg.Snapshot.ExportPath)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.Version = l.version
	cfg.DataDir = "/tmp/htspsync"
	cfg.LogLevel = "info"
	cfg.LogService = "htspsync"
	cfg.NATS = NATSConfig{
		URL:            "nats://127.0.0.1:4222",
		SubjectPrefix:  "htsp",
		ClientName:     "htspsync",
		RequestTimeout: 10 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  -1,
	}
	cfg.Snapshot = SnapshotConfig{
		Enabled:     true,
		Path:        "autorec.db",
		MinInterval: time.Second,
	}
	cfg.Tracing = TracingConfig{
		Exporter:     "grpc",
		Endpoint:     "localhost:4317",
		SamplingRate: 1.0,
	}
}

// LoadFileConfig loads a YAML config file without applying defaults or env overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	return NewLoader(path, "").loadFile(path)
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w or trailing content", ErrMultipleDocuments)
	}
	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.DataDir != "" {
		dst.DataDir = expandEnv(src.DataDir)
	}
	if src.LogLevel != "" {
		dst.LogLevel = strings.ToLower(src.LogLevel)
	}
	if src.Metrics != "" {
		dst.MetricsAddr = src.Metrics
	}
	if n := src.NATS; n != nil {
		if n.URL != "" {
			dst.NATS.URL = expandEnv(n.URL)
		}
		if n.SubjectPrefix != "" {
			dst.NATS.SubjectPrefix = n.SubjectPrefix
		}
		if n.ClientName != "" {
			dst.NATS.ClientName = n.ClientName
		}
		if n.RequestTimeout != "" {
			d, err := time.ParseDuration(n.RequestTimeout)
			if err != nil {
				return fmt.Errorf("nats.requestTimeout: %w", err)
			}
			dst.NATS.RequestTimeout = d
		}
		if n.ReconnectWait != "" {
			d, err := time.ParseDuration(n.ReconnectWait)
			if err != nil {
				return fmt.Errorf("nats.reconnectWait: %w", err)
			}
			dst.NATS.ReconnectWait = d
		}
		if n.MaxReconnects != nil {
			dst.NATS.MaxReconnects = *n.MaxReconnects
		}
	}
	if a := src.Autorec; a != nil {
		if a.UseRegex != nil {
			dst.Autorec.UseRegex = *a.UseRegex
		}
		if len(a.DVRConfigs) > 0 {
			dst.Autorec.DVRConfigs = append([]DVRConfig(nil), a.DVRConfigs...)
		}
	}
	if s := src.Snapshot; s != nil {
		if s.Enabled != nil {
			dst.Snapshot.Enabled = *s.Enabled
		}
		if s.Path != "" {
			dst.Snapshot.Path = expandEnv(s.Path)
		}
		if s.ExportPath != "" {
			dst.Snapshot.ExportPath = expandEnv(s.ExportPath)
		}
		if s.MinInterval != "" {
			d, err := time.ParseDuration(s.MinInterval)
			if err != nil {
				return fmt.Errorf("snapshot.minInterval: %w", err)
			}
			dst.Snapshot.MinInterval = d
		}
	}
	if t := src.Tracing; t != nil {
		if t.Enabled != nil {
			dst.Tracing.Enabled = *t.Enabled
		}
		if t.Exporter != "" {
			dst.Tracing.Exporter = t.Exporter
		}
		if t.Endpoint != "" {
			dst.Tracing.Endpoint = expandEnv(t.Endpoint)
		}
		if t.SamplingRate != nil {
			dst.Tracing.SamplingRate = *t.SamplingRate
		}
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = strings.ToLower(l.envString(EnvLogLevel, cfg.LogLevel))
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.MetricsAddr = l.envString(EnvMetricsAddr, cfg.MetricsAddr)
	cfg.NATS.URL = l.envString(EnvNATSURL, cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = l.envString(EnvNATSSubjectPrefix, cfg.NATS.SubjectPrefix)
	cfg.NATS.RequestTimeout = l.envDuration(EnvNATSRequestTimeout, cfg.NATS.RequestTimeout)
	cfg.NATS.MaxReconnects = l.envInt(EnvNATSMaxReconnects, cfg.NATS.MaxReconnects)
	cfg.Autorec.UseRegex = l.envBool(EnvAutorecUseRegex, cfg.Autorec.UseRegex)
	cfg.Snapshot.Enabled = l.envBool(EnvSnapshotEnabled, cfg.Snapshot.Enabled)
	cfg.Snapshot.Path = l.envString(EnvSnapshotPath, cfg.Snapshot.Path)
	cfg.Snapshot.ExportPath = l.envString(EnvSnapshotExportPath, cfg.Snapshot.ExportPath)
	cfg.Snapshot.MinInterval = l.envDuration(EnvSnapshotMinInterval, cfg.Snapshot.MinInterval)
	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSamplingRate, cfg.Tracing.SamplingRate)
}
