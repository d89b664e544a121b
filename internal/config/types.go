// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective configuration after defaults, file and env.
type AppConfig struct {
	Version    string
	DataDir    string
	LogLevel   string
	LogService string
	// MetricsAddr is the listen address of the Prometheus endpoint; empty disables it.
	MetricsAddr string

	NATS     NATSConfig
	Autorec  AutorecConfig
	Snapshot SnapshotConfig
	Tracing  TracingConfig
}

// NATSConfig configures the transport.
type NATSConfig struct {
	URL            string
	SubjectPrefix  string
	ClientName     string
	RequestTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// AutorecConfig holds user preferences for autorec rules.
type AutorecConfig struct {
	// UseRegex sends EPG search strings unescaped, as regular expressions.
	UseRegex   bool
	DVRConfigs []DVRConfig
}

// DVRConfig names a server-side DVR profile selectable per rule.
type DVRConfig struct {
	UUID string `yaml:"uuid"`
	Name string `yaml:"name"`
}

// SnapshotConfig controls persistence of the mirror between runs.
type SnapshotConfig struct {
	Enabled bool
	Path    string // sqlite database; relative paths resolve against DataDir
	// ExportPath, when set, receives a JSON copy of the mirror after every sync.
	ExportPath string
	// MinInterval spaces consecutive snapshot writes; zero writes every sync.
	MinInterval time.Duration
}

// TracingConfig configures the OTLP exporter for request spans.
type TracingConfig struct {
	Enabled      bool
	Exporter     string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
}

// FileConfig is the YAML file schema. Pointers distinguish "unset" from zero.
type FileConfig struct {
	Version  string             `yaml:"version,omitempty"`
	DataDir  string             `yaml:"dataDir,omitempty"`
	LogLevel string             `yaml:"logLevel,omitempty"`
	Metrics  string             `yaml:"metricsAddr,omitempty"`
	NATS     *FileNATSConfig    `yaml:"nats,omitempty"`
	Autorec  *FileAutorecConfig `yaml:"autorec,omitempty"`
	Snapshot *FileSnapshot      `yaml:"snapshot,omitempty"`
	Tracing  *FileTracing       `yaml:"tracing,omitempty"`
}

type FileNATSConfig struct {
	URL            string `yaml:"url,omitempty"`
	SubjectPrefix  string `yaml:"subjectPrefix,omitempty"`
	ClientName     string `yaml:"clientName,omitempty"`
	RequestTimeout string `yaml:"requestTimeout,omitempty"`
	ReconnectWait  string `yaml:"reconnectWait,omitempty"`
	MaxReconnects  *int   `yaml:"maxReconnects,omitempty"`
}

type FileAutorecConfig struct {
	UseRegex   *bool       `yaml:"useRegex,omitempty"`
	DVRConfigs []DVRConfig `yaml:"dvrConfigs,omitempty"`
}

type FileSnapshot struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`
	Path        string `yaml:"path,omitempty"`
	ExportPath  string `yaml:"exportPath,omitempty"`
	MinInterval string `yaml:"minInterval,omitempty"`
}

type FileTracing struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
