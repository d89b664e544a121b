// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/htspsync/internal/validate"
)

// minRequestTimeout bounds how short a request/reply round trip may be configured.
const minRequestTimeout = 100 * time.Millisecond

// Validate checks a fully merged AppConfig and reports every failure at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("LogLevel", cfg.LogLevel)
	v.Directory("DataDir", cfg.DataDir, false)

	v.URL("NATS.URL", cfg.NATS.URL, []string{"nats", "tls", "ws", "wss"})
	v.SubjectToken("NATS.SubjectPrefix", cfg.NATS.SubjectPrefix)
	v.MinDuration("NATS.RequestTimeout", cfg.NATS.RequestTimeout, minRequestTimeout)
	v.MinDuration("NATS.ReconnectWait", cfg.NATS.ReconnectWait, 0)
	v.AtLeast("NATS.MaxReconnects", cfg.NATS.MaxReconnects, -1)

	uuids := make([]string, len(cfg.Autorec.DVRConfigs))
	for i, dc := range cfg.Autorec.DVRConfigs {
		uuids[i] = dc.UUID
	}
	v.UniqueKeys("Autorec.DVRConfigs", uuids)

	if cfg.MetricsAddr != "" {
		v.ListenAddr("MetricsAddr", cfg.MetricsAddr)
	}
	if cfg.Snapshot.Enabled {
		v.NotEmpty("Snapshot.Path", cfg.Snapshot.Path)
		v.MinDuration("Snapshot.MinInterval", cfg.Snapshot.MinInterval, 0)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		v.Fraction("Tracing.SamplingRate", cfg.Tracing.SamplingRate)
	}

	return v.Err()
}
