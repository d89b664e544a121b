// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// restoreGlobals puts back the tracer provider and propagator after a test
// that installs its own.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestNewProvider_Disabled(t *testing.T) {
	restoreGlobals(t)

	p, err := NewProvider(context.Background(), Config{ExporterType: ExporterGRPC})
	require.NoError(t, err)
	assert.Nil(t, p.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "htspsync", ExporterType: "kafka"})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: kafka (supported: grpc, http)", err.Error())
}

func TestNewProvider_EnabledInstallsRecordingProvider(t *testing.T) {
	for _, exporter := range []string{ExporterHTTP, ExporterGRPC} {
		t.Run(exporter, func(t *testing.T) {
			restoreGlobals(t)

			// Exporters connect lazily, so an unused endpoint is fine here.
			p, err := NewProvider(context.Background(), Config{
				Enabled:      true,
				ServiceName:  "htspsync",
				ExporterType: exporter,
				Endpoint:     "127.0.0.1:1",
				SamplingRate: 1,
			})
			require.NoError(t, err)
			require.NotNil(t, p.tp)

			_, span := otel.Tracer("test").Start(context.Background(), "recorded")
			assert.True(t, span.IsRecording())
			span.End()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}

func TestProvider_ShutdownNil(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestRequestAttributes(t *testing.T) {
	attrs := RequestAttributes("addAutorecEntry", "req-1", 4)
	require.Len(t, attrs, 3)
	assert.Equal(t, "addAutorecEntry", attrs[0].Value.AsString())
	assert.Equal(t, int64(4), attrs[2].Value.AsInt64())
}
