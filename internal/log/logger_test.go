// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWithComponentAnnotatesEntries(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "svc-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("autorec")
	l.Info().Str(FieldServerID, "a1").Msg("rule added")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry[FieldComponent] != "autorec" {
		t.Errorf("expected component autorec, got %v", entry[FieldComponent])
	}
	if entry["service"] != "svc-test" {
		t.Errorf("expected service svc-test, got %v", entry["service"])
	}
	if entry["version"] != "v0.0.1" {
		t.Errorf("expected version v0.0.1, got %v", entry["version"])
	}
	if entry[FieldServerID] != "a1" {
		t.Errorf("expected server_id a1, got %v", entry[FieldServerID])
	}
}

func TestConfigureIgnoresInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "not-a-level", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Base()
	l.Debug().Msg("hidden")
	l.Info().Msg("visible")

	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Fatalf("expected exactly one info line, got %q", buf.String())
	}
}

func TestConfigureFallsBackToEnvironment(t *testing.T) {
	t.Setenv("HTSPSYNC_LOG_LEVEL", "warn")
	t.Setenv("HTSPSYNC_LOG_SERVICE", "env-svc")
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Base()
	l.Info().Msg("hidden")
	l.Warn().Msg("visible")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["service"] != "env-svc" {
		t.Errorf("expected service env-svc, got %v", entry["service"])
	}
	if entry["message"] != "visible" {
		t.Errorf("expected only the warn line, got %q", buf.String())
	}
}
