// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for htspsync.
//
// Precedence is ENV > YAML file > defaults. The Holder keeps the effective
// configuration, reloads it when the file changes and serves the live
// autorec preferences to the request builder.
package config
