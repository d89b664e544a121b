// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command htspsync mirrors the autorecord rules of an HTSP-style DVR server.
package main

import (
	"fmt"
	"os"

	"github.com/ManuGH/htspsync/internal/config"
	"github.com/ManuGH/htspsync/internal/customprops"
	xglog "github.com/ManuGH/htspsync/internal/log"
	"github.com/spf13/cobra"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "htspsync",
		Short:         "Mirror DVR autorecord rules over NATS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config file (YAML)")
	root.PersistentFlags().String("log-level", "", "override the configured log level")

	root.AddCommand(newRunCmd(), newReplayCmd(), newVerifyCmd(), newVersionCmd())
	return root
}

func main() {
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "htspsync",
		Version: version,
	})

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "htspsync:", err)
		os.Exit(1)
	}
}

// loadConfig applies ENV > file > defaults and reconfigures the logger.
func loadConfig(cmd *cobra.Command) (config.AppConfig, *config.Loader, string, error) {
	path, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, nil, path, fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	logger := xglog.WithComponent("cli")
	if path != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str(xglog.FieldPath, path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}
	return cfg, loader, path, nil
}

func profilesFrom(cfg config.AppConfig) customprops.StaticProfiles {
	out := make(customprops.StaticProfiles, 0, len(cfg.Autorec.DVRConfigs))
	for _, dc := range cfg.Autorec.DVRConfigs {
		out = append(out, customprops.Profile{UUID: dc.UUID, Name: dc.Name})
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}
