// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/htspsync/internal/config"
	"github.com/ManuGH/htspsync/internal/customprops"
	xglog "github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/session"
	"github.com/ManuGH/htspsync/internal/snapshot"
	"github.com/ManuGH/htspsync/internal/telemetry"
	"github.com/ManuGH/htspsync/internal/transport/natsconn"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// holderProfiles serves DVR profiles from the live configuration.
type holderProfiles struct{ h *config.Holder }

func (p holderProfiles) Profiles() []customprops.Profile {
	return profilesFrom(p.h.Get())
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the server and keep the rule mirror in sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, config.NewHolder(cfg, loader, path))
		},
	}
}

func run(ctx context.Context, holder *config.Holder) error {
	cfg := holder.Get()
	logger := xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "tracing.shutdown_failed").Msg("dropping unexported spans")
		}
	}()

	var store *snapshot.SQLiteStore
	if cfg.Snapshot.Enabled {
		store, err = snapshot.OpenSQLite(ctx, cfg.Snapshot.Path)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer func() { _ = store.Close() }()
	}
	var saver snapshotSaver
	if store != nil {
		saver = store
	}
	p := newPersister(saver, cfg.Snapshot.ExportPath, cfg.Snapshot.MinInterval)

	conn, err := natsconn.Dial(natsconn.Config{
		URL:            cfg.NATS.URL,
		SubjectPrefix:  cfg.NATS.SubjectPrefix,
		ClientName:     cfg.NATS.ClientName,
		RequestTimeout: cfg.NATS.RequestTimeout,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		MaxReconnects:  cfg.NATS.MaxReconnects,
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	sess := session.New(conn, holder, customprops.ForAutorec(holderProfiles{holder}),
		session.WithSyncHook(p.Offer))

	if store != nil {
		records, err := store.Load(ctx)
		if err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "snapshot.load_failed").Msg("starting with an empty mirror")
		} else {
			sess.Restore(records)
		}
	}

	if err := conn.Attach(sess); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error {
		if err := holder.StartWatcher(gctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_failed").Msg("config hot reload disabled")
		}
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr) })
	}

	logger.Info().
		Str(xglog.FieldEvent, "daemon.started").
		Str(xglog.FieldURL, cfg.NATS.URL).
		Str("subject_prefix", cfg.NATS.SubjectPrefix).
		Msg("htspsync running")

	<-gctx.Done()
	logger.Info().Str(xglog.FieldEvent, "daemon.stopping").Int(xglog.FieldCount, sess.Count()).Msg("shutting down")
	holder.Stop()
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
