// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/htspsync/internal/autorec"
	xglog "github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/snapshot"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// snapshotSaver is the subset of snapshot.SQLiteStore the persister needs.
type snapshotSaver interface {
	Save(ctx context.Context, records []autorec.Record) error
}

// persister writes the mirror after each completed sync. Offers never block
// the event path; only the most recent pending mirror is written, and writes
// are spaced by the limiter when one is set.
type persister struct {
	store      snapshotSaver // may be nil
	exportPath string        // may be empty
	limiter    *rate.Limiter // nil writes every offer
	logger     zerolog.Logger

	mu      sync.Mutex
	pending []autorec.Record
	has     bool
	notify  chan struct{}
}

func newPersister(store snapshotSaver, exportPath string, minInterval time.Duration) *persister {
	p := &persister{
		store:      store,
		exportPath: exportPath,
		logger:     xglog.WithComponent("persist"),
		notify:     make(chan struct{}, 1),
	}
	if minInterval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return p
}

// Offer is a session.SyncHook.
func (p *persister) Offer(records []autorec.Record) {
	p.mu.Lock()
	p.pending = records
	p.has = true
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *persister) take() ([]autorec.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.pending, p.has
	p.pending, p.has = nil, false
	return r, ok
}

// Run writes offered mirrors until ctx is cancelled, then flushes what is left.
func (p *persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if records, ok := p.take(); ok {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				p.write(flushCtx, records)
				cancel()
			}
			return nil
		case <-p.notify:
			if ctx.Err() != nil {
				continue // flushed by the Done branch with a fresh context
			}
			// Offers arriving while we wait replace the pending mirror.
			if p.limiter != nil && p.limiter.Wait(ctx) != nil {
				continue
			}
			if records, ok := p.take(); ok {
				p.write(ctx, records)
			}
		}
	}
}

func (p *persister) write(ctx context.Context, records []autorec.Record) {
	if p.store != nil {
		if err := p.store.Save(ctx, records); err != nil {
			p.logger.Error().Err(err).Str(xglog.FieldEvent, "persist.save_failed").Msg("failed to save autorec snapshot")
		}
	}
	if p.exportPath != "" {
		if err := snapshot.WriteJSON(ctx, p.exportPath, records); err != nil {
			p.logger.Error().Err(err).
				Str(xglog.FieldEvent, "persist.export_failed").
				Str(xglog.FieldPath, p.exportPath).
				Msg("failed to export autorec rules")
		}
	}
}
