// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import (
	"context"

	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/metrics"
	"github.com/rs/zerolog"
)

// AutoRecordings ties the mirror, the sync engine and the request path
// together for one server connection.
//
// It is not safe for concurrent use. The owning session must serialize
// inbound event hooks against outbound requests.
type AutoRecordings struct {
	settings Settings
	conn     Sender
	props    CustomProps
	store    *Store
	engine   *Engine
	builder  *RequestBuilder
	logger   zerolog.Logger
}

// Option configures AutoRecordings.
type Option func(*options)

type options struct {
	ids    IDAllocator
	logger *zerolog.Logger
}

// WithIDAllocator injects the local id source, mainly for tests.
func WithIDAllocator(ids IDAllocator) Option {
	return func(o *options) { o.ids = ids }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// New builds the facade. props may be nil.
func New(settings Settings, conn Sender, props CustomProps, opts ...Option) *AutoRecordings {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.WithComponent("autorec")
	if o.logger != nil {
		logger = *o.logger
	}
	if props == nil {
		props = noCustomProps{}
	}

	store := NewStore(o.ids, logger)
	return &AutoRecordings{
		settings: settings,
		conn:     conn,
		props:    props,
		store:    store,
		engine:   NewEngine(store, logger),
		builder:  NewRequestBuilder(store, props),
		logger:   logger,
	}
}

// Store exposes the underlying mirror to the owner.
func (a *AutoRecordings) Store() *Store {
	return a.store
}

// RebuildState starts a resync: every known rule becomes stale until the
// server re-announces it.
func (a *AutoRecordings) RebuildState() {
	a.engine.MarkAllStale()
}

// SyncCompleted drops rules the server did not re-announce.
func (a *AutoRecordings) SyncCompleted() int {
	return a.engine.CompleteResync()
}

// ParseAddOrUpdate applies an autorecEntryAdd (add=true) or
// autorecEntryUpdate event.
func (a *AutoRecordings) ParseAddOrUpdate(msg htsp.Message, add bool) error {
	return a.engine.ApplyAddOrUpdate(msg, add)
}

// ParseDelete applies an autorecEntryDelete event.
func (a *AutoRecordings) ParseDelete(msg htsp.Message) error {
	return a.engine.ApplyDelete(msg)
}

// Count returns the number of mirrored rules.
func (a *AutoRecordings) Count() int {
	return a.store.Count()
}

// Timers renders every rule, in insertion order.
func (a *AutoRecordings) Timers() []Timer {
	records := a.store.All()
	out := make([]Timer, 0, len(records))
	for _, r := range records {
		out = append(out, TimerFromRecord(r, a.props.Properties(r)))
	}
	return out
}

// LocalIDFor returns the handle for serverID, or 0 when unknown.
func (a *AutoRecordings) LocalIDFor(serverID string) uint32 {
	return a.store.LocalIDFor(serverID)
}

// ServerIDFor returns the server id for a handle, or "" when unknown.
func (a *AutoRecordings) ServerIDFor(localID uint32) string {
	return a.store.ServerIDFor(localID)
}

// CustomSettingDefinitions lists the custom properties the front end may edit.
func (a *AutoRecordings) CustomSettingDefinitions() []SettingDefinition {
	return a.props.SettingDefinitions()
}

// Add asks the server to create a rule. The mirror changes only when the
// server announces the new rule.
func (a *AutoRecordings) Add(ctx context.Context, t Timer) error {
	return a.sendAddOrUpdate(ctx, t, false)
}

// Update asks the server to change the rule behind t.ClientIndex.
func (a *AutoRecordings) Update(ctx context.Context, t Timer) error {
	return a.sendAddOrUpdate(ctx, t, true)
}

// Delete asks the server to delete the rule behind t.ClientIndex.
func (a *AutoRecordings) Delete(ctx context.Context, t Timer) error {
	msg, err := a.builder.BuildDelete(t)
	if err != nil {
		metrics.IncAutorecRequest(htsp.MethodDeleteAutorecEntry, ResultOf(err).String())
		return err
	}
	return a.roundTrip(ctx, htsp.MethodDeleteAutorecEntry, msg)
}

func (a *AutoRecordings) sendAddOrUpdate(ctx context.Context, t Timer, update bool) error {
	useRegex := a.settings != nil && a.settings.AutorecUseRegex()
	method, msg, err := a.builder.BuildCreateOrUpdate(t, update, useRegex)
	if err != nil {
		metrics.IncAutorecRequest(method, ResultOf(err).String())
		return err
	}
	return a.roundTrip(ctx, method, msg)
}

func (a *AutoRecordings) roundTrip(ctx context.Context, method string, msg htsp.Message) error {
	resp, sendErr := a.conn.SendAndWait(ctx, method, msg)
	err := InterpretResponse(log.WithContext(ctx, a.logger), method, resp, sendErr)
	metrics.IncAutorecRequest(method, ResultOf(err).String())
	if err != nil {
		l := log.WithContext(ctx, a.logger)
		l.Warn().
			Err(err).
			Str(log.FieldEvent, "autorec.request_failed").
			Str(log.FieldMethod, method).
			Msg("autorec request failed")
	}
	return err
}
