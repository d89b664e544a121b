// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session owns the autorec mirror for one server connection and
// serializes the two paths that touch it: inbound event dispatch driven by
// the transport, and outbound requests driven by the presentation layer.
package session

import (
	"context"
	"sync"

	"github.com/ManuGH/htspsync/internal/autorec"
	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/metrics"
	"github.com/ManuGH/htspsync/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ManuGH/htspsync/internal/session"

// Transport sends one request and blocks until the matching response
// arrives. It must not call back into the Session while doing so.
type Transport interface {
	SendAndWait(ctx context.Context, method string, msg htsp.Message) (htsp.Message, error)
}

// SyncHook receives a copy of the mirror after every completed resync.
type SyncHook func(records []autorec.Record)

// Session is the single owner of the mirror.
//
// Go mutexes are not re-entrant, so mu is taken exactly once at each public
// entry point and held across the whole outbound round trip. Inbound events
// that arrive meanwhile wait on mu, which keeps them ordered after the
// request that was in flight.
type Session struct {
	mu      sync.Mutex
	conn    Transport
	ar      *autorec.AutoRecordings
	logger  zerolog.Logger
	tracer  trace.Tracer
	epoch   uint64
	syncing bool
	onSync  SyncHook
	arOpts  []autorec.Option
}

// Option configures a Session.
type Option func(*Session)

// WithSyncHook registers fn to run after each completed resync, outside the lock.
func WithSyncHook(fn SyncHook) Option {
	return func(s *Session) { s.onSync = fn }
}

// WithLogger overrides the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTracer overrides the otel tracer, which defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithAutorecOptions passes options through to autorec.New.
func WithAutorecOptions(opts ...autorec.Option) Option {
	return func(s *Session) { s.arOpts = append(s.arOpts, opts...) }
}

// New creates a session over conn.
func New(conn Transport, settings autorec.Settings, props autorec.CustomProps, opts ...Option) *Session {
	s := &Session{
		conn:   conn,
		logger: log.WithComponent("session"),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ar = autorec.New(settings, lockedSender{s}, props, s.arOpts...)
	return s
}

// Connected starts a new connection epoch. It must run before the first
// event of the epoch is dispatched.
func (s *Session) Connected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.syncing = true
	s.ar.RebuildState()
	metrics.IncSessionEpoch()
	s.logger.Info().
		Str(log.FieldEvent, "session.connected").
		Uint64(log.FieldEpoch, s.epoch).
		Msg("connection epoch started, awaiting initial sync")
}

// Dispatch applies one inbound server event. Unknown methods are ignored.
// A malformed event is reported through the returned error and leaves the
// rest of the stream unaffected.
func (s *Session) Dispatch(method string, msg htsp.Message) error {
	var snapshot []autorec.Record

	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch method {
		case htsp.MethodAutorecEntryAdd:
			return s.ar.ParseAddOrUpdate(msg, true)
		case htsp.MethodAutorecEntryUpdate:
			return s.ar.ParseAddOrUpdate(msg, false)
		case htsp.MethodAutorecEntryDelete:
			return s.ar.ParseDelete(msg)
		case htsp.MethodInitialSyncCompleted:
			s.ar.SyncCompleted()
			s.syncing = false
			if s.onSync != nil {
				snapshot = s.ar.Store().All()
			}
			return nil
		default:
			metrics.IncAutorecEvent(method, "ignored")
			s.logger.Debug().Str(log.FieldMethod, method).Msg("ignoring unhandled server event")
			return nil
		}
	}()

	if snapshot != nil {
		s.onSync(snapshot)
	}
	return err
}

// Syncing reports whether the current epoch still awaits initialSyncCompleted.
func (s *Session) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// Epoch returns the number of connection epochs seen so far.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Restore seeds the mirror from a persisted snapshot. Restored rules are
// stale until the server re-announces them.
func (s *Session) Restore(records []autorec.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.ar.Store()
	for _, r := range records {
		store.Restore(r)
	}
	store.MarkAllDirty()
	metrics.SetAutorecRules(store.Count())
	s.logger.Info().
		Str(log.FieldEvent, "session.restored").
		Int(log.FieldCount, len(records)).
		Msg("restored autorec mirror from snapshot")
}

// Records returns a copy of the mirror in insertion order.
func (s *Session) Records() []autorec.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.Store().All()
}

// Timers renders every rule for the presentation layer.
func (s *Session) Timers() []autorec.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.Timers()
}

// Count returns the number of mirrored rules.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.Count()
}

// LocalIDFor returns the handle for serverID, or 0 when unknown.
func (s *Session) LocalIDFor(serverID string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.LocalIDFor(serverID)
}

// ServerIDFor returns the server id for a handle, or "" when unknown.
func (s *Session) ServerIDFor(localID uint32) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.ServerIDFor(localID)
}

// CustomSettingDefinitions lists the editable custom properties.
func (s *Session) CustomSettingDefinitions() []autorec.SettingDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.CustomSettingDefinitions()
}

// AddAutorec asks the server to create a rule.
func (s *Session) AddAutorec(ctx context.Context, t autorec.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.Add(ctx, t)
}

// UpdateAutorec asks the server to change a rule.
func (s *Session) UpdateAutorec(ctx context.Context, t autorec.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.Update(ctx, t)
}

// DeleteAutorec asks the server to delete a rule.
func (s *Session) DeleteAutorec(ctx context.Context, t autorec.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ar.Delete(ctx, t)
}

// lockedSender is handed to the facade; it runs with s.mu already held.
type lockedSender struct {
	s *Session
}

func (l lockedSender) SendAndWait(ctx context.Context, method string, msg htsp.Message) (htsp.Message, error) {
	s := l.s
	if ctx == nil {
		ctx = context.Background()
	}
	requestID := uuid.New().String()
	ctx = log.ContextWithRequestID(ctx, requestID)
	ctx = log.ContextWithEpoch(ctx, s.epoch)

	ctx, span := s.tracer.Start(ctx, "htsp."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.RequestAttributes(method, requestID, s.epoch)...))
	defer span.End()

	logger := log.WithContext(ctx, s.logger)
	logger.Debug().Str(log.FieldMethod, method).Msg("sending request")

	resp, err := s.conn.SendAndWait(ctx, method, msg)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case resp == nil:
		span.SetStatus(codes.Error, "no response")
	default:
		span.SetStatus(codes.Ok, "")
	}
	return resp, err
}
