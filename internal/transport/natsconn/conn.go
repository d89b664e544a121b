// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package natsconn carries HTSP-style request/response traffic and server
// events over NATS.
//
// Requests go to "<prefix>.req.<method>" and are answered via NATS
// request/reply. Server events arrive on the single subject
// "<prefix>.events" so that their order is preserved; each event carries its
// method name in the "method" field.
package natsconn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/ManuGH/htspsync/internal/log"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ErrAlreadyAttached is returned by Attach when called twice.
var ErrAlreadyAttached = errors.New("natsconn: handler already attached")

// EventHandler consumes connection lifecycle and inbound events.
type EventHandler interface {
	Connected()
	Dispatch(method string, msg htsp.Message) error
}

// Config describes the NATS connection.
type Config struct {
	URL            string
	SubjectPrefix  string
	ClientName     string
	RequestTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int // -1 = unlimited
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "htsp"
	}
	if c.ClientName == "" {
		c.ClientName = "htspsync"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	return c
}

// Conn is a NATS-backed transport.
type Conn struct {
	cfg    Config
	nc     *nats.Conn
	logger zerolog.Logger

	mu          sync.Mutex
	handler     EventHandler
	sub         *nats.Subscription
	initialDone bool // first epoch started, by Attach or the connect callback
}

// Dial connects to NATS. No events are consumed until Attach is called.
func Dial(cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()
	c := &Conn{
		cfg:    cfg,
		logger: log.WithComponent("natsconn"),
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		// Covers a first connect that only succeeded after retrying.
		nats.ConnectHandler(func(_ *nats.Conn) {
			c.startInitialEpoch()
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn().Err(err).Str(log.FieldEvent, "natsconn.disconnected").Msg("connection lost")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info().
				Str(log.FieldEvent, "natsconn.reconnected").
				Str(log.FieldURL, nc.ConnectedUrlRedacted()).
				Msg("connection re-established")
			c.startEpoch()
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.logger.Info().Str(log.FieldEvent, "natsconn.closed").Msg("connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.nc = nc
	return c, nil
}

// Attach subscribes handler to server events and starts the first epoch.
func (c *Conn) Attach(handler EventHandler) error {
	c.mu.Lock()
	if c.handler != nil {
		c.mu.Unlock()
		return ErrAlreadyAttached
	}
	sub, err := c.nc.Subscribe(c.subject("events"), c.onEvent)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("subscribe events: %w", err)
	}
	c.handler = handler
	c.sub = sub
	c.mu.Unlock()

	if c.nc.IsConnected() {
		c.startInitialEpoch()
	}
	return nil
}

// startInitialEpoch runs the first epoch exactly once, whichever of Attach
// and the connect callback gets there first.
func (c *Conn) startInitialEpoch() {
	c.mu.Lock()
	if c.handler == nil || c.initialDone {
		c.mu.Unlock()
		return
	}
	c.initialDone = true
	c.mu.Unlock()
	c.startEpoch()
}

// startEpoch marks the mirror stale and then asks the server for a full
// state stream. The order matters: no event of the new epoch may be applied
// before Connected has run.
func (c *Conn) startEpoch() {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return
	}
	h.Connected()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()
	if _, err := c.SendAndWait(ctx, htsp.MethodEnableAsyncMetadata, htsp.NewMessage()); err != nil {
		c.logger.Error().Err(err).
			Str(log.FieldEvent, "natsconn.sync_request_failed").
			Msg("failed to request initial sync")
	}
}

func (c *Conn) onEvent(m *nats.Msg) {
	msg, err := htsp.Decode(m.Data)
	if err != nil {
		c.logger.Error().Err(err).Str(log.FieldEvent, "natsconn.decode_failed").Msg("dropping undecodable event")
		return
	}
	method, _ := msg.Str(htsp.FieldMethod)

	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return
	}
	if err := h.Dispatch(method, msg); err != nil {
		c.logger.Debug().Err(err).Str(log.FieldMethod, method).Msg("event rejected")
	}
}

// SendAndWait publishes a request and waits for the reply. Without a
// deadline on ctx the configured request timeout applies. The trace context
// of ctx travels in the NATS message headers.
func (c *Conn) SendAndWait(ctx context.Context, method string, msg htsp.Message) (htsp.Message, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	data, err := htsp.Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("natsconn: encode %s: %w", method, err)
	}
	req := nats.NewMsg(c.subject("req", method))
	req.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	reply, err := c.nc.RequestMsgWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("natsconn: %s: %w", method, err)
	}
	resp, err := htsp.Decode(reply.Data)
	if err != nil {
		return nil, fmt.Errorf("natsconn: decode %s response: %w", method, err)
	}
	return resp, nil
}

// Close drains the event subscription and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	c.nc.Close()
	return nil
}

func (c *Conn) subject(parts ...string) string {
	s := c.cfg.SubjectPrefix
	for _, p := range parts {
		s += "." + p
	}
	return s
}
