// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package natsconn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/htspsync/internal/autorec"
	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/ManuGH/htspsync/internal/session"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("nats server not ready")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

// fakeDVR answers requests on "<prefix>.req.>" and publishes events the way
// the real server does after enableAsyncMetadata.
type fakeDVR struct {
	t      *testing.T
	nc     *nats.Conn
	prefix string

	mu       sync.Mutex
	rules    []string
	requests []string
	nextID   int
}

func startFakeDVR(t *testing.T, url, prefix string, rules ...string) *fakeDVR {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	d := &fakeDVR{t: t, nc: nc, prefix: prefix, rules: rules, nextID: 100}
	_, err = nc.Subscribe(prefix+".req.>", d.handle)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	t.Cleanup(nc.Close)
	return d
}

func (d *fakeDVR) publish(msg htsp.Message) {
	data, err := htsp.Encode(msg)
	assert.NoError(d.t, err)
	assert.NoError(d.t, d.nc.Publish(d.prefix+".events", data))
}

func ruleEvent(method, id string) htsp.Message {
	return htsp.Message{
		htsp.FieldMethod:      method,
		htsp.FieldID:          id,
		htsp.FieldEnabled:     1,
		htsp.FieldRemoval:     30,
		htsp.FieldDaysOfWeek:  127,
		htsp.FieldPriority:    2,
		htsp.FieldStart:       -1,
		htsp.FieldStartWindow: -1,
		htsp.FieldStartExtra:  0,
		htsp.FieldStopExtra:   0,
		htsp.FieldDupDetect:   0,
		htsp.FieldTitle:       "News",
	}
}

func (d *fakeDVR) handle(m *nats.Msg) {
	method := m.Subject[len(d.prefix+".req."):]
	req, err := htsp.Decode(m.Data)
	assert.NoError(d.t, err)

	d.mu.Lock()
	d.requests = append(d.requests, method)
	rules := append([]string(nil), d.rules...)
	d.mu.Unlock()

	reply := htsp.Message{htsp.FieldSuccess: 1}
	data, _ := htsp.Encode(reply)
	assert.NoError(d.t, m.Respond(data))

	switch method {
	case htsp.MethodEnableAsyncMetadata:
		for _, id := range rules {
			d.publish(ruleEvent(htsp.MethodAutorecEntryAdd, id))
		}
		d.publish(htsp.Message{htsp.FieldMethod: htsp.MethodInitialSyncCompleted})
	case htsp.MethodAddAutorecEntry:
		d.mu.Lock()
		d.nextID++
		id := fmt.Sprintf("r%d", d.nextID)
		d.rules = append(d.rules, id)
		d.mu.Unlock()
		d.publish(ruleEvent(htsp.MethodAutorecEntryAdd, id))
	case htsp.MethodDeleteAutorecEntry:
		id, _ := req.Str(htsp.FieldID)
		d.publish(htsp.Message{htsp.FieldMethod: htsp.MethodAutorecEntryDelete, htsp.FieldID: id})
	}
}

func (d *fakeDVR) requestCount(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, m := range d.requests {
		if m == method {
			n++
		}
	}
	return n
}

type noRegex struct{}

func (noRegex) AutorecUseRegex() bool { return false }

func TestConn_SessionEndToEnd(t *testing.T) {
	ns := runServer(t)
	dvr := startFakeDVR(t, ns.ClientURL(), "tvh", "a1", "b2")

	conn, err := Dial(Config{URL: ns.ClientURL(), SubjectPrefix: "tvh", RequestTimeout: 2 * time.Second})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	synced := make(chan int, 4)
	sess := session.New(conn, noRegex{}, nil,
		session.WithLogger(zerolog.Nop()),
		session.WithSyncHook(func(r []autorec.Record) { synced <- len(r) }))
	require.NoError(t, conn.Attach(sess))

	select {
	case n := <-synced:
		assert.Equal(t, 2, n)
	case <-time.After(5 * time.Second):
		t.Fatal("initial sync did not complete")
	}
	assert.Equal(t, 1, dvr.requestCount(htsp.MethodEnableAsyncMetadata))
	assert.Equal(t, uint64(1), sess.Epoch())

	require.NoError(t, sess.AddAutorec(context.Background(), autorec.Timer{Title: "Trek", EPGSearchString: "Trek"}))
	assert.Eventually(t, func() bool { return sess.Count() == 3 }, 5*time.Second, 10*time.Millisecond)

	local := sess.LocalIDFor("a1")
	require.NotZero(t, local)
	require.NoError(t, sess.DeleteAutorec(context.Background(), autorec.Timer{ClientIndex: local}))
	assert.Eventually(t, func() bool { return sess.Count() == 2 }, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, conn.Attach(sess), ErrAlreadyAttached)
}

func TestConn_SendAndWaitTimeout(t *testing.T) {
	ns := runServer(t)

	conn, err := Dial(Config{URL: ns.ClientURL(), RequestTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// Nobody serves the request subject.
	_, err = conn.SendAndWait(context.Background(), htsp.MethodAddAutorecEntry, htsp.NewMessage())
	require.Error(t, err)

	s := session.New(conn, noRegex{}, nil, session.WithLogger(zerolog.Nop()))
	err = s.AddAutorec(context.Background(), autorec.Timer{})
	assert.Equal(t, autorec.ResultServerError, autorec.ResultOf(err))
}

type recordingHandler struct {
	mu      sync.Mutex
	methods []string
}

func (h *recordingHandler) Connected() {}

func (h *recordingHandler) Dispatch(method string, _ htsp.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.methods = append(h.methods, method)
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.methods...)
}

func TestConn_DropsUndecodableEvents(t *testing.T) {
	ns := runServer(t)
	conn, err := Dial(Config{URL: ns.ClientURL(), RequestTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	h := &recordingHandler{}
	require.NoError(t, conn.Attach(h))

	pub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.Publish("htsp.events", []byte("garbage")))
	require.NoError(t, pub.Publish("htsp.events", []byte(`{"method":"autorecEntryDelete","id":"x"}`)))
	require.NoError(t, pub.Flush())

	assert.Eventually(t, func() bool { return len(h.seen()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{htsp.MethodAutorecEntryDelete}, h.seen())
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, nats.DefaultURL, c.URL)
	assert.Equal(t, "htsp", c.SubjectPrefix)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, -1, c.MaxReconnects)
	assert.Equal(t, "htsp.req.addAutorecEntry", (&Conn{cfg: c}).subject("req", htsp.MethodAddAutorecEntry))
}

func TestConn_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	ns := runServer(t)
	srv, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer srv.Close()

	headers := make(chan nats.Header, 1)
	_, err = srv.Subscribe("htsp.req."+htsp.MethodDeleteAutorecEntry, func(m *nats.Msg) {
		headers <- m.Header
		assert.NoError(t, m.Respond([]byte(`{"success":1}`)))
	})
	require.NoError(t, err)
	require.NoError(t, srv.Flush())

	conn, err := Dial(Config{URL: ns.ClientURL(), RequestTimeout: 2 * time.Second})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "delete")
	defer span.End()

	resp, err := conn.SendAndWait(ctx, htsp.MethodDeleteAutorecEntry, htsp.Message{htsp.FieldID: "a"})
	require.NoError(t, err)
	success, _ := resp.U32(htsp.FieldSuccess)
	assert.Equal(t, uint32(1), success)

	h := <-headers
	traceparent := http.Header(h).Get("Traceparent")
	require.NotEmpty(t, traceparent)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}
