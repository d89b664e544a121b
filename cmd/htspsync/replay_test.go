// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/htspsync/internal/autorec"
	"github.com/ManuGH/htspsync/internal/customprops"
	"github.com/ManuGH/htspsync/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSettings bool

func (s staticSettings) AutorecUseRegex() bool { return bool(s) }

const addA1 = `{"method":"autorecEntryAdd","id":"a1","enabled":1,"removal":30,"daysOfWeek":127,"priority":2,"start":-1,"startWindow":-1,"startExtra":0,"stopExtra":0,"dupDetect":0,"title":"News"}`

const addB2 = `{"method":"autorecEntryAdd","id":"b2","enabled":0,"removal":0,"daysOfWeek":31,"priority":1,"start":1200,"startWindow":1380,"startExtra":5,"stopExtra":10,"dupDetect":1,"title":"Star Trek","name":"Trek","channel":42}`

func newReplaySession() *session.Session {
	return session.New(offlineTransport{}, staticSettings(false), customprops.ForAutorec(nil))
}

func TestReplayEvents_AppliesStream(t *testing.T) {
	s := newReplaySession()
	s.Connected()

	in := strings.Join([]string{
		addA1,
		addB2,
		"",
		`{"method":"autorecEntryAdd","id":"c3","enabled":1}`,
		`not json`,
		`{"method":"initialSyncCompleted"}`,
		`{"method":"autorecEntryDelete","id":"a1"}`,
		`{"method":"somethingElse"}`,
	}, "\n")

	st, err := replayEvents(strings.NewReader(in), s)
	require.NoError(t, err)

	assert.Equal(t, replayStats{Lines: 7, Applied: 5, Rejected: 1, Invalid: 1}, st)
	assert.False(t, s.Syncing())

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "b2", recs[0].ServerID)
	assert.Equal(t, int64(42), recs[0].Channel)
	// c3 was created before its missing field was found.
	assert.Equal(t, "c3", recs[1].ServerID)
}

func TestReplayEvents_ConnectedMarkerPurgesStale(t *testing.T) {
	s := newReplaySession()
	s.Connected()

	in := strings.Join([]string{
		addA1,
		addB2,
		`{"method":"initialSyncCompleted"}`,
		`{"method":"connected"}`,
		addB2,
		`{"method":"initialSyncCompleted"}`,
	}, "\n")

	_, err := replayEvents(strings.NewReader(in), s)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), s.Epoch())
	recs := s.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "b2", recs[0].ServerID)
	assert.Equal(t, uint32(2), recs[0].LocalID)
}

func TestReplayEvents_OutboundFailsOffline(t *testing.T) {
	s := newReplaySession()
	err := s.AddAutorec(context.Background(), autorec.Timer{Title: "x", EPGSearchString: "x"})
	require.Error(t, err)
	assert.Equal(t, autorec.ResultServerError, autorec.ResultOf(err))
}

func TestPrintRules(t *testing.T) {
	s := newReplaySession()
	s.Connected()
	_, err := replayEvents(strings.NewReader(addA1+"\n"+addB2+"\n"), s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, s.Records()))
	out := buf.String()
	assert.Contains(t, out, "SERVER ID")
	assert.Contains(t, out, "20:00-23:00")
	assert.Contains(t, out, "Trek")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
}

func TestReplayCmd_ExportAndJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HTSPSYNC_DATA", dir)
	events := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(events, []byte(addA1+"\n"+addB2+"\n"), 0o600))
	export := filepath.Join(dir, "rules.json")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"replay", "--json", "--export", export, events})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), `"Title": "News"`)
	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count": 2`)
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), version))
}
