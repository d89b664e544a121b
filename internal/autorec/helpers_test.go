// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/rs/zerolog"
)

// addEvent returns a complete autorecEntryAdd payload for id.
func addEvent(id string) htsp.Message {
	return htsp.Message{
		htsp.FieldID:          id,
		htsp.FieldEnabled:     int64(1),
		htsp.FieldRemoval:     int64(30),
		htsp.FieldDaysOfWeek:  int64(127),
		htsp.FieldPriority:    int64(2),
		htsp.FieldStart:       int64(-1),
		htsp.FieldStartWindow: int64(-1),
		htsp.FieldStartExtra:  int64(0),
		htsp.FieldStopExtra:   int64(0),
		htsp.FieldDupDetect:   int64(0),
		htsp.FieldTitle:       "News",
	}
}

// logSink captures JSON log lines.
type logSink struct {
	buf bytes.Buffer
}

func (s *logSink) logger() zerolog.Logger {
	return zerolog.New(&s.buf).Level(zerolog.TraceLevel)
}

// count returns the number of lines logged at level.
func (s *logSink) count(t *testing.T, level string) int {
	t.Helper()
	n := 0
	for _, line := range strings.Split(strings.TrimSpace(s.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if entry["level"] == level {
			n++
		}
	}
	return n
}

func newTestStore(sink *logSink) *Store {
	if sink == nil {
		return NewStore(NewSequence(), zerolog.Nop())
	}
	return NewStore(NewSequence(), sink.logger())
}
