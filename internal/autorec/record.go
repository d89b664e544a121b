// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import "time"

const (
	// AnyChannel marks a rule that is not bound to a channel.
	AnyChannel int64 = -1
	// StartAnytime is the start-window sentinel meaning "no time restriction".
	StartAnytime int32 = -1
	// RootDirectory is never sent to the server, see BuildCreateOrUpdate.
	RootDirectory = "/"
)

// Kind tags the concrete rule flavour sharing SeriesBase.
type Kind int

const (
	KindAutorec Kind = iota // EPG search rule with weekday mask and start window
	KindTimerec             // fixed daily time window
)

func (k Kind) String() string {
	switch k {
	case KindAutorec:
		return "autorec"
	case KindTimerec:
		return "timerec"
	default:
		return "unknown"
	}
}

// SeriesBase holds the attributes shared by every repeating-recording rule.
type SeriesBase struct {
	Enabled    bool   `json:"enabled"`
	DaysOfWeek uint32 `json:"daysOfWeek"` // bit 0 = Monday
	Lifetime   uint32 `json:"removal"`
	Priority   uint32 `json:"priority"`
	Title      string `json:"title,omitempty"` // EPG search string for autorec rules
	Name       string `json:"name,omitempty"`
	Directory  string `json:"directory,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Creator    string `json:"creator,omitempty"`
	Channel    int64  `json:"channel"`
	ConfigUUID string `json:"configId,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// Record is the mirror of one server-side autorecord rule.
//
// ServerID is the store key and never changes. LocalID is assigned once when
// the record is created and is the handle handed to the presentation layer.
// Dirty is only meaningful during a resync pass.
type Record struct {
	ServerID string `json:"id"`
	LocalID  uint32 `json:"localId"`
	Kind     Kind   `json:"kind"`
	Dirty    bool   `json:"-"`

	SeriesBase

	StartWindowBegin int32  `json:"start"`       // minutes from midnight, inclusive
	StartWindowEnd   int32  `json:"startWindow"` // minutes from midnight, may cross midnight
	MarginStart      int64  `json:"startExtra"`  // minutes
	MarginEnd        int64  `json:"stopExtra"`   // minutes
	DupDetect        uint32 `json:"dupDetect"`
	Fulltext         bool   `json:"fulltext"`
	BroadcastType    uint32 `json:"broadcastType"`
	SeriesLink       string `json:"serieslinkUri,omitempty"`
}

func newRecord(serverID string, localID uint32) *Record {
	return &Record{
		ServerID: serverID,
		LocalID:  localID,
		Kind:     KindAutorec,
		SeriesBase: SeriesBase{
			Channel: AnyChannel,
		},
		StartWindowBegin: StartAnytime,
		StartWindowEnd:   StartAnytime,
	}
}

// DisplayName is the rule name, falling back to the search title when the
// rule was created on the server without one.
func (r *Record) DisplayName() string {
	if r.Name == "" {
		return r.Title
	}
	return r.Name
}

// TimeWindow is the daily window of a KindTimerec rule, in minutes from
// local midnight. StartAnytime in either bound means "any time".
type TimeWindow struct {
	Start int32 `json:"start"`
	Stop  int32 `json:"stop"`
}

// Bounds resolves the window against the day of now in loc. A bound equal to
// StartAnytime resolves to the zero time.
func (w TimeWindow) Bounds(now time.Time, loc *time.Location) (start, stop time.Time) {
	return MinutesToTime(w.Start, now, loc), MinutesToTime(w.Stop, now, loc)
}

// MinutesToTime places mins (minutes since midnight) on the calendar day of
// now in loc. StartAnytime yields the zero time.
func MinutesToTime(mins int32, now time.Time, loc *time.Location) time.Time {
	if mins == StartAnytime {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, int(mins/60), int(mins%60), 0, 0, loc)
}
