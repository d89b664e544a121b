// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

// TimerType identifies the repeating timer flavour shown to the front end.
type TimerType int

const (
	TimerRepeatingEPG        TimerType = iota + 1 // EPG search string rule
	TimerRepeatingSeriesLink                      // rule bound to a series link
	TimerRepeatingManual                          // time-window rule
)

// TimerState is the scheduling state shown to the front end.
type TimerState int

const (
	TimerStateScheduled TimerState = iota + 1
	TimerStateDisabled
)

// Timer is the presentation layer's view of a repeating rule. ClientIndex is
// the local id; zero means the rule is new.
type Timer struct {
	ClientIndex              uint32
	ClientChannelUID         int64 // AnyChannel for no binding
	Title                    string
	EPGSearchString          string
	Directory                string
	SeriesLink               string
	State                    TimerState
	Type                     TimerType
	Priority                 uint32
	Lifetime                 uint32
	PreventDuplicateEpisodes uint32
	Weekdays                 uint32
	MarginStart              int64
	MarginEnd                int64
	FullTextEPGSearch        bool
	CustomProperties         []CustomProperty
}

// CustomProperty is one extra rule attribute, opaque to the core.
type CustomProperty struct {
	Key   uint32
	Value any
}

// SettingDefinition describes a custom property to the front end.
type SettingDefinition struct {
	ID           uint32
	Name         string
	Type         string // "integer" | "string"
	DefaultValue any
	Values       []SettingValue
	ReadOnly     bool
}

// SettingValue is one allowed value of an enumerated custom property.
type SettingValue struct {
	Value       any
	Description string
}

// TimerFromRecord renders a record for the presentation layer.
func TimerFromRecord(r Record, props []CustomProperty) Timer {
	channel := r.Channel
	if channel <= 0 {
		channel = AnyChannel
	}
	state := TimerStateScheduled
	if !r.Enabled {
		state = TimerStateDisabled
	}
	typ := TimerRepeatingEPG
	if r.SeriesLink != "" {
		typ = TimerRepeatingSeriesLink
	}
	return Timer{
		ClientIndex:              r.LocalID,
		ClientChannelUID:         channel,
		Title:                    r.DisplayName(),
		EPGSearchString:          r.Title,
		Directory:                r.Directory,
		SeriesLink:               r.SeriesLink,
		State:                    state,
		Type:                     typ,
		Priority:                 r.Priority,
		Lifetime:                 r.Lifetime,
		PreventDuplicateEpisodes: r.DupDetect,
		Weekdays:                 r.DaysOfWeek,
		MarginStart:              r.MarginStart,
		MarginEnd:                r.MarginEnd,
		FullTextEPGSearch:        r.Fulltext,
		CustomProperties:         props,
	}
}
