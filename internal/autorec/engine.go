// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import (
	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/metrics"
	"github.com/rs/zerolog"
)

// Engine applies inbound server events to a Store.
//
// Per connection epoch the caller must invoke MarkAllStale before the first
// rule event and CompleteResync after the server signals the end of its
// initial sync. The engine does not check that order.
type Engine struct {
	store  *Store
	logger zerolog.Logger
}

// NewEngine returns an engine bound to store.
func NewEngine(store *Store, logger zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// MarkAllStale flags every record dirty ahead of a full resync.
func (e *Engine) MarkAllStale() {
	e.store.MarkAllDirty()
	e.logger.Debug().
		Str(log.FieldEvent, "autorec.resync_begin").
		Int(log.FieldCount, e.store.Count()).
		Msg("marked all autorec entries stale")
}

// CompleteResync removes every record the server did not re-announce.
func (e *Engine) CompleteResync() int {
	purged := e.store.RemoveDirty()
	metrics.AddAutorecResyncPurged(purged)
	metrics.SetAutorecRules(e.store.Count())
	e.logger.Info().
		Str(log.FieldEvent, "autorec.resync_complete").
		Int(log.FieldPurged, purged).
		Int(log.FieldCount, e.store.Count()).
		Msg("autorec resync completed")
	return purged
}

// creationField is a field the server guarantees on autorecEntryAdd.
type creationField struct {
	name  string
	apply func(htsp.Message, *Record) bool
}

// creationFields are checked in wire order; the first missing one aborts.
var creationFields = []creationField{
	{htsp.FieldEnabled, func(m htsp.Message, r *Record) bool {
		v, ok := m.U32(htsp.FieldEnabled)
		if ok {
			r.Enabled = v != 0
		}
		return ok
	}},
	{htsp.FieldRemoval, func(m htsp.Message, r *Record) bool {
		v, ok := m.U32(htsp.FieldRemoval)
		if ok {
			r.Lifetime = v
		}
		return ok
	}},
	{htsp.FieldDaysOfWeek, func(m htsp.Message, r *Record) bool {
		v, ok := m.U32(htsp.FieldDaysOfWeek)
		if ok {
			r.DaysOfWeek = v
		}
		return ok
	}},
	{htsp.FieldPriority, func(m htsp.Message, r *Record) bool {
		v, ok := m.U32(htsp.FieldPriority)
		if ok {
			r.Priority = v
		}
		return ok
	}},
	{htsp.FieldStart, func(m htsp.Message, r *Record) bool {
		v, ok := m.S32(htsp.FieldStart)
		if ok {
			r.StartWindowBegin = v
		}
		return ok
	}},
	{htsp.FieldStartWindow, func(m htsp.Message, r *Record) bool {
		v, ok := m.S32(htsp.FieldStartWindow)
		if ok {
			r.StartWindowEnd = v
		}
		return ok
	}},
	{htsp.FieldStartExtra, func(m htsp.Message, r *Record) bool {
		v, ok := m.S64(htsp.FieldStartExtra)
		if ok {
			r.MarginStart = v
		}
		return ok
	}},
	{htsp.FieldStopExtra, func(m htsp.Message, r *Record) bool {
		v, ok := m.S64(htsp.FieldStopExtra)
		if ok {
			r.MarginEnd = v
		}
		return ok
	}},
	{htsp.FieldDupDetect, func(m htsp.Message, r *Record) bool {
		v, ok := m.U32(htsp.FieldDupDetect)
		if ok {
			r.DupDetect = v
		}
		return ok
	}},
}

// ApplyAddOrUpdate upserts the rule described by msg. With forCreation set,
// a missing creation field fails the event with ErrMalformedMessage; fields
// applied before the missing one stay applied and the record stays in the
// store.
func (e *Engine) ApplyAddOrUpdate(msg htsp.Message, forCreation bool) error {
	op := htsp.MethodAutorecEntryUpdate
	if forCreation {
		op = htsp.MethodAutorecEntryAdd
	}

	id, ok := msg.Str(htsp.FieldID)
	if !ok || id == "" {
		return e.reject(&SyncError{Sentinel: ErrMalformedMessage, Op: op, Field: htsp.FieldID})
	}

	rec, created := e.store.InsertOrUpdate(id)
	rec.Dirty = false
	if created {
		metrics.SetAutorecRules(e.store.Count())
	}

	for _, f := range creationFields {
		if !f.apply(msg, rec) && forCreation {
			return e.reject(&SyncError{Sentinel: ErrMalformedMessage, Op: op, Field: f.name, ServerID: id})
		}
	}

	if v, ok := msg.Str(htsp.FieldTitle); ok {
		rec.Title = v
	}
	if v, ok := msg.Str(htsp.FieldName); ok {
		rec.Name = v
	}
	if v, ok := msg.Str(htsp.FieldDirectory); ok {
		rec.Directory = v
	}
	if v, ok := msg.Str(htsp.FieldOwner); ok {
		rec.Owner = v
	}
	if v, ok := msg.Str(htsp.FieldCreator); ok {
		rec.Creator = v
	}
	// An absent channel means "any channel", also on update.
	if v, ok := msg.U32(htsp.FieldChannel); ok {
		rec.Channel = int64(v)
	} else {
		rec.Channel = AnyChannel
	}
	if v, ok := msg.U32(htsp.FieldFulltext); ok {
		rec.Fulltext = v != 0
	}
	if v, ok := msg.Str(htsp.FieldSeriesLinkURI); ok {
		rec.SeriesLink = v
	}
	if v, ok := msg.U32(htsp.FieldBroadcastType); ok {
		rec.BroadcastType = v
	}
	if v, ok := msg.Str(htsp.FieldConfigID); ok {
		rec.ConfigUUID = v
	}
	if v, ok := msg.Str(htsp.FieldComment); ok {
		rec.Comment = v
	}

	metrics.IncAutorecEvent(op, "applied")
	e.logger.Trace().
		Str(log.FieldMethod, op).
		Str(log.FieldServerID, id).
		Uint32(log.FieldLocalID, rec.LocalID).
		Msg("autorec entry applied")
	return nil
}

// ApplyDelete removes the rule named by msg. Deleting an unknown id succeeds.
func (e *Engine) ApplyDelete(msg htsp.Message) error {
	id, ok := msg.Str(htsp.FieldID)
	if !ok {
		return e.reject(&SyncError{Sentinel: ErrMalformedMessage, Op: htsp.MethodAutorecEntryDelete, Field: htsp.FieldID})
	}
	e.logger.Trace().Str(log.FieldServerID, id).Msg("delete autorec entry")

	e.store.Remove(id)
	metrics.SetAutorecRules(e.store.Count())
	metrics.IncAutorecEvent(htsp.MethodAutorecEntryDelete, "applied")
	return nil
}

func (e *Engine) reject(err *SyncError) error {
	metrics.IncAutorecEvent(err.Op, "rejected")
	ev := e.logger.Error().
		Str(log.FieldEvent, "autorec.malformed_event").
		Str(log.FieldMethod, err.Op).
		Str(log.FieldField, err.Field)
	if err.ServerID != "" {
		ev = ev.Str(log.FieldServerID, err.ServerID)
	}
	ev.Msgf("malformed %s: '%s' missing", err.Op, err.Field)
	return err
}
