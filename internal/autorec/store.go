// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import (
	"github.com/ManuGH/htspsync/internal/log"
	"github.com/rs/zerolog"
)

// Store is the insertion-ordered set of mirrored rules, keyed by server id.
//
// Store performs no locking. Every method must be called by the single owner
// of the mirror (see session.Session), which serializes inbound events and
// outbound requests.
type Store struct {
	ids     IDAllocator
	logger  zerolog.Logger
	order   []string
	records map[string]*Record
}

// NewStore creates an empty store. A nil allocator selects a fresh Sequence.
func NewStore(ids IDAllocator, logger zerolog.Logger) *Store {
	if ids == nil {
		ids = NewSequence()
	}
	return &Store{
		ids:     ids,
		logger:  logger,
		records: make(map[string]*Record),
	}
}

// InsertOrUpdate returns the record for serverID, creating it with a new
// local id when it is not known yet. The returned pointer stays valid until
// the record is removed.
func (s *Store) InsertOrUpdate(serverID string) (rec *Record, created bool) {
	if rec, ok := s.records[serverID]; ok {
		return rec, false
	}
	rec = newRecord(serverID, s.ids.Next())
	s.records[serverID] = rec
	s.order = append(s.order, serverID)
	return rec, true
}

// Restore inserts a previously persisted record under a fresh local id.
// Local ids are process scoped, so the persisted one is discarded.
func (s *Store) Restore(r Record) *Record {
	rec, _ := s.InsertOrUpdate(r.ServerID)
	localID := rec.LocalID
	*rec = r
	rec.LocalID = localID
	return rec
}

// Remove deletes the record for serverID. Removing an unknown id is a no-op.
func (s *Store) Remove(serverID string) bool {
	if _, ok := s.records[serverID]; !ok {
		return false
	}
	delete(s.records, serverID)
	for i, id := range s.order {
		if id == serverID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// FindByServerID returns the record stored under serverID.
func (s *Store) FindByServerID(serverID string) (*Record, bool) {
	rec, ok := s.records[serverID]
	return rec, ok
}

// FindByLocalID scans for the record carrying localID.
func (s *Store) FindByLocalID(localID uint32) (*Record, bool) {
	if localID == 0 {
		return nil, false
	}
	for _, id := range s.order {
		if rec := s.records[id]; rec.LocalID == localID {
			return rec, true
		}
	}
	return nil, false
}

// All returns copies of every record in insertion order.
func (s *Store) All() []Record {
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

// Count returns the number of mirrored rules.
func (s *Store) Count() int {
	return len(s.records)
}

// MarkAllDirty flags every record as unconfirmed.
func (s *Store) MarkAllDirty() {
	for _, rec := range s.records {
		rec.Dirty = true
	}
}

// RemoveDirty drops every record still flagged dirty and returns how many went.
func (s *Store) RemoveDirty() int {
	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.records[id].Dirty {
			delete(s.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

// LocalIDFor translates a server id into the local handle. It returns 0 and
// logs an error when the rule is unknown; 0 is never a valid handle.
//
// Both directions of the bridge are linear scans over the store. Rule sets
// are tens to low hundreds of entries, which keeps this well below the cost
// of the network round trip that follows every lookup.
func (s *Store) LocalIDFor(serverID string) uint32 {
	for _, id := range s.order {
		if rec := s.records[id]; rec.ServerID == serverID {
			return rec.LocalID
		}
	}
	s.logger.Error().
		Str(log.FieldEvent, "autorec.bridge_miss").
		Str(log.FieldServerID, serverID).
		Msg("unable to obtain local id for server id")
	return 0
}

// ServerIDFor translates a local handle into the server id. It returns ""
// and logs an error when the handle is unknown.
func (s *Store) ServerIDFor(localID uint32) string {
	if rec, ok := s.FindByLocalID(localID); ok {
		return rec.ServerID
	}
	s.logger.Error().
		Str(log.FieldEvent, "autorec.bridge_miss").
		Uint32(log.FieldLocalID, localID).
		Msg("unable to obtain server id for local id")
	return ""
}
