// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package snapshot persists the autorec mirror between runs.
//
// A snapshot is advisory: restored records are marked dirty and survive only
// if the server confirms them during the next initial sync.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ManuGH/htspsync/internal/autorec"
	xglog "github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/metrics"
	"github.com/ManuGH/htspsync/internal/persistence/sqlite"
)

const backendSQLite = "sqlite"

// ErrCorrupt is returned by OpenSQLite when the integrity check fails.
var ErrCorrupt = errors.New("snapshot database is corrupt")

// SQLiteStore keeps the latest mirror in a single table, replaced wholesale on every Save.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the snapshot database at path.
// An existing file is integrity-checked first.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err == nil {
		issues, err := sqlite.VerifyIntegrity(ctx, path, sqlite.CheckQuick)
		if err != nil {
			return nil, fmt.Errorf("verify snapshot: %w", err)
		}
		if len(issues) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, issues)
		}
	}

	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS autorec_rules (
		server_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_autorec_rules_position ON autorec_rules(position);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save replaces the stored snapshot with records, preserving their order.
func (s *SQLiteStore) Save(ctx context.Context, records []autorec.Record) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.IncSnapshotWrite(backendSQLite, outcome)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM autorec_rules"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO autorec_rules (server_id, position, kind, payload, saved_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode rule %s: %w", r.ServerID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ServerID, i, r.Kind.String(), string(payload), now); err != nil {
			return fmt.Errorf("insert rule %s: %w", r.ServerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	xglog.FromContext(ctx).Debug().
		Str("event", "snapshot.saved").
		Int(xglog.FieldCount, len(records)).
		Str(xglog.FieldPath, s.path).
		Msg("autorec snapshot saved")
	return nil
}

// Load returns the stored records in their saved order.
// Local ids in the result are stale; the store assigns fresh ones on restore.
func (s *SQLiteStore) Load(ctx context.Context) ([]autorec.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT server_id, payload FROM autorec_rules ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []autorec.Record
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var r autorec.Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode rule %s: %w", id, err)
		}
		r.ServerID = id
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}
	return out, nil
}
