// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/htspsync/internal/autorec"
	xglog "github.com/ManuGH/htspsync/internal/log"
	"github.com/ManuGH/htspsync/internal/metrics"
	"github.com/google/renameio/v2"
)

const backendJSON = "json"

// Document is the JSON export format.
type Document struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Count       int              `json:"count"`
	Rules       []autorec.Record `json:"rules"`
}

// WriteJSON atomically writes records to path (fsync, then rename).
func WriteJSON(ctx context.Context, path string, records []autorec.Record) (err error) {
	logger := xglog.FromContext(ctx)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.IncSnapshotWrite(backendJSON, outcome)
	}()

	if records == nil {
		records = []autorec.Record{}
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending export file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending export file")
		}
	}()

	enc := json.NewEncoder(pendingFile)
	enc.SetIndent("", "  ")
	doc := Document{GeneratedAt: time.Now().UTC(), Count: len(records), Rules: records}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace export file: %w", err)
	}
	return nil
}
