// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/htspsync/internal/autorec"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []autorec.Record {
	return []autorec.Record{
		{
			ServerID: "b2",
			LocalID:  7,
			Kind:     autorec.KindAutorec,
			SeriesBase: autorec.SeriesBase{
				Enabled:    true,
				DaysOfWeek: 0x7f,
				Lifetime:   30,
				Priority:   2,
				Title:      "News",
				Channel:    autorec.AnyChannel,
			},
			StartWindowBegin: autorec.StartAnytime,
			StartWindowEnd:   autorec.StartAnytime,
		},
		{
			ServerID: "a1",
			LocalID:  3,
			Kind:     autorec.KindAutorec,
			SeriesBase: autorec.SeriesBase{
				Enabled:   true,
				Title:     "Star Trek",
				Name:      "Trek",
				Directory: "scifi",
				Channel:   42,
			},
			StartWindowBegin: 1200,
			StartWindowEnd:   1380,
			MarginStart:      5,
			MarginEnd:        10,
			Fulltext:         true,
			SeriesLink:       "crid://example/1",
		},
	}
}

func TestSQLiteStore_SaveLoadPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "autorec.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	want := sampleRecords()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("loaded snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "autorec.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Save(ctx, sampleRecords()))
	require.NoError(t, s.Save(ctx, sampleRecords()[:1]))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b2", got[0].ServerID)

	require.NoError(t, s.Save(ctx, nil))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "autorec.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleRecords()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, path, s.Path())
}

func TestSQLiteStore_RestoreIntoStoreMarksDirty(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "autorec.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Save(ctx, sampleRecords()))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)

	store := autorec.NewStore(autorec.NewSequence(), zerolog.Nop())
	for _, r := range loaded {
		store.Restore(r)
	}
	store.MarkAllDirty()

	assert.Equal(t, uint32(1), store.LocalIDFor("b2"))
	assert.Equal(t, uint32(2), store.LocalIDFor("a1"))
	assert.Equal(t, 2, store.RemoveDirty())
}

func TestWriteJSON(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rules.json")

	require.NoError(t, WriteJSON(ctx, path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count": 2`)
	assert.Contains(t, string(data), `"serieslinkUri": "crid://example/1"`)

	require.NoError(t, WriteJSON(ctx, path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rules": []`)
}
