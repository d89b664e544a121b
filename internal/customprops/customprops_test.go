// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package customprops

import (
	"testing"

	"github.com/ManuGH/htspsync/internal/autorec"
	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_ReadsRecord(t *testing.T) {
	p := ForAutorec(nil)
	r := autorec.Record{
		SeriesBase:       autorec.SeriesBase{ConfigUUID: "cfg", Comment: "note"},
		StartWindowBegin: 1200,
		StartWindowEnd:   1380,
		BroadcastType:    BroadcastNew,
	}

	want := []autorec.CustomProperty{
		{Key: PropAutorecStart, Value: 1200},
		{Key: PropAutorecStartWindow, Value: 1380},
		{Key: PropAutorecBroadcastType, Value: int(BroadcastNew)},
		{Key: PropDVRConfiguration, Value: "cfg"},
		{Key: PropDVRComment, Value: "note"},
	}
	if diff := cmp.Diff(want, p.Properties(r)); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendToMessage(t *testing.T) {
	p := ForAutorec(nil)
	msg := htsp.NewMessage()
	p.AppendToMessage([]autorec.CustomProperty{
		{Key: PropAutorecStart, Value: -1},
		{Key: PropAutorecStartWindow, Value: int64(1380)},
		{Key: PropAutorecBroadcastType, Value: uint32(2)},
		{Key: PropDVRConfiguration, Value: "cfg"},
		{Key: PropDVRComment, Value: 42}, // wrong type, skipped
		{Key: 99, Value: "unknown"},
	}, msg)

	assert.Equal(t, htsp.Message{
		htsp.FieldStart:         int64(-1),
		htsp.FieldStartWindow:   int64(1380),
		htsp.FieldBroadcastType: int64(2),
		htsp.FieldConfigID:      "cfg",
	}, msg)
}

func TestAppendToMessage_DisabledPropertyIgnored(t *testing.T) {
	p := New([]uint32{PropDVRComment}, nil)
	msg := htsp.NewMessage()
	p.AppendToMessage([]autorec.CustomProperty{
		{Key: PropAutorecStart, Value: 60},
		{Key: PropDVRComment, Value: "hi"},
	}, msg)
	assert.Equal(t, htsp.Message{htsp.FieldComment: "hi"}, msg)
}

func TestSettingDefinitions_IncludesProfiles(t *testing.T) {
	p := ForAutorec(StaticProfiles{{UUID: "u1", Name: "Default"}, {UUID: "u2", Name: "HD"}})
	defs := p.SettingDefinitions()
	require.Len(t, defs, 5)

	var dvr autorec.SettingDefinition
	for _, d := range defs {
		if d.ID == PropDVRConfiguration {
			dvr = d
		}
	}
	require.Len(t, dvr.Values, 3)
	assert.Equal(t, "u2", dvr.Values[2].Value)
	assert.Equal(t, "HD", dvr.Values[2].Description)
	assert.Equal(t, int(autorec.StartAnytime), defs[0].DefaultValue)
}

func TestRoundTripThroughRequestBuilder(t *testing.T) {
	p := ForAutorec(nil)
	store := autorec.NewStore(autorec.NewSequence(), zerolog.Nop())
	b := autorec.NewRequestBuilder(store, p)

	r := autorec.Record{StartWindowBegin: 600, StartWindowEnd: 660, SeriesBase: autorec.SeriesBase{Comment: "c"}}
	timer := autorec.TimerFromRecord(r, p.Properties(r))
	_, msg, err := b.BuildCreateOrUpdate(timer, false, false)
	require.NoError(t, err)

	start, _ := msg.S32(htsp.FieldStart)
	window, _ := msg.S32(htsp.FieldStartWindow)
	assert.Equal(t, int32(600), start)
	assert.Equal(t, int32(660), window)
	assert.Equal(t, "c", msg[htsp.FieldComment])
}
