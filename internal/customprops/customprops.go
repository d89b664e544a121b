// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package customprops maps the fixed set of extra autorec attributes that the
// front end edits as "custom properties" onto protocol fields.
package customprops

import (
	"github.com/ManuGH/htspsync/internal/autorec"
	"github.com/ManuGH/htspsync/internal/htsp"
)

// Property ids exposed to the front end.
const (
	PropAutorecStart         uint32 = 1
	PropAutorecStartWindow   uint32 = 2
	PropAutorecBroadcastType uint32 = 3
	PropDVRConfiguration     uint32 = 4
	PropDVRComment           uint32 = 5
)

// Broadcast type codes understood by the server.
const (
	BroadcastAny          uint32 = 0
	BroadcastNewOrUnknown uint32 = 1
	BroadcastRepeat       uint32 = 2
	BroadcastNew          uint32 = 3
)

// Profile is a server-side DVR configuration a rule may reference.
type Profile struct {
	UUID string `yaml:"uuid" json:"uuid"`
	Name string `yaml:"name" json:"name"`
}

// ProfileSource lists the DVR configurations currently known.
type ProfileSource interface {
	Profiles() []Profile
}

// StaticProfiles is a fixed ProfileSource.
type StaticProfiles []Profile

func (p StaticProfiles) Profiles() []Profile { return p }

// Props implements autorec.CustomProps for a subset of property ids.
type Props struct {
	enabled  []uint32
	profiles ProfileSource
}

var _ autorec.CustomProps = (*Props)(nil)

// New returns Props serving the given property ids in order. profiles may be nil.
func New(ids []uint32, profiles ProfileSource) *Props {
	if profiles == nil {
		profiles = StaticProfiles(nil)
	}
	return &Props{enabled: append([]uint32(nil), ids...), profiles: profiles}
}

// ForAutorec returns the property set used for autorec rules.
func ForAutorec(profiles ProfileSource) *Props {
	return New([]uint32{
		PropAutorecStart,
		PropAutorecStartWindow,
		PropAutorecBroadcastType,
		PropDVRConfiguration,
		PropDVRComment,
	}, profiles)
}

// Properties reads the enabled properties off a record.
func (p *Props) Properties(r autorec.Record) []autorec.CustomProperty {
	out := make([]autorec.CustomProperty, 0, len(p.enabled))
	for _, id := range p.enabled {
		switch id {
		case PropAutorecStart:
			out = append(out, autorec.CustomProperty{Key: id, Value: int(r.StartWindowBegin)})
		case PropAutorecStartWindow:
			out = append(out, autorec.CustomProperty{Key: id, Value: int(r.StartWindowEnd)})
		case PropAutorecBroadcastType:
			out = append(out, autorec.CustomProperty{Key: id, Value: int(r.BroadcastType)})
		case PropDVRConfiguration:
			out = append(out, autorec.CustomProperty{Key: id, Value: r.ConfigUUID})
		case PropDVRComment:
			out = append(out, autorec.CustomProperty{Key: id, Value: r.Comment})
		}
	}
	return out
}

// AppendToMessage writes every enabled property found in props into msg.
// Properties with an unexpected value type are skipped.
func (p *Props) AppendToMessage(props []autorec.CustomProperty, msg htsp.Message) {
	for _, prop := range props {
		if !p.isEnabled(prop.Key) {
			continue
		}
		switch prop.Key {
		case PropAutorecStart:
			if v, ok := asInt(prop.Value); ok {
				msg.AddS64(htsp.FieldStart, v)
			}
		case PropAutorecStartWindow:
			if v, ok := asInt(prop.Value); ok {
				msg.AddS64(htsp.FieldStartWindow, v)
			}
		case PropAutorecBroadcastType:
			if v, ok := asInt(prop.Value); ok && v >= 0 {
				msg.AddU32(htsp.FieldBroadcastType, uint32(v))
			}
		case PropDVRConfiguration:
			if v, ok := prop.Value.(string); ok {
				msg.AddStr(htsp.FieldConfigID, v)
			}
		case PropDVRComment:
			if v, ok := prop.Value.(string); ok {
				msg.AddStr(htsp.FieldComment, v)
			}
		}
	}
}

// SettingDefinitions describes the enabled properties to the front end.
func (p *Props) SettingDefinitions() []autorec.SettingDefinition {
	out := make([]autorec.SettingDefinition, 0, len(p.enabled))
	for _, id := range p.enabled {
		switch id {
		case PropAutorecStart:
			out = append(out, autorec.SettingDefinition{
				ID: id, Name: "Start time (minutes after midnight)", Type: "integer",
				DefaultValue: int(autorec.StartAnytime),
			})
		case PropAutorecStartWindow:
			out = append(out, autorec.SettingDefinition{
				ID: id, Name: "Start window end (minutes after midnight)", Type: "integer",
				DefaultValue: int(autorec.StartAnytime),
			})
		case PropAutorecBroadcastType:
			out = append(out, autorec.SettingDefinition{
				ID: id, Name: "Broadcast type", Type: "integer",
				DefaultValue: int(BroadcastAny),
				Values: []autorec.SettingValue{
					{Value: int(BroadcastAny), Description: "Any"},
					{Value: int(BroadcastNewOrUnknown), Description: "New / premiere / unknown"},
					{Value: int(BroadcastRepeat), Description: "Repeated"},
					{Value: int(BroadcastNew), Description: "New / premiere"},
				},
			})
		case PropDVRConfiguration:
			values := []autorec.SettingValue{{Value: "", Description: "(default profile)"}}
			for _, prof := range p.profiles.Profiles() {
				values = append(values, autorec.SettingValue{Value: prof.UUID, Description: prof.Name})
			}
			out = append(out, autorec.SettingDefinition{
				ID: id, Name: "DVR configuration", Type: "string",
				DefaultValue: "", Values: values,
			})
		case PropDVRComment:
			out = append(out, autorec.SettingDefinition{
				ID: id, Name: "Comment", Type: "string", DefaultValue: "",
			})
		}
	}
	return out
}

func (p *Props) isEnabled(id uint32) bool {
	for _, e := range p.enabled {
		if e == id {
			return true
		}
	}
	return false
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}
