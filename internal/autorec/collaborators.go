// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import (
	"context"

	"github.com/ManuGH/htspsync/internal/htsp"
)

// Settings supplies user preferences consulted when building requests.
type Settings interface {
	// AutorecUseRegex reports whether EPG search strings are sent as
	// regular expressions. When false they are escaped to match literally.
	AutorecUseRegex() bool
}

// Sender performs one request/response round trip with the server. A nil
// response means no response was obtained.
type Sender interface {
	SendAndWait(ctx context.Context, method string, msg htsp.Message) (htsp.Message, error)
}

// CustomProps maps the extra rule attributes to and from the protocol.
type CustomProps interface {
	Properties(r Record) []CustomProperty
	AppendToMessage(props []CustomProperty, msg htsp.Message)
	SettingDefinitions() []SettingDefinition
}

// noCustomProps is used when no collaborator is configured.
type noCustomProps struct{}

func (noCustomProps) Properties(Record) []CustomProperty             { return nil }
func (noCustomProps) AppendToMessage([]CustomProperty, htsp.Message) {}
func (noCustomProps) SettingDefinitions() []SettingDefinition        { return nil }
