// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ManuGH/htspsync/internal/htsp"
	"github.com/ManuGH/htspsync/internal/log"
	"github.com/rs/zerolog"
)

// regexSpecialChars are escaped when the user wants literal title matching;
// the server always treats the title as a pattern.
var regexSpecialChars = regexp.MustCompile(`[-\[\]{}()*+?.,\\^$|#]`)

// EscapeSearchString makes s match literally when used as a server pattern.
func EscapeSearchString(s string) string {
	return regexSpecialChars.ReplaceAllString(s, `\${0}`)
}

// RequestBuilder turns presentation timers into protocol requests.
type RequestBuilder struct {
	store *Store
	props CustomProps
}

// NewRequestBuilder returns a builder resolving ids against store.
func NewRequestBuilder(store *Store, props CustomProps) *RequestBuilder {
	if props == nil {
		props = noCustomProps{}
	}
	return &RequestBuilder{store: store, props: props}
}

// BuildCreateOrUpdate encodes an addAutorecEntry or updateAutorecEntry
// request. For updates the server id is resolved from t.ClientIndex and
// ErrNotFound is returned when the rule is unknown.
func (b *RequestBuilder) BuildCreateOrUpdate(t Timer, update, useRegex bool) (string, htsp.Message, error) {
	method := htsp.MethodAddAutorecEntry
	if update {
		method = htsp.MethodUpdateAutorecEntry
	}

	m := htsp.NewMessage()
	if update {
		id := b.store.ServerIDFor(t.ClientIndex)
		if id == "" {
			return method, nil, &SyncError{Sentinel: ErrNotFound, Op: method, Err: fmt.Errorf("local id %d", t.ClientIndex)}
		}
		m.AddStr(htsp.FieldID, id)
	}

	m.AddStr(htsp.FieldName, t.Title)

	search := t.EPGSearchString
	if !useRegex {
		search = EscapeSearchString(search)
	}
	m.AddStr(htsp.FieldTitle, search)

	// fulltext=0 matches the title only; fulltext=1 also matches subtitle,
	// summary and description.
	m.AddBool(htsp.FieldFulltext, t.FullTextEPGSearch)
	m.AddS64(htsp.FieldStartExtra, t.MarginStart)
	m.AddS64(htsp.FieldStopExtra, t.MarginEnd)
	m.AddU32(htsp.FieldRemoval, t.Lifetime)
	m.AddS64(htsp.FieldChannelID, t.ClientChannelUID)
	m.AddU32(htsp.FieldDaysOfWeek, t.Weekdays)
	m.AddU32(htsp.FieldDupDetect, t.PreventDuplicateEpisodes)
	m.AddU32(htsp.FieldPriority, t.Priority)
	m.AddBool(htsp.FieldEnabled, t.State != TimerStateDisabled)

	// The server sanitizes "/" into a folder literally named "-".
	if t.Directory != RootDirectory {
		m.AddStr(htsp.FieldDirectory, t.Directory)
	}

	if t.Type == TimerRepeatingSeriesLink {
		m.AddStr(htsp.FieldSeriesLinkURI, t.SeriesLink)
	}

	b.props.AppendToMessage(t.CustomProperties, m)
	return method, m, nil
}

// BuildDelete encodes a deleteAutorecEntry request for the rule behind
// t.ClientIndex.
func (b *RequestBuilder) BuildDelete(t Timer) (htsp.Message, error) {
	id := b.store.ServerIDFor(t.ClientIndex)
	if id == "" {
		return nil, &SyncError{Sentinel: ErrNotFound, Op: htsp.MethodDeleteAutorecEntry, Err: fmt.Errorf("local id %d", t.ClientIndex)}
	}
	m := htsp.NewMessage()
	m.AddStr(htsp.FieldID, id)
	return m, nil
}

// InterpretResponse classifies the outcome of a round trip. sendErr or a
// nil resp yields ErrTransportFailure. A response without "success" is
// logged and yields ErrMalformedResponse; success!=1 yields ErrRuleRejected.
func InterpretResponse(logger zerolog.Logger, method string, resp htsp.Message, sendErr error) error {
	if sendErr != nil {
		return &SyncError{Sentinel: ErrTransportFailure, Op: method, Err: sendErr}
	}
	if resp == nil {
		return &SyncError{Sentinel: ErrTransportFailure, Op: method}
	}

	success, ok := resp.U32(htsp.FieldSuccess)
	if !ok {
		logger.Error().
			Str(log.FieldEvent, "autorec.malformed_response").
			Str(log.FieldMethod, method).
			Msgf("malformed %s response: 'success' missing", method)
		return &SyncError{Sentinel: ErrMalformedResponse, Op: method, Field: htsp.FieldSuccess}
	}
	if success != 1 {
		var detail error
		if msg, ok := resp.Str(htsp.FieldError); ok && msg != "" {
			detail = errors.New(msg)
		}
		return &SyncError{Sentinel: ErrRuleRejected, Op: method, Err: detail}
	}
	return nil
}
