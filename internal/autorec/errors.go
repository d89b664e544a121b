// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrMalformedMessage  = errors.New("autorec: malformed inbound message")
	ErrMalformedResponse = errors.New("autorec: malformed response")
	ErrNotFound          = errors.New("autorec: rule not found")
	ErrTransportFailure  = errors.New("autorec: no response from server")
	ErrRuleRejected      = errors.New("autorec: rule rejected by server")
)

// SyncError wraps a sentinel with the operation and field that failed.
type SyncError struct {
	Sentinel error
	Op       string // wire method, e.g. "autorecEntryAdd"
	Field    string // offending field, if any
	ServerID string
	Err      error // nested lower-level error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Sentinel)
	if e.Field != "" {
		msg = fmt.Sprintf("%s: '%s' missing", msg, e.Field)
	}
	if e.ServerID != "" {
		msg = fmt.Sprintf("%s (id %s)", msg, e.ServerID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SyncError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Sentinel, e.Err}
	}
	return []error{e.Sentinel}
}

// Result is the outcome reported to the presentation layer.
type Result int

const (
	ResultOK          Result = iota // request acknowledged
	ResultFailed                    // client-side failure: unknown rule, rejected rule, bad response
	ResultServerError               // no response obtained from the server
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultFailed:
		return "failed"
	case ResultServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// ResultOf maps an operation error onto the presentation result codes.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrTransportFailure):
		return ResultServerError
	default:
		return ResultFailed
	}
}
