// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package htsp models the field maps exchanged with an HTSP-style DVR server.
//
// A Message distinguishes absent fields from present ones; getters report
// presence through their boolean result and never invent zero values.
package htsp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Message is a single protocol map. Values are strings or integers; decoded
// JSON numbers (float64 or json.Number) are accepted by the integer getters.
type Message map[string]any

// NewMessage returns an empty message map.
func NewMessage() Message {
	return make(Message)
}

// Has reports whether key is present, regardless of its type.
func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Str returns the string value stored under key.
func (m Message) Str(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// S64 returns the signed 64-bit value stored under key.
func (m Message) S64(key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

// S32 returns the value under key if it fits a signed 32-bit integer.
func (m Message) S32(key string) (int32, bool) {
	v, ok := m.S64(key)
	if !ok || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}

// U32 returns the value under key if it fits an unsigned 32-bit integer.
func (m Message) U32(key string) (uint32, bool) {
	v, ok := m.S64(key)
	if !ok || v < 0 || v > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}

// AddStr sets a string field.
func (m Message) AddStr(key, value string) {
	m[key] = value
}

// AddU32 sets an unsigned 32-bit field.
func (m Message) AddU32(key string, value uint32) {
	m[key] = int64(value)
}

// AddS64 sets a signed 64-bit field.
func (m Message) AddS64(key string, value int64) {
	m[key] = value
}

// AddBool encodes a boolean as 0/1, the way the server expects flags.
func (m Message) AddBool(key string, value bool) {
	if value {
		m[key] = int64(1)
		return
	}
	m[key] = int64(0)
}

// Clone returns a shallow copy of the message.
func (m Message) Clone() Message {
	out := make(Message, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// String renders the message for debug logs.
func (m Message) String() string {
	return fmt.Sprintf("htsp.Message%v", map[string]any(m))
}
