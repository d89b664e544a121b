// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package htsp

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotObject is returned by Decode when the payload is not a JSON object.
var ErrNotObject = errors.New("htsp: payload is not a JSON object")

// Decode parses a JSON object into a Message. Numbers are kept as
// json.Number so 64-bit values survive intact.
func Decode(data []byte) (Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	msg := NewMessage()
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode serializes m as a JSON object.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		m = NewMessage()
	}
	return json.Marshal(m)
}
