// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package autorec

import "sync/atomic"

// IDAllocator hands out local integer ids. Implementations must never return
// the same id twice and must never return 0, which callers treat as "not found".
type IDAllocator interface {
	Next() uint32
}

// Sequence is the default allocator: 1, 2, 3, ...
type Sequence struct {
	last atomic.Uint32
}

// NewSequence returns an allocator whose first id is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

func (s *Sequence) Next() uint32 {
	return s.last.Add(1)
}
