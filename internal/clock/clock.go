// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock provides the millisecond time base used by gesture timing.
package clock

import (
	"sync"
	"time"
)

// Clock reports monotonic milliseconds.
type Clock interface {
	NowMillis() uint64
}

type monotonic struct {
	start time.Time
}

// NewMonotonic returns a Clock counting milliseconds since its creation.
// time.Since uses the runtime monotonic reading, so wall clock steps do not
// affect it.
func NewMonotonic() Clock {
	return &monotonic{start: time.Now()}
}

func (m *monotonic) NowMillis() uint64 {
	return uint64(time.Since(m.start).Milliseconds())
}

// Manual is a Clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

func (m *Manual) NowMillis() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by ms and returns the new time.
func (m *Manual) Advance(ms uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += ms
	return m.now
}
