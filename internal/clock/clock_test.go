// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicNonDecreasing(t *testing.T) {
	c := NewMonotonic()
	a := c.NowMillis()
	time.Sleep(3 * time.Millisecond)
	b := c.NowMillis()
	assert.GreaterOrEqual(t, b, a)
}

func TestManual(t *testing.T) {
	c := NewManual(1000)
	assert.Equal(t, uint64(1000), c.NowMillis())
	assert.Equal(t, uint64(1250), c.Advance(250))
	assert.Equal(t, uint64(1250), c.NowMillis())
}
