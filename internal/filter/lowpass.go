// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter holds the single-channel exponential smoother used by the
// orientation estimator.
package filter

// Channel is one exponentially smoothed axis.
// The zero value is an uninitialized channel with gain 0; use New.
type Channel struct {
	gain        float64
	prev        float64
	initialized bool
}

// New returns an uninitialized channel with the given gain.
// gain is the weight of the newest sample and should lie in (0,1].
func New(gain float64) Channel {
	return Channel{gain: gain}
}

// Apply feeds v through the filter and returns the smoothed value.
// The first call initializes the channel and returns v unchanged.
func (c *Channel) Apply(v float64) float64 {
	if !c.initialized {
		c.prev = v
		c.initialized = true
		return v
	}
	c.prev = c.gain*v + (1-c.gain)*c.prev
	return c.prev
}

// SetGain retunes the channel without touching its state.
func (c *Channel) SetGain(gain float64) { c.gain = gain }

func (c *Channel) Gain() float64 { return c.gain }

// Value returns the last output and whether the channel has seen a sample.
func (c *Channel) Value() (float64, bool) { return c.prev, c.initialized }

// Seed overwrites the stored output, marking the channel initialized.
// Used when the caller post-processes the output (e.g. angle wrapping) and
// the filter must continue from the processed value.
func (c *Channel) Seed(v float64) {
	c.prev = v
	c.initialized = true
}

// Reset returns the channel to its uninitialized state, keeping the gain.
func (c *Channel) Reset() {
	c.prev = 0
	c.initialized = false
}
