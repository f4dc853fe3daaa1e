// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"

	"github.com/relabs-tech/gesture_computer/internal/clock"
	"github.com/relabs-tech/gesture_computer/internal/imu"
)

// Sweep timing of the mock source, in milliseconds.
const (
	mockHold  = 2000
	mockRamp  = 600
	mockCycle = 2 * (mockHold + mockRamp)

	mockLowRoll = -55.0 // degrees

	// earth field in the level body frame, µT
	mockMagNorth = 22.0
	mockMagDown  = 42.0
)

type mockSource struct {
	clk   clock.Clock
	start uint64
}

// NewMockSource creates a source that sweeps roll between level and
// mockLowRoll, holding at each end, so tilt down and tilt up alternate
// without hardware. Heading stays at 0.
func NewMockSource(clk clock.Clock) imu.Source {
	return &mockSource{clk: clk, start: clk.NowMillis()}
}

func (m *mockSource) Read() (imu.Sample, error) {
	r := MockRollAt(m.clk.NowMillis()-m.start) * math.Pi / 180
	sr, cr := math.Sin(r), math.Cos(r)

	// gravity and the vertical field component rotate together about x
	return imu.Sample{
		Source: "mock",
		Ax:     0,
		Ay:     sr,
		Az:     cr,
		Mx:     mockMagNorth,
		My:     mockMagDown * sr,
		Mz:     mockMagDown * cr,
	}, nil
}

// MockRollAt returns the simulated roll in degrees elapsed ms into the sweep.
func MockRollAt(elapsed uint64) float64 {
	t := float64(elapsed % mockCycle)
	switch {
	case t < mockHold:
		return 0
	case t < mockHold+mockRamp:
		return mockLowRoll * (t - mockHold) / mockRamp
	case t < 2*mockHold+mockRamp:
		return mockLowRoll
	default:
		return mockLowRoll * (1 - (t-2*mockHold-mockRamp)/mockRamp)
	}
}
