// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_computer/internal/clock"
	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
	"github.com/relabs-tech/gesture_computer/internal/imu"
	"github.com/relabs-tech/gesture_computer/internal/sensors"
)

const cycle = 50 // ms

func rolled(deg float64) imu.Sample {
	r := deg * math.Pi / 180
	return imu.Sample{Source: "test", Ay: math.Sin(r), Az: math.Cos(r), Mx: 20, My: 40 * math.Sin(r), Mz: 40 * math.Cos(r)}
}

func newPipeline(adaptive bool) (*Pipeline, *imu.Slot, *clock.Manual, *events.Bus) {
	slot := imu.NewSlot()
	clk := clock.NewManual(0)
	bus := &events.Bus{}
	p := New(slot, gesture.NewMatcher(gesture.DefaultTable()), clk, bus, Options{Adaptive: adaptive, Wait: 5 * time.Millisecond})
	return p, slot, clk, bus
}

func TestStepScriptedTiltDown(t *testing.T) {
	p, slot, clk, bus := newPipeline(false)
	ctx := context.Background()

	gestures := make(chan gesture.ActionEvent, 4)
	sub := bus.SubscribeGestures(gestures)
	defer sub.Unsubscribe()

	script := []float64{0, 0, -25, -25, -25, -25, -25, -50}
	var fired int
	for _, roll := range script {
		clk.Advance(cycle)
		require.True(t, slot.Put(rolled(roll)))
		pose, ev, ok := p.Step(ctx)
		assert.True(t, pose.Fresh)
		if ok {
			fired++
			assert.Equal(t, "tilt down", ev.Name)
		}
	}
	require.Equal(t, 1, fired)

	ev := <-gestures
	assert.Equal(t, gesture.ActionTiltDown, ev.Action)
	// first point-2 match at the third step, point 3 at the eighth
	assert.Equal(t, uint64(5*cycle), ev.ExecutionMs)
	assert.Equal(t, gesture.Completed, p.Matcher().State())
}

func TestStepMissedSampleKeepsPoseAndExpires(t *testing.T) {
	p, slot, clk, _ := newPipeline(false)
	ctx := context.Background()

	for _, roll := range []float64{0, -25} {
		clk.Advance(cycle)
		slot.Put(rolled(roll))
		p.Step(ctx)
	}
	require.Equal(t, gesture.AtPoint2, p.Matcher().State())

	last, _, _ := p.Step(ctx) // same sequence number, treated as missed
	assert.False(t, last.Fresh)

	for i := 0; i < 1000/cycle; i++ {
		clk.Advance(cycle)
		pose, _, ok := p.Step(ctx)
		assert.False(t, ok)
		assert.False(t, pose.Fresh)
		assert.Equal(t, last.Euler, pose.Euler)
	}
	// exactly 1000 ms after point 2: still inside the window
	assert.Equal(t, gesture.AtPoint2, p.Matcher().State())

	clk.Advance(cycle)
	p.Step(ctx)
	assert.Equal(t, gesture.Idle, p.Matcher().State())
	assert.Equal(t, uint64(1000/cycle+2), p.Missed())
}

func TestStepNoSampleEver(t *testing.T) {
	p, _, clk, bus := newPipeline(true)
	poses := make(chan events.Pose, 1)
	sub := bus.SubscribePoses(poses)
	defer sub.Unsubscribe()

	clk.Advance(cycle)
	pose, _, ok := p.Step(context.Background())
	assert.False(t, ok)
	assert.False(t, pose.Fresh)
	assert.Equal(t, uint64(cycle), pose.At)
	assert.Equal(t, pose, <-poses)
	assert.Equal(t, gesture.Idle, p.Matcher().State())
}

// The mock sweep alternates the two reference gestures.
func TestMockSweepRecognizesBothGestures(t *testing.T) {
	for _, adaptive := range []bool{false, true} {
		p, slot, clk, _ := newPipeline(adaptive)
		src := sensors.NewMockSource(clk)
		ctx := context.Background()

		var names []string
		for i := 0; i < 2*11000/cycle; i++ {
			s, err := src.Read()
			require.NoError(t, err)
			slot.Put(s)
			if _, ev, ok := p.Step(ctx); ok {
				names = append(names, ev.Name)
				assert.Equal(t, "eighth", ev.Note.String())
			}
			clk.Advance(cycle)
		}
		require.GreaterOrEqual(t, len(names), 2, "adaptive=%v", adaptive)
		assert.Equal(t, "tilt down", names[0])
		assert.Equal(t, "tilt up", names[1])
		for i := 1; i < len(names); i++ {
			assert.NotEqual(t, names[i-1], names[i], "gestures should alternate")
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p, _, _, _ := newPipeline(false)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Run(ctx, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotZero(t, p.Missed())
}
