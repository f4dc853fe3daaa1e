// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_computer/internal/clock"
	"github.com/relabs-tech/gesture_computer/internal/imu"
	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

// sentence wraps body in $...*hh with a valid checksum.
func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

func TestMockRollProfile(t *testing.T) {
	assert.Equal(t, 0.0, MockRollAt(0))
	assert.Equal(t, 0.0, MockRollAt(mockHold-1))
	assert.InDelta(t, mockLowRoll/2, MockRollAt(mockHold+mockRamp/2), 1e-9)
	assert.Equal(t, mockLowRoll, MockRollAt(mockHold+mockRamp))
	assert.Equal(t, mockLowRoll, MockRollAt(2*mockHold+mockRamp-1))
	assert.InDelta(t, mockLowRoll/2, MockRollAt(2*mockHold+mockRamp+mockRamp/2), 1e-9)
	// periodic
	assert.Equal(t, MockRollAt(1234), MockRollAt(1234+mockCycle))
}

func TestMockSourceOrientation(t *testing.T) {
	clk := clock.NewManual(1000)
	src := NewMockSource(clk)

	s, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, "mock", s.Source)
	assert.InDelta(t, 1.0, s.AccelNorm(), 1e-9)

	clk.Advance(mockHold + mockRamp)
	s, err = src.Read()
	require.NoError(t, err)

	e := orientation.NewEstimator().Estimate(s)
	assert.InDelta(t, mockLowRoll, e.Roll, 1e-6)
	assert.InDelta(t, 0, e.Pitch, 1e-6)
	assert.InDelta(t, 0, e.Yaw, 1e-6)
}

func TestParseSentence(t *testing.T) {
	s, err := ParseSentence(sentence("IIIMU,0.01,-0.50,0.87,1.5,0,-2.25,21.0,-3.5,40.2") + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, imu.Sample{
		Source: "serial",
		Ax:     0.01,
		Ay:     -0.5,
		Az:     0.87,
		Gx:     1.5,
		Gz:     -2.25,
		Mx:     21.0,
		My:     -3.5,
		Mz:     40.2,
	}, s)
}

func TestParseSentenceErrors(t *testing.T) {
	good := sentence("IIIMU,0,0,1,0,0,0,20,0,40")
	cases := map[string]string{
		"bad checksum": good[:len(good)-2] + "00",
		"bad number":   sentence("IIIMU,x,0,1,0,0,0,20,0,40"),
		"other type":   sentence("GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W"),
		"garbage":      "not a sentence",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSentence(line)
			assert.Error(t, err)
		})
	}
}

func TestSerialSourceSkipsOtherTraffic(t *testing.T) {
	input := strings.Join([]string{
		"",
		"boot v1.2",
		sentence("GPGLL,3723.2475,N,12158.3416,W,161229.487,A,A"),
		sentence("IIIMU,0,0.5,0.8,0,0,0,20,0,40"),
		sentence("IIIMU,0,-0.5,0.8,0,0,0,20,0,40"),
	}, "\r\n") + "\r\n"

	src := newSerialSource(strings.NewReader(input))
	s, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Ay)

	s, err = src.Read()
	require.NoError(t, err)
	assert.Equal(t, -0.5, s.Ay)

	_, err = src.Read()
	assert.Error(t, err) // EOF
}

func TestNewMPU9250SourceRejectsRange(t *testing.T) {
	_, err := NewMPU9250Source(MPU9250Options{AccelRange: 4})
	assert.ErrorContains(t, err, "range out of bounds")

	_, err = NewMPU9250Source(MPU9250Options{GyroRange: 9})
	assert.ErrorContains(t, err, "range out of bounds")
}

func TestCountsToSample(t *testing.T) {
	s := countsToSample([6]int16{0, 8192, 16384, 131, -262, 0},
		scaleForRange(accelLSBPerG, 0), scaleForRange(gyroLSBPerDegS, 0))
	assert.Equal(t, "mpu9250", s.Source)
	assert.InDelta(t, 0.5, s.Ay, 1e-9)
	assert.InDelta(t, 1.0, s.Az, 1e-9)
	assert.InDelta(t, 1.0, s.Gx, 1e-9)
	assert.InDelta(t, -2.0, s.Gy, 1e-9)

	// ±4g halves the counts per g
	s = countsToSample([6]int16{0, 0, 8192, 0, 0, 0}, scaleForRange(accelLSBPerG, 1), 1)
	assert.InDelta(t, 1.0, s.Az, 1e-9)
}

func TestMQTTSourceKeepsNewest(t *testing.T) {
	src := newMQTTSource(20 * time.Millisecond)

	_, err := src.Read()
	assert.ErrorIs(t, err, ErrNoSample)

	src.handle([]byte(`{"ax":0.1,"az":1}`))
	src.handle([]byte(`{"ax":0.2,"az":1,"source":"bridge"}`))
	src.handle([]byte(`{not json`))

	s, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 0.2, s.Ax)
	assert.Equal(t, "bridge", s.Source)

	_, err = src.Read()
	assert.ErrorIs(t, err, ErrNoSample)

	src.handle([]byte(`{"ay":1}`))
	s, err = src.Read()
	require.NoError(t, err)
	assert.Equal(t, "mqtt", s.Source)
}

type countingSource struct {
	n    atomic.Int64
	fail bool
}

func (c *countingSource) Read() (imu.Sample, error) {
	n := c.n.Add(1)
	if c.fail {
		return imu.Sample{}, errors.New("bus error")
	}
	return imu.Sample{Source: "test", Ax: float64(n)}, nil
}

func TestAcquireFillsSlot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &countingSource{}
	slot := imu.NewSlot()
	done := make(chan error, 1)
	go func() { done <- Acquire(ctx, src, slot, 2*time.Millisecond) }()

	require.Eventually(t, func() bool {
		_, seq, ok := slot.Latest(ctx, 10*time.Millisecond)
		return ok && seq >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not stop")
	}
}

func TestAcquireSkipsErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	src := &countingSource{fail: true}
	slot := imu.NewSlot()
	err := Acquire(ctx, src, slot, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, src.n.Load(), int64(1))

	_, _, ok := slot.Latest(context.Background(), time.Millisecond)
	assert.False(t, ok)
}
