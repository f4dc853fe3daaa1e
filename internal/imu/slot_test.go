// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotEmpty(t *testing.T) {
	s := NewSlot()
	_, _, ok := s.Latest(context.Background(), time.Millisecond)
	assert.False(t, ok)
}

func TestSlotLastWriteWins(t *testing.T) {
	s := NewSlot()
	require.True(t, s.Put(Sample{Ax: 1}))
	require.True(t, s.Put(Sample{Ax: 2}))

	v, seq, ok := s.Latest(context.Background(), time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Ax)
	assert.Equal(t, uint64(2), seq)

	// reads do not consume
	v, _, ok = s.Latest(context.Background(), time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Ax)
}

func TestSlotBoundedWait(t *testing.T) {
	s := NewSlot()
	require.True(t, s.Put(Sample{Ax: 1}))

	// hold the lock as a slow peer would
	s.lock <- struct{}{}

	start := time.Now()
	_, _, ok := s.Latest(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	assert.False(t, s.Put(Sample{Ax: 9}), "writer gives up instead of blocking")

	s.release()
	v, _, ok := s.Latest(context.Background(), 20*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.Ax)
}

func TestSlotContextCancel(t *testing.T) {
	s := NewSlot()
	s.lock <- struct{}{}
	defer s.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, ok := s.Latest(ctx, time.Second)
	assert.False(t, ok)
}

func TestSlotConcurrent(t *testing.T) {
	s := NewSlot()
	var wg sync.WaitGroup
	last := -1.0
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if s.Put(Sample{Ax: float64(i)}) {
				last = float64(i)
			}
		}
	}()
	for i := 0; i < 200; i++ {
		s.Latest(context.Background(), time.Millisecond)
	}
	wg.Wait()

	v, _, ok := s.Latest(context.Background(), 10*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, last, v.Ax)
}

func TestSampleNorms(t *testing.T) {
	s := Sample{Ax: 3, Ay: 4, Mz: -2}
	assert.InDelta(t, 5, s.AccelNorm(), 1e-12)
	assert.InDelta(t, 2, s.MagNorm(), 1e-12)
}
