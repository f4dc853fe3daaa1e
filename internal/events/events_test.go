// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_computer/internal/gesture"
)

func TestBusNoSubscribers(t *testing.T) {
	var b Bus
	assert.Equal(t, 0, b.PublishGesture(gesture.ActionEvent{Name: "tilt up"}))
}

func TestBusFanOut(t *testing.T) {
	var b Bus
	a := make(chan gesture.ActionEvent, 1)
	c := make(chan gesture.ActionEvent, 1)
	subA := b.SubscribeGestures(a)
	subC := b.SubscribeGestures(c)
	defer subC.Unsubscribe()

	n := b.PublishGesture(gesture.ActionEvent{Name: "tilt down", ExecutionMs: 250})
	assert.Equal(t, 2, n)
	for _, ch := range []chan gesture.ActionEvent{a, c} {
		select {
		case ev := <-ch:
			assert.Equal(t, "tilt down", ev.Name)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	subA.Unsubscribe()
	assert.Equal(t, 1, b.PublishGesture(gesture.ActionEvent{}))
	<-c
}

func TestBusPoses(t *testing.T) {
	var b Bus
	ch := make(chan Pose, 1)
	sub := b.SubscribePoses(ch)
	defer sub.Unsubscribe()

	require.Equal(t, 1, b.PublishPose(Pose{At: 50, Fresh: true}))
	p := <-ch
	assert.Equal(t, uint64(50), p.At)
	assert.True(t, p.Fresh)
}
