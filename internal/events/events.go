// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package events fans pipeline output out to any number of sinks.
package events

import (
	"github.com/ethereum/go-ethereum/event"

	"github.com/relabs-tech/gesture_computer/internal/gesture"
	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

// Pose is one estimator cycle as seen by sinks.
type Pose struct {
	orientation.Euler
	At    uint64 `json:"at_ms"`
	Fresh bool   `json:"fresh"` // false when the cycle had no new sample
}

// Bus carries the pipeline's outputs. The zero value is ready to use.
//
// Feeds deliver synchronously to every subscribed channel, so subscribers
// must drain their channels; a stalled subscriber stalls the pipeline.
type Bus struct {
	Gestures event.FeedOf[gesture.ActionEvent]
	Poses    event.FeedOf[Pose]
}

// PublishGesture delivers ev to all gesture subscribers and returns how many
// received it.
func (b *Bus) PublishGesture(ev gesture.ActionEvent) int {
	return b.Gestures.Send(ev)
}

func (b *Bus) PublishPose(p Pose) int {
	return b.Poses.Send(p)
}

// SubscribeGestures registers ch. Call Unsubscribe on the result when done.
func (b *Bus) SubscribeGestures(ch chan<- gesture.ActionEvent) event.Subscription {
	return b.Gestures.Subscribe(ch)
}

func (b *Bus) SubscribePoses(ch chan<- Pose) event.Subscription {
	return b.Poses.Subscribe(ch)
}
