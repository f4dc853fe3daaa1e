// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package influxdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
	"github.com/relabs-tech/gesture_computer/internal/note"
	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

func TestGesturePoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := GesturePoint(gesture.ActionEvent{
		Action:      gesture.ActionTiltDown,
		Name:        "tilt down",
		ExecutionMs: 240,
		TotalMs:     1900,
		Note:        note.Eighth,
		ToneHz:      329.63,
	}, at)

	assert.Equal(t, MeasurementGesture, p.Name())
	assert.Equal(t, at, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"action": "tilt_down", "template": "tilt down"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(240), fields["execution_ms"])
	assert.Equal(t, int64(1900), fields["total_ms"])
	assert.EqualValues(t, 250, fields["note_ms"])
	assert.Equal(t, 329.63, fields["tone_hz"])
}

func TestPosePoint(t *testing.T) {
	p := PosePoint(events.Pose{Euler: orientation.Euler{Roll: -12.5, Pitch: 3, Yaw: 90}}, time.Unix(0, 0))
	assert.Equal(t, MeasurementPose, p.Name())
	assert.Empty(t, p.TagList())
	assert.Len(t, p.FieldList(), 3)
}
