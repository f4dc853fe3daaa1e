// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package influxdb exports recognized gestures and poses to an InfluxDB v2
// bucket.
package influxdb

import (
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
)

const (
	MeasurementGesture = "gesture"
	MeasurementPose    = "pose"
)

type Options struct {
	URL, Token, Org, Bucket string
}

// Exporter writes points through the non-blocking write API, which buffers
// and flushes in the background.
type Exporter struct {
	client influxdb2.Client
	write  api.WriteAPI

	wait    sync.WaitGroup
	mu      sync.Mutex
	lastErr error
}

func New(opts Options) *Exporter {
	o := influxdb2.DefaultOptions()
	o.SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(opts.URL, opts.Token, o)
	e := &Exporter{
		client: client,
		write:  client.WriteAPI(opts.Org, opts.Bucket),
	}

	// Errors must be read before any write, and drained, or writes block.
	errorsCh := e.write.Errors()
	e.wait.Add(1)
	go func() {
		defer e.wait.Done()
		for err := range errorsCh {
			if err == nil {
				continue
			}
			slog.Warn("influxdb write failed", "err", err)
			e.mu.Lock()
			e.lastErr = err
			e.mu.Unlock()
		}
	}()
	return e
}

func (e *Exporter) WriteGesture(ev gesture.ActionEvent, at time.Time) {
	e.write.WritePoint(GesturePoint(ev, at))
}

func (e *Exporter) WritePose(p events.Pose, at time.Time) {
	e.write.WritePoint(PosePoint(p, at))
}

// Close flushes pending points and returns the last asynchronous write
// error, if any.
func (e *Exporter) Close() error {
	e.write.Flush()
	e.client.Close()
	e.wait.Wait()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func GesturePoint(ev gesture.ActionEvent, at time.Time) *write.Point {
	return influxdb2.NewPointWithMeasurement(MeasurementGesture).
		SetTime(at).
		AddTag("action", ev.Action.String()).
		AddTag("template", ev.Name).
		AddField("execution_ms", int64(ev.ExecutionMs)).
		AddField("total_ms", int64(ev.TotalMs)).
		AddField("note_ms", ev.Note.Milliseconds()).
		AddField("tone_hz", ev.ToneHz)
}

func PosePoint(p events.Pose, at time.Time) *write.Point {
	return influxdb2.NewPointWithMeasurement(MeasurementPose).
		SetTime(at).
		AddField("roll", p.Roll).
		AddField("pitch", p.Pitch).
		AddField("yaw", p.Yaw)
}
