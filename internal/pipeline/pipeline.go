// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline runs the estimator and the gesture matcher at a fixed
// rate over the latest acquired sample.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/relabs-tech/gesture_computer/internal/clock"
	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
	"github.com/relabs-tech/gesture_computer/internal/imu"
	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

type Options struct {
	Adaptive bool          // use the motion-keyed accelerometer gains
	Wait     time.Duration // how long a cycle waits for the sample slot
}

// Pipeline owns the estimator; Step and Run must be called from a single
// goroutine. The matcher may be shared with status readers.
type Pipeline struct {
	slot    *imu.Slot
	est     *orientation.Estimator
	matcher *gesture.Matcher
	clk     clock.Clock
	bus     *events.Bus
	opts    Options

	pose    orientation.Euler
	lastSeq uint64
	missed  uint64
}

func New(slot *imu.Slot, matcher *gesture.Matcher, clk clock.Clock, bus *events.Bus, opts Options) *Pipeline {
	return &Pipeline{
		slot:    slot,
		est:     orientation.NewEstimator(),
		matcher: matcher,
		clk:     clk,
		bus:     bus,
		opts:    opts,
	}
}

func (p *Pipeline) Matcher() *gesture.Matcher { return p.matcher }

// Missed returns how many cycles ran without a new sample.
func (p *Pipeline) Missed() uint64 { return p.missed }

// Step runs one estimation cycle. Without a new sample the previous
// orientation is kept and only the matcher's timeouts advance.
func (p *Pipeline) Step(ctx context.Context) (events.Pose, gesture.ActionEvent, bool) {
	now := p.clk.NowMillis()

	s, seq, ok := p.slot.Latest(ctx, p.opts.Wait)
	fresh := ok && seq != p.lastSeq

	var (
		ev    gesture.ActionEvent
		fired bool
	)
	if fresh {
		p.lastSeq = seq
		if p.opts.Adaptive {
			p.pose = p.est.EstimateAdaptive(s)
		} else {
			p.pose = p.est.Estimate(s)
		}
		ev, fired = p.matcher.Update(now, p.pose)
	} else {
		p.missed++
		p.matcher.Expire(now)
	}

	pose := events.Pose{Euler: p.pose, At: now, Fresh: fresh}
	if p.bus != nil {
		p.bus.PublishPose(pose)
		if fired {
			p.bus.PublishGesture(ev)
		}
	}
	return pose, ev, fired
}

// Run steps every interval until ctx ends.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	slog.Info("pipeline running", "interval", interval, "adaptive", p.opts.Adaptive, "templates", len(p.matcher.Table()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopped", "missed_cycles", p.missed)
			return ctx.Err()
		case <-ticker.C:
			p.Step(ctx)
		}
	}
}
