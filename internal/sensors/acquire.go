// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors produces raw IMU samples from hardware or simulated
// sources and hands them to the estimator through an imu.Slot.
package sensors

import (
	"context"
	"log/slog"
	"time"

	"github.com/relabs-tech/gesture_computer/internal/imu"
)

// logEvery limits repeated read-failure logging to one line per this many
// consecutive failures.
const logEvery = 50

// Acquire reads src every interval and stores each sample in slot until ctx
// ends. Read errors and dropped samples are logged and skipped.
func Acquire(ctx context.Context, src imu.Source, slot *imu.Slot, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var failures, dropped uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s, err := src.Read()
		if err != nil {
			if failures%logEvery == 0 {
				slog.Warn("sample read failed", "err", err, "failures", failures+1)
			}
			failures++
			continue
		}
		if failures > 0 {
			slog.Info("sample source recovered", "failures", failures)
			failures = 0
		}

		if !slot.Put(s) {
			dropped++
			slog.Debug("sample dropped, slot busy", "dropped", dropped)
		}
	}
}
