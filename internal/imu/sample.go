// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// Sample is a single raw IMU+mag reading in physical units.
// Acceleration is in g, angular rate in °/s, magnetic field in µT.
type Sample struct {
	Source string `json:"source"` // "mock", "mpu9250", "serial", "mqtt"

	Ax float64 `json:"ax"` // accel
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // gyro, carried but not used by the estimator
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`

	Mx float64 `json:"mx"` // magnetometer
	My float64 `json:"my"`
	Mz float64 `json:"mz"`
}

// Source is anything that can produce raw samples.
// Read may block for up to one sensor period.
type Source interface {
	Read() (Sample, error)
}

// AccelNorm returns |a|.
func (s Sample) AccelNorm() float64 {
	return math.Sqrt(s.Ax*s.Ax + s.Ay*s.Ay + s.Az*s.Az)
}

// MagNorm returns |m|.
func (s Sample) MagNorm() float64 {
	return math.Sqrt(s.Mx*s.Mx + s.My*s.My + s.Mz*s.Mz)
}
