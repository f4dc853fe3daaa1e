// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_computer/internal/imu"
)

// Full-scale sensitivities at range 0; each range step halves them.
const (
	accelLSBPerG   = 16384.0
	gyroLSBPerDegS = 131.0
)

// MPU9250Options selects the SPI wiring and full-scale ranges.
type MPU9250Options struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	GyroRange  byte // 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
}

type imuSource struct {
	dev      *mpu9250.MPU9250
	accelLSB float64
	gyroLSB  float64
}

// NewMPU9250Source initializes an MPU9250 over SPI.
//
// The periph driver exposes no AK8963 access, so magnetometer fields stay
// zero and the estimator holds its last heading.
func NewMPU9250Source(opts MPU9250Options) (imu.Source, error) {
	if opts.AccelRange > 3 || opts.GyroRange > 3 {
		return nil, fmt.Errorf("mpu9250 source: range out of bounds (accel %d, gyro %d)", opts.AccelRange, opts.GyroRange)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250 source: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("mpu9250 source: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("mpu9250 source: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("mpu9250 source: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250 source: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("mpu9250 source: set accel range: %w", err)
	}
	slog.Info("mpu9250 accelerometer range", "range", opts.AccelRange, "g", []int{2, 4, 8, 16}[opts.AccelRange])

	if err := dev.SetGyroRange(opts.GyroRange); err != nil {
		return nil, fmt.Errorf("mpu9250 source: set gyro range: %w", err)
	}
	slog.Info("mpu9250 gyroscope range", "range", opts.GyroRange, "deg_s", []int{250, 500, 1000, 2000}[opts.GyroRange])

	if res, err := dev.SelfTest(); err != nil {
		slog.Warn("mpu9250 self-test failed", "err", err)
	} else {
		slog.Info("mpu9250 self-test passed",
			"accel_dev", fmt.Sprintf("%.2f/%.2f/%.2f%%", res.AccelDeviation.X, res.AccelDeviation.Y, res.AccelDeviation.Z),
			"gyro_dev", fmt.Sprintf("%.2f/%.2f/%.2f%%", res.GyroDeviation.X, res.GyroDeviation.Y, res.GyroDeviation.Z))
	}

	if err := dev.Calibrate(); err != nil {
		slog.Warn("mpu9250 calibration failed", "err", err)
	} else {
		slog.Info("mpu9250 calibration complete")
	}

	return &imuSource{
		dev:      dev,
		accelLSB: scaleForRange(accelLSBPerG, opts.AccelRange),
		gyroLSB:  scaleForRange(gyroLSBPerDegS, opts.GyroRange),
	}, nil
}

// Read reads accelerometer and gyroscope registers and converts them to g
// and °/s.
func (s *imuSource) Read() (imu.Sample, error) {
	var raw [6]int16
	reads := []struct {
		name string
		fn   func() (int16, error)
	}{
		{"accel X", s.dev.GetAccelerationX},
		{"accel Y", s.dev.GetAccelerationY},
		{"accel Z", s.dev.GetAccelerationZ},
		{"gyro X", s.dev.GetRotationX},
		{"gyro Y", s.dev.GetRotationY},
		{"gyro Z", s.dev.GetRotationZ},
	}
	for i, r := range reads {
		v, err := r.fn()
		if err != nil {
			return imu.Sample{}, fmt.Errorf("mpu9250 %s: %w", r.name, err)
		}
		raw[i] = v
	}
	return countsToSample(raw, s.accelLSB, s.gyroLSB), nil
}

func scaleForRange(base float64, rng byte) float64 {
	return base / float64(int(1)<<rng)
}

func countsToSample(raw [6]int16, accelLSB, gyroLSB float64) imu.Sample {
	return imu.Sample{
		Source: "mpu9250",
		Ax:     float64(raw[0]) / accelLSB,
		Ay:     float64(raw[1]) / accelLSB,
		Az:     float64(raw[2]) / accelLSB,
		Gx:     float64(raw[3]) / gyroLSB,
		Gy:     float64(raw[4]) / gyroLSB,
		Gz:     float64(raw[5]) / gyroLSB,
	}
}
