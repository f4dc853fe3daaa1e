// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/gesture_computer/internal/filter"
	"github.com/relabs-tech/gesture_computer/internal/imu"
)

const (
	radToDeg = 180.0 / math.Pi
	degToRad = math.Pi / 180.0

	// Vectors shorter than this are treated as unusable.
	minVectorNorm = 0.01
)

// Filter gains. Gain is the weight of the newest sample.
const (
	DefaultAccelGain = 0.85
	DefaultMagGain   = 0.7
	YawGain          = 0.8

	// Adaptive retuning of the accelerometer channels.
	MotionThreshold = 0.1 // same units as acceleration (g)
	MovingGain      = 0.7
	StillGain       = 0.9
)

// Euler is the canonical orientation for the app, in degrees.
// Roll and Yaw lie in [-180,180], Pitch in [-90,90].
type Euler struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Estimator turns raw samples into filtered Euler angles.
// It owns all filter and yaw continuity state; it is not safe for
// concurrent use and is meant to be confined to one goroutine.
type Estimator struct {
	accel [3]filter.Channel
	mag   [3]filter.Channel
	yaw   filter.Channel

	prevYaw float64 // continuity reference, last normalized yaw
	haveYaw bool
	lastYaw float64 // reported when the magnetometer is unusable
	prevAcc [3]float64
	moving  bool
}

// NewEstimator returns an estimator with the default gains.
func NewEstimator() *Estimator {
	e := &Estimator{yaw: filter.New(YawGain)}
	for i := range e.accel {
		e.accel[i] = filter.New(DefaultAccelGain)
		e.mag[i] = filter.New(DefaultMagGain)
	}
	return e
}

// Estimate runs the base algorithm on raw.
//
// When the filtered magnetometer vector is too short to give a heading, Yaw
// carries the last yaw this estimator computed (0 before the first valid
// heading).
func (e *Estimator) Estimate(raw imu.Sample) Euler {
	ax := e.accel[0].Apply(raw.Ax)
	ay := e.accel[1].Apply(raw.Ay)
	az := e.accel[2].Apply(raw.Az)

	mx := e.mag[0].Apply(raw.Mx)
	my := e.mag[1].Apply(raw.My)
	mz := e.mag[2].Apply(raw.Mz)

	if n := math.Sqrt(ax*ax + ay*ay + az*az); n > minVectorNorm {
		ax, ay, az = ax/n, ay/n, az/n
	} else {
		ax, ay, az = 0, 0, 1
	}

	var out Euler
	out.Roll = math.Atan2(ay, az) * radToDeg
	out.Pitch = math.Asin(clamp(-ax, -1, 1)) * radToDeg

	n := math.Sqrt(mx*mx + my*my + mz*mz)
	if n <= minVectorNorm {
		out.Yaw = e.lastYaw
		return out
	}
	mx, my, mz = mx/n, my/n, mz/n

	cr, sr := math.Cos(out.Roll*degToRad), math.Sin(out.Roll*degToRad)
	cp, sp := math.Cos(out.Pitch*degToRad), math.Sin(out.Pitch*degToRad)

	mxComp := mx*cp + mz*sp
	myComp := mx*sr*sp + my*cr - mz*sr*cp

	rawYaw := math.Atan2(-myComp, mxComp) * radToDeg

	if !e.haveYaw {
		e.prevYaw = rawYaw
		e.haveYaw = true
	} else {
		// one wrap only; at 50 Hz a real jump > 360° per sample cannot happen
		switch d := rawYaw - e.prevYaw; {
		case d > 180:
			rawYaw -= 360
		case d < -180:
			rawYaw += 360
		}
	}

	yaw := NormalizeAngle(e.yaw.Apply(rawYaw))
	e.yaw.Seed(yaw)
	e.prevYaw = yaw
	e.lastYaw = yaw

	out.Yaw = yaw
	return out
}

// EstimateAdaptive retunes the accelerometer channels from the change in raw
// acceleration since the previous call, then runs Estimate.
// The first call compares against the zero vector.
func (e *Estimator) EstimateAdaptive(raw imu.Sample) Euler {
	dx := raw.Ax - e.prevAcc[0]
	dy := raw.Ay - e.prevAcc[1]
	dz := raw.Az - e.prevAcc[2]
	e.moving = math.Sqrt(dx*dx+dy*dy+dz*dz) > MotionThreshold

	gain := StillGain
	if e.moving {
		gain = MovingGain
	}
	for i := range e.accel {
		e.accel[i].SetGain(gain)
	}

	out := e.Estimate(raw)
	e.prevAcc = [3]float64{raw.Ax, raw.Ay, raw.Az}
	return out
}

// Moving reports the motion classification of the last adaptive call.
func (e *Estimator) Moving() bool { return e.moving }

// AccelGain returns the current gain of the accelerometer channels.
func (e *Estimator) AccelGain() float64 { return e.accel[0].Gain() }

// NormalizeAngle wraps a into [-180,180]. Positive inputs never map to -180
// and negative ones never to 180. NaN and ±Inf give NaN.
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return math.NaN()
	}
	if a >= -180 && a <= 180 {
		return a
	}
	r := math.Mod(a+180, 360)
	if r < 0 {
		r += 360
	}
	r -= 180
	if r == -180 && a > 0 {
		r = 180
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
