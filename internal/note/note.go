// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package note quantizes measured gesture tempo into musical note lengths.
package note

import (
	"fmt"
	"math"
)

// Duration is a canonical note length in milliseconds.
type Duration int

const (
	Sixteenth Duration = 125
	Eighth    Duration = 250
	Quarter   Duration = 500
	Half      Duration = 1000
)

// Buckets lists the canonical lengths in search order.
var Buckets = [...]Duration{Sixteenth, Eighth, Quarter, Half}

// Quantize returns the bucket closest to ms.
// On a tie the lower bucket wins: only a strictly smaller distance replaces
// the current best.
func Quantize(ms float64) Duration {
	best := Buckets[0]
	minDiff := math.Abs(ms - float64(best))
	for _, b := range Buckets[1:] {
		if d := math.Abs(ms - float64(b)); d < minDiff {
			minDiff = d
			best = b
		}
	}
	return best
}

// Milliseconds returns the length as an integer count of ms.
func (d Duration) Milliseconds() int { return int(d) }

func (d Duration) String() string {
	switch d {
	case Sixteenth:
		return "sixteenth"
	case Eighth:
		return "eighth"
	case Quarter:
		return "quarter"
	case Half:
		return "half"
	default:
		return fmt.Sprintf("%dms", int(d))
	}
}
