// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

const tableYAML = `
templates:
  - name: swipe
    action_id: 7
    tone_hz: 440
    max_duration_ms: 800
    points:
      - {roll: 10, pitch: 0, tolerance: 15, label: a}
      - {roll: 40, pitch: 0, tolerance: 10, label: b}
      - {roll: 70, pitch: 5, tolerance: 10, label: c}
  - name: slow swipe
    action_id: 8
    points:
      - {roll: -10, tolerance: 15}
      - {roll: -40, tolerance: 10}
      - {roll: -70, tolerance: 10}
    windows:
      - {limit_ms: 3000, anchor: start}
      - {limit_ms: 2000, anchor: Start}
`

func TestFeaturePointDistance(t *testing.T) {
	p := FeaturePoint{Tolerance: 5}
	e := orientation.Euler{Roll: 3, Pitch: 4}
	assert.InDelta(t, math.Sqrt(17), p.Distance(e), 1e-12)
	assert.True(t, p.Matches(e))
	assert.False(t, p.Matches(orientation.Euler{Roll: 5.01}))
	assert.True(t, p.Matches(orientation.Euler{Roll: 5}))
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	require.NoError(t, table.Validate())
	require.Len(t, table, 2)
	assert.Equal(t, []string{"tilt down", "tilt up"}, table.Names())

	down, up := table[0], table[1]
	assert.Equal(t, []float64{0, -25, -50}, []float64{down.Points[0].Roll, down.Points[1].Roll, down.Points[2].Roll})
	assert.Equal(t, []float64{-50, -25, 0}, []float64{up.Points[0].Roll, up.Points[1].Roll, up.Points[2].Roll})
	for _, tpl := range table {
		assert.Equal(t, []float64{25, 20, 20}, []float64{tpl.Points[0].Tolerance, tpl.Points[1].Tolerance, tpl.Points[2].Tolerance})
		assert.Equal(t, DefaultWindows(), tpl.Windows)
	}
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable([]byte(tableYAML))
	require.NoError(t, err)
	require.Len(t, table, 2)

	swipe := table[0]
	assert.Equal(t, Action(7), swipe.Action)
	assert.Equal(t, 440.0, swipe.ToneHz)
	assert.Equal(t, 800*time.Millisecond, swipe.MaxDuration)
	assert.Equal(t, 5.0, swipe.Points[2].Pitch)
	assert.Equal(t, "c", swipe.Points[2].Label)
	assert.Equal(t, DefaultWindows(), swipe.Windows)

	slow := table[1]
	assert.Equal(t, Window{Limit: 3 * time.Second, Anchor: AnchorStart}, slow.Windows[0])
	assert.Equal(t, Window{Limit: 2 * time.Second, Anchor: AnchorStart}, slow.Windows[1])
}

func TestParseTableErrors(t *testing.T) {
	cases := map[string]string{
		"empty":       "templates: []",
		"two points":  "templates: [{name: x, points: [{tolerance: 1}, {tolerance: 1}]}]",
		"no name":     "templates: [{points: [{tolerance: 1}, {tolerance: 1}, {tolerance: 1}]}]",
		"zero tol":    "templates: [{name: x, points: [{tolerance: 1}, {tolerance: 0}, {tolerance: 1}]}]",
		"bad anchor":  "templates: [{name: x, points: [{tolerance: 1}, {tolerance: 1}, {tolerance: 1}], windows: [{limit_ms: 1, anchor: end}, {limit_ms: 1, anchor: start}]}]",
		"one window":  "templates: [{name: x, points: [{tolerance: 1}, {tolerance: 1}, {tolerance: 1}], windows: [{limit_ms: 1, anchor: start}]}]",
		"not yaml":    "templates: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tableYAML), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"swipe", "slow swipe"}, table.Names())

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTableFingerprint(t *testing.T) {
	a := DefaultTable()
	b := DefaultTable()
	assert.NotZero(t, a.Fingerprint())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b[1].Points[2].Tolerance = 21
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestTableWithTimeouts(t *testing.T) {
	base := DefaultTable()
	tuned := base.WithTimeouts(3*time.Second, 500*time.Millisecond)
	assert.Equal(t, 3*time.Second, tuned[0].Windows[0].Limit)
	assert.Equal(t, AnchorPrevious, tuned[1].Windows[1].Anchor)
	assert.Equal(t, 500*time.Millisecond, tuned[1].Windows[1].Limit)
	// the receiver is untouched
	assert.Equal(t, DefaultWindows(), base[0].Windows)
}
