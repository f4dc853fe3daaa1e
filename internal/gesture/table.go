// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

// pitchWeight discounts pitch error; the canonical motions are defined by
// roll change.
const pitchWeight = 0.5

// Action identifies what a template triggers.
type Action int

const (
	ActionTiltUp Action = iota
	ActionTiltDown
)

// FeaturePoint is a target orientation a gesture must pass through.
type FeaturePoint struct {
	Roll      float64 `json:"roll" yaml:"roll"`
	Pitch     float64 `json:"pitch" yaml:"pitch"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
	Label     string  `json:"label" yaml:"label"`
}

// Distance is the pitch-discounted distance from e to p in degrees.
func (p FeaturePoint) Distance(e orientation.Euler) float64 {
	dr := e.Roll - p.Roll
	dp := e.Pitch - p.Pitch
	return math.Sqrt(dr*dr + pitchWeight*dp*dp)
}

// Matches reports whether e lies within the point's tolerance.
func (p FeaturePoint) Matches(e orientation.Euler) bool {
	return p.Distance(e) <= p.Tolerance
}

// Anchor selects the timestamp a Window is measured from.
type Anchor string

const (
	AnchorStart    Anchor = "start"    // time the first point matched
	AnchorPrevious Anchor = "previous" // time the previous point matched
)

// Window bounds the wait for the next point of a template.
type Window struct {
	Limit  time.Duration `json:"limit"`
	Anchor Anchor        `json:"anchor"`
}

// Template is one recognizable motion: three ordered feature points.
// Windows[i] governs the wait for Points[i+1].
type Template struct {
	Name        string          `json:"name"`
	Action      Action          `json:"action_id"`
	Points      [3]FeaturePoint `json:"points"`
	Windows     [2]Window       `json:"windows"`
	MaxDuration time.Duration   `json:"max_duration"` // display only
	ToneHz      float64         `json:"tone_hz"`
}

// DefaultWindows is the reference timing policy: point 1 may be held for up
// to 5 s, and point 3 must follow point 2 within 1 s.
func DefaultWindows() [2]Window {
	return [2]Window{
		{Limit: 5000 * time.Millisecond, Anchor: AnchorStart},
		{Limit: 1000 * time.Millisecond, Anchor: AnchorPrevious},
	}
}

// Table is the ordered, read-only set of templates. When several templates
// match a first point at once the lowest index wins.
type Table []Template

// DefaultTable returns the reference configuration.
func DefaultTable() Table {
	return Table{
		{
			Name:   "tilt down",
			Action: ActionTiltDown,
			Points: [3]FeaturePoint{
				{Roll: 0, Pitch: 0, Tolerance: 25, Label: "start"},
				{Roll: -25, Pitch: 0, Tolerance: 20, Label: "middle"},
				{Roll: -50, Pitch: 0, Tolerance: 20, Label: "end"},
			},
			Windows:     DefaultWindows(),
			MaxDuration: time.Second,
			ToneHz:      329.63, // E4
		},
		{
			Name:   "tilt up",
			Action: ActionTiltUp,
			Points: [3]FeaturePoint{
				{Roll: -50, Pitch: 0, Tolerance: 25, Label: "start"},
				{Roll: -25, Pitch: 0, Tolerance: 20, Label: "middle"},
				{Roll: 0, Pitch: 0, Tolerance: 20, Label: "end"},
			},
			Windows:     DefaultWindows(),
			MaxDuration: time.Second,
			ToneHz:      523.25, // C5
		},
	}
}

// WithTimeouts returns a copy of t with every template's windows limits
// replaced, keeping anchors.
func (t Table) WithTimeouts(point2, point3 time.Duration) Table {
	out := make(Table, len(t))
	copy(out, t)
	for i := range out {
		out[i].Windows[0].Limit = point2
		out[i].Windows[1].Limit = point3
	}
	return out
}

// Validate checks the table is usable by a Matcher.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("template table is empty")
	}
	for i, tpl := range t {
		if tpl.Name == "" {
			return fmt.Errorf("template %d: name is required", i)
		}
		for j, p := range tpl.Points {
			if !(p.Tolerance > 0) {
				return fmt.Errorf("template %q point %d: tolerance must be > 0, got %v", tpl.Name, j+1, p.Tolerance)
			}
		}
		for j, w := range tpl.Windows {
			if w.Limit <= 0 {
				return fmt.Errorf("template %q window %d: limit must be > 0", tpl.Name, j+1)
			}
			if w.Anchor != AnchorStart && w.Anchor != AnchorPrevious {
				return fmt.Errorf("template %q window %d: unknown anchor %q", tpl.Name, j+1, w.Anchor)
			}
		}
	}
	return nil
}

// Fingerprint hashes the table contents so clients can tell which
// configuration a matcher is running.
func (t Table) Fingerprint() uint64 {
	h, err := hashstructure.Hash(t, hashstructure.FormatV2, nil)
	if err != nil {
		// only unsupported kinds (chan, func) make Hash fail
		return 0
	}
	return h
}

// Names returns the template names in table order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, tpl := range t {
		names[i] = tpl.Name
	}
	return names
}

// ---------- YAML file format ----------

type fileWindow struct {
	LimitMS int    `yaml:"limit_ms"`
	Anchor  string `yaml:"anchor"`
}

type fileTemplate struct {
	Name          string         `yaml:"name"`
	ActionID      int            `yaml:"action_id"`
	Points        []FeaturePoint `yaml:"points"`
	Windows       []fileWindow   `yaml:"windows"`
	MaxDurationMS int            `yaml:"max_duration_ms"`
	ToneHz        float64        `yaml:"tone_hz"`
}

type fileTable struct {
	Templates []fileTemplate `yaml:"templates"`
}

// ParseTable decodes a YAML template table. Windows may be omitted, in which
// case DefaultWindows applies.
func ParseTable(data []byte) (Table, error) {
	var f fileTable
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode template table: %w", err)
	}

	t := make(Table, 0, len(f.Templates))
	for i, ft := range f.Templates {
		if len(ft.Points) != 3 {
			return nil, fmt.Errorf("template %d (%q): want 3 points, got %d", i, ft.Name, len(ft.Points))
		}
		tpl := Template{
			Name:        ft.Name,
			Action:      Action(ft.ActionID),
			Windows:     DefaultWindows(),
			MaxDuration: time.Duration(ft.MaxDurationMS) * time.Millisecond,
			ToneHz:      ft.ToneHz,
		}
		copy(tpl.Points[:], ft.Points)

		switch len(ft.Windows) {
		case 0:
		case 2:
			for j, w := range ft.Windows {
				tpl.Windows[j] = Window{
					Limit:  time.Duration(w.LimitMS) * time.Millisecond,
					Anchor: Anchor(strings.ToLower(strings.TrimSpace(w.Anchor))),
				}
			}
		default:
			return nil, fmt.Errorf("template %d (%q): want 0 or 2 windows, got %d", i, ft.Name, len(ft.Windows))
		}
		t = append(t, tpl)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTable reads a YAML template table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
