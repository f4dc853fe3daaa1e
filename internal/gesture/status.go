// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

// Status is a read-only snapshot of the matcher for display and logging.
type Status struct {
	State       State             `json:"state"`
	Template    string            `json:"template,omitempty"`
	ElapsedMs   uint64            `json:"elapsed_ms"`             // time in the current sub-state
	RemainingMs uint64            `json:"remaining_ms,omitempty"` // left in the active window
	Target      *FeaturePoint     `json:"target,omitempty"`       // next point to reach
	Pose        orientation.Euler `json:"pose"`
	HavePose    bool              `json:"have_pose"`
	Startable   []string          `json:"startable"` // templates whose first point matches Pose
	Fingerprint string            `json:"table"`
	LastMs      uint64            `json:"last_completion_ms,omitempty"`
}

// Status reports the matcher's state as of now. It never changes the matcher.
func (m *Matcher) Status(now uint64) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:       m.state,
		Pose:        m.last,
		HavePose:    m.haveLast,
		Startable:   []string{},
		Fingerprint: fmt.Sprintf("%016x", m.fp),
		LastMs:      m.lastCompletion,
	}

	if m.active >= 0 {
		tpl := &m.table[m.active]
		st.Template = tpl.Name
		switch m.state {
		case AtPoint1, AtPoint2:
			stage := int(m.state)
			from := m.startTime
			if m.state == AtPoint2 {
				from = m.pointTimes[1]
			}
			st.ElapsedMs = since(now, from)

			w := tpl.Windows[stage-1]
			limit := uint64(w.Limit.Milliseconds())
			if used := since(now, m.anchorTimeLocked(w.Anchor, stage)); used < limit {
				st.RemainingMs = limit - used
			}
			target := tpl.Points[stage]
			st.Target = &target
		}
	}

	if m.haveLast {
		for _, tpl := range m.table {
			if tpl.Points[0].Matches(m.last) {
				st.Startable = append(st.Startable, tpl.Name)
			}
		}
	}
	return st
}

// String renders the status as a short multi-line report.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pose: roll=%.1f° pitch=%.1f°\n", s.Pose.Roll, s.Pose.Pitch)
	fmt.Fprintf(&b, "state: %s\n", s.State)
	if s.Template != "" {
		fmt.Fprintf(&b, "action: %s\n", s.Template)
	}
	switch s.State {
	case AtPoint1:
		fmt.Fprintf(&b, "at point 1 for %sms\n", humanize.Comma(int64(s.ElapsedMs)))
	case AtPoint2:
		fmt.Fprintf(&b, "at point 2 for %sms (%sms left)\n", humanize.Comma(int64(s.ElapsedMs)), humanize.Comma(int64(s.RemainingMs)))
	}
	if s.Target != nil {
		fmt.Fprintf(&b, "target: %s roll=%.1f° (±%.1f°)\n", s.Target.Label, s.Target.Roll, s.Target.Tolerance)
	}
	for _, name := range s.Startable {
		fmt.Fprintf(&b, "can start: %s\n", name)
	}
	return b.String()
}
