// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gesture recognizes tilt motions as an ordered visit of three
// feature points under timing constraints.
package gesture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/relabs-tech/gesture_computer/internal/note"
	"github.com/relabs-tech/gesture_computer/internal/orientation"
)

// State is the matcher's position within a gesture attempt.
type State int

const (
	Idle State = iota
	AtPoint1
	AtPoint2
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AtPoint1:
		return "at_point1"
	case AtPoint2:
		return "at_point2"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, v := range []State{Idle, AtPoint1, AtPoint2, Completed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown matcher state %q", b)
}

func (a Action) String() string {
	switch a {
	case ActionTiltUp:
		return "tilt_up"
	case ActionTiltDown:
		return "tilt_down"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ActionEvent is emitted once per recognized gesture.
type ActionEvent struct {
	Action      Action        `json:"action_id"`
	Name        string        `json:"action"`
	ExecutionMs uint64        `json:"execution_ms"` // point 2 to point 3
	Note        note.Duration `json:"note_ms"`
	TotalMs     uint64        `json:"total_ms"` // point 1 to point 3
	ToneHz      float64       `json:"tone_hz"`
	At          uint64        `json:"at_ms"` // clock time of point 3
}

// Matcher is the three-point state machine. It is driven once per
// orientation update with the current clock reading.
//
// Methods are safe for concurrent use; status readers may run on other
// goroutines than the estimator loop.
type Matcher struct {
	mu    sync.Mutex
	table Table
	fp    uint64

	state  State
	active int // template index, -1 iff state == Idle

	startTime      uint64
	pointTimes     [3]uint64
	lastCompletion uint64

	last     orientation.Euler
	haveLast bool
}

// NewMatcher returns an idle matcher over table.
// The table is not copied and must not be modified afterwards.
func NewMatcher(table Table) *Matcher {
	return &Matcher{
		table:  table,
		fp:     table.Fingerprint(),
		state:  Idle,
		active: -1,
	}
}

// Update advances the state machine with the orientation observed at now.
// It returns the event and true when this call completed a gesture.
func (m *Matcher) Update(now uint64, e orientation.Euler) (ActionEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = e
	m.haveLast = true

	switch m.state {
	case Idle:
		for i := range m.table {
			if m.table[i].Points[0].Matches(e) {
				m.state = AtPoint1
				m.active = i
				m.startTime = now
				m.pointTimes[0] = now
				slog.Debug("gesture point 1", "template", m.table[i].Name, "roll", e.Roll)
				break
			}
		}

	case AtPoint1, AtPoint2:
		if m.expiredLocked(now) {
			return ActionEvent{}, false
		}
		stage := int(m.state) // number of points already matched
		tpl := &m.table[m.active]
		if !tpl.Points[stage].Matches(e) {
			// a miss is not a rejection; only the window can end the attempt
			return ActionEvent{}, false
		}
		m.pointTimes[stage] = now
		if m.state == AtPoint1 {
			m.state = AtPoint2
			slog.Debug("gesture point 2", "template", tpl.Name, "roll", e.Roll)
			return ActionEvent{}, false
		}
		return m.completeLocked(now), true

	case Completed:
		m.toIdleLocked()
	}
	return ActionEvent{}, false
}

// Expire applies timeouts without testing any point. It is meant for cycles
// where no new orientation is available: wall-clock time still counts
// against the active window, and a Completed matcher returns to Idle.
func (m *Matcher) Expire(now uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case AtPoint1, AtPoint2:
		m.expiredLocked(now)
	case Completed:
		m.toIdleLocked()
	}
}

// Reset forces the matcher back to Idle regardless of timers.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toIdleLocked()
	m.lastCompletion = 0
	slog.Debug("gesture matcher reset")
}

// State returns the current state.
func (m *Matcher) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the index of the template being tracked, or -1 when idle.
func (m *Matcher) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Table returns the templates the matcher runs over.
func (m *Matcher) Table() Table { return m.table }

func (m *Matcher) completeLocked(now uint64) ActionEvent {
	tpl := &m.table[m.active]
	exec := since(now, m.pointTimes[1])
	ev := ActionEvent{
		Action:      tpl.Action,
		Name:        tpl.Name,
		ExecutionMs: exec,
		Note:        note.Quantize(float64(exec)),
		TotalMs:     since(now, m.startTime),
		ToneHz:      tpl.ToneHz,
		At:          now,
	}
	m.state = Completed
	m.lastCompletion = now
	slog.Info("gesture completed", "template", tpl.Name, "exec_ms", ev.ExecutionMs, "total_ms", ev.TotalMs, "note", ev.Note)
	return ev
}

// expiredLocked resets to Idle and returns true if the window for the next
// point has run out.
func (m *Matcher) expiredLocked(now uint64) bool {
	stage := int(m.state)
	w := m.table[m.active].Windows[stage-1]
	elapsed := since(now, m.anchorTimeLocked(w.Anchor, stage))
	if elapsed <= uint64(w.Limit.Milliseconds()) {
		return false
	}
	slog.Debug("gesture window expired", "template", m.table[m.active].Name, "state", m.state, "elapsed_ms", elapsed)
	m.toIdleLocked()
	return true
}

func (m *Matcher) anchorTimeLocked(a Anchor, stage int) uint64 {
	if a == AnchorPrevious {
		return m.pointTimes[stage-1]
	}
	return m.startTime
}

func (m *Matcher) toIdleLocked() {
	m.state = Idle
	m.active = -1
}

// since returns now-t, or 0 if the clock reads earlier than t.
func since(now, t uint64) uint64 {
	if now < t {
		return 0
	}
	return now - t
}
