// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"context"
	"time"
)

// DefaultPutWait bounds how long a producer waits for the slot lock before
// dropping its sample.
const DefaultPutWait = 10 * time.Millisecond

// Slot is a single-value, last-write-wins hand-off between an acquisition
// goroutine and the estimator loop.
//
// The lock is a one-token channel so both sides can wait with a deadline.
// Producers never wait on consumers: Put only contends for the lock, and
// overwrites whatever is stored.
type Slot struct {
	lock    chan struct{}
	sample  Sample
	have    bool
	seq     uint64
	putWait time.Duration
}

func NewSlot() *Slot {
	s := &Slot{
		lock:    make(chan struct{}, 1),
		putWait: DefaultPutWait,
	}
	return s
}

func (s *Slot) acquire(ctx context.Context, wait time.Duration) bool {
	select {
	case s.lock <- struct{}{}:
		return true
	default:
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case s.lock <- struct{}{}:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Slot) release() { <-s.lock }

// Put stores v, replacing any unread sample. It reports false when the lock
// could not be taken within the put wait, in which case v is dropped.
func (s *Slot) Put(v Sample) bool {
	if !s.acquire(context.Background(), s.putWait) {
		return false
	}
	s.sample = v
	s.have = true
	s.seq++
	s.release()
	return true
}

// Latest returns the most recent sample, waiting at most wait for the lock.
// ok is false when the wait expired, ctx ended, or nothing was ever stored.
// Reading does not consume the sample.
func (s *Slot) Latest(ctx context.Context, wait time.Duration) (v Sample, seq uint64, ok bool) {
	if !s.acquire(ctx, wait) {
		return Sample{}, 0, false
	}
	defer s.release()
	if !s.have {
		return Sample{}, 0, false
	}
	return s.sample, s.seq, true
}
