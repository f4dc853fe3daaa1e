// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package journal records recognized gestures in a bbolt file so a session
// can be reviewed afterwards. It is an output log only; nothing is read back
// into the pipeline.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/relabs-tech/gesture_computer/internal/gesture"
)

var bucketGestures = []byte("gestures")

// Record is one stored gesture.
type Record struct {
	Seq      uint64              `json:"seq"`
	Recorded time.Time           `json:"recorded"`
	Event    gesture.ActionEvent `json:"event"`
}

type Journal struct {
	db *bolt.DB
}

// Open creates or opens the journal at path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGestures)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal bucket: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Append stores ev and returns its sequence number.
func (j *Journal) Append(ev gesture.ActionEvent) (uint64, error) {
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGestures)
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		v, err := json.Marshal(Record{Seq: seq, Recorded: time.Now().UTC(), Event: ev})
		if err != nil {
			return err
		}
		return b.Put(key(seq), v)
	})
	if err != nil {
		return 0, fmt.Errorf("journal append: %w", err)
	}
	return seq, nil
}

// Recent returns up to n records, newest first.
func (j *Journal) Recent(n int) ([]Record, error) {
	out := make([]Record, 0, n)
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketGestures).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal read: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records.
func (j *Journal) Count() (int, error) {
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketGestures).Stats().KeyN
		return nil
	})
	return n, err
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
