// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_computer/internal/gesture"
	"github.com/relabs-tech/gesture_computer/internal/note"
)

func TestJournalAppendRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gestures.db")
	j, err := Open(path)
	require.NoError(t, err)

	for i, name := range []string{"tilt down", "tilt up", "tilt down"} {
		seq, err := j.Append(gesture.ActionEvent{Name: name, ExecutionMs: uint64(100 * (i + 1)), Note: note.Eighth})
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), seq)
	}

	n, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(3), recs[0].Seq)
	assert.Equal(t, uint64(300), recs[0].Event.ExecutionMs)
	assert.Equal(t, "tilt up", recs[1].Event.Name)
	assert.Equal(t, note.Eighth, recs[1].Event.Note)
	assert.False(t, recs[0].Recorded.IsZero())

	require.NoError(t, j.Close())

	// survives reopen
	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	recs, err = j.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}
