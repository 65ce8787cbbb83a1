// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, j.Close()) })
	return j
}

// TestRecordAndRecent checks the basic write/read cycle.
func TestRecordAndRecent(t *testing.T) {
	j := newTestJournal(t)

	j.Record(Entry{
		Kind:       KindOperation,
		RequestID:  "req-1",
		Operation:  "/node/create",
		Params:     map[string]any{"parent": "/obj", "type": "geo"},
		DurationMS: 1.25,
	})
	j.Record(Entry{
		Kind:      KindOperation,
		RequestID: "req-2",
		Operation: "/parm/set",
		Code:      "PARM_NOT_FOUND",
	})

	got, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "/parm/set", got[0].Operation)
	assert.Equal(t, "PARM_NOT_FOUND", got[0].Code)
	assert.Equal(t, "/node/create", got[1].Operation)
	assert.Equal(t, "req-1", got[1].RequestID)
	assert.Equal(t, "geo", got[1].Params["type"])
	assert.InDelta(t, 1.25, got[1].DurationMS, 1e-9)
	assert.False(t, got[1].Time.IsZero())
}

// TestRecentLimit checks limit handling including the default.
func TestRecentLimit(t *testing.T) {
	j := newTestJournal(t)
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		j.Record(Entry{
			Kind:      KindOperation,
			Operation: fmt.Sprintf("/op/%d", i),
			Time:      base.Add(time.Duration(i) * time.Second),
		})
	}

	got, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/op/4", got[0].Operation)
	assert.Equal(t, "/op/3", got[1].Operation)

	all, err := j.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

// TestOrderingByTime checks that submission order does not beat
// timestamp order.
func TestOrderingByTime(t *testing.T) {
	j := newTestJournal(t)
	now := time.Now()

	j.Record(Entry{Kind: KindEvent, Operation: "middle", Time: now.Add(-time.Second)})
	j.Record(Entry{Kind: KindEvent, Operation: "oldest", Time: now.Add(-2 * time.Second)})
	j.Record(Entry{Kind: KindEvent, Operation: "newest", Time: now})

	got, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "newest", got[0].Operation)
	assert.Equal(t, "middle", got[1].Operation)
	assert.Equal(t, "oldest", got[2].Operation)
}

// TestEventEntries checks the event-kind shape.
func TestEventEntries(t *testing.T) {
	j := newTestJournal(t)

	j.Record(Entry{
		Kind:      KindEvent,
		Operation: "parm_changed",
		Params:    map[string]any{"scope": "node", "path": "/obj/geo1/grid1/rows"},
	})

	got, err := j.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, KindEvent, got[0].Kind)
	assert.Empty(t, got[0].RequestID)
	assert.Equal(t, "node", got[0].Params["scope"])
}

// TestPersistence checks that entries survive a close/reopen cycle.
func TestPersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")

	j, err := Open(Config{Path: dir})
	require.NoError(t, err)
	j.Record(Entry{Kind: KindOperation, Operation: "/scene/save"})
	require.NoError(t, j.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/scene/save", got[0].Operation)
}

// TestCloseIdempotent checks double close and post-close records.
func TestCloseIdempotent(t *testing.T) {
	j, err := Open(Config{InMemory: true})
	require.NoError(t, err)

	j.Record(Entry{Kind: KindOperation, Operation: "/frame/set"})
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	// Best-effort drop, no panic.
	j.Record(Entry{Kind: KindOperation, Operation: "/frame/set"})
	j.Flush()
}
