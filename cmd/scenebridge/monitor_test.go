// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sized(t *testing.T, m monitorModel) monitorModel {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(monitorModel)
}

func TestMonitorModelAppendsEvents(t *testing.T) {
	m := sized(t, newMonitorModel("http://127.0.0.1:8765", time.Second))
	require.True(t, m.ready)

	updated, _ := m.Update(pollMsg{events: []eventRow{
		{EventType: "node_created", Scope: "network", Path: "/obj/a", Timestamp: 1700000000.5},
		{EventType: "connection_changed", Scope: "node", Path: "/obj/b", Timestamp: 1700000001.0},
	}})
	m = updated.(monitorModel)

	assert.Equal(t, 2, m.drained)
	require.Len(t, m.rows, 2)
	assert.Contains(t, m.rows[0], "/obj/a")
	assert.Contains(t, m.View(), "drained 2")
}

func TestMonitorModelBoundsScrollback(t *testing.T) {
	m := sized(t, newMonitorModel("http://127.0.0.1:8765", time.Second))

	batch := make([]eventRow, maxRows+50)
	for i := range batch {
		batch[i] = eventRow{EventType: "parm_changed", Scope: "node", Path: "/obj/n"}
	}
	updated, _ := m.Update(pollMsg{events: batch})
	m = updated.(monitorModel)

	assert.Len(t, m.rows, maxRows)
	assert.Equal(t, maxRows+50, m.drained)
}

func TestMonitorModelShowsPollError(t *testing.T) {
	m := sized(t, newMonitorModel("http://127.0.0.1:8765", time.Second))

	updated, _ := m.Update(pollMsg{err: errors.New("connection refused")})
	m = updated.(monitorModel)
	assert.Contains(t, m.View(), "connection refused")

	// A healthy poll clears the banner.
	updated, _ = m.Update(pollMsg{events: nil})
	m = updated.(monitorModel)
	assert.NotContains(t, m.View(), "connection refused")
}

func TestMonitorModelQuits(t *testing.T) {
	m := sized(t, newMonitorModel("http://127.0.0.1:8765", time.Second))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
