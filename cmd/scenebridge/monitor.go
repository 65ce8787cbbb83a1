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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the bridge's invalidation events live",
	Long: `Polls /extract/events on a running bridge and renders the drained
events as a scrolling feed. Press q to quit.

Note: the monitor consumes the poll queue; other polling clients will
not see the events it drains. Point it at a scratch bridge, or use the
websocket feed at /events/stream for shared consumption.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second,
		"poll interval")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if !stdoutIsTerminal() {
		return errors.New("monitor needs a terminal; use /extract/events or /events/stream for scripts")
	}

	m := newMonitorModel(baseURL(), monitorInterval)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// eventRow is one drained invalidation event as the monitor shows it.
type eventRow struct {
	EventType string  `json:"event_type"`
	Scope     string  `json:"scope"`
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
}

// pollMsg delivers one poll's result into the update loop.
type pollMsg struct {
	events []eventRow
	err    error
}

// tickMsg schedules the next poll.
type tickMsg time.Time

// monitorModel is the bubbletea model behind the monitor command.
type monitorModel struct {
	baseURL  string
	interval time.Duration
	client   *http.Client

	rows    []string
	drained int
	lastErr error

	vp    viewport.Model
	ready bool
}

// maxRows bounds the scrollback so an overnight monitor session does
// not grow without limit.
const maxRows = 500

func newMonitorModel(baseURL string, interval time.Duration) monitorModel {
	return monitorModel{
		baseURL:  baseURL,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.poll, m.tick())
}

func (m monitorModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// poll drains the bridge's event queue once.
func (m monitorModel) poll() tea.Msg {
	resp, err := m.client.Get(m.baseURL + "/extract/events")
	if err != nil {
		return pollMsg{err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return pollMsg{err: fmt.Errorf("poll returned %s", resp.Status)}
	}
	var body struct {
		Events []eventRow `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pollMsg{err: err}
	}
	return pollMsg{events: body.Events}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := 2
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight
		}
		m.vp.SetContent(strings.Join(m.rows, "\n"))

	case tickMsg:
		return m, tea.Batch(m.poll, m.tick())

	case pollMsg:
		m.lastErr = msg.err
		if len(msg.events) > 0 {
			m.drained += len(msg.events)
			for _, e := range msg.events {
				m.rows = append(m.rows, formatEventRow(e))
			}
			if len(m.rows) > maxRows {
				m.rows = m.rows[len(m.rows)-maxRows:]
			}
			if m.ready {
				m.vp.SetContent(strings.Join(m.rows, "\n"))
				m.vp.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m monitorModel) View() string {
	if !m.ready {
		return "connecting to " + m.baseURL + "..."
	}
	header := styleTitle.Render("SceneBridge events") +
		styleMuted.Render(fmt.Sprintf("  %s  drained %d  (q to quit)", m.baseURL, m.drained))
	if m.lastErr != nil {
		header += "  " + styleError.Render("poll failed: "+m.lastErr.Error())
	}
	return header + "\n\n" + m.vp.View()
}

// formatEventRow renders one event as a feed line.
func formatEventRow(e eventRow) string {
	ts := time.Unix(0, int64(e.Timestamp*float64(time.Second))).Format("15:04:05.000")
	return fmt.Sprintf("%s  %-19s %-8s %s",
		styleMuted.Render(ts), colorizeEventType(e.EventType), e.Scope, e.Path)
}

// colorizeEventType styles destructive events red, structural ones teal.
func colorizeEventType(eventType string) string {
	padded := fmt.Sprintf("%-19s", eventType)
	switch eventType {
	case "node_deleted":
		return styleError.Render(padded)
	case "node_created", "connection_changed":
		return styleTitle.Render(padded)
	case "hip_saved":
		return styleSuccess.Render(padded)
	default:
		return padded
	}
}
