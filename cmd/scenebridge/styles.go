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
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// CLI color theme, matching the bridge's teal-on-slate branding.
var (
	colorTeal    = lipgloss.Color("#2DD4BF")
	colorSlate   = lipgloss.Color("#64748B")
	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#EAB308")
	colorError   = lipgloss.Color("#EF4444")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	styleMuted   = lipgloss.NewStyle().Foreground(colorSlate)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)

	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorTeal).
			Padding(0, 1)
)

// stdoutIsTerminal reports whether styled output makes sense. Piped
// output gets plain text so scripts can parse it.
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// render applies style only on a terminal.
func render(style lipgloss.Style, s string) string {
	if !stdoutIsTerminal() {
		return s
	}
	return style.Render(s)
}
