// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui renders merge progress and the final MergeReport to a
// terminal using lipgloss styling.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/chamerge/internal/merge"
	"github.com/AleutianAI/chamerge/internal/report"
)

var (
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
	ColorAccent  = lipgloss.Color("#20B9B4")
)

var Styles = struct {
	Title   lipgloss.Style
	Phase   lipgloss.Style
	Done    lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Phase:   lipgloss.NewStyle().Foreground(ColorAccent),
	Done:    lipgloss.NewStyle().Foreground(ColorSuccess),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1),
}

// phaseOrder fixes the display order of merge.Phase* constants regardless
// of the order their Events actually arrive in.
var phaseOrder = []string{
	merge.PhaseResolveDependencies,
	merge.PhaseFetchFocalGraph,
	merge.PhaseBuildClosure,
	merge.PhaseHarvest,
	merge.PhaseResolve,
	merge.PhaseDone,
}

var phaseLabel = map[string]string{
	merge.PhaseResolveDependencies: "resolve dependencies",
	merge.PhaseFetchFocalGraph:     "fetch focal graph",
	merge.PhaseBuildClosure:        "build hierarchy & type dictionary",
	merge.PhaseHarvest:             "harvest external edges",
	merge.PhaseResolve:             "resolve call sites",
	merge.PhaseDone:                "done",
}

// PhaseList renders the ordered phase list with a checkmark on every phase
// before reached, the reached phase highlighted with a dot, and later phases
// muted. An unknown reached value checks every phase.
func PhaseList(reached string) string {
	var b strings.Builder
	seenReached := false
	for _, phase := range phaseOrder {
		switch {
		case seenReached:
			fmt.Fprintf(&b, "%s %s\n", Styles.Muted.Render("○"), Styles.Muted.Render(phaseLabel[phase]))
		case phase == reached:
			fmt.Fprintf(&b, "%s %s\n", Styles.Done.Render("●"), Styles.Phase.Render(phaseLabel[phase]))
			seenReached = true
		default:
			fmt.Fprintf(&b, "%s %s\n", Styles.Done.Render("✓"), phaseLabel[phase])
		}
	}
	return b.String()
}

// ReportSummary renders a MergeReport snapshot as a styled box.
func ReportSummary(snap report.Snapshot) string {
	lines := []string{
		fmt.Sprintf("dependencies dropped:     %s", countStyle(snap.DependenciesDropped)),
		fmt.Sprintf("callables dropped:        %s", countStyle(snap.CallablesDropped)),
		fmt.Sprintf("dynamic sites unresolved: %s", countStyle(snap.DynamicSitesUnresolved)),
		fmt.Sprintf("sites resolved to zero:   %s", countStyle(snap.SitesResolvedZero)),
	}
	body := Styles.Title.Render("merge report") + "\n" + strings.Join(lines, "\n")
	return Styles.Box.Width(48).Render(body)
}

func countStyle(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return Styles.Done.Render(s)
	}
	return Styles.Warning.Render(s)
}

// ProgressLine renders a single one-line status update for a streaming
// terminal (as opposed to PhaseList's full redraw), suited for piping
// through a log rather than an alt-screen renderer.
func ProgressLine(e merge.Event) string {
	return fmt.Sprintf("%s %s %s",
		Styles.Muted.Render(e.At.Format("15:04:05")),
		Styles.Phase.Render(phaseLabel[e.Phase]),
		Styles.Muted.Render(e.CorrelationID))
}
