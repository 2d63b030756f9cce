package cmd

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/mittwald/mittprobe/pkg/probe"
)

var colorSuccess = lipgloss.Color("#00B785")

var styleUp = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
var styleDown = lipgloss.NewStyle().Foreground(lipgloss.Color("#e1244c")).Bold(true)
var styleHighlight = lipgloss.NewStyle().Foreground(lipgloss.Color("#407FF8")).Bold(true)
var styleNotSet = lipgloss.NewStyle().Foreground(lipgloss.Color("#5D689C"))

var styleStatusMainLine = lipgloss.NewStyle().Margin(1, 0, 0, 0)
var styleListItem = lipgloss.NewStyle().Padding(0, 2)

func statusStyle(s health.Status) (string, lipgloss.Style) {
	if s.IsUp() {
		return "▶︎", styleUp
	}
	return "◼︎", styleDown
}

// ProbeStatusLine renders a single report as one line.
func ProbeStatusLine(name string, r health.Report) string {
	symbol, style := statusStyle(r.Status())

	parts := []string{
		style.Render(symbol), " ",
		styleHighlight.Render(name), " (",
		style.Render(string(r.Status())),
	}

	if reason := r.Reason(); reason != "" {
		parts = append(parts, "; reason=", styleHighlight.Render(reason))
	}
	if msg, ok := r.Detail("error"); ok {
		parts = append(parts, "; error=", styleDown.Render(fmt.Sprint(msg)))
	}
	if ms, ok := r.Detail("timeMs"); ok {
		parts = append(parts, "; timeMs=", styleHighlight.Render(fmt.Sprint(ms)))
	} else {
		parts = append(parts, "; timeMs=", styleNotSet.Render("<not measured>"))
	}

	parts = append(parts, ")")
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}

// RenderStatus renders a status response with one line per probe, sorted
// by probe name.
func RenderStatus(response probe.StatusResponse) string {
	names := make([]string, 0, len(response.Probes))
	for name := range response.Probes {
		names = append(names, name)
	}
	sort.Strings(names)

	symbol, style := statusStyle(response.Status)
	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Left,
			style.Render(symbol), " overall ",
			style.Render(string(response.Status)),
			styleNotSet.Render(" (check "+response.ID+")"),
		),
		"",
	}

	for _, name := range names {
		lines = append(lines, styleListItem.Render(ProbeStatusLine(name, response.Probes[name])))
	}

	return styleStatusMainLine.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
