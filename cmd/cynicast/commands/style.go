package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/cynicast/internal/live"
	transport "github.com/MrWong99/cynicast/pkg/provider/live"
)

var (
	accent = lipgloss.Color("#39ff14")
	purple = lipgloss.Color("#b026ff")
	muted  = lipgloss.Color("#6b7280")
	danger = lipgloss.Color("#ff3b30")

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(danger)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60a5fa"))
	modelStyle = lipgloss.NewStyle().Bold(true).Foreground(purple)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1)
)

// meterWidth is the number of cells in the microphone level meter.
const meterWidth = 20

// meter renders a microphone level in [0,1] as a bar of meterWidth cells.
func meter(level float64) string {
	level = min(max(level, 0), 1)
	n := int(level*meterWidth + 0.5)
	return labelStyle.Render(strings.Repeat("█", n)) +
		mutedStyle.Render(strings.Repeat("░", meterWidth-n))
}

// stateLabel is the on-air indicator for a session state.
func stateLabel(s live.State) string {
	switch s {
	case live.StateConnecting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#facc15")).Render("◌ CONECTANDO")
	case live.StateActive:
		return lipgloss.NewStyle().Bold(true).Foreground(danger).Render("● AL AIRE")
	case live.StateError:
		return errorStyle.Render("✕ ERROR")
	default:
		return mutedStyle.Render("○ FUERA DEL AIRE")
	}
}

// statusLine renders the single-line live status shown while a session runs.
func statusLine(snap live.Snapshot) string {
	line := stateLabel(snap.State)
	if snap.State == live.StateActive {
		line += "  MIC " + meter(snap.Volume)
		if snap.Queued > 0 {
			line += mutedStyle.Render(fmt.Sprintf("  cola %d", snap.Queued))
		}
	}
	return line
}

// transcriptLine renders a transcript with a speaker label.
func transcriptLine(t live.Transcript) string {
	if t.Speaker == transport.SpeakerUser {
		return userStyle.Render("TÚ") + "  " + t.Text
	}
	return modelStyle.Render("PRODUCTOR") + "  " + t.Text
}

// summary renders label/value rows in a bordered box.
func summary(title string, rows [][2]string) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(title))
	for _, r := range rows {
		v := r[1]
		if v == "" {
			v = mutedStyle.Render("(not configured)")
		}
		fmt.Fprintf(&b, "\n%-12s %s", r[0], v)
	}
	return boxStyle.Render(b.String())
}

func providerValue(name, model string) string {
	if name == "" || model == "" {
		return name
	}
	return name + " / " + model
}
