package studio

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// LineKind classifies a script line for rendering.
type LineKind int

const (
	LineText LineKind = iota
	LineHeader
	LineCue
	// LineSoundCue is a cue that mentions SFX or music.
	LineSoundCue
)

// Span is a run of text within a line.
type Span struct {
	Text string
	Bold bool
}

// Line is one parsed script line.
type Line struct {
	Kind  LineKind
	Text  string
	Spans []Span
}

// ParseScript splits generated script content into classified lines.
//
// A line whose trimmed form starts with "[" and contains "]" is a cue. A line
// starting with "#" or "**" is a header, with every "#" and "*" removed.
// Other lines are split on "**" into alternating plain and bold spans.
func ParseScript(content string) []Line {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	for _, s := range raw {
		lines = append(lines, parseLine(s))
	}
	return lines
}

func parseLine(s string) Line {
	trimmed := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(trimmed, "[") && strings.Contains(s, "]"):
		lower := strings.ToLower(s)
		if strings.Contains(lower, "sfx") || strings.Contains(lower, "música") {
			return Line{Kind: LineSoundCue, Text: s}
		}
		return Line{Kind: LineCue, Text: s}
	case strings.HasPrefix(s, "#") || strings.HasPrefix(s, "**"):
		return Line{Kind: LineHeader, Text: strings.TrimSpace(strings.NewReplacer("*", "", "#", "").Replace(s))}
	}

	line := Line{Kind: LineText, Text: s}
	if !strings.Contains(s, "**") {
		return line
	}
	for i, part := range strings.Split(s, "**") {
		if part == "" {
			continue
		}
		line.Spans = append(line.Spans, Span{Text: part, Bold: i%2 == 1})
	}
	return line
}

// Theme holds the screenplay colours.
type Theme struct {
	Accent lipgloss.Color
	Sound  lipgloss.Color
	Header lipgloss.Color
	Body   lipgloss.Color
	Dim    lipgloss.Color
}

// DefaultTheme mirrors the on-air look: acid green cues, neon purple sound.
var DefaultTheme = Theme{
	Accent: lipgloss.Color("#39ff14"),
	Sound:  lipgloss.Color("#b026ff"),
	Header: lipgloss.Color("#ffffff"),
	Body:   lipgloss.Color("#d1d5db"),
	Dim:    lipgloss.Color("#4b5563"),
}

// Screenplay renders scripts for a terminal.
type Screenplay struct {
	cue, sound, header, body, bold, dim lipgloss.Style
	width                               int
}

// NewScreenplay builds styles from t. Width wraps body text; zero disables
// wrapping.
func NewScreenplay(t Theme, width int) *Screenplay {
	body := lipgloss.NewStyle().Foreground(t.Body)
	if width > 0 {
		body = body.Width(width)
	}
	return &Screenplay{
		cue:    lipgloss.NewStyle().Bold(true).Foreground(t.Accent).MarginTop(1),
		sound:  lipgloss.NewStyle().Bold(true).Italic(true).Foreground(t.Sound).MarginTop(1),
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Header).Underline(true).MarginTop(1),
		body:   body,
		bold:   lipgloss.NewStyle().Bold(true).Foreground(t.Header),
		dim:    lipgloss.NewStyle().Foreground(t.Dim),
		width:  width,
	}
}

// Render formats content as a screenplay with a banner and sign-off.
func (s *Screenplay) Render(content string) string {
	var b strings.Builder
	b.WriteString(s.dim.Render("PROJECT: PODCAST_GEN_AI\nSTATUS: FINAL_DRAFT"))
	b.WriteString("\n\n")
	for _, l := range ParseScript(content) {
		b.WriteString(s.renderLine(l))
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(s.dim.Render("--- FIN DE LA TRANSMISIÓN ---"))
	b.WriteByte('\n')
	return b.String()
}

func (s *Screenplay) renderLine(l Line) string {
	switch l.Kind {
	case LineCue:
		return s.cue.Render(l.Text)
	case LineSoundCue:
		return s.sound.Render(l.Text)
	case LineHeader:
		return s.header.Render(l.Text)
	}
	if len(l.Spans) == 0 {
		return s.body.Render(l.Text)
	}
	var b strings.Builder
	for _, sp := range l.Spans {
		if sp.Bold {
			b.WriteString(s.bold.Render(sp.Text))
		} else {
			b.WriteString(sp.Text)
		}
	}
	return s.body.Render(b.String())
}
