package studio

import (
	"strings"
	"testing"
)

func TestParseScript(t *testing.T) {
	t.Parallel()

	content := strings.Join([]string{
		"## 1. Banda Sonora (Intro)",
		"**Intro**",
		"[HOST: Cyber-Vato] Bienvenidos.",
		"  [SFX: risas enlatadas]",
		"[MÚSICA: Polka Industrial]",
		"Hoy hablamos de **Gemini** y su **entusiasmo**.",
		"Texto normal.",
		"[nota sin cierre",
	}, "\r\n")

	lines := ParseScript(content)
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8", len(lines))
	}

	want := []struct {
		kind LineKind
		text string
	}{
		{LineHeader, "1. Banda Sonora (Intro)"},
		{LineHeader, "Intro"},
		{LineCue, "[HOST: Cyber-Vato] Bienvenidos."},
		{LineSoundCue, "  [SFX: risas enlatadas]"},
		{LineSoundCue, "[MÚSICA: Polka Industrial]"},
		{LineText, "Hoy hablamos de **Gemini** y su **entusiasmo**."},
		{LineText, "Texto normal."},
		{LineText, "[nota sin cierre"},
	}
	for i, w := range want {
		if lines[i].Kind != w.kind || lines[i].Text != w.text {
			t.Errorf("line %d = {%d %q}, want {%d %q}", i, lines[i].Kind, lines[i].Text, w.kind, w.text)
		}
	}

	spans := lines[5].Spans
	wantSpans := []Span{
		{"Hoy hablamos de ", false},
		{"Gemini", true},
		{" y su ", false},
		{"entusiasmo", true},
		{".", false},
	}
	if len(spans) != len(wantSpans) {
		t.Fatalf("spans = %+v", spans)
	}
	for i := range wantSpans {
		if spans[i] != wantSpans[i] {
			t.Errorf("span %d = %+v, want %+v", i, spans[i], wantSpans[i])
		}
	}
	if lines[6].Spans != nil {
		t.Errorf("plain line has spans: %+v", lines[6].Spans)
	}
}

func TestScreenplay_Render(t *testing.T) {
	t.Parallel()

	out := NewScreenplay(DefaultTheme, 0).Render("# Intro\n[SFX: bip]\nHola **mundo**")
	for _, want := range []string{"PROJECT: PODCAST_GEN_AI", "Intro", "[SFX: bip]", "mundo", "--- FIN DE LA TRANSMISIÓN ---"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "**") || strings.Contains(out, "# Intro") {
		t.Errorf("markdown markers leaked into output:\n%s", out)
	}
}
