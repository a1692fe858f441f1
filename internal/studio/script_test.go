package studio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/cynicast/pkg/provider/llm"
	llmmock "github.com/MrWong99/cynicast/pkg/provider/llm/mock"
)

func TestScriptRequest_ApplyDefaults(t *testing.T) {
	t.Parallel()

	var r ScriptRequest
	r.ApplyDefaults()
	want := ScriptRequest{
		ToolName:      "Gemini",
		ToneIntensity: 7,
		PodcastName:   "El Algoritmo Bizarro",
		HostName:      "Cyber-Vato",
	}
	if r != want {
		t.Errorf("defaults = %+v, want %+v", r, want)
	}

	r = ScriptRequest{ToolName: "  Copilot ", ToneIntensity: 3}
	r.ApplyDefaults()
	if r.ToolName != "Copilot" || r.ToneIntensity != 3 {
		t.Errorf("explicit values overwritten: %+v", r)
	}
}

func TestScriptRequest_Validate(t *testing.T) {
	t.Parallel()
	for _, n := range []int{-1, 11, 100} {
		if err := (ScriptRequest{ToneIntensity: n}).Validate(); !errors.Is(err, ErrInvalidIntensity) {
			t.Errorf("intensity %d: err = %v, want ErrInvalidIntensity", n, err)
		}
	}
	for _, n := range []int{1, 5, 10} {
		if err := (ScriptRequest{ToneIntensity: n}).Validate(); err != nil {
			t.Errorf("intensity %d: unexpected error %v", n, err)
		}
	}
}

func TestWriter_Generate(t *testing.T) {
	t.Parallel()

	opts, reader := testOptions(t)
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "  [HOST: Cyber-Vato] Hola.\n"}}
	w := NewWriter(p, opts...)

	s, err := w.Generate(context.Background(), ScriptRequest{ToolName: "ChatGPT", ToneIntensity: 9})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Content != "[HOST: Cyber-Vato] Hola." {
		t.Errorf("content = %q", s.Content)
	}
	if s.ToolName != "ChatGPT" || s.Title != "El Algoritmo Bizarro: ChatGPT" {
		t.Errorf("script = %+v", s)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("Complete called %d times, want 1", len(calls))
	}
	req := calls[0].Req
	if req.Temperature != 0.8 || !req.DisableThinking {
		t.Errorf("temperature=%v disableThinking=%v, want 0.8 and true", req.Temperature, req.DisableThinking)
	}
	if !strings.Contains(req.SystemPrompt, "[HOST: Cyber-Vato]") || !strings.Contains(req.SystemPrompt, "(ChatGPT)") {
		t.Errorf("system prompt missing host or tool:\n%s", req.SystemPrompt)
	}
	user := req.Messages[0].Content
	for _, want := range []string{`"El Algoritmo Bizarro"`, "Tema del episodio: ChatGPT.", "Nivel de sarcasmo (1-10): 9."} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
	if got := requestCount(t, reader, "script", "ok"); got != 1 {
		t.Errorf("ok script requests = %d, want 1", got)
	}
}

func TestWriter_EmptyResponseFallsBack(t *testing.T) {
	t.Parallel()
	opts, _ := testOptions(t)
	w := NewWriter(&llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "   "}}, opts...)

	s, err := w.Generate(context.Background(), ScriptRequest{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Content != FallbackScript {
		t.Errorf("content = %q, want fallback", s.Content)
	}
}

func TestWriter_ProviderError(t *testing.T) {
	t.Parallel()
	opts, reader := testOptions(t)
	boom := errors.New("quota exceeded")
	w := NewWriter(&llmmock.Provider{CompleteErr: boom}, opts...)

	_, err := w.Generate(context.Background(), ScriptRequest{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped provider error", err)
	}
	if !strings.HasPrefix(err.Error(), "studio: generate script:") {
		t.Errorf("err = %q, want studio prefix", err)
	}
	if got := requestCount(t, reader, "script", "error"); got != 1 {
		t.Errorf("error script requests = %d, want 1", got)
	}
}

func TestWriter_InvalidIntensitySkipsProvider(t *testing.T) {
	t.Parallel()
	opts, _ := testOptions(t)
	p := &llmmock.Provider{}
	w := NewWriter(p, opts...)

	if _, err := w.Generate(context.Background(), ScriptRequest{ToneIntensity: 42}); !errors.Is(err, ErrInvalidIntensity) {
		t.Errorf("err = %v, want ErrInvalidIntensity", err)
	}
	if len(p.Calls()) != 0 {
		t.Error("provider called for an invalid request")
	}
}
