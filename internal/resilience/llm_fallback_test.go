package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/cynicast/pkg/provider/llm"
	llmmock "github.com/MrWong99/cynicast/pkg/provider/llm/mock"
)

func TestLLMFallback_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "primary"}}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "secondary"}}

	fb := NewLLMFallback(primary, "primary", quietConfig(3))
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "primary" {
		t.Errorf("content = %q, want primary", resp.Content)
	}
	if len(secondary.Calls()) != 0 {
		t.Errorf("secondary called %d times, want 0", len(secondary.Calls()))
	}
}

func TestLLMFallback_Failover(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "secondary"}}

	fb := NewLLMFallback(primary, "primary", quietConfig(3))
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "secondary" {
		t.Errorf("content = %q, want secondary", resp.Content)
	}
}

func TestLLMFallback_AttachmentsSkipTextOnlyBackends(t *testing.T) {
	t.Parallel()
	textOnly := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "text"}}
	audio := &llmmock.Provider{
		CompleteResponse:   &llm.CompletionResponse{Content: "audio"},
		CapabilitiesResult: llm.Capabilities{SupportsAudio: true},
	}

	fb := NewLLMFallback(textOnly, "anyllm", quietConfig(1))
	fb.AddFallback("gemini", audio)

	req := llm.CompletionRequest{Messages: []llm.Message{
		llm.UserMessage("Transcribe", llm.Attachment{MIMEType: "audio/mpeg", Data: []byte{1}}),
	}}
	resp, err := fb.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "audio" {
		t.Errorf("content = %q, want audio", resp.Content)
	}
	if len(textOnly.Calls()) != 0 {
		t.Error("text-only backend received an audio request")
	}

	resp, err = fb.Complete(context.Background(), llm.CompletionRequest{Messages: []llm.Message{llm.UserMessage("hola")}})
	if err != nil || resp.Content != "text" {
		t.Errorf("text request: resp=%v err=%v, want primary (breaker untouched)", resp, err)
	}
}

func TestLLMFallback_NoAudioBackend(t *testing.T) {
	t.Parallel()
	fb := NewLLMFallback(&llmmock.Provider{}, "anyllm", quietConfig(3))
	req := llm.CompletionRequest{Messages: []llm.Message{
		llm.UserMessage("x", llm.Attachment{MIMEType: "audio/wav", Data: []byte{1}}),
	}}
	if _, err := fb.Complete(context.Background(), req); !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_Capabilities(t *testing.T) {
	t.Parallel()
	fb := NewLLMFallback(&llmmock.Provider{CapabilitiesResult: llm.Capabilities{ContextWindow: 128000}}, "primary", quietConfig(3))
	fb.AddFallback("audio", &llmmock.Provider{CapabilitiesResult: llm.Capabilities{ContextWindow: 1, SupportsAudio: true}})

	caps := fb.Capabilities()
	if caps.ContextWindow != 128000 || !caps.SupportsAudio {
		t.Errorf("caps = %+v, want primary window with audio support", caps)
	}
}
