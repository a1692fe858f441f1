package resilience

import (
	"context"

	"github.com/MrWong99/cynicast/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with failover across several
// completion backends.
//
// Requests carrying attachments are only sent to backends whose
// capabilities report audio support; the others are skipped without
// touching their breakers.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional LLM provider.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Names returns the backend names in failover order.
func (f *LLMFallback) Names() []string { return f.group.Names() }

// Check reports whether any backend can currently be tried.
func (f *LLMFallback) Check(ctx context.Context) error { return f.group.Check(ctx) }

// Complete sends req to the first healthy eligible backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var keep func(llm.Provider) bool
	if hasAttachments(req) {
		keep = func(p llm.Provider) bool { return p.Capabilities().SupportsAudio }
	}
	return executeWhere(ctx, f.group, keep, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// Capabilities reports the primary's limits. SupportsAudio is true when any
// backend accepts audio.
func (f *LLMFallback) Capabilities() llm.Capabilities {
	caps := f.group.Primary().Capabilities()
	for _, e := range f.group.entries[1:] {
		if e.value.Capabilities().SupportsAudio {
			caps.SupportsAudio = true
		}
	}
	return caps
}

func hasAttachments(req llm.CompletionRequest) bool {
	for _, m := range req.Messages {
		if len(m.Attachments) > 0 {
			return true
		}
	}
	return false
}
