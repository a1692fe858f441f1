// Package llm defines the Provider interface for text and multimodal model
// backends used by the script studio and the audio lab.
//
// An LLM provider wraps a remote model API (Gemini, OpenAI, or anything
// any-llm-go can reach) and exposes a single-shot completion call. Requests
// may carry binary attachments such as an uploaded audio file; providers that
// cannot accept them return [ErrAttachmentsUnsupported] instead of silently
// dropping them.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"
	"errors"
)

// ErrAttachmentsUnsupported is returned by Complete when a request carries
// attachments the backend cannot process.
var ErrAttachmentsUnsupported = errors.New("llm: provider does not accept attachments")

// Usage holds token accounting information returned by the LLM backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation.
	SystemPrompt string

	// Temperature controls output randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means provider
	// default.
	MaxTokens int

	// DisableThinking turns off the model's internal reasoning budget on
	// backends that support one.
	DisableThinking bool
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the reply. It may be empty when the model
	// returned no text; callers decide how to present that.
	Content string

	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata about the configured model.
	Capabilities() Capabilities
}
