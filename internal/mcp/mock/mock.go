// Package mock provides an in-memory test double for the [mcp.Studio]
// interface.
//
// [Studio] records every call for assertion in tests and exposes exported
// fields that control what the mock returns. It is safe for concurrent use.
//
// Typical usage:
//
//	st := &mock.Studio{Script: &studio.Script{Title: "X: Y"}}
//	srv := mcp.NewServer(st)
//	// … call the tool …
//	if got := len(st.ScriptCalls()); got != 1 {
//	    t.Errorf("expected 1 GenerateScript call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/cynicast/internal/studio"
)

// Studio is a configurable test double for mcp.Studio.
type Studio struct {
	mu sync.Mutex

	// Script is returned by GenerateScript when ScriptErr is nil. When nil a
	// script echoing the request is returned.
	Script    *studio.Script
	ScriptErr error

	// Audio is returned by ProcessAudio when AudioErr is nil. When nil a
	// result with the standard header and empty text is returned.
	Audio    *studio.AudioResult
	AudioErr error

	scriptCalls []studio.ScriptRequest
	audioCalls  []studio.AudioRequest
}

// GenerateScript records req and returns Script, ScriptErr.
func (s *Studio) GenerateScript(_ context.Context, req studio.ScriptRequest) (*studio.Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scriptCalls = append(s.scriptCalls, req)
	if s.ScriptErr != nil {
		return nil, s.ScriptErr
	}
	if s.Script != nil {
		out := *s.Script
		return &out, nil
	}
	return &studio.Script{Title: req.PodcastName + ": " + req.ToolName, ToolName: req.ToolName}, nil
}

// ProcessAudio records req and returns Audio, AudioErr.
func (s *Studio) ProcessAudio(_ context.Context, req studio.AudioRequest) (*studio.AudioResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioCalls = append(s.audioCalls, req)
	if s.AudioErr != nil {
		return nil, s.AudioErr
	}
	if s.Audio != nil {
		out := *s.Audio
		return &out, nil
	}
	return &studio.AudioResult{Header: studio.Header(req.Name, req.Mode, req.Sarcasm)}, nil
}

// ScriptCalls returns a copy of every GenerateScript request.
func (s *Studio) ScriptCalls() []studio.ScriptRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]studio.ScriptRequest(nil), s.scriptCalls...)
}

// AudioCalls returns a copy of every ProcessAudio request.
func (s *Studio) AudioCalls() []studio.AudioRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]studio.AudioRequest(nil), s.audioCalls...)
}
