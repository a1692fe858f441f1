// Package stt defines the Provider interface for speech-to-text backends.
//
// The audio lab hands a complete uploaded recording to a Provider and gets
// the verbatim text back. Streaming recognition is handled by the live
// transports, not here.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a Request carries no audio bytes.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Request is a single recording to transcribe.
type Request struct {
	// Name is the original file name. Providers that upload multipart forms
	// use its extension to infer the container.
	Name string

	// MIMEType of Data, e.g. "audio/mpeg".
	MIMEType string

	Data []byte

	// Language is an optional ISO-639-1 hint ("es"). Empty means auto-detect.
	Language string

	// Prompt optionally primes the recogniser with vocabulary or style.
	Prompt string
}

// Provider is the abstraction over any batch STT backend.
type Provider interface {
	// Transcribe returns the recognised text of req.
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}
