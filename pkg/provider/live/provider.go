// Package live defines the Provider interface for realtime conversational
// audio backends.
//
// A live provider wraps a bidirectional streaming service that accepts
// microphone audio and answers with synthesised speech in a single stateful
// session. Examples include the Gemini Live API and the OpenAI Realtime API.
//
// Everything a session reports (open, audio, interruption, transcript,
// failure, close) arrives on one ordered [Session.Events] channel so that the
// consumer observes transport events in the order the server sent them.
//
// All implementations must be safe for concurrent use.
package live

import (
	"context"
	"errors"

	"github.com/MrWong99/cynicast/pkg/audio"
)

// ErrSessionClosed is returned by Send after the session has been closed.
var ErrSessionClosed = errors.New("live: session closed")

// EventKind discriminates [Event] values.
type EventKind int

const (
	// EventOpened signals that the server accepted the session setup and is
	// ready for audio.
	EventOpened EventKind = iota + 1

	// EventAudio carries one chunk of synthesised speech in Event.Audio.
	EventAudio

	// EventInterrupted signals that the user barged in and the model stopped
	// its current response. Audio already delivered must be discarded.
	EventInterrupted

	// EventTurnComplete signals that the model finished a response.
	EventTurnComplete

	// EventTranscript carries recognised user speech or the text of the
	// model's spoken answer in Event.Text.
	EventTranscript

	// EventError signals a transport failure. Event.Err holds the cause.
	// No further events follow.
	EventError

	// EventClosed signals that the remote peer closed the session.
	// Event.Err holds the close reason, if any. No further events follow.
	EventClosed
)

// String returns the lower-case name of k.
func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventAudio:
		return "audio"
	case EventInterrupted:
		return "interrupted"
	case EventTurnComplete:
		return "turn_complete"
	case EventTranscript:
		return "transcript"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Speaker identifies who a transcript belongs to.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Event is a single notification from a live session.
type Event struct {
	Kind EventKind

	// Audio is set for EventAudio. Data stays base64 as received.
	Audio audio.Chunk

	// Text and Speaker are set for EventTranscript.
	Text    string
	Speaker Speaker

	// Err is set for EventError and optionally for EventClosed.
	Err error
}

// SessionConfig is the configuration for a new live session.
type SessionConfig struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// Voice is the prebuilt voice name used for synthesised speech.
	Voice string

	// Instructions is the system prompt that defines the persona.
	Instructions string

	// Transcribe asks the server to emit EventTranscript for both sides of the
	// conversation when the protocol supports it.
	Transcribe bool
}

// Session is an open live session. Callers must call Close when done.
type Session interface {
	// Send delivers one captured audio frame. Frames must be sent in capture
	// order. Returns ErrSessionClosed after Close.
	Send(ctx context.Context, frame audio.Frame) error

	// Events returns the ordered event stream. The channel is closed after
	// the final EventError or EventClosed, or after Close.
	Events() <-chan Event

	// Close terminates the session. Closing locally emits no further events.
	// Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any live backend.
type Provider interface {
	// Connect dials the backend and sends the session setup. It returns once
	// the setup is on the wire; EventOpened follows when the server accepts.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)

	// Name returns a short identifier such as "gemini".
	Name() string
}
