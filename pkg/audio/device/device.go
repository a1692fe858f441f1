// Package device opens the local microphone and speaker.
//
// A [Backend] hands out capture and playback streams that exchange float32
// samples with the caller through callbacks running on the audio thread.
// Callbacks must return quickly and never block on network I/O.
package device

import (
	"errors"

	"github.com/MrWong99/cynicast/pkg/audio"
)

// ErrUnavailable is returned when the operating system refuses access to an
// audio device or no suitable device exists.
var ErrUnavailable = errors.New("device: audio device unavailable")

// CaptureFunc receives one block of captured mono samples. The slice is only
// valid for the duration of the call.
type CaptureFunc func(samples []float32)

// RenderFunc fills out with the next block of playback samples. Unfilled
// entries must be written as silence.
type RenderFunc func(out []float32)

// Stream is a running capture or playback device.
type Stream interface {
	// Close stops the device and releases it. Safe to call more than once.
	Close() error
}

// Backend opens audio devices.
type Backend interface {
	// OpenMicrophone starts capturing in format f and delivers blocks to fn.
	// An error wrapping [ErrUnavailable] means access was denied.
	OpenMicrophone(f audio.Format, fn CaptureFunc) (Stream, error)

	// OpenSpeaker starts playback in format f, pulling samples from fn.
	OpenSpeaker(f audio.Format, fn RenderFunc) (Stream, error)

	// Close releases the backend. Streams must be closed first.
	Close() error
}
