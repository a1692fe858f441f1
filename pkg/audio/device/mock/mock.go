// Package mock provides a test double for device.Backend.
//
// The Backend never touches real hardware. Tests push microphone samples with
// Capture and pull speaker output with Render, driving both callbacks on the
// test goroutine.
//
// Example:
//
//	b := &mock.Backend{}
//	mic, _ := b.OpenMicrophone(audio.Input, onSamples)
//	b.Capture(make([]float32, 4096))
//	out := b.Render(480)
package mock

import (
	"sync"

	"github.com/MrWong99/cynicast/pkg/audio"
	"github.com/MrWong99/cynicast/pkg/audio/device"
)

var _ device.Backend = (*Backend)(nil)

// Backend is a mock implementation of device.Backend.
type Backend struct {
	mu sync.Mutex

	// MicErr, if non-nil, is returned from OpenMicrophone.
	MicErr error

	// SpeakerErr, if non-nil, is returned from OpenSpeaker.
	SpeakerErr error

	// MicFormat and SpeakerFormat record the formats passed to the Open calls.
	MicFormat     audio.Format
	SpeakerFormat audio.Format

	// MicOpens and SpeakerOpens count successful Open calls.
	MicOpens     int
	SpeakerOpens int

	// MicCloses and SpeakerCloses count effective Close calls on streams.
	MicCloses     int
	SpeakerCloses int

	// CloseCount counts calls to Backend.Close.
	CloseCount int

	capture device.CaptureFunc
	render  device.RenderFunc
}

// OpenMicrophone records the call and stores fn for Capture.
func (b *Backend) OpenMicrophone(f audio.Format, fn device.CaptureFunc) (device.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MicErr != nil {
		return nil, b.MicErr
	}
	b.MicFormat = f
	b.MicOpens++
	b.capture = fn
	return &stream{close: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.MicCloses++
		b.capture = nil
	}}, nil
}

// OpenSpeaker records the call and stores fn for Render.
func (b *Backend) OpenSpeaker(f audio.Format, fn device.RenderFunc) (device.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SpeakerErr != nil {
		return nil, b.SpeakerErr
	}
	b.SpeakerFormat = f
	b.SpeakerOpens++
	b.render = fn
	return &stream{close: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.SpeakerCloses++
		b.render = nil
	}}, nil
}

// Close records the call.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	return nil
}

// Capture delivers samples to the open microphone callback. It reports
// false when no microphone is open.
func (b *Backend) Capture(samples []float32) bool {
	b.mu.Lock()
	fn := b.capture
	b.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(samples)
	return true
}

// Render pulls n samples from the open speaker callback. It returns nil when
// no speaker is open.
func (b *Backend) Render(n int) []float32 {
	b.mu.Lock()
	fn := b.render
	b.mu.Unlock()
	if fn == nil {
		return nil
	}
	out := make([]float32, n)
	fn(out)
	return out
}

// MicOpen reports whether a microphone stream is currently open.
func (b *Backend) MicOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capture != nil
}

// SpeakerOpen reports whether a speaker stream is currently open.
func (b *Backend) SpeakerOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.render != nil
}

// Counts returns a consistent snapshot of the open and close counters.
func (b *Backend) Counts() (micOpens, micCloses, speakerOpens, speakerCloses int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.MicOpens, b.MicCloses, b.SpeakerOpens, b.SpeakerCloses
}

type stream struct {
	once  sync.Once
	close func()
}

func (s *stream) Close() error {
	s.once.Do(s.close)
	return nil
}
