// Package audio holds the PCM primitives shared by the live session, the
// device layer and the realtime transports.
//
// Every stream in cynicast is 16-bit signed little-endian mono PCM. Captured
// microphone audio runs at [Input] (16 kHz) and synthesised model audio at
// [Output] (24 kHz). Samples handed to and from audio devices are float32
// amplitudes in [-1, 1]; the wire always carries int16, base64-encoded.
package audio

import (
	"fmt"
	"time"
)

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

var (
	// Input is the format of outbound microphone frames.
	Input = Format{SampleRate: 16000, Channels: 1}

	// Output is the format of inbound synthesised chunks.
	Output = Format{SampleRate: 24000, Channels: 1}
)

// MIMEType returns the raw PCM MIME tag for f, e.g. "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}

// Duration returns the playback duration of n sample frames.
func (f Format) Duration(frames int64) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Frames returns the number of sample frames in d, truncated.
func (f Format) Frames(d time.Duration) int64 {
	return int64(d) * int64(f.SampleRate) / int64(time.Second)
}

// BytesPerFrame is the size of one sample frame in int16 PCM.
func (f Format) BytesPerFrame() int {
	ch := f.Channels
	if ch <= 0 {
		ch = 1
	}
	return 2 * ch
}

// String returns a human-readable form such as "16000Hz mono".
func (f Format) String() string {
	return formatString(f.SampleRate, f.Channels)
}
