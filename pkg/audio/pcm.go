package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOddLength is returned when a PCM16 payload does not hold a whole number
// of samples.
var ErrOddLength = errors.New("audio: odd byte count in PCM16 data")

// pcmScale maps a float amplitude of 1.0 onto the int16 range.
const pcmScale = 32768.0

// Frame is one outbound block of captured audio, ready for the wire.
type Frame struct {
	// Data is base64-encoded little-endian int16 PCM.
	Data string

	// MIMEType tags the payload, e.g. "audio/pcm;rate=16000".
	MIMEType string

	// Samples is the number of samples encoded in Data.
	Samples int
}

// Chunk is one inbound block of synthesised audio as received from a
// transport. The payload stays base64 until the playback scheduler decodes it.
type Chunk struct {
	// Data is base64-encoded little-endian int16 PCM.
	Data string

	// SampleRate of the decoded PCM in Hz.
	SampleRate int
}

// Decode returns the chunk's samples as float32 amplitudes in [-1, 1).
// Malformed base64 and odd-length payloads are reported as errors.
func (c Chunk) Decode() ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(c.Data)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64: %w", err)
	}
	return PCM16ToFloat32(raw)
}

// ChunkFromPCM wraps raw int16 PCM into a base64 Chunk.
func ChunkFromPCM(pcm []byte, sampleRate int) Chunk {
	return Chunk{Data: base64.StdEncoding.EncodeToString(pcm), SampleRate: sampleRate}
}

// EncodeFrame converts float samples to int16 PCM and base64-encodes them
// with the MIME tag of f.
func EncodeFrame(samples []float32, f Format) Frame {
	return Frame{
		Data:     base64.StdEncoding.EncodeToString(Float32ToPCM16(samples)),
		MIMEType: f.MIMEType(),
		Samples:  len(samples),
	}
}

// Float32ToPCM16 converts float amplitudes to little-endian int16 PCM.
// Values are scaled by 32768, rounded and clamped to the int16 range, so
// full-scale positive input saturates at 32767 instead of wrapping.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToInt16(s)))
	}
	return out
}

// PCM16ToFloat32 reinterprets little-endian int16 PCM as float amplitudes.
func PCM16ToFloat32(pcm []byte) ([]float32, error) {
	if len(pcm)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / pcmScale
	}
	return out, nil
}

// BytesToFloat32 reinterprets little-endian IEEE-754 float32 samples, the
// layout audio devices deliver in float capture mode. Trailing bytes that do
// not form a whole sample are ignored.
func BytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// Float32ToBytes writes samples into dst as little-endian float32 and returns
// the number of bytes written.
func Float32ToBytes(dst []byte, samples []float32) int {
	n := min(len(dst)/4, len(samples))
	for i := range n {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(samples[i]))
	}
	return n * 4
}

func floatToInt16(s float32) int16 {
	v := math.Round(float64(s) * pcmScale)
	switch {
	case v != v: // NaN
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
