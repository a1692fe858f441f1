package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/MrWong99/cynicast/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestResampleMono16_SameRate(t *testing.T) {
	t.Parallel()
	pcm := samplesToBytes([]int16{100, 200, 300})
	out := audio.ResampleMono16(pcm, 24000, 24000)
	if len(out) != len(pcm) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(pcm))
	}
}

func TestResampleMono16_InputToOutputRate(t *testing.T) {
	t.Parallel()
	// 2 samples at 16kHz → 3 samples at 24kHz
	pcm := samplesToBytes([]int16{1000, 2000})
	out := audio.ResampleMono16(pcm, audio.Input.SampleRate, audio.Output.SampleRate)
	got := bytesToSamples(out)
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got[0] != 1000 {
		t.Errorf("first sample: got %d, want 1000", got[0])
	}
	last := got[len(got)-1]
	if last < 1600 || last > 2000 {
		t.Errorf("last sample: got %d, want between 1600 and 2000", last)
	}
}

func TestResampleMono16_Downsample(t *testing.T) {
	t.Parallel()
	pcm := samplesToBytes([]int16{100, 200, 300, 400, 500, 600})
	out := audio.ResampleMono16(pcm, 24000, 8000)
	if got := bytesToSamples(out); len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
}

func TestResampleMono16_ZeroRate(t *testing.T) {
	t.Parallel()
	pcm := samplesToBytes([]int16{100, 200})
	for _, rates := range [][2]int{{0, 24000}, {24000, 0}, {-1, 24000}} {
		out := audio.ResampleMono16(pcm, rates[0], rates[1])
		if len(out) != len(pcm) {
			t.Errorf("rates %v: expected unchanged output, got len %d", rates, len(out))
		}
	}
}

func TestResampleFloat32(t *testing.T) {
	t.Parallel()
	in := []float32{0, 0.5, 1, 0.5}
	out := audio.ResampleFloat32(in, 16000, 24000)
	if len(out) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(out))
	}
	if out[0] != 0 {
		t.Errorf("first sample: got %v, want 0", out[0])
	}
	for i, s := range out {
		if s < 0 || s > 1 {
			t.Errorf("sample %d out of source range: %v", i, s)
		}
	}
	if same := audio.ResampleFloat32(in, 16000, 16000); len(same) != len(in) {
		t.Errorf("same rate: got %d samples, want %d", len(same), len(in))
	}
}
