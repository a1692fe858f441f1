package live

import (
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/cynicast/pkg/audio"
)

const quantum = 1.0 / 32768

func constSamples(v float32, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func constChunk(v float32, n int) audio.Chunk {
	return audio.ChunkFromPCM(audio.Float32ToPCM16(constSamples(v, n)), audio.Output.SampleRate)
}

// allNear reports whether every sample in s is within one int16 step of v.
func allNear(s []float32, v float32) bool {
	for _, x := range s {
		if math.Abs(float64(x-v)) > quantum {
			return false
		}
	}
	return true
}

func TestScheduler_Gapless(t *testing.T) {
	t.Parallel()

	s := NewScheduler(audio.Output)
	s.Render(make([]float32, 480))

	second := int64(audio.Output.SampleRate)
	var prev Placement
	for i := range 3 {
		p, ok := s.Schedule(s.Epoch(), constSamples(0.1, int(second)))
		if !ok {
			t.Fatalf("chunk %d: Schedule rejected", i)
		}
		want := 480 + int64(i)*second
		if p.Start != want {
			t.Errorf("chunk %d: start = %d, want %d", i, p.Start, want)
		}
		if i > 0 && p.Start != prev.End {
			t.Errorf("chunk %d: start %d does not follow previous end %d", i, p.Start, prev.End)
		}
		if got := s.Duration(p.Frames()).Seconds(); got != 1 {
			t.Errorf("chunk %d: duration = %vs, want 1s", i, got)
		}
		prev = p
	}
	if got := s.Cursor(); got != 480+3*second {
		t.Errorf("cursor = %d, want %d", got, 480+3*second)
	}
}

func TestScheduler_NeverStartsInThePast(t *testing.T) {
	t.Parallel()

	s := NewScheduler(audio.Output)
	if _, ok := s.Schedule(s.Epoch(), constSamples(0.2, 100)); !ok {
		t.Fatal("Schedule rejected")
	}
	s.Render(make([]float32, 5000))

	p, ok := s.Schedule(s.Epoch(), constSamples(0.2, 100))
	if !ok {
		t.Fatal("Schedule rejected")
	}
	if p.Start != s.Now() {
		t.Errorf("start = %d, want clock %d", p.Start, s.Now())
	}
}

func TestScheduler_RenderRemovesFinishedBuffers(t *testing.T) {
	t.Parallel()

	s := NewScheduler(audio.Output)
	s.Schedule(s.Epoch(), constSamples(0.5, 10))

	out := make([]float32, 4)
	s.Render(out)
	if !allNear(out, 0.5) {
		t.Errorf("first block = %v, want all 0.5", out)
	}
	if s.Len() != 1 {
		t.Errorf("queue length = %d, want 1", s.Len())
	}

	out = make([]float32, 10)
	s.Render(out)
	if !allNear(out[:6], 0.5) || !allNear(out[6:], 0) {
		t.Errorf("second block = %v, want six samples of 0.5 then silence", out)
	}
	if s.Len() != 0 {
		t.Errorf("queue length = %d, want 0", s.Len())
	}
	if s.Now() != 14 {
		t.Errorf("clock = %d, want 14", s.Now())
	}
}

func TestScheduler_InterruptClearsState(t *testing.T) {
	t.Parallel()

	s := NewScheduler(audio.Output)
	before := s.Epoch()
	for range 3 {
		s.Schedule(before, constSamples(0.3, 24000))
	}
	s.Render(make([]float32, 30000))

	if n := s.Interrupt(); n != 2 {
		t.Errorf("Interrupt dropped %d buffers, want 2", n)
	}
	if s.Len() != 0 || s.Cursor() != 0 {
		t.Errorf("after interrupt: len=%d cursor=%d, want 0 and 0", s.Len(), s.Cursor())
	}
	if _, ok := s.Schedule(before, constSamples(0.3, 10)); ok {
		t.Error("Schedule accepted a buffer from the previous epoch")
	}

	p, err := s.Enqueue(constChunk(0.4, 240))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if p.Start != 30000 {
		t.Errorf("start after interrupt = %d, want clock 30000 (not the old cursor 72000)", p.Start)
	}

	out := make([]float32, 240)
	s.Render(out)
	if !allNear(out, 0.4) {
		t.Error("post-interrupt chunk did not play immediately")
	}
}

func TestScheduler_Close(t *testing.T) {
	t.Parallel()

	s := NewScheduler(audio.Output)
	s.Schedule(s.Epoch(), constSamples(0.5, 100))
	s.Close()
	s.Close()

	if _, ok := s.Schedule(s.Epoch(), constSamples(0.5, 100)); ok {
		t.Error("Schedule accepted a buffer after Close")
	}
	if _, err := s.Enqueue(constChunk(0.5, 10)); !errors.Is(err, ErrStaleChunk) {
		t.Errorf("Enqueue after Close: err = %v, want ErrStaleChunk", err)
	}

	out := constSamples(1, 50)
	s.Render(out)
	if !allNear(out, 0) {
		t.Error("Render after Close produced sound")
	}
	if s.Now() != 0 || s.Cursor() != 0 || s.Len() != 0 {
		t.Errorf("after Close: now=%d cursor=%d len=%d, want zeros", s.Now(), s.Cursor(), s.Len())
	}
}

func TestScheduler_EnqueueMalformed(t *testing.T) {
	t.Parallel()

	s := NewScheduler(audio.Output)
	tests := []struct {
		name  string
		chunk audio.Chunk
	}{
		{"bad base64", audio.Chunk{Data: "!!not base64!!", SampleRate: 24000}},
		{"odd length", audio.ChunkFromPCM([]byte{1, 2, 3}, 24000)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Enqueue(tc.chunk)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("err = %v, want ErrDecode", err)
			}
		})
	}
	if s.Len() != 0 || s.Cursor() != 0 {
		t.Errorf("malformed chunks changed state: len=%d cursor=%d", s.Len(), s.Cursor())
	}
}

func TestScheduler_EnqueueResamples(t *testing.T) {
	t.Parallel()

	s := NewScheduler(audio.Output)
	pcm := audio.Float32ToPCM16(constSamples(0.25, 160))
	p, err := s.Enqueue(audio.ChunkFromPCM(pcm, 16000))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if p.Frames() != 240 {
		t.Errorf("frames = %d, want 240 after 16k→24k resampling", p.Frames())
	}
}
