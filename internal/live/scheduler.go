package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/cynicast/pkg/audio"
)

// Placement describes where a buffer was scheduled on the output timeline.
// Start and End are sample frames at the scheduler's output rate.
type Placement struct {
	ID    uint64
	Start int64
	End   int64
}

// Frames returns the buffer length in sample frames.
func (p Placement) Frames() int64 { return p.End - p.Start }

type scheduled struct {
	start   int64
	samples []float32
}

// Scheduler places inbound audio gaplessly on the speaker's timeline.
//
// The output clock is the number of frames the speaker has pulled through
// [Scheduler.Render]. A buffer starts at max(cursor, clock) and moves the
// cursor to its end, so consecutive buffers play back to back and never
// start in the past. Render runs on the audio thread; every other method
// may be called from any goroutine.
type Scheduler struct {
	format audio.Format

	mu     sync.Mutex
	clock  int64
	cursor int64
	epoch  uint64
	nextID uint64
	queue  map[uint64]*scheduled
	closed bool
}

// NewScheduler returns an empty scheduler for output format f.
func NewScheduler(f audio.Format) *Scheduler {
	return &Scheduler{
		format: f,
		queue:  make(map[uint64]*scheduled),
	}
}

// Epoch returns the current generation. It changes on every interruption
// and on Close.
func (s *Scheduler) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Schedule registers samples for playback. It reports false when epoch is
// no longer current or the scheduler is closed; the samples are discarded.
func (s *Scheduler) Schedule(epoch uint64, samples []float32) (Placement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || epoch != s.epoch {
		return Placement{}, false
	}

	start := max(s.cursor, s.clock)
	end := start + int64(len(samples))
	s.cursor = end
	s.nextID++
	p := Placement{ID: s.nextID, Start: start, End: end}
	if len(samples) > 0 {
		s.queue[p.ID] = &scheduled{start: start, samples: samples}
	}
	return p, true
}

// Enqueue decodes chunk outside the lock and schedules it against the epoch
// observed before decoding. A malformed chunk yields an error wrapping
// [ErrDecode]; a chunk overtaken by an interruption or Close yields
// [ErrStaleChunk].
func (s *Scheduler) Enqueue(chunk audio.Chunk) (Placement, error) {
	epoch := s.Epoch()

	samples, err := chunk.Decode()
	if err != nil {
		return Placement{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if chunk.SampleRate > 0 && chunk.SampleRate != s.format.SampleRate {
		samples = audio.ResampleFloat32(samples, chunk.SampleRate, s.format.SampleRate)
	}

	p, ok := s.Schedule(epoch, samples)
	if !ok {
		return Placement{}, ErrStaleChunk
	}
	return p, nil
}

// Render mixes every buffer overlapping the next len(out) frames into out,
// advances the clock and drops buffers that have played to their end.
func (s *Scheduler) Render(out []float32) {
	clear(out)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	base := s.clock
	limit := base + int64(len(out))
	for id, e := range s.queue {
		end := e.start + int64(len(e.samples))
		from, to := max(base, e.start), min(limit, end)
		for t := from; t < to; t++ {
			out[t-base] += e.samples[t-e.start]
		}
		if end <= limit {
			delete(s.queue, id)
		}
	}
	s.clock = limit
}

// Interrupt drops every queued buffer, resets the cursor to zero and starts
// a new epoch. It returns the number of buffers dropped.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// Close flushes the queue like [Scheduler.Interrupt] and rejects all later
// scheduling. Render produces silence afterwards. Safe to call repeatedly.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	s.closed = true
	s.clock = 0
}

func (s *Scheduler) flush() int {
	n := len(s.queue)
	clear(s.queue)
	s.cursor = 0
	s.epoch++
	return n
}

// Now returns the output clock in frames.
func (s *Scheduler) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Cursor returns the earliest frame at which the next buffer may start,
// ignoring the clock.
func (s *Scheduler) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Len returns the number of queued buffers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Duration converts frames at the output rate to wall time.
func (s *Scheduler) Duration(frames int64) time.Duration {
	return s.format.Duration(frames)
}
