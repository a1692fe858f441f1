package live

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/pkg/audio"
)

// capture turns microphone blocks into fixed-size outbound frames.
//
// write runs on the audio thread and is the only writer of buf. Frames are
// offered to a bounded channel; when the sender falls behind, the newest
// frame is dropped so the device callback never blocks.
type capture struct {
	format audio.Format
	size   int
	gain   float64
	log    *slog.Logger
	m      *observe.Metrics

	buf []float32
	out chan audio.Frame

	enabled  atomic.Bool
	volume   atomic.Uint64 // math.Float64bits
	dropped  atomic.Int64
	warnOnce sync.Once
}

func newCapture(f audio.Format, size, queue int, gain float64, log *slog.Logger, m *observe.Metrics) *capture {
	return &capture{
		format: f,
		size:   size,
		gain:   gain,
		log:    log,
		m:      m,
		buf:    make([]float32, 0, size),
		out:    make(chan audio.Frame, queue),
	}
}

// write is the device capture callback.
func (c *capture) write(samples []float32) {
	if !c.enabled.Load() {
		return
	}
	for len(samples) > 0 {
		n := min(c.size-len(c.buf), len(samples))
		c.buf = append(c.buf, samples[:n]...)
		samples = samples[n:]
		if len(c.buf) < c.size {
			return
		}
		c.volume.Store(math.Float64bits(audio.Level(c.buf, c.gain)))
		c.offer(audio.EncodeFrame(c.buf, c.format))
		c.buf = c.buf[:0]
	}
}

func (c *capture) offer(f audio.Frame) {
	select {
	case c.out <- f:
	default:
		c.dropped.Add(1)
		c.m.FramesDropped.Add(context.Background(), 1)
		c.warnOnce.Do(func() {
			c.log.Warn("live: send queue full, dropping microphone frames", "capacity", cap(c.out))
		})
	}
}

// frames is drained by the sender goroutine.
func (c *capture) frames() <-chan audio.Frame { return c.out }

func (c *capture) enable() { c.enabled.Store(true) }

func (c *capture) disable() {
	c.enabled.Store(false)
	c.volume.Store(0)
}

// level returns the volume of the last complete frame.
func (c *capture) level() float64 {
	return math.Float64frombits(c.volume.Load())
}

// droppedFrames returns how many frames the full queue rejected.
func (c *capture) droppedFrames() int64 { return c.dropped.Load() }
