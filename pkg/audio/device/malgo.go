package device

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/MrWong99/cynicast/pkg/audio"
)

// Compile-time interface assertion.
var _ Backend = (*Malgo)(nil)

// DefaultPeriod is the device callback period in milliseconds.
const DefaultPeriod = 20

// Malgo is a [Backend] on top of miniaudio.
type Malgo struct {
	ctx    *malgo.AllocatedContext
	period uint32
	once   sync.Once
}

// MalgoOption configures a [Malgo] backend.
type MalgoOption func(*Malgo)

// WithPeriod sets the device callback period in milliseconds.
func WithPeriod(ms int) MalgoOption {
	return func(m *Malgo) {
		if ms > 0 {
			m.period = uint32(ms)
		}
	}
}

// NewMalgo initialises the platform audio context.
func NewMalgo(opts ...MalgoOption) (*Malgo, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, cfg, func(msg string) {
		slog.Debug("malgo", "msg", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("device: init context: %w", err)
	}
	m := &Malgo{ctx: ctx, period: DefaultPeriod}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// OpenMicrophone implements [Backend].
func (m *Malgo) OpenMicrophone(f audio.Format, fn CaptureFunc) (Stream, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.PeriodSizeInMilliseconds = m.period

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			fn(audio.BytesToFloat32(input))
		},
	}
	return m.start(cfg, callbacks, "microphone")
}

// OpenSpeaker implements [Backend].
func (m *Malgo) OpenSpeaker(f audio.Format, fn RenderFunc) (Stream, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.PeriodSizeInMilliseconds = m.period

	// The data callback runs on a single audio thread, so the scratch
	// buffer is reused without locking.
	var scratch []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			n := len(output) / 4
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			buf := scratch[:n]
			clear(buf)
			fn(buf)
			audio.Float32ToBytes(output, buf)
		},
	}
	return m.start(cfg, callbacks, "speaker")
}

func (m *Malgo) start(cfg malgo.DeviceConfig, cb malgo.DeviceCallbacks, kind string) (Stream, error) {
	dev, err := malgo.InitDevice(m.ctx.Context, cfg, cb)
	if err != nil {
		return nil, fmt.Errorf("device: init %s: %w: %w", kind, ErrUnavailable, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("device: start %s: %w: %w", kind, ErrUnavailable, err)
	}
	slog.Debug("audio device started", "kind", kind, "sample_rate", cfg.SampleRate)
	return &malgoStream{dev: dev}, nil
}

// Close releases the audio context.
func (m *Malgo) Close() error {
	var err error
	m.once.Do(func() {
		err = m.ctx.Uninit()
		m.ctx.Free()
	})
	return err
}

type malgoStream struct {
	dev  *malgo.Device
	once sync.Once
}

func (s *malgoStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.dev.Stop()
		s.dev.Uninit()
	})
	return err
}
