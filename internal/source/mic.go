package source

import (
	"context"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// MicConfig configures the microphone source.
type MicConfig struct {
	SampleRate int
	BufferSize int
	Logger     zerolog.Logger
}

// Mic is a Source reading mono audio from the default input device. The
// device invokes a callback on its own thread for every buffer.
type Mic struct {
	cfg MicConfig
}

var _ Source = (*Mic)(nil)

// NewMic creates a microphone source. The device is opened by Run.
func NewMic(cfg MicConfig) *Mic {
	return &Mic{cfg: cfg}
}

// SampleRate returns the configured capture rate.
func (m *Mic) SampleRate() int {
	return m.cfg.SampleRate
}

// Run captures audio until ctx is canceled. Failing to open the device is
// fatal.
func (m *Mic) Run(ctx context.Context, handle FrameHandler) error {
	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize portaudio")
	}
	defer portaudio.Terminate()

	framer := NewFramer(m.cfg.BufferSize, handle)

	stream, err := portaudio.OpenDefaultStream(
		1, 0, float64(m.cfg.SampleRate), m.cfg.BufferSize,
		func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			m.process(framer, in, flags)
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to open input device")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return errors.Wrap(err, "failed to start input stream")
	}

	m.cfg.Logger.Info().
		Int("sample_rate", m.cfg.SampleRate).
		Int("buffer_size", m.cfg.BufferSize).
		Msg("microphone started")

	<-ctx.Done()

	m.cfg.Logger.Debug().Msg("stopping microphone")
	if err := stream.Stop(); err != nil {
		m.cfg.Logger.Warn().Err(err).Msg("failed to stop input stream")
	}

	return ctx.Err()
}

// process handles one device buffer. Buffers flagged with an overflow or
// underflow are dropped along with anything partially buffered.
func (m *Mic) process(framer *Framer, in []float32, flags portaudio.StreamCallbackFlags) {
	if flags&(portaudio.InputOverflow|portaudio.InputUnderflow) != 0 {
		m.cfg.Logger.Warn().
			Bool("overflow", flags&portaudio.InputOverflow != 0).
			Bool("underflow", flags&portaudio.InputUnderflow != 0).
			Msg("input glitch, skipping buffer")
		framer.Reset()
		return
	}

	samples := make([]float64, len(in))
	for i, v := range in {
		samples[i] = float64(v)
	}
	framer.Write(samples)
}
