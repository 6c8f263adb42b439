package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// UserAgent is sent with every stream request.
const UserAgent = "soma_eq"

// errEnded is returned internally when the stream runs out of audio.
var errEnded = errors.New("stream ended")

// StreamConfig configures an MP3 stream source.
type StreamConfig struct {
	// BufferSize is the number of samples per frame.
	BufferSize int
	// Play also sends the decoded audio to the default output device.
	Play bool
	// Client is the HTTP client used to fetch the stream. If nil, a client
	// without a timeout is used, since streams never finish.
	Client *http.Client
	Logger zerolog.Logger
}

// Stream is a Source that decodes an MP3 stream fetched over HTTP. Frames
// are taken from the left channel.
type Stream struct {
	cfg      StreamConfig
	streamer beep.StreamCloser
	format   beep.Format
	body     io.Closer
	// pace limits frames to real time when nothing else, like the speaker,
	// sets the cadence.
	pace bool
}

var _ Source = (*Stream)(nil)

// OpenStream connects to url and starts decoding. Connection and decoding
// failures are fatal and returned here.
func OpenStream(ctx context.Context, url string, cfg StreamConfig) (*Stream, error) {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid stream URL")
	}
	req.Header.Set("User-Agent", UserAgent)

	cfg.Logger.Debug().Str("url", url).Msg("connecting to stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get stream")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Errorf("failed to get stream: unexpected status %s", resp.Status)
	}

	streamer, format, err := mp3.Decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, errors.Wrap(err, "failed to decode mp3")
	}

	cfg.Logger.Info().
		Str("url", url).
		Int("sample_rate", int(format.SampleRate)).
		Int("channels", format.NumChannels).
		Msg("stream opened")

	return newStream(streamer, format, resp.Body, cfg), nil
}

func newStream(streamer beep.StreamCloser, format beep.Format, body io.Closer, cfg StreamConfig) *Stream {
	return &Stream{
		cfg:      cfg,
		streamer: streamer,
		format:   format,
		body:     body,
		pace:     !cfg.Play,
	}
}

// SampleRate returns the decoded sample rate.
func (s *Stream) SampleRate() int {
	return int(s.format.SampleRate)
}

// Run decodes the stream and hands frames to handle until ctx is canceled
// or the stream ends. A stream that ends cleanly returns nil.
func (s *Stream) Run(ctx context.Context, handle FrameHandler) error {
	defer s.streamer.Close()

	parent := ctx
	framer := NewFramer(s.cfg.BufferSize, handle)

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		// Closing the body unblocks a decoder stuck in a network read.
		s.cfg.Logger.Debug().Msg("closing stream")
		s.body.Close()
		return ctx.Err()
	})
	errg.Go(func() error {
		if s.cfg.Play {
			return s.play(ctx, framer)
		}
		return s.pull(ctx, framer)
	})

	err := errg.Wait()
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(err, errEnded):
		s.cfg.Logger.Info().Msg("stream ended")
		return nil
	default:
		return err
	}
}

func (s *Stream) frameDuration() time.Duration {
	return s.format.SampleRate.D(s.cfg.BufferSize)
}

func (s *Stream) pull(ctx context.Context, framer *Framer) error {
	samples := make([][2]float64, s.cfg.BufferSize)

	var tick <-chan time.Time
	if s.pace {
		ticker := time.NewTicker(s.frameDuration())
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		n, ok := s.streamer.Stream(samples)
		if n > 0 {
			framer.WriteLeft(samples[:n])
		}
		if !ok {
			return s.endErr()
		}

		if tick == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

func (s *Stream) play(ctx context.Context, framer *Framer) error {
	sr := s.format.SampleRate
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	defer speaker.Close()

	done := make(chan error, 1)
	speaker.Play(s.tap(framer, done))

	select {
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// tap passes the decoded audio through unchanged while feeding its left
// channel to framer. Once the stream is drained the end result is sent on
// done. The speaker pulls from it on its own goroutine, so frames are
// handled inline before their samples are played.
func (s *Stream) tap(framer *Framer, done chan<- error) beep.Streamer {
	tap := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n, ok := s.streamer.Stream(samples)
		if n > 0 {
			framer.WriteLeft(samples[:n])
		}
		return n, ok
	})

	return beep.Seq(tap, beep.Callback(func() {
		done <- s.endErr()
	}))
}

func (s *Stream) endErr() error {
	if err := s.streamer.Err(); err != nil {
		return errors.Wrap(err, "failed to decode stream")
	}
	return errEnded
}
