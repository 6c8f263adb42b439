// Package source delivers fixed-size mono audio frames from a microphone or
// an MP3 stream.
package source

import "context"

// FrameHandler receives one frame of mono samples. Sources call it
// synchronously and never start the next call before the previous one
// returns. The handler owns the slice.
type FrameHandler func(frame []float64)

// Source produces frames until its context is canceled or it fails.
type Source interface {
	// SampleRate returns the rate of the delivered samples in Hz.
	SampleRate() int
	// Run delivers frames to handle. It blocks until ctx is canceled, the
	// source ends, or a fatal error occurs.
	Run(ctx context.Context, handle FrameHandler) error
}
