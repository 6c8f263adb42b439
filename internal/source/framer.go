package source

import "github.com/eapache/queue"

// Framer regroups chunks of arbitrary length into frames of exactly Size
// samples. Leftover samples are kept until the next Write.
type Framer struct {
	size   int
	handle FrameHandler

	chunks   *queue.Queue // of []float64
	offset   int          // consumed samples of the head chunk
	buffered int
}

// NewFramer creates a Framer that calls handle for every full frame.
func NewFramer(size int, handle FrameHandler) *Framer {
	return &Framer{
		size:   size,
		handle: handle,
		chunks: queue.New(),
	}
}

// Buffered returns the number of samples waiting for a full frame.
func (f *Framer) Buffered() int {
	return f.buffered
}

// Write queues a copy of samples and emits every frame that is complete.
func (f *Framer) Write(samples []float64) {
	if len(samples) == 0 {
		return
	}

	f.chunks.Add(append([]float64(nil), samples...))
	f.buffered += len(samples)

	for f.buffered >= f.size {
		f.handle(f.next())
	}
}

// WriteLeft is like Write, but takes the left channel of stereo samples.
func (f *Framer) WriteLeft(samples [][2]float64) {
	left := make([]float64, len(samples))
	for i := range samples {
		left[i] = samples[i][0]
	}
	f.Write(left)
}

func (f *Framer) next() []float64 {
	frame := make([]float64, 0, f.size)

	for len(frame) < f.size {
		head := f.chunks.Peek().([]float64)[f.offset:]

		n := min(len(head), f.size-len(frame))
		frame = append(frame, head[:n]...)
		f.offset += n

		if n == len(head) {
			f.chunks.Remove()
			f.offset = 0
		}
	}

	f.buffered -= f.size
	return frame
}

// Reset drops all buffered samples.
func (f *Framer) Reset() {
	for f.chunks.Length() > 0 {
		f.chunks.Remove()
	}
	f.offset = 0
	f.buffered = 0
}
