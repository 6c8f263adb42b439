// Package eq turns fixed-size mono audio buffers into a text equalizer.
package eq

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
)

// BandCount is the number of bars drawn per frame.
const BandCount = 10

// ErrMalformedFrame is returned for buffers that cannot be visualized. Such
// frames are skipped without writing anything.
var ErrMalformedFrame = errors.New("malformed frame")

// Spectrum returns the one-sided magnitude spectrum of samples. The result
// has len(samples)/2+1 entries; entry i is the magnitude at
// i*sampleRate/len(samples) Hz.
func Spectrum(samples []float64) []float64 {
	if len(samples) == 0 {
		return nil
	}

	coeffs := fft.FFTReal(samples)

	mags := make([]float64, len(samples)/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(coeffs[i])
	}
	return mags
}

// Peak returns the largest value in spectrum, or 0 if it is empty.
func Peak(spectrum []float64) float64 {
	var peak float64
	for _, v := range spectrum {
		if v > peak {
			peak = v
		}
	}
	return peak
}

func checkFrame(samples []float64, size int) error {
	if len(samples) == 0 {
		return errors.Wrap(ErrMalformedFrame, "empty buffer")
	}
	if len(samples) != size {
		return errors.Wrapf(ErrMalformedFrame, "got %d samples, want %d", len(samples), size)
	}
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return errors.Wrapf(ErrMalformedFrame, "sample %d is not finite", i)
		}
	}
	return nil
}
