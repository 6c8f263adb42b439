package eq

import "math"

// Band is a contiguous run of spectrum bins drawn as one bar.
type Band struct {
	// Index is the zero-based band number.
	Index int
	// StartFreq and EndFreq are the nominal edges in Hz. Every band spans
	// an equal share of the Nyquist range.
	StartFreq int
	EndFreq   int
	// Mean is the average magnitude of the bins in the band.
	Mean float64
}

// Split partitions spectrum into n contiguous slices in index order. Slice
// lengths differ by at most one; the first len(spectrum)%n slices take the
// extra element. The slices share spectrum's backing array.
func Split(spectrum []float64, n int) [][]float64 {
	if n <= 0 {
		return nil
	}

	q, r := len(spectrum)/n, len(spectrum)%n

	parts := make([][]float64, n)
	start := 0
	for i := range parts {
		size := q
		if i < r {
			size++
		}
		parts[i] = spectrum[start : start+size]
		start += size
	}
	return parts
}

// Mean returns the arithmetic mean of values. It returns 0 for an empty
// slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Bands splits spectrum into BandCount bands and labels them for the given
// sample rate.
func Bands(spectrum []float64, sampleRate int) []Band {
	width := float64(sampleRate) / 2 / BandCount

	parts := Split(spectrum, BandCount)
	bands := make([]Band, len(parts))
	for i, part := range parts {
		bands[i] = Band{
			Index:     i,
			StartFreq: int(float64(i) * width),
			EndFreq:   int(float64(i+1) * width),
			Mean:      Mean(part),
		}
	}
	return bands
}

// BarLength scales mean against peak into [0, width]. A zero peak means
// silence and yields 0. Means that overflowed to +Inf draw a full bar.
func BarLength(mean, peak float64, width int) int {
	if width <= 0 || peak <= 0 {
		return 0
	}

	ratio := mean / peak
	switch {
	case math.IsNaN(ratio) && math.IsInf(mean, 1):
		// Inf/Inf: the band holds the peak.
		return width
	case !(ratio > 0):
		return 0
	case ratio >= 1:
		return width
	}
	return int(math.Floor(ratio * float64(width)))
}
