package eq

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n, bin int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * float64(bin) * float64(i) / float64(n))
	}
	return samples
}

func noise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}
	return samples
}

func TestSpectrumLength(t *testing.T) {
	for _, n := range []int{2, 3, 17, 100, 1000, 1024, 1025} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			spectrum := Spectrum(noise(n, int64(n)))
			assert.Len(t, spectrum, n/2+1)
			for _, v := range spectrum {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		})
	}

	assert.Empty(t, Spectrum(nil))
}

func TestSplitCoversSpectrum(t *testing.T) {
	for length := BandCount; length <= 600; length++ {
		spectrum := make([]float64, length)
		for i := range spectrum {
			spectrum[i] = float64(i)
		}

		parts := Split(spectrum, BandCount)
		require.Len(t, parts, BandCount)

		next := 0
		for i, part := range parts {
			require.NotEmpty(t, part, "length %d, part %d", length, i)
			for _, v := range part {
				require.Equal(t, float64(next), v, "length %d, part %d", length, i)
				next++
			}
			if i > 0 {
				diff := len(parts[i-1]) - len(part)
				require.True(t, diff == 0 || diff == 1, "length %d: part %d is %d, part %d is %d",
					length, i-1, len(parts[i-1]), i, len(part))
			}
		}
		require.Equal(t, length, next)
	}
}

func TestSplitShortSpectrum(t *testing.T) {
	parts := Split([]float64{1, 2, 3}, BandCount)
	require.Len(t, parts, BandCount)
	assert.Equal(t, []float64{1}, parts[0])
	assert.Equal(t, []float64{3}, parts[2])
	assert.Empty(t, parts[3])
	assert.Zero(t, Mean(parts[3]))
}

func TestBarLength(t *testing.T) {
	tests := []struct {
		name       string
		mean, peak float64
		width      int
		want       int
	}{
		{"silence", 0, 0, 50, 0},
		{"zero peak", 1, 0, 50, 0},
		{"full scale", 3, 3, 50, 50},
		{"half", 1, 2, 50, 25},
		{"floors", 0.999, 1, 50, 49},
		{"capped", 2, 1, 50, 50},
		{"tiny", 1e-9, 1, 50, 0},
		{"overflowed mean and peak", math.Inf(1), math.Inf(1), 50, 50},
		{"overflowed mean", math.Inf(1), 1e300, 50, 50},
		{"overflowed peak", 1, math.Inf(1), 50, 0},
		{"nan mean", math.NaN(), 1, 50, 0},
		{"nan peak", 1, math.NaN(), 50, 0},
		{"negative mean", -1, 1, 50, 0},
		{"zero width", 1, 1, 0, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, BarLength(test.mean, test.peak, test.width))
		})
	}
}

func TestRowsBarsWithinWidth(t *testing.T) {
	cfg := DefaultConfig()
	v, err := New(&bytes.Buffer{}, cfg, NoClear)
	require.NoError(t, err)

	for seed := int64(0); seed < 20; seed++ {
		rows, err := v.Rows(noise(cfg.BufferSize, seed))
		require.NoError(t, err)
		require.Len(t, rows, BandCount)
		for _, row := range rows {
			assert.GreaterOrEqual(t, row.Bar, 0)
			assert.LessOrEqual(t, row.Bar, cfg.MaxWidth)
		}
	}
}

func TestRowsSilence(t *testing.T) {
	cfg := DefaultConfig()
	v, err := New(&bytes.Buffer{}, cfg, NoClear)
	require.NoError(t, err)

	samples := make([]float64, cfg.BufferSize)
	assert.Zero(t, Peak(Spectrum(samples)))

	rows, err := v.Rows(samples)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Zero(t, row.Bar)
	}
}

func TestRowsDominantSine(t *testing.T) {
	cfg := DefaultConfig()
	v, err := New(&bytes.Buffer{}, cfg, NoClear)
	require.NoError(t, err)

	const bin = 100
	freq := float64(bin) * float64(cfg.SampleRate) / float64(cfg.BufferSize)
	samples := sine(cfg.BufferSize, bin)

	spectrum := Spectrum(samples)
	peakBin := 0
	for i, m := range spectrum {
		if m > spectrum[peakBin] {
			peakBin = i
		}
	}
	assert.Equal(t, int(math.Round(freq*float64(cfg.BufferSize)/float64(cfg.SampleRate))), peakBin)

	// 513 bins: the first three bands hold 52 bins, so bin 100 is in band 1.
	rows, err := v.Rows(samples)
	require.NoError(t, err)

	loudest := 0
	for i, row := range rows {
		if row.Mean > rows[loudest].Mean {
			loudest = i
		}
	}
	assert.Equal(t, 1, loudest)
}

func TestRowsImpulseIsFullScale(t *testing.T) {
	cfg := DefaultConfig()
	v, err := New(&bytes.Buffer{}, cfg, NoClear)
	require.NoError(t, err)

	// An impulse has a flat spectrum, so every band mean equals the peak.
	samples := make([]float64, cfg.BufferSize)
	samples[0] = 1

	rows, err := v.Rows(samples)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, cfg.MaxWidth, row.Bar, "band %d", row.Index+1)
	}
}

func TestRenderHugeImpulse(t *testing.T) {
	cfg := DefaultConfig()
	var out bytes.Buffer
	v, err := New(&out, cfg, NoClear)
	require.NoError(t, err)

	// Finite, but band sums of the flat spectrum overflow to +Inf.
	samples := make([]float64, cfg.BufferSize)
	samples[0] = 1e307

	rows, err := v.Rows(samples)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, cfg.MaxWidth, row.Bar, "band %d", row.Index+1)
	}

	assert.NotPanics(t, func() {
		require.NoError(t, v.Render(samples))
	})
	assert.Equal(t, BandCount, strings.Count(out.String(), strings.Repeat("#", cfg.MaxWidth)+"\n"))
}

func TestRenderSilenceScenario(t *testing.T) {
	var out bytes.Buffer
	v, err := New(&out, DefaultConfig(), NoClear)
	require.NoError(t, err)

	require.NoError(t, v.Render(make([]float64, 1024)))

	want := []string{
		"Band 1 (0-2205 Hz): ",
		"Band 2 (2205-4410 Hz): ",
		"Band 3 (4410-6615 Hz): ",
		"Band 4 (6615-8820 Hz): ",
		"Band 5 (8820-11025 Hz): ",
		"Band 6 (11025-13230 Hz): ",
		"Band 7 (13230-15435 Hz): ",
		"Band 8 (15435-17640 Hz): ",
		"Band 9 (17640-19845 Hz): ",
		"Band 10 (19845-22050 Hz): ",
	}
	assert.Equal(t, strings.Join(want, "\n")+"\n", out.String())
}

func TestRenderIdempotent(t *testing.T) {
	samples := noise(1024, 42)

	render := func() string {
		var out bytes.Buffer
		v, err := New(&out, DefaultConfig(), NoClear)
		require.NoError(t, err)
		require.NoError(t, v.Render(samples))
		return out.String()
	}

	assert.Equal(t, render(), render())
}

func TestRenderFill(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fill = '='
	cfg.MaxWidth = 4

	var out bytes.Buffer
	v, err := New(&out, cfg, NoClear)
	require.NoError(t, err)

	samples := make([]float64, cfg.BufferSize)
	samples[0] = 1
	require.NoError(t, v.Render(samples))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, BandCount)
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, "): ===="), line)
	}
}

func TestRenderMalformed(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
	}{
		{"empty", nil},
		{"short", make([]float64, 512)},
		{"long", make([]float64, 2048)},
		{"nan", append(make([]float64, 1023), math.NaN())},
		{"inf", append([]float64{math.Inf(-1)}, make([]float64, 1023)...)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			v, err := New(&out, DefaultConfig(), ClearScreen)
			require.NoError(t, err)

			err = v.Render(test.samples)
			assert.True(t, errors.Is(err, ErrMalformedFrame), "got %v", err)
			assert.Zero(t, out.Len())
		})
	}
}

func TestRenderClearModes(t *testing.T) {
	samples := make([]float64, 1024)

	t.Run("screen", func(t *testing.T) {
		var out bytes.Buffer
		v, err := New(&out, DefaultConfig(), ClearScreen)
		require.NoError(t, err)

		require.NoError(t, v.Render(samples))
		require.NoError(t, v.Render(samples))
		assert.Equal(t, 2, strings.Count(out.String(), "\x1b[H\x1b[J"))
		assert.True(t, strings.HasPrefix(out.String(), "\x1b[H\x1b[JBand 1 "))
	})

	t.Run("below", func(t *testing.T) {
		var out bytes.Buffer
		v, err := New(&out, DefaultConfig(), ClearBelow)
		require.NoError(t, err)

		require.NoError(t, v.Render(samples))
		assert.True(t, strings.HasPrefix(out.String(), "Band 1 "))
		assert.NotContains(t, out.String(), "\x1b")

		// Later frames move back over the previous frame relative to the
		// cursor, so scrolling does not break the redraw.
		for i := 0; i < 2; i++ {
			out.Reset()
			require.NoError(t, v.Render(samples))
			assert.True(t, strings.HasPrefix(out.String(), "\x1b[10F\x1b[0JBand 1 "))
			assert.Equal(t, BandCount, strings.Count(out.String(), "\n"))
		}
	})

	t.Run("below skips malformed", func(t *testing.T) {
		var out bytes.Buffer
		v, err := New(&out, DefaultConfig(), ClearBelow)
		require.NoError(t, err)

		// Nothing was drawn, so the next good frame must not move up.
		assert.Error(t, v.Render(nil))
		require.NoError(t, v.Render(samples))
		assert.True(t, strings.HasPrefix(out.String(), "Band 1 "))
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }, false},
		{"tiny buffer", func(c *Config) { c.BufferSize = 8 }, false},
		{"minimum buffer", func(c *Config) { c.BufferSize = 2 * BandCount }, true},
		{"zero width", func(c *Config) { c.MaxWidth = 0 }, false},
		{"space fill", func(c *Config) { c.Fill = ' ' }, false},
		{"unicode fill", func(c *Config) { c.Fill = '█' }, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(&cfg)

			err := cfg.Validate()
			if test.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
