package eq

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Config describes the frames a Visualizer accepts and how it draws them.
type Config struct {
	// SampleRate is the rate of the incoming audio in Hz.
	SampleRate int
	// BufferSize is the exact number of samples in every frame.
	BufferSize int
	// MaxWidth is the length of a full-scale bar.
	MaxWidth int
	// Fill is the character bars are drawn with.
	Fill rune
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		BufferSize: 1024,
		MaxWidth:   50,
		Fill:       '#',
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	// Smaller buffers leave some bands without any bins.
	if c.BufferSize < 2*BandCount {
		return errors.Errorf("buffer size must be at least %d, got %d", 2*BandCount, c.BufferSize)
	}
	if c.MaxWidth <= 0 {
		return errors.Errorf("max width must be positive, got %d", c.MaxWidth)
	}
	if !utf8.ValidRune(c.Fill) || !unicode.IsPrint(c.Fill) || unicode.IsSpace(c.Fill) {
		return errors.Errorf("fill %q is not a printable character", c.Fill)
	}
	return nil
}

// Row is one rendered line of a frame.
type Row struct {
	Band
	// Bar is the bar length in [0, MaxWidth].
	Bar int
}

// ClearMode selects how the previous frame is erased.
type ClearMode uint8

const (
	// NoClear appends frames one after another. Used when the output is not
	// a terminal.
	NoClear ClearMode = iota
	// ClearScreen moves the cursor home and erases the whole screen.
	ClearScreen
	// ClearBelow moves the cursor back over the previous frame and erases
	// from there down, keeping whatever was printed above the first frame.
	ClearBelow
)

var (
	seqClearScreen = []byte("\x1b[H\x1b[J")
	// Cursor up BandCount lines to column 1, then erase below. Relative
	// movement keeps working after the terminal scrolls.
	seqClearFrame = fmt.Appendf(nil, "\x1b[%dF\x1b[0J", BandCount)
)

// Visualizer draws frames to a writer. Render must not be called
// concurrently; frames are drawn strictly one after another.
type Visualizer struct {
	cfg   Config
	w     io.Writer
	clear ClearMode
	drawn bool
	buf   bytes.Buffer
}

// New creates a Visualizer that writes to w.
func New(w io.Writer, cfg Config, clear ClearMode) (*Visualizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid visualizer config")
	}
	return &Visualizer{cfg: cfg, w: w, clear: clear}, nil
}

// Rows computes the rows for one frame without drawing them.
func (v *Visualizer) Rows(samples []float64) ([]Row, error) {
	if err := checkFrame(samples, v.cfg.BufferSize); err != nil {
		return nil, err
	}

	spectrum := Spectrum(samples)
	peak := Peak(spectrum)

	bands := Bands(spectrum, v.cfg.SampleRate)
	rows := make([]Row, len(bands))
	for i, band := range bands {
		rows[i] = Row{
			Band: band,
			Bar:  BarLength(band.Mean, peak, v.cfg.MaxWidth),
		}
	}
	return rows, nil
}

// Render draws one frame. Malformed frames return an error wrapping
// ErrMalformedFrame and leave the output untouched.
func (v *Visualizer) Render(samples []float64) error {
	rows, err := v.Rows(samples)
	if err != nil {
		return err
	}

	v.buf.Reset()

	switch v.clear {
	case ClearScreen:
		v.buf.Write(seqClearScreen)
	case ClearBelow:
		if v.drawn {
			v.buf.Write(seqClearFrame)
		}
	}

	for _, row := range rows {
		v.buf.WriteString(FormatRow(row, v.cfg.Fill))
		v.buf.WriteByte('\n')
	}

	if _, err := v.w.Write(v.buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}

	v.drawn = true
	return nil
}

// FormatRow formats a row as "Band N (start-end Hz): ###".
func FormatRow(row Row, fill rune) string {
	return fmt.Sprintf("Band %d (%d-%d Hz): %s",
		row.Index+1, row.StartFreq, row.EndFreq, strings.Repeat(string(fill), row.Bar))
}
