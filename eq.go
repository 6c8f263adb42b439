package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"soma_eq/internal/eq"
	"soma_eq/internal/source"
)

// frameHandler renders every frame and skips the ones that cannot be drawn.
func frameHandler(vis *eq.Visualizer, logger zerolog.Logger) source.FrameHandler {
	return func(frame []float64) {
		if err := vis.Render(frame); err != nil {
			logger.Warn().Err(err).Msg("skipping frame")
		}
	}
}

// clearMode picks how frames overwrite each other on w. Only terminals get
// escape sequences; keepHeader preserves whatever was printed before the
// first frame.
func clearMode(w io.Writer, keepHeader bool) eq.ClearMode {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return eq.NoClear
	}
	if keepHeader {
		return eq.ClearBelow
	}
	return eq.ClearScreen
}

// visualize draws frames from src to w until src stops.
func visualize(ctx context.Context, w io.Writer, src source.Source, vcfg eq.Config, keepHeader bool, logger zerolog.Logger) error {
	vcfg.SampleRate = src.SampleRate()

	vis, err := eq.New(w, vcfg, clearMode(w, keepHeader))
	if err != nil {
		return err
	}

	err = src.Run(ctx, frameHandler(vis, logger))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
