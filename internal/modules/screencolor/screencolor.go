// Package screencolor mirrors the dominant color of a display onto a group of
// keys.
package screencolor

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/screen"
	"go.uber.org/zap"
)

var logger = logging.New("screencolor")

const warningInterval = 10 * time.Second

type Options struct {
	CaptureInterval time.Duration `yaml:"capture_interval"`
	// Algorithm is one of screen.AlgorithmNames.
	Algorithm     string `yaml:"algorithm"`
	PixelGridSize int    `yaml:"pixel_grid_size"`
	ScreenNumber  int    `yaml:"screen_number"`
}

func DefaultOptions() Options {
	return Options{
		CaptureInterval: 80 * time.Millisecond,
		Algorithm:       "AVERAGE",
		PixelGridSize:   5,
	}
}

type captureFunc func(display int) (*image.RGBA, error)

func Run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options) error {
	if n := screenshot.NumActiveDisplays(); opts.ScreenNumber < 0 || opts.ScreenNumber >= n {
		return fmt.Errorf("screen %d not found, %d active displays", opts.ScreenNumber, n)
	}
	return run(ctx, out, layout, opts, screenshot.CaptureDisplay)
}

func run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options, capture captureFunc) error {
	computeColor, err := screen.Lookup(opts.Algorithm)
	if err != nil {
		return err
	}
	if opts.CaptureInterval <= 0 {
		opts.CaptureInterval = DefaultOptions().CaptureInterval
	}

	var (
		last        lights.Color
		painted     bool
		lastWarning time.Time
	)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		startTime := time.Now()
		img, err := capture(opts.ScreenNumber)
		captureScreenDuration := time.Since(startTime)
		if err != nil {
			if time.Since(lastWarning) > warningInterval {
				logger.With(zap.Error(err)).Error("Failed to capture screen")
				lastWarning = time.Now()
			}
			timer.Reset(max(opts.CaptureInterval-captureScreenDuration, 0))
			continue
		}

		colorCalculationStart := time.Now()
		c := computeColor(img, opts.PixelGridSize)
		colorCalculationDuration := time.Since(colorCalculationStart)

		color := lights.Color{Red: c.R, Green: c.G, Blue: c.B}
		if !painted || color != last {
			if err := out.SetSlots(ctx, layout.Slots, color, false); err != nil {
				return nil
			}
			last, painted = color, true
		}

		totalDuration := time.Since(startTime)
		if totalDuration > opts.CaptureInterval && time.Since(lastWarning) > warningInterval {
			logger.With(
				zap.Stringer("captureScreenDuration", captureScreenDuration),
				zap.Stringer("colorCalculationDuration", colorCalculationDuration),
				zap.Stringer("totalDuration", totalDuration)).
				Warn("Cannot keep up with capture_interval. Consider increasing pixel_grid_size or capture_interval.")
			lastWarning = time.Now()
		}
		timer.Reset(max(opts.CaptureInterval-totalDuration, 0))
	}
}
