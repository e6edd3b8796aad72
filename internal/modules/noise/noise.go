// Package noise colors a module with slowly moving simplex noise.
package noise

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ojrac/opensimplex-go"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/util"
	"go.uber.org/zap"
)

var logger = logging.New("noise")

type Options struct {
	Color1 lights.Color `yaml:"color1"`
	Color2 lights.Color `yaml:"color2"`
	// Speed is how far the noise field moves per second.
	Speed float64 `yaml:"speed"`
	// Zoom divides the key coordinates; larger values give larger blobs.
	Zoom     float64       `yaml:"zoom"`
	Interval time.Duration `yaml:"interval"`
	// Seed fixes the noise pattern. 0 picks a random one.
	Seed int64 `yaml:"seed,omitempty"`

	Clock clock.Clock `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		Color1:   util.Hsv(44, 0.99, 0.02),
		Color2:   util.Hsv(44, 0.99, 0.15),
		Speed:    0.25,
		Zoom:     3,
		Interval: 20 * time.Millisecond,
	}
}

type cell struct {
	led   uint32
	x, y  float64
	color lights.Color
	sent  bool
}

type field struct {
	opts  Options
	noise opensimplex.Noise
	offX  float64
	offY  float64
	depth float64
	cells []cell
}

func newField(layout keyboard.Layout, opts Options, rng *rand.Rand) *field {
	if opts.Zoom <= 0 {
		opts.Zoom = 1
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rng.Int64()
	}

	f := &field{
		opts:  opts,
		noise: opensimplex.NewNormalized(seed),
		offX:  rng.Float64(),
		offY:  rng.Float64(),
	}
	for y, row := range layout.Rows {
		for x, slot := range row {
			if !slot.Valid {
				continue
			}
			f.cells = append(f.cells, cell{
				led: slot.LED,
				x:   float64(x)/opts.Zoom + f.offX,
				y:   float64(y)/opts.Zoom + f.offY,
			})
		}
	}
	return f
}

// step moves the field forward and returns the LEDs whose color changed.
func (f *field) step(elapsed time.Duration) []keyboard.Message {
	f.depth += elapsed.Seconds() * f.opts.Speed

	var out []keyboard.Message
	for i := range f.cells {
		c := &f.cells[i]
		v := f.noise.Eval3(c.x, c.y, f.depth)
		col := util.Interpolate(f.opts.Color1, f.opts.Color2, v)
		if c.sent && col == c.color {
			continue
		}
		c.color = col
		c.sent = true
		out = append(out, keyboard.Message{Index: c.led, Color: col})
	}
	return out
}

func Run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options) error {
	seed := uint64(time.Now().UnixNano())
	return run(ctx, out, layout, opts, rand.New(rand.NewPCG(seed, ^seed)))
}

func run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options, rng *rand.Rand) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	f := newField(layout, opts, rng)
	logger.With(zap.Int("leds", len(f.cells)), zap.Int("rows", len(layout.Rows))).
		Debug("Noise starting")

	ticker := opts.Clock.Ticker(opts.Interval)
	defer ticker.Stop()

	last := opts.Clock.Now()
	elapsed := time.Duration(0)
	for {
		for _, m := range f.step(elapsed) {
			if err := out.Send(ctx, m); err != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			elapsed = now.Sub(last)
			last = now
		}
	}
}
