// Package starfield twinkles every LED of a module between a background and
// a target color, each LED on its own phase and period.
package starfield

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/util"
	"go.uber.org/zap"
)

var logger = logging.New("starfield")

type Options struct {
	Background lights.Color `yaml:"background"`
	Target     lights.Color `yaml:"target"`
	// AnimationTime is the average length of one background -> target ->
	// background cycle.
	AnimationTime time.Duration `yaml:"animation_time"`
	// TimeVariation is the most a single cycle may deviate from
	// AnimationTime in either direction.
	TimeVariation time.Duration `yaml:"time_variation"`
	Interval      time.Duration `yaml:"interval"`

	Clock clock.Clock `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		Background:    util.Hsv(44, 0.99, 0.14),
		Target:        util.Hsv(44, 0.99, 0.99),
		AnimationTime: 2 * time.Second,
		TimeVariation: 500 * time.Millisecond,
		Interval:      50 * time.Millisecond,
	}
}

type star struct {
	led    uint32
	phase  float64
	period time.Duration
	color  lights.Color
	sent   bool
}

type field struct {
	opts  Options
	rng   *rand.Rand
	stars []star
}

func newField(leds []uint32, opts Options, rng *rand.Rand) *field {
	f := &field{opts: opts, rng: rng, stars: make([]star, len(leds))}
	for i, led := range leds {
		f.stars[i] = star{led: led, phase: rng.Float64(), period: f.period()}
	}
	return f
}

// period draws a cycle length from AnimationTime +- TimeVariation.
func (f *field) period() time.Duration {
	jitter := time.Duration((2*f.rng.Float64() - 1) * float64(f.opts.TimeVariation))
	p := f.opts.AnimationTime + jitter
	if p < f.opts.Interval {
		p = f.opts.Interval
	}
	if p <= 0 {
		p = time.Millisecond
	}
	return p
}

// step advances every star and returns the LEDs whose color changed. The
// first step returns every LED.
func (f *field) step(elapsed time.Duration) []keyboard.Message {
	var out []keyboard.Message
	for i := range f.stars {
		s := &f.stars[i]
		s.phase += float64(elapsed) / float64(s.period)
		if s.phase >= 1 {
			s.phase -= math.Floor(s.phase)
			s.period = f.period()
		}

		c := util.AnimationCurve(f.opts.Background, f.opts.Target, s.phase)
		if s.sent && c == s.color {
			continue
		}
		s.color = c
		s.sent = true
		out = append(out, keyboard.Message{Index: s.led, Color: c})
	}
	return out
}

// Run animates the LEDs of layout until ctx is cancelled.
func Run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options) error {
	seed := uint64(time.Now().UnixNano())
	return run(ctx, out, layout, opts, rand.New(rand.NewPCG(seed, seed>>1)))
}

func run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options, rng *rand.Rand) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	f := newField(layout.LEDs(), opts, rng)
	logger.With(zap.Int("leds", len(f.stars)), zap.Duration("animationTime", opts.AnimationTime)).
		Debug("Starfield starting")

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
