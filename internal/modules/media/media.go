// Package media shows the progress of the playing track as a bar, colored
// after the player.
package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/util"
	"go.uber.org/zap"
)

var logger = logging.New("media")

const (
	SourcePlayerctl = "playerctl"
	SourceMPD       = "mpd"

	warningInterval = 10 * time.Second
	followRetry     = 5 * time.Second
)

type Options struct {
	// Source is "playerctl" or "mpd".
	Source     string `yaml:"source"`
	MPDAddress string `yaml:"mpd_address,omitempty"`
	// CursorOnly draws a moving dot instead of a filling bar.
	CursorOnly   bool          `yaml:"cursor_only"`
	PollInterval time.Duration `yaml:"poll_interval"`

	PausedColor  lights.Color `yaml:"paused_color"`
	PlayingColor lights.Color `yaml:"playing_color"`
	SpotifyColor lights.Color `yaml:"spotify_color"`
	NetflixColor lights.Color `yaml:"netflix_color"`

	Clock clock.Clock `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		Source:       SourcePlayerctl,
		MPDAddress:   "localhost:6600",
		PollInterval: 100 * time.Millisecond,
		PausedColor:  lights.Black,
		PlayingColor: lights.White,
		SpotifyColor: lights.Color{Red: 30, Green: 215, Blue: 96},
		NetflixColor: lights.Color{Red: 229, Green: 9, Blue: 20},
	}
}

func NewSource(opts Options) (Source, error) {
	switch opts.Source {
	case SourcePlayerctl, "":
		return NewPlayerctl(""), nil
	case SourceMPD:
		return NewMPD(opts.MPDAddress), nil
	default:
		return nil, fmt.Errorf("unknown media source %q", opts.Source)
	}
}

// chooseColor picks the player shown on the bar and its color: spotify
// first, then anything with netflix in the title, then the first playing
// player in the generic playing color. ok is false when nothing is playing.
func chooseColor(players []Player, opts Options) (c lights.Color, player string, ok bool) {
	var playing []Player
	for _, p := range players {
		if p.Status == Playing {
			playing = append(playing, p)
		}
	}
	if len(playing) == 0 {
		return opts.PausedColor, "", false
	}
	for _, p := range playing {
		if p.Name == "spotify" || strings.HasPrefix(p.Name, "spotify.") {
			return opts.SpotifyColor, p.Name, true
		}
	}
	for _, p := range playing {
		if strings.Contains(strings.ToLower(p.Title), "netflix") {
			return opts.NetflixColor, p.Name, true
		}
	}
	return opts.PlayingColor, playing[0].Name, true
}

// trackDurations is shared between the metadata listener and the poller.
type trackDurations struct {
	mu      sync.Mutex
	lengths map[string]time.Duration
}

func (t *trackDurations) set(player string, d time.Duration, known bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lengths == nil {
		t.lengths = map[string]time.Duration{}
	}
	if !known {
		delete(t.lengths, player)
		return
	}
	t.lengths[player] = d
}

func (t *trackDurations) get(player string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.lengths[player]
	return d, ok
}

func (t *trackDurations) reset() {
	t.mu.Lock()
	t.lengths = nil
	t.mu.Unlock()
}

func progress(position time.Duration, player string, durations *trackDurations) float64 {
	d, known := durations.get(player)
	if !known || d <= 0 {
		return 1
	}
	p := float64(position) / float64(d)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// Run builds the source from opts and renders it until ctx is cancelled.
func Run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options) error {
	src, err := NewSource(opts)
	if err != nil {
		return err
	}
	defer src.Close()
	return RunWithSource(ctx, out, layout, opts, src)
}

func RunWithSource(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options, src Source) error {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	durations := &trackDurations{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		followDuration(ctx, src, durations, opts.Clock)
	}()
	defer wg.Wait()

	p := &poller{out: out, leds: layout.LEDs(), opts: opts, src: src, durations: durations}
	ticker := opts.Clock.Ticker(opts.PollInterval)
	defer ticker.Stop()
	for {
		if err := p.poll(ctx); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func followDuration(ctx context.Context, src Source, durations *trackDurations, clk clock.Clock) {
	for {
		err := src.FollowDuration(ctx, durations.set)
		if ctx.Err() != nil {
			return
		}
		durations.reset()
		logger.With(zap.Error(err)).Warn("Lost track metadata, retrying")
		select {
		case <-ctx.Done():
			return
		case <-clk.After(followRetry):
		}
	}
}

type poller struct {
	out       keyboard.Sender
	leds      []uint32
	opts      Options
	src       Source
	durations *trackDurations

	showingPaused bool
	color         lights.Color
	last          *float64
	lastWarning   time.Time
}

// poll renders one frame. It only returns an error when a send was
// interrupted by ctx.
func (p *poller) poll(ctx context.Context) error {
	players, err := p.src.Players(ctx)
	if err != nil {
		logger.With(zap.Error(err)).Debug("No media players")
	}
	color, player, playing := chooseColor(players, p.opts)

	if !playing {
		if p.showingPaused {
			return nil
		}
		p.showingPaused = true
		p.last = nil
		for _, led := range p.leds {
			if err := p.out.SetLEDUrgent(ctx, led, p.opts.PausedColor); err != nil {
				return err
			}
		}
		return nil
	}

	position, err := p.src.Position(ctx, player)
	if err != nil {
		p.warn(err)
		return nil
	}

	if p.showingPaused || color != p.color {
		p.last = nil
	}
	p.showingPaused = false
	p.color = color

	urgent := p.last == nil
	prog := progress(position, player, p.durations)
	for _, level := range util.ProgressBarDiff(prog, p.last, len(p.leds), p.opts.CursorOnly) {
		m := keyboard.Message{
			Index:  p.leds[level.Index],
			Color:  util.Scale(color, level.Brightness),
			Urgent: urgent,
		}
		if err := p.out.Send(ctx, m); err != nil {
			return err
		}
	}
	p.last = &prog
	return nil
}

func (p *poller) warn(err error) {
	now := p.opts.Clock.Now()
	if now.Sub(p.lastWarning) < warningInterval {
		return
	}
	p.lastWarning = now
	logger.With(zap.Error(err)).Warn("Failed to read playback position")
}
