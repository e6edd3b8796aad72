package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type trackLength struct {
	player string
	d      time.Duration
}

type fakeSource struct {
	mu        sync.Mutex
	players   []Player
	positions map[string]time.Duration
	posErr    error
	length    chan trackLength
}

func newFakeSource() *fakeSource {
	return &fakeSource{length: make(chan trackLength, 4), positions: map[string]time.Duration{}}
}

// set replaces the players, every one of them at position.
func (f *fakeSource) set(position time.Duration, players ...Player) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players = players
	f.positions = map[string]time.Duration{}
	for _, p := range players {
		f.positions[p.Name] = position
	}
}

func (f *fakeSource) setPosition(player string, position time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[player] = position
}

func (f *fakeSource) Players(context.Context) ([]Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Player(nil), f.players...), nil
}

func (f *fakeSource) Position(_ context.Context, player string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.positions[player]
	if !ok && f.posErr == nil {
		return 0, errors.New("no such player")
	}
	return pos, f.posErr
}

func (f *fakeSource) FollowDuration(ctx context.Context, update func(string, time.Duration, bool)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case l := <-f.length:
			update(l.player, l.d, l.d > 0)
		}
	}
}

func (f *fakeSource) Close() error { return nil }

func TestChooseColor(t *testing.T) {
	opts := DefaultOptions()
	tests := []struct {
		name    string
		players []Player
		want    lights.Color
		player  string
		playing bool
	}{
		{"nothing", nil, opts.PausedColor, "", false},
		{"all paused", []Player{{Name: "spotify", Status: Paused}}, opts.PausedColor, "", false},
		{"spotify wins", []Player{
			{Name: "firefox", Status: Playing, Title: "Netflix"},
			{Name: "spotify", Status: Playing},
		}, opts.SpotifyColor, "spotify", true},
		{"paused spotify is ignored", []Player{
			{Name: "spotify", Status: Paused},
			{Name: "firefox.instance123", Status: Playing, Title: "Dark | Netflix"},
		}, opts.NetflixColor, "firefox.instance123", true},
		{"netflix title must be playing", []Player{
			{Name: "firefox", Status: Paused, Title: "Netflix"},
			{Name: "vlc", Status: Playing, Title: "song"},
		}, opts.PlayingColor, "vlc", true},
		{"spotify instance", []Player{{Name: "spotify.instance2", Status: Playing}}, opts.SpotifyColor, "spotify.instance2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, player, playing := chooseColor(tt.players, opts)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.player, player)
			assert.Equal(t, tt.playing, playing)
		})
	}
}

func TestProgress(t *testing.T) {
	d := &trackDurations{}
	assert.Equal(t, 1.0, progress(time.Second, "vlc", d), "unknown length shows a full bar")

	d.set("vlc", 4*time.Second, true)
	assert.Equal(t, 0.25, progress(time.Second, "vlc", d))
	assert.Equal(t, 1.0, progress(5*time.Second, "vlc", d))
	assert.Equal(t, 1.0, progress(time.Second, "mpv", d), "lengths are per player")

	d.set("vlc", 0, false)
	assert.Equal(t, 1.0, progress(time.Second, "vlc", d))

	d.set("vlc", 4*time.Second, true)
	d.reset()
	assert.Equal(t, 1.0, progress(time.Second, "vlc", d))
}

func testPoller(src Source, leds ...uint32) (*poller, chan keyboard.Message) {
	ch := make(chan keyboard.Message, 64)
	opts := DefaultOptions()
	opts.Clock = clock.NewMock()
	return &poller{
		out:       keyboard.NewSender(ch),
		leds:      leds,
		opts:      opts,
		src:       src,
		durations: &trackDurations{},
	}, ch
}

func drain(ch chan keyboard.Message) []keyboard.Message {
	var out []keyboard.Message
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestPollerPausedPaintsOnce(t *testing.T) {
	src := newFakeSource()
	p, ch := testPoller(src, 4, 5, 6)
	ctx := context.Background()

	require.NoError(t, p.poll(ctx))
	msgs := drain(ch)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.True(t, m.Urgent)
		assert.Equal(t, p.opts.PausedColor, m.Color)
	}

	require.NoError(t, p.poll(ctx))
	assert.Empty(t, drain(ch))
}

func TestPollerProgressDiffs(t *testing.T) {
	src := newFakeSource()
	p, ch := testPoller(src, 10, 11, 12, 13)
	p.durations.set("vlc", 8*time.Second, true)
	ctx := context.Background()

	src.set(4*time.Second, Player{Name: "vlc", Status: Playing})
	require.NoError(t, p.poll(ctx))
	msgs := drain(ch)
	require.Len(t, msgs, 4, "first frame after start is complete")
	assert.Equal(t, keyboard.Message{Index: 10, Color: lights.White, Urgent: true}, msgs[0])
	assert.Equal(t, keyboard.Message{Index: 12, Color: lights.Black, Urgent: true}, msgs[2])

	src.set(5*time.Second, Player{Name: "vlc", Status: Playing})
	require.NoError(t, p.poll(ctx))
	msgs = drain(ch)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint32(12), msgs[0].Index)
	assert.Equal(t, lights.Color{Red: 128, Green: 128, Blue: 128}, msgs[0].Color)
	assert.False(t, msgs[0].Urgent)

	require.NoError(t, p.poll(ctx))
	assert.Empty(t, drain(ch), "same progress sends nothing")
}

func TestPollerResumeAndColorChangeAreUrgent(t *testing.T) {
	src := newFakeSource()
	p, ch := testPoller(src, 1, 2)
	ctx := context.Background()

	require.NoError(t, p.poll(ctx))
	drain(ch)

	src.set(0, Player{Name: "vlc", Status: Playing})
	require.NoError(t, p.poll(ctx))
	msgs := drain(ch)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Urgent)

	src.set(0, Player{Name: "spotify", Status: Playing})
	require.NoError(t, p.poll(ctx))
	msgs = drain(ch)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.True(t, m.Urgent)
		assert.Equal(t, p.opts.SpotifyColor, m.Color)
	}
}

func TestPollerFollowsTheChosenPlayer(t *testing.T) {
	src := newFakeSource()
	p, ch := testPoller(src, 1, 2, 3, 4)
	p.durations.set("spotify", 8*time.Second, true)
	p.durations.set("vlc", 100*time.Second, true)
	ctx := context.Background()

	src.set(0,
		Player{Name: "vlc", Status: Playing},
		Player{Name: "spotify", Status: Playing},
	)
	src.setPosition("vlc", 90*time.Second)
	src.setPosition("spotify", 2*time.Second)

	require.NoError(t, p.poll(ctx))
	msgs := drain(ch)
	require.Len(t, msgs, 4)
	// spotify at 2s of 8s lights the first LED only, vlc would light three
	assert.Equal(t, keyboard.Message{Index: 1, Color: p.opts.SpotifyColor, Urgent: true}, msgs[0])
	assert.Equal(t, keyboard.Message{Index: 2, Color: lights.Black, Urgent: true}, msgs[1])
}

func TestPollerPositionErrorIsNotFatal(t *testing.T) {
	src := newFakeSource()
	src.set(0, Player{Name: "vlc", Status: Playing})
	src.posErr = errors.New("no position")
	p, ch := testPoller(src, 1)

	assert.NoError(t, p.poll(context.Background()))
	assert.Empty(t, drain(ch))
}

func TestRunWithSourceFollowsDuration(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := newFakeSource()
	src.set(time.Second, Player{Name: "vlc", Status: Playing})
	src.length <- trackLength{"vlc", 4 * time.Second}

	ch := make(chan keyboard.Message, 64)
	mock := clock.NewMock()
	opts := DefaultOptions()
	opts.Clock = mock
	layout := keyboard.NewLayout([]keyboard.Slot{keyboard.LED(0), keyboard.LED(1), keyboard.LED(2), keyboard.LED(3)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunWithSource(ctx, keyboard.NewSender(ch), layout, opts, src) }()

	// with a known 4s track at 1s only the first LED ends up lit
	lit := map[uint32]lights.Color{}
	require.Eventually(t, func() bool {
		mock.Add(opts.PollInterval)
		for _, m := range drain(ch) {
			lit[m.Index] = m.Color
		}
		return lit[1] == lights.Black && lit[0] == lights.White
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("media did not stop")
	}
}

func TestPlayerctlPlayers(t *testing.T) {
	outputs := map[string]string{
		"-l":                      "spotify\nfirefox.instance_1_23\n",
		"status -a":               "Paused\nPlaying\n",
		"metadata xesam:title -a": "Song\nSomething - Netflix\n",

		"--player firefox.instance_1_23 position": "12.500000\n",
	}
	p := &Playerctl{
		run: func(_ context.Context, args ...string) ([]byte, error) {
			out, ok := outputs[strings.Join(args, " ")]
			if !ok {
				return nil, errors.New("unexpected command")
			}
			return []byte(out), nil
		},
		follow: func(_ context.Context, args ...string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("spotify 180000000\nfirefox.instance_1_23 \n\n")), nil
		},
	}
	ctx := context.Background()

	players, err := p.Players(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Player{
		{Name: "spotify", Status: Paused, Title: "Song"},
		{Name: "firefox.instance_1_23", Status: Playing, Title: "Something - Netflix"},
	}, players)

	c, player, ok := chooseColor(players, DefaultOptions())
	assert.True(t, ok)
	assert.Equal(t, DefaultOptions().NetflixColor, c)

	pos, err := p.Position(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, 12500*time.Millisecond, pos)

	var updates []trackLength
	err = p.FollowDuration(ctx, func(player string, d time.Duration, known bool) {
		if !known {
			d = -1
		}
		updates = append(updates, trackLength{player, d})
	})
	assert.Error(t, err, "follow ending on its own is reported")
	assert.Equal(t, []trackLength{{"spotify", 3 * time.Minute}, {"firefox.instance_1_23", -1}}, updates)
}

func TestMPDStatus(t *testing.T) {
	assert.Equal(t, Playing, mpdStatus("play"))
	assert.Equal(t, Paused, mpdStatus("pause"))
	assert.Equal(t, Stopped, mpdStatus("stop"))
	assert.Equal(t, Stopped, mpdStatus(""))
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(Options{Source: SourceMPD, MPDAddress: "/run/mpd/socket"})
	require.NoError(t, err)
	assert.Equal(t, "unix", src.(*MPD).network)

	_, err = NewSource(Options{Source: "winamp"})
	assert.Error(t, err)
}
