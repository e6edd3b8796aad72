package media

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"go.uber.org/zap"
)

const mpdPlayer = "mpd"

// MPD reads playback state from a Music Player Daemon.
type MPD struct {
	network string
	addr    string

	mu     sync.Mutex
	client *mpd.Client
}

// NewMPD connects lazily. An address starting with "/" is a unix socket.
func NewMPD(addr string) *MPD {
	network := "tcp"
	if strings.HasPrefix(addr, "/") {
		network = "unix"
	}
	return &MPD{network: network, addr: addr}
}

// status runs fn against a connected client and drops the connection when
// it fails so the next call dials again.
func (m *MPD) status(fn func(c *mpd.Client) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		c, err := mpd.Dial(m.network, m.addr)
		if err != nil {
			return err
		}
		m.client = c
	}
	if err := fn(m.client); err != nil {
		_ = m.client.Close()
		m.client = nil
		return err
	}
	return nil
}

func (m *MPD) Players(ctx context.Context) ([]Player, error) {
	var p Player
	err := m.status(func(c *mpd.Client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		song, err := c.CurrentSong()
		if err != nil {
			return err
		}
		p = Player{Name: mpdPlayer, Status: mpdStatus(st["state"]), Title: song["Title"]}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []Player{p}, nil
}

// Position ignores player, MPD is the only one.
func (m *MPD) Position(ctx context.Context, _ string) (time.Duration, error) {
	var pos time.Duration
	err := m.status(func(c *mpd.Client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		pos, err = parseSeconds(st["elapsed"])
		return err
	})
	return pos, err
}

func (m *MPD) duration() (time.Duration, bool) {
	var d time.Duration
	err := m.status(func(c *mpd.Client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		d, err = parseSeconds(st["duration"])
		return err
	})
	return d, err == nil && d > 0
}

// FollowDuration waits on the player subsystem and reads the track length
// after every change.
func (m *MPD) FollowDuration(ctx context.Context, update func(string, time.Duration, bool)) error {
	w, err := mpd.NewWatcher(m.network, m.addr, "", "player")
	if err != nil {
		return err
	}
	defer w.Close()

	d, known := m.duration()
	update(mpdPlayer, d, known)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Event:
			d, known := m.duration()
			update(mpdPlayer, d, known)
		case err := <-w.Error:
			logger.With(zap.Error(err)).Debug("MPD watcher error")
		}
	}
}

func (m *MPD) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}

func mpdStatus(state string) Status {
	switch state {
	case "play":
		return Playing
	case "pause":
		return Paused
	default:
		return Stopped
	}
}
