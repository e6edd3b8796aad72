package media

import (
	"context"
	"time"
)

type Status string

const (
	Playing Status = "Playing"
	Paused  Status = "Paused"
	Stopped Status = "Stopped"
)

// Player is one media player as reported by a Source.
type Player struct {
	Name   string
	Status Status
	Title  string
}

// Source reports what media is playing.
type Source interface {
	Players(ctx context.Context) ([]Player, error)
	// Position is the playback position of the named player.
	Position(ctx context.Context, player string) (time.Duration, error)
	// FollowDuration calls update with the length of the current track of a
	// player whenever it changes, known is false when no length is
	// available. It blocks until ctx is cancelled or the source fails.
	FollowDuration(ctx context.Context, update func(player string, d time.Duration, known bool)) error
	Close() error
}
