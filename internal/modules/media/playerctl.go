package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Playerctl reads MPRIS players through the playerctl command.
type Playerctl struct {
	run    func(ctx context.Context, args ...string) ([]byte, error)
	follow func(ctx context.Context, args ...string) (io.ReadCloser, error)
}

func NewPlayerctl(binary string) *Playerctl {
	if binary == "" {
		binary = "playerctl"
	}
	return &Playerctl{
		run: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, binary, args...).Output()
		},
		follow: func(ctx context.Context, args ...string) (io.ReadCloser, error) {
			cmd := exec.CommandContext(ctx, binary, args...)
			stdout, err := cmd.StdoutPipe()
			if err != nil {
				return nil, err
			}
			if err := cmd.Start(); err != nil {
				return nil, err
			}
			return &commandOutput{ReadCloser: stdout, cmd: cmd}, nil
		},
	}
}

type commandOutput struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *commandOutput) Close() error {
	_ = c.ReadCloser.Close()
	return c.cmd.Wait()
}

func (p *Playerctl) lines(ctx context.Context, args ...string) ([]string, error) {
	out, err := p.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("playerctl %s: %w", strings.Join(args, " "), err)
	}
	out = bytes.TrimRight(out, "\n")
	if len(out) == 0 {
		return nil, nil
	}
	return strings.Split(string(out), "\n"), nil
}

// Players pairs the output of `playerctl -l` with the per-player status and
// title lists, which playerctl prints in the same order.
func (p *Playerctl) Players(ctx context.Context) ([]Player, error) {
	names, err := p.lines(ctx, "-l")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	statuses, err := p.lines(ctx, "status", "-a")
	if err != nil {
		return nil, err
	}
	titles, err := p.lines(ctx, "metadata", "xesam:title", "-a")
	if err != nil {
		// players without metadata make this fail; titles are optional
		titles = nil
	}

	players := make([]Player, len(names))
	for i, name := range names {
		players[i].Name = strings.TrimSpace(name)
		if i < len(statuses) {
			players[i].Status = Status(strings.TrimSpace(statuses[i]))
		}
		if i < len(titles) {
			players[i].Title = strings.TrimSpace(titles[i])
		}
	}
	return players, nil
}

func (p *Playerctl) Position(ctx context.Context, player string) (time.Duration, error) {
	args := []string{"position"}
	if player != "" {
		args = []string{"--player", player, "position"}
	}
	out, err := p.run(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("playerctl %s: %w", strings.Join(args, " "), err)
	}
	return parseSeconds(strings.TrimSpace(string(out)))
}

// FollowDuration follows the metadata of every player. Each line is the
// player instance, as listed by -l, and the track length in microseconds, which is empty for
// streams.
func (p *Playerctl) FollowDuration(ctx context.Context, update func(string, time.Duration, bool)) error {
	out, err := p.follow(ctx, "metadata", "--all-players", "--follow", "--format", "{{playerInstance}} {{mpris:length}}")
	if err != nil {
		return fmt.Errorf("playerctl metadata --follow: %w", err)
	}
	defer out.Close()

	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		name, length, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		if name == "" {
			continue
		}
		micros, err := strconv.ParseInt(strings.TrimSpace(length), 10, 64)
		if err != nil || micros <= 0 {
			update(name, 0, false)
			continue
		}
		update(name, time.Duration(micros)*time.Microsecond, true)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("playerctl metadata --follow exited")
}

func (p *Playerctl) Close() error { return nil }

func parseSeconds(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse position %q: %w", s, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
