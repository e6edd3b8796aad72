// Package workspaces lights one LED per sway/i3 workspace, colored after the
// applications open on it.
package workspaces

import (
	"context"
	"time"

	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/util"
	"go.uber.org/zap"
)

var logger = logging.New("workspaces")

const reconnectDelay = 5 * time.Second

// Workspace change kinds sent by sway.
const (
	changeFocus  = "focus"
	changeEmpty  = "empty"
	changeInit   = "init"
	changeUrgent = "urgent"
)

type Options struct {
	FocusedOverlay   lights.RGBA  `yaml:"focused_overlay"`
	UnfocusedOverlay lights.RGBA  `yaml:"unfocused_overlay"`
	UnfocusedColor   lights.Color `yaml:"unfocused_color"`
	EmptyColor       lights.Color `yaml:"empty_color"`
	UrgentColor      lights.Color `yaml:"urgent_color"`
	// AppColors maps lower-case app ids or X11 classes to colors.
	AppColors map[string]lights.Color `yaml:"app_colors"`
}

func DefaultOptions() Options {
	return Options{
		FocusedOverlay:   lights.RGBA{Color: lights.Color{Red: 255, Green: 255}, Alpha: 160},
		UnfocusedOverlay: lights.RGBA{Color: lights.Black, Alpha: 96},
		UnfocusedColor:   lights.Color{Blue: 255},
		EmptyColor:       lights.Black,
		UrgentColor:      lights.Color{Red: 255},
		AppColors: map[string]lights.Color{
			"spotify": {Red: 30, Green: 215, Blue: 96},
			"discord": {Red: 88, Green: 101, Blue: 242},
			"firefox": {Red: 255, Green: 113, Blue: 57},
		},
	}
}

// workspaceColor averages the colors of the known applications on a
// workspace. Unknown applications do not count.
func workspaceColor(n *Node, opts Options) lights.Color {
	var colors []lights.Color
	for _, id := range appIDs(n) {
		if c, ok := opts.AppColors[id]; ok {
			colors = append(colors, c)
		}
	}
	if avg, ok := util.Average(colors); ok {
		return avg
	}
	return opts.UnfocusedColor
}

type indicator struct {
	out     keyboard.Sender
	layout  keyboard.Layout
	opts    Options
	focused int
}

// slot maps workspace number n to the LED of position n-1.
func (ind *indicator) slot(num int) (uint32, bool) {
	s := ind.layout.Slot(num - 1)
	return s.LED, num >= 1 && s.Valid
}

func (ind *indicator) overlay(n *Node, focused bool) lights.Color {
	base := workspaceColor(n, ind.opts)
	if focused {
		return util.Overlay(ind.opts.FocusedOverlay, base)
	}
	return util.Overlay(ind.opts.UnfocusedOverlay, base)
}

// handle recolors the workspaces of one event. Both payloads are looked at
// since a focus change carries the new and the previous workspace.
func (ind *indicator) handle(ctx context.Context, ev *Event) error {
	if ev.Change == changeFocus && ev.Current != nil && ev.Current.Num != nil {
		ind.focused = *ev.Current.Num
	}
	for _, payload := range []struct {
		node *Node
		old  bool
	}{{ev.Current, false}, {ev.Old, true}} {
		n := payload.node
		if n == nil || n.Num == nil {
			continue
		}
		led, ok := ind.slot(*n.Num)
		if !ok {
			logger.With(zap.Int("workspace", *n.Num)).Debug("Workspace has no LED")
			continue
		}

		var c lights.Color
		switch ev.Change {
		case changeFocus:
			c = ind.overlay(n, !payload.old)
		case changeEmpty:
			c = ind.opts.EmptyColor
		case changeInit:
			c = ind.opts.UnfocusedColor
		case changeUrgent:
			if n.Urgent {
				c = ind.opts.UrgentColor
			} else {
				c = ind.overlay(n, *n.Num == ind.focused)
			}
		default:
			c = ind.overlay(n, *n.Num == ind.focused)
		}
		if err := ind.out.SetLEDUrgent(ctx, led, c); err != nil {
			return err
		}
	}
	return nil
}

// paint draws every existing workspace; the rest of the range is cleared.
func (ind *indicator) paint(ctx context.Context, ws []Workspace, tree *Node) error {
	nodes := workspaceNodes(tree)
	if err := ind.out.SetSlots(ctx, ind.layout.Slots, ind.opts.EmptyColor, true); err != nil {
		return err
	}
	for _, w := range ws {
		if w.Focused {
			ind.focused = w.Num
		}
	}
	for _, w := range ws {
		led, ok := ind.slot(w.Num)
		if !ok {
			continue
		}
		n, found := nodes[w.Num]
		if !found {
			n = &Node{}
		}
		c := ind.overlay(n, w.Focused)
		if w.Urgent {
			c = ind.opts.UrgentColor
		}
		if err := ind.out.SetLEDUrgent(ctx, led, c); err != nil {
			return err
		}
	}
	return nil
}

// Run paints the workspaces of the sway session in SWAYSOCK and follows
// them until ctx is cancelled, reconnecting when sway goes away.
func Run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options) error {
	if !socketSet() {
		return ErrNoSocket
	}
	return run(ctx, out, layout, opts, swayWM{})
}

func run(ctx context.Context, out keyboard.Sender, layout keyboard.Layout, opts Options, wm windowManager) error {
	ind := &indicator{out: out, layout: layout, opts: opts}

	if err := ind.connect(ctx, wm); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	for {
		err := ind.listen(ctx, wm)
		if ctx.Err() != nil {
			return nil
		}
		logger.With(zap.Error(err)).Warn("Lost connection to sway, reconnecting")

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectDelay):
			}
			if err = ind.connect(ctx, wm); err == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			logger.With(zap.Error(err)).Debug("Reconnect failed")
		}
	}
}

// connect paints the current state.
func (ind *indicator) connect(ctx context.Context, wm windowManager) error {
	ws, tree, err := wm.Snapshot(ctx)
	if err != nil {
		return err
	}
	return ind.paint(ctx, ws, tree)
}

func (ind *indicator) listen(ctx context.Context, wm windowManager) error {
	return wm.Subscribe(ctx, func(ctx context.Context, ev *Event) {
		if err := ind.handle(ctx, ev); err != nil && ctx.Err() == nil {
			logger.With(zap.Error(err)).Warn("Failed to update workspace LEDs")
		}
	})
}
