package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/scheerer/keyboard-indicators/internal/config"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/lights/openrgb"
	"github.com/scheerer/keyboard-indicators/internal/modules"
	"github.com/scheerer/keyboard-indicators/internal/util"
)

func modulesCommand(settings config.Settings) *ffcli.Command {
	list := &ffcli.Command{
		Name:       "list",
		ShortUsage: "keyboard-indicators modules list",
		ShortHelp:  "Show configured modules and their settings",
		Exec: func(context.Context, []string) error {
			cfg, err := config.Load(settings.ConfigPath)
			if err != nil {
				return err
			}
			return printModules(cfg.Modules)
		},
	}

	types := &ffcli.Command{
		Name:       "types",
		ShortUsage: "keyboard-indicators modules types",
		ShortHelp:  "Show the available module types",
		Exec: func(context.Context, []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, t := range modules.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", modules.KindOf(t), modules.Name(t), modules.Description(t))
			}
			return w.Flush()
		},
	}

	add := &ffcli.Command{
		Name:       "add",
		ShortUsage: "keyboard-indicators modules add <type> <led|_>...",
		ShortHelp:  "Add a module with default settings",
		LongHelp:   "LEDs are listed in order. _ keeps a position without an LED, _ _ starts a new row.",
		Exec: func(_ context.Context, args []string) error {
			if len(args) < 2 {
				return errors.New("need a module type and at least one LED")
			}
			t, err := modules.New(modules.Kind(args[0]))
			if err != nil {
				return err
			}
			slots, err := parseSlots(args[1:])
			if err != nil {
				return err
			}
			return editConfig(settings, true, func(cfg *config.Configuration) error {
				cfg.Modules = append(cfg.Modules, modules.Module{Type: t, LEDs: slots})
				return nil
			})
		},
	}

	remove := &ffcli.Command{
		Name:       "remove",
		ShortUsage: "keyboard-indicators modules remove <index>",
		ShortHelp:  "Remove a module",
		Exec: func(_ context.Context, args []string) error {
			return editModule(settings, args, 1, func(cfg *config.Configuration, i int) error {
				cfg.Modules = append(cfg.Modules[:i], cfg.Modules[i+1:]...)
				return nil
			})
		},
	}

	set := &ffcli.Command{
		Name:       "set",
		ShortUsage: "keyboard-indicators modules set <index> <setting> <value>",
		ShortHelp:  "Change one setting of a module",
		Exec: func(_ context.Context, args []string) error {
			return editModule(settings, args, 3, func(cfg *config.Configuration, i int) error {
				label, value := args[1], strings.Join(args[2:], " ")
				for _, s := range modules.Settings(cfg.Modules[i].Type) {
					if strings.EqualFold(s.Label, label) {
						return s.Set(value)
					}
				}
				return fmt.Errorf("module %d has no setting %q", i, label)
			})
		},
	}

	reset := &ffcli.Command{
		Name:       "reset",
		ShortUsage: "keyboard-indicators modules reset <index>",
		ShortHelp:  "Put the settings of a module back to their defaults",
		Exec: func(_ context.Context, args []string) error {
			return editModule(settings, args, 1, func(cfg *config.Configuration, i int) error {
				modules.Reset(cfg.Modules[i].Type)
				return nil
			})
		},
	}

	return &ffcli.Command{
		Name:        "modules",
		ShortUsage:  "keyboard-indicators modules <subcommand>",
		ShortHelp:   "Manage the configured modules",
		Subcommands: []*ffcli.Command{list, types, add, remove, set, reset},
		Exec: func(ctx context.Context, args []string) error {
			return list.Exec(ctx, args)
		},
	}
}

func printModules(mods []modules.Module) error {
	if len(mods) == 0 {
		fmt.Println("No modules configured.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, m := range mods {
		fmt.Fprintf(w, "%d\t%s\t%d LEDs\t%s\n", i, modules.Name(m.Type), len(m.Layout().LEDs()), modules.Description(m.Type))
		for _, s := range modules.Settings(m.Type) {
			fmt.Fprintf(w, "\t  %s\t%s\t\n", s.Label, s.Get())
		}
	}
	return w.Flush()
}

// parseSlots reads LED indices, with "_" for a gap.
func parseSlots(args []string) ([]keyboard.Slot, error) {
	slots := make([]keyboard.Slot, len(args))
	for i, arg := range args {
		if arg == "_" {
			continue
		}
		led, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("LED %q: %w", arg, err)
		}
		slots[i] = keyboard.LED(uint32(led))
	}
	return slots, nil
}

// editConfig loads, changes and saves the configuration file. With create a
// missing file starts out empty.
func editConfig(settings config.Settings, create bool, edit func(*config.Configuration) error) error {
	cfg, err := config.Load(settings.ConfigPath)
	if create && errors.Is(err, config.ErrNotFound) {
		cfg, err = &config.Configuration{}, nil
	}
	if err != nil {
		return err
	}
	if err := edit(cfg); err != nil {
		return err
	}
	if err := config.Save(settings.ConfigPath, cfg); err != nil {
		return err
	}
	return printModules(cfg.Modules)
}

func editModule(settings config.Settings, args []string, nargs int, edit func(*config.Configuration, int) error) error {
	if len(args) < nargs {
		return flag.ErrHelp
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("module index %q: %w", args[0], err)
	}
	return editConfig(settings, false, func(cfg *config.Configuration) error {
		if i < 0 || i >= len(cfg.Modules) {
			return fmt.Errorf("no module %d, there are %d", i, len(cfg.Modules))
		}
		return edit(cfg, i)
	})
}

// show runs the controller, lets paint draw once and keeps the result on the
// keyboard until interrupted.
func show(ctx context.Context, settings config.Settings, paint func(ctx context.Context, out keyboard.Sender) error) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	device, err := openDevice(ctx, settings)
	if err != nil {
		return err
	}
	defer device.Close()

	controller := keyboard.New(device, settings.Controller())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(ctx)
	})
	g.Go(func() error {
		if err := paint(ctx, controller.Sender()); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("Press Ctrl+C to stop")
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

func highlightCommand(settings config.Settings) *ffcli.Command {
	return &ffcli.Command{
		Name:       "highlight",
		ShortUsage: "keyboard-indicators highlight",
		ShortHelp:  "Light the LEDs of every module in its own color",
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := config.Load(settings.ConfigPath)
			if err != nil {
				return err
			}
			colors := util.ColorList(len(cfg.Modules), 1, 1)
			return show(ctx, settings, func(ctx context.Context, out keyboard.Sender) error {
				for i, m := range cfg.Modules {
					fmt.Printf("%d\t%s\t%s\n", i, colors[i], modules.Name(m.Type))
					if err := out.SetSlots(ctx, m.Layout().Slots, colors[i], true); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func keyCommand(settings config.Settings) *ffcli.Command {
	fs := flag.NewFlagSet("keyboard-indicators key", flag.ExitOnError)
	color := fs.String("color", "#ffffff", "color of the key")

	return &ffcli.Command{
		Name:       "key",
		ShortUsage: "keyboard-indicators key [-color c] <name | x y | led>",
		ShortHelp:  "Light a single key to check the keymap",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			c, err := lights.ParseColor(*color)
			if err != nil {
				return err
			}
			cfg, err := config.Load(settings.ConfigPath)
			if errors.Is(err, config.ErrNotFound) {
				cfg, err = &config.Configuration{}, nil
			}
			if err != nil {
				return err
			}
			led, err := resolveKey(cfg.Keymap, args)
			if err != nil {
				return err
			}
			fmt.Printf("LED %d\n", led)
			return show(ctx, settings, func(ctx context.Context, out keyboard.Sender) error {
				return out.SetLEDUrgent(ctx, led, c)
			})
		},
	}
}

func resolveKey(keymap config.Keymap, args []string) (uint32, error) {
	switch len(args) {
	case 1:
		if led, ok := keymap.Key(args[0]); ok {
			return led, nil
		}
		led, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("unknown key %q", args[0])
		}
		return uint32(led), nil
	case 2:
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX != nil || errY != nil {
			return 0, fmt.Errorf("key position %q: x and y must be numbers", strings.Join(args, " "))
		}
		led, ok := keymap.Index(x, y)
		if !ok {
			return 0, fmt.Errorf("no key at %d,%d", x, y)
		}
		return led, nil
	default:
		return 0, flag.ErrHelp
	}
}

func offCommand(settings config.Settings) *ffcli.Command {
	return &ffcli.Command{
		Name:       "off",
		ShortUsage: "keyboard-indicators off",
		ShortHelp:  "Turn every LED off",
		Exec: func(ctx context.Context, _ []string) error {
			device, err := openDevice(ctx, settings)
			if err != nil {
				return err
			}
			defer device.Close()
			return device.SetColors(ctx, make([]lights.Color, device.LEDCount()))
		},
	}
}

func controllersCommand(settings config.Settings) *ffcli.Command {
	return &ffcli.Command{
		Name:       "controllers",
		ShortUsage: "keyboard-indicators controllers",
		ShortHelp:  "List the devices known to the OpenRGB server",
		Exec: func(ctx context.Context, _ []string) error {
			client, err := openrgb.Dial(ctx, settings.OpenRGBHost, settings.OpenRGBPort)
			if err != nil {
				return err
			}
			defer client.Close()

			ctrls, err := openrgb.Controllers(ctx, client)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tNAME\tLEDS")
			for i, c := range ctrls {
				fmt.Fprintf(w, "%d\t%s\t%d\n", i, c.Name, c.LEDs)
			}
			return w.Flush()
		},
	}
}
