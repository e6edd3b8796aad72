package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scheerer/keyboard-indicators/internal/config"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/lights/lifx"
	"github.com/scheerer/keyboard-indicators/internal/lights/openrgb"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/modules"
)

var logger = logging.New("main")

func main() {
	defer logger.Sync()

	settings, err := config.ParseSettings()
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to parse environment variables")
	}
	if err := logging.SetLevelString(settings.LogLevel); err != nil {
		logger.With(zap.Error(err)).Fatal("Invalid LOG_LEVEL")
	}

	root := buildCLI(settings)
	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-shutdown:
			logger.Info("Shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(shutdown)
	}()
	return ctx, cancel
}

func openDevice(ctx context.Context, settings config.Settings) (lights.Device, error) {
	switch strings.ToUpper(settings.LightType) {
	case config.LightTypeOpenRGB:
		d, err := openrgb.Connect(ctx, settings.OpenRGB())
		if err != nil {
			return nil, fmt.Errorf("%w (is the OpenRGB SDK server running?)", err)
		}
		return d, nil
	case config.LightTypeLIFX:
		return lifx.Connect(ctx, settings.Lifx())
	default:
		return nil, fmt.Errorf("unknown light type %q, valid values are [%s, %s]",
			settings.LightType, config.LightTypeOpenRGB, config.LightTypeLIFX)
	}
}

func start(ctx context.Context, settings config.Settings) error {
	cfg, err := config.Load(settings.ConfigPath)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("%w, add modules with `keyboard-indicators modules add`", err)
		}
		return err
	}
	if len(cfg.Modules) == 0 {
		logger.Warn("No modules configured, the keyboard will stay dark")
	}

	ctx, cancel := signalContext(ctx)
	defer cancel()

	device, err := openDevice(ctx, settings)
	if err != nil {
		return err
	}
	defer device.Close()

	controller := keyboard.New(device, settings.Controller())
	out := controller.Sender()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(ctx)
	})
	for i, m := range cfg.Modules {
		log := logger.With(zap.Int("module", i), zap.String("type", string(modules.KindOf(m.Type))))
		g.Go(func() error {
			log.Info("Module starting")
			if err := modules.Run(ctx, m, out); err != nil {
				log.With(zap.Error(err)).Error("Module failed to start")
				return nil
			}
			log.Debug("Module stopped")
			return nil
		})
	}

	logger.Info("Press Ctrl+C to stop")
	return g.Wait()
}

func buildCLI(settings config.Settings) *ffcli.Command {
	startCmd := &ffcli.Command{
		Name:       "start",
		ShortUsage: "keyboard-indicators start",
		ShortHelp:  "Run every configured module until interrupted",
		LongHelp: "Environment:\n" +
			"  LIGHT_TYPE     OPENRGB or LIFX\n" +
			"  CONFIG_PATH    configuration file, defaults to " + settings.ConfigPath + "\n" +
			"  LIGHT_CURVE_K  brightness curve of the keyboard, 0 disables it\n" +
			"  LOG_LEVEL      debug, info, warn or error",
		Exec: func(ctx context.Context, _ []string) error {
			return start(ctx, settings)
		},
	}

	root := &ffcli.Command{
		ShortUsage: "keyboard-indicators <subcommand>",
		ShortHelp:  "Per-key status indicators for RGB keyboards",
		FlagSet:    flag.NewFlagSet("keyboard-indicators", flag.ExitOnError),
		Subcommands: []*ffcli.Command{
			startCmd,
			modulesCommand(settings),
			highlightCommand(settings),
			keyCommand(settings),
			offCommand(settings),
			controllersCommand(settings),
		},
	}
	root.Exec = func(context.Context, []string) error {
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
		return flag.ErrHelp
	}
	return root
}
