package openrgb

import (
	"context"
	"errors"
	"fmt"

	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"go.uber.org/zap"
)

var logger = logging.New("openrgb")

var ErrNoController = errors.New("openrgb: controller not found")

type Config struct {
	Host       string
	Port       int
	Controller int
}

// Device drives one OpenRGB controller.
type Device struct {
	client *Client
	index  int
	info   Controller
}

var _ lights.Device = (*Device)(nil)

func Connect(ctx context.Context, config Config) (*Device, error) {
	client, err := Dial(ctx, config.Host, config.Port)
	if err != nil {
		return nil, err
	}

	d, err := Open(ctx, client, config)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return d, nil
}

// Open selects the configured controller on an existing client.
func Open(ctx context.Context, client *Client, config Config) (*Device, error) {
	count, err := client.ControllerCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count controllers: %w", err)
	}
	if config.Controller < 0 || config.Controller >= count {
		return nil, fmt.Errorf("%w: index %d, daemon has %d", ErrNoController, config.Controller, count)
	}

	info, err := client.Controller(ctx, config.Controller)
	if err != nil {
		return nil, fmt.Errorf("read controller %d: %w", config.Controller, err)
	}

	logger.With(zap.String("name", info.Name), zap.Int("leds", info.LEDs)).
		Info("OpenRGB controller found")

	return &Device{client: client, index: config.Controller, info: info}, nil
}

// Controllers lists every controller the daemon knows about.
func Controllers(ctx context.Context, client *Client) ([]Controller, error) {
	count, err := client.ControllerCount(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Controller, 0, count)
	for i := 0; i < count; i++ {
		c, err := client.Controller(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("read controller %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *Device) Info() Controller {
	return d.info
}

func (d *Device) LEDCount() int {
	return d.info.LEDs
}

func (d *Device) SetColors(ctx context.Context, colors []lights.Color) error {
	if len(colors) != d.LEDCount() {
		panic(fmt.Sprintf("openrgb: got %d colors for %d LEDs", len(colors), d.LEDCount()))
	}
	return d.client.UpdateLEDs(ctx, d.index, colors)
}

func (d *Device) Close() error {
	return d.client.Close()
}
