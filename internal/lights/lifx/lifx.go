package lifx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/logging"
	"github.com/scheerer/keyboard-indicators/internal/util"
	"go.uber.org/zap"
)

var logger = logging.New("lifx")

var ErrNoLights = errors.New("lifx: group has no lights")

const kelvin = 3500

type Config struct {
	GroupName        string
	MaxBrightness    float64
	MinBrightness    float64
	Transition       time.Duration
	DiscoveryTimeout time.Duration
}

type bulb interface {
	SetColor(color common.Color, duration time.Duration) error
}

// Lights exposes every bulb of a LIFX group as one LED, ordered by device
// id so indices stay stable between runs.
type Lights struct {
	config Config
	client *golifx.Client
	bulbs  []bulb
	last   []common.Color
	sent   []bool
}

var _ lights.Device = (*Lights)(nil)

func Connect(ctx context.Context, config Config) (*Lights, error) {
	client, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return nil, err
	}

	if config.DiscoveryTimeout <= 0 {
		config.DiscoveryTimeout = 15 * time.Second
	}
	client.SetDiscoveryInterval(config.DiscoveryTimeout)

	group, err := discover(ctx, client, config)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	members := group.Lights()
	if len(members) == 0 {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoLights, config.GroupName)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID() < members[j].ID() })

	bulbs := make([]bulb, len(members))
	for i, m := range members {
		bulbs[i] = m
	}

	logger.With(zap.String("group", config.GroupName), zap.Int("lights", len(bulbs))).
		Info("LIFX group found")
	return newLights(config, client, bulbs), nil
}

func newLights(config Config, client *golifx.Client, bulbs []bulb) *Lights {
	return &Lights{
		config: config,
		client: client,
		bulbs:  bulbs,
		last:   make([]common.Color, len(bulbs)),
		sent:   make([]bool, len(bulbs)),
	}
}

func discover(ctx context.Context, client *golifx.Client, config Config) (common.Group, error) {
	logger.With(zap.String("group", config.GroupName)).Info("LIFX discovery starting...")

	type result struct {
		group common.Group
		err   error
	}
	completed := make(chan result, 1)
	go func() {
		g, err := client.GetGroupByLabel(config.GroupName)
		completed <- result{group: g, err: err}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, config.DiscoveryTimeout)
	defer cancel()

	select {
	case <-ctxWithTimeout.Done():
		return nil, fmt.Errorf("LIFX discovery of group %q: %w", config.GroupName, ctxWithTimeout.Err())
	case r := <-completed:
		if r.err != nil {
			return nil, fmt.Errorf("LIFX group %q: %w", config.GroupName, r.err)
		}
		return r.group, nil
	}
}

func (l *Lights) LEDCount() int {
	return len(l.bulbs)
}

// SetColors only talks to bulbs whose color changed since the last call.
func (l *Lights) SetColors(ctx context.Context, colors []lights.Color) error {
	if len(colors) != len(l.bulbs) {
		panic(fmt.Sprintf("lifx: got %d colors for %d lights", len(colors), len(l.bulbs)))
	}

	var errs []error
	for i, c := range colors {
		if err := ctx.Err(); err != nil {
			return err
		}
		lifxColor := adjustColor(newLifxColor(c), l.config)
		if l.sent[i] && l.last[i] == lifxColor {
			continue
		}
		if err := l.bulbs[i].SetColor(lifxColor, l.config.Transition); err != nil {
			errs = append(errs, fmt.Errorf("light %d: %w", i, err))
			continue
		}
		l.last[i] = lifxColor
		l.sent[i] = true
	}
	return errors.Join(errs...)
}

func (l *Lights) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

func newLifxColor(color lights.Color) common.Color {
	hue, saturation, brightness := util.RgbToHsb(color.Red, color.Green, color.Blue)

	return common.Color{
		Hue:        hue,
		Saturation: saturation,
		Brightness: brightness,
		Kelvin:     kelvin,
	}
}

func adjustColor(color common.Color, config Config) common.Color {
	blackThreshold := 0.015 * 0xFFFF
	if color.Brightness <= uint16(blackThreshold) && color.Saturation <= uint16(blackThreshold) {
		return common.Color{Kelvin: kelvin}
	}

	color.Brightness = uint16(math.Min(config.MaxBrightness*0xFFFF, math.Max(config.MinBrightness*0xFFFF, float64(color.Brightness))))
	return color
}
