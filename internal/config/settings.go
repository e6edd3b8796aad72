package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/lights/lifx"
	"github.com/scheerer/keyboard-indicators/internal/lights/openrgb"
)

const (
	LightTypeOpenRGB = "OPENRGB"
	LightTypeLIFX    = "LIFX"
)

// Settings are the runtime knobs read from the environment.
type Settings struct {
	LightType string `env:"LIGHT_TYPE" envDefault:"OPENRGB"`

	OpenRGBHost       string `env:"OPENRGB_HOST" envDefault:"localhost"`
	OpenRGBPort       int    `env:"OPENRGB_PORT" envDefault:"6742"`
	OpenRGBController int    `env:"OPENRGB_CONTROLLER" envDefault:"0"`

	LifxGroupName        string        `env:"LIFX_GROUP_NAME" envDefault:"KEYBOARD"`
	LifxMaxBrightness    float64       `env:"LIFX_MAX_BRIGHTNESS" envDefault:"0.65"`
	LifxMinBrightness    float64       `env:"LIFX_MIN_BRIGHTNESS" envDefault:"0"`
	LifxTransition       time.Duration `env:"LIFX_TRANSITION" envDefault:"50ms"`
	LifxDiscoveryTimeout time.Duration `env:"LIFX_DISCOVERY_TIMEOUT" envDefault:"10s"`

	// ConfigPath defaults to DefaultPath.
	ConfigPath string `env:"CONFIG_PATH"`

	Tick          time.Duration `env:"TICK" envDefault:"10ms"`
	UrgentWindow  time.Duration `env:"URGENT_WINDOW" envDefault:"1ms"`
	BatchLimit    int           `env:"BATCH_LIMIT" envDefault:"200"`
	QueueSize     int           `env:"QUEUE_SIZE" envDefault:"200"`
	LightCurveK   float64       `env:"LIGHT_CURVE_K" envDefault:"0"`
	TurnOffOnExit bool          `env:"TURN_OFF_ON_EXIT" envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func ParseSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse environment: %w", err)
	}
	if s.ConfigPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return s, err
		}
		s.ConfigPath = path
	}
	return s, nil
}

func (s Settings) OpenRGB() openrgb.Config {
	return openrgb.Config{
		Host:       s.OpenRGBHost,
		Port:       s.OpenRGBPort,
		Controller: s.OpenRGBController,
	}
}


func (s Settings) Lifx() lifx.Config {
	return lifx.Config{
		GroupName:        s.LifxGroupName,
		MaxBrightness:    s.LifxMaxBrightness,
		MinBrightness:    s.LifxMinBrightness,
		Transition:       s.LifxTransition,
		DiscoveryTimeout: s.LifxDiscoveryTimeout,
	}
}

func (s Settings) Controller() keyboard.Options {
	opts := keyboard.DefaultOptions()
	opts.Tick = s.Tick
	opts.UrgentWindow = s.UrgentWindow
	opts.BatchLimit = s.BatchLimit
	opts.QueueSize = s.QueueSize
	opts.LightCurveK = s.LightCurveK
	opts.TurnOffOnExit = s.TurnOffOnExit
	return opts
}
