package modules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/scheerer/keyboard-indicators/internal/screen"
)

// Setting is one editable option of a module type.
type Setting struct {
	Label string
	Get   func() string
	Set   func(string) error
}

// Settings lists the editable options of t. Setters write through to t.
func Settings(t Type) []Setting {
	switch t := t.(type) {
	case *Workspaces:
		o := &t.Options
		return []Setting{
			rgbaSetting("Focused overlay", &o.FocusedOverlay),
			rgbaSetting("Unfocused overlay", &o.UnfocusedOverlay),
			colorSetting("Unfocused color", &o.UnfocusedColor),
			colorSetting("Empty color", &o.EmptyColor),
			colorSetting("Urgent color", &o.UrgentColor),
			appColorsSetting("App colors", &o.AppColors),
		}
	case *Media:
		o := &t.Options
		return []Setting{
			stringSetting("Source", &o.Source),
			stringSetting("MPD address", &o.MPDAddress),
			boolSetting("Cursor only", &o.CursorOnly),
			durationSetting("Poll interval", &o.PollInterval),
			colorSetting("Paused color", &o.PausedColor),
			colorSetting("Playing color", &o.PlayingColor),
			colorSetting("Spotify color", &o.SpotifyColor),
			colorSetting("Netflix color", &o.NetflixColor),
		}
	case *Starfield:
		o := &t.Options
		return []Setting{
			colorSetting("Background", &o.Background),
			colorSetting("Target", &o.Target),
			durationSetting("Animation time", &o.AnimationTime),
			durationSetting("Time variation", &o.TimeVariation),
			durationSetting("Interval", &o.Interval),
		}
	case *Noise:
		o := &t.Options
		return []Setting{
			colorSetting("Color 1", &o.Color1),
			colorSetting("Color 2", &o.Color2),
			floatSetting("Speed", &o.Speed),
			floatSetting("Zoom", &o.Zoom),
			durationSetting("Interval", &o.Interval),
		}
	case *ScreenColor:
		o := &t.Options
		algo := stringSetting("Algorithm", &o.Algorithm)
		set := algo.Set
		algo.Set = func(s string) error {
			if _, err := screen.Lookup(s); err != nil {
				return err
			}
			return set(strings.ToUpper(s))
		}
		return []Setting{
			durationSetting("Capture interval", &o.CaptureInterval),
			algo,
			intSetting("Pixel grid size", &o.PixelGridSize),
			intSetting("Screen number", &o.ScreenNumber),
		}
	}
	panic(fmt.Sprintf("modules: unhandled type %T", t))
}

func stringSetting(label string, v *string) Setting {
	return Setting{
		Label: label,
		Get:   func() string { return *v },
		Set: func(s string) error {
			*v = strings.TrimSpace(s)
			return nil
		},
	}
}

func boolSetting(label string, v *bool) Setting {
	return Setting{
		Label: label,
		Get:   func() string { return strconv.FormatBool(*v) },
		Set: func(s string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			*v = b
			return nil
		},
	}
}

func intSetting(label string, v *int) Setting {
	return Setting{
		Label: label,
		Get:   func() string { return strconv.Itoa(*v) },
		Set: func(s string) error {
			i, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			*v = i
			return nil
		},
	}
}

func floatSetting(label string, v *float64) Setting {
	return Setting{
		Label: label,
		Get:   func() string { return strconv.FormatFloat(*v, 'g', -1, 64) },
		Set: func(s string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			*v = f
			return nil
		},
	}
}

func durationSetting(label string, v *time.Duration) Setting {
	return Setting{
		Label: label,
		Get:   func() string { return v.String() },
		Set: func(s string) error {
			d, err := time.ParseDuration(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			if d <= 0 {
				return fmt.Errorf("%s: must be positive", label)
			}
			*v = d
			return nil
		},
	}
}

func colorSetting(label string, v *lights.Color) Setting {
	return Setting{
		Label: label,
		Get:   func() string { return v.String() },
		Set: func(s string) error {
			c, err := lights.ParseColor(s)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			*v = c
			return nil
		},
	}
}

func rgbaSetting(label string, v *lights.RGBA) Setting {
	return Setting{
		Label: label,
		Get:   func() string { return v.String() },
		Set: func(s string) error {
			var c lights.RGBA
			if err := c.UnmarshalText([]byte(s)); err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			*v = c
			return nil
		},
	}
}

// appColorsSetting edits a map as "app=color" pairs separated by ";".
func appColorsSetting(label string, v *map[string]lights.Color) Setting {
	return Setting{
		Label: label,
		Get: func() string {
			apps := make([]string, 0, len(*v))
			for app := range *v {
				apps = append(apps, app)
			}
			sort.Strings(apps)
			pairs := make([]string, len(apps))
			for i, app := range apps {
				pairs[i] = app + "=" + (*v)[app].String()
			}
			return strings.Join(pairs, ";")
		},
		Set: func(s string) error {
			m := map[string]lights.Color{}
			for _, pair := range strings.Split(s, ";") {
				if strings.TrimSpace(pair) == "" {
					continue
				}
				app, color, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("%s: %q is not app=color", label, pair)
				}
				c, err := lights.ParseColor(color)
				if err != nil {
					return fmt.Errorf("%s: %w", label, err)
				}
				m[strings.ToLower(strings.TrimSpace(app))] = c
			}
			*v = m
			return nil
		},
	}
}
