package lights

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidColor = errors.New("invalid color")

type Color struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

var (
	Black = Color{}
	White = Color{Red: 255, Green: 255, Blue: 255}
)

// RGBA is a color with an alpha channel used as the blend weight when it is
// overlaid on another color.
type RGBA struct {
	Color
	Alpha uint8
}

// Device is a strip of addressable LEDs.
type Device interface {
	// LEDCount is fixed for the lifetime of the device.
	LEDCount() int
	// SetColors writes one color per LED. len(colors) must equal LEDCount.
	SetColors(ctx context.Context, colors []Color) error
	Close() error
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts "#rrggbb", "rrggbb", "r,g,b" and "r g b".
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c RGBA) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.Red, c.Green, c.Blue, c.Alpha)
}

func (c RGBA) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the Color formats, with an optional fourth alpha
// component. A missing alpha is fully opaque.
func (c *RGBA) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 8 && isHex(hex) {
		v, _ := strconv.ParseUint(hex, 16, 32)
		*c = RGBA{
			Color: Color{Red: uint8(v >> 24), Green: uint8(v >> 16), Blue: uint8(v >> 8)},
			Alpha: uint8(v),
		}
		return nil
	}
	if parts := splitComponents(s); len(parts) == 4 {
		vals, err := parseComponents(parts)
		if err != nil {
			return err
		}
		*c = RGBA{Color: Color{vals[0], vals[1], vals[2]}, Alpha: vals[3]}
		return nil
	}
	base, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = RGBA{Color: base, Alpha: 255}
	return nil
}

func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 6 && isHex(hex) {
		v, _ := strconv.ParseUint(hex, 16, 32)
		return Color{Red: uint8(v >> 16), Green: uint8(v >> 8), Blue: uint8(v)}, nil
	}
	parts := splitComponents(s)
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	vals, err := parseComponents(parts)
	if err != nil {
		return Color{}, err
	}
	return Color{Red: vals[0], Green: vals[1], Blue: vals[2]}, nil
}

func splitComponents(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

func parseComponents(parts []string) ([]uint8, error) {
	vals := make([]uint8, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: component %q", ErrInvalidColor, p)
		}
		vals[i] = uint8(v)
	}
	return vals, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
