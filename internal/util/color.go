package util

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/scheerer/keyboard-indicators/internal/lights"
)

// RgbToHsb converts to the 16 bit hue/saturation/brightness triple LIFX bulbs
// expect.
func RgbToHsb(r, g, b uint8) (uint16, uint16, uint16) {
	red := float64(r) / 255.0
	green := float64(g) / 255.0
	blue := float64(b) / 255.0

	max := math.Max(red, math.Max(green, blue))
	min := math.Min(red, math.Min(green, blue))
	delta := max - min

	var h, s float64
	v := max

	if delta != 0 {
		s = delta / max

		deltaR := (((max - red) / 6) + (delta / 2)) / delta
		deltaG := (((max - green) / 6) + (delta / 2)) / delta
		deltaB := (((max - blue) / 6) + (delta / 2)) / delta

		switch max {
		case red:
			h = deltaB - deltaG
		case green:
			h = (1.0 / 3.0) + deltaR - deltaB
		default:
			h = (2.0 / 3.0) + deltaG - deltaR
		}

		if h < 0 {
			h += 1
		}
		if h > 1 {
			h -= 1
		}
	}

	return uint16(math.Round(h * 0xFFFF)), uint16(math.Round(s * 0xFFFF)), uint16(math.Round(v * 0xFFFF))
}

// Hsv builds a color from hue in degrees and saturation/value in [0,1].
func Hsv(h, s, v float64) lights.Color {
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return lights.Color{Red: r, Green: g, Blue: b}
}

// ColorList returns n colors with evenly spaced hues.
func ColorList(n int, s, v float64) []lights.Color {
	colors := make([]lights.Color, n)
	for i := range colors {
		colors[i] = Hsv(360*float64(i)/float64(n), s, v)
	}
	return colors
}

// Interpolate blends from towards to by t in [0,1], truncating each channel.
func Interpolate(from, to lights.Color, t float64) lights.Color {
	t = clamp01(t)
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t)
	}
	return lights.Color{
		Red:   mix(from.Red, to.Red),
		Green: mix(from.Green, to.Green),
		Blue:  mix(from.Blue, to.Blue),
	}
}

// AnimationCurve goes background -> target over the first half of t and back
// over the second half.
func AnimationCurve(background, target lights.Color, t float64) lights.Color {
	if t < 0.5 {
		return Interpolate(background, target, 2*t)
	}
	return Interpolate(target, background, 2*t-1)
}

// Overlay composites fg over bg using fg's alpha as weight.
func Overlay(fg lights.RGBA, bg lights.Color) lights.Color {
	a := float64(fg.Alpha) / 255
	mix := func(f, b uint8) uint8 {
		return uint8(math.Round(float64(f)*a + float64(b)*(1-a)))
	}
	return lights.Color{
		Red:   mix(fg.Red, bg.Red),
		Green: mix(fg.Green, bg.Green),
		Blue:  mix(fg.Blue, bg.Blue),
	}
}

// Scale multiplies every channel by brightness in [0,1].
func Scale(c lights.Color, brightness float64) lights.Color {
	brightness = clamp01(brightness)
	return lights.Color{
		Red:   uint8(math.Round(float64(c.Red) * brightness)),
		Green: uint8(math.Round(float64(c.Green) * brightness)),
		Blue:  uint8(math.Round(float64(c.Blue) * brightness)),
	}
}

// Average is the per-channel mean, truncated. ok is false for no colors.
func Average(colors []lights.Color) (avg lights.Color, ok bool) {
	if len(colors) == 0 {
		return lights.Color{}, false
	}
	var r, g, b int
	for _, c := range colors {
		r += int(c.Red)
		g += int(c.Green)
		b += int(c.Blue)
	}
	n := len(colors)
	return lights.Color{Red: uint8(r / n), Green: uint8(g / n), Blue: uint8(b / n)}, true
}

func clamp01(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
