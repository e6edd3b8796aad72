package util

import (
	"testing"

	"github.com/scheerer/keyboard-indicators/internal/lights"
	"github.com/stretchr/testify/assert"
)

var (
	amber = lights.Color{Red: 252, Green: 193, Blue: 2}
	dim   = lights.Color{Red: 35, Green: 28, Blue: 0}
)

func TestInterpolate(t *testing.T) {
	black := lights.Color{}
	white := lights.White

	assert.Equal(t, black, Interpolate(black, white, 0))
	assert.Equal(t, white, Interpolate(black, white, 1))
	assert.Equal(t, lights.Color{127, 127, 127}, Interpolate(black, white, 0.5))
	assert.Equal(t, white, Interpolate(black, white, 7), "t is clamped")

	for _, c := range []lights.Color{black, white, amber, dim, {3, 5, 7}} {
		for _, step := range []float64{0, 0.1, 0.33, 0.5, 0.77, 1} {
			assert.Equal(t, c, Interpolate(c, c, step))
		}
	}
}

func TestAnimationCurveIsClosedLoop(t *testing.T) {
	assert.Equal(t, dim, AnimationCurve(dim, amber, 0))
	assert.Equal(t, amber, AnimationCurve(dim, amber, 0.5))
	assert.Equal(t, dim, AnimationCurve(dim, amber, 1))

	rising := AnimationCurve(dim, amber, 0.25)
	falling := AnimationCurve(dim, amber, 0.75)
	assert.Greater(t, rising.Red, dim.Red)
	assert.Less(t, rising.Red, amber.Red)
	assert.Equal(t, rising, falling)
}

func TestOverlay(t *testing.T) {
	fg := lights.RGBA{Color: amber, Alpha: 255}
	assert.Equal(t, amber, Overlay(fg, dim))

	fg.Alpha = 0
	assert.Equal(t, dim, Overlay(fg, dim))

	half := lights.RGBA{Color: lights.White, Alpha: 128}
	got := Overlay(half, lights.Color{})
	assert.Equal(t, lights.Color{128, 128, 128}, got)
}

func TestAverage(t *testing.T) {
	_, ok := Average(nil)
	assert.False(t, ok)

	avg, ok := Average([]lights.Color{{10, 20, 30}, {20, 40, 61}})
	assert.True(t, ok)
	assert.Equal(t, lights.Color{15, 30, 45}, avg)
}

func TestScale(t *testing.T) {
	assert.Equal(t, lights.Color{}, Scale(amber, 0))
	assert.Equal(t, amber, Scale(amber, 1))
	assert.Equal(t, lights.Color{50, 100, 0}, Scale(lights.Color{100, 200, 0}, 0.5))
}

func TestColorList(t *testing.T) {
	colors := ColorList(3, 1, 1)
	assert.Equal(t, []lights.Color{
		{Red: 255},
		{Green: 255},
		{Blue: 255},
	}, colors)

	assert.Len(t, ColorList(12, 1, 1), 12)
}

func TestRgbToHsb(t *testing.T) {
	h, s, b := RgbToHsb(255, 0, 0)
	assert.Equal(t, [3]uint16{0, 0xFFFF, 0xFFFF}, [3]uint16{h, s, b})

	h, s, b = RgbToHsb(0, 0, 0)
	assert.Equal(t, [3]uint16{0, 0, 0}, [3]uint16{h, s, b})

	h, _, _ = RgbToHsb(0, 255, 0)
	assert.InDelta(t, 0xFFFF/3, h, 1)
}
