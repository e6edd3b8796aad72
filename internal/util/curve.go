package util

import (
	"math"

	"github.com/scheerer/keyboard-indicators/internal/lights"
)

// ComputeLightCurve remaps a channel value along a hyperbola through (0,0)
// and (255,255). Larger k bends the curve less. k <= 0 has no usable curve
// and leaves x unchanged.
func ComputeLightCurve(k float64, x uint8) uint8 {
	if k <= 0 {
		return x
	}
	common := 255 + math.Sqrt(65025+4*k)
	result := 2 * k * (-1/(2*float64(x)-common) - 1/common)
	return uint8(math.Max(0, math.Min(255, math.Round(result))))
}

func LightCurve(k float64, c lights.Color) lights.Color {
	if k <= 0 {
		return c
	}
	return lights.Color{
		Red:   ComputeLightCurve(k, c.Red),
		Green: ComputeLightCurve(k, c.Green),
		Blue:  ComputeLightCurve(k, c.Blue),
	}
}
