package screen

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strings"
)

// Algorithm reduces a screenshot to one color, looking at every
// pixelGridSize-th pixel in both directions.
type Algorithm func(img *image.RGBA, pixelGridSize int) color.RGBA

var algorithms = map[string]Algorithm{
	"AVERAGE":         AverageColor,
	"SQUARED_AVERAGE": SquaredAverageColor,
	"MEDIAN":          MedianColor,
	"MODE":            ModeColor,
}

// AlgorithmNames lists the valid names for Lookup.
func AlgorithmNames() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Algorithm, error) {
	algo, ok := algorithms[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown color algorithm %q, valid values are %v", name, AlgorithmNames())
	}
	return algo, nil
}

// sample calls fn for every grid pixel and returns how many there were.
func sample(img *image.RGBA, pixelGridSize int, fn func(c color.RGBA)) int {
	if pixelGridSize < 1 {
		pixelGridSize = 1
	}
	bounds := img.Bounds()
	n := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += pixelGridSize {
		for x := bounds.Min.X; x < bounds.Max.X; x += pixelGridSize {
			fn(img.RGBAAt(x, y))
			n++
		}
	}
	return n
}

func AverageColor(img *image.RGBA, pixelGridSize int) color.RGBA {
	var sumR, sumG, sumB, sumA uint64
	n := sample(img, pixelGridSize, func(c color.RGBA) {
		sumR += uint64(c.R)
		sumG += uint64(c.G)
		sumB += uint64(c.B)
		sumA += uint64(c.A)
	})
	if n == 0 {
		return color.RGBA{}
	}
	total := uint64(n)
	return color.RGBA{
		R: uint8(sumR / total),
		G: uint8(sumG / total),
		B: uint8(sumB / total),
		A: uint8(sumA / total),
	}
}

// SquaredAverageColor averages the squares of each channel, which weighs
// bright pixels more than AverageColor.
func SquaredAverageColor(img *image.RGBA, pixelGridSize int) color.RGBA {
	var sumR, sumG, sumB, sumA uint64
	n := sample(img, pixelGridSize, func(c color.RGBA) {
		sumR += uint64(c.R) * uint64(c.R)
		sumG += uint64(c.G) * uint64(c.G)
		sumB += uint64(c.B) * uint64(c.B)
		sumA += uint64(c.A) * uint64(c.A)
	})
	if n == 0 {
		return color.RGBA{}
	}
	total := float64(n)
	root := func(sum uint64) uint8 {
		return uint8(math.Sqrt(float64(sum) / total))
	}
	return color.RGBA{R: root(sumR), G: root(sumG), B: root(sumB), A: root(sumA)}
}

// MedianColor takes the median of each channel separately.
func MedianColor(img *image.RGBA, pixelGridSize int) color.RGBA {
	var reds, greens, blues, alphas []uint8
	sample(img, pixelGridSize, func(c color.RGBA) {
		reds = append(reds, c.R)
		greens = append(greens, c.G)
		blues = append(blues, c.B)
		alphas = append(alphas, c.A)
	})
	if len(reds) == 0 {
		return color.RGBA{}
	}

	median := func(values []uint8) uint8 {
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		n := len(values)
		if n%2 == 0 {
			return uint8((int(values[n/2-1]) + int(values[n/2])) / 2)
		}
		return values[n/2]
	}

	return color.RGBA{
		R: median(reds),
		G: median(greens),
		B: median(blues),
		A: median(alphas),
	}
}

// ModeColor returns the most frequent pixel color.
func ModeColor(img *image.RGBA, pixelGridSize int) color.RGBA {
	colorCount := make(map[color.RGBA]int)
	var order []color.RGBA
	sample(img, pixelGridSize, func(c color.RGBA) {
		if colorCount[c] == 0 {
			order = append(order, c)
		}
		colorCount[c]++
	})

	var modeColor color.RGBA
	maxCount := 0
	for _, c := range order {
		if count := colorCount[c]; count > maxCount {
			maxCount = count
			modeColor = c
		}
	}
	return modeColor
}
