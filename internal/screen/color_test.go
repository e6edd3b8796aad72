package screen

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halves paints the left half of a 4x2 image with left and the right half
// with right.
func halves(left, right color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				img.SetRGBA(x, y, left)
			} else {
				img.SetRGBA(x, y, right)
			}
		}
	}
	return img
}

func TestAverageColor(t *testing.T) {
	img := halves(color.RGBA{R: 200, A: 255}, color.RGBA{B: 100, A: 255})
	assert.Equal(t, color.RGBA{R: 100, B: 50, A: 255}, AverageColor(img, 1))
}

func TestSquaredAverageColor(t *testing.T) {
	img := halves(color.RGBA{R: 200, A: 255}, color.RGBA{A: 255})
	got := SquaredAverageColor(img, 1)
	assert.Equal(t, uint8(141), got.R)
	assert.Equal(t, uint8(255), got.A)
}

func TestMedianColor(t *testing.T) {
	img := halves(color.RGBA{G: 10, A: 255}, color.RGBA{G: 30, A: 255})
	img.SetRGBA(0, 0, color.RGBA{G: 30, A: 255})
	assert.Equal(t, uint8(30), MedianColor(img, 1).G)
}

func TestModeColor(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	img := halves(red, color.RGBA{B: 255, A: 255})
	img.SetRGBA(2, 0, red)
	assert.Equal(t, red, ModeColor(img, 1))
}

func TestGridSampling(t *testing.T) {
	img := halves(color.RGBA{R: 90, A: 255}, color.RGBA{R: 10, A: 255})
	// a grid of 2 samples x = 0 and x = 2 in each row
	assert.Equal(t, uint8(50), AverageColor(img, 2).R)
	// a grid size below one behaves like one
	assert.Equal(t, uint8(50), AverageColor(img, 0).R)
}

func TestLookup(t *testing.T) {
	for _, name := range AlgorithmNames() {
		algo, err := Lookup(name)
		require.NoError(t, err)
		assert.NotNil(t, algo)
	}
	_, err := Lookup("average")
	assert.NoError(t, err)

	_, err = Lookup("brightest")
	assert.ErrorContains(t, err, "unknown color algorithm")
}
