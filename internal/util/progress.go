package util

import "math"

// Level is the brightness one LED of a progress bar should have.
type Level struct {
	Index      int
	Brightness float64
}

// ProgressBar rasterizes progress in [0,1] onto n LEDs. In fill mode every LED
// behind the position is lit and the boundary LED is lit by the fractional
// part; progress 0 leaves the bar dark. With cursorOnly only the position is
// drawn, anti-aliased over two neighbouring LEDs.
func ProgressBar(progress float64, n int, cursorOnly bool) []float64 {
	if n <= 0 {
		return nil
	}
	progress = clamp01(progress)

	pos := progress * float64(n)
	back := int(math.Floor(pos))
	toNext := pos - float64(back)

	offset := 1
	if cursorOnly {
		offset = 0
	}

	out := make([]float64, 0, n)
	for i := offset; i < n+offset; i++ {
		var v float64
		switch {
		case i < back:
			if !cursorOnly {
				v = 1
			}
		case i == back:
			if cursorOnly {
				v = 1 - toNext
			} else {
				v = 1
			}
		case i == back+1:
			v = toNext
		}
		out = append(out, v)
	}
	return out
}

// ProgressBarDiff returns the LEDs whose brightness differs between last and
// progress. A nil last returns the whole bar.
func ProgressBarDiff(progress float64, last *float64, n int, cursorOnly bool) []Level {
	bar := ProgressBar(progress, n, cursorOnly)
	var prev []float64
	if last != nil {
		prev = ProgressBar(*last, n, cursorOnly)
	}

	var out []Level
	for i, v := range bar {
		if prev != nil && prev[i] == v {
			continue
		}
		out = append(out, Level{Index: i, Brightness: v})
	}
	return out
}
