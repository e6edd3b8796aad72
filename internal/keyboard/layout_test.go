package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLayoutInfersRows(t *testing.T) {
	l := NewLayout([]Slot{LED(1), LED(2), Gap, LED(3), Gap, Gap, LED(7), LED(8)})

	assert.Equal(t, [][]Slot{
		{LED(1), LED(2), Gap, LED(3)},
		{LED(7), LED(8)},
	}, l.Rows)
	assert.Equal(t, []uint32{1, 2, 3, 7, 8}, l.LEDs())
}

func TestNewLayoutSingleRow(t *testing.T) {
	l := NewLayout([]Slot{LED(4), LED(5)})
	assert.Len(t, l.Rows, 1)
	assert.Equal(t, []Slot{LED(4), LED(5)}, l.Rows[0])
}

func TestGridLayoutRoundTrip(t *testing.T) {
	rows := [][]Slot{{LED(1), Gap, LED(2)}, {LED(3)}}
	grid := NewGridLayout(rows)

	assert.Equal(t, []Slot{LED(1), Gap, LED(2), Gap, Gap, LED(3)}, grid.Slots)
	assert.Equal(t, rows, NewLayout(grid.Slots).Rows)
}

func TestLayoutSlot(t *testing.T) {
	l := NewLayout([]Slot{LED(9), Gap})
	assert.Equal(t, LED(9), l.Slot(0))
	assert.Equal(t, Gap, l.Slot(1))
	assert.Equal(t, Gap, l.Slot(5))
	assert.Equal(t, Gap, l.Slot(-1))
}
