package keyboard

// Slot is one position of a module's layout. A slot without an LED keeps the
// spacing of the layout but is never lit.
type Slot struct {
	LED   uint32
	Valid bool
}

func LED(i uint32) Slot { return Slot{LED: i, Valid: true} }

var Gap = Slot{}

// Layout is the ordered set of LEDs assigned to a module, together with the
// same slots arranged in rows.
type Layout struct {
	Slots []Slot
	Rows  [][]Slot
}

// NewLayout builds a layout from a flat slot list. Two consecutive gaps mark
// the start of a new row.
func NewLayout(slots []Slot) Layout {
	var rows [][]Slot
	var row []Slot
	for i := 0; i < len(slots); i++ {
		if !slots[i].Valid && i+1 < len(slots) && !slots[i+1].Valid {
			rows = append(rows, row)
			row = nil
			i++
			continue
		}
		row = append(row, slots[i])
	}
	rows = append(rows, row)
	return Layout{Slots: slots, Rows: rows}
}

// NewGridLayout builds a layout from explicit rows. The flat order joins the
// rows with a double gap so it reads back to the same rows.
func NewGridLayout(rows [][]Slot) Layout {
	var slots []Slot
	for i, row := range rows {
		if i > 0 {
			slots = append(slots, Gap, Gap)
		}
		slots = append(slots, row...)
	}
	return Layout{Slots: slots, Rows: rows}
}

// LEDs returns the valid LED indices in order.
func (l Layout) LEDs() []uint32 {
	var out []uint32
	for _, s := range l.Slots {
		if s.Valid {
			out = append(out, s.LED)
		}
	}
	return out
}

// Slot returns the slot at position i of the flat order, or a gap when i is
// out of range.
func (l Layout) Slot(i int) Slot {
	if i < 0 || i >= len(l.Slots) {
		return Gap
	}
	return l.Slots[i]
}
