package config

import (
	"slices"
	"strings"
)

// Keymap describes how the LEDs of a keyboard are numbered.
type Keymap struct {
	// KeyLEDMap maps key names to LED indices.
	KeyLEDMap map[string]uint32 `yaml:"key_led_map,omitempty"`
	// FirstInRow is the LED index of the first key of every row.
	FirstInRow []uint32 `yaml:"first_in_row,omitempty"`
	// SkipIndices are LED indices without a key, such as LEDs behind the
	// gap of an ISO enter key.
	SkipIndices []uint32 `yaml:"skip_indices,omitempty"`
}

// Index returns the LED of the key at column x of row y. Every skipped
// index at or before the result shifts it by one.
func (k Keymap) Index(x, y int) (uint32, bool) {
	if y < 0 || y >= len(k.FirstInRow) || x < 0 {
		return 0, false
	}
	index := k.FirstInRow[y] + uint32(x)
	skips := slices.Clone(k.SkipIndices)
	slices.Sort(skips)
	for _, skip := range slices.Compact(skips) {
		if skip <= index {
			index++
		}
	}
	return index, true
}

// Key looks a key up by name, ignoring case.
func (k Keymap) Key(name string) (uint32, bool) {
	if led, ok := k.KeyLEDMap[name]; ok {
		return led, true
	}
	for key, led := range k.KeyLEDMap {
		if strings.EqualFold(key, name) {
			return led, true
		}
	}
	return 0, false
}
