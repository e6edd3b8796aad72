package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
keymap:
  key_led_map: {Esc: 0, F1: 1}
  first_in_row: [0, 23, 44, 67, 70, 90]
  skip_indices: [12]
modules:
  - type: workspaces
    leds: [24, 25, 26, null, 27]
  - type: starfield
    leds: [1, 2, 3]
    options: {background: "#231c00", target: "#fcc100", animation_time: 2s}
  - type: noise
    rows: [[40, 41, 42], [60, null, 61]]
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, map[string]uint32{"Esc": 0, "F1": 1}, c.Keymap.KeyLEDMap)
	assert.Equal(t, []uint32{12}, c.Keymap.SkipIndices)
	require.Len(t, c.Modules, 3)
	assert.Equal(t, modules.KindWorkspaces, modules.KindOf(c.Modules[0].Type))
	assert.Equal(t, keyboard.Gap, c.Modules[0].LEDs[3])
	assert.Equal(t, 2*time.Second, c.Modules[1].Type.(*modules.Starfield).AnimationTime)
	assert.Len(t, c.Modules[2].Rows, 2)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("keymap:\n  first_in_rows: [0]\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, c.Modules)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.NoError(t, Save(path, c))
	back, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, c.Keymap, back.Keymap)
	require.Len(t, back.Modules, len(c.Modules))
	for i := range c.Modules {
		assert.Equal(t, c.Modules[i].Type, back.Modules[i].Type)
		assert.Equal(t, c.Modules[i].Layout(), back.Modules[i].Layout())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestKeymapIndex(t *testing.T) {
	k := Keymap{FirstInRow: []uint32{0, 23, 44}, SkipIndices: []uint32{30, 12, 12}}

	tests := []struct {
		x, y int
		want uint32
		ok   bool
	}{
		{0, 0, 0, true},
		{11, 0, 11, true},
		{12, 0, 13, true},
		{3, 1, 27, true},
		{6, 1, 31, true},
		{0, 2, 46, true},
		{0, 3, 0, false},
		{-1, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := k.Index(tt.x, tt.y)
		assert.Equal(t, tt.ok, ok, "(%d,%d)", tt.x, tt.y)
		assert.Equal(t, tt.want, got, "(%d,%d)", tt.x, tt.y)
	}
}

func TestKeymapKey(t *testing.T) {
	k := Keymap{KeyLEDMap: map[string]uint32{"Esc": 0, "Enter": 57}}
	led, ok := k.Key("enter")
	assert.True(t, ok)
	assert.Equal(t, uint32(57), led)
	_, ok = k.Key("Tab")
	assert.False(t, ok)
}

func TestParseSettings(t *testing.T) {
	t.Setenv("LIGHT_TYPE", "LIFX")
	t.Setenv("TICK", "25ms")
	t.Setenv("CONFIG_PATH", "/tmp/kb.yaml")
	t.Setenv("TURN_OFF_ON_EXIT", "false")

	s, err := ParseSettings()
	require.NoError(t, err)
	assert.Equal(t, LightTypeLIFX, s.LightType)
	assert.Equal(t, "/tmp/kb.yaml", s.ConfigPath)
	assert.Equal(t, "localhost", s.OpenRGB().Host)
	assert.Equal(t, 6742, s.OpenRGB().Port)

	opts := s.Controller()
	assert.Equal(t, 25*time.Millisecond, opts.Tick)
	assert.Equal(t, time.Millisecond, opts.UrgentWindow)
	assert.False(t, opts.TurnOffOnExit)
	assert.Equal(t, 200, opts.BatchLimit)
}
