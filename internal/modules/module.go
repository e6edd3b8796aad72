// Package modules is the closed set of effects a keyboard can run, each with
// its own options and assigned LEDs.
package modules

import (
	"context"
	"errors"
	"fmt"

	"github.com/scheerer/keyboard-indicators/internal/keyboard"
	"github.com/scheerer/keyboard-indicators/internal/modules/media"
	"github.com/scheerer/keyboard-indicators/internal/modules/noise"
	"github.com/scheerer/keyboard-indicators/internal/modules/screencolor"
	"github.com/scheerer/keyboard-indicators/internal/modules/starfield"
	"github.com/scheerer/keyboard-indicators/internal/modules/workspaces"
	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindWorkspaces  Kind = "workspaces"
	KindMedia       Kind = "media"
	KindStarfield   Kind = "starfield"
	KindNoise       Kind = "noise"
	KindScreenColor Kind = "screencolor"
)

var ErrUnknownKind = errors.New("unknown module type")

// Type is one of *Workspaces, *Media, *Starfield, *Noise or *ScreenColor.
type Type interface {
	isType()
}

type Workspaces struct {
	workspaces.Options `yaml:",inline"`
}

type Media struct {
	media.Options `yaml:",inline"`
}

type Starfield struct {
	starfield.Options `yaml:",inline"`
}

type Noise struct {
	noise.Options `yaml:",inline"`
}

type ScreenColor struct {
	screencolor.Options `yaml:",inline"`
}

func (*Workspaces) isType()  {}
func (*Media) isType()       {}
func (*Starfield) isType()   {}
func (*Noise) isType()       {}
func (*ScreenColor) isType() {}

// Kinds lists every module type in display order.
func Kinds() []Kind {
	return []Kind{KindWorkspaces, KindMedia, KindStarfield, KindNoise, KindScreenColor}
}

// New returns a module type of kind with default options.
func New(kind Kind) (Type, error) {
	var t Type
	switch kind {
	case KindWorkspaces:
		t = &Workspaces{}
	case KindMedia:
		t = &Media{}
	case KindStarfield:
		t = &Starfield{}
	case KindNoise:
		t = &Noise{}
	case KindScreenColor:
		t = &ScreenColor{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	Reset(t)
	return t, nil
}

// All returns one module type of every kind with default options.
func All() []Type {
	var out []Type
	for _, kind := range Kinds() {
		t, _ := New(kind)
		out = append(out, t)
	}
	return out
}

func KindOf(t Type) Kind {
	switch t.(type) {
	case *Workspaces:
		return KindWorkspaces
	case *Media:
		return KindMedia
	case *Starfield:
		return KindStarfield
	case *Noise:
		return KindNoise
	case *ScreenColor:
		return KindScreenColor
	}
	panic(fmt.Sprintf("modules: unhandled type %T", t))
}

func Name(t Type) string {
	switch t.(type) {
	case *Workspaces:
		return "Sway Workspaces"
	case *Media:
		return "Media Player Monitor"
	case *Starfield:
		return "Starfield Ambient"
	case *Noise:
		return "Noise"
	case *ScreenColor:
		return "Screen Color"
	}
	panic(fmt.Sprintf("modules: unhandled type %T", t))
}

func Description(t Type) string {
	switch t.(type) {
	case *Workspaces:
		return "One key per workspace, colored by the apps open on it"
	case *Media:
		return "Shows media playhead and platform on keyboard"
	case *Starfield:
		return "Keys slowly twinkle between two colors"
	case *Noise:
		return "Drifting clouds of two colors"
	case *ScreenColor:
		return "Mirrors the dominant color of a display"
	}
	panic(fmt.Sprintf("modules: unhandled type %T", t))
}

// Reset puts the options of t back to their defaults.
func Reset(t Type) {
	switch t := t.(type) {
	case *Workspaces:
		t.Options = workspaces.DefaultOptions()
	case *Media:
		t.Options = media.DefaultOptions()
	case *Starfield:
		t.Options = starfield.DefaultOptions()
	case *Noise:
		t.Options = noise.DefaultOptions()
	case *ScreenColor:
		t.Options = screencolor.DefaultOptions()
	default:
		panic(fmt.Sprintf("modules: unhandled type %T", t))
	}
}

// Module is an effect together with the LEDs it draws on.
type Module struct {
	Type Type
	// LEDs is the flat layout. Two gaps in a row start a new row.
	LEDs []keyboard.Slot
	// Rows, when set, is an explicit grid and LEDs is ignored.
	Rows [][]keyboard.Slot
}

func (m Module) Layout() keyboard.Layout {
	if m.Rows != nil {
		return keyboard.NewGridLayout(m.Rows)
	}
	return keyboard.NewLayout(m.LEDs)
}

// Run starts the effect and blocks until ctx is cancelled or it fails to
// start.
func Run(ctx context.Context, m Module, out keyboard.Sender) error {
	layout := m.Layout()
	switch t := m.Type.(type) {
	case *Workspaces:
		return workspaces.Run(ctx, out, layout, t.Options)
	case *Media:
		return media.Run(ctx, out, layout, t.Options)
	case *Starfield:
		return starfield.Run(ctx, out, layout, t.Options)
	case *Noise:
		return noise.Run(ctx, out, layout, t.Options)
	case *ScreenColor:
		return screencolor.Run(ctx, out, layout, t.Options)
	}
	panic(fmt.Sprintf("modules: unhandled type %T", m.Type))
}

type moduleYAML struct {
	Type    Kind        `yaml:"type"`
	LEDs    []*uint32   `yaml:"leds,omitempty"`
	Rows    [][]*uint32 `yaml:"rows,omitempty"`
	Options yaml.Node   `yaml:"options,omitempty"`
}

type moduleOut struct {
	Type    Kind        `yaml:"type"`
	LEDs    []*uint32   `yaml:"leds,omitempty"`
	Rows    [][]*uint32 `yaml:"rows,omitempty"`
	Options Type        `yaml:"options"`
}

// UnmarshalYAML decodes options on top of the defaults of the module type, so
// absent fields keep their default value.
func (m *Module) UnmarshalYAML(value *yaml.Node) error {
	var raw moduleYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	t, err := New(raw.Type)
	if err != nil {
		return err
	}
	if !raw.Options.IsZero() {
		// yaml.v3 merges a mapping into an existing map, a configured map
		// has to replace the default one.
		if w, ok := t.(*Workspaces); ok && hasKey(&raw.Options, "app_colors") {
			w.AppColors = nil
		}
		if err := raw.Options.Decode(t); err != nil {
			return fmt.Errorf("%s options: %w", raw.Type, err)
		}
	}

	m.Type = t
	m.LEDs = toSlots(raw.LEDs)
	m.Rows = nil
	for _, row := range raw.Rows {
		m.Rows = append(m.Rows, toSlots(row))
	}
	return nil
}

func (m Module) MarshalYAML() (any, error) {
	out := moduleOut{Type: KindOf(m.Type), Options: m.Type}
	if m.Rows != nil {
		for _, row := range m.Rows {
			out.Rows = append(out.Rows, fromSlots(row))
		}
	} else {
		out.LEDs = fromSlots(m.LEDs)
	}
	return out, nil
}

func hasKey(mapping *yaml.Node, key string) bool {
	if mapping.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return true
		}
	}
	return false
}

func toSlots(leds []*uint32) []keyboard.Slot {
	slots := make([]keyboard.Slot, len(leds))
	for i, led := range leds {
		if led != nil {
			slots[i] = keyboard.LED(*led)
		}
	}
	return slots
}

func fromSlots(slots []keyboard.Slot) []*uint32 {
	leds := make([]*uint32, len(slots))
	for i, s := range slots {
		if s.Valid {
			led := s.LED
			leds[i] = &led
		}
	}
	return leds
}
