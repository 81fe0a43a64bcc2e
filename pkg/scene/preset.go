package scene

import (
	"maps"
	"slices"

	"github.com/matzehuels/trikot/pkg/errors"
)

// Preset names.
const (
	PresetMobile = "mobile"
	PresetPrint  = "print"
)

// DefaultBackground is the staging background. The capture background must
// match it or the edges fringe.
const DefaultBackground = "#f1f2f2"

// Preset is a logical canvas size plus the overlay text geometry for it.
type Preset struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Header Header `json:"header"`
	Back   Back   `json:"back"`
}

// Header is the greeting at the top left: "Hello <name>" on one baseline,
// followed by the wrapped subline.
type Header struct {
	Top, Left  float64
	Size       float64 // "Hello" and subline
	NameSize   float64
	Weight     int
	Gap        float64 // between "Hello" and the name
	LineGap    float64 // between the greeting and the subline
	LineHeight float64
}

// Back is the back print: the number in the display face, the name in the
// italic UI face below it, both inside a centered column.
type Back struct {
	Top, Width       float64
	NumberSize       float64
	NumberOffset     float64 // horizontal shift of the number
	NumberLineHeight float64
	NameSize         float64
	NameWeight       int
	NameGap          float64 // between number box and name box
	NameLineHeight   float64
}

var presets = map[string]Preset{
	PresetMobile: {
		Name: PresetMobile, Width: 430, Height: 932,
		Header: Header{Top: 32, Left: 24, Size: 34, NameSize: 43, Weight: 200, Gap: 10, LineGap: 10, LineHeight: 1.05},
		Back: Back{
			Top: 588, Width: 258,
			NumberSize: 172, NumberOffset: 65, NumberLineHeight: 1,
			NameSize: 43, NameWeight: 200, NameGap: 0, NameLineHeight: 3.5,
		},
	},
	PresetPrint: {
		Name: PresetPrint, Width: 1080, Height: 1920,
		Header: Header{Top: 100, Left: 17, Size: 75, NameSize: 75, Weight: 400, Gap: 16, LineGap: 16, LineHeight: 1},
		Back: Back{
			Top: 540, Width: 520,
			NumberSize: 300, NumberOffset: 160, NumberLineHeight: 1,
			NameSize: 100, NameWeight: 700, NameGap: 390, NameLineHeight: 1.2,
		},
	},
}

// Lookup returns the preset with the given name.
func Lookup(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, errors.New(errors.ErrCodeInvalidPreset, "unknown preset %q (want one of %v)", name, Names())
	}
	return p, nil
}

// Names lists the preset names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(presets))
}
