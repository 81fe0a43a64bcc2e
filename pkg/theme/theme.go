package theme

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Layer identifiers of the shirt template.
const (
	LayerSleeve = "layer-aermel"
	LayerCollar = "layer-kragen"
	LayerSide   = "layer-seiten"
	LayerMiddle = "layer-mitte"

	// PatternPrefix is the shared prefix of the pattern layer family.
	PatternPrefix = "layer-muster-"
)

// PatternCount is the number of pattern layers. It must stay a power of two
// because the pattern index is taken with a bit mask.
const PatternCount = 4

// PatternThreshold is the clean length a note must exceed for a pattern to
// be shown.
const PatternThreshold = 2

// Per-axis salts. They must be pairwise distinct.
const (
	SaltSleeve  uint32 = 101
	SaltCollar  uint32 = 202
	SaltSide    uint32 = 303
	SaltMiddle  uint32 = 404
	SaltPattern uint32 = 6
)

// Theme is the resolved visual configuration for one note.
//
// Fills maps recolorable layer ids to CSS color strings. Visibility maps every
// pattern layer id to whether it is shown; at most one entry is true.
type Theme struct {
	Fills      map[string]string `json:"fills"`
	Visibility map[string]bool   `json:"visibility"`
}

// Palette holds the candidate colors for each recolorable axis.
type Palette struct {
	Sleeve []string `json:"sleeve" toml:"sleeve"`
	Collar []string `json:"collar" toml:"collar"`
	Side   []string `json:"side" toml:"side"`
	Middle []string `json:"middle" toml:"middle"`
}

// DefaultPalette returns the built-in candidate colors.
func DefaultPalette() Palette {
	return Palette{
		Sleeve: []string{
			"rgba(255, 255, 255, 0.6)",
			"rgba(163, 165, 167, 0.6)",
			"rgba(0, 0, 0, 0)",
		},
		Collar: []string{"#7415e6", "#ffff00", "#005614", "#ff0037"},
		Side:   []string{"#7415e6", "#ffff00", "#005614", "#ff0037"},
		Middle: []string{"rgba(255, 255, 255, 0)"},
	}
}

// Validate reports an error if any axis has no candidates.
func (p Palette) Validate() error {
	for _, axis := range []struct {
		name   string
		colors []string
	}{
		{"sleeve", p.Sleeve},
		{"collar", p.Collar},
		{"side", p.Side},
		{"middle", p.Middle},
	} {
		if len(axis.colors) == 0 {
			return fmt.Errorf("palette axis %q has no colors", axis.name)
		}
	}
	return nil
}

// PatternLayer returns the layer id of the pattern with the given zero-based
// index.
func PatternLayer(index int) string {
	return fmt.Sprintf("%s%d", PatternPrefix, index+1)
}

// PatternLayers returns the ids of all pattern layers in order.
func PatternLayers() []string {
	ids := make([]string, PatternCount)
	for i := range ids {
		ids[i] = PatternLayer(i)
	}
	return ids
}

// Analysis exposes the intermediate values of a theme derivation.
type Analysis struct {
	Normalized   string            `json:"normalized"`
	CleanLength  int               `json:"clean_length"`
	Seed         uint32            `json:"seed"`
	SubSeeds     map[string]uint32 `json:"sub_seeds"`
	PatternIndex int               `json:"pattern_index"`
	PatternOn    bool              `json:"pattern_on"`
}

// Analyze computes the seed trail for note without choosing colors.
func Analyze(note string) Analysis {
	n := Normalize(note)
	seed := HashString(n)
	return Analysis{
		Normalized:  n,
		CleanLength: CleanLength(n),
		Seed:        seed,
		SubSeeds: map[string]uint32{
			"sleeve":  SubSeed(seed, SaltSleeve),
			"collar":  SubSeed(seed, SaltCollar),
			"side":    SubSeed(seed, SaltSide),
			"middle":  SubSeed(seed, SaltMiddle),
			"pattern": SubSeed(seed, SaltPattern),
		},
		PatternIndex: int(SubSeed(seed, SaltPattern) & (PatternCount - 1)),
		PatternOn:    CleanLength(n) > PatternThreshold,
	}
}

// Build derives the theme for note using the default palette.
func Build(note string) Theme {
	return BuildWith(note, DefaultPalette())
}

// BuildWith derives the theme for note from palette. It panics if an axis of
// palette is empty; call [Palette.Validate] first for user-supplied palettes.
func BuildWith(note string, palette Palette) Theme {
	a := Analyze(note)

	visibility := make(map[string]bool, PatternCount)
	for _, id := range PatternLayers() {
		visibility[id] = false
	}
	if a.PatternOn {
		visibility[PatternLayer(a.PatternIndex)] = true
	}

	return Theme{
		Fills: map[string]string{
			LayerSleeve: Pick(palette.Sleeve, a.SubSeeds["sleeve"]),
			LayerCollar: Pick(palette.Collar, a.SubSeeds["collar"]),
			LayerSide:   Pick(palette.Side, a.SubSeeds["side"]),
			LayerMiddle: Pick(palette.Middle, a.SubSeeds["middle"]),
		},
		Visibility: visibility,
	}
}

// ActivePattern returns the id of the visible pattern layer, if any.
func (t Theme) ActivePattern() (string, bool) {
	for _, id := range slices.Sorted(maps.Keys(t.Visibility)) {
		if t.Visibility[id] {
			return id, true
		}
	}
	return "", false
}

// Equal reports whether t and o carry the same fills and visibility.
func (t Theme) Equal(o Theme) bool {
	return maps.Equal(t.Fills, o.Fills) && maps.Equal(t.Visibility, o.Visibility)
}

// Key returns a stable textual form of t, suitable for cache keys.
func (t Theme) Key() string {
	var b strings.Builder
	for _, id := range slices.Sorted(maps.Keys(t.Fills)) {
		fmt.Fprintf(&b, "%s=%s;", id, t.Fills[id])
	}
	for _, id := range slices.Sorted(maps.Keys(t.Visibility)) {
		fmt.Fprintf(&b, "%s=%t;", id, t.Visibility[id])
	}
	return b.String()
}
