package fonts

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Source describes where a family/style pair comes from.
type Source struct {
	Family string
	Style  string
	// Weight is the CSS weight descriptor, a single value ("700") or a
	// range ("100 900").
	Weight string
	// Path is a font file. When empty, Fallback is used.
	Path     string
	Fallback []byte
}

func (s Source) key() string {
	return s.Family + "/" + s.Style
}

// Sources returns the sources for the two families. Empty paths fall back
// to embedded Go fonts registered under the same family names.
func Sources(ui, uiItalic, display string) []Source {
	return []Source{
		{Family: FamilyUI, Style: StyleNormal, Weight: "100 900", Path: ui, Fallback: goregular.TTF},
		{Family: FamilyUI, Style: StyleItalic, Weight: "100 900", Path: uiItalic, Fallback: gobolditalic.TTF},
		{Family: FamilyDisplay, Style: StyleNormal, Weight: "700", Path: display, Fallback: gobold.TTF},
	}
}

// Face is loaded font data.
type Face struct {
	Family string
	Style  string
	Weight string
	Data   []byte
	// Format is the CSS format hint, "opentype" or "truetype".
	Format string
	// Embedded is true when the data came from a fallback.
	Embedded bool

	b64     string
	b64Once sync.Once
}

// Base64 returns the font data as a base64 string.
// The result is cached after first computation.
func (f *Face) Base64() string {
	f.b64Once.Do(func() {
		f.b64 = base64.StdEncoding.EncodeToString(f.Data)
	})
	return f.b64
}

// DataURL returns the font as a data URL usable in url() sources.
func (f *Face) DataURL() string {
	mime := "font/ttf"
	if f.Format == "opentype" {
		mime = "font/otf"
	}
	return "data:" + mime + ";base64," + f.Base64()
}

func readSource(s Source) (*Face, error) {
	face := &Face{Family: s.Family, Style: s.Style, Weight: s.Weight, Format: "truetype"}
	if s.Path == "" {
		if len(s.Fallback) == 0 {
			return nil, fmt.Errorf("font %s: no path and no fallback", s.key())
		}
		face.Data = s.Fallback
		face.Embedded = true
		return face, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", s.key(), err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("font %s: %s is empty", s.key(), s.Path)
	}
	face.Data = data
	if strings.EqualFold(filepath.Ext(s.Path), ".otf") {
		face.Format = "opentype"
	}
	return face, nil
}
