package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/trikot/pkg/svgtree"
	"github.com/matzehuels/trikot/pkg/theme"
)

func TestTemplateLayers(t *testing.T) {
	root, err := svgtree.Parse(bytes.NewReader(Template()))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ids := []string{theme.LayerSleeve, theme.LayerCollar, theme.LayerSide, theme.LayerMiddle}
	ids = append(ids, theme.PatternLayers()...)
	for _, id := range ids {
		if root.Find(id) == nil {
			t.Errorf("template lacks %s", id)
		}
	}
	if root.Find("layer-muster-2_000001") == nil {
		t.Error("template lacks suffixed duplicate layer")
	}
}

func TestLoadTemplate(t *testing.T) {
	data, err := LoadTemplate("")
	if err != nil || !bytes.Equal(data, Template()) {
		t.Fatalf("LoadTemplate(\"\") = %d bytes, %v", len(data), err)
	}

	path := filepath.Join(t.TempDir(), "custom.svg")
	if err := os.WriteFile(path, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err = LoadTemplate(path)
	if err != nil || string(data) != "<svg/>" {
		t.Errorf("LoadTemplate(path) = %q, %v", data, err)
	}

	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.svg")); err == nil {
		t.Error("LoadTemplate(missing) error = nil")
	}
}
