// Package assets embeds the default shirt template.
package assets

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed trikot.svg
var templateSVG []byte

// Template returns the embedded template markup.
func Template() []byte {
	return templateSVG
}

// LoadTemplate reads the template at path, or returns the embedded one
// when path is empty.
func LoadTemplate(path string) ([]byte, error) {
	if path == "" {
		return templateSVG, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return data, nil
}
