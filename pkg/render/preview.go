package render

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Preview returns a PNG copy of a scaled to width pixels, keeping the aspect
// ratio. Artifacts already narrower than width are returned as is.
func Preview(a *Artifact, width int) ([]byte, error) {
	if a == nil || len(a.Data) == 0 {
		return nil, fmt.Errorf("preview: empty artifact")
	}
	img, err := imaging.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, fmt.Errorf("preview: decode: %w", err)
	}
	if width <= 0 || img.Bounds().Dx() <= width {
		return a.Data, nil
	}
	small := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.PNG); err != nil {
		return nil, fmt.Errorf("preview: encode: %w", err)
	}
	return buf.Bytes(), nil
}
