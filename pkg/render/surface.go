package render

import (
	"context"

	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/scene"
)

// MediaTypePNG is the media type of every artifact.
const MediaTypePNG = "image/png"

// Surface is a render staging area.
type Surface interface {
	// Mount fully repaints the staging area with sc.
	Mount(ctx context.Context, sc *scene.Scene) error
	// Attached reports whether the root graphic is in place.
	Attached(ctx context.Context) (bool, error)
	// LoadFont registers the face for req and loads it at req's size.
	LoadFont(ctx context.Context, req fonts.Request) error
	// Layout forces a layout pass.
	Layout(ctx context.Context) error
	// NextFrame waits for one paint frame.
	NextFrame(ctx context.Context) error
	// Capture returns the staging area as PNG.
	Capture(ctx context.Context, opts CaptureOptions) ([]byte, error)
	Close() error
}

// CaptureOptions control a capture.
type CaptureOptions struct {
	Width      int     // logical pixels
	Height     int     // logical pixels
	Density    float64 // device pixels per logical pixel
	Background string
	// Nonce is the cache-busting token the mounted scene was tagged with,
	// empty when cache busting is off.
	Nonce string
}

// PixelSize returns the device pixel dimensions.
func (o CaptureOptions) PixelSize() (int, int) {
	return int(float64(o.Width)*o.Density + 0.5), int(float64(o.Height)*o.Density + 0.5)
}

// Artifact is a finished raster export.
type Artifact struct {
	Data       []byte  `json:"-"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Density    float64 `json:"density"`
	Background string  `json:"background"`
	MediaType  string  `json:"media_type"`
	FileName   string  `json:"file_name"`
}

// Size returns the artifact size in bytes.
func (a *Artifact) Size() int { return len(a.Data) }
