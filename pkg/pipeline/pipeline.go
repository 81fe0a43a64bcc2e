// Package pipeline runs one export from answers to a delivered PNG.
//
// The stages mirror the data flow of the system:
//
//  1. Theme: derive the deterministic [theme.Theme] from the note
//  2. Compose: bake the theme into the template and attach overlay texts
//  3. Render: settle and capture the scene on a backend surface
//  4. Dispatch: hand the artifact to the delivery chain (optional)
//
// CLI and HTTP service both go through a [Runner], which adds caching and
// the single-export guard.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache.NewMemoryCache(), nil, logger)
//	res, err := runner.Export(ctx, pipeline.Options{
//	    Answers: invite.Answers{Name: "Mia", Age: "30", Note: "see you"},
//	    Preset:  scene.PresetMobile,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(res.Artifact.FileName, res.Artifact.Data, 0o644)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/theme"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Render backends.
const (
	BackendRaster  = "raster"
	BackendBrowser = "browser"
	BackendRSVG    = "rsvg"
)

const (
	// DefaultBackend needs no external tools.
	DefaultBackend = BackendRaster

	// DefaultPreset is the phone-sized canvas.
	DefaultPreset = scene.PresetMobile

	// TTLArtifact bounds how long a rendered PNG stays in the cache.
	TTLArtifact = 24 * time.Hour
)

// ValidBackends is the set of supported render backends.
var ValidBackends = map[string]bool{
	BackendRaster:  true,
	BackendBrowser: true,
	BackendRSVG:    true,
}

// ValidateBackend checks that a backend name is known.
func ValidateBackend(backend string) error {
	if !ValidBackends[backend] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid backend: %q (must be one of: raster, browser, rsvg)", backend)
	}
	return nil
}

// =============================================================================
// Options - Export Configuration
// =============================================================================

// Options configure one export. The struct is JSON friendly for the API.
type Options struct {
	Answers    invite.Answers `json:"answers"`
	Preset     string         `json:"preset,omitempty"`
	Backend    string         `json:"backend,omitempty"`
	Background string         `json:"background,omitempty"`
	// Refresh skips the artifact cache lookup.
	Refresh bool `json:"refresh,omitempty"`
	// Dispatch sends the artifact through the runner's dispatcher.
	Dispatch bool `json:"dispatch,omitempty"`

	Logger *log.Logger `json:"-"`

	preset    scene.Preset
	validated bool
}

// ValidateAndSetDefaults checks the answers and options and fills defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.Answers.Validate(); err != nil {
		return err
	}
	o.Answers = o.Answers.Normalized()

	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	p, err := scene.Lookup(o.Preset)
	if err != nil {
		return err
	}
	o.preset = p

	if o.Backend == "" {
		o.Backend = DefaultBackend
	}
	if err := ValidateBackend(o.Backend); err != nil {
		return err
	}
	if o.Background == "" {
		o.Background = scene.DefaultBackground
	}
	if _, err := scene.ParseColor(o.Background); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid background")
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.validated = true
	return nil
}

// ArtifactKeyOpts returns cache key options for the rendered PNG.
func (o *Options) ArtifactKeyOpts(templateHash string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Preset:     o.Preset,
		Backend:    o.Backend,
		Density:    render.DefaultDensity,
		Background: o.Background,
		Template:   templateHash,
	}
}

// Result contains the outputs of an export.
type Result struct {
	Theme    theme.Theme
	Scene    *scene.Scene
	Artifact *render.Artifact
	// Receipt is set when the artifact was dispatched.
	Receipt *dispatch.Receipt

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains export timings.
type Stats struct {
	ThemeTime    time.Duration
	ComposeTime  time.Duration
	RenderTime   time.Duration
	DispatchTime time.Duration
	Bytes        int
}

// CacheInfo tracks cache hits per stage.
type CacheInfo struct {
	TemplateHit bool // template was already parsed
	RenderHit   bool // PNG came from the cache
}
