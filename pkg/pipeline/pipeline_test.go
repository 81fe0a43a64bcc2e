package pipeline

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/render/raster"
	"github.com/matzehuels/trikot/pkg/scene"
)

var mia = invite.Answers{Name: " Mia ", Age: "30", Note: "see you on the dance floor"}

func TestValidateBackend(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"raster", false},
		{"browser", false},
		{"rsvg", false},
		{"Raster", true}, // case-sensitive
		{"cairo", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateBackend(tt.backend)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateBackend(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Answers: mia}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Preset != scene.PresetMobile || opts.Backend != BackendRaster {
		t.Errorf("defaults = %q/%q", opts.Preset, opts.Backend)
	}
	if opts.Background != scene.DefaultBackground {
		t.Errorf("background = %q", opts.Background)
	}
	if opts.Answers.Name != "Mia" {
		t.Errorf("answers not normalized: %q", opts.Answers.Name)
	}
	if opts.Logger == nil {
		t.Error("logger not set")
	}
}

func TestOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"missing note", Options{Answers: invite.Answers{Name: "a", Age: "1"}}, errors.ErrCodeInvalidInput},
		{"blank name", Options{Answers: invite.Answers{Name: "  ", Age: "1", Note: "x"}}, errors.ErrCodeInvalidInput},
		{"preset", Options{Answers: mia, Preset: "poster"}, errors.ErrCodeInvalidPreset},
		{"backend", Options{Answers: mia, Backend: "cairo"}, errors.ErrCodeInvalidConfig},
		{"background", Options{Answers: mia, Background: "hotpink"}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestArtifactKeyDiffers(t *testing.T) {
	k := cache.NewDefaultKeyer()
	a := Options{Answers: mia}
	b := Options{Answers: mia, Preset: scene.PresetPrint}
	for _, o := range []*Options{&a, &b} {
		if err := o.ValidateAndSetDefaults(); err != nil {
			t.Fatal(err)
		}
	}
	ka := k.ArtifactKey("t", []string{"x"}, a.ArtifactKeyOpts("h"))
	kb := k.ArtifactKey("t", []string{"x"}, b.ArtifactKeyOpts("h"))
	if ka == kb {
		t.Error("presets share an artifact key")
	}
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	r := NewRunner(cache.NewMemoryCache(), nil, nil)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestExport(t *testing.T) {
	r := newRunner(t)
	opts := Options{Answers: mia}

	res, err := r.Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Artifact.Size() == 0 {
		t.Fatal("empty artifact")
	}
	if got := res.Artifact.FileName; got != "invitation-shirt-mia.png" {
		t.Errorf("FileName = %q", got)
	}
	if res.Artifact.Width != 430 || res.Artifact.Height != 932 {
		t.Errorf("size = %dx%d", res.Artifact.Width, res.Artifact.Height)
	}
	if res.Artifact.Density != render.DefaultDensity {
		t.Errorf("Density = %v, want %v", res.Artifact.Density, render.DefaultDensity)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(res.Artifact.Data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1290 || cfg.Height != 2796 {
		t.Errorf("pixels = %dx%d, want 1290x2796", cfg.Width, cfg.Height)
	}
	if res.CacheInfo.TemplateHit || res.CacheInfo.RenderHit {
		t.Errorf("first run cache info = %+v", res.CacheInfo)
	}
	if _, on := res.Theme.ActivePattern(); !on {
		t.Error("pattern should be on for a long note")
	}

	again, err := r.Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !again.CacheInfo.TemplateHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v", again.CacheInfo)
	}
	if string(again.Artifact.Data) != string(res.Artifact.Data) {
		t.Error("cached artifact differs")
	}

	opts.Refresh = true
	fresh, err := r.Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.CacheInfo.RenderHit {
		t.Error("refresh should bypass the cache")
	}
}

// blockingSurface holds Mount until release is closed.
type blockingSurface struct {
	*raster.Surface
	mounted chan struct{}
	release chan struct{}
}

func (s *blockingSurface) Mount(ctx context.Context, sc *scene.Scene) error {
	close(s.mounted)
	<-s.release
	return s.Surface.Mount(ctx, sc)
}

func TestExportBusy(t *testing.T) {
	r := newRunner(t)
	surface := &blockingSurface{
		Surface: raster.New(nil, nil),
		mounted: make(chan struct{}),
		release: make(chan struct{}),
	}
	r.Surfaces = func(context.Context, string) (render.Surface, error) { return surface, nil }

	done := make(chan error, 1)
	go func() {
		_, err := r.Export(context.Background(), Options{Answers: mia})
		done <- err
	}()

	select {
	case <-surface.mounted:
	case <-time.After(10 * time.Second):
		t.Fatal("first export never mounted")
	}
	if !r.Busy() {
		t.Error("runner should be busy")
	}
	if _, err := r.Export(context.Background(), Options{Answers: mia}); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("concurrent export error = %v, want BUSY", err)
	}

	close(surface.release)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if r.Busy() {
		t.Error("runner still busy")
	}
}

func TestExportDispatch(t *testing.T) {
	dir := t.TempDir()
	r := newRunner(t)
	r.Dispatcher = dispatch.New(nil)
	r.Dispatcher.Download = &dispatch.FileSaver{Dir: dir}

	res, err := r.Export(context.Background(), Options{Answers: mia, Dispatch: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Receipt == nil || res.Receipt.Channel != dispatch.ChannelDownload {
		t.Fatalf("receipt = %+v", res.Receipt)
	}
	if _, err := os.Stat(filepath.Join(dir, "invitation-shirt-mia.png")); err != nil {
		t.Error(err)
	}
}

func TestTemplateOverride(t *testing.T) {
	r := newRunner(t)
	r.TemplatePath = filepath.Join(t.TempDir(), "missing.svg")
	_, err := r.Export(context.Background(), Options{Answers: mia})
	if !errors.Is(err, errors.ErrCodeAssetLoad) {
		t.Errorf("error = %v, want ASSET_LOAD", err)
	}
	if r.Busy() {
		t.Error("failed export left the runner busy")
	}
}
