package cli

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/trikot/pkg/config"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/invite"
)

func TestOverlay(t *testing.T) {
	base := invite.Answers{Name: "Mia", Age: "7", Note: "old"}
	got := overlay(base, invite.Answers{Note: "new"})
	want := invite.Answers{Name: "Mia", Age: "7", Note: "new"}
	if got != want {
		t.Errorf("overlay = %+v, want %+v", got, want)
	}
}

func TestMergeRenderFlags(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	cfg := c.mergeRenderFlags(&renderOpts{preset: "print", background: "#000000", fallback: config.OpenQR})
	if cfg.Render.Preset != "print" || cfg.Render.Background != "#000000" || cfg.Dispatch.OpenFallback != config.OpenQR {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Render.Backend != c.Config.Render.Backend {
		t.Errorf("unset flag overrode backend: %q", cfg.Render.Backend)
	}
}

func TestNewDispatcher(t *testing.T) {
	c := New(os.Stderr, LogInfo)

	tests := []struct {
		name     string
		fallback string
		share    string
		wantOpen string
	}{
		{"system", config.OpenSystem, "", "*dispatch.SystemOpener"},
		{"qr with share", config.OpenQR, "http://example.invalid/hook", "*dispatch.QROpener"},
		{"none", config.OpenNone, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Dispatch.OpenFallback = tt.fallback
			cfg.Dispatch.ShareURL = tt.share
			handles := &dispatch.TempFileHandles{Dir: t.TempDir()}
			d := c.newDispatcher(cfg, false, handles)
			if d.Handles != handles {
				t.Errorf("handles = %T, want the given store", d.Handles)
			}

			if _, ok := d.Download.(*dispatch.FileSaver); !ok {
				t.Errorf("download = %T, want *dispatch.FileSaver", d.Download)
			}
			if (d.Share != nil) != (tt.share != "") {
				t.Errorf("share = %v, want set = %v", d.Share, tt.share != "")
			}
			got := ""
			if d.Open != nil {
				got = typeName(d.Open)
			}
			if got != tt.wantOpen {
				t.Errorf("open = %q, want %q", got, tt.wantOpen)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *dispatch.SystemOpener:
		return "*dispatch.SystemOpener"
	case *dispatch.QROpener:
		return "*dispatch.QROpener"
	}
	return "?"
}

func TestRenderCommandSavesPNG(t *testing.T) {
	var out bytes.Buffer
	c := newTestCLI(t, &out)
	dir := t.TempDir()

	err := execute(t, c, "render",
		"--name", "Mia", "--age", "7", "--note", "see you there",
		"--open-with", "none", "--no-cache",
		"-o", dir)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out.String())
	}

	f, err := os.Open(filepath.Join(dir, "invitation-shirt-mia.png"))
	if err != nil {
		t.Fatalf("saved file: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("saved file is not a PNG: %v", err)
	}
	if !strings.Contains(out.String(), "Saved invitation-shirt-mia.png") {
		t.Errorf("output = %q", out.String())
	}

	// The answers are remembered for --last.
	out.Reset()
	dir2 := t.TempDir()
	if err := execute(t, c, "render", "--last", "--note", "changed",
		"--open-with", "none", "--no-cache", "-o", dir2); err != nil {
		t.Fatalf("render --last: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(filepath.Join(dir2, "invitation-shirt-mia.png")); err != nil {
		t.Errorf("--last did not reuse the name: %v", err)
	}
}

func TestRenderCommandRejectsDensity(t *testing.T) {
	var out bytes.Buffer
	c := newTestCLI(t, &out)
	err := execute(t, c, "render", "--name", "Mia", "--age", "7", "--note", "x", "--density", "1")
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("error = %v, want unknown flag", err)
	}
}

func TestRenderCommandRequiresAnswers(t *testing.T) {
	var out bytes.Buffer
	c := newTestCLI(t, &out)
	err := execute(t, c, "render", "--name", "Mia")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestRenderCommandLastWithoutHistory(t *testing.T) {
	var out bytes.Buffer
	c := newTestCLI(t, &out)
	err := execute(t, c, "render", "--last")
	if !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("error = %v, want SESSION_NOT_FOUND", err)
	}
}

func TestReportExportError(t *testing.T) {
	var out bytes.Buffer
	c := newTestCLI(t, &out)
	err := errors.New(errors.ErrCodeCaptureFailed, "capture returned no data")
	if got := c.reportExportError(err); got != err {
		t.Errorf("reportExportError returned %v", got)
	}
	if !strings.Contains(out.String(), "run again") {
		t.Errorf("retryable error should suggest a retry, got %q", out.String())
	}
}
