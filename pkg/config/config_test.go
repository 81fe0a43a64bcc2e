package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/trikot/pkg/errors"
)

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[render]
backend = "rsvg"
preset = "print"
settle_frames = 4

[dispatch]
share_url = "https://example.com/share"
open_fallback = "qr"
open_delay = "150ms"
grace = "2m"
handoff_host = "10.0.0.5"

[cache]
backend = "redis"
redis_addr = "localhost:6379"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Render.Backend != "rsvg" || cfg.Render.Preset != "print" || cfg.Render.SettleFrames != 4 {
		t.Errorf("render = %+v", cfg.Render)
	}
	// Untouched keys keep their defaults.
	if cfg.Render.Background != "#f1f2f2" || cfg.Render.AttachFrames != 80 {
		t.Errorf("defaults lost: %+v", cfg.Render)
	}
	if cfg.Dispatch.OpenDelay.Duration != 150*time.Millisecond || cfg.Dispatch.Grace.Duration != 2*time.Minute {
		t.Errorf("dispatch timings = %v/%v", cfg.Dispatch.OpenDelay, cfg.Dispatch.Grace)
	}
	if cfg.Dispatch.HandoffHost != "10.0.0.5" || cfg.Dispatch.HandoffAddr != ":0" {
		t.Errorf("handoff = %q/%q", cfg.Dispatch.HandoffAddr, cfg.Dispatch.HandoffHost)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"syntax", `[render`, "parse config"},
		{"unknown key", "[render]\nzoom = 2", "render.zoom"},
		{"backend", "[render]\nbackend = \"cairo\"", "cairo"},
		{"preset", "[render]\npreset = \"poster\"", "poster"},
		{"density is fixed", "[render]\ndensity = 2.0", "render.density"},
		{"fallback", "[dispatch]\nopen_fallback = \"fax\"", "fax"},
		{"duration", "[dispatch]\ngrace = \"soon\"", "parse config"},
		{"redis addr", "[cache]\nbackend = \"redis\"", "redis_addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %s", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "empty"))
	t.Setenv("HOME", filepath.Join(dir, "empty"))
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("implicit missing file: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Default().Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `open_delay = "300ms"`) {
		t.Errorf("encoded config:\n%s", data)
	}
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("round trip changed config:\n%+v\n%+v", cfg, Default())
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/mia")
	if got := expandHome("~/Pictures"); got != "/home/mia/Pictures" {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/tmp"); got != "/tmp" {
		t.Errorf("expandHome = %q", got)
	}
}
