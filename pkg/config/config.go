// Package config loads trikot settings from a TOML file.
//
// Every field has a default ([Default]), so a missing file is not an error.
// CLI flags override file values after loading.
//
// Example config.toml:
//
//	[render]
//	backend = "browser"
//	preset = "print"
//
//	[dispatch]
//	output_dir = "~/Pictures"
//	open_delay = "300ms"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/pipeline"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/session"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Duration is a time.Duration written as a Go duration string.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the whole file.
type Config struct {
	Render   Render   `toml:"render"`
	Assets   Assets   `toml:"assets"`
	Dispatch Dispatch `toml:"dispatch"`
	Cache    Cache    `toml:"cache"`
	Server   Server   `toml:"server"`
}

type Render struct {
	Backend      string  `toml:"backend"`
	Preset       string  `toml:"preset"`
	Background   string  `toml:"background"`
	AttachFrames int     `toml:"attach_frames"`
	SettleFrames int     `toml:"settle_frames"`
	ChromeURL    string  `toml:"chrome_url"`
}

// Assets paths; empty means the embedded default.
type Assets struct {
	Template     string `toml:"template"`
	UIFont       string `toml:"ui_font"`
	UIItalicFont string `toml:"ui_italic_font"`
	DisplayFont  string `toml:"display_font"`
}

type Dispatch struct {
	OutputDir     string   `toml:"output_dir"`
	ShareURL      string   `toml:"share_url"`
	ShareMaxBytes int64    `toml:"share_max_bytes"`
	OpenFallback  string   `toml:"open_fallback"` // system, qr or none
	OpenDelay     Duration `toml:"open_delay"`
	Grace         Duration `toml:"grace"`
	// HandoffAddr is where the CLI serves handles for the qr fallback.
	HandoffAddr string `toml:"handoff_addr"`
	// HandoffHost overrides the host put into QR codes; empty detects the
	// address of the outbound interface.
	HandoffHost string `toml:"handoff_host"`
}

// Open fallbacks.
const (
	OpenSystem = "system"
	OpenQR     = "qr"
	OpenNone   = "none"
)

type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

type Server struct {
	Addr       string   `toml:"addr"`
	BaseURL    string   `toml:"base_url"`
	SessionTTL Duration `toml:"session_ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Render: Render{
			Backend:      pipeline.DefaultBackend,
			Preset:       pipeline.DefaultPreset,
			Background:   scene.DefaultBackground,
			AttachFrames: render.DefaultMaxAttachFrames,
			SettleFrames: render.DefaultSettleFrames,
		},
		Dispatch: Dispatch{
			OutputDir:     ".",
			ShareMaxBytes: 10 << 20,
			OpenFallback:  OpenSystem,
			OpenDelay:     Duration{dispatch.DefaultOpenDelay},
			Grace:         Duration{dispatch.DefaultGrace},
			HandoffAddr:   ":0",
		},
		Cache: Cache{
			Backend: cache.BackendMemory,
			TTL:     Duration{pipeline.TTLArtifact},
		},
		Server: Server{
			Addr:       ":8080",
			BaseURL:    "http://localhost:8080",
			SessionTTL: Duration{session.DefaultTTL},
		},
	}
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	if err := pipeline.ValidateBackend(c.Render.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := scene.Lookup(c.Render.Preset); err != nil {
		errs = append(errs, err)
	}
	if _, err := scene.ParseColor(c.Render.Background); err != nil {
		errs = append(errs, fmt.Errorf("render.background: %w", err))
	}
	if c.Render.AttachFrames < 1 || c.Render.SettleFrames < 1 {
		errs = append(errs, fmt.Errorf("render frame budgets must be positive"))
	}
	switch c.Dispatch.OpenFallback {
	case OpenSystem, OpenQR, OpenNone:
	default:
		errs = append(errs, fmt.Errorf("dispatch.open_fallback %q (must be one of: system, qr, none)", c.Dispatch.OpenFallback))
	}
	if c.Dispatch.OpenDelay.Duration < 0 || c.Dispatch.Grace.Duration <= 0 {
		errs = append(errs, fmt.Errorf("dispatch timings must be positive"))
	}
	switch c.Cache.Backend {
	case cache.BackendNull, cache.BackendMemory, cache.BackendFile:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q (must be one of: null, memory, file, redis)", c.Cache.Backend))
	}
	if c.Server.SessionTTL.Duration <= 0 {
		errs = append(errs, fmt.Errorf("server.session_ttl must be positive"))
	}
	if len(errs) > 0 {
		return errors.Wrap(errors.ErrCodeInvalidConfig, stderrors.Join(errs...), "invalid config")
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/trikot/config.toml (or the platform
// equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "trikot", FileName), nil
}

// Load reads path over the defaults. An empty path tries [DefaultPath] and
// silently falls back to the defaults when that file does not exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	cfg.Dispatch.OutputDir = expandHome(cfg.Dispatch.OutputDir)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
