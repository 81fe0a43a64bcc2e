package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event as a debug line. It implements all three hook
// interfaces; install it with [Install].
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks logging to l.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{Logger: l.WithPrefix("obs")}
}

// Install registers h for every event category.
func Install(h *LogHooks) {
	SetExportHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnSyncStart(_ context.Context, preset string) {
	h.Logger.Debug("sync start", "preset", preset)
}

func (h *LogHooks) OnSyncComplete(_ context.Context, preset string, frames int, timedOut bool, d time.Duration, err error) {
	h.Logger.Debug("sync complete", "preset", preset, "frames", frames, "timed_out", timedOut, "duration", d, "err", err)
}

func (h *LogHooks) OnCaptureStart(_ context.Context, preset string) {
	h.Logger.Debug("capture start", "preset", preset)
}

func (h *LogHooks) OnCaptureComplete(_ context.Context, preset string, size int, d time.Duration, err error) {
	h.Logger.Debug("capture complete", "preset", preset, "bytes", size, "duration", d, "err", err)
}

func (h *LogHooks) OnDispatch(_ context.Context, channel string, err error) {
	h.Logger.Debug("dispatch", "channel", channel, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "key", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "key", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "key", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.Logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.Logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.Logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ ExportHooks = (*LogHooks)(nil)
	_ CacheHooks  = (*LogHooks)(nil)
	_ HTTPHooks   = (*LogHooks)(nil)
)
