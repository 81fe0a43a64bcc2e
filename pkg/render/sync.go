package render

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/observability"
	"github.com/matzehuels/trikot/pkg/scene"
)

// Synchronizer defaults.
const (
	DefaultMaxAttachFrames = 80
	DefaultSettleFrames    = 2
)

// Synchronizer decides when a mounted surface is safe to capture.
type Synchronizer struct {
	MaxAttachFrames int
	SettleFrames    int
	Logger          *log.Logger
}

// NewSynchronizer returns a synchronizer with default budgets.
func NewSynchronizer(logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Synchronizer{
		MaxAttachFrames: DefaultMaxAttachFrames,
		SettleFrames:    DefaultSettleFrames,
		Logger:          logger,
	}
}

// SyncReport describes one settle run.
type SyncReport struct {
	Attached       bool          `json:"attached"`
	AttachTimedOut bool          `json:"attach_timed_out"`
	AttachFrames   int           `json:"attach_frames"`
	Fonts          int           `json:"fonts"`
	SettleFrames   int           `json:"settle_frames"`
	Duration       time.Duration `json:"duration"`
}

// Frames returns every frame waited for.
func (r SyncReport) Frames() int { return r.AttachFrames + r.SettleFrames }

// Settle waits until surface can be captured: the graphic is attached (or
// the attach budget ran out), every font of sc is loaded, and SettleFrames
// frames passed after a layout read. Font failures are asset-load errors.
func (s *Synchronizer) Settle(ctx context.Context, surface Surface, sc *scene.Scene) (rep SyncReport, err error) {
	start := time.Now()
	observability.Export().OnSyncStart(ctx, sc.Preset.Name)
	defer func() {
		rep.Duration = time.Since(start)
		observability.Export().OnSyncComplete(ctx, sc.Preset.Name, rep.Frames(), rep.AttachTimedOut, rep.Duration, err)
	}()

	logger := s.logger()

	for range s.maxAttach() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		ok, err := surface.Attached(ctx)
		if err != nil {
			return rep, fmt.Errorf("attach: %w", err)
		}
		if ok {
			rep.Attached = true
			break
		}
		if err := surface.NextFrame(ctx); err != nil {
			return rep, fmt.Errorf("attach frame: %w", err)
		}
		rep.AttachFrames++
	}
	if !rep.Attached {
		rep.AttachTimedOut = true
		logger.Warn("graphic not attached, capturing anyway",
			"code", errors.ErrCodeSyncTimeout,
			"frames", rep.AttachFrames)
	}

	for _, req := range sc.FontRequests() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := surface.LoadFont(ctx, req); err != nil {
			return rep, errors.Wrap(errors.ErrCodeAssetLoad, err, "load font %s", req.CSS())
		}
		rep.Fonts++
	}

	if err := surface.Layout(ctx); err != nil {
		return rep, fmt.Errorf("layout: %w", err)
	}
	for range s.settle() {
		if err := surface.NextFrame(ctx); err != nil {
			return rep, fmt.Errorf("settle frame: %w", err)
		}
		rep.SettleFrames++
	}

	logger.Debug("surface settled",
		"attach_frames", rep.AttachFrames,
		"fonts", rep.Fonts,
		"settle_frames", rep.SettleFrames)
	return rep, nil
}

func (s *Synchronizer) maxAttach() int {
	if s.MaxAttachFrames <= 0 {
		return DefaultMaxAttachFrames
	}
	return s.MaxAttachFrames
}

func (s *Synchronizer) settle() int {
	if s.SettleFrames <= 0 {
		return DefaultSettleFrames
	}
	return s.SettleFrames
}

func (s *Synchronizer) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}
