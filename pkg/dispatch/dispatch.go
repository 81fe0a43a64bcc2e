package dispatch

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/observability"
	"github.com/matzehuels/trikot/pkg/render"
)

// Defaults for the open delay and the handle grace window.
const (
	DefaultOpenDelay = 300 * time.Millisecond
	DefaultGrace     = 60 * time.Second
)

// Channel names.
const (
	ChannelShare    = "share"
	ChannelDownload = "download"
	ChannelOpen     = "open"
)

var (
	// ErrShareCanceled means the user dismissed the share.
	ErrShareCanceled = stderrors.New("share canceled")
	// ErrSilentNoop means a channel reported success without delivering.
	ErrSilentNoop = stderrors.New("channel reported success but delivered nothing")
)

// Sharer hands an artifact to a native share target.
type Sharer interface {
	CanShare(a *render.Artifact) bool
	Share(ctx context.Context, a *render.Artifact) error
}

// Saver stores an artifact and returns where it went.
type Saver interface {
	Save(ctx context.Context, a *render.Artifact) (string, error)
}

// Opener shows a handle to the user.
type Opener interface {
	Open(ctx context.Context, h Handle) error
}

// Handle is a transient reference to artifact bytes.
type Handle struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Path      string    `json:"path,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleStore registers and revokes handles.
type HandleStore interface {
	Register(ctx context.Context, a *render.Artifact, ttl time.Duration) (Handle, error)
	Revoke(ctx context.Context, id string) error
}

// Attempt records one channel try.
type Attempt struct {
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

// Receipt describes how an artifact was delivered.
type Receipt struct {
	// Channel is the first channel that delivered.
	Channel  string    `json:"channel"`
	Location string    `json:"location,omitempty"`
	Handle   *Handle   `json:"handle,omitempty"`
	Attempts []Attempt `json:"attempts"`
}

// Dispatcher runs the delivery chain. Zero-valued channels are skipped.
type Dispatcher struct {
	Share    Sharer
	Download Saver
	Open     Opener
	Handles  HandleStore

	OpenDelay time.Duration
	Grace     time.Duration
	// OpenAfterDownload also opens the handle when the download worked.
	OpenAfterDownload bool

	Logger *log.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	idle    chan struct{} // closed when pending drains
	opens   sync.WaitGroup
}

// New returns a dispatcher with default timings.
func New(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dispatcher{OpenDelay: DefaultOpenDelay, Grace: DefaultGrace, Logger: logger}
}

// Dispatch delivers a. It returns an error only when every channel failed
// or ctx was canceled.
func (d *Dispatcher) Dispatch(ctx context.Context, a *render.Artifact) (*Receipt, error) {
	if a == nil || len(a.Data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to dispatch")
	}
	logger := d.logger()
	rec := &Receipt{}
	fail := func(channel string, err error) {
		rec.Attempts = append(rec.Attempts, Attempt{Channel: channel, Error: err.Error()})
		observability.Export().OnDispatch(ctx, channel, err)
	}
	ok := func(channel string) {
		rec.Attempts = append(rec.Attempts, Attempt{Channel: channel})
		observability.Export().OnDispatch(ctx, channel, nil)
	}

	if d.Share != nil && d.Share.CanShare(a) {
		err := d.Share.Share(ctx, a)
		if err == nil {
			ok(ChannelShare)
			rec.Channel = ChannelShare
			logger.Info("shared artifact", "file", a.FileName)
			return rec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stderrors.Is(err, ErrShareCanceled) {
			logger.Info("share canceled, falling back")
		} else {
			logger.Warn("share failed, falling back", "err", err)
		}
		fail(ChannelShare, err)
	}

	downloaded := false
	if d.Download != nil {
		loc, err := d.Download.Save(ctx, a)
		if err == nil && loc == "" {
			err = ErrSilentNoop
		}
		if err == nil {
			downloaded = true
			ok(ChannelDownload)
			rec.Channel, rec.Location = ChannelDownload, loc
			logger.Info("saved artifact", "path", loc)
		} else {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("download failed", "err", err)
			fail(ChannelDownload, err)
		}
	}

	if d.Handles == nil || (downloaded && !d.OpenAfterDownload) {
		return d.finish(rec)
	}

	h, err := d.Handles.Register(ctx, a, d.grace())
	if err != nil {
		logger.Warn("register handle failed", "err", err)
		fail(ChannelOpen, err)
		return d.finish(rec)
	}
	rec.Handle = &h
	d.scheduleRevoke(h.ID)

	if d.Open == nil {
		if !downloaded {
			// The handle itself is the delivery, e.g. served over HTTP.
			ok(ChannelOpen)
			rec.Channel, rec.Location = ChannelOpen, h.URL
		}
		return d.finish(rec)
	}

	if downloaded {
		d.opens.Add(1)
		time.AfterFunc(d.openDelay(), func() {
			defer d.opens.Done()
			if err := d.Open.Open(context.WithoutCancel(ctx), h); err != nil {
				logger.Warn("open after download failed", "err", err)
			}
		})
		return d.finish(rec)
	}

	// Last resort: wait for the open so its outcome decides the result.
	timer := time.NewTimer(d.openDelay())
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}
	if err := d.Open.Open(ctx, h); err != nil {
		logger.Warn("open failed", "err", err)
		fail(ChannelOpen, err)
		return d.finish(rec)
	}
	ok(ChannelOpen)
	rec.Channel, rec.Location = ChannelOpen, h.URL
	logger.Info("opened artifact", "url", h.URL)
	return d.finish(rec)
}

func (d *Dispatcher) finish(rec *Receipt) (*Receipt, error) {
	if rec.Channel != "" {
		return rec, nil
	}
	return rec, errors.New(errors.ErrCodeDispatchFailed, "every delivery channel failed (%d tried)", len(rec.Attempts))
}

func (d *Dispatcher) scheduleRevoke(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		d.pending = make(map[string]*time.Timer)
	}
	if d.idle == nil {
		d.idle = make(chan struct{})
	}
	d.pending[id] = time.AfterFunc(d.grace(), func() {
		d.revoke(context.Background(), id)
		d.mu.Lock()
		d.release(id)
		d.mu.Unlock()
	})
}

// release drops id from pending. d.mu must be held.
func (d *Dispatcher) release(id string) {
	delete(d.pending, id)
	if len(d.pending) == 0 && d.idle != nil {
		close(d.idle)
		d.idle = nil
	}
}

func (d *Dispatcher) revoke(ctx context.Context, id string) {
	if err := d.Handles.Revoke(ctx, id); err != nil {
		d.logger().Warn("revoke handle failed", "id", id, "err", err)
		return
	}
	d.logger().Debug("revoked handle", "id", id)
}

// Pending returns the number of handles awaiting revocation.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Wait blocks until the grace window of every pending handle has run out
// and the handle was revoked, or ctx is done. A process that opened a
// handle calls Wait before Close so the viewer keeps its file.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for scheduled opens and revokes every pending handle now.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.opens.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	ids := make([]string, 0, len(d.pending))
	for id, t := range d.pending {
		if t.Stop() {
			ids = append(ids, id)
		}
	}
	d.mu.Unlock()

	for _, id := range ids {
		d.revoke(ctx, id)
	}
	d.mu.Lock()
	for _, id := range ids {
		d.release(id)
	}
	d.mu.Unlock()
	return nil
}

func (d *Dispatcher) openDelay() time.Duration {
	if d.OpenDelay <= 0 {
		return DefaultOpenDelay
	}
	return d.OpenDelay
}

func (d *Dispatcher) grace() time.Duration {
	if d.Grace <= 0 {
		return DefaultGrace
	}
	return d.Grace
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger == nil {
		return log.New(io.Discard)
	}
	return d.Logger
}
