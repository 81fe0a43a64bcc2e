// Package server exposes the export pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/theme?note=...
//	POST /api/invitations                answers → session
//	GET  /api/invitations/{id}
//	POST /api/invitations/{id}/export    render + register a transient handle
//	GET  /artifacts/{id}                 PNG, ?width= for a preview
//	GET  /artifacts/{id}/qr.png          QR code linking the artifact
//
// The service keeps only transient state: session answers (with a TTL) and
// artifact handles that expire after the grace window. Each session gets
// its own runner, so a second export while one is running answers 409.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/pipeline"
	"github.com/matzehuels/trikot/pkg/session"
)

// Options configure a [Server].
type Options struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Fonts      *fonts.Registry
	BaseURL    string
	SessionTTL time.Duration
	Grace      time.Duration

	// Defaults for exports that do not name them.
	Preset     string
	Backend    string
	Background string

	TemplatePath string
	ChromeURL    string
	AttachFrames int
	SettleFrames int

	// Surfaces overrides the render backends, for tests.
	Surfaces pipeline.SurfaceFactory

	Logger *log.Logger
}

// Server is the HTTP service.
type Server struct {
	opts       Options
	sessions   session.Store
	handles    *dispatch.CacheHandles
	dispatcher *dispatch.Dispatcher
	logger     *log.Logger

	mu      sync.Mutex
	runners map[string]*sessionRunner
}

// sessionRunner is dropped when its session expires.
type sessionRunner struct {
	runner *pipeline.Runner
	evict  *time.Timer
}

// New creates a server. A nil cache keeps everything in memory.
func New(opts Options) *Server {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Fonts == nil {
		opts.Fonts = fonts.NewDefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}

	handles := &dispatch.CacheHandles{Cache: opts.Cache, Keyer: opts.Keyer, BaseURL: opts.BaseURL}
	d := dispatch.New(opts.Logger)
	d.Handles = handles
	if opts.Grace > 0 {
		d.Grace = opts.Grace
	}

	return &Server{
		opts:       opts,
		sessions:   session.NewCacheStore(opts.Cache, opts.Keyer),
		handles:    handles,
		dispatcher: d,
		logger:     opts.Logger,
		runners:    make(map[string]*sessionRunner),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/theme", s.handleTheme)
	r.Route("/api/invitations", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Post("/{id}/export", s.handleExport)
	})
	r.Route("/artifacts/{id}", func(r chi.Router) {
		r.Get("/", s.handleArtifact)
		r.Get("/qr.png", s.handleQR)
	})
	return r
}

// runner returns the runner guarding exports of sess. It is evicted once
// the session expires.
func (s *Server) runner(sess *session.Session) *pipeline.Runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sr, ok := s.runners[sess.ID]; ok {
		return sr.runner
	}
	r := pipeline.NewRunner(s.opts.Cache, s.opts.Keyer, s.logger)
	r.Fonts = s.opts.Fonts
	r.TemplatePath = s.opts.TemplatePath
	r.ChromeURL = s.opts.ChromeURL
	r.AttachFrames = s.opts.AttachFrames
	r.SettleFrames = s.opts.SettleFrames
	r.Surfaces = s.opts.Surfaces
	r.Dispatcher = s.dispatcher
	id := sess.ID
	s.runners[id] = &sessionRunner{
		runner: r,
		evict:  time.AfterFunc(sess.TTL(), func() { s.forget(id) }),
	}
	return r
}

func (s *Server) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sr, ok := s.runners[id]; ok {
		sr.evict.Stop()
		delete(s.runners, id)
	}
}

// runnerCount reports how many sessions hold a runner.
func (s *Server) runnerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runners)
}

// Handles is the store behind /artifacts. Handles registered here by
// another dispatcher are served too.
func (s *Server) Handles() *dispatch.CacheHandles {
	return s.handles
}

// Close drops the session runners and revokes outstanding handles. The
// cache is owned by the caller.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	for id, sr := range s.runners {
		sr.evict.Stop()
		delete(s.runners, id)
	}
	s.mu.Unlock()
	return s.dispatcher.Close(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
