package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/pipeline"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/session"
	"github.com/matzehuels/trikot/pkg/theme"
)

const (
	maxBodyBytes = 64 << 10
	previewWidth = 390
)

type themeResponse struct {
	Theme    theme.Theme    `json:"theme"`
	Analysis theme.Analysis `json:"analysis"`
}

type invitationResponse struct {
	ID        string         `json:"id"`
	Answers   invite.Answers `json:"answers"`
	Theme     theme.Theme    `json:"theme"`
	FileName  string         `json:"file_name"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type exportRequest struct {
	Preset  string `json:"preset,omitempty"`
	Backend string `json:"backend,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`
}

type exportResponse struct {
	render.Artifact
	Bytes      int       `json:"bytes"`
	URL        string    `json:"url"`
	PreviewURL string    `json:"preview_url"`
	QRURL      string    `json:"qr_url"`
	ExpiresAt  time.Time `json:"expires_at"`
	Cached     bool      `json:"cached"`
	Title      string    `json:"title"`
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Retry   bool        `json:"retry"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	note := r.URL.Query().Get("note")
	writeJSON(w, http.StatusOK, themeResponse{Theme: theme.Build(note), Analysis: theme.Analyze(note)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var answers invite.Answers
	if err := decodeBody(w, r, &answers); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := session.New(answers, s.opts.SessionTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("created invitation", "id", sess.ID)
	writeJSON(w, http.StatusCreated, invitation(sess))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitation(sess))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req exportRequest
	// An empty body exports with the server defaults.
	if err := decodeBody(w, r, &req); err != nil && !stderrors.Is(err, io.EOF) {
		s.writeError(w, err)
		return
	}

	opts := pipeline.Options{
		Answers:    sess.Answers,
		Preset:     firstNonEmpty(req.Preset, s.opts.Preset),
		Backend:    firstNonEmpty(req.Backend, s.opts.Backend),
		Background: s.opts.Background,
		Refresh:    req.Refresh,
		Dispatch:   true,
	}
	res, err := s.runner(sess).Export(r.Context(), opts)
	if err != nil {
		s.logger.Warn("export failed", "id", sess.ID, "code", errors.GetCode(err), "err", err)
		s.writeError(w, err)
		return
	}

	var h *dispatch.Handle
	if res.Receipt != nil {
		h = res.Receipt.Handle
	}
	if h == nil {
		s.writeError(w, errors.New(errors.ErrCodeDispatchFailed, "artifact was not registered"))
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		Artifact:   *res.Artifact,
		Bytes:      res.Artifact.Size(),
		URL:        h.URL,
		PreviewURL: h.URL + "?width=" + strconv.Itoa(previewWidth),
		QRURL:      h.URL + "/qr.png",
		ExpiresAt:  h.ExpiresAt,
		Cached:     res.CacheInfo.RenderHit,
		Title:      invite.ShareTitle,
	})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.handles.Fetch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	data := a.Data
	disposition := "attachment"
	if ws := r.URL.Query().Get("width"); ws != "" {
		width, err := strconv.Atoi(ws)
		if err != nil || width <= 0 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "width must be a positive integer"))
			return
		}
		if data, err = render.Preview(a, width); err != nil {
			s.writeError(w, err)
			return
		}
		disposition = "inline"
	}
	w.Header().Set("Content-Type", a.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, a.FileName))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.handles.Fetch(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	png, err := dispatch.QRCode(s.handles.URL(id), 256)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", render.MediaTypePNG)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(r.Context(), id)
	switch {
	case stderrors.Is(err, session.ErrNotFound):
		s.forget(id)
		return nil, errors.Wrap(errors.ErrCodeSessionNotFound, err, "invitation %q not found", id)
	case stderrors.Is(err, session.ErrExpired):
		s.forget(id)
		return nil, errors.Wrap(errors.ErrCodeSessionExpired, err, "invitation %q expired", id)
	case err != nil:
		return nil, err
	}
	return sess, nil
}

func invitation(sess *session.Session) invitationResponse {
	return invitationResponse{
		ID:        sess.ID,
		Answers:   sess.Answers,
		Theme:     sess.Theme(),
		FileName:  sess.Answers.FileName(),
		ExpiresAt: sess.ExpiresAt,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatus(code)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("internal error", "err", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: msg, Retry: errors.Retryable(err)}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
