package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/matzehuels/trikot/pkg/httputil"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/observability"
	"github.com/matzehuels/trikot/pkg/render"
)

// WebhookSharer posts artifacts as multipart/form-data with a "title" field
// and a "file" part. An endpoint answering 410 Gone dismissed the share.
type WebhookSharer struct {
	URL      string
	Title    string
	MaxBytes int64
	Client   *http.Client
	Attempts int
	Delay    time.Duration
}

// NewWebhookSharer returns a sharer for url with the default title.
func NewWebhookSharer(url string, maxBytes int64) *WebhookSharer {
	return &WebhookSharer{
		URL:      url,
		Title:    invite.ShareTitle,
		MaxBytes: maxBytes,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Attempts: 3,
		Delay:    time.Second,
	}
}

// CanShare reports whether an endpoint is configured and a fits its limit.
func (s *WebhookSharer) CanShare(a *render.Artifact) bool {
	if s.URL == "" || a == nil || len(a.Data) == 0 {
		return false
	}
	return s.MaxBytes <= 0 || int64(len(a.Data)) <= s.MaxBytes
}

func (s *WebhookSharer) Share(ctx context.Context, a *render.Artifact) error {
	body, contentType, err := s.form(a)
	if err != nil {
		return err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	return httputil.Retry(ctx, s.Attempts, s.Delay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		hooks := observability.HTTP()
		hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
			return &httputil.RetryableError{Err: err}
		}
		defer resp.Body.Close()
		hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

		if resp.StatusCode == http.StatusGone {
			return ErrShareCanceled
		}
		return httputil.CheckResponse(resp)
	})
}

func (s *WebhookSharer) form(a *render.Artifact) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", s.Title); err != nil {
		return nil, "", err
	}

	name := a.FileName
	if name == "" {
		name = invite.Answers{}.FileName()
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", a.MediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(a.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
