package dispatch

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/render"
)

type fakeSharer struct {
	can   bool
	err   error
	calls int
}

func (f *fakeSharer) CanShare(*render.Artifact) bool { return f.can }

func (f *fakeSharer) Share(context.Context, *render.Artifact) error {
	f.calls++
	return f.err
}

type fakeSaver struct {
	loc   string
	err   error
	calls int
}

func (f *fakeSaver) Save(context.Context, *render.Artifact) (string, error) {
	f.calls++
	return f.loc, f.err
}

type fakeOpener struct {
	err error

	mu     sync.Mutex
	opened []Handle
}

func (f *fakeOpener) Open(_ context.Context, h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, h)
	return f.err
}

func (f *fakeOpener) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

func artifact() *render.Artifact {
	return &render.Artifact{
		Data:      []byte("\x89PNG fake"),
		MediaType: render.MediaTypePNG,
		FileName:  "invitation-shirt-mia.png",
	}
}

func newDispatcher(store HandleStore) *Dispatcher {
	d := New(nil)
	d.OpenDelay = time.Millisecond
	d.Handles = store
	return d
}

func memoryHandles() *CacheHandles {
	return &CacheHandles{Cache: cache.NewMemoryCache(), BaseURL: "http://localhost:8080/"}
}

func TestDispatchShare(t *testing.T) {
	share := &fakeSharer{can: true}
	save := &fakeSaver{loc: "/tmp/x.png"}
	d := newDispatcher(memoryHandles())
	d.Share, d.Download = share, save

	rec, err := d.Dispatch(context.Background(), artifact())
	require.NoError(t, err)
	require.Equal(t, ChannelShare, rec.Channel)
	require.Equal(t, 1, share.calls)
	require.Zero(t, save.calls)
	require.Zero(t, d.Pending())
}

func TestDispatchShareFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		share *fakeSharer
		tries int
	}{
		{"canceled", &fakeSharer{can: true, err: ErrShareCanceled}, 2},
		{"rejected", &fakeSharer{can: true, err: stderrors.New("NotAllowedError")}, 2},
		{"unsupported", &fakeSharer{can: false}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			save := &fakeSaver{loc: "/tmp/x.png"}
			open := &fakeOpener{}
			d := newDispatcher(memoryHandles())
			d.Share, d.Download, d.Open = tt.share, save, open

			rec, err := d.Dispatch(context.Background(), artifact())
			require.NoError(t, err)
			require.Equal(t, ChannelDownload, rec.Channel)
			require.Equal(t, "/tmp/x.png", rec.Location)
			require.Len(t, rec.Attempts, tt.tries)
			require.Equal(t, 1, save.calls)
			require.Nil(t, rec.Handle)
			require.Zero(t, open.count())
		})
	}
}

func TestDispatchOpenFallback(t *testing.T) {
	tests := []struct {
		name string
		save *fakeSaver
	}{
		{"download error", &fakeSaver{err: stderrors.New("disk full")}},
		{"silent noop", &fakeSaver{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memoryHandles()
			open := &fakeOpener{}
			d := newDispatcher(store)
			d.Grace = 20 * time.Millisecond
			d.Download, d.Open = tt.save, open

			rec, err := d.Dispatch(context.Background(), artifact())
			require.NoError(t, err)
			require.Equal(t, ChannelOpen, rec.Channel)
			require.NotNil(t, rec.Handle)
			require.Equal(t, 1, open.count())
			require.Equal(t, "http://localhost:8080/artifacts/"+rec.Handle.ID, rec.Handle.URL)

			// Revocation happens on a timer, not during dispatch.
			a, err := store.Fetch(context.Background(), rec.Handle.ID)
			require.NoError(t, err)
			require.Equal(t, artifact().Data, a.Data)

			require.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
			_, err = store.Fetch(context.Background(), rec.Handle.ID)
			require.True(t, errors.Is(err, errors.ErrCodeArtifactNotFound))
		})
	}
}

func TestDispatchAllFail(t *testing.T) {
	d := newDispatcher(memoryHandles())
	d.Share = &fakeSharer{can: true, err: stderrors.New("no")}
	d.Download = &fakeSaver{err: stderrors.New("no")}
	d.Open = &fakeOpener{err: stderrors.New("no")}

	rec, err := d.Dispatch(context.Background(), artifact())
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrCodeDispatchFailed))
	require.Len(t, rec.Attempts, 3)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatchHandleOnly(t *testing.T) {
	d := newDispatcher(memoryHandles())
	rec, err := d.Dispatch(context.Background(), artifact())
	require.NoError(t, err)
	require.Equal(t, ChannelOpen, rec.Channel)
	require.Equal(t, rec.Handle.URL, rec.Location)
	require.Equal(t, 1, d.Pending())
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatchOpenAfterDownload(t *testing.T) {
	open := &fakeOpener{}
	d := newDispatcher(memoryHandles())
	d.Download, d.Open = &fakeSaver{loc: "/tmp/x.png"}, open
	d.OpenAfterDownload = true

	rec, err := d.Dispatch(context.Background(), artifact())
	require.NoError(t, err)
	require.Equal(t, ChannelDownload, rec.Channel)
	require.NotNil(t, rec.Handle)
	require.Eventually(t, func() bool { return open.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatchCloseRevokesEarly(t *testing.T) {
	store := memoryHandles()
	d := newDispatcher(store)
	d.Grace = time.Hour

	rec, err := d.Dispatch(context.Background(), artifact())
	require.NoError(t, err)
	require.Equal(t, 1, d.Pending())

	require.NoError(t, d.Close(context.Background()))
	require.Zero(t, d.Pending())
	_, err = store.Fetch(context.Background(), rec.Handle.ID)
	require.True(t, errors.Is(err, errors.ErrCodeArtifactNotFound))
}

func TestDispatchWaitKeepsOpenedHandleForGrace(t *testing.T) {
	const grace = 150 * time.Millisecond
	store := &TempFileHandles{Dir: t.TempDir()}
	open := &fakeOpener{}
	d := newDispatcher(store)
	d.Grace = grace
	d.Download, d.Open = &fakeSaver{err: stderrors.New("read-only")}, open

	start := time.Now()
	rec, err := d.Dispatch(context.Background(), artifact())
	require.NoError(t, err)
	require.Equal(t, ChannelOpen, rec.Channel)
	require.Equal(t, 1, open.count())
	require.FileExists(t, rec.Handle.Path)

	require.NoError(t, d.Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), grace)
	require.NoFileExists(t, rec.Handle.Path)
	require.Zero(t, d.Pending())

	// Nothing pending: Wait returns at once and Close has nothing to revoke.
	require.NoError(t, d.Wait(context.Background()))
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatchWaitCanceled(t *testing.T) {
	d := newDispatcher(&TempFileHandles{Dir: t.TempDir()})
	d.Grace = time.Hour

	rec, err := d.Dispatch(context.Background(), artifact())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
	require.FileExists(t, rec.Handle.Path)

	require.NoError(t, d.Close(context.Background()))
	require.NoFileExists(t, rec.Handle.Path)
	require.NoError(t, d.Wait(context.Background()))
}

func TestDispatchEmpty(t *testing.T) {
	_, err := New(nil).Dispatch(context.Background(), &render.Artifact{})
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestFileSaver(t *testing.T) {
	dir := t.TempDir()
	s := &FileSaver{Dir: filepath.Join(dir, "out")}

	path, err := s.Save(context.Background(), artifact())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "out", "invitation-shirt-mia.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, artifact().Data, data)

	a := artifact()
	a.FileName = ""
	path, err = s.Save(context.Background(), a)
	require.NoError(t, err)
	require.Equal(t, "invitation-shirt-export.png", filepath.Base(path))

	a.FileName = "../escape.png"
	_, err = s.Save(context.Background(), a)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestWebhookSharer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "2nd May, 8pm", r.FormValue("title"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "invitation-shirt-mia.png", hdr.Filename)
		require.Equal(t, render.MediaTypePNG, hdr.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		require.Equal(t, artifact().Data, data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSharer(srv.URL, 1024)
	s.Delay = time.Millisecond
	require.True(t, s.CanShare(artifact()))
	require.NoError(t, s.Share(context.Background(), artifact()))
	require.Equal(t, int32(2), hits.Load())

	big := artifact()
	big.Data = bytes.Repeat([]byte{1}, 2048)
	require.False(t, s.CanShare(big))
	require.False(t, NewWebhookSharer("", 0).CanShare(artifact()))
}

func TestWebhookSharerCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	err := NewWebhookSharer(srv.URL, 0).Share(context.Background(), artifact())
	require.ErrorIs(t, err, ErrShareCanceled)
}

func TestCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
		args []string
	}{
		{"linux", "xdg-open", []string{"/tmp/a.png"}},
		{"darwin", "open", []string{"/tmp/a.png"}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", "/tmp/a.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := Command(tt.goos, "/tmp/a.png")
			require.NoError(t, err)
			require.Equal(t, tt.name, name)
			require.Equal(t, tt.args, args)
		})
	}
	_, _, err := Command("plan9", "x")
	require.True(t, errors.Is(err, errors.ErrCodeUnsupported))
}

func TestSystemOpener(t *testing.T) {
	var got []string
	o := &SystemOpener{GOOS: "linux", Run: func(_ context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}}
	require.NoError(t, o.Open(context.Background(), Handle{URL: "file:///tmp/a.png", Path: "/tmp/a.png"}))
	require.Equal(t, []string{"xdg-open", "/tmp/a.png"}, got)
}

func TestQROpener(t *testing.T) {
	var buf bytes.Buffer
	o := &QROpener{Out: &buf}
	require.NoError(t, o.Open(context.Background(), Handle{URL: "http://192.168.1.2:8080/artifacts/abc"}))
	require.Contains(t, buf.String(), "http://192.168.1.2:8080/artifacts/abc")
	require.Error(t, o.Open(context.Background(), Handle{}))

	buf.Reset()
	err := o.Open(context.Background(), Handle{URL: "file:///tmp/trikot/a.png", Path: "/tmp/trikot/a.png"})
	require.True(t, errors.Is(err, errors.ErrCodeUnsupported))
	require.Empty(t, buf.String())

	png, err := QRCode("http://example.com", 128)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestDispatchQRNeedsHTTPHandle(t *testing.T) {
	var buf bytes.Buffer
	d := newDispatcher(&TempFileHandles{Dir: t.TempDir()})
	d.Download, d.Open = &fakeSaver{}, &QROpener{Out: &buf}

	rec, err := d.Dispatch(context.Background(), artifact())
	require.True(t, errors.Is(err, errors.ErrCodeDispatchFailed))
	require.Len(t, rec.Attempts, 2)
	require.Equal(t, ChannelOpen, rec.Attempts[1].Channel)
	require.Empty(t, buf.String())
	require.NoError(t, d.Close(context.Background()))
}

func TestTempFileHandles(t *testing.T) {
	store := &TempFileHandles{Dir: t.TempDir()}
	h, err := store.Register(context.Background(), artifact(), time.Minute)
	require.NoError(t, err)
	require.FileExists(t, h.Path)
	require.Contains(t, h.URL, "file://")

	require.NoError(t, store.Revoke(context.Background(), h.ID))
	require.NoFileExists(t, h.Path)
	require.NoError(t, store.Revoke(context.Background(), h.ID))
}

func TestCacheHandlesFetchInvalidID(t *testing.T) {
	_, err := memoryHandles().Fetch(context.Background(), "../../etc")
	require.True(t, errors.Is(err, errors.ErrCodeArtifactNotFound))
}
