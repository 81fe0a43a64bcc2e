package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopExportHooks{}
	e.OnSyncStart(ctx, "print")
	e.OnSyncComplete(ctx, "print", 3, false, time.Second, nil)
	e.OnCaptureStart(ctx, "print")
	e.OnCaptureComplete(ctx, "print", 1024, time.Second, nil)
	e.OnDispatch(ctx, "share", errors.New("canceled"))

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "session")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "share.example", "/upload")
	h.OnResponse(ctx, "POST", "share.example", "/upload", 200, time.Second)
	h.OnError(ctx, "POST", "share.example", "/upload", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Export().(NoopExportHooks); !ok {
		t.Error("Export() should return NoopExportHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customExport := &testExportHooks{}
	SetExportHooks(customExport)
	if Export() != customExport {
		t.Error("SetExportHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Export().OnDispatch(context.Background(), "download", nil)
	if customExport.dispatches != 1 {
		t.Errorf("dispatches = %d, want 1", customExport.dispatches)
	}

	Reset()
	if _, ok := Export().(NoopExportHooks); !ok {
		t.Error("Reset() should restore NoopExportHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testExportHooks{}
	SetExportHooks(custom)
	SetExportHooks(nil)

	if Export() != custom {
		t.Error("SetExportHooks(nil) should be ignored")
	}

	Reset()
}

type testExportHooks struct {
	NoopExportHooks
	dispatches int
}

func (h *testExportHooks) OnDispatch(context.Context, string, error) { h.dispatches++ }

type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

func TestLogHooks(t *testing.T) {
	t.Cleanup(Reset)
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	Install(NewLogHooks(logger))

	ctx := context.Background()
	Export().OnCaptureComplete(ctx, "mobile", 2048, time.Second, nil)
	Cache().OnCacheMiss(ctx, "artifact")
	HTTP().OnResponse(ctx, "POST", "share.example", "/upload", 503, time.Millisecond)

	out := buf.String()
	for _, want := range []string{"capture complete", "bytes=2048", "cache miss", "status=503"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
