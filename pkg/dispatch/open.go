package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"runtime"

	"github.com/skip2/go-qrcode"

	"github.com/matzehuels/trikot/pkg/errors"
)

// SystemOpener opens handles with the desktop's default viewer.
type SystemOpener struct {
	// Run executes the command; nil runs it with os/exec.
	Run func(ctx context.Context, name string, args ...string) error
	GOOS string
}

// Command returns the open command for goos.
func Command(goos, target string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	}
	return "", nil, errors.New(errors.ErrCodeUnsupported, "no opener for %s", goos)
}

func (o *SystemOpener) Open(ctx context.Context, h Handle) error {
	goos := o.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	target := h.Path
	if target == "" {
		target = h.URL
	}
	name, args, err := Command(goos, target)
	if err != nil {
		return err
	}
	run := o.Run
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Start()
		}
	}
	if err := run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// QROpener prints the handle URL as a terminal QR code so a phone can
// fetch the image. Only http and https handles can be reached that way;
// anything else fails so the chain reports it.
type QROpener struct {
	Out io.Writer
}

func (o *QROpener) Open(_ context.Context, h Handle) error {
	if h.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "handle has no url")
	}
	u, err := url.Parse(h.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrCodeUnsupported, "qr handoff needs an http url, got %q", h.URL)
	}
	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	q, err := qrcode.New(h.URL, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s\n%s\n", q.ToSmallString(false), h.URL)
	return err
}

// QRCode returns a PNG QR code of url, size pixels wide.
func QRCode(url string, size int) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, size)
}
