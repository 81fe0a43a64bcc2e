package cli

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/config"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/server"
)

// handoffServer publishes handles over HTTP for the lifetime of one render
// so a phone scanning the QR code can fetch the image.
type handoffServer struct {
	srv *server.Server
	hs  *http.Server
}

func (c *CLI) startHandoff(cfg config.Config) (*handoffServer, error) {
	ln, err := net.Listen("tcp", cfg.Dispatch.HandoffAddr)
	if err != nil {
		return nil, err
	}
	base := handoffURL(cfg.Dispatch.HandoffHost, ln.Addr())
	srv := server.New(server.Options{
		Cache:   cache.NewMemoryCache(),
		Fonts:   c.fontRegistry(),
		BaseURL: base,
		Grace:   cfg.Dispatch.Grace.Duration,
		Logger:  c.Logger,
	})
	h := &handoffServer{
		srv: srv,
		hs:  &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second},
	}
	go func() { _ = h.hs.Serve(ln) }()
	c.Logger.Debug("handoff listening", "url", base)
	return h, nil
}

// Handles is the store the dispatcher registers into.
func (h *handoffServer) Handles() dispatch.HandleStore {
	return h.srv.Handles()
}

func (h *handoffServer) Close(ctx context.Context) error {
	err := h.hs.Shutdown(ctx)
	if cerr := h.srv.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// handoffURL returns the base URL a phone on the same network can reach.
// host wins when set; otherwise the address of the interface that routes
// outbound traffic is used, falling back to loopback.
func handoffURL(host string, addr net.Addr) string {
	port := "80"
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = strconv.Itoa(tcp.Port)
	}
	if host == "" {
		host = outboundIP()
	}
	return "http://" + net.JoinHostPort(host, port)
}

// outboundIP asks the routing table which local address reaches the
// internet. A UDP dial sends no packets.
func outboundIP() string {
	conn, err := net.Dial("udp4", "192.0.2.1:9")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if a, ok := conn.LocalAddr().(*net.UDPAddr); ok && !a.IP.IsUnspecified() {
		return a.IP.String()
	}
	return "127.0.0.1"
}
