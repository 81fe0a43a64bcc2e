package cli

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/trikot/pkg/server"
)

const shutdownTimeout = 10 * time.Second

type serveOpts struct {
	addr    string
	baseURL string
}

// serveCommand runs the HTTP service until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: `Run the HTTP service.

Sessions and artifact handles live in the configured cache. Use the redis
backend when several instances serve the same base URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "public URL of the service, used in artifact links")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg := c.Config
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.baseURL != "" {
		cfg.Server.BaseURL = opts.baseURL
	}

	cc, err := c.newCache(ctx, false)
	if err != nil {
		return err
	}
	defer cc.Close()

	srv := server.New(server.Options{
		Cache:        cc,
		Fonts:        c.fontRegistry(),
		BaseURL:      cfg.Server.BaseURL,
		SessionTTL:   cfg.Server.SessionTTL.Duration,
		Grace:        cfg.Dispatch.Grace.Duration,
		Preset:       cfg.Render.Preset,
		Backend:      cfg.Render.Backend,
		Background:   cfg.Render.Background,
		TemplatePath: cfg.Assets.Template,
		ChromeURL:    cfg.Render.ChromeURL,
		AttachFrames: cfg.Render.AttachFrames,
		SettleFrames: cfg.Render.SettleFrames,
		Logger:       c.Logger,
	})

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	hs := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	c.printSuccess("Listening on %s", StyleLink.Render(cfg.Server.BaseURL))
	c.Logger.Info("serving", "addr", ln.Addr().String(), "cache", cfg.Cache.Backend, "backend", cfg.Render.Backend)

	select {
	case err := <-errc:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	c.Logger.Info("shutting down")
	if err := hs.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("shutdown", "err", err)
	}
	return srv.Close(shutdownCtx)
}
