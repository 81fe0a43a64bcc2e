package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/trikot/pkg/config"
	"github.com/matzehuels/trikot/pkg/dispatch"
	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/pipeline"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/session"
)

// renderOpts holds the flags of the render command. Zero values fall back
// to the config file.
type renderOpts struct {
	answers     invite.Answers
	interactive bool
	last        bool

	preset     string
	backend    string
	background string

	outputDir string
	shareURL  string
	open      bool
	fallback  string

	refresh bool
	noCache bool
}

// renderCommand exports an invitation shirt.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Export an invitation shirt as PNG",
		Long: `Export an invitation shirt as PNG and deliver it.

Delivery tries, in order: the share webhook (if configured), saving into the
output directory, and finally opening a temporary copy. After an open the
command stays until the grace period ends and then removes the copy; press
Ctrl-C to remove it sooner. With --open-with qr the copy is served over HTTP
on the local network for the same period.`,
		Example: `  trikot render --name Mia --age 7 --note "see you there"
  trikot render -i
  trikot render --last --preset print --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), &opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.answers.Name, "name", "", "guest name")
	f.StringVar(&opts.answers.Age, "age", "", "guest age")
	f.StringVar(&opts.answers.Note, "note", "", "personal note (drives the colors)")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "enter the answers in a form")
	f.BoolVar(&opts.last, "last", false, "reuse the answers of the previous run")
	f.StringVar(&opts.preset, "preset", "", "canvas preset: mobile, print")
	f.StringVar(&opts.backend, "backend", "", "render backend: raster, browser, rsvg")
	f.StringVar(&opts.background, "background", "", "capture background color")
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory to save into")
	f.StringVar(&opts.shareURL, "share-url", "", "webhook that receives the PNG")
	f.BoolVar(&opts.open, "open", false, "also open the image after saving")
	f.StringVar(&opts.fallback, "open-with", "", "open fallback: system, qr, none")
	f.BoolVar(&opts.refresh, "refresh", false, "ignore cached artifacts")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable caching entirely")

	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return scene.Names(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("backend", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return slices.Sorted(maps.Keys(pipeline.ValidBackends)), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("open-with", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OpenSystem, config.OpenQR, config.OpenNone}, cobra.ShellCompDirectiveNoFileComp
	})
	cmd.MarkFlagsMutuallyExclusive("interactive", "last")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts *renderOpts) error {
	store, err := session.NewCLIStore()
	if err != nil {
		c.Logger.Debug("answer history unavailable", "err", err)
	}

	answers, ok, err := c.collectAnswers(ctx, store, opts)
	if err != nil || !ok {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	cfg := c.mergeRenderFlags(opts)
	var handles dispatch.HandleStore = &dispatch.TempFileHandles{Dir: filepath.Join(os.TempDir(), appName)}
	if cfg.Dispatch.OpenFallback == config.OpenQR {
		h, err := c.startHandoff(cfg)
		if err != nil {
			_ = runner.Close()
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = h.Close(ctx)
		}()
		handles = h.Handles()
	}
	runner.Dispatcher = c.newDispatcher(cfg, opts.open, handles)

	spinner := newSpinnerWithContext(ctx, "rendering "+answers.FileName())
	spinner.Start()
	prog := newProgress(c.Logger)
	res, err := runner.Export(ctx, pipeline.Options{
		Answers:    answers,
		Preset:     cfg.Render.Preset,
		Backend:    cfg.Render.Backend,
		Background: cfg.Render.Background,
		Refresh:    opts.refresh,
		Dispatch:   true,
	})
	spinner.Stop()

	if err != nil {
		_ = runner.Close()
		return c.reportExportError(err)
	}
	prog.done("exported invitation", "bytes", res.Stats.Bytes, "backend", cfg.Render.Backend)

	if store != nil {
		if sess, err := session.New(answers, 0); err == nil {
			if err := store.Remember(ctx, sess); err != nil {
				c.Logger.Debug("remember answers", "err", err)
			}
		}
	}

	c.printReceipt(res)
	if rec := res.Receipt; rec != nil && rec.Handle != nil && runner.Dispatcher.Open != nil {
		c.waitGrace(ctx, runner.Dispatcher, rec.Handle.ExpiresAt)
	}
	return runner.Close()
}

// collectAnswers resolves the answers from flags, the previous run and the
// form. ok is false when the user quit the form.
func (c *CLI) collectAnswers(ctx context.Context, store *session.CLIStore, opts *renderOpts) (invite.Answers, bool, error) {
	answers := opts.answers
	if opts.last || opts.interactive {
		if prev := lastAnswers(ctx, store); prev != nil {
			answers = overlay(*prev, answers)
		} else if opts.last {
			return invite.Answers{}, false, errors.New(errors.ErrCodeSessionNotFound, "no previous answers to reuse")
		}
	}

	if opts.interactive {
		a, ok, err := runAnswersForm(answers)
		if err != nil || !ok {
			return invite.Answers{}, false, err
		}
		answers = a
	}

	if err := answers.Validate(); err != nil {
		return invite.Answers{}, false, fmt.Errorf("%w (use --interactive to fill in the form)", err)
	}
	return answers, true, nil
}

func lastAnswers(ctx context.Context, store *session.CLIStore) *invite.Answers {
	if store == nil {
		return nil
	}
	sess, err := store.Last(ctx)
	if err != nil {
		return nil
	}
	return &sess.Answers
}

// overlay returns base with every non-empty field of top applied.
func overlay(base, top invite.Answers) invite.Answers {
	if top.Name != "" {
		base.Name = top.Name
	}
	if top.Age != "" {
		base.Age = top.Age
	}
	if top.Note != "" {
		base.Note = top.Note
	}
	return base
}

// mergeRenderFlags returns the config with flag overrides applied.
func (c *CLI) mergeRenderFlags(opts *renderOpts) config.Config {
	cfg := c.Config
	if opts.preset != "" {
		cfg.Render.Preset = opts.preset
	}
	if opts.backend != "" {
		cfg.Render.Backend = opts.backend
	}
	if opts.background != "" {
		cfg.Render.Background = opts.background
	}
	if opts.outputDir != "" {
		cfg.Dispatch.OutputDir = opts.outputDir
	}
	if opts.shareURL != "" {
		cfg.Dispatch.ShareURL = opts.shareURL
	}
	if opts.fallback != "" {
		cfg.Dispatch.OpenFallback = opts.fallback
	}
	return cfg
}

// newDispatcher builds the delivery chain from cfg around handles.
func (c *CLI) newDispatcher(cfg config.Config, openAfterSave bool, handles dispatch.HandleStore) *dispatch.Dispatcher {
	d := dispatch.New(c.Logger)
	d.OpenDelay = cfg.Dispatch.OpenDelay.Duration
	d.Grace = cfg.Dispatch.Grace.Duration
	d.OpenAfterDownload = openAfterSave

	if cfg.Dispatch.ShareURL != "" {
		d.Share = dispatch.NewWebhookSharer(cfg.Dispatch.ShareURL, cfg.Dispatch.ShareMaxBytes)
	}
	d.Download = &dispatch.FileSaver{Dir: cfg.Dispatch.OutputDir}
	d.Handles = handles
	switch cfg.Dispatch.OpenFallback {
	case config.OpenSystem:
		d.Open = &dispatch.SystemOpener{}
	case config.OpenQR:
		d.Open = &dispatch.QROpener{Out: c.out}
	}
	return d
}

func (c *CLI) printReceipt(res *pipeline.Result) {
	rec := res.Receipt
	switch {
	case rec == nil:
		c.printSuccess("Rendered %s", res.Artifact.FileName)
	case rec.Channel == dispatch.ChannelShare:
		c.printSuccess("Shared %s", res.Artifact.FileName)
	case rec.Channel == dispatch.ChannelDownload:
		c.printSuccess("Saved %s", res.Artifact.FileName)
		c.printFile(rec.Location)
	default:
		c.printSuccess("Opened %s", res.Artifact.FileName)
		c.printFile(rec.Location)
	}
	c.printStats(res.Artifact.Width, res.Artifact.Height, res.Stats.Bytes, res.CacheInfo.RenderHit)
	if rec != nil {
		for _, a := range rec.Attempts {
			if a.Error != "" {
				c.printDetail("%s failed: %s", a.Channel, a.Error)
			}
		}
	}
}

// reportExportError prints the user-facing message for err and returns it.
func (c *CLI) reportExportError(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	c.printError("%s", errors.UserMessage(err))
	switch {
	case errors.Retryable(err):
		c.printNextStep("The capture failed, run again", appName+" render --last")
	case errors.Is(err, errors.ErrCodeBusy):
		c.printWarning("an export is already running")
	case errors.Is(err, errors.ErrCodeUnsupported):
		c.printNextStep("Use the built-in renderer", appName+" render --backend raster")
	}
	return err
}

// waitGrace keeps an opened handle alive until its grace window ends, so
// the viewer can still read it. Canceling ctx gives up early and the caller
// revokes the handle on Close.
func (c *CLI) waitGrace(ctx context.Context, d *dispatch.Dispatcher, until time.Time) {
	c.printDetail("Keeping the image available until %s (Ctrl-C to remove it now)", until.Format(time.Kitchen))
	if err := d.Wait(ctx); err != nil {
		c.Logger.Debug("stopped waiting for the viewer", "err", err)
	}
}
