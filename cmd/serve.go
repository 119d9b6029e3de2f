package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pagetypes/internal/flags"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/pagetypes"
	"github.com/zjrosen/pagetypes/internal/rowsource"
	"github.com/zjrosen/pagetypes/internal/templates"
	"github.com/zjrosen/pagetypes/internal/watcher"
	"github.com/zjrosen/pagetypes/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `Run the HTTP server exposing the pages of all page types, the sidebar,
the add-to popup and the automation API.

The acting user of every request is taken from the header configured as
server.user_header, which the authenticating front proxy must set.

Example:
  pagetypes serve                        # Listen on server.addr
  pagetypes serve --addr 0.0.0.0:9000    # Override the address`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, appOptions{logTo: os.Stderr, metrics: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	features := flags.New(cfg.Flags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows, err := openRows(a)
	if err != nil {
		return err
	}

	catalog := a.regs.Catalog
	go countReloads(ctx, a, catalog)
	go countChanges(ctx, a)
	if dir := catalog.OverlayDir(); dir != "" {
		w, err := watcher.New(watcher.DefaultConfig(dir))
		if err != nil {
			return err
		}
		changes, err := w.Start()
		if err != nil {
			log.Warn(log.CatWatcher, "Not watching builtin definitions", "dir", dir, "error", err)
		} else {
			defer func() { _ = w.Stop() }()
			go watcher.Run(ctx, changes, catalog)
		}
	}

	webCfg := web.Config{
		Deps:       a.deps(),
		Rows:       rows,
		Tracer:     a.tracer,
		UserHeader: cfg.Server.UserHeader,
		LogStream:  features.Enabled(flags.FlagLogStream),
		Changes:    a.changes,
		WriteLock:  a.api.WriteLock(),
	}
	if features.Enabled(flags.FlagWebAPI) {
		webCfg.API = a.api
	}
	if features.Enabled(flags.FlagMetrics) {
		webCfg.Metrics = a.metrics
	}
	handler := web.NewHandler(webCfg)

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	server, err := web.NewServer(addr, handler)
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "pagetypes listening on port %d\n", server.Port())
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		_, _ = fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatWeb, "Error stopping web server", err)
	}
	return nil
}

// openRows loads the configured row fixture behind the row cache.
func openRows(a *app) (rowsource.Source, error) {
	var (
		src rowsource.Source
		err error
	)
	if a.cfg.RowsFile != "" {
		src, err = rowsource.LoadFixture(a.cfg.RowsFile)
	} else {
		src, err = rowsource.ParseFixture(templates.DemoRows())
	}
	if err != nil {
		return nil, err
	}
	cached := rowsource.NewCached(src, a.cfg.Cache.RowTTL)
	if a.metrics != nil {
		cached.Observe(a.metrics)
	}
	return cached, nil
}

// countReloads counts builtin reloads until ctx is done.
func countReloads(ctx context.Context, a *app, catalog *pagetypes.Catalog) {
	events := catalog.Broker().Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if a.metrics != nil {
				a.metrics.ObserveReload()
			}
			log.Info(log.CatWatcher, "Builtin definitions reloaded", "pages", ev.Payload)
		}
	}
}

// countChanges logs and counts saved instance changes until ctx is done.
func countChanges(ctx context.Context, a *app) {
	events := a.changes.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if a.metrics != nil {
				a.metrics.ObserveChange(ev)
			}
			log.Debug(log.CatStore, "Instance changed", "event", string(ev.Type),
				"type", ev.Payload.Type, "owner", ev.Payload.Owner, "name", ev.Payload.Name, "by", ev.Payload.By)
		}
	}
}
