package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pagetypes/internal/config"
	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/infrastructure/filestore"
	"github.com/zjrosen/pagetypes/internal/infrastructure/sqlite"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/metrics"
	"github.com/zjrosen/pagetypes/internal/pagetypes"
	"github.com/zjrosen/pagetypes/internal/permission"
	"github.com/zjrosen/pagetypes/internal/pubsub"
	"github.com/zjrosen/pagetypes/internal/templates"
	"github.com/zjrosen/pagetypes/internal/tracing"
	"github.com/zjrosen/pagetypes/internal/webapi"
)

// app holds the wired collaborators shared by all commands.
type app struct {
	cfg     config.Config
	regs    *pagetypes.Registries
	persist element.Persistence
	metrics *metrics.Metrics
	tracer  trace.Tracer
	api     *webapi.API
	changes *pubsub.Broker[element.Change]
	closers []func() error
}

type appOptions struct {
	// logTo receives log output when no log file is configured.
	logTo   io.Writer
	metrics bool
}

// openApp wires registries, persistence and instrumentation from c.
func openApp(c config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: c}
	if err := a.initLog(opts.logTo); err != nil {
		return nil, err
	}

	catalog, err := pagetypes.NewCatalog(templates.BuiltinFS(), c.BuiltinDir)
	if err != nil {
		return nil, fmt.Errorf("loading builtin definitions: %w", err)
	}
	a.closers = append(a.closers, func() error { catalog.Close(); return nil })

	perms := permission.NewRegistry()
	regs, err := pagetypes.Bootstrap(perms, catalog)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.regs = regs

	persist, closePersist, err := openPersistence(c)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closePersist)

	provider, err := tracing.NewProvider(c.Tracing)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("creating tracing provider: %w", err)
	}
	a.closers = append(a.closers, func() error { return provider.Shutdown(context.Background()) })
	a.tracer = provider.Tracer()
	if provider.Enabled() {
		persist = tracing.WrapPersistence(persist, a.tracer)
	}

	if opts.metrics {
		a.metrics = metrics.New()
		persist = a.metrics.WrapPersistence(persist)
	}
	a.persist = persist
	a.changes = pubsub.NewBroker[element.Change]()
	a.closers = append(a.closers, func() error { a.changes.Close(); return nil })

	a.api = webapi.New(a.deps())
	webapi.RegisterDefaults(a.api)
	if a.metrics != nil {
		a.api.Observe(a.metrics.ObserveAPICall)
	}

	// Overrides last: element types and API actions declared their
	// permissions above.
	c.ApplyPermissions(perms)
	return a, nil
}

func (a *app) initLog(fallback io.Writer) error {
	level := log.ParseLevel(a.cfg.Log.Level)
	switch {
	case a.cfg.Log.Path != "":
		cleanup, err := log.Init(a.cfg.Log.Path)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		log.SetMinLevel(level)
		a.closers = append(a.closers, func() error { cleanup(); return nil })
	case fallback != nil:
		log.InitWriter(fallback, level)
	}
	return nil
}

func (a *app) deps() element.Deps {
	d := a.regs.Deps(a.persist)
	d.Changes = a.changes
	return d
}

// session opens a session for the acting user of the CLI.
func (a *app) session() *element.Session { return element.NewSession(a.deps(), actingUser) }

// Close releases everything in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openPersistence opens the configured storage backend.
func openPersistence(c config.Config) (element.Persistence, func() error, error) {
	switch c.Storage.Backend {
	case config.BackendSQLite:
		driver := c.Storage.SQLiteDriver
		if driver == "" {
			driver = sqlite.DriverNcruces
		}
		db, err := sqlite.NewDBWithDriver(c.Storage.SQLitePath, driver)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		log.Info(log.CatDB, "Using sqlite storage", "path", c.Storage.SQLitePath, "driver", driver)
		return db.RecordRepository(), db.Close, nil
	default:
		if err := os.MkdirAll(c.ConfigDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating config dir: %w", err)
		}
		log.Info(log.CatStore, "Using file storage", "dir", c.ConfigDir)
		return filestore.New(c.ConfigDir), func() error { return nil }, nil
	}
}
