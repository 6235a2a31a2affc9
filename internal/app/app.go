// Package app wires the versecap subsystems into a running caption service.
//
// The App struct owns the full lifecycle: New loads the book catalog, builds
// the canonicalizer, connects the optional caption archives and assembles the
// HTTP server; Run serves until the context is cancelled; Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithArchive,
// WithListener, ...). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/versecap/internal/archive"
	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/caption/refdetect"
	"github.com/MrWong99/versecap/internal/config"
	"github.com/MrWong99/versecap/internal/health"
	"github.com/MrWong99/versecap/internal/observe"
	"github.com/MrWong99/versecap/internal/resilience"
	"github.com/MrWong99/versecap/internal/server"
	"github.com/MrWong99/versecap/internal/transcript"
	"github.com/MrWong99/versecap/internal/transcript/phonetic"
	"github.com/MrWong99/versecap/pkg/scripture"
)

const (
	defaultListenAddr = ":8080"
	shutdownTimeout   = 10 * time.Second

	// Archive backend names, in the order writes try them.
	backendPostgres = "postgres"
	backendFile     = "file"
)

// Archive is the archive backend used by caption streams. *archive.Store
// satisfies it.
type Archive interface {
	transcript.ArchiveSink
	Ping(ctx context.Context) error
}

// App owns all subsystem lifetimes of the caption service.
type App struct {
	cfg      *config.Config
	levelVar *slog.LevelVar
	metrics  *observe.Metrics
	metricsH http.Handler
	listener net.Listener
	watcher  *config.Watcher

	// Subsystems, initialised in New and torn down in Shutdown.
	validator     *scripture.Validator
	canonicalizer atomic.Pointer[caption.Canonicalizer]
	archive       Archive
	fileArchive   *archive.FileStore
	sink          *resilience.FallbackSink[transcript.Caption]
	httpServer    *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithArchive injects an archive instead of connecting to
// archive.postgres_dsn.
func WithArchive(a Archive) Option {
	return func(app *App) { app.archive = a }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics, typically
// [observe.Telemetry.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsH = h }
}

// WithLevelVar lets config reloads change the log level of the logger that
// was built around lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.levelVar = lv }
}

// WithListener serves on l instead of listening on server.listen_addr.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// WithWatcher runs w during [App.Run]. The watcher's callback should call
// [App.Reload].
func WithWatcher(w *config.Watcher) Option {
	return func(a *App) { a.watcher = w }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.levelVar == nil {
		a.levelVar = new(slog.LevelVar)
		a.levelVar.Set(cfg.Server.LogLevel.Level())
	}

	// ── 1. Catalog + canonicalizer ──────────────────────────────────────
	catalog, err := LoadCatalog(ctx, cfg.Canonicalizer.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("app: load catalog: %w", err)
	}
	a.validator = scripture.NewValidator(catalog)
	a.canonicalizer.Store(NewCanonicalizer(cfg.Canonicalizer, a.validator))

	// ── 2. Archive ──────────────────────────────────────────────────────
	if err := a.initArchive(ctx); err != nil {
		return nil, fmt.Errorf("app: init archive: %w", err)
	}

	// ── 3. HTTP server ──────────────────────────────────────────────────
	a.initServer()

	slog.Info("app initialised",
		"books", len(catalog.Books()),
		"numeric", !cfg.Canonicalizer.DisableNumeric,
		"fuzzy_books", cfg.Canonicalizer.FuzzyBooks,
		"archive", a.archive != nil,
		"archive_file", a.cfg.Archive.FallbackPath,
	)
	return a, nil
}

// LoadCatalog returns the catalog from the SQLite bible database at path, or
// the built-in catalog when path is empty.
func LoadCatalog(ctx context.Context, path string) (*scripture.Catalog, error) {
	if path == "" {
		return scripture.DefaultCatalog(), nil
	}
	return scripture.OpenCatalog(ctx, path)
}

// NewCanonicalizer builds a canonicalizer for cfg over the books of v.
func NewCanonicalizer(cfg config.CanonicalizerConfig, v *scripture.Validator) *caption.Canonicalizer {
	opts := []caption.Option{caption.WithValidator(v)}
	if !cfg.DisableNumeric {
		var detectOpts []refdetect.Option
		if cfg.FuzzyBooks {
			matcher := phonetic.New(
				phonetic.WithCatalog(v.Catalog()),
				phonetic.WithPhoneticThreshold(cfg.PhoneticThreshold),
				phonetic.WithFuzzyThreshold(cfg.FuzzyThreshold),
			)
			detectOpts = append(detectOpts, refdetect.WithPhoneticMatcher(matcher))
		}
		opts = append(opts, caption.WithNumericDetector(refdetect.New(v, detectOpts...)))
	}
	return caption.New(opts...)
}

// initArchive connects the PostgreSQL archive and the fallback file when
// configured, and puts a circuit breaker in front of each.
func (a *App) initArchive(ctx context.Context) error {
	if a.archive == nil && a.cfg.Archive.PostgresDSN != "" {
		store, err := archive.NewStore(ctx, a.cfg.Archive.PostgresDSN)
		if err != nil {
			return err
		}
		a.archive = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
	}

	cbCfg := resilience.CircuitBreakerConfig{
		MaxFailures:  a.cfg.Archive.MaxFailures,
		ResetTimeout: a.cfg.Archive.ResetTimeout,
	}
	var group *resilience.FallbackGroup[resilience.CaptionWriter[transcript.Caption]]
	add := func(name string, w resilience.CaptionWriter[transcript.Caption]) {
		if group == nil {
			group = resilience.NewFallbackGroup(w, name, cbCfg)
			return
		}
		group.AddFallback(name, w)
	}
	if a.archive != nil {
		add(backendPostgres, a.archive)
	}
	if path := a.cfg.Archive.FallbackPath; path != "" {
		a.fileArchive = archive.NewFileStore(path)
		add(backendFile, a.fileArchive)
	}
	if group != nil {
		a.sink = resilience.NewFallbackSink(group)
	}
	return nil
}

// initServer assembles the HTTP handler and server.
func (a *App) initServer() {
	checkers := []health.Checker{{
		Name: "catalog",
		Check: func(context.Context) error {
			if len(a.validator.Catalog().Books()) == 0 {
				return errors.New("no books loaded")
			}
			return nil
		},
	}}

	srvOpts := []server.Option{
		server.WithMetrics(a.metrics),
		server.WithCanonicalizerSource(a.Canonicalizer),
	}
	if a.metricsH != nil {
		srvOpts = append(srvOpts, server.WithMetricsHandler(a.metricsH))
	}
	if a.archive != nil {
		checkers = append(checkers, a.archiveChecker("archive", backendPostgres, a.archive.Ping))
	}
	if a.fileArchive != nil {
		checkers = append(checkers, a.archiveChecker("archive_file", backendFile, a.fileArchive.Ping))
	}
	if a.sink != nil {
		srvOpts = append(srvOpts, server.WithStreamOptions(
			transcript.WithArchive(a.sink),
			transcript.WithArchiveQueue(a.cfg.Archive.QueueSize),
		))
	}
	srvOpts = append(srvOpts, server.WithHealth(health.New(checkers...)))

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server.New(nil, srvOpts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// archiveChecker reports an archive backend as unhealthy while its breaker
// is open, and pings it otherwise. Archive checks never fail readiness.
func (a *App) archiveChecker(name, backend string, ping func(context.Context) error) health.Checker {
	cb := a.sink.Group().Breaker(backend)
	return health.Checker{
		Name:     name,
		Optional: true,
		Check: func(ctx context.Context) error {
			if s := cb.State(); s == resilience.StateOpen {
				return fmt.Errorf("circuit %s", s)
			}
			return ping(ctx)
		},
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Canonicalizer returns the canonicalizer new caption streams start with.
func (a *App) Canonicalizer() *caption.Canonicalizer {
	return a.canonicalizer.Load()
}

// Handler returns the HTTP handler of the caption service.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies the hot-reloadable parts of newCfg. Settings that need a
// restart are logged and otherwise ignored. It is meant as the
// [config.Watcher] callback.
func (a *App) Reload(old, newCfg *config.Config) {
	d := config.Diff(old, newCfg)
	if d.LogLevelChanged {
		a.levelVar.Set(d.NewLogLevel.Level())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.CanonicalizerChanged {
		c := newCfg.Canonicalizer
		c.CatalogPath = a.cfg.Canonicalizer.CatalogPath
		a.canonicalizer.Store(NewCanonicalizer(c, a.validator))
		slog.Info("canonicalizer reconfigured; applies to new caption streams",
			"numeric", !c.DisableNumeric,
			"fuzzy_books", c.FuzzyBooks,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart to take effect", "settings", d.RestartRequired)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the caption API and, when configured, watches the config file.
// It blocks until ctx is cancelled, then stops the server gracefully and
// returns nil. A server that fails to start is returned as an error.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.serve()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown", "err", err)
		}
		return nil
	})

	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(gctx)
		})
	}

	slog.Info("app running", "addr", a.addr())
	return g.Wait()
}

func (a *App) serve() error {
	tls := a.cfg.Server.TLS
	switch {
	case a.listener != nil && tls != nil:
		return a.httpServer.ServeTLS(a.listener, tls.CertFile, tls.KeyFile)
	case a.listener != nil:
		return a.httpServer.Serve(a.listener)
	case tls != nil:
		return a.httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
	default:
		return a.httpServer.ListenAndServe()
	}
}

func (a *App) addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.httpServer.Addr
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
