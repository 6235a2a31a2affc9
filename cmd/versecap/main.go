// Command versecap canonicalizes scripture references in sermon captions.
//
// It runs as a caption service (serve) or as a one-shot tool over text
// (format) and caption files (render), and prints archived captions (archive).
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/MrWong99/versecap/internal/app"
	"github.com/MrWong99/versecap/internal/archive"
	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/captionio"
	"github.com/MrWong99/versecap/internal/config"
	"github.com/MrWong99/versecap/internal/observe"
	"github.com/MrWong99/versecap/pkg/scripture"
)

var version = "dev"

// CLI defines the command-line interface for versecap.
type CLI struct {
	LogLevel config.LogLevel `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level for one-shot commands."`

	Format  FormatCmd  `cmd:"" help:"Canonicalize scripture references in one finalized segment."`
	Render  RenderCmd  `cmd:"" help:"Render a caption file through the cross-segment canonicalizer."`
	Serve   ServeCmd   `cmd:"" help:"Run the caption service."`
	Books   BooksCmd   `cmd:"" help:"List the books of the catalog."`
	Archive ArchiveCmd `cmd:"" help:"Print the archived captions of a stream."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// CanonicalizerFlags are shared by the one-shot commands.
type CanonicalizerFlags struct {
	Catalog    string `type:"existingfile" help:"SQLite bible database to load books from."`
	NoNumeric  bool   `name:"no-numeric" help:"Do not canonicalize digit references such as 'Rom 5:8'."`
	FuzzyBooks bool   `name:"fuzzy-books" help:"Resolve misspelled book names before chapter:verse."`
}

func (f CanonicalizerFlags) canonicalizer(ctx context.Context) (*caption.Canonicalizer, error) {
	catalog, err := app.LoadCatalog(ctx, f.Catalog)
	if err != nil {
		return nil, err
	}
	cfg := config.CanonicalizerConfig{
		DisableNumeric: f.NoNumeric,
		FuzzyBooks:     f.FuzzyBooks,
		CatalogPath:    f.Catalog,
	}
	return app.NewCanonicalizer(cfg, scripture.NewValidator(catalog)), nil
}

// ─── format ──────────────────────────────────────────────────────────────────

// FormatCmd canonicalizes its arguments joined by spaces.
type FormatCmd struct {
	CanonicalizerFlags

	Text []string `arg:"" help:"Segment text."`
}

func (c *FormatCmd) Run(ctx context.Context, out io.Writer) error {
	canon, err := c.canonicalizer(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, canon.Format(strings.Join(c.Text, " ")))
	return err
}

// ─── render ──────────────────────────────────────────────────────────────────

// RenderCmd renders a JSONL or WebVTT caption file.
type RenderCmd struct {
	CanonicalizerFlags

	File      string `arg:"" optional:"" type:"existingfile" help:"Caption file. Reads stdin when omitted."`
	InFormat  string `name:"in-format" default:"jsonl" enum:"jsonl,vtt" help:"Input format (jsonl, vtt)."`
	OutFormat string `name:"out-format" default:"text" enum:"jsonl,text" help:"Output format (jsonl, text)."`
}

func (c *RenderCmd) Run(ctx context.Context, out io.Writer) error {
	var in io.Reader = os.Stdin
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var (
		segs []caption.Segment
		err  error
	)
	switch c.InFormat {
	case "vtt":
		segs, err = captionio.ReadWebVTT(in)
	default:
		segs, err = captionio.ReadJSONL(in)
	}
	if err != nil {
		return err
	}

	canon, err := c.canonicalizer(ctx)
	if err != nil {
		return err
	}
	rendered := caption.RenderSegments(canon, segs)

	if c.OutFormat == "jsonl" {
		return captionio.WriteJSONL(out, rendered)
	}
	return captionio.WriteText(out, rendered)
}

// ─── books ───────────────────────────────────────────────────────────────────

// BooksCmd prints the catalog as a table.
type BooksCmd struct {
	Catalog string `type:"existingfile" help:"SQLite bible database to load books from."`
}

func (c *BooksCmd) Run(ctx context.Context, out io.Writer) error {
	catalog, err := app.LoadCatalog(ctx, c.Catalog)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tABBR\tTESTAMENT\tCHAPTERS")
	for _, b := range catalog.Books() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", b.ID, b.Name, b.Abbreviation, b.Testament, b.Chapters)
	}
	return tw.Flush()
}

// ─── archive ─────────────────────────────────────────────────────────────────

// ArchiveCmd prints archived captions from the database or a fallback file.
type ArchiveCmd struct {
	Stream string `arg:"" help:"Stream id to print."`
	File   string `xor:"source" type:"existingfile" help:"Fallback JSON lines archive to read."`
	DSN    string `xor:"source" name:"dsn" help:"PostgreSQL archive to read."`
	Limit  int    `default:"50" help:"Print at most this many of the most recent captions; 0 prints all."`
}

func (c *ArchiveCmd) Run(ctx context.Context, out io.Writer) error {
	var (
		recs []archive.Record
		err  error
	)
	switch {
	case c.File != "":
		recs, err = archive.NewFileStore(c.File).Records(c.Stream)
		if c.Limit > 0 && len(recs) > c.Limit {
			recs = recs[len(recs)-c.Limit:]
		}
	case c.DSN != "":
		var store *archive.Store
		store, err = archive.NewStore(ctx, c.DSN)
		if err != nil {
			return err
		}
		defer store.Close()
		recs, err = store.Recent(ctx, c.Stream, c.Limit)
	default:
		return errors.New("one of --file or --dsn is required")
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEGMENT\tTIME\tREWRITES\tTEXT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.SegmentID, r.CreatedAt.Format(time.RFC3339), len(r.Rewrites), r.Text)
	}
	return tw.Flush()
}

// ─── version ─────────────────────────────────────────────────────────────────

// VersionCmd prints the build version.
type VersionCmd struct{}

func (VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintf(out, "versecap %s\n", version)
	return err
}

// ─── serve ───────────────────────────────────────────────────────────────────

// ServeCmd runs the caption service until SIGINT or SIGTERM.
type ServeCmd struct {
	Config         string        `short:"c" default:"versecap.yaml" type:"path" help:"Path to the YAML configuration file."`
	ReloadInterval time.Duration `name:"reload-interval" default:"5s" help:"How often to poll the configuration file."`
}

func (c *ServeCmd) Run(ctx context.Context) error {
	var application *app.App
	watcher, err := config.NewWatcher(c.Config, func(old, new *config.Config) {
		application.Reload(old, new)
	}, config.WithInterval(c.ReloadInterval))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %q not found", c.Config)
		}
		return err
	}
	cfg := watcher.Current()

	// ── Logger ──────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("versecap starting",
		"version", version,
		"config", c.Config,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ───────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cmp.Or(cfg.Telemetry.ServiceVersion, version),
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	application, err = app.New(ctx, cfg,
		app.WithMetrics(tel.Metrics),
		app.WithMetricsHandler(tel.Handler),
		app.WithLevelVar(level),
		app.WithWatcher(watcher),
	)
	if err != nil {
		return err
	}

	runErr := application.Run(ctx)

	// ── Graceful shutdown ───────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")
	err = errors.Join(runErr, application.Shutdown(shutdownCtx), tel.Shutdown(shutdownCtx))
	if err == nil {
		slog.Info("goodbye")
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("versecap"),
		kong.Description("Scripture reference canonicalizer for live sermon captions."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
	)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cli.LogLevel.Level()})))

	kctx.FatalIfErrorf(kctx.Run())
}
