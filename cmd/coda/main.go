// coda - annotation file CLI tool
//
// Usage:
//
//	coda fmt [--version=N] [file]            Re-emit a file in a given format version
//	coda check [--strict] file...            Decode and validate files
//	coda convert --out=DIR [--version=N] file...
//	                                         Re-emit many files into DIR
//	coda stats [--html] [file]               Summarize columns and predicates
//	coda snapshot save NAME [file]           Store a file in the snapshot store
//	coda snapshot list [NAME]                List stored snapshots
//	coda snapshot restore ID [--out=FILE]    Write a stored snapshot back out
//	coda version                             Print version info
//
// Every command accepts --config=FILE (YAML or TOML) and --predicates=FILE,
// a definitions listing used to resolve predicates in legacy files.
//
// If no file is given, reads from stdin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/coda/coda"
	"github.com/Neumenon/coda/internal/config"
	"github.com/Neumenon/coda/internal/report"
	"github.com/Neumenon/coda/store"
)

const toolVersion = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the streams and settings shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *slog.Logger
	preds  []*coda.VocabElement
}

// options holds the flags recognised on the command line.
type options struct {
	configPath string
	predicates string
	version    int
	out        string
	strict     bool
	html       bool
	args       []string
}

func parseOptions(args []string) (*options, error) {
	o := &options{}
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--config="):
			o.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--predicates="):
			o.predicates = strings.TrimPrefix(arg, "--predicates=")
		case strings.HasPrefix(arg, "--version="):
			n, err := parseIntArg(arg, "--version=")
			if err != nil || n < 1 || n > 4 {
				return nil, fmt.Errorf("invalid %s: want 1 to 4", arg)
			}
			o.version = n
		case strings.HasPrefix(arg, "--out="):
			o.out = strings.TrimPrefix(arg, "--out=")
		case arg == "--strict":
			o.strict = true
		case arg == "--html":
			o.html = true
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			o.args = append(o.args, arg)
		default:
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}
	return o, nil
}

// parseIntArg extracts an integer from a flag like "--version=2"
func parseIntArg(arg, prefix string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(arg, prefix))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	cmd := args[0]
	switch cmd {
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "coda %s (formats legacy, #2, #3, #4)\n", toolVersion)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}

	opts, err := parseOptions(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "coda: %v\n", err)
		return 1
	}

	a, err := newApp(opts, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "coda: %v\n", err)
		return 1
	}

	switch cmd {
	case "fmt":
		err = a.cmdFmt(ctx, opts)
	case "check":
		err = a.cmdCheck(ctx, opts)
	case "convert":
		err = a.cmdConvert(ctx, opts)
	case "stats":
		err = a.cmdStats(ctx, opts)
	case "snapshot":
		err = a.cmdSnapshot(ctx, opts)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "coda: %v\n", err)
		}
		return 1
	}
	return 0
}

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failures reported")

func newApp(opts *options, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if opts.version == 0 {
		opts.version = cfg.Encode.Version
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format, stderr)
	slog.SetDefault(logger)

	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: logger,
	}

	predPath := opts.predicates
	if predPath == "" {
		predPath = cfg.Decode.Predicates
	}
	if predPath != "" {
		f, err := os.Open(predPath)
		if err != nil {
			return nil, fmt.Errorf("open predicates: %w", err)
		}
		defer f.Close()
		if a.preds, err = coda.ParseDefinitions(f); err != nil {
			return nil, fmt.Errorf("%s: %w", predPath, err)
		}
	}
	return a, nil
}

func setupLogger(level, format string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) decodeOptions(name string) coda.DecodeOptions {
	return coda.DecodeOptions{
		Name:       name,
		Predicates: a.preds,
		Logger:     a.logger,
	}
}

// readInput decodes the named file, or stdin when name is empty or "-".
func (a *app) readInput(ctx context.Context, name string) (*coda.Database, error) {
	if name == "" || name == "-" {
		return coda.Decode(ctx, a.stdin, a.decodeOptions("stdin"))
	}
	return coda.ReadFile(ctx, name, a.decodeOptions(""))
}

func singleInput(opts *options) (string, error) {
	switch len(opts.args) {
	case 0:
		return "", nil
	case 1:
		return opts.args[0], nil
	default:
		return "", fmt.Errorf("expected at most one file, got %d", len(opts.args))
	}
}

// ============================================================
// fmt, stats
// ============================================================

func (a *app) cmdFmt(ctx context.Context, opts *options) error {
	name, err := singleInput(opts)
	if err != nil {
		return err
	}
	db, err := a.readInput(ctx, name)
	if err != nil {
		return err
	}
	return coda.Encode(a.stdout, db, coda.EncodeOptions{Version: coda.Version(opts.version)})
}

func (a *app) cmdStats(ctx context.Context, opts *options) error {
	name, err := singleInput(opts)
	if err != nil {
		return err
	}
	db, err := a.readInput(ctx, name)
	if err != nil {
		return err
	}

	s := report.Summarize(db)
	if !opts.html {
		_, err = io.WriteString(a.stdout, report.Markdown(s))
		return err
	}
	html, err := report.HTML(s)
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.stdout, html)
	return err
}

// ============================================================
// check, convert
// ============================================================

type checkResult struct {
	path   string
	err    error
	result *coda.ValidationResult
}

func (a *app) cmdCheck(ctx context.Context, opts *options) error {
	if len(opts.args) == 0 {
		return errors.New("check: no files given")
	}

	results := make([]checkResult, len(opts.args))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for i, path := range opts.args {
		g.Go(func() error {
			results[i].path = path
			db, err := coda.ReadFile(ctx, path, a.decodeOptions(""))
			if err != nil {
				results[i].err = err
				return nil
			}
			v := coda.NewValidator()
			if opts.strict {
				v = coda.NewStrictValidator()
			}
			results[i].result = v.Validate(db)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	failed := 0
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			red.Fprintf(a.stdout, "FAIL %s: %v\n", r.path, r.err)
		case !r.result.Valid:
			failed++
			red.Fprintf(a.stdout, "FAIL %s\n", r.path)
			for _, e := range r.result.Errors {
				fmt.Fprintf(a.stdout, "  error %s [%s]\n", e.Error(), e.Code)
			}
		default:
			green.Fprintf(a.stdout, "ok   %s\n", r.path)
		}
		if r.result != nil {
			for _, w := range r.result.Warnings {
				yellow.Fprintf(a.stdout, "  warning %s [%s]\n", w.Error(), w.Code)
			}
		}
	}

	if failed > 0 {
		fmt.Fprintf(a.stdout, "%d of %d files failed\n", failed, len(results))
		return errReported
	}
	return nil
}

func (a *app) cmdConvert(ctx context.Context, opts *options) error {
	if opts.out == "" {
		return errors.New("convert: --out=DIR is required")
	}
	if len(opts.args) == 0 {
		return errors.New("convert: no files given")
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	encOpts := coda.EncodeOptions{Version: coda.Version(opts.version)}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for _, path := range opts.args {
		g.Go(func() error {
			db, err := coda.ReadFile(ctx, path, a.decodeOptions(""))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			dst := filepath.Join(opts.out, filepath.Base(path))
			if err := coda.WriteFile(ctx, dst, db, encOpts); err != nil {
				return fmt.Errorf("%s: %w", dst, err)
			}
			a.logger.Info("converted", "src", path, "dst", dst, "version", encOpts.Version.String())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(a.stdout, "converted %d files into %s\n", len(opts.args), opts.out)
	return nil
}

// ============================================================
// snapshot
// ============================================================

func (a *app) cmdSnapshot(ctx context.Context, opts *options) error {
	if len(opts.args) == 0 {
		return errors.New("snapshot: missing subcommand (save, list, restore)")
	}
	sub, rest := opts.args[0], opts.args[1:]

	s, err := store.Open(ctx, store.Config{Driver: a.cfg.Store.Driver, Path: a.cfg.Store.Path})
	if err != nil {
		return err
	}
	defer s.Close()

	switch sub {
	case "save":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("snapshot save: usage: snapshot save NAME [file]")
		}
		input := ""
		if len(rest) == 2 {
			input = rest[1]
		}
		db, err := a.readInput(ctx, input)
		if err != nil {
			return err
		}
		snap, err := s.Save(ctx, rest[0], db)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, snap.ID)
		return nil

	case "list":
		name := ""
		if len(rest) > 0 {
			name = rest[0]
		}
		snaps, err := s.List(ctx, name)
		if err != nil {
			return err
		}
		cyan := color.New(color.FgCyan)
		for _, snap := range snaps {
			cyan.Fprint(a.stdout, snap.ID)
			fmt.Fprintf(a.stdout, "  %s  %s  %d columns  %d cells  %s\n",
				snap.Name, snap.Format, snap.Columns, snap.Cells, snap.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil

	case "restore":
		if len(rest) != 1 {
			return errors.New("snapshot restore: usage: snapshot restore ID [--out=FILE]")
		}
		db, err := s.Load(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", rest[0], err)
		}
		encOpts := coda.EncodeOptions{Version: coda.Version(opts.version)}
		if opts.out != "" {
			return coda.WriteFile(ctx, opts.out, db, encOpts)
		}
		return coda.Encode(a.stdout, db, encOpts)

	default:
		return fmt.Errorf("snapshot: unknown subcommand: %s", sub)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `coda - annotation file CLI tool

Usage:
  coda fmt [--version=N] [file]               Re-emit a file (default format #2)
  coda check [--strict] file...               Decode and validate files
  coda convert --out=DIR [--version=N] file...
                                              Re-emit many files into DIR
  coda stats [--html] [file]                  Summarize columns and predicates
  coda snapshot save NAME [file]              Store a file in the snapshot store
  coda snapshot list [NAME]                   List stored snapshots
  coda snapshot restore ID [--out=FILE]       Write a stored snapshot back out
  coda version                                Print version info

Options:
  --config=FILE       YAML or TOML settings (logging, encode, decode, store, workers)
  --predicates=FILE   Definitions used to resolve predicates in legacy files
  --version=N         Output format: 1 (legacy), 2, 3 (visibility), 4 (comments)

If no file is given, reads from stdin.

Examples:
  coda fmt --version=4 session.txt > session4.txt
  coda check data/*.txt
  coda convert --out=v2 --predicates=legacy.defs old/*.txt
  coda stats --html session.txt > session.html
`)
}
