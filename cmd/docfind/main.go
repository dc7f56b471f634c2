// Package main is the docfind CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/docfind/internal/cli"
	"github.com/hyperjump/docfind/internal/config"
	"github.com/hyperjump/docfind/internal/extract"
	"github.com/hyperjump/docfind/internal/indexer"
	"github.com/hyperjump/docfind/internal/models"
	"github.com/hyperjump/docfind/internal/server"
	"github.com/hyperjump/docfind/internal/watcher"
	"github.com/hyperjump/docfind/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/docfind/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence if it exists, so running from the
// project dir picks up the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; the API key can also come from the environment or config.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "remove":
		runRemove()
	case "rebuild", "clear", "sync":
		runMaintenance(command)
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("docfind version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, creates the logger and initializes every component.
// Failures exit the process.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		_ = logger.Sync()
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx := components.Indexer
	if cfg.Watch.EnabledOrDefault() {
		w := watcher.NewWatcher(
			cfg.Storage.PDFDir,
			extract.Supported,
			func(path string) {
				if err := indexChanged(ctx, idx, components.Bundle.Has(path), path); err != nil {
					logger.Warn("watch index file failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if _, err := idx.Remove(ctx, path); err != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		go func() {
			if _, err := idx.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("initial sync failed", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(components.Engine, idx, components.Bundle, cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	if err := components.Bundle.Save(shutdownCtx); err != nil {
		logger.Warn("bundle save failed", zap.Error(err))
	}
}

// indexChanged indexes a new file or replaces the vector of one already mapped.
func indexChanged(ctx context.Context, idx *indexer.Indexer, known bool, path string) error {
	var err error
	if known {
		_, err = idx.Reindex(ctx, path)
	} else {
		_, err = idx.IndexFile(ctx, path)
	}
	return err
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: docfind search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
A document is returned only when it contains at least one query word and its
combined score (semantic similarity blended with keyword overlap) reaches the
threshold.

Examples:
  docfind search quarterly revenue
  docfind search --limit 10 --threshold 0.5 "quarterly revenue"
  docfind search --output json revenue
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "docfind search revenue -limit 3"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchRequest returns the query for the parsed flags. A negative
// threshold means the configured default.
func buildSearchRequest(query string, limit int, threshold float64) *models.SearchQuery {
	q := &models.SearchQuery{Query: query, Limit: limit}
	if threshold >= 0 {
		q.Threshold = &threshold
	}
	return q
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL; falls back to direct access when no server answers (empty = always direct)")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	threshold := fs.Float64("threshold", -1, "minimum combined score in [0, 1] (negative = configured default)")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	query := buildSearchRequest(queryStr, *limit, *threshold)

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, query)
		if err == nil {
			writeOrExit(cli.WriteSearchResults(os.Stdout, response, format))
			return
		}
		if !errors.Is(err, errServerUnreachable) {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	response, err := components.Engine.Search(context.Background(), query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	writeOrExit(cli.WriteSearchResults(os.Stdout, response, format))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL; falls back to direct access when no server answers (empty = always direct)")
	documents := fs.Bool("documents", false, "also list indexed documents (direct mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	if *serverURL != "" && !*documents {
		st, err := statusViaHTTP(*serverURL)
		if err == nil {
			writeOrExit(cli.WriteStatus(os.Stdout, *st, format))
			return
		}
		if !errors.Is(err, errServerUnreachable) {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	writeOrExit(cli.WriteStatus(os.Stdout, components.Bundle.Status(cfg.Storage.DatabasePath), format))
	if *documents {
		fmt.Println()
		writeOrExit(cli.WriteDocuments(os.Stdout, components.Bundle.Documents(), format))
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: docfind index [flags] [file ...]")
		fmt.Fprintln(fs.Output(), "Without files, every new document in the PDF directory is indexed.")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fs.NArg() == 0 {
		res, err := components.Indexer.IndexDirectory(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Indexing directory failed: %v\n", err)
			os.Exit(1)
		}
		writeOrExit(cli.WriteResult(os.Stdout, "index", res, format))
		return
	}

	failed := false
	for _, path := range fs.Args() {
		id, err := components.Indexer.IndexFile(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Indexing %s failed: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("Document indexed: %s (id %d)\n", filepath.Base(path), id)
	}
	if failed {
		os.Exit(1)
	}
}

func runRemove() {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: docfind remove [flags] <file> [file ...]")
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	for _, path := range fs.Args() {
		removed, err := components.Indexer.Remove(context.Background(), path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Removing %s failed: %v\n", path, err)
			os.Exit(1)
		}
		if removed {
			fmt.Printf("Document removed: %s\n", filepath.Base(path))
		} else {
			fmt.Printf("Not indexed: %s\n", filepath.Base(path))
		}
	}
}

func runMaintenance(op string) {
	fs := flag.NewFlagSet(op, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		res *indexer.Result
		err error
	)
	switch op {
	case "rebuild":
		res, err = components.Indexer.RebuildAll(ctx)
	case "sync":
		res, err = components.Indexer.Sync(ctx)
	case "clear":
		err = components.Indexer.Clear(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", op, err)
		os.Exit(1)
	}
	if res == nil {
		fmt.Println("Index cleared")
		return
	}
	writeOrExit(cli.WriteResult(os.Stdout, op, res, format))
}

func writeOrExit(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`docfind - hybrid semantic and keyword search over a PDF directory

Usage:
  docfind server [flags]            Start the HTTP server and watch the PDF directory
  docfind search [flags] <query>    Search documents
  docfind index [flags] [file ...]  Index files, or every new file in the PDF directory
  docfind remove [flags] <file>     Remove a document from the index
  docfind rebuild [flags]           Re-embed every indexed document
  docfind clear [flags]             Drop the index and the document mapping
  docfind sync [flags]              Index new files and drop documents whose files are gone
  docfind status [flags]            Show index status
  docfind version                   Show version
  docfind help                      Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/docfind/config.yaml,
                     or ./config.yaml when present)
  --output string    Output format: text, compact (search only) or json

Server Flags:
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Falls back to direct
                     access when no server answers; empty forces direct access.
  --limit int        Number of results (default from config)
  --threshold float  Minimum combined score (default from config)

Status Flags:
  --server string    Server URL, as for search
  --documents        Also list indexed documents

Environment:
  DOCFIND_EMBEDDING_API_KEY   API key for the openai embedding type (also read from .env)

Examples:
  docfind server
  docfind search quarterly revenue
  docfind search --output json "quarterly revenue"
  docfind index report.pdf
  docfind sync
  docfind status --documents`)
}
