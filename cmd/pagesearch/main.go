// Package main is the pagesearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/pagesearch/internal/cli"
	"github.com/hyperjump/pagesearch/internal/config"
	"github.com/hyperjump/pagesearch/internal/models"
	"github.com/hyperjump/pagesearch/internal/server"
	"github.com/hyperjump/pagesearch/internal/vector"
	"github.com/hyperjump/pagesearch/internal/watcher"
	"github.com/hyperjump/pagesearch/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/pagesearch/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory takes precedence, and if neither exists the built-in defaults are
// used. Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "reindex":
		runReindex()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("pagesearch version %s (faiss: %t)\n", version, vector.IsFAISSAvailable())
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and builds a logger. It exits on failure.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debug := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if resolved == "" {
		resolved = "(defaults)"
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	skipInitial := fs.Bool("skip-initial-index", false, "serve the persisted index without re-indexing the documents directory")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !*skipInitial {
		total, results, err := reindexDocuments(ctx, comps, cfg)
		if err != nil {
			logger.Fatal("Initial index failed", zap.Error(err))
		}
		logger.Info("initial index complete",
			zap.Int("documents", len(results)),
			zap.Int("pages", total),
			zap.Int("failed", countFailed(results)),
		)
	}

	if cfg.Watch.EnabledOrDefault() {
		syncer := watcher.NewSyncer(comps.Pipeline, comps.Gateway, cfg.Storage.DocumentsDir, cfg.Watch.Patterns, cfg.Watch.Exclude, logger)
		w := watcher.NewWatcher(cfg.Storage.DocumentsDir, syncer,
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(server.Dependencies{
		Engine:   comps.Engine,
		Pipeline: comps.Pipeline,
		Gateway:  comps.Gateway,
		Formats:  comps.Extractor,
		Registry: comps.Registry,
		Gatherer: comps.Prometheus,
	}, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if err := comps.Gateway.Save(comps.Corpus); err != nil {
		logger.Warn("final index save failed", zap.Error(err))
	}
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	quiet := fs.Bool("quiet", false, "hide the progress bar")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	bar := newProgress(*quiet)
	comps, err := initializeComponents(cfg, logger, bar.option())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	fmt.Printf("Scanning %s...\n", cfg.Storage.DocumentsDir)
	total, results, err := reindexDocuments(context.Background(), comps, cfg)
	bar.finish()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reindex: %v\n", err)
		os.Exit(1)
	}
	failed := countFailed(results)
	fmt.Printf("Indexed %d pages from %d documents (%d failed)\n", total, len(results)-failed, failed)
	for _, res := range results {
		if !res.OK() {
			fmt.Printf("  %s: %v\n", res.Document, res.Err)
		}
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: pagesearch index [flags] <file>")
		os.Exit(1)
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	res, err := indexFile(context.Background(), comps, cfg, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to index: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %s (%d pages)\n", res.Document, res.Pages)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: pagesearch search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results are grouped per document into runs of consecutive pages, each marked
"most relevant" or "maybe".

Examples:
  pagesearch search solar panel efficiency
  pagesearch search -k 25 "grid storage"
  pagesearch search --server "" --output json battery chemistry   # no server running
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves flags that appear after the query to the front so
// flag.Parse sees them; the flag package stops at the first non-flag argument.
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = search the persisted index directly)")
	k := fs.Int("k", 0, "number of nearest pages to retrieve (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SearchQuery{Query: queryStr, K: *k}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		comps, initErr := initializeComponents(cfg, logger)
		if initErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", initErr)
			os.Exit(1)
		}
		defer comps.Close()
		if err = query.Validate(cfg.Search.MaxK); err == nil {
			response, err = comps.Engine.Query(context.Background(), query)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	DocumentsOnDisk     int                    `json:"documents_on_disk"`
	Vectors             int                    `json:"vectors"`
	Records             int                    `json:"records"`
	DiskUsageBytes      *int64                 `json:"disk_usage_bytes,omitempty"`
	RegisteredDocuments *int64                 `json:"registered_documents,omitempty"`
	LastRun             *models.RunSummary     `json:"last_run,omitempty"`
	Config              map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the persisted index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *statusResponse
	var err error
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		comps, initErr := initializeComponents(cfg, logger)
		if initErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", initErr)
			os.Exit(1)
		}
		defer comps.Close()
		status, err = localStatus(context.Background(), comps, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	u, err := url.JoinPath(serverURL, "/api/v1/status")
	if err != nil {
		return nil, err
	}
	resp, err := http.Get(u)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func writeStatusText(w io.Writer, s *statusResponse) {
	fmt.Fprintf(w, "documents_on_disk:  %d   # files in the documents directory\n", s.DocumentsOnDisk)
	fmt.Fprintf(w, "vectors:            %d   # pages in the vector index\n", s.Vectors)
	fmt.Fprintf(w, "records:            %d   # pages in the metadata store\n", s.Records)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", *s.DiskUsageBytes)
	}
	if s.RegisteredDocuments != nil {
		fmt.Fprintf(w, "registered:         %d   # documents in the registry\n", *s.RegisteredDocuments)
	}
	if s.LastRun != nil {
		fmt.Fprintf(w, "last_run:           %s (%d documents, %d pages, %d failed)\n",
			s.LastRun.StartedAt.Format(time.RFC3339), s.LastRun.Documents, s.LastRun.Pages, s.LastRun.Failed)
	}
	if len(s.Config) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	keys := make([]string, 0, len(s.Config))
	for k := range s.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-24s %v\n", k+":", s.Config[k])
	}
}

func printUsage() {
	fmt.Println(`pagesearch - semantic page search over a directory of documents

Usage:
  pagesearch server [flags]           Index the documents directory and start the HTTP server
  pagesearch reindex [flags]          Rebuild the index from the documents directory
  pagesearch index [flags] <file>     Add one document to the index
  pagesearch search [flags] <query>   Search pages
  pagesearch status [flags]           Show index and storage status
  pagesearch version                  Show version
  pagesearch help                     Show this help

Server Flags:
  --config string         Config file path (default: /usr/local/etc/pagesearch/config.yaml)
  --debug                 Enable debug logging
  --skip-initial-index    Serve the persisted index without re-indexing at startup

Reindex Flags:
  --config string    Config file path
  --quiet            Hide the progress bar

Search Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to search the persisted index directly.
  -k int             Number of nearest pages (default from config)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Environment:
  PAGESEARCH_DOCUMENTS_DIR, PAGESEARCH_PORT, PAGESEARCH_DIMENSIONS, PAGESEARCH_MIN_THRESHOLD,
  PAGESEARCH_MOST_RELEVANT_THRESHOLD and others override the config file. A .env file in the
  working directory is loaded first.

Examples:
  pagesearch server
  pagesearch reindex
  pagesearch index ./reports/q3.pdf
  pagesearch search "renewable energy subsidies"
  pagesearch search --output json -k 20 heat pumps
  pagesearch status --output json`)
}
