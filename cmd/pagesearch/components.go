package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/pagesearch/internal/config"
	"github.com/hyperjump/pagesearch/internal/corpus"
	"github.com/hyperjump/pagesearch/internal/embedding"
	"github.com/hyperjump/pagesearch/internal/extract"
	"github.com/hyperjump/pagesearch/internal/ingest"
	"github.com/hyperjump/pagesearch/internal/metrics"
	"github.com/hyperjump/pagesearch/internal/models"
	"github.com/hyperjump/pagesearch/internal/search"
	"github.com/hyperjump/pagesearch/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Corpus     *corpus.Corpus
	Gateway    *corpus.Gateway
	Embedder   embedding.Embedder
	Extractor  *extract.MultiExtractor
	Registry   storage.Registry
	Metrics    *metrics.Metrics
	Prometheus *prometheus.Registry
	Pipeline   *ingest.Pipeline
	Engine     *search.Engine
}

// Close releases the embedder, corpus and registry.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Corpus != nil {
		_ = c.Corpus.Close()
	}
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, pipelineOpts ...ingest.Option) (*Components, error) {
	comps := &Components{Extractor: extract.NewMultiExtractor()}

	embedder, err := embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil && cfg.Embedding.Provider != embedding.ProviderHash {
		logger.Warn("embedding model unavailable, falling back to hash embedder",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model_path", cfg.Embedding.ModelPath),
			zap.Error(err))
		embedder, err = embedding.New(embedding.Options{
			Provider:   embedding.ProviderHash,
			Dimensions: cfg.Embedding.Dimensions,
			CacheSize:  cfg.Embedding.CacheSize,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	comps.Embedder = embedder

	comps.Gateway = corpus.NewGateway(cfg.Storage.IndexPath, cfg.Storage.MetadataPath,
		cfg.Storage.IndexType, cfg.Embedding.Dimensions, corpus.WithLogger(logger))
	comps.Corpus, err = comps.Gateway.Load()
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	logger.Info("index loaded",
		zap.String("type", cfg.Storage.IndexType),
		zap.Int("pages", comps.Corpus.Count()),
	)

	if cfg.Storage.RegistryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.RegistryPath), 0755); err != nil {
			comps.Close()
			return nil, fmt.Errorf("failed to create registry directory: %w", err)
		}
		reg, err := storage.NewSQLiteRegistry(cfg.Storage.RegistryPath)
		if err != nil {
			comps.Close()
			return nil, fmt.Errorf("failed to initialize registry: %w", err)
		}
		comps.Registry = reg
	}

	comps.Prometheus = prometheus.NewRegistry()
	comps.Prometheus.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	comps.Metrics = metrics.New(comps.Prometheus)
	comps.Metrics.SetCorpusPages(comps.Corpus.Count())

	opts := []ingest.Option{ingest.WithLogger(logger), ingest.WithMetrics(comps.Metrics)}
	if comps.Registry != nil {
		opts = append(opts, ingest.WithRegistry(comps.Registry))
	}
	opts = append(opts, pipelineOpts...)
	comps.Pipeline = ingest.New(comps.Corpus, comps.Extractor, comps.Embedder, opts...)
	comps.Engine = search.NewEngine(comps.Corpus, comps.Embedder, cfg.Search,
		search.WithLogger(logger), search.WithMetrics(comps.Metrics))
	return comps, nil
}

// reindexDocuments rebuilds the corpus from the documents directory and saves it.
func reindexDocuments(ctx context.Context, comps *Components, cfg *config.Config) (int, []models.IngestResult, error) {
	if err := os.MkdirAll(cfg.Storage.DocumentsDir, 0755); err != nil {
		return 0, nil, err
	}
	docs, err := ingest.Discover(cfg.Storage.DocumentsDir, cfg.Watch.Patterns, cfg.Watch.Exclude)
	if err != nil {
		return 0, nil, err
	}
	total, results, err := comps.Pipeline.ReindexAll(ctx, docs)
	if err != nil {
		return total, results, err
	}
	if err := comps.Gateway.Save(comps.Corpus); err != nil {
		return total, results, err
	}
	return total, results, nil
}

// indexFile ingests path and saves the corpus. A file outside the documents
// directory is copied into it first so its locator can be served.
func indexFile(ctx context.Context, comps *Components, cfg *config.Config, path string) (models.IngestResult, error) {
	if !comps.Extractor.Supports(path) {
		return models.IngestResult{}, fmt.Errorf("%s: %w", path, extract.ErrUnsupported)
	}
	name, dest, err := documentName(cfg.Storage.DocumentsDir, path)
	if err != nil {
		return models.IngestResult{}, err
	}
	if dest != path {
		if err := copyFile(path, dest); err != nil {
			return models.IngestResult{}, fmt.Errorf("copy into documents directory: %w", err)
		}
	}
	res, fresh := comps.Pipeline.IngestIfAbsent(ctx, extract.Document{Name: name, Path: dest})
	switch fresh {
	case ingest.Current:
		return res, nil
	case ingest.Stale:
		// The document was indexed from an older file; its pages must be rebuilt.
		_, results, err := reindexDocuments(ctx, comps, cfg)
		if err != nil {
			return res, err
		}
		res = resultFor(results, name)
	}
	if !res.OK() {
		return res, res.Err
	}
	if err := comps.Gateway.Save(comps.Corpus); err != nil {
		return res, err
	}
	return res, nil
}

// resultFor returns the result for name, or an empty one when the document
// was not part of the run.
func resultFor(results []models.IngestResult, name string) models.IngestResult {
	for _, r := range results {
		if r.Document == name {
			return r
		}
	}
	return models.IngestResult{Document: name}
}

// documentName returns the document name for path and where the file lives
// inside docsDir. Files already under docsDir keep their relative path.
func documentName(docsDir, path string) (name, dest string, err error) {
	absDocs, err := filepath.Abs(docsDir)
	if err != nil {
		return "", "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	if rel, relErr := filepath.Rel(absDocs, absPath); relErr == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(rel), path, nil
	}
	base := filepath.Base(absPath)
	return base, filepath.Join(docsDir, base), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func localStatus(ctx context.Context, comps *Components, cfg *config.Config) (*statusResponse, error) {
	st := cfg.Storage
	onDisk, err := storage.CountFiles(st.DocumentsDir, comps.Extractor.Supports)
	if err != nil {
		return nil, err
	}
	s := &statusResponse{
		DocumentsOnDisk: onDisk,
		Vectors:         comps.Corpus.Count(),
		Records:         comps.Corpus.RecordCount(),
		Config: map[string]interface{}{
			"documents_dir":           st.DocumentsDir,
			"index_path":              st.IndexPath,
			"metadata_path":           st.MetadataPath,
			"index_type":              st.IndexType,
			"embedding_provider":      cfg.Embedding.Provider,
			"embedding_dimensions":    cfg.Embedding.Dimensions,
			"min_threshold":           cfg.Search.MinThresholdOrDefault(),
			"most_relevant_threshold": cfg.Search.MostRelevantThresholdOrDefault(),
			"default_k":               cfg.Search.DefaultK,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(st.IndexPath, st.MetadataPath, st.RegistryPath); err == nil {
		s.DiskUsageBytes = &diskBytes
	}
	if comps.Registry != nil {
		if n, err := comps.Registry.Count(ctx); err == nil {
			s.RegisteredDocuments = &n
		}
		run, err := comps.Registry.LastRun(ctx)
		switch {
		case err == nil:
			s.LastRun = run
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}
	return s, nil
}

func countFailed(results []models.IngestResult) int {
	n := 0
	for _, res := range results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// progress draws a reindex progress bar once the document total is known.
type progress struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

func newProgress(quiet bool) *progress {
	return &progress{quiet: quiet}
}

func (p *progress) option() ingest.Option {
	return ingest.WithProgress(func(done, total int, document string) {
		if p.quiet {
			return
		}
		if p.bar == nil {
			p.bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		_ = p.bar.Set(done)
	})
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Println()
	}
}
