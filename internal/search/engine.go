// Package search answers natural-language queries against the page corpus.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/pagesearch/internal/config"
	"github.com/hyperjump/pagesearch/internal/corpus"
	"github.com/hyperjump/pagesearch/internal/embedding"
	"github.com/hyperjump/pagesearch/internal/metrics"
	"github.com/hyperjump/pagesearch/internal/models"
	"github.com/hyperjump/pagesearch/internal/vector"
	"github.com/hyperjump/pagesearch/pkg/utils"
	"go.uber.org/zap"
)

// Engine embeds a query and returns the nearest pages.
type Engine struct {
	corpus       *corpus.Corpus
	embedder     embedding.Embedder
	consolidator *Consolidator
	config       config.SearchConfig
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the collectors updated per query.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a search engine over c.
func NewEngine(c *corpus.Corpus, embedder embedding.Embedder, cfg config.SearchConfig, opts ...EngineOption) *Engine {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 10
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = 200
	}
	e := &Engine{
		corpus:   c,
		embedder: embedder,
		consolidator: &Consolidator{
			MinThreshold:          cfg.MinThresholdOrDefault(),
			MostRelevantThreshold: cfg.MostRelevantThresholdOrDefault(),
		},
		config: cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Search returns up to k pages nearest to text, closest first. k <= 0 means the
// configured default; k is capped at the corpus size. An empty corpus returns
// no hits without calling the embedder.
func (e *Engine) Search(ctx context.Context, text string, k int) ([]models.RawHit, error) {
	count := e.corpus.Count()
	if count == 0 {
		return []models.RawHit{}, nil
	}
	if k <= 0 {
		k = e.config.DefaultK
	}
	k = min(k, count)

	query, err := embedding.EmbedOne(ctx, e.embedder, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := e.corpus.Search(ctx, query, k)
	if errors.Is(err, vector.ErrEmptyIndex) {
		// Emptied by a concurrent reindex.
		return []models.RawHit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]models.RawHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, models.RawHit{
			Document: m.Record.Document,
			Page:     m.Record.Page,
			Distance: m.Distance,
			Preview:  utils.Preview(utils.CollapseSpace(m.Record.Text), e.config.PreviewLength),
			Locator:  Locator(m.Record.Document, m.Record.Page),
		})
	}
	return hits, nil
}

// Query validates q, searches, and consolidates the hits into page ranges.
func (e *Engine) Query(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(e.config.MaxK); err != nil {
		return nil, err
	}

	hits, err := e.Search(ctx, q.Query, q.K)
	if err != nil {
		e.metrics.ObserveSearch("error", time.Since(start))
		return nil, err
	}
	results := e.consolidator.Consolidate(hits)

	outcome := "ok"
	if len(results) == 0 {
		outcome = "empty"
	}
	elapsed := time.Since(start)
	e.metrics.ObserveSearch(outcome, elapsed)
	e.logger.Debug("search",
		zap.String("query", utils.Truncate(q.Query, 80)),
		zap.Int("hits", len(hits)),
		zap.Int("documents", len(results)),
		zap.Duration("elapsed", elapsed),
	)

	return &models.SearchResponse{
		Query:          q.Query,
		TotalHits:      len(hits),
		Results:        results,
		DocumentScores: DocumentScores(results),
		QueryTime:      elapsed.Milliseconds(),
	}, nil
}

// Locator returns the URL path that opens document at page. Each path segment
// of the document name is escaped separately.
func Locator(document string, page int) string {
	segments := strings.Split(document, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/documents/" + strings.Join(segments, "/") + "#page=" + strconv.Itoa(page)
}
