// Package ingest turns documents into aligned vector and metadata entries.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/pagesearch/internal/corpus"
	"github.com/hyperjump/pagesearch/internal/embedding"
	"github.com/hyperjump/pagesearch/internal/extract"
	"github.com/hyperjump/pagesearch/internal/metrics"
	"github.com/hyperjump/pagesearch/internal/models"
	"github.com/hyperjump/pagesearch/internal/storage"
	"github.com/hyperjump/pagesearch/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrExtraction marks a document whose pages could not be read.
	ErrExtraction = errors.New("extraction failed")
	// ErrEmbedding marks a document whose pages could not be embedded.
	ErrEmbedding = errors.New("embedding failed")
)

// Freshness says how IngestIfAbsent found a document.
type Freshness int

const (
	// Added means the document had no pages and was ingested.
	Added Freshness = iota
	// Current means the indexed pages were read from the file as it is now.
	Current
	// Stale means the indexed pages come from another version of the file.
	// Only a full re-index can replace them.
	Stale
)

func (f Freshness) String() string {
	switch f {
	case Added:
		return "added"
	case Current:
		return "current"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("Freshness(%d)", int(f))
}

// fileStamp identifies the version of a file that pages were read from.
type fileStamp struct {
	size    int64
	modTime time.Time
}

func stampOf(path string) (fileStamp, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{size: info.Size(), modTime: info.ModTime()}, true
}

// ProgressFunc is called after each document of a re-index.
type ProgressFunc func(done, total int, document string)

// Pipeline extracts, embeds and appends documents to a corpus.
// IngestDocument and ReindexAll are serialised against each other.
type Pipeline struct {
	corpus    *corpus.Corpus
	extractor extract.Extractor
	embedder  embedding.Embedder
	registry  storage.Registry
	metrics   *metrics.Metrics
	progress  ProgressFunc
	logger    *zap.Logger
	// sources holds the file version each ingested document was read from. Guarded by mu.
	sources map[string]fileStamp
	mu      sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRegistry records every document outcome in reg.
func WithRegistry(reg storage.Registry) Option {
	return func(p *Pipeline) { p.registry = reg }
}

// WithMetrics sets the collectors updated on each document.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithProgress sets a callback for re-index progress.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New returns a pipeline writing into c.
func New(c *corpus.Corpus, extractor extract.Extractor, embedder embedding.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{corpus: c, extractor: extractor, embedder: embedder, sources: make(map[string]fileStamp)}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// Corpus returns the live corpus.
func (p *Pipeline) Corpus() *corpus.Corpus {
	return p.corpus
}

// IngestDocument appends the non-blank pages of doc to the live corpus.
// Failures are reported in the result and leave the corpus unchanged.
func (p *Pipeline) IngestDocument(ctx context.Context, doc extract.Document) models.IngestResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ingestLocked(ctx, doc)
}

// IngestIfAbsent ingests doc unless the corpus already has pages for it. The
// check and the append happen under the pipeline lock, so concurrent callers
// never index the same document twice. When pages exist, the result reports
// their count and the Freshness tells whether they match the file on disk.
func (p *Pipeline) IngestIfAbsent(ctx context.Context, doc extract.Document) (models.IngestResult, Freshness) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pages := p.corpus.DocumentPages(doc.Name)
	if pages == 0 {
		return p.ingestLocked(ctx, doc), Added
	}
	res := models.IngestResult{Document: doc.Name, Pages: pages}
	known, ok := p.sources[doc.Name]
	if now, exists := stampOf(doc.Path); ok && exists && now == known {
		return res, Current
	}
	return res, Stale
}

func (p *Pipeline) ingestLocked(ctx context.Context, doc extract.Document) models.IngestResult {
	stamp, stamped := stampOf(doc.Path)
	res := p.ingestInto(ctx, p.corpus, doc)
	if res.OK() && stamped {
		p.sources[doc.Name] = stamp
	}
	p.record(ctx, res, "")
	p.metrics.SetCorpusPages(p.corpus.Count())
	return res
}

// ReindexAll rebuilds the corpus from docs. The new corpus is built off to the
// side and swapped in at the end, so searches see either the old or the new
// state. Per-document failures are isolated. It returns the number of pages
// indexed and every document's result. The live corpus is kept if ctx is
// cancelled before the swap.
func (p *Pipeline) ReindexAll(ctx context.Context, docs []extract.Document) (int, []models.IngestResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	staging, err := p.corpus.NewStaging()
	if err != nil {
		return 0, nil, fmt.Errorf("create staging corpus: %w", err)
	}

	runID := p.startRun(ctx)
	p.logger.Info("reindex started", zap.Int("documents", len(docs)), zap.String("run_id", runID))

	total, failed := 0, 0
	results := make([]models.IngestResult, 0, len(docs))
	sources := make(map[string]fileStamp, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			staging.Close()
			return 0, results, err
		}
		stamp, stamped := stampOf(doc.Path)
		res := p.ingestInto(ctx, staging, doc)
		results = append(results, res)
		total += res.Pages
		if !res.OK() {
			failed++
		} else if stamped {
			sources[doc.Name] = stamp
		}
		if p.progress != nil {
			p.progress(i+1, len(docs), doc.Name)
		}
	}
	if err := ctx.Err(); err != nil {
		staging.Close()
		return 0, results, err
	}

	if err := p.corpus.Swap(staging); err != nil {
		return 0, results, fmt.Errorf("swap corpus: %w", err)
	}
	p.sources = sources

	if p.registry != nil {
		if err := p.registry.Reset(ctx); err != nil {
			p.logger.Warn("failed to reset registry", zap.Error(err))
		}
	}
	for _, res := range results {
		p.record(ctx, res, runID)
	}
	p.finishRun(ctx, runID, len(docs), total, failed)
	p.metrics.ObserveReindex()
	p.metrics.SetCorpusPages(p.corpus.Count())

	p.logger.Info("reindex finished",
		zap.Int("documents", len(docs)),
		zap.Int("pages", total),
		zap.Int("failed", failed),
	)
	return total, results, nil
}

// ingestInto runs extract, filter, embed and append for one document against target.
func (p *Pipeline) ingestInto(ctx context.Context, target *corpus.Corpus, doc extract.Document) models.IngestResult {
	start := time.Now()
	res := models.IngestResult{Document: doc.Name}

	entries, texts, err := p.readPages(ctx, doc)
	if err != nil {
		p.logger.Warn("failed to extract document", zap.String("document", doc.Name), zap.Error(err))
		res.Err = fmt.Errorf("%w: %s: %w", ErrExtraction, doc.Name, err)
		p.observe(res, start)
		return res
	}
	if len(entries) == 0 {
		p.logger.Debug("document has no text pages", zap.String("document", doc.Name))
		p.observe(res, start)
		return res
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("got %d vectors for %d pages", len(vectors), len(texts))
	}
	if err != nil {
		p.logger.Warn("failed to embed document", zap.String("document", doc.Name), zap.Error(err))
		res.Err = fmt.Errorf("%w: %s: %w", ErrEmbedding, doc.Name, err)
		p.observe(res, start)
		return res
	}
	for i := range entries {
		entries[i].Vector = vectors[i]
	}

	if err := target.Append(ctx, entries); err != nil {
		p.logger.Warn("failed to index document", zap.String("document", doc.Name), zap.Error(err))
		res.Err = fmt.Errorf("index %s: %w", doc.Name, err)
		p.observe(res, start)
		return res
	}

	res.Pages = len(entries)
	p.logger.Debug("document indexed", zap.String("document", doc.Name), zap.Int("pages", res.Pages))
	p.observe(res, start)
	return res
}

// readPages collects the non-blank pages of doc as extracted. Any page error fails the document.
func (p *Pipeline) readPages(ctx context.Context, doc extract.Document) ([]corpus.Entry, []string, error) {
	seq, err := p.extractor.Pages(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	var entries []corpus.Entry
	var texts []string
	for page, err := range seq {
		if err != nil {
			return nil, nil, err
		}
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		entries = append(entries, corpus.Entry{
			Record: models.PageRecord{Document: doc.Name, Page: page.Number, Text: page.Text},
		})
		texts = append(texts, page.Text)
	}
	return entries, texts, nil
}

func (p *Pipeline) observe(res models.IngestResult, start time.Time) {
	p.metrics.ObserveIngest(models.StatusFromResult(res, "").Status, res.Pages, time.Since(start))
}

func (p *Pipeline) record(ctx context.Context, res models.IngestResult, runID string) {
	if p.registry == nil {
		return
	}
	if err := p.registry.Record(ctx, models.StatusFromResult(res, runID)); err != nil {
		p.logger.Warn("failed to record document", zap.String("document", res.Document), zap.Error(err))
	}
}

func (p *Pipeline) startRun(ctx context.Context) string {
	if p.registry == nil {
		return ""
	}
	id, err := p.registry.StartRun(ctx)
	if err != nil {
		p.logger.Warn("failed to start run", zap.Error(err))
		return ""
	}
	return id
}

func (p *Pipeline) finishRun(ctx context.Context, id string, documents, pages, failed int) {
	if p.registry == nil || id == "" {
		return
	}
	if err := p.registry.FinishRun(ctx, id, documents, pages, failed); err != nil {
		p.logger.Warn("failed to finish run", zap.String("run_id", id), zap.Error(err))
	}
}
