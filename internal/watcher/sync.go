package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/pagesearch/internal/corpus"
	"github.com/hyperjump/pagesearch/internal/extract"
	"github.com/hyperjump/pagesearch/internal/ingest"
	"github.com/hyperjump/pagesearch/pkg/utils"
	"go.uber.org/zap"
)

// Syncer applies document changes to the corpus and saves it. A new document
// is appended. A changed or removed document that already has pages in the
// corpus triggers a full re-index, since pages cannot be removed individually.
type Syncer struct {
	pipeline *ingest.Pipeline
	gateway  *corpus.Gateway
	dir      string
	includes []string
	excludes []string
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewSyncer returns a Syncer for the documents in dir selected by includes and excludes.
func NewSyncer(p *ingest.Pipeline, g *corpus.Gateway, dir string, includes, excludes []string, logger *zap.Logger) *Syncer {
	return &Syncer{
		pipeline: p,
		gateway:  g,
		dir:      dir,
		includes: includes,
		excludes: excludes,
		logger:   utils.OrNop(logger),
	}
}

// Match reports whether name is a document this syncer manages.
func (s *Syncer) Match(name string) bool {
	return ingest.Match(name, s.includes, s.excludes)
}

// Changed ingests a new document. It skips a document whose pages were read
// from the file as it is now, such as one just ingested by an upload, and
// re-indexes when an indexed document's file has changed.
func (s *Syncer) Changed(ctx context.Context, name, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, fresh := s.pipeline.IngestIfAbsent(ctx, extract.Document{Name: name, Path: path})
	switch fresh {
	case ingest.Current:
		s.logger.Debug("document already indexed", zap.String("document", name))
		return nil
	case ingest.Stale:
		s.logger.Info("document changed, re-indexing", zap.String("document", name))
		return s.reindex(ctx)
	}
	if !res.OK() {
		return res.Err
	}
	s.logger.Info("document added", zap.String("document", name), zap.Int("pages", res.Pages))
	if res.Pages == 0 {
		return nil
	}
	return s.gateway.Save(s.pipeline.Corpus())
}

// Removed re-indexes when name had pages in the corpus.
func (s *Syncer) Removed(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline.Corpus().DocumentPages(name) == 0 {
		return nil
	}
	s.logger.Info("document removed, re-indexing", zap.String("document", name))
	return s.reindex(ctx)
}

func (s *Syncer) reindex(ctx context.Context) error {
	docs, err := ingest.Discover(s.dir, s.includes, s.excludes)
	if err != nil {
		return err
	}
	if _, _, err := s.pipeline.ReindexAll(ctx, docs); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return s.gateway.Save(s.pipeline.Corpus())
}
