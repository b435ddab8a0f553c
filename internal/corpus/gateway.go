package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/hyperjump/pagesearch/internal/metadata"
	"github.com/hyperjump/pagesearch/pkg/utils"
	"go.uber.org/zap"
)

// Gateway saves and loads the index file and metadata file as a pair.
// A lock file next to the index serialises access across processes.
type Gateway struct {
	indexPath    string
	metadataPath string
	indexType    string
	dimensions   int
	logger       *zap.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the logger used by the gateway.
func WithLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = l
	}
}

// NewGateway returns a gateway for the given file paths. Loaded corpora use
// indexType and must have the given dimension.
func NewGateway(indexPath, metadataPath, indexType string, dimensions int, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		indexPath:    indexPath,
		metadataPath: metadataPath,
		indexType:    indexType,
		dimensions:   dimensions,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = utils.OrNop(g.logger)
	return g
}

// IndexPath returns the vector index file path.
func (g *Gateway) IndexPath() string { return g.indexPath }

// MetadataPath returns the metadata file path.
func (g *Gateway) MetadataPath() string { return g.metadataPath }

func (g *Gateway) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(g.indexPath), 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	return flock.New(g.indexPath + ".lock"), nil
}

// Save writes both files while holding the corpus read lock, so the pair on
// disk reflects a single consistent state. A crash between the two writes can
// leave them out of step; Load detects that.
func (g *Gateway) Save(c *Corpus) error {
	fl, err := g.lock()
	if err != nil {
		return err
	}
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	defer fl.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.index.Save(g.indexPath); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	if err := metadata.Save(g.metadataPath, c.meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	g.logger.Info("saved index",
		zap.String("index", g.indexPath),
		zap.String("metadata", g.metadataPath),
		zap.Int("pages", c.index.Count()),
	)
	return nil
}

// Load reads both files into a new corpus. Missing files start empty.
// Counts that disagree yield ErrMisaligned.
func (g *Gateway) Load() (*Corpus, error) {
	fl, err := g.lock()
	if err != nil {
		return nil, err
	}
	if err := fl.RLock(); err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	defer fl.Unlock()

	empty, err := New(g.indexType, g.dimensions)
	if err != nil {
		return nil, err
	}
	idx := empty.index
	if err := idx.Load(g.indexPath); err != nil {
		idx.Close()
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	meta, err := metadata.Load(g.metadataPath)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	c, err := newFromParts(g.indexType, idx, meta)
	if err != nil {
		idx.Close()
		return nil, err
	}
	g.logger.Info("loaded index", zap.Int("pages", c.Count()))
	return c, nil
}
