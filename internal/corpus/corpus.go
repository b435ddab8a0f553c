// Package corpus pairs the vector index with its metadata store and keeps them aligned.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/pagesearch/internal/metadata"
	"github.com/hyperjump/pagesearch/internal/models"
	"github.com/hyperjump/pagesearch/internal/vector"
)

// ErrMisaligned is returned when the vector index and metadata store disagree on count.
var ErrMisaligned = errors.New("vector index and metadata store are misaligned")

// Entry is one page to add: its embedding and the record describing it.
type Entry struct {
	Vector []float32
	Record models.PageRecord
}

// Match is a search neighbour resolved to its page record.
type Match struct {
	Position int
	Distance float64
	Record   models.PageRecord
}

// Corpus owns a vector index and a metadata store. Position i of both always
// describes the same page; every mutation goes through the corpus write lock.
type Corpus struct {
	index     vector.Index
	meta      *metadata.Store
	indexType string
	mu        sync.RWMutex
}

// New creates an empty corpus with an index of the given type and dimension.
func New(indexType string, dimensions int) (*Corpus, error) {
	idx, err := vector.NewIndex(indexType, dimensions)
	if err != nil {
		return nil, err
	}
	return &Corpus{index: idx, meta: metadata.NewStore(), indexType: indexType}, nil
}

// newFromParts wraps an existing pair after checking alignment.
func newFromParts(indexType string, idx vector.Index, meta *metadata.Store) (*Corpus, error) {
	if idx.Count() != meta.Count() {
		return nil, fmt.Errorf("%w: %d vectors, %d records", ErrMisaligned, idx.Count(), meta.Count())
	}
	return &Corpus{index: idx, meta: meta, indexType: indexType}, nil
}

// NewStaging returns an empty corpus with the same index type and dimension,
// used to build a replacement off to the side before Swap.
func (c *Corpus) NewStaging() (*Corpus, error) {
	return New(c.indexType, c.Dimensions())
}

// Append adds entries in order. The vectors are validated as a batch; if any
// has the wrong dimension nothing is appended to either store.
func (c *Corpus) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	vectors := make([][]float32, len(entries))
	records := make([]models.PageRecord, len(entries))
	for i, e := range entries {
		vectors[i] = e.Vector
		records[i] = e.Record
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.index.Append(ctx, vectors); err != nil {
		return err
	}
	c.meta.Append(records...)
	return nil
}

// Search runs k-NN and resolves every neighbour to its record under one read lock.
// Positions without a record are skipped.
func (c *Corpus) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	neighbors, err := c.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		rec, err := c.meta.Get(n.Position)
		if err != nil {
			continue
		}
		matches = append(matches, Match{Position: n.Position, Distance: n.Distance, Record: rec})
	}
	return matches, nil
}

// Count returns the number of indexed pages.
func (c *Corpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Count()
}

// RecordCount returns the number of metadata records. It equals Count.
func (c *Corpus) RecordCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta.Count()
}

// Dimensions returns the vector dimension.
func (c *Corpus) Dimensions() int {
	return c.index.Dimensions()
}

// Records returns a copy of all page records in position order.
func (c *Corpus) Records() []models.PageRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta.Records()
}

// DocumentPages returns the number of indexed pages whose record names document.
func (c *Corpus) DocumentPages(document string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, rec := range c.meta.Records() {
		if rec.Document == document {
			n++
		}
	}
	return n
}

// Vector returns a copy of the vector at position.
func (c *Corpus) Vector(position int) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Vector(position)
}

// Reset empties both stores.
func (c *Corpus) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.index.Reset(); err != nil {
		return err
	}
	c.meta.Reset()
	return nil
}

// Swap atomically replaces the contents of c with those of staging and closes
// the previous index. staging must not be used afterwards.
func (c *Corpus) Swap(staging *Corpus) error {
	if staging == c {
		return nil
	}
	staging.mu.Lock()
	idx, meta := staging.index, staging.meta
	staging.index, staging.meta = nil, nil
	staging.mu.Unlock()
	if idx == nil {
		return fmt.Errorf("staging corpus already consumed")
	}
	if idx.Dimensions() != c.Dimensions() {
		idx.Close()
		return fmt.Errorf("%w: staging has %d dimensions, corpus %d", vector.ErrDimensionMismatch, idx.Dimensions(), c.Dimensions())
	}
	if idx.Count() != meta.Count() {
		idx.Close()
		return fmt.Errorf("%w: staging has %d vectors, %d records", ErrMisaligned, idx.Count(), meta.Count())
	}

	c.mu.Lock()
	old := c.index
	c.index, c.meta = idx, meta
	c.mu.Unlock()
	return old.Close()
}

// Close releases the index.
func (c *Corpus) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		return nil
	}
	return c.index.Close()
}
