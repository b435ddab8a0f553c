// Package storage keeps the document registry: the outcome of each document's
// latest ingestion and a history of full re-index runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/pagesearch/internal/models"
)

// ErrNotFound is returned when a document or run is not in the registry.
var ErrNotFound = errors.New("not found")

// Registry records ingestion outcomes. It is informational; the vector index
// and metadata store remain the source of truth for search.
type Registry interface {
	// Record inserts or replaces the entry for status.Name.
	Record(ctx context.Context, status *models.DocumentStatus) error
	Get(ctx context.Context, name string) (*models.DocumentStatus, error)
	// List returns entries ordered by name.
	List(ctx context.Context, offset, limit int) ([]*models.DocumentStatus, error)
	Count(ctx context.Context) (int64, error)
	// Reset removes all document entries; run history is kept.
	Reset(ctx context.Context) error

	StartRun(ctx context.Context) (string, error)
	FinishRun(ctx context.Context, id string, documents, pages, failed int) error
	LastRun(ctx context.Context) (*models.RunSummary, error)

	Close() error
}
