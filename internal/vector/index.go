// Package vector provides flat vector indices with exact Euclidean nearest-neighbor search.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyIndex is returned by Search on an index with no vectors.
	ErrEmptyIndex = errors.New("vector index is empty")
	// ErrInvalidK is returned by Search when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
	// ErrPositionOutOfRange is returned when a position does not address a stored vector.
	ErrPositionOutOfRange = errors.New("vector position out of range")
)

// Index stores fixed-dimension vectors addressed by insertion position.
type Index interface {
	// Append adds vectors in order. If any vector has the wrong length nothing is added.
	Append(ctx context.Context, vectors [][]float32) error
	// Search returns the k nearest vectors by squared Euclidean distance, ascending,
	// ties broken by lower position. k larger than Count returns every vector.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	// Vector returns a copy of the vector at position.
	Vector(position int) ([]float32, error)
	Count() int
	Dimensions() int
	Reset() error
	Save(path string) error
	Load(path string) error
	Close() error
}

// Neighbor is a single search hit: the stored vector's position and its distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}
