//go:build !faiss || !cgo

package vector

import (
	"context"
	"errors"
)

var errNoFAISS = errors.New("FAISS not available: build with -tags=faiss and install the FAISS C library")

// FAISSIndex is a placeholder when FAISS is not compiled in.
type FAISSIndex struct{}

// NewFAISSIndex always fails without the faiss build tag.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Append(ctx context.Context, vectors [][]float32) error { return errNoFAISS }

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Vector(position int) ([]float32, error) { return nil, errNoFAISS }
func (f *FAISSIndex) Count() int                             { return 0 }
func (f *FAISSIndex) Dimensions() int                        { return 0 }
func (f *FAISSIndex) Reset() error                           { return errNoFAISS }
func (f *FAISSIndex) Save(path string) error                 { return errNoFAISS }
func (f *FAISSIndex) Load(path string) error                 { return errNoFAISS }
func (f *FAISSIndex) Close() error                           { return nil }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return IndexTypeFAISS
}
