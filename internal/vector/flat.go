package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// indexMagic identifies a flat index file.
var indexMagic = [4]byte{'P', 'G', 'V', 'X'}

const indexFormatVersion uint32 = 1

// FlatIndex is an in-memory index searched by exhaustive scan.
// Vectors are stored contiguously; position i occupies data[i*dims:(i+1)*dims].
type FlatIndex struct {
	dimensions int
	data       []float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return IndexTypeFlat
}

// Append validates every vector before copying any of them in.
func (f *FlatIndex) Append(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("%w: vector %d has length %d, expected %d", ErrDimensionMismatch, i, len(v), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Search scans every stored vector.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has length %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.data) / f.dimensions
	if n == 0 {
		return nil, ErrEmptyIndex
	}
	neighbors := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		neighbors[i] = Neighbor{
			Position: i,
			Distance: SquaredL2(query, f.data[i*f.dimensions:(i+1)*f.dimensions]),
		}
	}
	return rankNeighbors(neighbors, k), nil
}

// Vector returns a copy of the vector stored at position.
func (f *FlatIndex) Vector(position int) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if position < 0 || position >= len(f.data)/f.dimensions {
		return nil, fmt.Errorf("%w: %d", ErrPositionOutOfRange, position)
	}
	out := make([]float32, f.dimensions)
	copy(out, f.data[position*f.dimensions:(position+1)*f.dimensions])
	return out, nil
}

// Count returns the number of vectors in the index.
func (f *FlatIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimensions
}

// Dimensions returns the vector length the index accepts.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Reset discards all vectors.
func (f *FlatIndex) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
	return nil
}

// Save writes the index to path through a temporary file in the same directory.
// Format (little endian): magic "PGVX", version uint32, dimensions uint32, count uint64,
// then count*dimensions float32 values.
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	header := struct {
		Magic      [4]byte
		Version    uint32
		Dimensions uint32
		Count      uint64
	}{indexMagic, indexFormatVersion, uint32(f.dimensions), uint64(len(f.data) / f.dimensions)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, f.data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write vectors: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load replaces the in-memory contents with the index stored at path. Dimensions must match.
// If the file does not exist, the index is left empty and no error is returned.
func (f *FlatIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f.Reset()
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	r := bufio.NewReader(file)

	var header struct {
		Magic      [4]byte
		Version    uint32
		Dimensions uint32
		Count      uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if header.Magic != indexMagic {
		return fmt.Errorf("not a flat index file: %s", path)
	}
	if header.Version != indexFormatVersion {
		return fmt.Errorf("unsupported index version %d", header.Version)
	}
	if int(header.Dimensions) != f.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, header.Dimensions, f.dimensions)
	}
	if info, err := file.Stat(); err == nil {
		const headerSize = 20
		if want := int64(headerSize) + int64(header.Count)*int64(header.Dimensions)*4; info.Size() < want {
			return fmt.Errorf("index file truncated: %d bytes, expected %d", info.Size(), want)
		}
	}
	data := make([]float32, header.Count*uint64(header.Dimensions))
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return fmt.Errorf("trailing data after %d vectors in %s", header.Count, path)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = data
	return nil
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
