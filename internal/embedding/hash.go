package embedding

import (
	"context"

	"github.com/hyperjump/pagesearch/pkg/utils"
)

// HashEmbedder is a deterministic bag-of-words embedder. Each lower-cased word is
// hashed to a signed bucket; the bucket counts are normalised to unit length.
// Texts sharing words land near each other, which is enough for tests and for
// running without a model.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a HashEmbedder of the given dimension (768 when not positive).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (e *HashEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dimensions)
	words := SplitWords(text)
	if len(words) == 0 {
		v[0] = 1
		return v
	}
	for _, w := range words {
		h := hash32(w)
		sign := float32(1)
		if h>>31 == 1 {
			sign = -1
		}
		v[int(h%uint32(e.dimensions))] += sign
	}
	if utils.L2Norm(v) == 0 {
		// Opposite signs cancelled out.
		v[HashString(text)%e.dimensions] = 1
		return v
	}
	utils.NormalizeL2(v)
	return v
}

// EmbedBatch embeds each text independently.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}
