package embedding

import (
	"context"
	"testing"
)

type countingEmbedder struct {
	*HashEmbedder
	calls int
	texts int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_OnlyMissesReachInner(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	c, err := NewCachedEmbedder(inner, 10)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first, err := c.EmbedBatch(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.EmbedBatch(ctx, []string{"b", "c", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 || inner.texts != 3 {
		t.Errorf("inner calls=%d texts=%d, want 2 and 3", inner.calls, inner.texts)
	}
	for i := range first[0] {
		if first[0][i] != second[2][i] || first[1][i] != second[0][i] {
			t.Fatal("cached vectors differ from originals")
		}
	}

	if _, err := c.EmbedBatch(ctx, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("fully cached batch reached inner embedder")
	}
	if c.Len() != 3 {
		t.Errorf("Len=%d", c.Len())
	}
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	c, _ := NewCachedEmbedder(inner, 2)
	ctx := context.Background()
	_, _ = c.EmbedBatch(ctx, []string{"a"})
	_, _ = c.EmbedBatch(ctx, []string{"b"})
	_, _ = c.EmbedBatch(ctx, []string{"c"}) // evicts a
	inner.texts = 0
	_, _ = c.EmbedBatch(ctx, []string{"a", "c"})
	if inner.texts != 1 {
		t.Errorf("expected only evicted text re-embedded, got %d", inner.texts)
	}
}

func TestCachedEmbedder_ReturnsCopies(t *testing.T) {
	c, _ := NewCachedEmbedder(NewHashEmbedder(4), 4)
	ctx := context.Background()
	v, _ := c.EmbedBatch(ctx, []string{"x"})
	v[0][0] = 42
	again, _ := c.EmbedBatch(ctx, []string{"x"})
	if again[0][0] == 42 {
		t.Error("cache entry was mutated through returned slice")
	}
}
