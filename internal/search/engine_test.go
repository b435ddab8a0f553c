package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/pagesearch/internal/config"
	"github.com/hyperjump/pagesearch/internal/corpus"
	"github.com/hyperjump/pagesearch/internal/models"
	"github.com/hyperjump/pagesearch/internal/vector"
)

// stubEmbedder maps texts to fixed vectors and counts calls.
type stubEmbedder struct {
	dims    int
	vectors map[string][]float32
	calls   int
	err     error
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := s.vectors[t]
		if !ok {
			v = make([]float32, s.dims)
			v[s.dims-1] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Close() error    { return nil }

func unit(dims, i int) []float32 {
	v := make([]float32, dims)
	v[i] = 1
	return v
}

// newABCCorpus holds a.pdf with pages alpha, beta, gamma on orthogonal unit vectors.
func newABCCorpus(t *testing.T) (*corpus.Corpus, *stubEmbedder) {
	t.Helper()
	c, err := corpus.New(vector.IndexTypeFlat, 4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	emb := &stubEmbedder{dims: 4, vectors: map[string][]float32{
		"alpha": unit(4, 0),
		"beta":  unit(4, 1),
		"gamma": unit(4, 2),
	}}
	var entries []corpus.Entry
	for i, text := range []string{"alpha", "beta", "gamma"} {
		entries = append(entries, corpus.Entry{
			Vector: emb.vectors[text],
			Record: models.PageRecord{Document: "a.pdf", Page: i + 1, Text: text},
		})
	}
	if err := c.Append(context.Background(), entries); err != nil {
		t.Fatal(err)
	}
	return c, emb
}

func TestSearch_ExactPageMatch(t *testing.T) {
	c, emb := newABCCorpus(t)
	e := NewEngine(c, emb, config.SearchConfig{})

	hits, err := e.Search(context.Background(), "beta", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits", len(hits))
	}
	h := hits[0]
	if h.Document != "a.pdf" || h.Page != 2 || math.Abs(h.Distance) > 1e-9 {
		t.Errorf("hit = %+v", h)
	}
	if h.Preview != "beta..." {
		t.Errorf("preview = %q", h.Preview)
	}
	if h.Locator != "/documents/a.pdf#page=2" {
		t.Errorf("locator = %q", h.Locator)
	}
}

func TestSearch_OrderAndKClamping(t *testing.T) {
	c, emb := newABCCorpus(t)
	e := NewEngine(c, emb, config.SearchConfig{DefaultK: 2})
	ctx := context.Background()

	all, err := e.Search(ctx, "alpha", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("k > count: got %d hits, want 3", len(all))
	}
	if all[0].Page != 1 || all[0].Distance != 0 {
		t.Errorf("first hit = %+v", all[0])
	}
	for i := 1; i < len(all); i++ {
		if all[i].Distance < all[i-1].Distance {
			t.Errorf("hits not ascending: %+v", all)
		}
	}
	// Orthogonal unit vectors are at squared distance 2; ties keep insertion order.
	if all[1].Page != 2 || all[2].Page != 3 || all[1].Distance != 2 {
		t.Errorf("tie order = %+v", all)
	}

	def, _ := e.Search(ctx, "alpha", 0)
	if len(def) != 2 {
		t.Errorf("default k: got %d hits, want 2", len(def))
	}
}

func TestSearch_EmptyCorpusSkipsEmbedder(t *testing.T) {
	c, err := corpus.New(vector.IndexTypeFlat, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	emb := &stubEmbedder{dims: 4}
	hits, err := NewEngine(c, emb, config.SearchConfig{}).Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatal(err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("hits = %#v, want empty slice", hits)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times", emb.calls)
	}
}

func TestSearch_EmbedderError(t *testing.T) {
	c, _ := newABCCorpus(t)
	boom := errors.New("model offline")
	_, err := NewEngine(c, &stubEmbedder{dims: 4, err: boom}, config.SearchConfig{}).Search(context.Background(), "x", 1)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestSearch_PreviewTruncated(t *testing.T) {
	c, err := corpus.New(vector.IndexTypeFlat, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	long := strings.Repeat("é", 250)
	_ = c.Append(context.Background(), []corpus.Entry{{
		Vector: []float32{1, 0},
		Record: models.PageRecord{Document: "long.pdf", Page: 1, Text: long},
	}})
	emb := &stubEmbedder{dims: 2, vectors: map[string][]float32{"q": {1, 0}}}
	hits, err := NewEngine(c, emb, config.SearchConfig{}).Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("é", 200) + "..."
	if hits[0].Preview != want {
		t.Errorf("preview has %d runes", len([]rune(hits[0].Preview)))
	}
}

func TestSearch_PreviewCollapsesWhitespace(t *testing.T) {
	c, err := corpus.New(vector.IndexTypeFlat, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	raw := "\n  Quarterly\treport\n\n page one  "
	_ = c.Append(context.Background(), []corpus.Entry{{
		Vector: []float32{1, 0},
		Record: models.PageRecord{Document: "r.pdf", Page: 1, Text: raw},
	}})
	emb := &stubEmbedder{dims: 2, vectors: map[string][]float32{"q": {1, 0}}}
	hits, err := NewEngine(c, emb, config.SearchConfig{}).Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Preview != "Quarterly report page one..." {
		t.Errorf("preview = %q", hits[0].Preview)
	}
	if recs := c.Records(); recs[0].Text != raw {
		t.Errorf("stored text changed: %q", recs[0].Text)
	}
}

func TestQuery_Consolidates(t *testing.T) {
	c, emb := newABCCorpus(t)
	// Halfway between alpha and beta: both at about 0.59, gamma at 2.
	s := float32(1 / math.Sqrt2)
	emb.vectors["alpha beta"] = []float32{s, s, 0, 0}
	e := NewEngine(c, emb, config.SearchConfig{MaxK: 100})

	resp, err := e.Query(context.Background(), &models.SearchQuery{Query: "  alpha beta  ", K: 3})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Query != "alpha beta" || resp.TotalHits != 3 {
		t.Errorf("resp = %+v", resp)
	}
	ranges := resp.Results["a.pdf"]
	if len(ranges) != 1 || ranges[0].Label() != "1-2" {
		t.Fatalf("ranges = %+v", ranges)
	}
	if ranges[0].Classification != models.MostRelevant {
		t.Errorf("classification = %s", ranges[0].Classification)
	}
	if resp.DocumentScores["a.pdf"] != ranges[0].MinDistance {
		t.Errorf("scores = %v", resp.DocumentScores)
	}
}

func TestQuery_ZeroMinThresholdKeepsExactMatches(t *testing.T) {
	c, emb := newABCCorpus(t)
	cfg := config.SearchConfig{MaxK: 100, MinThreshold: config.Float64(0), MostRelevantThreshold: config.Float64(0)}
	resp, err := NewEngine(c, emb, cfg).Query(context.Background(), &models.SearchQuery{Query: "alpha", K: 3})
	if err != nil {
		t.Fatal(err)
	}
	ranges := resp.Results["a.pdf"]
	if len(ranges) != 1 || ranges[0].Label() != "1" || ranges[0].MinDistance != 0 {
		t.Fatalf("ranges = %+v", ranges)
	}
	if ranges[0].Classification != models.MostRelevant {
		t.Errorf("classification = %s", ranges[0].Classification)
	}
}

func TestQuery_EmptyQuery(t *testing.T) {
	c, emb := newABCCorpus(t)
	if _, err := NewEngine(c, emb, config.SearchConfig{}).Query(context.Background(), &models.SearchQuery{Query: " "}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestQuery_EmptyCorpus(t *testing.T) {
	c, err := corpus.New(vector.IndexTypeFlat, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	resp, err := NewEngine(c, &stubEmbedder{dims: 4}, config.SearchConfig{}).Query(context.Background(), &models.SearchQuery{Query: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalHits != 0 || len(resp.Results) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}
