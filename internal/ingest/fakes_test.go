package ingest

import (
	"context"
	"errors"
	"iter"

	"github.com/hyperjump/pagesearch/internal/extract"
)

// fakeExtractor serves pages from memory, keyed by document name.
type fakeExtractor struct {
	pages     map[string][]string
	openErr   map[string]error
	pageErrAt map[string]int // 1-based page number that fails
}

func (f *fakeExtractor) Pages(ctx context.Context, doc extract.Document) (iter.Seq2[extract.Page, error], error) {
	if err := f.openErr[doc.Name]; err != nil {
		return nil, err
	}
	texts, ok := f.pages[doc.Name]
	if !ok {
		return nil, errors.New("no such document")
	}
	failAt := f.pageErrAt[doc.Name]
	return func(yield func(extract.Page, error) bool) {
		for i, text := range texts {
			if i+1 == failAt {
				yield(extract.Page{}, errors.New("corrupt page"))
				return
			}
			if !yield(extract.Page{Number: i + 1, Text: text}, nil) {
				return
			}
		}
	}, nil
}

// tableEmbedder maps known texts to fixed vectors and counts calls.
type tableEmbedder struct {
	dims    int
	vectors map[string][]float32
	calls   int
	err     error
	short   bool
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			v = make([]float32, e.dims)
			v[len(t)%e.dims] = 1
		}
		out = append(out, v)
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *tableEmbedder) Dimensions() int { return e.dims }
func (e *tableEmbedder) Close() error    { return nil }

func unit(dims, i int) []float32 {
	v := make([]float32, dims)
	v[i] = 1
	return v
}

func docs(names ...string) []extract.Document {
	out := make([]extract.Document, len(names))
	for i, n := range names {
		out[i] = extract.Document{Name: n, Path: n}
	}
	return out
}
