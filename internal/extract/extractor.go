// Package extract turns documents into a lazy sequence of page texts.
package extract

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupported is returned for documents whose extension has no extractor.
var ErrUnsupported = errors.New("unsupported document format")

// Document identifies a file to ingest. Name is the stable identifier stored in
// page records; Path is where the bytes live.
type Document struct {
	Name string
	Path string
}

// Page is the text of one page. Number starts at 1.
type Page struct {
	Number int
	Text   string
}

// Extractor yields the pages of a document in order. The returned error covers
// opening the document; per-page failures are reported through the sequence.
// Callers must range over the sequence to release any resources it holds.
type Extractor interface {
	Pages(ctx context.Context, doc Document) (iter.Seq2[Page, error], error)
}

type pageFunc func(ctx context.Context, content []byte) (iter.Seq2[Page, error], error)

// MultiExtractor dispatches on the lower-cased file extension.
type MultiExtractor struct {
	byExt map[string]pageFunc
}

// NewMultiExtractor returns an extractor for PDF, plain text, Markdown, and
// the OOXML and OpenDocument office formats.
func NewMultiExtractor() *MultiExtractor {
	return &MultiExtractor{byExt: map[string]pageFunc{
		".pdf":  pdfPages,
		".txt":  plainPages,
		".md":   plainPages,
		".xlsx": excelPages,
		".pptx": pptxPages,
		".docx": docxPages,
		".odp":  odpPages,
		".ods":  odsPages,
	}}
}

// Supports reports whether name has an extension this extractor handles.
func (m *MultiExtractor) Supports(name string) bool {
	_, ok := m.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions returns the handled extensions, sorted, with leading dots.
func (m *MultiExtractor) Extensions() []string {
	exts := make([]string, 0, len(m.byExt))
	for ext := range m.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Pages reads doc.Path and returns its pages.
func (m *MultiExtractor) Pages(ctx context.Context, doc Document) (iter.Seq2[Page, error], error) {
	ext := strings.ToLower(filepath.Ext(doc.Path))
	fn, ok := m.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return fn(ctx, content)
}

// PagesBytes extracts pages from in-memory content with the given extension (including the dot).
func (m *MultiExtractor) PagesBytes(ctx context.Context, content []byte, ext string) (iter.Seq2[Page, error], error) {
	fn, ok := m.byExt[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return fn(ctx, content)
}

// Collect drains a page sequence, stopping at the first error.
func Collect(seq iter.Seq2[Page, error]) ([]Page, error) {
	var pages []Page
	for p, err := range seq {
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// fromSlice yields a fixed list of page texts numbered from 1, checking ctx between pages.
func fromSlice(ctx context.Context, texts []string) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}
			if !yield(Page{Number: i + 1, Text: text}, nil) {
				return
			}
		}
	}
}
