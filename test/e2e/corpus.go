package e2e

import (
	"fmt"
	"os"
	"path/filepath"
)

// Document is a generated multi-page document.
type Document struct {
	Name  string
	Pages []string
}

// QueryCase is a query whose best match is a known page.
type QueryCase struct {
	Query    string
	Document string
	Page     int
}

var topics = []string{
	"photovoltaic", "geothermal", "hydropower", "offshore", "biomass",
	"hydrogen", "battery", "transmission", "insulation", "turbine",
	"subsidy", "carbon", "methane", "retrofit", "microgrid",
}

var aspects = []string{
	"efficiency", "maintenance", "regulation", "financing", "forecasting",
	"procurement", "safety", "recycling", "storage", "permitting",
}

// BuildCorpus returns n documents cycling through FixtureExtensions. Every
// third document with more than two pages has a blank third page, so the
// indexed page numbers of those documents are not contiguous.
func BuildCorpus(n int) []Document {
	docs := make([]Document, 0, n)
	for i := 0; i < n; i++ {
		ext := FixtureExtensions[i%len(FixtureExtensions)]
		name := fmt.Sprintf("reports/%s/report-%03d%s", ext[1:], i, ext)
		pageCount := 2 + i%4
		pages := make([]string, pageCount)
		for p := range pages {
			if pageCount > 2 && i%3 == 0 && p == 2 {
				continue
			}
			pages[p] = pageText(i, p+1)
		}
		docs = append(docs, Document{Name: name, Pages: pages})
	}
	return docs
}

func pageText(doc, page int) string {
	t := topics[(doc+page)%len(topics)]
	a := aspects[(doc*3+page)%len(aspects)]
	return fmt.Sprintf("Section %d of report %d discusses %s %s. Reference r%03dp%d.", page, doc, t, a, doc, page)
}

// QueryCases returns one case per non-blank page, querying the page's own text.
func QueryCases(docs []Document) []QueryCase {
	var cases []QueryCase
	for _, d := range docs {
		for i, text := range d.Pages {
			if text == "" {
				continue
			}
			cases = append(cases, QueryCase{Query: text, Document: d.Name, Page: i + 1})
		}
	}
	return cases
}

// IndexedPages counts the non-blank pages of docs.
func IndexedPages(docs []Document) int {
	n := 0
	for _, d := range docs {
		for _, text := range d.Pages {
			if text != "" {
				n++
			}
		}
	}
	return n
}

// WriteCorpus encodes every document under dir.
func WriteCorpus(dir string, docs []Document) error {
	for _, d := range docs {
		data, err := EncodePages(filepath.Ext(d.Name), d.Pages)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		p := filepath.Join(dir, filepath.FromSlash(d.Name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return err
		}
	}
	return nil
}
