package extract

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"github.com/ledongthuc/pdf"
)

// pdfPages parses the document up front and extracts each page's text on demand.
func pdfPages(ctx context.Context, content []byte) (iter.Seq2[Page, error], error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	return func(yield func(Page, error) bool) {
		for i := 1; i <= numPages; i++ {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}
			page := r.Page(i)
			if page.V.IsNull() {
				if !yield(Page{Number: i}, nil) {
					return
				}
				continue
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				yield(Page{}, fmt.Errorf("extract page %d: %w", i, err))
				return
			}
			if !yield(Page{Number: i, Text: text}, nil) {
				return
			}
		}
	}, nil
}
