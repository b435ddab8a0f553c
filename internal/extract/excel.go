package extract

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/xuri/excelize/v2"
)

// excelPages yields one page per sheet: rows joined by newlines, cells by tabs.
func excelPages(ctx context.Context, content []byte) (iter.Seq2[Page, error], error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	sheets := f.GetSheetList()
	return func(yield func(Page, error) bool) {
		defer f.Close()
		for i, sheet := range sheets {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}
			rows, err := f.GetRows(sheet)
			if err != nil {
				yield(Page{}, fmt.Errorf("get rows for sheet %q: %w", sheet, err))
				return
			}
			var buf strings.Builder
			for _, row := range rows {
				buf.WriteString(strings.Join(row, "\t"))
				buf.WriteByte('\n')
			}
			if !yield(Page{Number: i + 1, Text: strings.TrimSpace(buf.String())}, nil) {
				return
			}
		}
	}, nil
}
