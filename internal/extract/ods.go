package extract

import (
	"context"
	"iter"
	"regexp"
	"strings"
)

var (
	// odsSheet matches one table:table element. table:table-row and friends are
	// excluded by the whitespace-or-bracket after the name.
	odsSheet = regexp.MustCompile(`(?s)<table:table(?:\s[^>]*[^/>])?>(.*?)</table:table>`)
	odsRow   = regexp.MustCompile(`(?s)<table:table-row(?:\s[^>]*[^/>])?>(.*?)</table:table-row>`)
	odsCell  = regexp.MustCompile(`(?s)<table:(?:covered-)?table-cell(?:\s[^>]*[^/>])?>(.*?)</table:(?:covered-)?table-cell>|<table:(?:covered-)?table-cell[^>]*/>`)
)

// odsPages yields one page per sheet, laid out like excelPages: rows joined by
// newlines, cells by tabs. Trailing empty cells and empty rows are dropped.
func odsPages(ctx context.Context, content []byte) (iter.Seq2[Page, error], error) {
	body, err := odfContent(content, "ODS")
	if err != nil {
		return nil, err
	}
	var sheets []string
	for _, sheet := range odsSheet.FindAllStringSubmatch(body, -1) {
		var rows []string
		for _, row := range odsRow.FindAllStringSubmatch(sheet[1], -1) {
			var cells []string
			for _, cell := range odsCell.FindAllStringSubmatch(row[1], -1) {
				cells = append(cells, odfText(cell[1]))
			}
			for len(cells) > 0 && cells[len(cells)-1] == "" {
				cells = cells[:len(cells)-1]
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, "\t"))
			}
		}
		sheets = append(sheets, strings.Join(rows, "\n"))
	}
	return fromSlice(ctx, sheets), nil
}
