// Package cli renders pagesearch results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/hyperjump/pagesearch/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(s); f {
	case OutputText, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		return writeSearchResultsText(w, response)
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) error {
	docs := RankedDocuments(response.Results)
	fmt.Fprintf(w, "\nFound %d pages in %d documents (%dms)\n", response.TotalHits, len(docs), response.QueryTime)
	if len(docs) == 0 {
		fmt.Fprintln(w, "No relevant pages.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, doc := range docs {
		fmt.Fprintf(tw, "\n%s\n", doc)
		for _, r := range response.Results[doc] {
			fmt.Fprintf(tw, "  %s\t%s\t%.4f\t%s\n", pageLabel(r), r.Classification, r.MinDistance, r.Locator)
		}
	}
	return tw.Flush()
}

func pageLabel(r models.Range) string {
	if r.StartPage == r.EndPage {
		return "page " + r.Label()
	}
	return "pages " + r.Label()
}

// RankedDocuments returns the documents of results ordered by their closest
// range, then by name.
func RankedDocuments(results map[string][]models.Range) []string {
	best := make(map[string]float64, len(results))
	docs := make([]string, 0, len(results))
	for doc, ranges := range results {
		if len(ranges) == 0 {
			continue
		}
		d := ranges[0].MinDistance
		for _, r := range ranges[1:] {
			d = min(d, r.MinDistance)
		}
		best[doc] = d
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if best[docs[i]] != best[docs[j]] {
			return best[docs[i]] < best[docs[j]]
		}
		return docs[i] < docs[j]
	})
	return docs
}
