package models

import "strconv"

// Classification is the relevance class of a merged page range.
type Classification string

const (
	// MostRelevant marks a range whose best page is within the most-relevant threshold.
	MostRelevant Classification = "most relevant"
	// Maybe marks a range that passed the minimum threshold only.
	Maybe Classification = "maybe"
)

// RawHit is a single page returned by nearest-neighbor search.
// Distance is squared Euclidean distance: lower is more similar.
type RawHit struct {
	Document string  `json:"document"`
	Page     int     `json:"page"`
	Distance float64 `json:"distance"`
	Preview  string  `json:"preview"`
	Locator  string  `json:"locator"`
}

// Range is a maximal run of consecutive pages of one document.
type Range struct {
	Document       string         `json:"document"`
	StartPage      int            `json:"start_page"`
	EndPage        int            `json:"end_page"`
	MinDistance    float64        `json:"min_distance"`
	Classification Classification `json:"classification"`
	Locator        string         `json:"locator"`
}

// Label returns "n" for a single page and "start-end" otherwise.
func (r Range) Label() string {
	if r.StartPage == r.EndPage {
		return strconv.Itoa(r.StartPage)
	}
	return strconv.Itoa(r.StartPage) + "-" + strconv.Itoa(r.EndPage)
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   map[string][]Range `json:"results"`
	// DocumentScores holds, per document, the largest MinDistance among its ranges.
	DocumentScores map[string]float64 `json:"document_scores"`
	QueryTime      int64              `json:"query_time_ms"`
}
