package models

import (
	"fmt"
	"strings"
)

// SearchQuery represents a search request. K is the number of nearest pages to retrieve;
// zero means the configured default.
type SearchQuery struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate trims the query, rejects an empty one, and clamps K to maxK.
// K values of zero or below are left at zero so the engine applies its default.
func (q *SearchQuery) Validate(maxK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.K < 0 {
		q.K = 0
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}
