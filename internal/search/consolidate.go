package search

import (
	"sort"

	"github.com/hyperjump/pagesearch/internal/config"
	"github.com/hyperjump/pagesearch/internal/models"
)

// Default consolidation thresholds, in squared Euclidean distance.
const (
	DefaultMinThreshold          = config.DefaultMinThreshold
	DefaultMostRelevantThreshold = config.DefaultMostRelevantThreshold
)

// Consolidator turns per-page hits into merged page ranges per document.
type Consolidator struct {
	// MinThreshold drops hits farther than this.
	MinThreshold float64
	// MostRelevantThreshold classifies a range as most relevant when its best hit is within it.
	MostRelevantThreshold float64
}

// NewConsolidator returns a Consolidator with the default thresholds.
func NewConsolidator() *Consolidator {
	return &Consolidator{
		MinThreshold:          DefaultMinThreshold,
		MostRelevantThreshold: DefaultMostRelevantThreshold,
	}
}

// Consolidate filters hits by distance, groups them by document and merges runs
// of consecutive pages. A repeated page number counts as adjacent to itself.
// Documents with no surviving hit are absent from the result; ranges within a
// document are ordered by start page.
func (c *Consolidator) Consolidate(hits []models.RawHit) map[string][]models.Range {
	byDoc := make(map[string][]models.RawHit)
	for _, h := range hits {
		if h.Distance > c.MinThreshold {
			continue
		}
		byDoc[h.Document] = append(byDoc[h.Document], h)
	}

	out := make(map[string][]models.Range, len(byDoc))
	for doc, docHits := range byDoc {
		sort.SliceStable(docHits, func(i, j int) bool { return docHits[i].Page < docHits[j].Page })

		var ranges []models.Range
		cur := c.open(docHits[0])
		for _, h := range docHits[1:] {
			if h.Page == cur.EndPage || h.Page == cur.EndPage+1 {
				cur.EndPage = h.Page
				if h.Distance < cur.MinDistance {
					cur.MinDistance = h.Distance
				}
				continue
			}
			ranges = append(ranges, c.close(cur))
			cur = c.open(h)
		}
		out[doc] = append(ranges, c.close(cur))
	}
	return out
}

func (c *Consolidator) open(h models.RawHit) models.Range {
	return models.Range{
		Document:    h.Document,
		StartPage:   h.Page,
		EndPage:     h.Page,
		MinDistance: h.Distance,
		Locator:     h.Locator,
	}
}

func (c *Consolidator) close(r models.Range) models.Range {
	r.Classification = models.Maybe
	if r.MinDistance <= c.MostRelevantThreshold {
		r.Classification = models.MostRelevant
	}
	return r
}

// DocumentScores returns, per document, the largest MinDistance among its ranges.
func DocumentScores(results map[string][]models.Range) map[string]float64 {
	scores := make(map[string]float64, len(results))
	for doc, ranges := range results {
		for i, r := range ranges {
			if i == 0 || r.MinDistance > scores[doc] {
				scores[doc] = r.MinDistance
			}
		}
	}
	return scores
}
