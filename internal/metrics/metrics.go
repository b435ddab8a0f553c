// Package metrics defines the Prometheus collectors for ingestion and search.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - pagesearch_documents_ingested_total{status} - documents processed, by outcome
//   - pagesearch_pages_indexed_total - pages appended to the corpus
//   - pagesearch_ingest_duration_seconds - per-document ingestion time
//   - pagesearch_reindex_runs_total - full re-index runs
//   - pagesearch_searches_total{outcome} - queries served
//   - pagesearch_search_duration_seconds - query latency
//   - pagesearch_corpus_pages - pages currently indexed
type Metrics struct {
	DocumentsIngested *prometheus.CounterVec
	PagesIndexed      prometheus.Counter
	IngestDuration    prometheus.Histogram
	ReindexRuns       prometheus.Counter
	Searches          *prometheus.CounterVec
	SearchDuration    prometheus.Histogram
	CorpusPages       prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesearch_documents_ingested_total",
				Help: "Total number of documents processed by the ingestion pipeline",
			},
			[]string{"status"}, // "indexed", "empty" or "failed"
		),
		PagesIndexed: f.NewCounter(prometheus.CounterOpts{
			Name: "pagesearch_pages_indexed_total",
			Help: "Total number of pages appended to the corpus",
		}),
		IngestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagesearch_ingest_duration_seconds",
			Help:    "Time to extract, embed and index one document",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		ReindexRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "pagesearch_reindex_runs_total",
			Help: "Total number of full re-index runs",
		}),
		Searches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesearch_searches_total",
				Help: "Total number of search queries",
			},
			[]string{"outcome"}, // "ok", "empty" or "error"
		),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagesearch_search_duration_seconds",
			Help:    "Search latency including embedding and consolidation",
			Buckets: prometheus.DefBuckets,
		}),
		CorpusPages: f.NewGauge(prometheus.GaugeOpts{
			Name: "pagesearch_corpus_pages",
			Help: "Number of pages currently in the corpus",
		}),
	}
}

// ObserveIngest records one document outcome.
func (m *Metrics) ObserveIngest(status string, pages int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsIngested.WithLabelValues(status).Inc()
	m.PagesIndexed.Add(float64(pages))
	m.IngestDuration.Observe(elapsed.Seconds())
}

// ObserveReindex counts a completed full re-index.
func (m *Metrics) ObserveReindex() {
	if m == nil {
		return
	}
	m.ReindexRuns.Inc()
}

// ObserveSearch records one query.
func (m *Metrics) ObserveSearch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(elapsed.Seconds())
}

// SetCorpusPages sets the corpus size gauge.
func (m *Metrics) SetCorpusPages(n int) {
	if m == nil {
		return
	}
	m.CorpusPages.Set(float64(n))
}
