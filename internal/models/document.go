package models

import "time"

// Document ingestion statuses recorded in the registry.
const (
	StatusIndexed = "indexed"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

// DocumentStatus is the registry entry for the latest ingestion of one document.
type DocumentStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Pages     int       `json:"pages"`
	Error     string    `json:"error,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}

// StatusFromResult builds a registry entry from an ingestion result.
func StatusFromResult(r IngestResult, runID string) *DocumentStatus {
	s := &DocumentStatus{Name: r.Document, Pages: r.Pages, RunID: runID, Status: StatusIndexed}
	switch {
	case r.Err != nil:
		s.Status = StatusFailed
		s.Error = r.Err.Error()
	case r.Pages == 0:
		s.Status = StatusEmpty
	}
	return s
}

// RunSummary describes one full re-index run.
type RunSummary struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Documents  int        `json:"documents"`
	Pages      int        `json:"pages"`
	Failed     int        `json:"failed"`
}
