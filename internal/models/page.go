// Package models defines core data structures for indexed pages, queries, and search results.
package models

// PageRecord is the metadata stored for one indexed page. The record at position i
// of the metadata store describes the vector at position i of the vector index.
type PageRecord struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Text     string `json:"text"`
}

// IngestResult is the outcome of ingesting one document. Err is nil on success;
// a failed document always reports zero pages.
type IngestResult struct {
	Document string `json:"document"`
	Pages    int    `json:"pages"`
	Err      error  `json:"-"`
}

// OK reports whether the document was ingested without error.
func (r IngestResult) OK() bool {
	return r.Err == nil
}
