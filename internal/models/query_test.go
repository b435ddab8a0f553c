package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		maxK    int
		wantErr bool
		wantK   int
	}{
		{"empty query", &SearchQuery{Query: ""}, 100, true, 0},
		{"whitespace query", &SearchQuery{Query: "   "}, 100, true, 0},
		{"valid query", &SearchQuery{Query: "hello"}, 100, false, 0},
		{"negative k reset", &SearchQuery{Query: "x", K: -3}, 100, false, 0},
		{"caps k", &SearchQuery{Query: "x", K: 200}, 100, false, 100},
		{"no cap when max unset", &SearchQuery{Query: "x", K: 200}, 0, false, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(tt.maxK)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.K != tt.wantK {
				t.Errorf("K = %d, want %d", tt.query.K, tt.wantK)
			}
		})
	}
}

func TestIngestResult_OK(t *testing.T) {
	if !(IngestResult{Document: "a.pdf", Pages: 2}).OK() {
		t.Error("result without error should be OK")
	}
	if (IngestResult{Document: "a.pdf", Err: errTest}).OK() {
		t.Error("result with error should not be OK")
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("boom")

func TestStatusFromResult(t *testing.T) {
	tests := []struct {
		name   string
		result IngestResult
		want   string
	}{
		{"indexed", IngestResult{Document: "a.pdf", Pages: 3}, StatusIndexed},
		{"empty", IngestResult{Document: "a.pdf"}, StatusEmpty},
		{"failed", IngestResult{Document: "a.pdf", Err: errTest}, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := StatusFromResult(tt.result, "run-1")
			if s.Status != tt.want {
				t.Errorf("Status = %q, want %q", s.Status, tt.want)
			}
			if s.RunID != "run-1" || s.Name != "a.pdf" {
				t.Errorf("got %+v", s)
			}
			if tt.want == StatusFailed && s.Error != "boom" {
				t.Errorf("Error = %q", s.Error)
			}
		})
	}
}
