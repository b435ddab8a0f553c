package vector

import "fmt"

// Index type names accepted by NewIndex.
const (
	// IndexTypeFlat uses in-memory exhaustive search.
	IndexTypeFlat = "flat"
	// IndexTypeFAISS uses a FAISS IndexFlatL2. Requires the FAISS C library and -tags=faiss.
	IndexTypeFAISS = "faiss"
)

// NewIndex creates a vector index of the specified type.
// Supported types: "flat" (default, also "" and "memory"), "faiss".
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch indexType {
	case IndexTypeFlat, "", "memory":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
