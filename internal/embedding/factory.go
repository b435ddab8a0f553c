package embedding

import "fmt"

const (
	// ProviderONNX runs a local ONNX model.
	ProviderONNX = "onnx"
	// ProviderHash uses the deterministic HashEmbedder.
	ProviderHash = "hash"
)

// Options selects and configures an embedder.
type Options struct {
	Provider   string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	// CacheSize wraps the embedder in a CachedEmbedder when positive.
	CacheSize int
}

// New builds the embedder described by opts.
func New(opts Options) (Embedder, error) {
	var e Embedder
	switch opts.Provider {
	case ProviderONNX, "":
		onnx, err := NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens)
		if err != nil {
			return nil, err
		}
		e = onnx
	case ProviderHash:
		e = NewHashEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	if opts.CacheSize <= 0 {
		return e, nil
	}
	cached, err := NewCachedEmbedder(e, opts.CacheSize)
	if err != nil {
		e.Close()
		return nil, err
	}
	return cached, nil
}
