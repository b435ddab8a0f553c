package config

// ApplyDefaults sets default values for any zero values in cfg. The search
// thresholds are defaulted only when unset.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}
	if cfg.Storage.DocumentsDir == "" {
		cfg.Storage.DocumentsDir = "./data/documents"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "./data/index/pages.idx"
	}
	if cfg.Storage.MetadataPath == "" {
		cfg.Storage.MetadataPath = "./data/index/pages.db"
	}
	if cfg.Storage.RegistryPath == "" {
		cfg.Storage.RegistryPath = "./data/registry.db"
	}
	if cfg.Storage.IndexType == "" {
		cfg.Storage.IndexType = "flat"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "./data/models/all-mpnet-base-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 10
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.Search.MinThreshold == nil {
		cfg.Search.MinThreshold = Float64(DefaultMinThreshold)
	}
	if cfg.Search.MostRelevantThreshold == nil {
		cfg.Search.MostRelevantThreshold = Float64(DefaultMostRelevantThreshold)
	}
	if cfg.Search.PreviewLength == 0 {
		cfg.Search.PreviewLength = 200
	}
	if cfg.Watch.Patterns == nil {
		cfg.Watch.Patterns = []string{"**/*.pdf"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
}
