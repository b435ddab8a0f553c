package config

import (
	"fmt"
	"strconv"
)

// LookupFunc reports the value of an environment variable; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg from PAGESEARCH_* variables. A .env file, when present,
// is loaded into the environment by the CLI before this runs.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	float := func(key string, dst **float64) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = &f
		return nil
	}

	if v, ok := lookup("PAGESEARCH_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PAGESEARCH_DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	str("PAGESEARCH_HOST", &cfg.Server.Host)
	str("PAGESEARCH_DOCUMENTS_DIR", &cfg.Storage.DocumentsDir)
	str("PAGESEARCH_INDEX_PATH", &cfg.Storage.IndexPath)
	str("PAGESEARCH_METADATA_PATH", &cfg.Storage.MetadataPath)
	str("PAGESEARCH_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("PAGESEARCH_MODEL_PATH", &cfg.Embedding.ModelPath)

	for key, dst := range map[string]*int{
		"PAGESEARCH_PORT":       &cfg.Server.Port,
		"PAGESEARCH_DIMENSIONS": &cfg.Embedding.Dimensions,
		"PAGESEARCH_DEFAULT_K":  &cfg.Search.DefaultK,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]**float64{
		"PAGESEARCH_MIN_THRESHOLD":           &cfg.Search.MinThreshold,
		"PAGESEARCH_MOST_RELEVANT_THRESHOLD": &cfg.Search.MostRelevantThreshold,
	} {
		if err := float(key, dst); err != nil {
			return err
		}
	}
	return nil
}
