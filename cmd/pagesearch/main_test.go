package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/pagesearch/internal/config"
	"go.uber.org/zap"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"solar subsidies", "-k", "5"},
			expected: []string{"-k", "5", "solar subsidies"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "5", "solar subsidies"},
			expected: []string{"-k", "5", "solar subsidies"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"solar subsidies"},
			expected: []string{"solar subsidies"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-output", "json"},
			expected: []string{"-output", "json", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"geothermal"}, "geothermal"},
		{"multiple words", []string{"heat", "pumps"}, "heat pumps"},
		{"single quoted phrase", []string{"heat pumps"}, "heat pumps"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  documents_dir: "./docs"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if filepath.Base(cfg.Storage.DocumentsDir) != "docs" || !filepath.IsAbs(cfg.Storage.DocumentsDir) {
		t.Errorf("documents_dir = %q", cfg.Storage.DocumentsDir)
	}
}

func TestLoadConfig_defaultsWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty for built-in defaults", resolved)
	}
	if cfg.Search.MinThresholdOrDefault() != 1.75 || cfg.Search.MostRelevantThresholdOrDefault() != 1.25 {
		t.Errorf("thresholds = %g, %g", cfg.Search.MinThresholdOrDefault(), cfg.Search.MostRelevantThresholdOrDefault())
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimensions = 32
	cfg.Embedding.CacheSize = 64
	cfg.Storage.DocumentsDir = filepath.Join(dir, "documents")
	cfg.Storage.IndexPath = filepath.Join(dir, "index", "pages.idx")
	cfg.Storage.MetadataPath = filepath.Join(dir, "index", "pages.db")
	cfg.Storage.RegistryPath = filepath.Join(dir, "registry.db")
	cfg.Watch.Patterns = []string{"**/*.txt"}
	return &cfg
}

func newComponents(t *testing.T, cfg *config.Config) *Components {
	t.Helper()
	comps, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(comps.Close)
	return comps
}

func TestInitializeComponents_FallsBackToHashEmbedder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "onnx"
	cfg.Embedding.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	comps := newComponents(t, cfg)
	if comps.Embedder.Dimensions() != 32 {
		t.Errorf("fallback embedder dimensions = %d", comps.Embedder.Dimensions())
	}
}

func TestReindexAndIndexFile(t *testing.T) {
	cfg := testConfig(t)
	comps := newComponents(t, cfg)
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Join(cfg.Storage.DocumentsDir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{"a.txt": "alpha\fbeta", "sub/b.txt": "gamma"} {
		if err := os.WriteFile(filepath.Join(cfg.Storage.DocumentsDir, filepath.FromSlash(name)), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	total, results, err := reindexDocuments(ctx, comps, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(results) != 2 || countFailed(results) != 0 {
		t.Fatalf("reindex: total=%d results=%+v", total, results)
	}

	outside := filepath.Join(t.TempDir(), "extra.txt")
	if err := os.WriteFile(outside, []byte("delta"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := indexFile(ctx, comps, cfg, outside)
	if err != nil {
		t.Fatal(err)
	}
	if res.Document != "extra.txt" || res.Pages != 1 {
		t.Errorf("indexFile = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.DocumentsDir, "extra.txt")); err != nil {
		t.Errorf("file not copied into documents dir: %v", err)
	}

	if _, err := indexFile(ctx, comps, cfg, filepath.Join(t.TempDir(), "x.exe")); err == nil {
		t.Error("expected unsupported format error")
	}

	// A fresh set of components sees the saved index.
	reloaded := newComponents(t, cfg)
	if reloaded.Corpus.Count() != 4 {
		t.Errorf("reloaded pages = %d, want 4", reloaded.Corpus.Count())
	}

	status, err := localStatus(ctx, reloaded, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if status.DocumentsOnDisk != 3 || status.Vectors != 4 || status.Records != 4 {
		t.Errorf("status = %+v", status)
	}
	if status.LastRun == nil || status.LastRun.Pages != 3 {
		t.Errorf("last run = %+v", status.LastRun)
	}

	var buf bytes.Buffer
	writeStatusText(&buf, status)
	if !strings.Contains(buf.String(), "vectors:            4") {
		t.Errorf("status text:\n%s", buf.String())
	}
}

func TestIndexFile_ReplacesInsteadOfDuplicating(t *testing.T) {
	cfg := testConfig(t)
	comps := newComponents(t, cfg)
	ctx := context.Background()
	if err := os.MkdirAll(cfg.Storage.DocumentsDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfg.Storage.DocumentsDir, "a.txt")
	if err := os.WriteFile(path, []byte("alpha\fbeta"), 0644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		res, err := indexFile(ctx, comps, cfg, path)
		if err != nil {
			t.Fatal(err)
		}
		if res.Pages != 2 || comps.Corpus.Count() != 2 {
			t.Fatalf("run %d: pages=%d count=%d, want 2 and 2", i, res.Pages, comps.Corpus.Count())
		}
	}

	if err := os.WriteFile(path, []byte("alpha\fbeta\fgamma"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := indexFile(ctx, comps, cfg, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 3 || comps.Corpus.Count() != 3 {
		t.Errorf("after change: pages=%d count=%d, want 3 and 3", res.Pages, comps.Corpus.Count())
	}
}

func TestDocumentName(t *testing.T) {
	docs := filepath.Join(t.TempDir(), "documents")
	tests := []struct {
		path     string
		wantName string
		wantDest string
	}{
		{filepath.Join(docs, "a.pdf"), "a.pdf", filepath.Join(docs, "a.pdf")},
		{filepath.Join(docs, "sub", "b.pdf"), "sub/b.pdf", filepath.Join(docs, "sub", "b.pdf")},
		{filepath.Join(filepath.Dir(docs), "c.pdf"), "c.pdf", filepath.Join(docs, "c.pdf")},
	}
	for _, tt := range tests {
		name, dest, err := documentName(docs, tt.path)
		if err != nil {
			t.Fatal(err)
		}
		if name != tt.wantName || dest != tt.wantDest {
			t.Errorf("documentName(%q) = %q, %q; want %q, %q", tt.path, name, dest, tt.wantName, tt.wantDest)
		}
	}
}
