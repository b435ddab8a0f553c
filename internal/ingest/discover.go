package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hyperjump/pagesearch/internal/extract"
)

// DefaultPatterns matches every PDF under the documents directory.
var DefaultPatterns = []string{"**/*.pdf"}

// Discover walks dir and returns the regular files whose slash-separated path
// relative to dir matches any include pattern and no exclude pattern. Matching is
// case-insensitive. Results are sorted by name; the name is the relative path.
func Discover(dir string, includes, excludes []string) ([]extract.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var docs []extract.Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && matchAny(excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if Match(rel, includes, excludes) {
			docs = append(docs, extract.Document{Name: rel, Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Match reports whether the slash-separated relative name is selected by the
// include and exclude patterns. No includes means DefaultPatterns.
func Match(name string, includes, excludes []string) bool {
	if len(includes) == 0 {
		includes = DefaultPatterns
	}
	return matchAny(includes, name) && !matchAny(excludes, name)
}

func matchAny(patterns []string, path string) bool {
	path = strings.ToLower(path)
	for _, pattern := range patterns {
		matched, err := doublestar.Match(strings.ToLower(pattern), path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
