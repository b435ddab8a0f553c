package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingHandler struct {
	mu      sync.Mutex
	changed map[string]int
	removed []string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{changed: make(map[string]int)}
}

func (h *recordingHandler) Match(name string) bool {
	return filepath.Ext(name) == ".txt"
}

func (h *recordingHandler) Changed(_ context.Context, name, _ string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed[name]++
	return nil
}

func (h *recordingHandler) Removed(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed = append(h.removed, name)
	return nil
}

func (h *recordingHandler) changes(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.changed[name]
}

func (h *recordingHandler) removals() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.removed...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, root string, h Handler) *Watcher {
	t.Helper()
	w := NewWatcher(root, h, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		w.Stop()
		cancel()
	})
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	h := newRecordingHandler()
	startWatcher(t, dir, h)

	p := filepath.Join(dir, "a.txt")
	for i := 0; i < 5; i++ {
		writeFile(t, p, "revision")
	}
	writeFile(t, filepath.Join(dir, "ignored.bin"), "x")

	waitFor(t, func() bool { return h.changes("a.txt") > 0 })
	time.Sleep(200 * time.Millisecond)
	if got := h.changes("a.txt"); got != 1 {
		t.Errorf("a.txt delivered %d times, want 1", got)
	}
	if got := h.changes("ignored.bin"); got != 0 {
		t.Errorf("unmatched file delivered %d times", got)
	}
}

func TestWatcher_Remove(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "gone.txt")
	writeFile(t, p, "x")
	h := newRecordingHandler()
	startWatcher(t, dir, h)

	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(h.removals()) > 0 })
	if got := h.removals(); got[0] != "gone.txt" {
		t.Errorf("removed = %v", got)
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	h := newRecordingHandler()
	startWatcher(t, dir, h)

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(nested, "deep.txt"), "deep content")

	waitFor(t, func() bool { return h.changes("level1/level2/deep.txt") > 0 })
}

func TestWatcher_StartCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, root, newRecordingHandler())
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should exist after Start: %v", err)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir(), newRecordingHandler())
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestRelName(t *testing.T) {
	w := NewWatcher("/docs", newRecordingHandler())
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/docs/a.pdf", "a.pdf", true},
		{"/docs/sub/b.pdf", "sub/b.pdf", true},
		{"/docs", "", false},
		{"/other/a.pdf", "", false},
		{"/docs/../a.pdf", "", false},
	}
	for _, tt := range tests {
		got, ok := w.relName(filepath.FromSlash(tt.path))
		if got != tt.want || ok != tt.ok {
			t.Errorf("relName(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
