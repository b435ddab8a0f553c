package utils

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxRunes 0 returns as-is")
	}
	if got := Truncate("héllo wörld", 4); got != "héll..." {
		t.Errorf("multibyte: got %q", got)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("alpha", 200); got != "alpha..." {
		t.Errorf("short text: got %q", got)
	}
	long := strings.Repeat("é", 250)
	got := Preview(long, 200)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("missing marker: %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != 200 {
		t.Errorf("kept %d runes, want 200", n)
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"  \n\t ":         "",
		"a  b\n\nc":       "a b c",
		" leading/trail ": "leading/trail",
	}
	for in, want := range tests {
		if got := CollapseSpace(in); got != want {
			t.Errorf("CollapseSpace(%q) = %q, want %q", in, got, want)
		}
	}
}
