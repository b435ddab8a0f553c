package models

import "testing"

func TestRange_Label(t *testing.T) {
	tests := []struct {
		r    Range
		want string
	}{
		{Range{StartPage: 4, EndPage: 4}, "4"},
		{Range{StartPage: 1, EndPage: 2}, "1-2"},
		{Range{StartPage: 10, EndPage: 13}, "10-13"},
	}
	for _, tt := range tests {
		if got := tt.r.Label(); got != tt.want {
			t.Errorf("Label(%d,%d) = %q, want %q", tt.r.StartPage, tt.r.EndPage, got, tt.want)
		}
	}
}
