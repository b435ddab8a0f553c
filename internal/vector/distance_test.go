package vector

import (
	"reflect"
	"testing"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 0},
		{[]float32{1, 0}, []float32{0, 1}, 2},
		{[]float32{0, 0, 0}, []float32{1, 2, 2}, 9},
	}
	for _, tt := range tests {
		if got := SquaredL2(tt.a, tt.b); got != tt.want {
			t.Errorf("SquaredL2(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRankNeighbors(t *testing.T) {
	in := []Neighbor{
		{Position: 7, Distance: 0.5},
		{Position: 3, Distance: 1},
		{Position: 2, Distance: 0.5},
		{Position: 0, Distance: 1},
		{Position: 1, Distance: 2},
	}
	got := rankNeighbors(in, 3)
	want := []Neighbor{{Position: 2, Distance: 0.5}, {Position: 7, Distance: 0.5}, {Position: 0, Distance: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rankNeighbors = %v, want %v", got, want)
	}
	if got := rankNeighbors([]Neighbor{{Position: 1}}, 5); len(got) != 1 {
		t.Errorf("k above length: %v", got)
	}
}
