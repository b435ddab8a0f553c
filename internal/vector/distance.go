package vector

import "sort"

// SquaredL2 returns the squared Euclidean distance between a and b.
// The caller guarantees equal lengths.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// rankNeighbors orders neighbors by distance, then position, and keeps the first k.
func rankNeighbors(neighbors []Neighbor, k int) []Neighbor {
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].Position < neighbors[j].Position
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
