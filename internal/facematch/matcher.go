// Package facematch decides whether two face embeddings belong to the same person.
package facematch

import (
	"fmt"
	"math"
	"strings"

	"github.com/coder/hnsw"
)

// Supported distance metrics.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// Matcher compares a query embedding against known embeddings.
// Two embeddings match when their distance is at most Tolerance.
type Matcher struct {
	metric    string
	distance  hnsw.DistanceFunc
	tolerance float64
}

// NewMatcher creates a matcher for the given metric and tolerance.
func NewMatcher(metric string, tolerance float64) (*Matcher, error) {
	metric = strings.ToLower(strings.TrimSpace(metric))

	var fn hnsw.DistanceFunc
	switch metric {
	case MetricEuclidean:
		fn = hnsw.EuclideanDistance
	case MetricCosine:
		fn = hnsw.CosineDistance
	default:
		return nil, fmt.Errorf("unknown distance metric %q (want %s or %s)", metric, MetricEuclidean, MetricCosine)
	}

	if tolerance <= 0 || math.IsNaN(tolerance) {
		return nil, fmt.Errorf("tolerance must be positive, got %v", tolerance)
	}

	return &Matcher{metric: metric, distance: fn, tolerance: tolerance}, nil
}

// Metric returns the distance metric name.
func (m *Matcher) Metric() string {
	return m.metric
}

// Tolerance returns the maximum distance still considered a match.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Distance returns the distance between a and b.
// Vectors of different or zero length are infinitely far apart.
func (m *Matcher) Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return float64(m.distance(a, b))
}

// Match returns the index of the first known embedding that matches query.
// Later candidates are never examined once a match is found.
func (m *Matcher) Match(query []float32, known [][]float32) (int, bool) {
	for i, candidate := range known {
		if m.Distance(query, candidate) <= m.tolerance {
			return i, true
		}
	}
	return -1, false
}

// Compare reports for every known embedding whether it matches query.
func (m *Matcher) Compare(query []float32, known [][]float32) []bool {
	matches := make([]bool, len(known))
	for i, candidate := range known {
		matches[i] = m.Distance(query, candidate) <= m.tolerance
	}
	return matches
}

// Distances returns the distance from query to every known embedding.
func (m *Matcher) Distances(query []float32, known [][]float32) []float64 {
	distances := make([]float64, len(known))
	for i, candidate := range known {
		distances[i] = m.Distance(query, candidate)
	}
	return distances
}
