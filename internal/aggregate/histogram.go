package aggregate

import (
	"fmt"
	"math"

	"salesprobe/domain/core"
	"salesprobe/internal/profiling"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram counts values in equal-width bins. Edges has one more entry than
// Counts; bin i spans [Edges[i], Edges[i+1]).
type Histogram struct {
	Edges  []float64 `json:"edges" yaml:"edges"`
	Counts []float64 `json:"counts" yaml:"counts"`
}

// NewHistogram bins values into the given number of equal-width bins spanning
// the sample's range. The maximum falls into the last bin.
func NewHistogram(values []float64, bins int) (Histogram, error) {
	if bins < 1 {
		return Histogram{}, core.NewInvalidArgumentError(fmt.Sprintf("histogram needs at least one bin, got %d", bins))
	}
	if len(values) == 0 {
		return Histogram{}, core.NewInsufficientDataError("histogram needs at least one value")
	}

	sorted := profiling.Sorted(values)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	// gonum requires every value strictly below the last divider
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	return Histogram{
		Edges:  edges,
		Counts: stat.Histogram(nil, dividers, sorted, nil),
	}, nil
}
