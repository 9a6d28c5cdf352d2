// Package profiling holds the numeric summaries shared by the analysis packages.
package profiling

import (
	"encoding/json"
	"math"
	"slices"

	"salesprobe/domain/core"

	"github.com/montanaflynn/stats"
)

// Summary is the describe() row for one numeric sample.
type Summary struct {
	Count    int     `json:"count" yaml:"count"`
	Mean     float64 `json:"mean" yaml:"mean"`
	Std      float64 `json:"std" yaml:"std"`
	Min      float64 `json:"min" yaml:"min"`
	Q25      float64 `json:"q25" yaml:"q25"`
	Median   float64 `json:"median" yaml:"median"`
	Q75      float64 `json:"q75" yaml:"q75"`
	Max      float64 `json:"max" yaml:"max"`
	Skewness float64 `json:"skewness" yaml:"skewness"`
}

// MarshalJSON encodes undefined statistics, such as Std of a single value, as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count    int      `json:"count"`
		Mean     *float64 `json:"mean"`
		Std      *float64 `json:"std"`
		Min      *float64 `json:"min"`
		Q25      *float64 `json:"q25"`
		Median   *float64 `json:"median"`
		Q75      *float64 `json:"q75"`
		Max      *float64 `json:"max"`
		Skewness *float64 `json:"skewness"`
	}{
		s.Count, finite(s.Mean), finite(s.Std), finite(s.Min), finite(s.Q25),
		finite(s.Median), finite(s.Q75), finite(s.Max), finite(s.Skewness),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Describe computes count, mean, sample std, min, quartiles, max and skewness.
// Std is NaN for a single observation.
func Describe(data []float64) (Summary, error) {
	if len(data) == 0 {
		return Summary{}, core.NewInsufficientDataError("describe needs at least one value")
	}

	sorted := Sorted(data)
	s := Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q75:    Quantile(sorted, 0.75),
		Std:    math.NaN(),
	}

	mean, err := stats.Mean(sorted)
	if err != nil {
		return Summary{}, err
	}
	s.Mean = mean

	if len(sorted) > 1 {
		std, err := stats.StandardDeviationSample(sorted)
		if err != nil {
			return Summary{}, err
		}
		s.Std = std
	}
	s.Skewness = skewness(sorted, s.Mean, s.Std)
	return s, nil
}

// Sorted returns an ascending copy of data.
func Sorted(data []float64) []float64 {
	out := slices.Clone(data)
	slices.Sort(out)
	return out
}

// Quantile returns the p-quantile of an ascending, non-empty sample by linear
// interpolation between order statistics (Hyndman-Fan type 7):
// h = (n-1)p, q = x[floor(h)] + (h-floor(h)) * (x[floor(h)+1] - x[floor(h)]).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Mode returns the most frequent value, the smallest one on ties.
func Mode(data []float64) (float64, error) {
	if len(data) == 0 {
		return 0, core.NewInsufficientDataError("mode needs at least one value")
	}
	modes, err := stats.Mode(data)
	if err != nil {
		return 0, err
	}
	// stats.Mode reports nothing when every value ties, so the whole sample is modal.
	if len(modes) == 0 {
		return stats.Min(data)
	}
	return stats.Min(modes)
}

// Median is the 0.5 quantile.
func Median(data []float64) (float64, error) {
	if len(data) == 0 {
		return 0, core.NewInsufficientDataError("median needs at least one value")
	}
	return Quantile(Sorted(data), 0.5), nil
}

// skewness computes sample skewness using the adjusted Fisher-Pearson coefficient.
func skewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 || math.IsNaN(stdDev) {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	return sumCubedDeviations / n * math.Sqrt(n*(n-1)) / (n - 2)
}
