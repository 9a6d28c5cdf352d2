// Package charts turns analysis results into renderer-neutral chart specs and
// writes them as JSON documents.
package charts

import (
	"fmt"
	"math"

	"salesprobe/domain/core"
)

// Kind is the chart type.
type Kind string

const (
	Bar       Kind = "bar"
	Line      Kind = "line"
	Heatmap   Kind = "heatmap"
	Scatter   Kind = "scatter"
	Boxplot   Kind = "boxplot"
	Histogram Kind = "histogram"
)

// ParseKind validates a chart kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Bar, Line, Heatmap, Scatter, Boxplot, Histogram:
		return k, nil
	}
	return "", core.NewInvalidArgumentError(fmt.Sprintf("unknown chart kind %q", s))
}

// Series is one named sequence of values. X is only used by scatter charts.
// NaN values are encoded as null.
type Series struct {
	Name   string     `json:"name"`
	X      []*float64 `json:"x,omitempty"`
	Values []*float64 `json:"values"`
}

// Box is the five-number summary drawn by a boxplot.
type Box struct {
	Q1       float64   `json:"q1"`
	Median   float64   `json:"median"`
	Q3       float64   `json:"q3"`
	Lower    float64   `json:"lower_fence"`
	Upper    float64   `json:"upper_fence"`
	Outliers []float64 `json:"outliers"`
}

// Spec describes one chart. Categories label the x axis, or both axes of a heatmap.
type Spec struct {
	Kind       Kind         `json:"kind"`
	Title      string       `json:"title"`
	XLabel     string       `json:"x_label,omitempty"`
	YLabel     string       `json:"y_label,omitempty"`
	Categories []string     `json:"categories,omitempty"`
	Series     []Series     `json:"series,omitempty"`
	Matrix     [][]*float64 `json:"matrix,omitempty"`
	Box        *Box         `json:"box,omitempty"`
}

// Validate checks that the spec carries the data its kind needs.
func (s Spec) Validate() error {
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return err
	}
	switch s.Kind {
	case Bar, Line, Histogram:
		for _, series := range s.Series {
			if len(series.Values) != len(s.Categories) {
				return core.NewInvalidArgumentError(fmt.Sprintf(
					"%s chart %q: series %q has %d values for %d categories",
					s.Kind, s.Title, series.Name, len(series.Values), len(s.Categories)))
			}
		}
	case Scatter:
		for _, series := range s.Series {
			if len(series.X) != len(series.Values) {
				return core.NewInvalidArgumentError(fmt.Sprintf("scatter chart %q: x and y lengths differ", s.Title))
			}
		}
	case Heatmap:
		if len(s.Matrix) != len(s.Categories) {
			return core.NewInvalidArgumentError(fmt.Sprintf("heatmap %q: matrix is not labelled", s.Title))
		}
		for _, row := range s.Matrix {
			if len(row) != len(s.Categories) {
				return core.NewInvalidArgumentError(fmt.Sprintf("heatmap %q: matrix is not square", s.Title))
			}
		}
	case Boxplot:
		if s.Box == nil {
			return core.NewInvalidArgumentError(fmt.Sprintf("boxplot %q has no box", s.Title))
		}
	}
	return nil
}

func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}
