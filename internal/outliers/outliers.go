// Package outliers detects and handles values outside the interquartile fences.
package outliers

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
	"salesprobe/internal/profiling"
)

// Columns that outlier handling supports.
var Columns = []string{sales.ColQuantity, sales.ColUnitPrice, sales.ColTotalPurchase}

// fence multiplies the IQR to get the distance of each bound from its quartile.
const fence = 1.5

// Policy decides what happens to rows outside the bounds.
type Policy string

const (
	Remove Policy = "remove"
	Cap    Policy = "cap"
)

// ParsePolicy maps a configuration or flag value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Remove, Cap:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidPolicy, s)
}

// Bounds are the IQR fences of one column.
type Bounds struct {
	Column string  `json:"column" yaml:"column"`
	Q1     float64 `json:"q1" yaml:"q1"`
	Q3     float64 `json:"q3" yaml:"q3"`
	IQR    float64 `json:"iqr" yaml:"iqr"`
	Lower  float64 `json:"lower" yaml:"lower"`
	Upper  float64 `json:"upper" yaml:"upper"`
}

// Contains reports whether v lies within [Lower, Upper].
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Clamp returns v moved to the nearest bound when outside.
func (b Bounds) Clamp(v float64) float64 {
	switch {
	case v < b.Lower:
		return b.Lower
	case v > b.Upper:
		return b.Upper
	}
	return v
}

// ComputeBounds computes the quartile fences of a column from the current table.
func ComputeBounds(t sales.Table, column string) (Bounds, error) {
	values, err := columnValues(t, column)
	if err != nil {
		return Bounds{}, err
	}
	if len(values) == 0 {
		return Bounds{}, core.NewInsufficientDataError("outlier bounds need at least one row")
	}

	sorted := profiling.Sorted(values)
	q1 := profiling.Quantile(sorted, 0.25)
	q3 := profiling.Quantile(sorted, 0.75)
	iqr := q3 - q1
	return Bounds{
		Column: column,
		Q1:     q1,
		Q3:     q3,
		IQR:    iqr,
		Lower:  q1 - fence*iqr,
		Upper:  q3 + fence*iqr,
	}, nil
}

// Identify returns the rows strictly outside the bounds, paired with their row
// index. The sequence reads the table lazily and can be iterated more than once.
func Identify(t sales.Table, column string) (iter.Seq2[int, sales.LineItem], error) {
	b, err := ComputeBounds(t, column)
	if err != nil {
		return nil, err
	}
	return outside(t, b), nil
}

func outside(t sales.Table, b Bounds) iter.Seq2[int, sales.LineItem] {
	return func(yield func(int, sales.LineItem) bool) {
		for i, li := range t.Items {
			v, _ := li.Number(b.Column)
			if b.Contains(v) {
				continue
			}
			if !yield(i, li) {
				return
			}
		}
	}
}

// Handle applies the policy to a column and returns a new table.
// Remove keeps in-bound rows in their original order. Cap clamps values to the
// nearest bound and keeps every row. Capping total_purchase is rejected because
// it is derived from quantity and unit price.
func Handle(t sales.Table, column string, policy Policy) (sales.Table, error) {
	switch policy {
	case Remove, Cap:
	default:
		return sales.Table{}, fmt.Errorf("%w: %q", core.ErrInvalidPolicy, policy)
	}
	if policy == Cap && column == sales.ColTotalPurchase {
		return sales.Table{}, core.NewInvalidArgumentError(
			"total_purchase is derived; cap quantity or unitprice instead")
	}

	b, err := ComputeBounds(t, column)
	if err != nil {
		return sales.Table{}, err
	}

	out := sales.Table{Columns: t.WithColumns()}
	if policy == Remove {
		out.Items = make([]sales.LineItem, 0, len(t.Items))
		for _, li := range t.Items {
			if v, _ := li.Number(column); b.Contains(v) {
				out.Items = append(out.Items, li)
			}
		}
		return out, nil
	}

	out.Items = make([]sales.LineItem, len(t.Items))
	for i, li := range t.Items {
		switch column {
		case sales.ColQuantity:
			li.Quantity = b.Clamp(li.Quantity)
		case sales.ColUnitPrice:
			li.UnitPrice = b.Clamp(li.UnitPrice)
		}
		out.Items[i] = li
	}
	return out, nil
}

// Summary reports the bounds of a column and the rows outside them.
type Summary struct {
	Bounds Bounds `json:"bounds" yaml:"bounds"`
	Count  int    `json:"count" yaml:"count"`
	Rows   []int  `json:"rows" yaml:"rows"`
}

// Summarize computes the bounds of a column and collects the outlying row indexes.
func Summarize(t sales.Table, column string) (Summary, error) {
	b, err := ComputeBounds(t, column)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Bounds: b, Rows: []int{}}
	for i := range outside(t, b) {
		s.Rows = append(s.Rows, i)
	}
	s.Count = len(s.Rows)
	return s, nil
}

func columnValues(t sales.Table, column string) ([]float64, error) {
	if !t.Has(column) {
		return nil, core.NewMissingFieldError(column)
	}
	if !slices.Contains(Columns, column) {
		return nil, core.NewInvalidArgumentError(fmt.Sprintf("outliers not supported for column %q", column))
	}
	values := make([]float64, len(t.Items))
	for i, li := range t.Items {
		values[i], _ = li.Number(column)
	}
	return values, nil
}
