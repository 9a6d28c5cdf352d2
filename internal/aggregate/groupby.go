// Package aggregate computes grouped reductions, rankings and summary tables
// over a derived sales table.
package aggregate

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
	"salesprobe/internal/profiling"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reduction names how the values of a group collapse into one number.
type Reduction string

const (
	Sum           Reduction = "sum"
	Mean          Reduction = "mean"
	Median        Reduction = "median"
	Mode          Reduction = "mode"
	CountDistinct Reduction = "count_distinct"
	Describe      Reduction = "describe"
)

// numeric reports whether the reduction needs numeric values.
func (r Reduction) numeric() bool {
	return r != CountDistinct
}

func (r Reduction) valid() bool {
	switch r {
	case Sum, Mean, Median, Mode, CountDistinct, Describe:
		return true
	}
	return false
}

// GroupKey holds one value per grouping column.
type GroupKey []string

func (k GroupKey) String() string {
	return strings.Join(k, " | ")
}

// Group is one reduced group. Stats is set only for Describe, in which case
// Value carries the mean.
type Group struct {
	Key   GroupKey           `json:"key" yaml:"key"`
	Value float64            `json:"value" yaml:"value"`
	Stats *profiling.Summary `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Grouped is the result of GroupBy, sorted by key ascending.
type Grouped struct {
	Keys      []string  `json:"keys" yaml:"keys"`
	Value     string    `json:"value" yaml:"value"`
	Reduction Reduction `json:"reduction" yaml:"reduction"`
	Groups    []Group   `json:"groups" yaml:"groups"`
}

// Len returns the number of groups.
func (g Grouped) Len() int {
	return len(g.Groups)
}

// Ranked returns a copy ordered by value descending, ties broken by key ascending.
func (g Grouped) Ranked() Grouped {
	out := g
	out.Groups = slices.Clone(g.Groups)
	slices.SortStableFunc(out.Groups, func(a, b Group) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return compareKeys(g.Keys, a.Key, b.Key)
	})
	return out
}

// Head returns a copy holding at most the first n groups.
func (g Grouped) Head(n int) Grouped {
	out := g
	out.Groups = slices.Clone(g.Groups[:min(n, len(g.Groups))])
	return out
}

type bucket struct {
	key      GroupKey
	values   []float64
	distinct map[string]struct{}
}

// GroupBy groups rows by the key columns and reduces the value column.
// Rows without a customer are dropped when customerid is a key.
func GroupBy(t sales.Table, keys []string, value string, r Reduction) (Grouped, error) {
	if len(keys) == 0 {
		return Grouped{}, core.NewInvalidArgumentError("group by needs at least one key")
	}
	if !r.valid() {
		return Grouped{}, core.NewInvalidArgumentError(fmt.Sprintf("unknown reduction %q", r))
	}
	for _, col := range append(slices.Clone(keys), value) {
		if !t.Has(col) {
			return Grouped{}, core.NewMissingFieldError(col)
		}
	}
	if r.numeric() && !sales.IsNumeric(value) {
		return Grouped{}, core.NewInvalidArgumentError(
			fmt.Sprintf("%s needs a numeric column, %q is not", r, value))
	}

	byCustomer := slices.Contains(keys, sales.ColCustomerID)
	buckets := make(map[string]*bucket)
	for _, li := range t.Items {
		if byCustomer && !li.CustomerID.Valid {
			continue
		}
		key := make(GroupKey, len(keys))
		for i, col := range keys {
			key[i] = li.Text(col)
		}
		id := strings.Join(key, "\x00")
		b, ok := buckets[id]
		if !ok {
			b = &bucket{key: key, distinct: make(map[string]struct{})}
			buckets[id] = b
		}
		if r.numeric() {
			v, _ := li.Number(value)
			b.values = append(b.values, v)
		} else {
			b.distinct[li.Text(value)] = struct{}{}
		}
	}

	out := Grouped{Keys: slices.Clone(keys), Value: value, Reduction: r, Groups: make([]Group, 0, len(buckets))}
	for _, b := range buckets {
		g, err := reduceBucket(b, r)
		if err != nil {
			return Grouped{}, err
		}
		out.Groups = append(out.Groups, g)
	}
	slices.SortFunc(out.Groups, func(a, b Group) int {
		return compareKeys(keys, a.Key, b.Key)
	})
	return out, nil
}

func reduceBucket(b *bucket, r Reduction) (Group, error) {
	g := Group{Key: b.key}
	if r == Describe {
		s, err := profiling.Describe(b.values)
		if err != nil {
			return Group{}, err
		}
		g.Value = s.Mean
		g.Stats = &s
		return g, nil
	}
	v, err := reduce(b.values, len(b.distinct), r)
	if err != nil {
		return Group{}, err
	}
	g.Value = v
	return g, nil
}

// reduce collapses numeric values; distinct is only used by CountDistinct.
func reduce(values []float64, distinct int, r Reduction) (float64, error) {
	switch r {
	case Sum:
		return floats.Sum(values), nil
	case Mean:
		if len(values) == 0 {
			return math.NaN(), nil
		}
		return stat.Mean(values, nil), nil
	case Median:
		return profiling.Median(values)
	case Mode:
		return profiling.Mode(values)
	case CountDistinct:
		return float64(distinct), nil
	}
	return 0, core.NewInvalidArgumentError(fmt.Sprintf("reduction %q does not yield a single value", r))
}

// Top ranks the groups of one key column and returns at most n of them.
// An empty table yields an empty result.
func Top(t sales.Table, key, value string, r Reduction, n int) (Grouped, error) {
	if n < 0 {
		return Grouped{}, core.NewInvalidArgumentError(fmt.Sprintf("top n must not be negative, got %d", n))
	}
	g, err := GroupBy(t, []string{key}, value, r)
	if err != nil {
		return Grouped{}, err
	}
	return g.Ranked().Head(n), nil
}

// compareKeys orders keys column by column, numerically for numeric columns.
func compareKeys(cols []string, a, b GroupKey) int {
	for i := range a {
		var col string
		if i < len(cols) {
			col = cols[i]
		}
		if c := compareValue(col, a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareValue(col, a, b string) int {
	if sales.IsNumeric(col) {
		x, errA := strconv.ParseFloat(a, 64)
		y, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			return cmp.Compare(x, y)
		}
	}
	return strings.Compare(a, b)
}
