// Package segment assigns keyed values to ordered, labelled tiers.
package segment

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"salesprobe/domain/core"
)

// Point is one keyed value, for example a customer and their total spending.
type Point struct {
	Key   string
	Value float64
}

// Series is the input of a segmentation.
type Series []Point

// Tier is a segment label. Lower ranks hold lower values.
type Tier struct {
	Name string `json:"name" yaml:"name"`
	Rank int    `json:"rank" yaml:"rank"`
}

// Segmentation maps keys to tiers. Keys without a tier are unsegmented.
type Segmentation struct {
	Tiers      []Tier
	assignment map[string]Tier
	order      []string
}

func newSegmentation(tiers []Tier) Segmentation {
	return Segmentation{Tiers: tiers, assignment: make(map[string]Tier)}
}

func (s *Segmentation) assign(key string, t Tier) {
	if _, ok := s.assignment[key]; !ok {
		s.order = append(s.order, key)
	}
	s.assignment[key] = t
}

// Lookup returns the tier of a key; ok is false when the key is unsegmented.
func (s Segmentation) Lookup(key string) (Tier, bool) {
	t, ok := s.assignment[key]
	return t, ok
}

// Len returns the number of segmented keys.
func (s Segmentation) Len() int {
	return len(s.order)
}

// Keys returns the segmented keys in input order.
func (s Segmentation) Keys() []string {
	return slices.Clone(s.order)
}

// Count is the population of one tier.
type Count struct {
	Tier  Tier `json:"tier" yaml:"tier"`
	Count int  `json:"count" yaml:"count"`
}

// Counts returns the population of every tier in rank order, including empty tiers.
func (s Segmentation) Counts() []Count {
	byRank := make(map[int]int, len(s.Tiers))
	for _, t := range s.assignment {
		byRank[t.Rank]++
	}
	out := make([]Count, len(s.Tiers))
	for i, t := range s.Tiers {
		out[i] = Count{Tier: t, Count: byRank[t.Rank]}
	}
	return out
}

func tiers(labels []string) []Tier {
	out := make([]Tier, len(labels))
	for i, l := range labels {
		out[i] = Tier{Name: l, Rank: i}
	}
	return out
}

// Quantile splits the series into k tiers of equal population. Points are
// ranked by value with ties broken by key; rank i goes to tier floor(i*k/n), so
// tier sizes differ by at most one. NaN values are unsegmented and a repeated
// key is an InvalidArgumentError.
func Quantile(series Series, k int, labels []string) (Segmentation, error) {
	if k < 1 {
		return Segmentation{}, core.NewInvalidArgumentError(fmt.Sprintf("quantile segmentation needs k >= 1, got %d", k))
	}
	if len(labels) != k {
		return Segmentation{}, core.NewInvalidArgumentError(
			fmt.Sprintf("quantile segmentation needs %d labels, got %d", k, len(labels)))
	}
	if err := uniqueKeys(series); err != nil {
		return Segmentation{}, err
	}

	seg := newSegmentation(tiers(labels))
	ranked := make(Series, 0, len(series))
	for _, p := range series {
		if !math.IsNaN(p.Value) {
			ranked = append(ranked, p)
		}
	}
	slices.SortFunc(ranked, func(a, b Point) int {
		if c := cmp.Compare(a.Value, b.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	n := len(ranked)
	tierOf := make(map[string]Tier, n)
	for i, p := range ranked {
		tierOf[p.Key] = seg.Tiers[i*k/n]
	}
	for _, p := range series {
		if t, ok := tierOf[p.Key]; ok {
			seg.assign(p.Key, t)
		}
	}
	return seg, nil
}

// Fixed assigns tiers by boundaries. Tier i covers (b[i], b[i+1]], except the
// first tier which also includes b[0]. Values outside [b[0], b[last]] are
// unsegmented.
func Fixed(series Series, boundaries []float64, labels []string) (Segmentation, error) {
	if len(boundaries) < 2 {
		return Segmentation{}, core.NewInvalidArgumentError("fixed segmentation needs at least two boundaries")
	}
	for i := 1; i < len(boundaries); i++ {
		if !(boundaries[i] > boundaries[i-1]) {
			return Segmentation{}, core.NewInvalidArgumentError(
				fmt.Sprintf("boundaries must be strictly increasing, got %v", boundaries))
		}
	}
	if len(labels) != len(boundaries)-1 {
		return Segmentation{}, core.NewInvalidArgumentError(
			fmt.Sprintf("fixed segmentation needs %d labels, got %d", len(boundaries)-1, len(labels)))
	}
	if err := uniqueKeys(series); err != nil {
		return Segmentation{}, err
	}

	seg := newSegmentation(tiers(labels))
	for _, p := range series {
		if i, ok := bin(boundaries, p.Value); ok {
			seg.assign(p.Key, seg.Tiers[i])
		}
	}
	return seg, nil
}

// uniqueKeys rejects a series that names a key twice; each key holds one tier.
func uniqueKeys(series Series) error {
	seen := make(map[string]struct{}, len(series))
	for _, p := range series {
		if _, ok := seen[p.Key]; ok {
			return core.NewInvalidArgumentError(fmt.Sprintf("duplicate key %q in series", p.Key))
		}
		seen[p.Key] = struct{}{}
	}
	return nil
}

func bin(boundaries []float64, v float64) (int, bool) {
	if math.IsNaN(v) || v < boundaries[0] || v > boundaries[len(boundaries)-1] {
		return 0, false
	}
	// first boundary >= v closes the bin
	i, _ := slices.BinarySearch(boundaries, v)
	if i == 0 {
		return 0, true
	}
	return i - 1, true
}

// Combined is the pair of tiers a key holds in two segmentations.
type Combined struct {
	Name   string `json:"name" yaml:"name"`
	First  Tier   `json:"first" yaml:"first"`
	Second Tier   `json:"second" yaml:"second"`
}

// Combination maps keys segmented on both axes to their tier pair.
type Combination struct {
	assignment map[string]Combined
	order      []string
}

// Combine pairs the tiers of keys segmented in both a and b, labelled
// "<a>-<b>". Keys unsegmented in either are left out.
func Combine(a, b Segmentation) Combination {
	c := Combination{assignment: make(map[string]Combined)}
	for _, key := range a.order {
		tb, ok := b.Lookup(key)
		if !ok {
			continue
		}
		ta := a.assignment[key]
		c.assignment[key] = Combined{Name: ta.Name + "-" + tb.Name, First: ta, Second: tb}
		c.order = append(c.order, key)
	}
	return c
}

// Lookup returns the tier pair of a key.
func (c Combination) Lookup(key string) (Combined, bool) {
	v, ok := c.assignment[key]
	return v, ok
}

// Len returns the number of keys segmented on both axes.
func (c Combination) Len() int {
	return len(c.order)
}

// CombinedCount is the population of one tier pair.
type CombinedCount struct {
	Combined Combined `json:"combined" yaml:"combined"`
	Count    int      `json:"count" yaml:"count"`
}

// Counts returns the population of every occupied tier pair ordered by rank pair.
func (c Combination) Counts() []CombinedCount {
	byName := make(map[string]*CombinedCount)
	for _, key := range c.order {
		v := c.assignment[key]
		cc, ok := byName[v.Name]
		if !ok {
			cc = &CombinedCount{Combined: v}
			byName[v.Name] = cc
		}
		cc.Count++
	}
	out := make([]CombinedCount, 0, len(byName))
	for _, cc := range byName {
		out = append(out, *cc)
	}
	slices.SortFunc(out, func(x, y CombinedCount) int {
		if c := cmp.Compare(x.Combined.First.Rank, y.Combined.First.Rank); c != 0 {
			return c
		}
		return cmp.Compare(x.Combined.Second.Rank, y.Combined.Second.Rank)
	})
	return out
}
