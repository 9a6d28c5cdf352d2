package segment

import (
	"fmt"
	"math"
	"testing"

	"salesprobe/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(values ...float64) Series {
	s := make(Series, len(values))
	for i, v := range values {
		s[i] = Point{Key: fmt.Sprintf("c%02d", i), Value: v}
	}
	return s
}

func TestQuantileBalanced(t *testing.T) {
	labels := []string{"Low", "Medium", "High", "Very High"}
	for n := 1; n <= 23; n++ {
		values := make([]float64, n)
		for i := range values {
			values[i] = float64((i * 7) % 5) // lots of ties
		}
		seg, err := Quantile(series(values...), 4, labels)
		require.NoError(t, err)
		assert.Equal(t, n, seg.Len())

		lo, hi := n, 0
		for _, c := range seg.Counts() {
			lo = min(lo, c.Count)
			hi = max(hi, c.Count)
		}
		assert.LessOrEqual(t, hi-lo, 1, "n=%d", n)
	}
}

func TestQuantileOrdersByValue(t *testing.T) {
	seg, err := Quantile(series(50, 10, 30, 20), 2, []string{"Low", "High"})
	require.NoError(t, err)

	tier, ok := seg.Lookup("c00")
	require.True(t, ok)
	assert.Equal(t, Tier{Name: "High", Rank: 1}, tier)
	tier, _ = seg.Lookup("c01")
	assert.Equal(t, "Low", tier.Name)
	tier, _ = seg.Lookup("c03")
	assert.Equal(t, "Low", tier.Name)
}

func TestQuantileSkipsNaN(t *testing.T) {
	seg, err := Quantile(series(1, math.NaN(), 3), 2, []string{"a", "b"})
	require.NoError(t, err)
	_, ok := seg.Lookup("c01")
	assert.False(t, ok)
	assert.Equal(t, 2, seg.Len())
}

func TestQuantileErrors(t *testing.T) {
	_, err := Quantile(series(1, 2), 0, nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = Quantile(series(1, 2), 3, []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestDuplicateKeysRejected(t *testing.T) {
	dup := append(series(1, 2, 3), Point{Key: "c01", Value: 9})

	_, err := Quantile(dup, 2, []string{"Low", "High"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Contains(t, err.Error(), `"c01"`)

	_, err = Fixed(dup, []float64{0, 5, 10}, []string{"Low", "High"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestFixedBins(t *testing.T) {
	bounds := []float64{0, 1, 5, 20}
	labels := []string{"One-time", "Occasional", "Regular"}
	seg, err := Fixed(series(0, 1, 1.5, 5, 20, 21, -1), bounds, labels)
	require.NoError(t, err)

	want := map[string]string{"c00": "One-time", "c01": "One-time", "c02": "Occasional", "c03": "Occasional", "c04": "Regular"}
	for key, name := range want {
		tier, ok := seg.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, name, tier.Name, key)
	}
	for _, key := range []string{"c05", "c06"} {
		_, ok := seg.Lookup(key)
		assert.False(t, ok, "%s is outside the boundaries", key)
	}

	assert.Equal(t, []Count{
		{Tier{"One-time", 0}, 2},
		{Tier{"Occasional", 1}, 2},
		{Tier{"Regular", 2}, 1},
	}, seg.Counts())
}

func TestFixedErrors(t *testing.T) {
	_, err := Fixed(series(1), []float64{1}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = Fixed(series(1), []float64{0, 5, 5}, []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = Fixed(series(1), []float64{0, 5}, []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestCombine(t *testing.T) {
	spend, err := Quantile(series(10, 20, 30), 3, []string{"Low", "Medium", "High"})
	require.NoError(t, err)
	freq, err := Fixed(series(1, 7, 500), []float64{0, 1, 20}, []string{"One-time", "Regular"})
	require.NoError(t, err)

	c := Combine(spend, freq)
	assert.Equal(t, 2, c.Len())

	v, ok := c.Lookup("c00")
	require.True(t, ok)
	assert.Equal(t, "Low-One-time", v.Name)
	assert.Equal(t, Tier{"One-time", 0}, v.Second)

	_, ok = c.Lookup("c02")
	assert.False(t, ok, "unsegmented in frequency")

	counts := c.Counts()
	require.Len(t, counts, 2)
	assert.Equal(t, "Low-One-time", counts[0].Combined.Name)
	assert.Equal(t, "Medium-Regular", counts[1].Combined.Name)
}
