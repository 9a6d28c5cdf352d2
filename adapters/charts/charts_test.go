package charts

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
	"salesprobe/internal"
	"salesprobe/internal/aggregate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range []string{"bar", "line", "heatmap", "scatter", "boxplot", "histogram"} {
		got, err := ParseKind(k)
		require.NoError(t, err)
		assert.Equal(t, Kind(k), got)
	}
	_, err := ParseKind("pie")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestRankedBar(t *testing.T) {
	g := aggregate.Grouped{
		Keys:  []string{sales.ColDescription},
		Value: sales.ColTotalPurchase,
		Groups: []aggregate.Group{
			{Key: aggregate.GroupKey{"REGENCY CAKESTAND"}, Value: 164762.19},
			{Key: aggregate.GroupKey{"PARTY BUNTING"}, Value: 98302.98},
		},
	}
	spec := RankedBar("Top Products", "Product", "Total Purchase", g)
	require.NoError(t, spec.Validate())
	assert.Equal(t, Bar, spec.Kind)
	assert.Equal(t, []string{"REGENCY CAKESTAND", "PARTY BUNTING"}, spec.Categories)
	assert.Equal(t, 98302.98, *spec.Series[0].Values[1])
}

func TestCorrelationHeatmapEncodesNaNAsNull(t *testing.T) {
	m := aggregate.Matrix{
		Labels: []string{"France", "Spain"},
		Values: [][]float64{{1, math.NaN()}, {math.NaN(), math.NaN()}},
	}
	spec := CorrelationHeatmap("Country correlation", m)
	require.NoError(t, spec.Validate())

	data, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"matrix":[[1,null],[null,null]]`)
}

func TestHistogramChart(t *testing.T) {
	h, err := aggregate.NewHistogram([]float64{1, 2, 3, 4}, 3)
	require.NoError(t, err)
	spec := HistogramChart("Quantity", "Quantity", h)
	require.NoError(t, spec.Validate())
	assert.Equal(t, []string{"[1, 2)", "[2, 3)", "[3, 4)"}, spec.Categories)
}

func TestOutlierBoxplot(t *testing.T) {
	day := time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC)
	tbl := sales.Table{Columns: sales.AllColumns()}
	for _, q := range []float64{1, 2, 2, 3, 100} {
		tbl.Items = append(tbl.Items, sales.LineItem{Quantity: q, UnitPrice: 1, InvoiceDate: day})
	}
	spec, err := OutlierBoxplot(tbl, sales.ColQuantity)
	require.NoError(t, err)
	require.NoError(t, spec.Validate())
	assert.Equal(t, 2.0, spec.Box.Median)
	assert.Equal(t, 4.5, spec.Box.Upper)
	assert.Equal(t, []float64{100}, spec.Box.Outliers)
}

func TestValidateRejectsMismatchedSeries(t *testing.T) {
	spec := Spec{Kind: Line, Title: "bad", Categories: []string{"a"}, Series: []Series{{Name: "s", Values: nullable([]float64{1, 2})}}}
	assert.ErrorIs(t, spec.Validate(), core.ErrInvalidArgument)

	assert.ErrorIs(t, Spec{Kind: Boxplot}.Validate(), core.ErrInvalidArgument)
	assert.ErrorIs(t, Spec{Kind: "radar"}.Validate(), core.ErrInvalidArgument)
}

func TestEmitter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	e := NewEmitter(dir).WithLogger(internal.Discard())

	paths, err := e.EmitAll(context.Background(), []Named{
		{Name: "monthly_sales", Spec: MonthlyLine([]aggregate.Period{{MonthYear: "2010-12", Total: 10}})},
		{Name: "customers", Spec: CustomerScatter([]aggregate.Customer{{CustomerID: "1", TotalSpending: 7, Frequency: 1}})},
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(dir, "monthly_sales.json"))
	require.NoError(t, err)
	var got Spec
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, Line, got.Kind)
	assert.Equal(t, []string{"2010-12"}, got.Categories)

	_, err = e.Emit(context.Background(), "../escape", MonthlyLine(nil))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = e.Emit(context.Background(), "pie", Spec{Kind: "pie"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
