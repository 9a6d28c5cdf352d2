package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
	"salesprobe/internal"
	"salesprobe/internal/outliers"
	"salesprobe/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testOptions() PipelineOptions {
	return PipelineOptions{
		OutlierColumn:       sales.ColQuantity,
		OutlierPolicy:       outliers.Remove,
		SpendingLabels:      []string{"Low", "Medium", "High"},
		FrequencyBoundaries: []float64{0, 1, 5, 1e9},
		FrequencyLabels:     []string{"One-time", "Occasional", "Regular"},
		TopN:                10,
		CoOccurrenceTopN:    5,
		HistogramBins:       20,
	}
}

func generated() sales.RawTable {
	cfg := testkit.DefaultInvoiceConfig()
	cfg.CustomerCount = 40
	cfg.ProductCount = 20
	cfg.StartDate = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2011, 4, 30, 23, 59, 59, 0, time.UTC)
	return testkit.NewInvoiceDataGenerator(cfg).Generate()
}

func newService() *PipelineService {
	return NewPipelineService(internal.Discard())
}

func TestPipelineService_Run(t *testing.T) {
	raw := generated()
	res, err := newService().Run(context.Background(), raw, testOptions())
	require.NoError(t, err)

	r := res.Report
	m := r.Manifest
	assert.Equal(t, "memory", m.Source)
	assert.Equal(t, raw.Len(), m.RawRows)
	assert.Equal(t, raw.Len(), m.DerivedRows)
	assert.False(t, m.FinishedAt.IsZero())
	require.NoError(t, m.Validate())

	var stages []string
	for _, s := range m.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{"normalize", "derive", "outliers", "aggregate", "segment", "significance"}, stages)

	// every derived column is present
	for _, col := range sales.DerivedColumns {
		assert.True(t, res.Derived.Has(col), col)
	}

	assert.LessOrEqual(t, r.TopProducts.Len(), 10)
	assert.LessOrEqual(t, r.TopCategories.Len(), 5)
	assert.NotEmpty(t, r.MonthlySales)
	assert.Equal(t, "2011-01", r.MonthlySales[0].MonthYear)
	assert.Len(t, r.CoOccurrence.Labels, 5)
	assert.Equal(t, float64(raw.Len()), sum(r.QuantityHistogram.Counts))

	// seasonal pivot only covers the top products
	assert.LessOrEqual(t, len(r.Seasonal.Columns), r.TopProducts.Len())

	assert.Equal(t, r.Outliers.RowsBefore, res.Derived.Len())
	assert.Equal(t, r.Outliers.RowsAfter, res.Cleaned.Len())
	assert.Equal(t, r.Outliers.RowsBefore-r.Outliers.Summary.Count, r.Outliers.RowsAfter)

	seg := r.Segments
	assert.Equal(t, len(res.Customers), seg.Customers)
	var spending int
	for _, c := range seg.Spending {
		spending += c.Count
	}
	assert.Equal(t, seg.Customers, spending)
	assert.Equal(t, res.Combined.Len(), res.Frequency.Len())
	require.NotNil(t, seg.PurchaseFrequency)

	assert.Equal(t, weekdayTest, r.Significance.Test)
	if r.Significance.Skipped == "" {
		require.NotNil(t, r.Significance.Result)
		assert.Positive(t, r.Significance.Result.NA)
	}
}

func TestPipelineService_CapPolicyKeepsRows(t *testing.T) {
	opts := testOptions()
	opts.OutlierPolicy = outliers.Cap
	res, err := newService().Run(context.Background(), generated(), opts)
	require.NoError(t, err)
	assert.Equal(t, res.Derived.Len(), res.Cleaned.Len())

	b := res.Report.Outliers.Summary.Bounds
	for _, li := range res.Cleaned.Items {
		assert.True(t, b.Contains(li.Quantity))
	}
}

func TestPipelineService_RejectsCappedTotal(t *testing.T) {
	opts := testOptions()
	opts.OutlierColumn = sales.ColTotalPurchase
	opts.OutlierPolicy = outliers.Cap
	_, err := newService().Run(context.Background(), generated(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestPipelineService_InputErrors(t *testing.T) {
	raw := sales.RawTable{
		Header: testkit.Header,
		Rows: [][]string{
			{"536365", "85123A", "WHITE HANGING HEART", "six", "12/1/2010 8:26", "2.55", "17850.0", "United Kingdom"},
		},
	}
	_, err := newService().Run(context.Background(), raw, testOptions())
	require.Error(t, err)
	assert.True(t, core.IsInputError(err), err)

	_, err = newService().Run(context.Background(), sales.RawTable{Header: testkit.Header}, testOptions())
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestPipelineService_SkipsSignificanceWithoutWeekends(t *testing.T) {
	raw := sales.RawTable{
		Header: testkit.Header,
		Rows: [][]string{
			{"1", "A", "MUG", "2", "1/3/2011 9:00", "1.5", "100.0", "France"},
			{"2", "B", "PLATE", "1", "1/4/2011 9:00", "4", "101.0", "France"},
			{"3", "A", "MUG", "3", "1/5/2011 9:00", "1.5", "100.0", "Spain"},
		},
	}
	res, err := newService().Run(context.Background(), raw, testOptions())
	require.NoError(t, err)

	sig := res.Report.Significance
	assert.Nil(t, sig.Result)
	assert.False(t, sig.Significant)
	assert.Contains(t, sig.Skipped, "insufficient data")
}

func TestPipelineService_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newService().Run(ctx, generated(), testOptions())
	assert.True(t, errors.Is(err, context.Canceled), err)
}

func TestWriteReport(t *testing.T) {
	res, err := newService().Run(context.Background(), generated(), testOptions())
	require.NoError(t, err)

	var js bytes.Buffer
	require.NoError(t, WriteReport(&js, res.Report, FormatJSON))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	for _, key := range []string{"manifest", "descriptive", "top_products", "monthly_sales", "country_correlation", "outliers", "segments", "significance"} {
		assert.Contains(t, decoded, key)
	}

	var ym bytes.Buffer
	require.NoError(t, WriteReport(&ym, res.Report, FormatYAML))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Contains(t, fromYAML, "segments")

	assert.Error(t, WriteReport(&ym, res.Report, "xml"))
}

func TestBuildChartsAndCustomerFrame(t *testing.T) {
	res, err := newService().Run(context.Background(), generated(), testOptions())
	require.NoError(t, err)

	named, err := BuildCharts(res, sales.ColQuantity)
	require.NoError(t, err)
	names := make([]string, len(named))
	for i, n := range named {
		names[i] = n.Name
		assert.NoError(t, n.Spec.Validate(), n.Name)
	}
	assert.Contains(t, names, "monthly_sales")
	assert.Contains(t, names, "outliers_quantity")

	f := CustomerFrame(res)
	require.Len(t, f.Rows, len(res.Customers))
	for _, row := range f.Rows {
		assert.Len(t, row, len(f.Header))
		assert.NotEmpty(t, row[4], "every customer has a spending tier")
	}
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
