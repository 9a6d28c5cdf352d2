package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"salesprobe/adapters/charts"
	"salesprobe/domain/run"
	"salesprobe/domain/sales"
	"salesprobe/internal/aggregate"
	"salesprobe/internal/outliers"
	"salesprobe/internal/segment"
	"salesprobe/internal/significance"

	"gopkg.in/yaml.v3"
)

const weekdayTest = "welch_t_daily_total_weekday_vs_weekend"

// Report is the serializable outcome of one pipeline run.
type Report struct {
	Manifest           *run.Manifest           `json:"manifest" yaml:"manifest"`
	Descriptive        aggregate.Descriptive   `json:"descriptive" yaml:"descriptive"`
	TopProducts        aggregate.Grouped       `json:"top_products" yaml:"top_products"`
	TopCategories      aggregate.Grouped       `json:"top_categories_by_mean" yaml:"top_categories_by_mean"`
	TopCountries       aggregate.Grouped       `json:"top_countries" yaml:"top_countries"`
	MonthlySales       []aggregate.Period      `json:"monthly_sales" yaml:"monthly_sales"`
	Seasonal           aggregate.Pivot         `json:"seasonal" yaml:"seasonal"`
	CountryCorrelation aggregate.Matrix        `json:"country_correlation" yaml:"country_correlation"`
	CoOccurrence       aggregate.Matrix        `json:"co_occurrence" yaml:"co_occurrence"`
	QuantityHistogram  aggregate.Histogram     `json:"quantity_histogram" yaml:"quantity_histogram"`
	Outliers           OutlierReport           `json:"outliers" yaml:"outliers"`
	Segments           SegmentReport           `json:"segments" yaml:"segments"`
	Significance       SignificanceReport      `json:"significance" yaml:"significance"`
}

// OutlierReport describes the fences of the configured column and what the
// policy did to the table.
type OutlierReport struct {
	Summary    outliers.Summary `json:"summary" yaml:"summary"`
	Policy     outliers.Policy  `json:"policy" yaml:"policy"`
	RowsBefore int              `json:"rows_before" yaml:"rows_before"`
	RowsAfter  int              `json:"rows_after" yaml:"rows_after"`
}

// SegmentReport holds tier populations for both customer axes.
type SegmentReport struct {
	Customers         int                     `json:"customers" yaml:"customers"`
	Spending          []segment.Count         `json:"spending" yaml:"spending"`
	Frequency         []segment.Count         `json:"frequency" yaml:"frequency"`
	Combined          []segment.CombinedCount `json:"combined" yaml:"combined"`
	PurchaseFrequency *aggregate.Histogram    `json:"purchase_frequency,omitempty" yaml:"purchase_frequency,omitempty"`
}

// SignificanceReport is the weekday/weekend test outcome. Skipped carries the
// reason when either side had too few days.
type SignificanceReport struct {
	Test        string               `json:"test" yaml:"test"`
	Result      *significance.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Significant bool                 `json:"significant" yaml:"significant"`
	Skipped     string               `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Report formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// WriteReport encodes the report as YAML or JSON. Undefined statistics are
// .nan in YAML and null in JSON.
func WriteReport(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatYAML, "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown report format %q", format)
}

// BuildCharts assembles the chart specs of a finished run.
func BuildCharts(res *Result, outlierColumn string) ([]charts.Named, error) {
	r := res.Report
	named := []charts.Named{
		{Name: "top_products", Spec: charts.RankedBar("Top Products by Total Purchase", "Product", "Total Purchase", r.TopProducts)},
		{Name: "top_categories", Spec: charts.RankedBar("Top Categories by Average Purchase", "Category", "Average Purchase", r.TopCategories)},
		{Name: "top_countries", Spec: charts.RankedBar("Sales by Country", "Country", "Total Purchase", r.TopCountries)},
		{Name: "monthly_sales", Spec: charts.MonthlyLine(r.MonthlySales)},
		{Name: "country_correlation", Spec: charts.CorrelationHeatmap("Country Correlation Heatmap", r.CountryCorrelation)},
		{Name: "product_cooccurrence", Spec: charts.CorrelationHeatmap("Product Co-occurrence", r.CoOccurrence)},
		{Name: "quantity_distribution", Spec: charts.HistogramChart("Distribution of Quantity", sales.ColQuantity, r.QuantityHistogram)},
		{Name: "customer_spending", Spec: charts.CustomerScatter(res.Customers)},
	}
	if h := r.Segments.PurchaseFrequency; h != nil {
		named = append(named, charts.Named{Name: "purchase_frequency", Spec: charts.HistogramChart("Purchase Frequency per Customer", "line_items", *h)})
	}

	box, err := charts.OutlierBoxplot(res.Derived, outlierColumn)
	if err != nil {
		return nil, err
	}
	named = append(named, charts.Named{Name: "outliers_" + outlierColumn, Spec: box})
	return named, nil
}

// CustomerFrame lays out per-customer aggregates with their segment labels
// for snapshot writers. Unsegmented customers get empty labels.
func CustomerFrame(res *Result) sales.Frame {
	f := sales.Frame{
		Header: []string{sales.ColCustomerID, "total_spending", "frequency", "line_items", "spending_segment", "frequency_segment", "segment"},
		Rows:   make([][]string, 0, len(res.Customers)),
	}
	for _, c := range res.Customers {
		var spend, freq, both string
		if t, ok := res.Spending.Lookup(c.CustomerID); ok {
			spend = t.Name
		}
		if t, ok := res.Frequency.Lookup(c.CustomerID); ok {
			freq = t.Name
		}
		if t, ok := res.Combined.Lookup(c.CustomerID); ok {
			both = t.Name
		}
		f.Rows = append(f.Rows, []string{
			c.CustomerID,
			strconv.FormatFloat(c.TotalSpending, 'f', -1, 64),
			strconv.Itoa(c.Frequency),
			strconv.Itoa(c.LineItems),
			spend, freq, both,
		})
	}
	return f
}
