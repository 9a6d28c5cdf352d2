package charts

import (
	"fmt"

	"salesprobe/domain/sales"
	"salesprobe/internal/aggregate"
	"salesprobe/internal/outliers"
	"salesprobe/internal/profiling"
)

// RankedBar charts a ranking, for example the top products by total purchase.
func RankedBar(title, xLabel, yLabel string, g aggregate.Grouped) Spec {
	categories := make([]string, len(g.Groups))
	values := make([]float64, len(g.Groups))
	for i, grp := range g.Groups {
		categories[i] = grp.Key.String()
		values[i] = grp.Value
	}
	return Spec{
		Kind:       Bar,
		Title:      title,
		XLabel:     xLabel,
		YLabel:     yLabel,
		Categories: categories,
		Series:     []Series{{Name: g.Value, Values: nullable(values)}},
	}
}

// MonthlyLine charts total sales per month.
func MonthlyLine(periods []aggregate.Period) Spec {
	categories := make([]string, len(periods))
	values := make([]float64, len(periods))
	for i, p := range periods {
		categories[i] = p.MonthYear
		values[i] = p.Total
	}
	return Spec{
		Kind:       Line,
		Title:      "Monthly Sales Trend",
		XLabel:     "Month-Year",
		YLabel:     "Total Purchase",
		Categories: categories,
		Series:     []Series{{Name: sales.ColTotalPurchase, Values: nullable(values)}},
	}
}

// CorrelationHeatmap charts a correlation matrix. Undefined cells are null.
func CorrelationHeatmap(title string, m aggregate.Matrix) Spec {
	matrix := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		matrix[i] = nullable(row)
	}
	return Spec{
		Kind:       Heatmap,
		Title:      title,
		Categories: append([]string(nil), m.Labels...),
		Matrix:     matrix,
	}
}

// HistogramChart charts binned counts; each category names its bin range.
func HistogramChart(title, xLabel string, h aggregate.Histogram) Spec {
	categories := make([]string, len(h.Counts))
	for i := range h.Counts {
		categories[i] = fmt.Sprintf("[%g, %g)", h.Edges[i], h.Edges[i+1])
	}
	return Spec{
		Kind:       Histogram,
		Title:      title,
		XLabel:     xLabel,
		YLabel:     "Frequency",
		Categories: categories,
		Series:     []Series{{Name: "count", Values: nullable(h.Counts)}},
	}
}

// CustomerScatter plots purchase frequency against total spending per customer.
func CustomerScatter(customers []aggregate.Customer) Spec {
	x := make([]float64, len(customers))
	y := make([]float64, len(customers))
	for i, c := range customers {
		x[i] = float64(c.Frequency)
		y[i] = c.TotalSpending
	}
	return Spec{
		Kind:   Scatter,
		Title:  "Customer Frequency vs Spending",
		XLabel: "Distinct Invoices",
		YLabel: "Total Spending",
		Series: []Series{{Name: "customers", X: nullable(x), Values: nullable(y)}},
	}
}

// OutlierBoxplot draws the distribution of a column with its IQR fences.
func OutlierBoxplot(t sales.Table, column string) (Spec, error) {
	s, err := outliers.Summarize(t, column)
	if err != nil {
		return Spec{}, err
	}
	values := make([]float64, t.Len())
	for i, li := range t.Items {
		values[i], _ = li.Number(column)
	}
	median, err := profiling.Median(values)
	if err != nil {
		return Spec{}, err
	}
	box := &Box{
		Q1:       s.Bounds.Q1,
		Median:   median,
		Q3:       s.Bounds.Q3,
		Lower:    s.Bounds.Lower,
		Upper:    s.Bounds.Upper,
		Outliers: make([]float64, 0, s.Count),
	}
	for _, row := range s.Rows {
		box.Outliers = append(box.Outliers, values[row])
	}
	return Spec{
		Kind:   Boxplot,
		Title:  fmt.Sprintf("Outliers in %s", column),
		YLabel: column,
		Box:    box,
	}, nil
}
