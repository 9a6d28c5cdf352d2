package aggregate

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"

	"gonum.org/v1/gonum/stat"
)

// Pivot is a two-way table of reduced values. Cells[i][j] belongs to Index[i]
// and Columns[j]; empty cells hold the fill value (NaN by default).
type Pivot struct {
	IndexName  string      `json:"index_name" yaml:"index_name"`
	ColumnName string      `json:"column_name" yaml:"column_name"`
	Index      []string    `json:"index" yaml:"index"`
	Columns    []string    `json:"columns" yaml:"columns"`
	Cells      [][]float64 `json:"cells" yaml:"cells"`
}

// Column returns the values of one pivot column.
func (p Pivot) Column(j int) []float64 {
	col := make([]float64, len(p.Index))
	for i := range p.Index {
		col[i] = p.Cells[i][j]
	}
	return col
}

// NoFill leaves empty pivot cells as NaN.
var NoFill = math.NaN()

// PivotTable reduces value over every (index, columns) pair present in the
// table. Cells with no rows hold fill.
func PivotTable(t sales.Table, index, columns, value string, r Reduction, fill float64) (Pivot, error) {
	if r == Describe || !r.valid() {
		return Pivot{}, core.NewInvalidArgumentError(fmt.Sprintf("reduction %q cannot fill a pivot cell", r))
	}
	g, err := GroupBy(t, []string{index, columns}, value, r)
	if err != nil {
		return Pivot{}, err
	}

	p := Pivot{IndexName: index, ColumnName: columns}
	rowPos := make(map[string]int)
	colPos := make(map[string]int)
	for _, grp := range g.Groups {
		if _, ok := rowPos[grp.Key[0]]; !ok {
			rowPos[grp.Key[0]] = 0
			p.Index = append(p.Index, grp.Key[0])
		}
		if _, ok := colPos[grp.Key[1]]; !ok {
			colPos[grp.Key[1]] = 0
			p.Columns = append(p.Columns, grp.Key[1])
		}
	}
	sortLabels(index, p.Index)
	sortLabels(columns, p.Columns)
	for i, k := range p.Index {
		rowPos[k] = i
	}
	for j, k := range p.Columns {
		colPos[k] = j
	}

	p.Cells = make([][]float64, len(p.Index))
	for i := range p.Cells {
		row := make([]float64, len(p.Columns))
		for j := range row {
			row[j] = fill
		}
		p.Cells[i] = row
	}
	for _, grp := range g.Groups {
		p.Cells[rowPos[grp.Key[0]]][colPos[grp.Key[1]]] = grp.Value
	}
	return p, nil
}

func sortLabels(col string, labels []string) {
	slices.SortFunc(labels, func(a, b string) int {
		return compareValue(col, a, b)
	})
}

// Matrix is a square matrix labelled on both axes.
type Matrix struct {
	Labels []string    `json:"labels" yaml:"labels"`
	Values [][]float64 `json:"values" yaml:"values"`
}

// CorrelationMatrix computes the Pearson correlation between every pair of
// pivot columns over the rows where both are present. Pairs with fewer than
// two complete rows or zero variance get NaN.
func CorrelationMatrix(p Pivot) Matrix {
	n := len(p.Columns)
	m := Matrix{Labels: slices.Clone(p.Columns), Values: make([][]float64, n)}
	cols := make([][]float64, n)
	for j := range cols {
		cols[j] = p.Column(j)
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := pearson(cols[i], cols[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pearson(a, b []float64) float64 {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// CoOccurrence correlates product purchases across invoices. Each invoice and
// product pair is 1 when any line for it has a positive quantity, else 0, so a
// return on the same invoice does not cancel the purchase. Invoices with no
// positive line are left out. topN keeps the products present on the most
// invoices (0 keeps all).
func CoOccurrence(t sales.Table, topN int) (Matrix, error) {
	if topN < 0 {
		return Matrix{}, core.NewInvalidArgumentError(fmt.Sprintf("top n must not be negative, got %d", topN))
	}
	purchases := sales.Table{Columns: t.Columns}
	for _, li := range t.Items {
		if li.Quantity > 0 {
			purchases.Items = append(purchases.Items, li)
		}
	}
	basket, err := PivotTable(purchases, sales.ColInvoiceNo, sales.ColDescription, sales.ColQuantity, Sum, 0)
	if err != nil {
		return Matrix{}, err
	}

	type product struct {
		name     string
		col      int
		invoices int
	}
	products := make([]product, len(basket.Columns))
	for j, name := range basket.Columns {
		products[j] = product{name: name, col: j}
		for i := range basket.Index {
			if basket.Cells[i][j] > 0 {
				basket.Cells[i][j] = 1
				products[j].invoices++
			} else {
				basket.Cells[i][j] = 0
			}
		}
	}

	if topN > 0 && topN < len(products) {
		slices.SortStableFunc(products, func(a, b product) int {
			if c := cmp.Compare(b.invoices, a.invoices); c != 0 {
				return c
			}
			return cmp.Compare(a.name, b.name)
		})
		products = products[:topN]
		slices.SortFunc(products, func(a, b product) int { return cmp.Compare(a.col, b.col) })
	}

	filtered := Pivot{IndexName: basket.IndexName, ColumnName: basket.ColumnName, Index: basket.Index}
	filtered.Cells = make([][]float64, len(basket.Index))
	for i := range basket.Index {
		row := make([]float64, len(products))
		for k, p := range products {
			row[k] = basket.Cells[i][p.col]
		}
		filtered.Cells[i] = row
	}
	for _, p := range products {
		filtered.Columns = append(filtered.Columns, p.name)
	}
	return CorrelationMatrix(filtered), nil
}

// MarshalJSON encodes undefined correlations as null.
func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Labels []string     `json:"labels"`
		Values [][]*float64 `json:"values"`
	}{m.Labels, nullableRows(m.Values)})
}

// MarshalJSON encodes empty cells as null.
func (p Pivot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IndexName  string       `json:"index_name"`
		ColumnName string       `json:"column_name"`
		Index      []string     `json:"index"`
		Columns    []string     `json:"columns"`
		Cells      [][]*float64 `json:"cells"`
	}{p.IndexName, p.ColumnName, p.Index, p.Columns, nullableRows(p.Cells)})
}

func nullableRows(rows [][]float64) [][]*float64 {
	out := make([][]*float64, len(rows))
	for i, row := range rows {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				out[i][j] = &v
			}
		}
	}
	return out
}
