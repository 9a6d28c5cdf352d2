package aggregate

import (
	"cmp"
	"slices"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
	"salesprobe/internal/profiling"

	"gonum.org/v1/gonum/stat"
)

// CentralTendency is the mean, median and mode of one column.
type CentralTendency struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	Mode   float64 `json:"mode" yaml:"mode"`
}

// Descriptive holds the headline statistics of purchase amounts and quantities.
type Descriptive struct {
	TotalPurchase CentralTendency `json:"total_purchase" yaml:"total_purchase"`
	Quantity      CentralTendency `json:"quantity" yaml:"quantity"`
}

// DescriptiveStats computes mean, median and mode of total purchase and quantity.
func DescriptiveStats(t sales.Table) (Descriptive, error) {
	if t.Len() == 0 {
		return Descriptive{}, core.NewInsufficientDataError("descriptive statistics need at least one row")
	}
	for _, col := range []string{sales.ColQuantity, sales.ColUnitPrice} {
		if !t.Has(col) {
			return Descriptive{}, core.NewMissingFieldError(col)
		}
	}

	totals := make([]float64, t.Len())
	quantities := make([]float64, t.Len())
	for i, li := range t.Items {
		totals[i] = li.TotalPurchase()
		quantities[i] = li.Quantity
	}

	var (
		d   Descriptive
		err error
	)
	if d.TotalPurchase, err = centralTendency(totals); err != nil {
		return Descriptive{}, err
	}
	if d.Quantity, err = centralTendency(quantities); err != nil {
		return Descriptive{}, err
	}
	return d, nil
}

func centralTendency(values []float64) (CentralTendency, error) {
	median, err := profiling.Median(values)
	if err != nil {
		return CentralTendency{}, err
	}
	mode, err := profiling.Mode(values)
	if err != nil {
		return CentralTendency{}, err
	}
	return CentralTendency{Mean: stat.Mean(values, nil), Median: median, Mode: mode}, nil
}

// Customer aggregates one customer's purchases.
type Customer struct {
	CustomerID    string  `json:"customer_id" yaml:"customer_id"`
	TotalSpending float64 `json:"total_spending" yaml:"total_spending"`
	Frequency     int     `json:"frequency" yaml:"frequency"`
	LineItems     int     `json:"line_items" yaml:"line_items"`
}

// Customers aggregates spend, distinct invoices and line count per customer,
// sorted by customer id. Rows without a customer are skipped.
func Customers(t sales.Table) ([]Customer, error) {
	for _, col := range []string{sales.ColCustomerID, sales.ColInvoiceNo} {
		if !t.Has(col) {
			return nil, core.NewMissingFieldError(col)
		}
	}

	type acc struct {
		Customer
		invoices map[string]struct{}
	}
	byID := make(map[string]*acc)
	for _, li := range t.Items {
		if !li.CustomerID.Valid {
			continue
		}
		a, ok := byID[li.CustomerID.Value]
		if !ok {
			a = &acc{Customer: Customer{CustomerID: li.CustomerID.Value}, invoices: make(map[string]struct{})}
			byID[li.CustomerID.Value] = a
		}
		a.TotalSpending += li.TotalPurchase()
		a.LineItems++
		a.invoices[li.InvoiceNo] = struct{}{}
	}

	out := make([]Customer, 0, len(byID))
	for _, a := range byID {
		a.Frequency = len(a.invoices)
		out = append(out, a.Customer)
	}
	slices.SortFunc(out, func(a, b Customer) int {
		return cmp.Compare(a.CustomerID, b.CustomerID)
	})
	return out, nil
}

// Period is the summed total purchase of one calendar month.
type Period struct {
	MonthYear string  `json:"month_year" yaml:"month_year"`
	Total     float64 `json:"total" yaml:"total"`
}

// MonthlySales sums total purchase per YYYY-MM period in chronological order.
func MonthlySales(t sales.Table) ([]Period, error) {
	if !t.Has(sales.ColInvoiceDate) {
		return nil, core.NewMissingFieldError(sales.ColInvoiceDate)
	}
	totals := make(map[string]float64)
	for _, li := range t.Items {
		totals[li.MonthYear()] += li.TotalPurchase()
	}
	out := make([]Period, 0, len(totals))
	for my, total := range totals {
		out = append(out, Period{MonthYear: my, Total: total})
	}
	slices.SortFunc(out, func(a, b Period) int {
		return cmp.Compare(a.MonthYear, b.MonthYear)
	})
	return out, nil
}
