// Package features adds calendar fields and price categories to a normalized table.
package features

import (
	"time"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"

	"gonum.org/v1/gonum/stat"
)

var requiredColumns = []string{
	sales.ColQuantity, sales.ColUnitPrice, sales.ColInvoiceDate, sales.ColDescription,
}

// Derive returns a copy of t with year, month, weekday, weekend flag and price
// category set on every row. Total purchase needs no storage; it is always
// LineItem.TotalPurchase().
func Derive(t sales.Table) (sales.Table, error) {
	for _, col := range requiredColumns {
		if !t.Has(col) {
			return sales.Table{}, core.NewMissingFieldError(col)
		}
	}

	means := ProductMeanPrices(t)

	out := t.Clone()
	out.Columns = t.WithColumns(sales.DerivedColumns...)
	for i := range out.Items {
		li := &out.Items[i]
		li.Year = li.InvoiceDate.Year()
		li.Month = li.InvoiceDate.Month()
		li.Weekday = li.InvoiceDate.Weekday()
		li.IsWeekend = li.Weekday == time.Saturday || li.Weekday == time.Sunday
		li.PriceCategory = categorize(li.UnitPrice, means[li.Description])
	}
	return out, nil
}

// ProductMeanPrices computes the mean unit price per description over the whole table.
func ProductMeanPrices(t sales.Table) map[string]float64 {
	prices := make(map[string][]float64)
	for _, li := range t.Items {
		prices[li.Description] = append(prices[li.Description], li.UnitPrice)
	}
	means := make(map[string]float64, len(prices))
	for desc, p := range prices {
		means[desc] = stat.Mean(p, nil)
	}
	return means
}

func categorize(price, mean float64) sales.PriceCategory {
	if price < mean {
		return sales.PriceDiscounted
	}
	return sales.PriceRegular
}
