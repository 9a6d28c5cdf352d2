package sales

import (
	"slices"
	"strconv"
	"time"
)

// Column names after normalization. Source columns come from the input file,
// derived columns are added by the feature deriver.
const (
	ColInvoiceNo   = "invoiceno"
	ColStockCode   = "stockcode"
	ColCustomerID  = "customerid"
	ColDescription = "description"
	ColQuantity    = "quantity"
	ColUnitPrice   = "unitprice"
	ColInvoiceDate = "invoicedate"
	ColCountry     = "country"

	ColTotalPurchase = "total_purchase"
	ColYear          = "year"
	ColMonth         = "month"
	ColMonthYear     = "month_year"
	ColDayOfWeek     = "day_of_week"
	ColIsWeekend     = "is_weekend"
	ColPriceCategory = "price_category"
)

// SourceColumns lists the recognized input columns in snapshot order.
var SourceColumns = []string{
	ColInvoiceNo, ColStockCode, ColCustomerID, ColDescription,
	ColQuantity, ColUnitPrice, ColInvoiceDate, ColCountry,
}

// DerivedColumns lists the columns the feature deriver adds, in snapshot order.
var DerivedColumns = []string{
	ColTotalPurchase, ColYear, ColMonth, ColMonthYear,
	ColDayOfWeek, ColIsWeekend, ColPriceCategory,
}

// AllColumns returns source and derived columns, the schema of a derived table.
func AllColumns() []string {
	return slices.Concat(SourceColumns, DerivedColumns)
}

// PriceCategory labels a unit price relative to its product's mean price.
type PriceCategory string

const (
	PriceUnset      PriceCategory = ""
	PriceDiscounted PriceCategory = "discounted"
	PriceRegular    PriceCategory = "regular"
)

// CustomerID is a nullable customer identity. An invalid id never groups
// with anything, including other invalid ids.
type CustomerID struct {
	Value string
	Valid bool
}

// NewCustomerID returns a valid id, or an invalid one for the empty string.
func NewCustomerID(v string) CustomerID {
	return CustomerID{Value: v, Valid: v != ""}
}

func (c CustomerID) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// LineItem is one invoice line.
type LineItem struct {
	InvoiceNo   string
	StockCode   string
	CustomerID  CustomerID
	Description string
	Quantity    float64 // negative for returns
	UnitPrice   float64
	InvoiceDate time.Time
	Country     string

	// Set by the feature deriver.
	Year          int
	Month         time.Month
	Weekday       time.Weekday
	IsWeekend     bool
	PriceCategory PriceCategory
}

// TotalPurchase is always recomputed from quantity and unit price.
func (li LineItem) TotalPurchase() float64 {
	return li.Quantity * li.UnitPrice
}

// MonthYear returns the YYYY-MM period of the invoice date.
func (li LineItem) MonthYear() string {
	return li.InvoiceDate.Format("2006-01")
}

// Table is an ordered collection of line items sharing one schema.
// Columns lists the lower-cased columns that are present.
type Table struct {
	Columns []string
	Items   []LineItem
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Items)
}

// Has reports whether the column is present.
func (t Table) Has(column string) bool {
	return slices.Contains(t.Columns, column)
}

// Clone returns a deep copy so that callers can modify rows freely.
func (t Table) Clone() Table {
	return Table{
		Columns: slices.Clone(t.Columns),
		Items:   slices.Clone(t.Items),
	}
}

// WithColumns returns a copy of the column list extended by the given names,
// skipping ones already present.
func (t Table) WithColumns(names ...string) []string {
	cols := slices.Clone(t.Columns)
	for _, n := range names {
		if !slices.Contains(cols, n) {
			cols = append(cols, n)
		}
	}
	return cols
}

// Number returns the numeric value of a numeric column for one row.
func (li LineItem) Number(column string) (float64, bool) {
	switch column {
	case ColQuantity:
		return li.Quantity, true
	case ColUnitPrice:
		return li.UnitPrice, true
	case ColTotalPurchase:
		return li.TotalPurchase(), true
	case ColYear:
		return float64(li.Year), true
	case ColMonth:
		return float64(li.Month), true
	}
	return 0, false
}

// IsNumeric reports whether the column has a numeric value per row.
func IsNumeric(column string) bool {
	_, ok := LineItem{}.Number(column)
	return ok
}

// Text returns the textual value of any column for one row.
func (li LineItem) Text(column string) string {
	switch column {
	case ColInvoiceNo:
		return li.InvoiceNo
	case ColStockCode:
		return li.StockCode
	case ColCustomerID:
		return li.CustomerID.String()
	case ColDescription:
		return li.Description
	case ColQuantity:
		return strconv.FormatFloat(li.Quantity, 'f', -1, 64)
	case ColUnitPrice:
		return strconv.FormatFloat(li.UnitPrice, 'f', -1, 64)
	case ColInvoiceDate:
		return li.InvoiceDate.Format("2006-01-02 15:04:05")
	case ColCountry:
		return li.Country
	case ColTotalPurchase:
		return strconv.FormatFloat(li.TotalPurchase(), 'f', -1, 64)
	case ColYear:
		return strconv.Itoa(li.Year)
	case ColMonth:
		return strconv.Itoa(int(li.Month))
	case ColMonthYear:
		return li.MonthYear()
	case ColDayOfWeek:
		return li.Weekday.String()
	case ColIsWeekend:
		return strconv.FormatBool(li.IsWeekend)
	case ColPriceCategory:
		return string(li.PriceCategory)
	}
	return ""
}

// Frame converts the table to a flat header + string rows representation.
func (t Table) Frame() Frame {
	f := Frame{Header: slices.Clone(t.Columns), Rows: make([][]string, 0, len(t.Items))}
	for _, li := range t.Items {
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = li.Text(col)
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}
