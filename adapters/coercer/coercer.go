// Package coercer turns a loosely typed RawTable into a typed sales.Table.
package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
)

// Options controls normalization.
type Options struct {
	// DateLayout, when set, is tried before the built-in layouts.
	DateLayout string
	// Fill supplies explicit replacements for empty cells, keyed by normalized
	// column name. Nothing is filled implicitly.
	Fill map[string]string
	// Location for layouts without a zone. Defaults to UTC.
	Location *time.Location
}

// Built-in invoice date layouts, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02-Jan-2006",
}

var requiredColumns = []string{sales.ColQuantity, sales.ColUnitPrice, sales.ColInvoiceDate}

// NormalizeColumnName lower-cases a header and drops spaces and underscores,
// so "Invoice Date", "invoice_date" and "InvoiceDate" all map to "invoicedate".
func NormalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.NewReplacer(" ", "", "_", "").Replace(name)
}

// Normalize coerces raw cells into typed line items. Unrecognized columns are
// dropped. The raw table is not modified.
func Normalize(raw sales.RawTable, opts Options) (sales.Table, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[string]int, len(raw.Header))
	for i, h := range raw.Header {
		name := NormalizeColumnName(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return sales.Table{}, core.NewMissingFieldError(col)
		}
	}

	var columns []string
	for _, col := range sales.SourceColumns {
		if _, ok := index[col]; ok {
			columns = append(columns, col)
		}
	}

	fill := make(map[string]string, len(opts.Fill))
	for k, v := range opts.Fill {
		fill[NormalizeColumnName(k)] = v
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return fill[col]
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return fill[col]
		}
		return v
	}

	items := make([]sales.LineItem, 0, len(raw.Rows))
	for r, row := range raw.Rows {
		qtyRaw := cell(row, sales.ColQuantity)
		qty, ok := ParseNumber(qtyRaw)
		if !ok {
			return sales.Table{}, core.NewTypeError(sales.ColQuantity, r, qtyRaw, "not numeric")
		}
		if qty != math.Trunc(qty) {
			return sales.Table{}, core.NewTypeError(sales.ColQuantity, r, qtyRaw, "not an integer")
		}

		priceRaw := cell(row, sales.ColUnitPrice)
		price, ok := ParseNumber(priceRaw)
		if !ok {
			return sales.Table{}, core.NewTypeError(sales.ColUnitPrice, r, priceRaw, "not numeric")
		}
		if price < 0 {
			return sales.Table{}, core.NewTypeError(sales.ColUnitPrice, r, priceRaw, "negative unit price")
		}

		dateRaw := cell(row, sales.ColInvoiceDate)
		date, ok := ParseTimestamp(dateRaw, opts.DateLayout, loc)
		if !ok {
			return sales.Table{}, core.NewParseError(sales.ColInvoiceDate, r, dateRaw, "unrecognized date")
		}

		items = append(items, sales.LineItem{
			InvoiceNo:   cell(row, sales.ColInvoiceNo),
			StockCode:   cell(row, sales.ColStockCode),
			CustomerID:  sales.NewCustomerID(normalizeIdentifier(cell(row, sales.ColCustomerID))),
			Description: normalizeString(cell(row, sales.ColDescription)),
			Quantity:    qty,
			UnitPrice:   price,
			InvoiceDate: date,
			Country:     normalizeString(cell(row, sales.ColCountry)),
		})
	}

	return sales.Table{Columns: columns, Items: items}, nil
}

// ParseNumber parses a numeric cell with tolerant rules: currency symbols,
// thousands separators, European decimals and parenthesized negatives.
func ParseNumber(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		commaIdx := strings.LastIndex(cleanVal, ",")
		periodIdx := strings.LastIndex(cleanVal, ".")
		if commaIdx > periodIdx {
			// 1.234,56 or 1 234,56
			cleanVal = strings.NewReplacer(".", "", " ", "").Replace(cleanVal)
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			// 1,234.56
			cleanVal = strings.NewReplacer(",", "", " ", "").Replace(cleanVal)
		}
	case hasComma:
		// A lone comma followed by exactly three digits is a thousands separator.
		parts := strings.Split(cleanVal, ",")
		if len(parts) == 2 && len(parts[1]) != 3 {
			cleanVal = parts[0] + "." + parts[1]
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// ParseTimestamp tries the preferred layout, then the built-in ones.
func ParseTimestamp(strVal, preferred string, loc *time.Location) (time.Time, bool) {
	strVal = strings.TrimSpace(strVal)
	if strVal == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	if preferred != "" {
		if t, err := time.ParseInLocation(preferred, strVal, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, strVal, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeIdentifier turns float-encoded integer ids ("17850.0") into "17850".
func normalizeIdentifier(s string) string {
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !strings.ContainsAny(s, "eE") {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

// normalizeString collapses inner whitespace and drops control characters.
// Case is kept: descriptions are category keys as written.
func normalizeString(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
