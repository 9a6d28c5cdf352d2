package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
)

// Relation maps line items onto the rows of one table. Key is the dedupe key;
// ok is false for line items that have no row in the relation.
type Relation struct {
	Name    string
	Columns []string
	Key     func(li sales.LineItem) (key string, ok bool)
	Values  func(li sales.LineItem) []any
}

// ProductKey identifies a product by stock code, or by description when the
// stock code is missing.
func ProductKey(li sales.LineItem) string {
	if li.StockCode != "" {
		return li.StockCode
	}
	return li.Description
}

func nullableCustomer(id sales.CustomerID) sql.NullString {
	return sql.NullString{String: id.Value, Valid: id.Valid}
}

var (
	Customers = Relation{
		Name:    "customers",
		Columns: []string{"customer_id", "country"},
		Key: func(li sales.LineItem) (string, bool) {
			return li.CustomerID.Value, li.CustomerID.Valid
		},
		Values: func(li sales.LineItem) []any {
			return []any{li.CustomerID.Value, li.Country}
		},
	}

	Products = Relation{
		Name:    "products",
		Columns: []string{"product_key", "stock_code", "description"},
		Key: func(li sales.LineItem) (string, bool) {
			k := ProductKey(li)
			return k, k != ""
		},
		Values: func(li sales.LineItem) []any {
			return []any{ProductKey(li), li.StockCode, li.Description}
		},
	}

	Invoices = Relation{
		Name:    "invoices",
		Columns: []string{"invoice_no", "customer_id", "invoice_date", "country"},
		Key: func(li sales.LineItem) (string, bool) {
			return li.InvoiceNo, li.InvoiceNo != ""
		},
		Values: func(li sales.LineItem) []any {
			return []any{li.InvoiceNo, nullableCustomer(li.CustomerID), li.InvoiceDate.UTC(), li.Country}
		},
	}

	// LineItems dedupes on every column.
	LineItems = Relation{
		Name:    "line_items",
		Columns: []string{"invoice_no", "product_key", "customer_id", "quantity", "unit_price", "invoice_date", "country"},
		Key: func(li sales.LineItem) (string, bool) {
			return strings.Join([]string{
				li.InvoiceNo, ProductKey(li), li.CustomerID.String(),
				strconv.FormatFloat(li.Quantity, 'f', -1, 64),
				strconv.FormatFloat(li.UnitPrice, 'f', -1, 64),
				li.InvoiceDate.UTC().Format("2006-01-02T15:04:05"), li.Country,
			}, "\x00"), true
		},
		Values: func(li sales.LineItem) []any {
			return []any{
				li.InvoiceNo, ProductKey(li), nullableCustomer(li.CustomerID),
				int64(li.Quantity), li.UnitPrice, li.InvoiceDate.UTC(), li.Country,
			}
		},
	}
)

// Relations lists every relation in foreign key order.
var Relations = []Relation{Customers, Products, Invoices, LineItems}

// RelationByName looks up a relation.
func RelationByName(name string) (Relation, error) {
	for _, r := range Relations {
		if r.Name == name {
			return r, nil
		}
	}
	return Relation{}, core.NewInvalidArgumentError(fmt.Sprintf("unknown relation %q", name))
}

func (r Relation) insertSQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(r.Columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.Name, strings.Join(r.Columns, ", "), marks)
}
