package coercer

import (
	"errors"
	"testing"
	"time"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawInvoices() sales.RawTable {
	return sales.RawTable{
		Header: []string{"InvoiceNo", "StockCode", "Description", "Quantity", "InvoiceDate", "UnitPrice", "CustomerID", "Country"},
		Rows: [][]string{
			{"536365", "85123A", "WHITE HANGING HEART", "6", "12/1/2010 8:26", "2.55", "17850.0", "United Kingdom"},
			{"536366", "22633", "HAND WARMER  UNION JACK", "-2", "2010-12-01 08:28:00", "1,85", "", "France"},
		},
	}
}

func TestNormalize(t *testing.T) {
	raw := rawInvoices()
	table, err := Normalize(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, sales.SourceColumns, table.Columns)
	require.Equal(t, 2, table.Len())

	first := table.Items[0]
	assert.Equal(t, "536365", first.InvoiceNo)
	assert.Equal(t, 6.0, first.Quantity)
	assert.Equal(t, 2.55, first.UnitPrice)
	assert.Equal(t, sales.NewCustomerID("17850"), first.CustomerID)
	assert.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), first.InvoiceDate)

	second := table.Items[1]
	assert.Equal(t, -2.0, second.Quantity)
	assert.Equal(t, 1.85, second.UnitPrice)
	assert.False(t, second.CustomerID.Valid)
	assert.Equal(t, "HAND WARMER UNION JACK", second.Description)

	// input untouched
	assert.Equal(t, "17850.0", raw.Rows[0][6])
	assert.Equal(t, "InvoiceNo", raw.Header[0])
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "invoicedate", NormalizeColumnName("Invoice Date"))
	assert.Equal(t, "invoicedate", NormalizeColumnName("invoice_date"))
	assert.Equal(t, "unitprice", NormalizeColumnName("\ufeffUnitPrice "))
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sales.RawTable)
		kind   error
		column string
		row    int
	}{
		{
			name:   "bad date",
			mutate: func(r *sales.RawTable) { r.Rows[1][4] = "sometime in december" },
			kind:   core.ErrParse, column: sales.ColInvoiceDate, row: 1,
		},
		{
			name:   "bad quantity",
			mutate: func(r *sales.RawTable) { r.Rows[0][3] = "six" },
			kind:   core.ErrType, column: sales.ColQuantity, row: 0,
		},
		{
			name:   "fractional quantity",
			mutate: func(r *sales.RawTable) { r.Rows[0][3] = "2.5" },
			kind:   core.ErrType, column: sales.ColQuantity, row: 0,
		},
		{
			name:   "empty price without fill",
			mutate: func(r *sales.RawTable) { r.Rows[1][5] = "" },
			kind:   core.ErrType, column: sales.ColUnitPrice, row: 1,
		},
		{
			name:   "negative price",
			mutate: func(r *sales.RawTable) { r.Rows[1][5] = "-1" },
			kind:   core.ErrType, column: sales.ColUnitPrice, row: 1,
		},
		{
			name:   "missing column",
			mutate: func(r *sales.RawTable) { r.Header[3] = "Qty" },
			kind:   core.ErrMissingField, column: sales.ColQuantity, row: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawInvoices()
			tt.mutate(&raw)

			_, err := Normalize(raw, Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var fe *core.FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.column, fe.Column)
			assert.Equal(t, tt.row, fe.Row)
		})
	}
}

func TestNormalizeFill(t *testing.T) {
	raw := rawInvoices()
	raw.Rows[1][5] = ""

	table, err := Normalize(raw, Options{Fill: map[string]string{"UnitPrice": "0"}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, table.Items[1].UnitPrice)
}

func TestNormalizeOptionalColumns(t *testing.T) {
	raw := sales.RawTable{
		Header: []string{"quantity", "unitprice", "invoicedate"},
		Rows:   [][]string{{"1", "2", "2021-01-05"}},
	}
	table, err := Normalize(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{sales.ColQuantity, sales.ColUnitPrice, sales.ColInvoiceDate}, table.Columns)
	assert.False(t, table.Has(sales.ColCustomerID))
}

func TestNormalizePreferredLayout(t *testing.T) {
	raw := sales.RawTable{
		Header: []string{"quantity", "unitprice", "invoicedate"},
		Rows:   [][]string{{"1", "2", "05.01.2021"}},
	}
	_, err := Normalize(raw, Options{})
	require.ErrorIs(t, err, core.ErrParse)

	table, err := Normalize(raw, Options{DateLayout: "02.01.2006"})
	require.NoError(t, err)
	assert.Equal(t, time.January, table.Items[0].InvoiceDate.Month())
	assert.Equal(t, 5, table.Items[0].InvoiceDate.Day())
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"2.55":      2.55,
		"£3.10":     3.10,
		"(12)":      -12,
		"1,234.50":  1234.5,
		"1.234,50":  1234.5,
		"1 234,5":   1234.5,
		"1,234":     1234,
		"0,5":       0.5,
		"-3":        -3,
		"1e3":       1000,
		"  42  ":    42,
		"$1,000.00": 1000,
	}
	for in, want := range cases {
		got, ok := ParseNumber(in)
		if assert.True(t, ok, in) {
			assert.InDelta(t, want, got, 1e-9, in)
		}
	}

	for _, bad := range []string{"", "abc", "NaN", "Inf", "1..2"} {
		_, ok := ParseNumber(bad)
		assert.False(t, ok, bad)
	}
}
