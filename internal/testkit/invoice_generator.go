// Package testkit generates synthetic invoice data for tests and demos.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"salesprobe/domain/sales"
)

// InvoiceDateLayout is the invoice date format of the generated files.
const InvoiceDateLayout = "1/2/2006 15:04"

// Header is the column order of the generated files, as in the raw retail export.
var Header = []string{
	"InvoiceNo", "StockCode", "Description", "Quantity", "InvoiceDate", "UnitPrice", "CustomerID", "Country",
}

// InvoiceGeneratorConfig configures the invoice data generator
type InvoiceGeneratorConfig struct {
	CustomerCount          int       `json:"customer_count"`
	ProductCount           int       `json:"product_count"`
	AvgInvoicesPerCustomer float64   `json:"avg_invoices_per_customer"`
	AvgLinesPerInvoice     float64   `json:"avg_lines_per_invoice"`
	ReturnRate             float64   `json:"return_rate"`
	GuestRate              float64   `json:"guest_rate"`     // share of invoices without a customer id
	WeekendFactor          float64   `json:"weekend_factor"` // relative weekend sales volume
	StartDate              time.Time `json:"start_date"`
	EndDate                time.Time `json:"end_date"`
	Seed                   int64     `json:"seed"`
}

// DefaultInvoiceConfig returns sensible defaults for invoice data generation
func DefaultInvoiceConfig() InvoiceGeneratorConfig {
	return InvoiceGeneratorConfig{
		CustomerCount:          200,
		ProductCount:           60,
		AvgInvoicesPerCustomer: 4,
		AvgLinesPerInvoice:     6,
		ReturnRate:             0.03,
		GuestRate:              0.1,
		WeekendFactor:          0.4,
		StartDate:              time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC),
		EndDate:                time.Date(2011, 12, 9, 23, 59, 59, 0, time.UTC),
		Seed:                   42,
	}
}

type product struct {
	stockCode   string
	description string
	basePrice   float64
}

type customer struct {
	id      string
	country string
}

// InvoiceDataGenerator generates invoice line items in the raw retail export format
type InvoiceDataGenerator struct {
	config    InvoiceGeneratorConfig
	rng       *rand.Rand
	products  []product
	customers []customer
	nextNo    int
}

// NewInvoiceDataGenerator creates a new invoice data generator
func NewInvoiceDataGenerator(config InvoiceGeneratorConfig) *InvoiceDataGenerator {
	g := &InvoiceDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		nextNo: 536365,
	}
	g.products = g.catalogue()
	for i := 0; i < config.CustomerCount; i++ {
		g.customers = append(g.customers, customer{
			id:      strconv.Itoa(12346 + i),
			country: g.randomCountry(),
		})
	}
	return g
}

// Generate returns a raw table of line items, ordered by invoice number.
func (g *InvoiceDataGenerator) Generate() sales.RawTable {
	raw := sales.RawTable{Header: append([]string(nil), Header...)}

	for _, c := range g.customers {
		invoiceCount := int(math.Round(g.config.AvgInvoicesPerCustomer + g.rng.NormFloat64()))
		// Every customer buys at least once so that customer aggregates are populated.
		if invoiceCount < 1 {
			invoiceCount = 1
		}
		for i := 0; i < invoiceCount; i++ {
			cust := c
			if g.rng.Float64() < g.config.GuestRate {
				cust.id = ""
			}
			raw.Rows = append(raw.Rows, g.invoice(cust)...)
		}
	}
	return raw
}

// invoice generates the lines of one invoice and, sometimes, a return of one line.
func (g *InvoiceDataGenerator) invoice(c customer) [][]string {
	date := g.invoiceTime()
	no := strconv.Itoa(g.nextNo)
	g.nextNo++

	lineCount := int(math.Round(g.config.AvgLinesPerInvoice + g.rng.NormFloat64()*2))
	if lineCount < 1 {
		lineCount = 1
	}

	var rows [][]string
	for i := 0; i < lineCount; i++ {
		p := g.products[g.rng.Intn(len(g.products))]
		qty := 1 + g.rng.Intn(12)
		if g.rng.Float64() < 0.02 { // wholesale order
			qty *= 50
		}
		rows = append(rows, g.row(no, p, qty, date, g.price(p), c))
	}

	if g.rng.Float64() < g.config.ReturnRate {
		p := g.products[g.rng.Intn(len(g.products))]
		returned := date.Add(time.Duration(1+g.rng.Intn(72)) * time.Hour)
		rows = append(rows, g.row("C"+no, p, -(1 + g.rng.Intn(3)), returned, p.basePrice, c))
	}
	return rows
}

func (g *InvoiceDataGenerator) row(no string, p product, qty int, date time.Time, price float64, c customer) []string {
	customerID := ""
	if c.id != "" {
		customerID = c.id + ".0" // exports carry customer ids as floats
	}
	return []string{
		no,
		p.stockCode,
		p.description,
		strconv.Itoa(qty),
		date.Format(InvoiceDateLayout),
		strconv.FormatFloat(price, 'f', 2, 64),
		customerID,
		c.country,
	}
}

// price applies an occasional markdown to the product's base price.
func (g *InvoiceDataGenerator) price(p product) float64 {
	if g.rng.Float64() < 0.25 {
		return math.Round(p.basePrice*(0.6+g.rng.Float64()*0.3)*100) / 100
	}
	return p.basePrice
}

// invoiceTime picks a time inside the configured window during trading hours,
// thinning weekend days by WeekendFactor.
func (g *InvoiceDataGenerator) invoiceTime() time.Time {
	var t time.Time
	for attempt := 0; attempt < 100; attempt++ {
		t = g.randomTimeInRange(g.config.StartDate, g.config.EndDate)
		wd := t.Weekday()
		if (wd != time.Saturday && wd != time.Sunday) || g.rng.Float64() < g.config.WeekendFactor {
			break
		}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 8+g.rng.Intn(10), g.rng.Intn(60), 0, 0, time.UTC)
}

func (g *InvoiceDataGenerator) randomTimeInRange(start, end time.Time) time.Time {
	if start.After(end) {
		start, end = end, start // Swap if in wrong order
	}
	duration := end.Sub(start)
	if duration <= 0 {
		return start
	}
	randomDuration := time.Duration(g.rng.Int63n(int64(duration)))
	return start.Add(randomDuration)
}

func (g *InvoiceDataGenerator) catalogue() []product {
	adjectives := []string{"WHITE", "RED", "VINTAGE", "REGENCY", "JUMBO", "PINK", "SET OF 3", "HEART"}
	nouns := []string{"HANGING HEART T-LIGHT HOLDER", "METAL LANTERN", "CAKESTAND", "BAG RED RETROSPOT",
		"PARTY BUNTING", "ALARM CLOCK", "TEA CUP AND SAUCER", "CANDLE", "NAPKINS", "LUNCH BOX"}

	count := g.config.ProductCount
	if count < 1 {
		count = 1
	}
	seen := make(map[string]bool)
	products := make([]product, 0, count)
	for len(products) < count {
		desc := adjectives[g.rng.Intn(len(adjectives))] + " " + nouns[g.rng.Intn(len(nouns))]
		if seen[desc] {
			desc = fmt.Sprintf("%s %d", desc, len(products))
		}
		seen[desc] = true
		products = append(products, product{
			stockCode:   fmt.Sprintf("%05d", 20000+len(products)*37),
			description: desc,
			basePrice:   math.Round((0.4+g.rng.ExpFloat64()*3)*100) / 100,
		})
	}
	return products
}

func (g *InvoiceDataGenerator) randomCountry() string {
	countries := []string{"United Kingdom", "Germany", "France", "EIRE", "Spain", "Netherlands"}
	weights := []float64{0.8, 0.06, 0.05, 0.04, 0.03, 0.02} // UK dominates the export

	r := g.rng.Float64()
	cumulative := 0.0
	for i, weight := range weights {
		cumulative += weight
		if r <= cumulative {
			return countries[i]
		}
	}
	return countries[0]
}
