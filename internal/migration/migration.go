package migration

import (
	"context"
	"fmt"

	"salesprobe/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Dialect captures the DDL differences between the supported drivers.
type Dialect struct {
	Name          string
	AutoIncrement string
	Timestamp     string
	TableSuffix   string
}

var dialects = map[string]Dialect{
	"postgres": {
		Name:          "postgres",
		AutoIncrement: "BIGSERIAL PRIMARY KEY",
		Timestamp:     "TIMESTAMP",
	},
	"mysql": {
		Name:          "mysql",
		AutoIncrement: "BIGINT AUTO_INCREMENT PRIMARY KEY",
		Timestamp:     "DATETIME",
		TableSuffix:   " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	},
}

// DialectFor returns the dialect of a driver name.
func DialectFor(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", driver))
	}
	return d, nil
}

// MigrationRunner creates the sales schema: customers, products, invoices and
// line_items, in foreign key order.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	d, err := DialectFor(db.DriverName())
	if err != nil {
		return err
	}

	for _, step := range Statements(d) {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to %s", step.Name), err)
		}
	}
	return nil
}

// Step is one named DDL statement.
type Step struct {
	Name string
	SQL  string
}

// Statements returns the DDL for a dialect in execution order.
func Statements(d Dialect) []Step {
	return []Step{
		{"create customers table", fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS customers (
			customer_id VARCHAR(32) NOT NULL PRIMARY KEY,
			country VARCHAR(128)
		)%s`, d.TableSuffix)},
		{"create products table", fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS products (
			product_key VARCHAR(255) NOT NULL PRIMARY KEY,
			stock_code VARCHAR(32),
			description VARCHAR(255)
		)%s`, d.TableSuffix)},
		{"create invoices table", fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS invoices (
			invoice_no VARCHAR(32) NOT NULL PRIMARY KEY,
			customer_id VARCHAR(32),
			invoice_date %s NOT NULL,
			country VARCHAR(128),
			FOREIGN KEY (customer_id) REFERENCES customers (customer_id)
		)%s`, d.Timestamp, d.TableSuffix)},
		{"create line_items table", fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS line_items (
			id %s,
			invoice_no VARCHAR(32) NOT NULL,
			product_key VARCHAR(255) NOT NULL,
			customer_id VARCHAR(32),
			quantity INTEGER NOT NULL,
			unit_price NUMERIC(12,3) NOT NULL,
			invoice_date %s NOT NULL,
			country VARCHAR(128),
			FOREIGN KEY (invoice_no) REFERENCES invoices (invoice_no),
			FOREIGN KEY (product_key) REFERENCES products (product_key)
		)%s`, d.AutoIncrement, d.Timestamp, d.TableSuffix)},
	}
}
