package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
	"salesprobe/internal"
	"salesprobe/internal/errors"
	"salesprobe/internal/metrics"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/schollz/progressbar/v3"
)

const savepoint = "salesprobe_row"

// IntegrityError is a constraint violation on one row. The batch it belongs
// to carries on without the row.
type IntegrityError struct {
	Relation string
	Row      int
	Key      string
	Cause    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s row %d (%s): %v", e.Relation, e.Row, e.Key, e.Cause)
}

func (e *IntegrityError) Unwrap() []error {
	return []error{core.ErrIntegrity, e.Cause}
}

// BatchReport summarizes one Load call.
type BatchReport struct {
	Relation     string            `json:"relation" yaml:"relation"`
	Attempted    int               `json:"attempted" yaml:"attempted"`
	Skipped      int               `json:"skipped" yaml:"skipped"`
	Deduplicated int               `json:"deduplicated" yaml:"deduplicated"`
	Inserted     int               `json:"inserted" yaml:"inserted"`
	Failures     []*IntegrityError `json:"-" yaml:"-"`
	Failed       int               `json:"failed" yaml:"failed"`
}

// Loader inserts sales tables into a database, one transaction per batch.
type Loader struct {
	db       *sqlx.DB
	logger   *internal.Logger
	progress io.Writer
}

// NewLoader creates a loader on an open database.
func NewLoader(db *sqlx.DB) *Loader {
	return &Loader{db: db, logger: internal.DefaultLogger.With("Loader")}
}

// WithLogger replaces the loader's logger.
func (l *Loader) WithLogger(logger *internal.Logger) *Loader {
	l.logger = logger
	return l
}

// WithProgress renders a progress bar to stderr while loading.
func (l *Loader) WithProgress(enabled bool) *Loader {
	if enabled {
		l.progress = os.Stderr
	} else {
		l.progress = nil
	}
	return l
}

type pendingRow struct {
	index int
	key   string
	item  sales.LineItem
}

// dedupe keeps the first line item per relation key, in table order.
func dedupe(rel Relation, t sales.Table) (rows []pendingRow, skipped, duplicates int) {
	seen := make(map[string]struct{}, t.Len())
	for i, li := range t.Items {
		key, ok := rel.Key(li)
		if !ok {
			skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, pendingRow{index: i, key: key, item: li})
	}
	return rows, skipped, duplicates
}

// Load inserts the relation's rows derived from t. Duplicate keys are dropped
// before insertion. Each row runs inside a savepoint so that an integrity
// violation only discards that row; any other error rolls the whole batch
// back and is returned.
func (l *Loader) Load(ctx context.Context, rel Relation, t sales.Table) (report BatchReport, err error) {
	rows, skipped, duplicates := dedupe(rel, t)
	report = BatchReport{
		Relation:     rel.Name,
		Attempted:    t.Len(),
		Skipped:      skipped,
		Deduplicated: duplicates,
	}
	metrics.SinkRows.WithLabelValues(rel.Name, metrics.OutcomeDeduplicated).Add(float64(duplicates))

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return report, errors.DatabaseError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.logger.Warn("rollback of %s batch failed: %v", rel.Name, rbErr)
			}
		}
	}()

	query := tx.Rebind(rel.insertSQL())
	bar := l.newBar(len(rows), rel.Name)

	for _, row := range rows {
		if err = l.insertRow(ctx, tx, rel, query, row, &report); err != nil {
			return report, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if err = tx.Commit(); err != nil {
		return report, errors.DatabaseError(fmt.Sprintf("failed to commit %s batch", rel.Name), err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	metrics.SinkRows.WithLabelValues(rel.Name, metrics.OutcomeInserted).Add(float64(report.Inserted))
	metrics.SinkRows.WithLabelValues(rel.Name, metrics.OutcomeFailed).Add(float64(report.Failed))
	l.logger.Info("%s: %d inserted, %d deduplicated, %d skipped, %d failed",
		rel.Name, report.Inserted, report.Deduplicated, report.Skipped, report.Failed)
	return report, nil
}

func (l *Loader) insertRow(ctx context.Context, tx *sqlx.Tx, rel Relation, query string, row pendingRow, report *BatchReport) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return errors.DatabaseError("failed to create savepoint", err)
	}

	_, err := tx.ExecContext(ctx, query, rel.Values(row.item)...)
	if err == nil {
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return errors.DatabaseError("failed to release savepoint", err)
		}
		report.Inserted++
		return nil
	}

	if !isIntegrityViolation(err) {
		return errors.DatabaseError(fmt.Sprintf("failed to insert %s row %d", rel.Name, row.index), err)
	}
	if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
		return errors.DatabaseError("failed to roll back to savepoint", rbErr)
	}
	report.Failures = append(report.Failures, &IntegrityError{Relation: rel.Name, Row: row.index, Key: row.key, Cause: err})
	report.Failed++
	l.logger.Debug("%s row %d rejected: %v", rel.Name, row.index, err)
	return nil
}

// LoadAll loads every relation in foreign key order and stops at the first
// fatal error.
func (l *Loader) LoadAll(ctx context.Context, t sales.Table) ([]BatchReport, error) {
	reports := make([]BatchReport, 0, len(Relations))
	for _, rel := range Relations {
		report, err := l.Load(ctx, rel, t)
		reports = append(reports, report)
		if err != nil {
			return reports, errors.Wrapf(err, "loading %s", rel.Name)
		}
	}
	return reports, nil
}

func (l *Loader) newBar(n int, name string) *progressbar.ProgressBar {
	if l.progress == nil || n == 0 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(l.progress),
		progressbar.OptionSetDescription("loading "+name),
		progressbar.OptionShowCount(),
	)
}

// isIntegrityViolation reports whether err is a constraint violation:
// postgres class 23, or mysql duplicate key, null and foreign key errors.
func isIntegrityViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	var myErr *mysql.MySQLError
	if stderrors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, 1048, 1451, 1452:
			return true
		}
	}
	return false
}
