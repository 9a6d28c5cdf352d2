package migration

import (
	"context"
	"errors"
	"regexp"
	"testing"

	apperrors "salesprobe/internal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsPerDialect(t *testing.T) {
	pg, err := DialectFor("postgres")
	require.NoError(t, err)
	my, err := DialectFor("mysql")
	require.NoError(t, err)

	pgSteps := Statements(pg)
	mySteps := Statements(my)
	require.Len(t, pgSteps, 4)
	assert.Contains(t, pgSteps[3].SQL, "BIGSERIAL")
	assert.NotContains(t, pgSteps[3].SQL, "ENGINE")
	assert.Contains(t, mySteps[3].SQL, "AUTO_INCREMENT")
	assert.Contains(t, mySteps[2].SQL, "DATETIME")
	assert.Contains(t, mySteps[0].SQL, "ENGINE=InnoDB")

	_, err = DialectFor("sqlite3")
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestRunExecutesStepsInOrder(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "postgres")

	for _, table := range []string{"customers", "products", "invoices", "line_items"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, NewRunner().Run(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStopsOnFailure(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "mysql")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS customers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").WillReturnError(errors.New("denied"))

	err = NewRunner().Run(context.Background(), db)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "create products table")
	assert.NoError(t, mock.ExpectationsWereMet())
}
