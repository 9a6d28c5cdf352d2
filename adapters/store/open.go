// Package store bulk-loads sales tables into postgres or mysql.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"salesprobe/internal/config"
	"salesprobe/internal/errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Open connects to the configured database and checks the connection.
// Connection settings come only from configuration.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, errors.ConfigInvalid("database url is required (set DATABASE_URL)")
	}

	dsn := cfg.URL
	if cfg.Driver == "mysql" {
		var err error
		if dsn, err = toMySQLDSN(cfg.URL); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to open database", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}

// toMySQLDSN converts mysql:// and mariadb:// URLs to the driver's DSN format.
// Anything else is assumed to be a native DSN already.
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}

	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
		return "", fmt.Errorf("incomplete dsn: user, host and database are required")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
