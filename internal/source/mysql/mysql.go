// Package mysql wires the MySQL driver into the source registry. The DSN is
// validated with the driver's own parser to fail fast on obvious mistakes.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"batchfix/internal/source"
)

func init() {
	source.Register("mysql", openDB)
}

func openDB(ctx context.Context, cfg source.Config) (*sql.DB, error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return db, nil
}
