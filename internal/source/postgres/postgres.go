// Package postgres wires the pgx driver (database/sql mode) into the source
// registry, so the batch reader and executor share one driver surface with
// the other backends.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"batchfix/internal/source"
)

func init() {
	source.Register("postgres", openDB)
}

func openDB(ctx context.Context, cfg source.Config) (*sql.DB, error) {
	if _, err := pgx.ParseConfig(cfg.DSN); err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return db, nil
}
