// Package sqlite wires a file-backed SQLite database into the source
// registry. SQLite is also the backend used for local smoke runs and the
// integration tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"batchfix/internal/source"
)

func init() {
	source.Register("sqlite", openDB)
}

func openDB(ctx context.Context, cfg source.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// SQLite allows one writer, and every pooled connection to :memory:
	// would otherwise be a distinct database.
	db.SetMaxOpenConns(1)
	// Enable foreign keys by default; ignore error if the pragma is refused.
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	return db, nil
}
