// Package source contains the data-source contract and a registry of
// database backends. The pipeline only ever sees the narrow Conn surface:
// issue a selection statement and stream its rows, or submit a single
// corrective statement and learn how many rows it touched.
//
// Concrete backends (mysql, mssql, postgres, sqlite) live in subpackages and
// register themselves at init time; importing source/all enables every
// built-in backend.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config identifies the backend and how to reach it.
type Config struct {
	// Kind selects the registered backend (e.g. "mysql").
	Kind string

	// DSN is the backend-specific connection string.
	DSN string

	// ConnectTimeout bounds connection establishment (ping). Zero means a
	// 30 second default.
	ConnectTimeout time.Duration
}

// OpenFunc is a backend constructor. Implementations validate the DSN, open
// the database handle, and leave pinging to the shared Open wrapper.
type OpenFunc func(ctx context.Context, cfg Config) (*sql.DB, error)

var (
	regMu   sync.RWMutex
	openers = map[string]OpenFunc{}
)

// Register registers (or replaces) the constructor for a backend kind. It is
// typically called from backend packages' init functions.
func Register(kind string, fn OpenFunc) {
	regMu.Lock()
	defer regMu.Unlock()
	openers[kind] = fn
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(openers))
	for k := range openers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Conn is an open data-source connection. One Conn is constructed per phase
// by the orchestrator and closed when the phase ends; nothing holds a
// connection across continuous-mode wait intervals.
type Conn struct {
	db   *sql.DB
	kind string
}

// Open constructs the backend for cfg.Kind and verifies the connection with
// a bounded ping. An unknown kind or unreachable data source is a fatal
// configuration error for the caller.
func Open(ctx context.Context, cfg Config) (*Conn, error) {
	regMu.RLock()
	fn, ok := openers[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported source kind %q (registered: %v)", cfg.Kind, Kinds())
	}

	db, err := fn(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", cfg.Kind, err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s source: %w", cfg.Kind, err)
	}

	return &Conn{db: db, kind: cfg.Kind}, nil
}

// Wrap adapts an already-open handle into a Conn. Used by backends with
// extra setup steps and by tests.
func Wrap(db *sql.DB, kind string) *Conn { return &Conn{db: db, kind: kind} }

// Kind returns the backend kind this connection was opened with.
func (c *Conn) Kind() string { return c.kind }

// Query issues a selection statement and returns its streaming row cursor.
func (c *Conn) Query(ctx context.Context, stmt string) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("selection query: %w", err)
	}
	return rows, nil
}

// RowsUnknown is returned by Exec when the driver cannot report an affected
// row count for a successful statement.
const RowsUnknown int64 = -1

// Exec submits one statement. On success it returns the affected row count,
// or RowsUnknown when the driver does not report one; a non-nil error means
// the data source rejected the statement.
func (c *Conn) Exec(ctx context.Context, stmt string) (int64, error) {
	res, err := c.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return RowsUnknown, nil
	}
	return n, nil
}

// Close releases the underlying pool.
func (c *Conn) Close() error { return c.db.Close() }
