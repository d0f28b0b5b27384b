package dialect

import (
	"context"
	"database/sql/driver"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the two database operations the engine issues.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows. v, when
	// non-nil, receives the driver result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows into v.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// engine's clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the ExecQuerier interface with the Commit and Rollback methods.
type Tx interface {
	ExecQuerier
	driver.Tx
}
