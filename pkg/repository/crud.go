// Package repository implements the directory's data-access and integrity
// layer: per-entity repositories over a relational store, the sort-string
// parser, pagination and the hierarchy rules applied on every write.
package repository

import (
	"context"
	"database/sql"

	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// SQLExecutor defines the interface for executing SQL queries
// This can be a *sql.DB, *sql.Tx, or any adapter that provides these methods
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB is the store contract the repositories run on. Statements issued with a
// context returned by WithTransaction join that transaction.
type DB interface {
	SQLExecutor
	TransactionManager
	Dialect() sqldb.Dialect
	WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc)
}

var _ DB = (*sqldb.Adapter)(nil)

// ListOptions carries the raw caller ordering and the parsed page window.
type ListOptions struct {
	// Sort is a sort string, "field[,dir](;field[,dir])*".
	Sort       string
	Pagination Pagination
}
