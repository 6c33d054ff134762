// Package sqldb provides the relational store adapter shared by the PostgreSQL
// and MySQL backends: pooling, health checks, query timeouts and
// context-propagated transactions.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nimburion/geodir/pkg/observability/logger"
)

// Adapter wraps a *sql.DB opened for a specific Dialect.
type Adapter struct {
	db      *sql.DB
	dialect Dialect
	logger  logger.Logger
	config  Config
}

// Config holds connection configuration
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// Open opens and pings a database for the given dialect.
func Open(cfg Config, dialect Dialect, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if dialect == nil {
		return nil, fmt.Errorf("database dialect is required")
	}

	db, err := sql.Open(dialect.DriverName(), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect.Name(), err)
	}

	log.Info("database connection established",
		"dialect", dialect.Name(),
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
		"conn_max_lifetime", cfg.ConnMaxLifetime,
		"conn_max_idle_time", cfg.ConnMaxIdleTime,
	)

	return New(db, dialect, cfg, log), nil
}

// New wraps an already opened database handle.
func New(db *sql.DB, dialect Dialect, cfg Config, log logger.Logger) *Adapter {
	return &Adapter{
		db:      db,
		dialect: dialect,
		logger:  log,
		config:  cfg,
	}
}

// DB returns the underlying *sql.DB for direct access when needed
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Dialect returns the SQL dialect of the store.
func (a *Adapter) Dialect() Dialect {
	return a.dialect
}

// Ping verifies the database connection is alive
func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// HealthCheck verifies the database connection is healthy with a timeout
func (a *Adapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Error("database health check failed", "dialect", a.dialect.Name(), "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// Close gracefully closes the database connection
func (a *Adapter) Close() error {
	a.logger.Info("closing database connection", "dialect", a.dialect.Name())

	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// WithTransaction executes fn within a database transaction.
// The transaction is stored in the context handed to fn so that every
// Exec/Query issued through the adapter with that context joins it. When ctx
// already carries a transaction, fn runs inside it and the outer call owns
// commit and rollback.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GetTx(ctx); ok {
		return fn(ctx)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				a.logger.Error("failed to rollback transaction after panic",
					"panic", p,
					"rollback_error", rbErr,
				)
			}
			panic(p)
		}
	}()

	txCtx := context.WithValue(ctx, txContextKey, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			a.logger.Error("failed to rollback transaction",
				"original_error", err,
				"rollback_error", rbErr,
			)
			return fmt.Errorf("failed to rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type contextKey string

const txContextKey contextKey = "tx"

// GetTx extracts a transaction from the context, if present
func GetTx(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txContextKey).(*sql.Tx)
	return tx, ok
}

// ExecContext executes a statement in the context transaction when present.
func (a *Adapter) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if tx, ok := GetTx(ctx); ok {
		return tx.ExecContext(ctx, query, args...)
	}
	return a.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query in the context transaction when present.
func (a *Adapter) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if tx, ok := GetTx(ctx); ok {
		return tx.QueryContext(ctx, query, args...)
	}
	return a.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a single-row query in the context transaction when present.
func (a *Adapter) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	if tx, ok := GetTx(ctx); ok {
		return tx.QueryRowContext(ctx, query, args...)
	}
	return a.db.QueryRowContext(ctx, query, args...)
}

// WithQueryTimeout bounds ctx by the configured query timeout unless the
// caller already set a deadline. Callers must keep the returned context alive
// until every row obtained through it has been consumed.
func (a *Adapter) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.config.QueryTimeout)
}
