// Package postgres provides the PostgreSQL backend for the geodir store.
package postgres

import (
	"errors"

	"github.com/lib/pq"

	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// SQLSTATE codes classified by the dialect.
const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
)

// Config holds PostgreSQL connection configuration
type Config = sqldb.Config

// Dialect implements sqldb.Dialect for PostgreSQL ($n placeholders).
type Dialect struct {
	sqldb.DollarDialect
}

// Name returns "postgres".
func (Dialect) Name() string { return "postgres" }

// DriverName returns the lib/pq driver name.
func (Dialect) DriverName() string { return "postgres" }

// IsUniqueViolation reports SQLSTATE 23505.
func (Dialect) IsUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// IsForeignKeyViolation reports SQLSTATE 23503.
func (Dialect) IsForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}

// NewPostgreSQLAdapter opens a pooled PostgreSQL connection.
func NewPostgreSQLAdapter(cfg Config, log logger.Logger) (*sqldb.Adapter, error) {
	return sqldb.Open(cfg, Dialect{}, log)
}
