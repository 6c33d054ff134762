// Package mysql provides the MySQL backend for the geodir store.
package mysql

import (
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// MySQL server error numbers classified by the dialect.
const (
	erDupEntry        = 1062
	erNoReferencedRow = 1452
	erRowIsReferenced = 1451
)

// Config holds MySQL connection configuration.
type Config = sqldb.Config

// Dialect implements sqldb.Dialect for MySQL ("?" placeholders).
type Dialect struct {
	sqldb.QuestionDialect
}

// Name returns "mysql".
func (Dialect) Name() string { return "mysql" }

// DriverName returns the go-sql-driver driver name.
func (Dialect) DriverName() string { return "mysql" }

// IsUniqueViolation reports ER_DUP_ENTRY.
func (Dialect) IsUniqueViolation(err error) bool {
	return hasNumber(err, erDupEntry)
}

// IsForeignKeyViolation reports ER_NO_REFERENCED_ROW_2 and ER_ROW_IS_REFERENCED_2.
func (Dialect) IsForeignKeyViolation(err error) bool {
	return hasNumber(err, erNoReferencedRow) || hasNumber(err, erRowIsReferenced)
}

func hasNumber(err error, number uint16) bool {
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == number
	}
	return false
}

// NormalizeDSN enables the driver options geodir relies on: multi-statement
// migration files and DATETIME columns scanned into time.Time.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewMySQLAdapter opens a pooled MySQL connection.
func NewMySQLAdapter(cfg Config, log logger.Logger) (*sqldb.Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	dsn, err := NormalizeDSN(cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.URL = dsn
	return sqldb.Open(cfg, Dialect{}, log)
}
