package store

import (
	"fmt"
	"strings"

	"github.com/nimburion/geodir/pkg/config"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/store/mysql"
	"github.com/nimburion/geodir/pkg/store/postgres"
	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// NewSQLAdapter opens the relational store selected by cfg.Type.
func NewSQLAdapter(cfg config.DatabaseConfig, log logger.Logger) (*sqldb.Adapter, error) {
	conn := sqldb.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		QueryTimeout:    cfg.QueryTimeout,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case config.DatabaseTypePostgres:
		return postgres.NewPostgreSQLAdapter(conn, log)
	case config.DatabaseTypeMySQL:
		return mysql.NewMySQLAdapter(conn, log)
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: postgres, mysql)", cfg.Type)
	}
}

// DialectFor returns the SQL dialect for a database type without opening a connection.
func DialectFor(databaseType string) (sqldb.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(databaseType)) {
	case config.DatabaseTypePostgres:
		return postgres.Dialect{}, nil
	case config.DatabaseTypeMySQL:
		return mysql.Dialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: postgres, mysql)", databaseType)
	}
}
