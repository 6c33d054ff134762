package migrate

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/nimburion/geodir/pkg/store/sqldb"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var schemaFiles embed.FS

// SchemaDir returns the embedded migration directory for a dialect.
func SchemaDir(dialect sqldb.Dialect) (string, error) {
	if dialect == nil {
		return "", fmt.Errorf("sql dialect is required")
	}
	switch dialect.Name() {
	case "postgres", "mysql":
		return "migrations/" + dialect.Name(), nil
	default:
		return "", fmt.Errorf("no embedded schema for dialect %q", dialect.Name())
	}
}

// NewSchemaManager returns a manager over the embedded directory schema
// (countries, states, cities, postcodes, streets, addresses).
func NewSchemaManager(db *sql.DB, dialect sqldb.Dialect) (*SchemaManager, error) {
	dir, err := SchemaDir(dialect)
	if err != nil {
		return nil, err
	}
	return newSchemaManager(db, dialect, schemaFiles, dir)
}
