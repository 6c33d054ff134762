package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// Files are named <version>_<name>.<up|down>.sql.
var scriptName = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_\-]+)\.(up|down)\.sql$`)

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)
`

// Migration is one versioned schema change and its rollback.
type Migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// SchemaManager applies and reverts the directory schema, recording applied
// versions in schema_migrations.
type SchemaManager struct {
	db         *sql.DB
	dialect    sqldb.Dialect
	migrations []Migration
}

func newSchemaManager(db *sql.DB, dialect sqldb.Dialect, files fs.FS, dir string) (*SchemaManager, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if dialect == nil {
		return nil, fmt.Errorf("sql dialect is required")
	}
	migrations, err := loadMigrations(files, dir)
	if err != nil {
		return nil, err
	}
	return &SchemaManager{db: db, dialect: dialect, migrations: migrations}, nil
}

// Operations returns the command hooks backed by this manager.
func (m *SchemaManager) Operations() Operations {
	return Operations{Up: m.Up, Down: m.Down, Status: m.Status}
}

// Up applies every migration not yet recorded, oldest first.
func (m *SchemaManager) Up(ctx context.Context) (int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	recorded := versionSet(done)

	count := 0
	for _, mig := range m.migrations {
		if recorded[mig.Version] {
			continue
		}
		record := "INSERT INTO schema_migrations (version) VALUES (" + m.dialect.Placeholder(1) + ")"
		if err := m.step(ctx, mig, mig.UpSQL, record); err != nil {
			return count, fmt.Errorf("apply migration: %w", err)
		}
		count++
	}
	return count, nil
}

// Down reverts the newest steps applied migrations.
func (m *SchemaManager) Down(ctx context.Context, steps int) (int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(done) - 1; i >= 0 && count < steps; i-- {
		mig, ok := m.byVersion(done[i])
		if !ok {
			return count, fmt.Errorf("no migration script for applied version %d", done[i])
		}
		record := "DELETE FROM schema_migrations WHERE version = " + m.dialect.Placeholder(1)
		if err := m.step(ctx, mig, mig.DownSQL, record); err != nil {
			return count, fmt.Errorf("revert migration: %w", err)
		}
		count++
	}
	return count, nil
}

// Status lists applied versions in ascending order and what is still pending.
func (m *SchemaManager) Status(ctx context.Context) (*Status, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	recorded := versionSet(done)

	status := &Status{AppliedVersions: done, Pending: []PendingMigration{}}
	for _, mig := range m.migrations {
		if !recorded[mig.Version] {
			status.Pending = append(status.Pending, PendingMigration{Version: mig.Version, Name: mig.Name})
		}
	}
	return status, nil
}

// step runs a script and its bookkeeping statement in one transaction.
func (m *SchemaManager) step(ctx context.Context, mig Migration, script, record string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%d_%s: begin: %w", mig.Version, mig.Name, err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%d_%s: %w", mig.Version, mig.Name, err)
	}
	if _, err := tx.ExecContext(ctx, record, mig.Version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%d_%s: record version: %w", mig.Version, mig.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%d_%s: commit: %w", mig.Version, mig.Name, err)
	}
	return nil
}

// applied creates the version table when missing and returns the recorded
// versions in ascending order.
func (m *SchemaManager) applied(ctx context.Context) ([]int64, error) {
	if _, err := m.db.ExecContext(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	versions := []int64{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("read schema_migrations: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (m *SchemaManager) byVersion(version int64) (Migration, bool) {
	i := sort.Search(len(m.migrations), func(i int) bool { return m.migrations[i].Version >= version })
	if i < len(m.migrations) && m.migrations[i].Version == version {
		return m.migrations[i], true
	}
	return Migration{}, false
}

func versionSet(versions []int64) map[int64]bool {
	set := make(map[int64]bool, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	return set
}

// loadMigrations pairs the up and down scripts in dir and sorts them by
// version. Both halves are required; files not matching scriptName are ignored.
func loadMigrations(files fs.FS, dir string) ([]Migration, error) {
	if files == nil || strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("migration directory is required")
	}
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := map[int64]*Migration{}
	for _, entry := range entries {
		parts := scriptName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || parts == nil {
			continue
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
		body, err := fs.ReadFile(files, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: parts[2]}
			byVersion[version] = mig
		}
		if parts[3] == "up" {
			mig.UpSQL = string(body)
		} else {
			mig.DownSQL = string(body)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if strings.TrimSpace(mig.UpSQL) == "" || strings.TrimSpace(mig.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d_%s needs both up and down scripts", mig.Version, mig.Name)
		}
		migrations = append(migrations, *mig)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
