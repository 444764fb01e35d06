package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations[i] brings the schema from version i to i+1. Statements are
// portable between SQLite and PostgreSQL.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS files (
            id TEXT PRIMARY KEY,
            path TEXT NOT NULL,
            path_key TEXT NOT NULL,
            name TEXT NOT NULL,
            language TEXT NOT NULL,
            size INTEGER NOT NULL,
            content TEXT NOT NULL,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_files_path_key ON files(path_key)`,
	},
	{
		`CREATE INDEX IF NOT EXISTS idx_files_language ON files(language)`,
	},
}

// LatestVersion is the schema version after all migrations
var LatestVersion = len(migrations)

// migrator tracks the schema version in a single-row schema_migrations table
type migrator struct {
	db      *sql.DB
	dialect Dialect
}

func (m migrator) ensureTable(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	var cnt int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&cnt); err != nil {
		return err
	}
	if cnt == 0 {
		_, err := m.db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(0)`)
		return err
	}
	return nil
}

func (m migrator) version(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	var v int
	if err := m.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// upToLatest applies each pending migration in its own transaction
func (m migrator) upToLatest(ctx context.Context) error {
	cur, err := m.version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > LatestVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", cur, LatestVersion)
	}

	for v := cur + 1; v <= LatestVersion; v++ {
		if err := m.apply(ctx, v); err != nil {
			return fmt.Errorf("migrate up to v%d: %w", v, err)
		}
	}
	return nil
}

func (m migrator) apply(ctx context.Context, v int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, stmt := range migrations[v-1] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx, m.dialect.rebind(`UPDATE schema_migrations SET version=?`), v); err != nil {
		return err
	}
	return tx.Commit()
}
