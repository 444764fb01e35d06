package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "files.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDialect_Rebind(t *testing.T) {
	q := `UPDATE files SET content=?, size=? WHERE id=?`
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, `UPDATE files SET content=$1, size=$2 WHERE id=$3`, Postgres.rebind(q))
}

func TestStore_CreateListUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateFile(ctx, "./src/App.js", "let a;", "javascript")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "src/App.js", created.Path)
	assert.Equal(t, "App.js", created.Name)
	assert.Equal(t, 6, created.Size)

	files, err := s.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, created.ID, files[0].ID)
	assert.Equal(t, "let a;", files[0].Content)
	assert.Equal(t, "javascript", files[0].Language)

	updated, err := s.UpdateFileContent(ctx, files[0], "let bb;")
	require.NoError(t, err)
	assert.Equal(t, "let bb;", updated.Content)
	assert.Equal(t, 7, updated.Size)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt.UnixNano(), updated.CreatedAt.UnixNano())
}

func TestStore_CreateConflictIsCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateFile(ctx, "README.md", "a", "markdown")
	require.NoError(t, err)

	_, err = s.CreateFile(ctx, "readme.md", "b", "markdown")
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestStore_CreateRejectsInvalidName(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateFile(context.Background(), "../escape.txt", "x", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION_FAILED")
}

func TestStore_UpdateMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpdateFileContent(context.Background(), domain.File{ID: "nope"}, "x")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "files.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, dbPath, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.CreateFile(ctx, "Dockerfile", "FROM alpine", "dockerfile")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	files, err := reopened.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Dockerfile", files[0].Path)
}

func TestMigrations_Versioned(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var v int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v))
	assert.Equal(t, LatestVersion, v)

	// Re-running is a no-op
	require.NoError(t, (migrator{db: s.db, dialect: SQLite}).upToLatest(ctx))

	var cnt int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&cnt))
	assert.Equal(t, 1, cnt)
}

func TestStore_HealthAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateFile(ctx, "a.go", "package a", "go")
	require.NoError(t, err)
	_, err = s.CreateFile(ctx, "b.go", "package b", "go")
	require.NoError(t, err)

	assert.Equal(t, domain.HealthStatusHealthy, s.HealthCheck(ctx).Status)

	stats := s.GetStats(ctx)
	assert.Equal(t, 2, stats["file_count"])
	assert.Equal(t, int64(18), stats["total_bytes"])
	assert.Equal(t, map[string]int{"go": 2}, stats["languages"])
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("CHATFILES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHATFILES_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := OpenPostgres(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.db.ExecContext(ctx, `DELETE FROM files`)
	require.NoError(t, err)

	created, err := s.CreateFile(ctx, "main.py", "print(1)", "python")
	require.NoError(t, err)

	updated, err := s.UpdateFileContent(ctx, *created, "print(2)")
	require.NoError(t, err)
	assert.Equal(t, "print(2)", updated.Content)
}
