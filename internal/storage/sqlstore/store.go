// Package sqlstore is a relational FileStore over database/sql. SQLite is
// served by modernc.org/sqlite and PostgreSQL by the pgx stdlib driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// Dialect is the database/sql driver name
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "pgx"
)

// rebind rewrites ? placeholders to $N for PostgreSQL
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const fileColumns = `id, path, name, language, size, content, created_at, updated_at`

// Store implements domain.FileStore on a SQL database
type Store struct {
	db        *sql.DB
	dialect   Dialect
	validator *domain.FilenameValidator
	logger    zerolog.Logger
}

var _ domain.FileStore = (*Store)(nil)

// OpenSQLite opens (creating if needed) a SQLite database file and migrates it
func OpenSQLite(ctx context.Context, dbPath string, logger zerolog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path required")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open(string(SQLite), dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return New(ctx, db, SQLite, logger)
}

// OpenPostgres connects to PostgreSQL and migrates the schema
func OpenPostgres(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres DSN required")
	}

	db, err := sql.Open(string(Postgres), dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return New(ctx, db, Postgres, logger)
}

// New wraps an open database and applies pending migrations. On failure the
// database is closed.
func New(ctx context.Context, db *sql.DB, dialect Dialect, logger zerolog.Logger) (*Store, error) {
	if err := (migrator{db: db, dialect: dialect}).upToLatest(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:        db,
		dialect:   dialect,
		validator: domain.NewFilenameValidator(),
		logger:    logger.With().Str("component", "sqlstore").Str("dialect", string(dialect)).Logger(),
	}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// ListFiles returns all files ordered by path
func (s *Store) ListFiles(ctx context.Context) ([]domain.File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files ORDER BY path`)
	if err != nil {
		return nil, s.wrap(ctx, "list_files", "Failed to list files", err, nil)
	}
	defer rows.Close()

	files := []domain.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, s.wrap(ctx, "list_files", "Failed to read file row", err, nil)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, "list_files", "Failed to list files", err, nil)
	}
	return files, nil
}

// CreateFile inserts a new file. It fails with CONFLICT when the path is taken.
func (s *Store) CreateFile(ctx context.Context, filename, content, lang string) (*domain.File, error) {
	if err := s.validator.Check(filename); err != nil {
		return nil, err
	}

	p := strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/")
	p = path.Clean(strings.TrimPrefix(p, "./"))
	now := time.Now().UTC()
	f := domain.File{
		ID:        uuid.New().String(),
		Path:      p,
		Name:      path.Base(p),
		Language:  lang,
		Size:      len(content),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	details := map[string]any{"filename": filename}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.wrap(ctx, "create_file", "Failed to begin transaction", err, details)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(1) FROM files WHERE path_key=?`), domain.NormalizeFilename(p)).Scan(&exists)
	if err != nil {
		return nil, s.wrap(ctx, "create_file", "Failed to check for existing file", err, details)
	}
	if exists > 0 {
		return nil, domain.NewAppError(domain.ErrConflict, "File already exists", http.StatusConflict, details)
	}

	_, err = tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO files(id, path, path_key, name, language, size, content, created_at, updated_at) VALUES(?,?,?,?,?,?,?,?,?)`),
		f.ID, f.Path, domain.NormalizeFilename(p), f.Name, f.Language, f.Size, f.Content,
		formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return nil, s.wrap(ctx, "create_file", "Failed to insert file", err, details)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.wrap(ctx, "create_file", "Failed to commit file", err, details)
	}

	return &f, nil
}

// UpdateFileContent replaces the content of an existing file
func (s *Store) UpdateFileContent(ctx context.Context, file domain.File, content string) (*domain.File, error) {
	details := map[string]any{"id": file.ID, "path": file.Path}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE files SET content=?, size=?, updated_at=? WHERE id=?`),
		content, len(content), formatTime(now), file.ID,
	)
	if err != nil {
		return nil, s.wrap(ctx, "update_file", "Failed to update file", err, details)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.NewAppError(domain.ErrNotFound, "File not found", http.StatusNotFound, details)
	}

	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+fileColumns+` FROM files WHERE id=?`), file.ID)
	updated, err := scanFile(row)
	if err != nil {
		return nil, s.wrap(ctx, "update_file", "Failed to read updated file", err, details)
	}
	return &updated, nil
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatusHealthy
	message := "Storage is operating normally"
	details := map[string]any{
		"backend": string(s.dialect),
	}

	stats := s.db.Stats()
	details["open_connections"] = stats.OpenConnections

	if err := s.db.PingContext(ctx); err != nil {
		status = domain.HealthStatusUnhealthy
		message = "Database is not reachable"
		details["error"] = err.Error()
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// GetStats returns per-language counts
func (s *Store) GetStats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"backend": string(s.dialect),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT language, COUNT(1), COALESCE(SUM(size), 0) FROM files GROUP BY language`)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to collect storage stats")
		stats["error"] = err.Error()
		return stats
	}
	defer rows.Close()

	languages := make(map[string]int)
	fileCount, totalBytes := 0, int64(0)
	for rows.Next() {
		var lang string
		var count int
		var size int64
		if err := rows.Scan(&lang, &count, &size); err != nil {
			continue
		}
		languages[lang] = count
		fileCount += count
		totalBytes += size
	}

	stats["file_count"] = fileCount
	stats["total_bytes"] = totalBytes
	stats["languages"] = languages
	return stats
}

func (s *Store) wrap(ctx context.Context, operation, message string, err error, details any) error {
	if ctx.Err() != nil {
		return domain.NewAppErrorWithCause(domain.ErrTimeout, "Storage operation cancelled", http.StatusRequestTimeout, err, details).
			WithContext(ctx, operation)
	}
	return domain.NewStorageError(message, err, details).WithContext(ctx, operation)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (domain.File, error) {
	var f domain.File
	var created, updated string
	if err := row.Scan(&f.ID, &f.Path, &f.Name, &f.Language, &f.Size, &f.Content, &created, &updated); err != nil {
		return f, err
	}
	f.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	f.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return f, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
