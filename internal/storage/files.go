// Package storage provides FileStore implementations: in memory, and as real
// files under a directory. Relational backends live in storage/sqlstore.
package storage

import (
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// newFile builds a file handle with a fresh ID
func newFile(filename, content, language string, now time.Time) domain.File {
	p := cleanPath(filename)
	return domain.File{
		ID:        uuid.New().String(),
		Path:      p,
		Name:      path.Base(p),
		Language:  language,
		Size:      len(content),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// cleanPath is the stored form of a validated filename: forward slashes, no
// leading "./", original case kept
func cleanPath(filename string) string {
	p := strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/")
	return path.Clean(strings.TrimPrefix(p, "./"))
}

// summarize counts files per language
func summarize(files []domain.File) map[string]any {
	languages := make(map[string]int)
	totalBytes := 0
	for _, f := range files {
		languages[f.Language]++
		totalBytes += f.Size
	}
	return map[string]any{
		"file_count":  len(files),
		"total_bytes": totalBytes,
		"languages":   languages,
	}
}

func fileExists(filename string) error {
	return domain.NewAppError(
		domain.ErrConflict,
		"File already exists",
		http.StatusConflict,
		map[string]any{"filename": filename},
	)
}

func fileNotFound(file domain.File) error {
	return domain.NewAppError(
		domain.ErrNotFound,
		"File not found",
		http.StatusNotFound,
		map[string]any{"id": file.ID, "path": file.Path},
	)
}

func cancelled(ctx context.Context, operation string, err error) error {
	return domain.NewAppErrorWithCause(
		domain.ErrTimeout,
		"Storage operation cancelled",
		http.StatusRequestTimeout,
		err,
		map[string]any{"operation": operation},
	).WithContext(ctx, operation)
}
