package storage

import (
	"context"
	"sync"
	"time"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// MemoryStore keeps files in process memory. It backs tests and the
// STORAGE_BACKEND=memory mode.
type MemoryStore struct {
	mu     sync.RWMutex
	files  map[string]*domain.File // by ID
	order  []string                // IDs in creation order
	byPath map[string]string       // normalized path -> ID

	validator *domain.FilenameValidator
}

var _ domain.FileStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:     make(map[string]*domain.File),
		byPath:    make(map[string]string),
		validator: domain.NewFilenameValidator(),
	}
}

// ListFiles returns copies of all files in creation order
func (s *MemoryStore) ListFiles(ctx context.Context) ([]domain.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx, "list_files", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.File, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.files[id])
	}
	return result, nil
}

// CreateFile stores a new file. It fails with CONFLICT when the path is taken.
func (s *MemoryStore) CreateFile(ctx context.Context, filename, content, language string) (*domain.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx, "create_file", err)
	}
	if err := s.validator.Check(filename); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeFilename(filename)
	if _, exists := s.byPath[key]; exists {
		return nil, fileExists(filename)
	}

	file := newFile(filename, content, language, time.Now())
	s.files[file.ID] = &file
	s.order = append(s.order, file.ID)
	s.byPath[key] = file.ID

	result := file
	return &result, nil
}

// UpdateFileContent replaces the content of an existing file
func (s *MemoryStore) UpdateFileContent(ctx context.Context, file domain.File, content string) (*domain.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx, "update_file", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.files[file.ID]
	if !ok {
		return nil, fileNotFound(file)
	}

	existing.Content = content
	existing.Size = len(content)
	existing.UpdatedAt = time.Now()

	result := *existing
	return &result, nil
}

// HealthCheck verifies the indexes agree
func (s *MemoryStore) HealthCheck(ctx context.Context) domain.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := domain.HealthStatusHealthy
	message := "Storage is operating normally"
	details := map[string]any{
		"backend":    "memory",
		"file_count": len(s.order),
	}

	if len(s.files) != len(s.order) || len(s.byPath) != len(s.order) {
		status = domain.HealthStatusUnhealthy
		message = "Data structure inconsistency detected"
		details["map_size"] = len(s.files)
		details["list_size"] = len(s.order)
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// GetStats returns storage statistics
func (s *MemoryStore) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]domain.File, 0, len(s.order))
	for _, id := range s.order {
		files = append(files, *s.files[id])
	}

	stats := summarize(files)
	stats["backend"] = "memory"
	return stats
}
