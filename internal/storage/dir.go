package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/freewebtopdf/chatfiles/internal/domain"
	"github.com/freewebtopdf/chatfiles/internal/language"
)

const (
	metaDirName   = ".chatfiles"
	indexFileName = "index.yaml"
	indexVersion  = 1
)

// indexFile is the on-disk metadata sidecar
type indexFile struct {
	Version int           `yaml:"version"`
	Files   []domain.File `yaml:"files"`
}

// DirStore keeps each file as a real file under a root directory, with IDs and
// timestamps in .chatfiles/index.yaml. Files placed under the root by other
// tools are picked up on the next ListFiles.
type DirStore struct {
	mu     sync.RWMutex
	root   string
	files  map[string]*domain.File // by ID
	byPath map[string]string       // normalized path -> ID

	validator *domain.FilenameValidator
	logger    zerolog.Logger
}

var _ domain.FileStore = (*DirStore)(nil)

// NewDirStore creates a DirStore rooted at root. Call Load before use.
func NewDirStore(root string, logger zerolog.Logger) *DirStore {
	return &DirStore{
		root:      root,
		files:     make(map[string]*domain.File),
		byPath:    make(map[string]string),
		validator: domain.NewFilenameValidator(),
		logger:    logger.With().Str("component", "dirstore").Str("root", root).Logger(),
	}
}

// Root returns the store's root directory
func (s *DirStore) Root() string {
	return s.root
}

// Load creates the root if needed, reads the metadata index and reconciles it
// with the directory contents
func (s *DirStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return cancelled(ctx, "load", err)
	}

	if err := os.MkdirAll(filepath.Join(s.root, metaDirName), 0755); err != nil {
		return domain.NewStorageError(
			"Failed to create data directory",
			err,
			map[string]any{"dir": s.root},
		).WithContext(ctx, "load")
	}

	idx, err := s.readIndex()
	if err != nil {
		return domain.NewStorageError(
			"Failed to read file index",
			err,
			map[string]any{"path": s.indexPath()},
		).WithContext(ctx, "load")
	}

	s.files = make(map[string]*domain.File, len(idx.Files))
	s.byPath = make(map[string]string, len(idx.Files))
	for i := range idx.Files {
		f := idx.Files[i]
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		s.put(&f)
	}

	return s.syncLocked(ctx)
}

// ListFiles returns the current files sorted by path. The directory is
// rescanned on every call. Content is not loaded.
func (s *DirStore) ListFiles(ctx context.Context) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.syncLocked(ctx); err != nil {
		return nil, err
	}

	result := make([]domain.File, 0, len(s.files))
	for _, f := range s.files {
		result = append(result, *f)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result, nil
}

// ReadContent returns the stored bytes of a file
func (s *DirStore) ReadContent(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	f, ok := s.files[id]
	var target string
	if ok {
		target = s.absPath(f.Path)
	}
	s.mu.RUnlock()

	if !ok {
		return "", fileNotFound(domain.File{ID: id})
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", domain.NewStorageError(
			"Failed to read file",
			err,
			map[string]any{"id": id},
		).WithContext(ctx, "read_file")
	}
	return string(data), nil
}

// CreateFile writes a new file. It fails with CONFLICT when the path exists,
// whether known to the index or not.
func (s *DirStore) CreateFile(ctx context.Context, filename, content, lang string) (*domain.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx, "create_file", err)
	}
	if err := s.validator.Check(filename); err != nil {
		return nil, err
	}

	file := newFile(filename, content, lang, time.Now())
	if isMetaPath(file.Path) {
		return nil, domain.NewAppError(
			domain.ErrValidationFailed,
			"Path is reserved for store metadata",
			http.StatusUnprocessableEntity,
			map[string]any{"filename": filename},
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeFilename(file.Path)
	if _, exists := s.byPath[key]; exists {
		return nil, fileExists(filename)
	}
	target := s.absPath(file.Path)
	if _, err := os.Stat(target); err == nil {
		return nil, fileExists(filename)
	}

	if err := atomicWrite(target, []byte(content), 0644); err != nil {
		return nil, domain.NewStorageError(
			"Failed to write file",
			err,
			map[string]any{"filename": filename},
		).WithContext(ctx, "create_file")
	}

	s.put(&file)
	if err := s.writeIndex(); err != nil {
		s.remove(file.ID)
		_ = os.Remove(target)
		return nil, domain.NewStorageError(
			"Failed to write file index",
			err,
			map[string]any{"filename": filename},
		).WithContext(ctx, "create_file")
	}

	result := file
	return &result, nil
}

// UpdateFileContent rewrites an existing file in place
func (s *DirStore) UpdateFileContent(ctx context.Context, file domain.File, content string) (*domain.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx, "update_file", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.files[file.ID]
	if !ok {
		return nil, fileNotFound(file)
	}

	if err := atomicWrite(s.absPath(existing.Path), []byte(content), 0644); err != nil {
		return nil, domain.NewStorageError(
			"Failed to write file",
			err,
			map[string]any{"id": file.ID, "path": existing.Path},
		).WithContext(ctx, "update_file")
	}

	old := *existing
	existing.Size = len(content)
	existing.UpdatedAt = time.Now()

	if err := s.writeIndex(); err != nil {
		*existing = old
		return nil, domain.NewStorageError(
			"Failed to write file index",
			err,
			map[string]any{"id": file.ID},
		).WithContext(ctx, "update_file")
	}

	result := *existing
	result.Content = content
	return &result, nil
}

// HealthCheck performs a health check on the storage directory
func (s *DirStore) HealthCheck(ctx context.Context) domain.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	status := domain.HealthStatusHealthy
	message := "Storage is operating normally"
	details := map[string]any{
		"backend":    "dir",
		"file_count": len(s.files),
		"data_dir":   s.root,
	}

	if _, err := os.Stat(s.root); err != nil {
		status = domain.HealthStatusUnhealthy
		message = "Data directory is not accessible"
		details["error"] = err.Error()
	} else if len(s.files) != len(s.byPath) {
		status = domain.HealthStatusUnhealthy
		message = "Data structure inconsistency detected"
		details["map_size"] = len(s.files)
		details["path_index_size"] = len(s.byPath)
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: now,
	}
}

// GetStats returns storage statistics
func (s *DirStore) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]domain.File, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, *f)
	}

	stats := summarize(files)
	stats["backend"] = "dir"
	stats["data_directory"] = s.root
	return stats
}

// syncLocked makes the in-memory index match the directory. Files missing
// from disk are dropped; new files get an ID and a classified language. The
// index file is rewritten only when something changed.
func (s *DirStore) syncLocked(ctx context.Context) error {
	scanned, err := scanDirectory(ctx, s.root)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx, "scan", err)
		}
		return domain.NewStorageError(
			"Failed to scan data directory",
			err,
			map[string]any{"dir": s.root},
		).WithContext(ctx, "scan")
	}

	changed := false
	seen := make(map[string]bool, len(scanned))

	for _, sf := range scanned {
		key := domain.NormalizeFilename(sf.Path)
		seen[key] = true

		if id, ok := s.byPath[key]; ok {
			f := s.files[id]
			if size := int(sf.Info.Size()); f.Size != size {
				f.Size = size
				f.UpdatedAt = sf.Info.ModTime()
				changed = true
			}
			continue
		}

		if v := s.validator.Validate(sf.Path); !v.Valid {
			s.logger.Warn().Str("path", sf.Path).Str("reason", string(v.Reason)).Msg("Skipping file with unsupported name")
			continue
		}

		f := domain.File{
			ID:        uuid.New().String(),
			Path:      sf.Path,
			Name:      filepath.Base(sf.Path),
			Language:  language.Classify(sf.Path),
			Size:      int(sf.Info.Size()),
			CreatedAt: sf.Info.ModTime(),
			UpdatedAt: sf.Info.ModTime(),
		}
		s.put(&f)
		changed = true
		s.logger.Debug().Str("path", f.Path).Msg("Discovered file")
	}

	for key, id := range s.byPath {
		if !seen[key] {
			s.logger.Warn().Str("path", s.files[id].Path).Msg("Indexed file missing from disk, dropping")
			s.remove(id)
			changed = true
		}
	}

	if !changed {
		return nil
	}
	if err := s.writeIndex(); err != nil {
		return domain.NewStorageError(
			"Failed to write file index",
			err,
			map[string]any{"path": s.indexPath()},
		).WithContext(ctx, "scan")
	}
	return nil
}

func (s *DirStore) put(f *domain.File) {
	s.files[f.ID] = f
	s.byPath[domain.NormalizeFilename(f.Path)] = f.ID
}

func (s *DirStore) remove(id string) {
	if f, ok := s.files[id]; ok {
		delete(s.byPath, domain.NormalizeFilename(f.Path))
		delete(s.files, id)
	}
}

func (s *DirStore) readIndex() (indexFile, error) {
	var idx indexFile

	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return indexFile{Version: indexVersion}, nil
	}
	if err != nil {
		return idx, err
	}

	if err := yaml.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("failed to parse %s: %w", indexFileName, err)
	}
	if idx.Version > indexVersion {
		return idx, fmt.Errorf("unsupported index version %d", idx.Version)
	}
	return idx, nil
}

func (s *DirStore) writeIndex() error {
	idx := indexFile{
		Version: indexVersion,
		Files:   make([]domain.File, 0, len(s.files)),
	}
	for _, f := range s.files {
		idx.Files = append(idx.Files, *f)
	}
	sort.Slice(idx.Files, func(i, j int) bool {
		return idx.Files[i].Path < idx.Files[j].Path
	})

	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to marshal index to YAML: %w", err)
	}
	return atomicWrite(s.indexPath(), data, 0644)
}

func (s *DirStore) indexPath() string {
	return filepath.Join(s.root, metaDirName, indexFileName)
}

func (s *DirStore) absPath(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

func isMetaPath(p string) bool {
	first, _, _ := strings.Cut(p, "/")
	return strings.EqualFold(first, metaDirName)
}
