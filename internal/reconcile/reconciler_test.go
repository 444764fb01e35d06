package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// MockFileStore is a mock implementation of domain.FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) ListFiles(ctx context.Context) ([]domain.File, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.File), args.Error(1)
}

func (m *MockFileStore) CreateFile(ctx context.Context, filename, content, language string) (*domain.File, error) {
	args := m.Called(ctx, filename, content, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockFileStore) UpdateFileContent(ctx context.Context, file domain.File, content string) (*domain.File, error) {
	args := m.Called(ctx, file, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockFileStore) HealthCheck(ctx context.Context) domain.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(domain.HealthStatus)
}

func (m *MockFileStore) GetStats(ctx context.Context) map[string]any {
	args := m.Called(ctx)
	return args.Get(0).(map[string]any)
}

func candidate(name, content string) domain.CodeBlockCandidate {
	return domain.CodeBlockCandidate{Filename: name, Content: content, SourceRule: domain.RuleInlineFilename}
}

func TestReconcile_CreatesWhenNoMatch(t *testing.T) {
	store := new(MockFileStore)
	created := &domain.File{ID: "new", Path: "app.js", Name: "app.js"}
	store.On("CreateFile", mock.Anything, "app.js", "let a;", "javascript").Return(created, nil)

	r := NewReconciler(store, zerolog.Nop())
	outcome := r.Reconcile(context.Background(), candidate("app.js", "let a;"), "javascript", NewIndex(nil))

	assert.Equal(t, domain.OutcomeCreated, outcome.Kind)
	assert.Equal(t, "app.js", outcome.Filename)
	assert.Equal(t, "javascript", outcome.Language)
	assert.Equal(t, domain.RuleInlineFilename, outcome.Rule)
	assert.Same(t, created, outcome.File)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "UpdateFileContent", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_UpdatesMatchedFile(t *testing.T) {
	existing := domain.File{ID: "1", Path: "src/app.js", Name: "app.js"}
	updated := existing
	updated.Content = "let b;"

	store := new(MockFileStore)
	store.On("UpdateFileContent", mock.Anything, existing, "let b;").Return(&updated, nil)

	r := NewReconciler(store, zerolog.Nop())
	outcome := r.Reconcile(context.Background(), candidate("app.js", "let b;"), "javascript", NewIndex([]domain.File{existing}))

	assert.Equal(t, domain.OutcomeUpdated, outcome.Kind)
	require.NotNil(t, outcome.File)
	assert.Equal(t, "1", outcome.File.ID)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "CreateFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_StoreFailureBecomesRejected(t *testing.T) {
	store := new(MockFileStore)
	storeErr := domain.NewStorageError("disk full", errors.New("ENOSPC"), nil)
	store.On("CreateFile", mock.Anything, "a.txt", "x", "text").Return(nil, storeErr)

	r := NewReconciler(store, zerolog.Nop())
	outcome := r.Reconcile(context.Background(), candidate("a.txt", "x"), "text", NewIndex(nil))

	assert.Equal(t, domain.OutcomeRejected, outcome.Kind)
	assert.Equal(t, domain.KindStorage, outcome.Reason)
	assert.Contains(t, outcome.Message, "disk full")
	assert.Nil(t, outcome.File)
}

func TestReconcile_UpdateFailureBecomesRejected(t *testing.T) {
	existing := domain.File{ID: "1", Path: "a.txt", Name: "a.txt"}
	store := new(MockFileStore)
	store.On("UpdateFileContent", mock.Anything, existing, "x").Return(nil, errors.New("conflict"))

	r := NewReconciler(store, zerolog.Nop())
	outcome := r.Reconcile(context.Background(), candidate("a.txt", "x"), "text", NewIndex([]domain.File{existing}))

	assert.Equal(t, domain.OutcomeRejected, outcome.Kind)
	assert.Equal(t, "conflict", outcome.Message)
}
