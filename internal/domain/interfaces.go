package domain

import "context"

// FileStore is the persistence collaborator the reconciler reads from and writes to
type FileStore interface {
	// ListFiles returns a point-in-time snapshot of the user's files
	ListFiles(ctx context.Context) ([]File, error)
	CreateFile(ctx context.Context, filename, content, language string) (*File, error)
	UpdateFileContent(ctx context.Context, file File, content string) (*File, error)

	// Health and monitoring
	HealthCheck(ctx context.Context) HealthStatus
	GetStats(ctx context.Context) map[string]any
}

// CandidateCache memoizes deduplicated extraction results keyed by message text
type CandidateCache interface {
	Get(text string) ([]CodeBlockCandidate, bool)
	Set(text string, candidates []CodeBlockCandidate)
	Clear()
	Stats() CacheStats

	// Health and monitoring
	HealthCheck(ctx context.Context) HealthStatus
}

// Processor is the entry point the surrounding chat pipeline calls with assistant text
type Processor interface {
	ProcessAssistantText(ctx context.Context, text string) *Summary
	Preview(text string) []PlannedFile
}

// HealthChecker defines the interface for system health monitoring
type HealthChecker interface {
	CheckHealth(ctx context.Context) SystemHealth
	CheckComponent(ctx context.Context, component string) HealthStatus
}
