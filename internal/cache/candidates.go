// Package cache memoizes extraction results so repeated processing of the
// same assistant message skips the rule scan.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// DefaultSize is used when a non-positive size is requested
const DefaultSize = 512

// CandidateCache is an LRU of deduplicated candidates keyed by the SHA-256 of
// the message text
type CandidateCache struct {
	maxSize int
	entries *lru.Cache[string, []domain.CodeBlockCandidate]

	// Atomic counters for metrics
	hits   atomic.Int64
	misses atomic.Int64
}

var _ domain.CandidateCache = (*CandidateCache)(nil)

// NewCandidateCache creates a cache holding at most maxSize messages
func NewCandidateCache(maxSize int) (*CandidateCache, error) {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}

	entries, err := lru.New[string, []domain.CodeBlockCandidate](maxSize)
	if err != nil {
		return nil, err
	}

	return &CandidateCache{
		maxSize: maxSize,
		entries: entries,
	}, nil
}

// Key returns the cache key for a message
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached candidates for text
func (c *CandidateCache) Get(text string) ([]domain.CodeBlockCandidate, bool) {
	candidates, ok := c.entries.Get(Key(text))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return slices.Clone(candidates), true
}

// Set stores a copy of candidates for text
func (c *CandidateCache) Set(text string, candidates []domain.CodeBlockCandidate) {
	c.entries.Add(Key(text), slices.Clone(candidates))
}

// Clear removes all entries and resets counters
func (c *CandidateCache) Clear() {
	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns current cache statistics
func (c *CandidateCache) Stats() domain.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRatio float64
	if total > 0 {
		hitRatio = float64(hits) / float64(total)
	}

	return domain.CacheStats{
		Hits:     hits,
		Misses:   misses,
		Size:     c.entries.Len(),
		MaxSize:  c.maxSize,
		HitRatio: hitRatio,
	}
}

// HealthCheck reports degraded when the cache is nearly full or rarely hit
func (c *CandidateCache) HealthCheck(ctx context.Context) domain.HealthStatus {
	stats := c.Stats()

	status := domain.HealthStatusHealthy
	message := "Cache is operating normally"
	details := map[string]any{
		"size":      stats.Size,
		"max_size":  stats.MaxSize,
		"hit_ratio": stats.HitRatio,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
	}

	if stats.Size >= int(float64(stats.MaxSize)*0.9) {
		status = domain.HealthStatusDegraded
		message = "Cache is near capacity"
		details["warning"] = "Cache utilization above 90%"
	}

	if stats.HitRatio < 0.1 && stats.Hits+stats.Misses > 100 {
		if status == domain.HealthStatusHealthy {
			status = domain.HealthStatusDegraded
			message = "Low cache hit ratio"
		}
		details["hit_ratio_warning"] = "Hit ratio below 10%"
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}
