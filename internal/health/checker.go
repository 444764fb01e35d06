// Package health aggregates component health for the HTTP surface.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// Component is anything that can report its own health
type Component interface {
	HealthCheck(ctx context.Context) domain.HealthStatus
}

// statsProvider is implemented by components that expose counters
type statsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// cacheStatsProvider is implemented by caches
type cacheStatsProvider interface {
	Stats() domain.CacheStats
}

// SystemHealthChecker checks a set of named components and caches the result
// for a short TTL
type SystemHealthChecker struct {
	mu         sync.RWMutex
	components map[string]Component

	timeout   time.Duration
	cacheTTL  time.Duration
	startTime time.Time

	lastCheck  time.Time
	lastHealth domain.SystemHealth
}

var _ domain.HealthChecker = (*SystemHealthChecker)(nil)

// NewSystemHealthChecker creates a checker with no components
func NewSystemHealthChecker() *SystemHealthChecker {
	return &SystemHealthChecker{
		components: make(map[string]Component),
		timeout:    5 * time.Second,
		cacheTTL:   30 * time.Second,
		startTime:  time.Now(),
	}
}

// WithCacheTTL overrides how long a full check result is reused
func (h *SystemHealthChecker) WithCacheTTL(ttl time.Duration) *SystemHealthChecker {
	h.cacheTTL = ttl
	return h
}

// Register adds a named component. A nil component is ignored.
func (h *SystemHealthChecker) Register(name string, c Component) *SystemHealthChecker {
	if c == nil {
		return h
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = c
	h.lastCheck = time.Time{}
	return h
}

// CheckHealth checks every component; the worst status wins
func (h *SystemHealthChecker) CheckHealth(ctx context.Context) domain.SystemHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.lastCheck.IsZero() && time.Since(h.lastCheck) < h.cacheTTL {
		return h.lastHealth
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	now := time.Now()
	results := make(map[string]domain.HealthStatus, len(h.components))
	overall := domain.HealthStatusHealthy

	for _, name := range h.names() {
		status := h.components[name].HealthCheck(checkCtx)
		results[name] = status
		overall = worse(overall, status.Status)
	}

	systemHealth := domain.SystemHealth{
		Status:     overall,
		Timestamp:  now,
		Components: results,
		Metrics:    h.collectMetrics(checkCtx),
		Uptime:     time.Since(h.startTime),
	}

	h.lastCheck = now
	h.lastHealth = systemHealth
	return systemHealth
}

// CheckComponent checks a single named component
func (h *SystemHealthChecker) CheckComponent(ctx context.Context, component string) domain.HealthStatus {
	h.mu.RLock()
	c, ok := h.components[component]
	h.mu.RUnlock()

	if !ok {
		return domain.HealthStatus{
			Status:    domain.HealthStatusUnhealthy,
			Message:   "Unknown component",
			Timestamp: time.Now(),
			Details: map[string]any{
				"component": component,
				"error":     "Component not found",
			},
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return c.HealthCheck(checkCtx)
}

// Metrics returns counters from every component that exposes them
func (h *SystemHealthChecker) Metrics(ctx context.Context) map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.collectMetrics(ctx)
}

// IsHealthy reports whether every component is healthy
func (h *SystemHealthChecker) IsHealthy(ctx context.Context) bool {
	return h.CheckHealth(ctx).Status == domain.HealthStatusHealthy
}

func (h *SystemHealthChecker) collectMetrics(ctx context.Context) map[string]any {
	metrics := make(map[string]any, len(h.components)+1)

	for name, c := range h.components {
		switch p := c.(type) {
		case statsProvider:
			if stats := p.GetStats(ctx); stats != nil {
				metrics[name] = stats
			}
		case cacheStatsProvider:
			metrics[name] = p.Stats()
		}
	}

	metrics["system"] = map[string]any{
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"timestamp":      time.Now(),
	}
	return metrics
}

func (h *SystemHealthChecker) names() []string {
	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// worse returns the more severe of two statuses: unhealthy > degraded > healthy
func worse(current, other string) string {
	priority := map[string]int{
		domain.HealthStatusHealthy:   0,
		domain.HealthStatusDegraded:  1,
		domain.HealthStatusUnhealthy: 2,
	}
	if priority[other] > priority[current] {
		return other
	}
	return current
}
