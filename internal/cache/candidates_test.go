package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

func newCache(t *testing.T, size int) *CandidateCache {
	t.Helper()
	c, err := NewCandidateCache(size)
	require.NoError(t, err)
	return c
}

func sample(name string) []domain.CodeBlockCandidate {
	return []domain.CodeBlockCandidate{{Filename: name, Content: "x", SourceRule: domain.RuleInlineFilename}}
}

func TestNewCandidateCache_DefaultSize(t *testing.T) {
	c := newCache(t, 0)
	assert.Equal(t, DefaultSize, c.Stats().MaxSize)
}

func TestCandidateCache_SetAndGet(t *testing.T) {
	c := newCache(t, 4)

	value, found := c.Get("message one")
	assert.False(t, found)
	assert.Nil(t, value)

	c.Set("message one", sample("a.go"))
	value, found = c.Get("message one")
	require.True(t, found)
	assert.Equal(t, "a.go", value[0].Filename)
}

func TestCandidateCache_ReturnsCopies(t *testing.T) {
	c := newCache(t, 4)
	stored := sample("a.go")
	c.Set("m", stored)

	stored[0].Filename = "changed.go"
	got, _ := c.Get("m")
	assert.Equal(t, "a.go", got[0].Filename)

	got[0].Filename = "again.go"
	got2, _ := c.Get("m")
	assert.Equal(t, "a.go", got2[0].Filename)
}

func TestCandidateCache_EmptyResultIsCached(t *testing.T) {
	c := newCache(t, 4)
	c.Set("no code here", nil)

	value, found := c.Get("no code here")
	assert.True(t, found)
	assert.Empty(t, value)
}

func TestCandidateCache_Eviction(t *testing.T) {
	c := newCache(t, 2)

	c.Set("one", sample("1.go"))
	c.Set("two", sample("2.go"))
	_, _ = c.Get("one")
	c.Set("three", sample("3.go"))

	_, found := c.Get("two")
	assert.False(t, found, "least recently used entry should be evicted")
	_, found = c.Get("one")
	assert.True(t, found)
	assert.Equal(t, 2, c.Stats().Size)
}

func TestCandidateCache_ClearResetsStats(t *testing.T) {
	c := newCache(t, 4)
	c.Set("m", sample("a.go"))
	_, _ = c.Get("m")
	_, _ = c.Get("other")

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestCandidateCache_HealthCheck(t *testing.T) {
	c := newCache(t, 10)
	assert.Equal(t, domain.HealthStatusHealthy, c.HealthCheck(context.Background()).Status)

	for i := 0; i < 9; i++ {
		c.Set(fmt.Sprintf("m%d", i), nil)
	}
	health := c.HealthCheck(context.Background())
	assert.Equal(t, domain.HealthStatusDegraded, health.Status)
	assert.Equal(t, "Cache is near capacity", health.Message)
}

func TestKey_Stable(t *testing.T) {
	assert.Equal(t, Key("hello"), Key("hello"))
	assert.NotEqual(t, Key("hello"), Key("hello "))
	assert.Len(t, Key(""), 64)
}

// Property 1: cache never exceeds maximum size
func TestProperty_CandidateCacheSizeLimits(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("cache never exceeds maximum size", prop.ForAll(
		func(maxSize int, numOperations int) bool {
			c, err := NewCandidateCache(maxSize)
			if err != nil {
				return false
			}
			for i := 0; i < numOperations; i++ {
				c.Set(fmt.Sprintf("message %d", i), sample(fmt.Sprintf("f%d.go", i)))
				if c.Stats().Size > maxSize {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(0, 120),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property 2: hits plus misses equals the number of Get calls
func TestProperty_CandidateCacheMetricsTracking(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every Get is counted exactly once", prop.ForAll(
		func(keys []int) bool {
			c, err := NewCandidateCache(8)
			if err != nil {
				return false
			}
			for _, k := range keys {
				text := fmt.Sprintf("m%d", k%5)
				if _, ok := c.Get(text); !ok {
					c.Set(text, nil)
				}
			}
			stats := c.Stats()
			return stats.Hits+stats.Misses == int64(len(keys))
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
