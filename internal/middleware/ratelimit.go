// Package middleware holds fiber middleware shared by the HTTP surface.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// Limit is a token bucket shape: Burst tokens, refilled at RPS per second
type Limit struct {
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

// bucket is one client's token bucket for one endpoint
type bucket struct {
	limit    Limit
	tokens   float64
	lastSeen time.Time
	mu       sync.Mutex
}

// take refills the bucket for the elapsed time and consumes one token. It
// returns the tokens left and, when denied, how long until one is available.
func (b *bucket) take(now time.Time) (remaining int, wait time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastSeen).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(b.limit.Burst), b.tokens+elapsed*b.limit.RPS)
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return int(b.tokens), 0, true
	}

	missing := 1 - b.tokens
	return 0, time.Duration(missing / b.limit.RPS * float64(time.Second)), false
}

// RateLimiter keeps a token bucket per client and endpoint
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	defaultLimit   Limit
	endpointLimits map[string]Limit

	now func() time.Time
}

// NewRateLimiter creates a limiter whose default bucket is rps/burst. Writes
// through /v1/extract get half of that; previews and reads get the default;
// health and metrics probes get a small fixed allowance.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	half := Limit{RPS: math.Max(rps/2, 0.1), Burst: max(burst/2, 1)}

	return &RateLimiter{
		buckets:      make(map[string]*bucket),
		defaultLimit: Limit{RPS: rps, Burst: burst},
		endpointLimits: map[string]Limit{
			"/v1/extract":         half,
			"/v1/extract/preview": {RPS: rps, Burst: burst},
			"/v1/files":           {RPS: rps, Burst: burst},
			"/health":             {RPS: 2, Burst: 20},
			"/metrics":            {RPS: 2, Burst: 20},
		},
		now: time.Now,
	}
}

// SetLimit overrides the limit for one endpoint path
func (rl *RateLimiter) SetLimit(endpoint string, limit Limit) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.endpointLimits[endpoint] = limit
}

func (rl *RateLimiter) limitFor(endpoint string) Limit {
	if l, ok := rl.endpointLimits[endpoint]; ok {
		return l
	}
	return rl.defaultLimit
}

func (rl *RateLimiter) getBucket(clientID, endpoint string) *bucket {
	key := clientID + ":" + endpoint

	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()
	if exists {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, exists := rl.buckets[key]; exists {
		return b
	}

	limit := rl.limitFor(endpoint)
	b = &bucket{
		limit:    limit,
		tokens:   float64(limit.Burst),
		lastSeen: rl.now(),
	}
	rl.buckets[key] = b
	return b
}

// clientID identifies the caller by API key, then Authorization, then IP
func clientID(c *fiber.Ctx) string {
	if apiKey := c.Get("X-API-Key"); apiKey != "" {
		return "api:" + apiKey
	}
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		return "auth:" + auth
	}
	return "ip:" + c.IP()
}

// Middleware returns a Fiber middleware for rate limiting
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := clientID(c)
		endpoint := c.Path()

		b := rl.getBucket(client, endpoint)
		remaining, wait, ok := b.take(rl.now())

		c.Set("X-RateLimit-Limit", strconv.Itoa(b.limit.Burst))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if ok {
			return c.Next()
		}

		retryAfter := strconv.Itoa(int(math.Ceil(wait.Seconds())))
		appErr := domain.NewAppError(
			domain.ErrRateLimit,
			"Rate limit exceeded",
			http.StatusTooManyRequests,
			map[string]any{
				"endpoint":    endpoint,
				"retry_after": retryAfter,
			},
		).WithContext(c.UserContext(), "rate_limit")

		c.Set(fiber.HeaderRetryAfter, retryAfter)

		return c.Status(appErr.StatusCode).JSON(fiber.Map{
			"status":  "error",
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
	}
}

// CleanupOldBuckets drops buckets idle for longer than maxIdle
func (rl *RateLimiter) CleanupOldBuckets(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastSeen)
		b.mu.Unlock()
		if idle > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine periodically removes buckets idle for over an hour.
// Returns a stop function to cancel the routine.
func (rl *RateLimiter) StartCleanupRoutine() (stop func()) {
	ticker := time.NewTicker(10 * time.Minute)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				rl.CleanupOldBuckets(time.Hour)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	limits := make(map[string]Limit, len(rl.endpointLimits))
	for k, v := range rl.endpointLimits {
		limits[k] = v
	}

	return map[string]any{
		"active_buckets":  len(rl.buckets),
		"default_limit":   rl.defaultLimit,
		"endpoint_limits": limits,
	}
}
