// middleware/ratelimit.go
package middleware

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Token bucket rate limiter implementation
type TokenBucket struct {
	tokens         float64
	maxTokens      float64
	refillRate     float64 // tokens per second
	lastRefillTime time.Time
	mu             sync.Mutex
}

func NewTokenBucket(maxTokens, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefillTime = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimiter keeps one bucket per client IP.
type RateLimiter struct {
	buckets    map[string]*TokenBucket
	lastAccess map[string]time.Time
	mu         sync.RWMutex

	maxRequests   int
	windowSeconds int
}

var generalLimiter *RateLimiter

func init() {
	maxReq := getEnvIntRL("RATE_LIMIT_MAX_REQUESTS", 300)
	window := getEnvIntRL("RATE_LIMIT_WINDOW_MS", 60000) / 1000
	if window <= 0 {
		window = 60 // guard
	}

	generalLimiter = NewRateLimiter(maxReq, window)
	go generalLimiter.cleanupRoutine()
}

func NewRateLimiter(maxRequests, windowSeconds int) *RateLimiter {
	return &RateLimiter{
		buckets:       make(map[string]*TokenBucket),
		lastAccess:    make(map[string]time.Time),
		maxRequests:   maxRequests,
		windowSeconds: windowSeconds,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		refillRate := float64(rl.maxRequests) / float64(rl.windowSeconds)
		bucket = NewTokenBucket(float64(rl.maxRequests), refillRate)
		rl.buckets[key] = bucket
	}
	rl.lastAccess[key] = time.Now()
	rl.mu.Unlock()

	return bucket.Allow()
}

// cleanupRoutine drops buckets idle for over an hour so the map does not
// grow with every IP that ever connected.
func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		rl.mu.Lock()
		for key, last := range rl.lastAccess {
			if last.Before(cutoff) {
				delete(rl.buckets, key)
				delete(rl.lastAccess, key)
			}
		}
		rl.mu.Unlock()
	}
}

// FiberRateLimitMiddleware applies the general limiter per client IP.
func FiberRateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !generalLimiter.Allow(c.IP()) {
			log.Printf("⚠️ Rate limit exceeded for %s on %s", c.IP(), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many requests, slow down",
			})
		}
		return c.Next()
	}
}

func getEnvIntRL(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
