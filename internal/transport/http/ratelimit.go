package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimiter is a fixed-window counter guarding the OTP endpoint against
// brute-force code requests. A zero or negative limit disables it.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	counter int

	stop     chan struct{}
	stopOnce sync.Once
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit: limit,
		stop:  make(chan struct{}),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return r.counter <= r.limit
}

// start resets the window once a minute until Close is called.
func (r *rateLimiter) start() {
	if r.limit <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.mu.Lock()
				r.counter = 0
				r.mu.Unlock()
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops the reset goroutine. Safe to call more than once.
func (r *rateLimiter) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// rateLimitMiddleware rejects requests above the window limit.
func rateLimitMiddleware(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow() {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests, slow down"})
			c.Abort()
			return
		}
		c.Next()
	}
}
