package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/geneguard-server/internal/domain"
)

// maxTrackedClients bounds the per-client limiter table
const maxTrackedClients = 10000

// ClientRateLimiter hands out one token bucket per client key
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

// NewClientRateLimiter creates a limiter allowing rps requests per second
// per client with the given burst.
func NewClientRateLimiter(rps float64, burst int) *ClientRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	// size is a positive constant, New cannot fail
	limiters, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return &ClientRateLimiter{
		limiters: limiters,
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a request from key may proceed now
func (l *ClientRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// RateLimit rejects clients that exceed their bucket with 429. A nil
// limiter disables the check.
func RateLimit(limiter *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.rps <= 0 {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP()) {
			retry := 1
			if limiter.rps < 1 {
				retry = int(1 / float64(limiter.rps))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			abortWithError(c, http.StatusTooManyRequests, domain.ErrCodeRateLimit, "Rate limit exceeded", "")
			return
		}
		c.Next()
	}
}
