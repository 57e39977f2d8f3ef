package server

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/edgard/studybuddy/internal/errors"
	"github.com/edgard/studybuddy/internal/metrics"
)

// idleClientTTL is how long an idle client's limiter is kept.
const idleClientTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client key.
type clientLimiters struct {
	mu          sync.Mutex
	clients     map[string]*clientLimiter
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
}

func newClientLimiters(perMinute, burst int) *clientLimiters {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiters{
		clients:     make(map[string]*clientLimiter),
		limit:       rate.Limit(float64(perMinute) / 60),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// reserve takes a token for key. When none is available it returns false and
// how long until the next one.
func (l *clientLimiters) reserve(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) > idleClientTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > idleClientTTL {
				delete(l.clients, k)
			}
		}
		l.lastCleanup = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit limits requests per client IP. Rejected requests get 429 with a
// Retry-After header.
func RateLimit(perMinute, burst int, m *metrics.Metrics) gin.HandlerFunc {
	limiters := newClientLimiters(perMinute, burst)
	return func(c *gin.Context) {
		ok, wait := limiters.reserve(c.ClientIP(), time.Now())
		if ok {
			c.Next()
			return
		}
		if m != nil {
			m.RateLimited.Add(1)
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		respondError(c, apperrors.NewRateLimitedError("too many requests, slow down"))
	}
}
