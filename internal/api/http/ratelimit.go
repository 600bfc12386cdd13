package http

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	apperrors "github.com/dicri/evidence-service/pkg/util"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 15 * time.Minute
)

// RateLimiter keeps one token bucket per client IP. Buckets of idle clients
// expire from the LRU and are recreated full.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter builds a limiter refilling perSecond tokens up to burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
	}
}

func (r *RateLimiter) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.buckets.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(r.limit, r.burst)
	r.buckets.Add(key, lim)
	return lim
}

// Allow consumes a token for key.
func (r *RateLimiter) Allow(key string) bool {
	return r.get(key).Allow()
}

// Handler rejects requests over the limit with 429 RATE_LIMITED.
func (r *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r.Allow(c.IP()) {
			return c.Next()
		}
		retry := time.Second
		if r.limit > 0 {
			retry = time.Duration(float64(time.Second) / float64(r.limit))
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retry.Seconds())+1))
		return apperrors.NewRateLimited()
	}
}
