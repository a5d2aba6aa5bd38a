package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the bucket a request is charged to, e.g. "ip:<addr>".
type keyFunc func(*gin.Context) string

// KeyByClientIP buckets requests by client IP as resolved by Gin (trusted
// proxies honoured).
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per key. Creates may be charged
// more than reads, probe endpoints can be exempted and idempotent replays
// never consume tokens. Idle buckets are evicted opportunistically.
type RateLimiter struct {
	rps       rate.Limit
	burst     int
	keyFn     keyFunc
	writeCost int
	exempt    map[string]struct{}

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	cleanupN uint64
}

// RateOption customises a RateLimiter.
type RateOption func(*RateLimiter)

// WithWriteCost charges n tokens for every non-GET/HEAD request. It is capped
// at the burst so a write can always eventually pass.
func WithWriteCost(n int) RateOption {
	return func(rl *RateLimiter) {
		if n > 0 {
			rl.writeCost = n
		}
	}
}

// WithExemptPaths skips limiting for the given route templates, e.g.
// "/health". Matching uses the registered route, not the raw URL.
func WithExemptPaths(paths ...string) RateOption {
	return func(rl *RateLimiter) {
		for _, p := range paths {
			rl.exempt[p] = struct{}{}
		}
	}
}

// WithIdleTTL sets how long an unused bucket is kept (default 10m).
func WithIdleTTL(d time.Duration) RateOption {
	return func(rl *RateLimiter) {
		if d > 0 {
			rl.ttl = d
		}
	}
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to burst
// (coerced to >= 1). A nil keyFn buckets by client IP.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc, opts ...RateOption) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	rl := &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		keyFn:     keyFn,
		writeCost: 1,
		exempt:    make(map[string]struct{}),
		visitors:  make(map[string]*visitor),
		ttl:       10 * time.Minute,
	}
	for _, opt := range opts {
		opt(rl)
	}
	if rl.writeCost > rl.burst {
		rl.writeCost = rl.burst
	}
	return rl
}

// getVisitor returns the limiter for key, creating it if absent. Every 5000
// lookups idle buckets are evicted first, so a stale bucket for key itself
// is replaced rather than refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// cost is the number of tokens the request consumes.
func (rl *RateLimiter) cost(c *gin.Context) int {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return 1
	default:
		return rl.writeCost
	}
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay, which the limiter lets through for free.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limits. Rejected requests get 429 with the usual error
// body and a Retry-After (whole seconds, at least 1) derived from the bucket.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		if _, ok := rl.exempt[c.FullPath()]; ok {
			c.Next()
			return
		}

		now := time.Now()
		res := rl.getVisitor(rl.keyFn(c)).ReserveN(now, rl.cost(c))
		if res.OK() && res.DelayFrom(now) == 0 {
			c.Next()
			return
		}

		retry := 1
		if res.OK() {
			retry = int(math.Ceil(res.DelayFrom(now).Seconds()))
			res.CancelAt(now)
			if retry < 1 {
				retry = 1
			}
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
