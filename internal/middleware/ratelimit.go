package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/pkg/response"
	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL = 5 * time.Minute
	sweepInterval = 3 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle buckets are swept
// in the background until Stop is called.
type RateLimiter struct {
	rule config.LimitRule

	mu      sync.Mutex
	buckets map[string]*clientBucket

	stopOnce sync.Once
	done     chan struct{}
}

func NewRateLimiter(rule config.LimitRule) *RateLimiter {
	rl := &RateLimiter{
		rule:    rule,
		buckets: make(map[string]*clientBucket),
		done:    make(chan struct{}),
	}
	if rule.RPS > 0 {
		go rl.sweepLoop()
	}
	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) bucket(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(rl.rule.RPS), rl.rule.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

// sweep drops buckets idle for longer than bucketIdleTTL.
func (rl *RateLimiter) sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	dropped := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > bucketIdleTTL {
			delete(rl.buckets, key)
			dropped++
		}
	}
	return dropped
}

// Middleware rejects a client that has drained its bucket with a 429 problem
// and a Retry-After hint in whole seconds.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rule.RPS <= 0 {
			c.Next()
			return
		}

		now := time.Now()
		res := rl.bucket(c.ClientIP(), now).ReserveN(now, 1)
		if !res.OK() {
			response.Error(c, response.NewTooManyRequests("too many requests, please try again later"))
			return
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			response.Error(c, response.NewTooManyRequests("too many requests, please try again later"))
			return
		}

		c.Next()
	}
}
