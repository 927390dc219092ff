package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/pkg/response"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/share/:token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func hit(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/share/abc", nil)
	req.RemoteAddr = ip + ":12345"
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsNormalRequests(t *testing.T) {
	rl := NewRateLimiter(config.LimitRule{RPS: 10, Burst: 10})
	defer rl.Stop()

	if w := hit(limitedRouter(rl), "192.168.1.1"); w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimit_BlocksExcessiveRequests(t *testing.T) {
	rl := NewRateLimiter(config.LimitRule{RPS: 1, Burst: 2})
	defer rl.Stop()
	router := limitedRouter(rl)

	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		last = hit(router, "10.0.0.1")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d after burst exceeded, got %d", http.StatusTooManyRequests, last.Code)
	}
	if ct := last.Header().Get("Content-Type"); !strings.HasPrefix(ct, response.ProblemContentType) {
		t.Errorf("Content-Type = %q, expected a problem document", ct)
	}
	retry, err := strconv.Atoi(last.Header().Get("Retry-After"))
	if err != nil || retry < 1 {
		t.Errorf("Retry-After = %q, expected a positive number of seconds", last.Header().Get("Retry-After"))
	}
}

func TestRateLimit_RejectedRequestsDoNotDrainTheBucket(t *testing.T) {
	rl := NewRateLimiter(config.LimitRule{RPS: 1000, Burst: 1})
	defer rl.Stop()
	router := limitedRouter(rl)

	hit(router, "10.0.0.3")
	for i := 0; i < 10; i++ {
		hit(router, "10.0.0.3")
	}
	time.Sleep(5 * time.Millisecond)

	if w := hit(router, "10.0.0.3"); w.Code != http.StatusOK {
		t.Errorf("bucket should refill after rejections, got %d", w.Code)
	}
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(config.LimitRule{RPS: 1, Burst: 1})
	defer rl.Stop()
	router := limitedRouter(rl)

	if w := hit(router, "10.0.0.1"); w.Code != http.StatusOK {
		t.Errorf("IP1 first request: expected %d, got %d", http.StatusOK, w.Code)
	}
	if w := hit(router, "10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("IP2 first request: expected %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimit_ZeroRuleDisablesLimit(t *testing.T) {
	rl := NewRateLimiter(config.LimitRule{})
	defer rl.Stop()
	router := limitedRouter(rl)

	for i := 0; i < 50; i++ {
		if w := hit(router, "10.0.0.9"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected %d, got %d", i, http.StatusOK, w.Code)
		}
	}
}

func TestRateLimit_SweepDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(config.LimitRule{RPS: 1, Burst: 1})
	rl.Stop()
	rl.Stop()

	now := time.Now()
	rl.bucket("10.0.0.1", now.Add(-10*time.Minute))
	rl.bucket("10.0.0.2", now)

	if dropped := rl.sweep(now); dropped != 1 {
		t.Errorf("sweep dropped %d buckets, expected 1", dropped)
	}
	if _, ok := rl.buckets["10.0.0.2"]; !ok {
		t.Error("active bucket should survive the sweep")
	}
}
