package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinLogger_AssignsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(GinLogger())
	router.GET("/ping", func(c *gin.Context) {
		if RequestID(c) == "" {
			t.Error("request id should be set before the handler runs")
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)

	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry a request id header")
	}
}

func TestGinLogger_KeepsIncomingRequestID(t *testing.T) {
	router := gin.New()
	router.Use(GinLogger())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("request id = %q, expected %q", got, "req-123")
	}
}

func TestGinRecovery_ReturnsProblem(t *testing.T) {
	router := gin.New()
	router.Use(GinRecovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/boom", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct == "" {
		t.Error("expected a content type on the recovery response")
	}
}

func TestGinLogger_RedactsQueryToken(t *testing.T) {
	var buf bytes.Buffer
	saved := log
	log = zerolog.New(&buf)
	defer func() { log = saved }()

	router := gin.New()
	router.Use(GinLogger())
	router.GET("/api/v1/events/daily-logs", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/events/daily-logs?token=eyJSECRETJWT&since=5", nil)
	router.ServeHTTP(w, req)

	out := buf.String()
	if strings.Contains(out, "eyJSECRETJWT") {
		t.Errorf("bearer token written to the request log: %s", out)
	}
	if !strings.Contains(out, "since=5") {
		t.Errorf("non-sensitive query params should still be logged: %s", out)
	}
}

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"", ""},
		{"page=2&limit=10", "limit=10&page=2"},
		{"token=abc", "token=%2A%2A%2A"},
		{"refresh_token=abc&q=x", "q=x&refresh_token=%2A%2A%2A"},
		{"%zz", "[unparseable]"},
	}
	for _, tt := range tests {
		if got := redactQuery(tt.raw); got != tt.want {
			t.Errorf("redactQuery(%q) = %q, expected %q", tt.raw, got, tt.want)
		}
	}
}
