package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vitrinelive/storefront/identity"
	"github.com/vitrinelive/storefront/server/middleware"
)

func newRateLimitedEngine(cfg middleware.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.GinRateLimit(cfg))
	engine.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return engine
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	engine := newRateLimitedEngine(middleware.RateLimitConfig{RequestsPerMinute: 3})

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, httptest.NewRequest("GET", "/ping", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/ping", http.NoBody))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rr.Code)
	}
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	engine := newRateLimitedEngine(middleware.RateLimitConfig{
		RequestsPerMinute: 1,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client")
		},
	})

	send := func(client string) int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", http.NoBody)
		req.Header.Set("X-Client", client)
		engine.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("a"); code != http.StatusOK {
		t.Fatalf("first request for a: expected 200, got %d", code)
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Fatalf("second request for a: expected 429, got %d", code)
	}
	if code := send("b"); code != http.StatusOK {
		t.Fatalf("first request for b: expected 200, got %d", code)
	}
}

func TestSessionBasedKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", http.NoBody)
	c.Set(middleware.UserKey, &identity.User{ID: 42})

	if got := middleware.SessionBasedKey(c); got != "user:42" {
		t.Fatalf("expected user:42, got %q", got)
	}

	anon, _ := gin.CreateTestContext(httptest.NewRecorder())
	anon.Request = httptest.NewRequest("GET", "/", http.NoBody)
	anon.Request.RemoteAddr = "203.0.113.7:5000"

	if got := middleware.SessionBasedKey(anon); got != "203.0.113.7" {
		t.Fatalf("expected client IP fallback, got %q", got)
	}
}
