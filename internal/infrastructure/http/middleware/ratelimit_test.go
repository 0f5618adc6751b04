package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rekomendr/rekomendr/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{
		Enable:   true,
		Requests: 3,
		Window:   time.Minute,
	}, zaptest.NewLogger(t))
	h := rl.Handler(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/recs", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/recs", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests, slow down."}`, rec.Body.String())
}

func TestRateLimiterIsPerIP(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{
		Enable:   true,
		Requests: 1,
		Window:   time.Minute,
	}, zaptest.NewLogger(t))
	h := rl.Handler(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/recs", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Same IP exhausted
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different IP still has budget
	other := httptest.NewRequest(http.MethodPost, "/api/recs", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterHonorsForwardedFor(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{
		Enable:   true,
		Requests: 1,
		Window:   time.Minute,
	}, zaptest.NewLogger(t))
	h := rl.Handler(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/recs", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterDisabledPassesEverything(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enable: false}, zaptest.NewLogger(t))
	h := rl.Handler(okHandler())

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/recs", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
