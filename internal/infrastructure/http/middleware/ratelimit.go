package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/rekomendr/rekomendr/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// visitor is one IP's limiter plus last-seen time for cleanup.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-IP request budget to abuse-prone endpoints
// (10 req / 60s on the recommendation route by default).
type RateLimiter struct {
	cfg      config.RateLimitConfig
	logger   *zap.Logger
	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter creates the limiter and starts its cleanup loop.
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:      cfg,
		logger:   logger,
		visitors: make(map[string]*visitor),
	}
	if cfg.Enable {
		go rl.cleanupLoop()
	}
	return rl
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[ip]
	if !ok {
		limit := rate.Every(rl.cfg.Window / time.Duration(rl.cfg.Requests))
		v = &visitor{limiter: rate.NewLimiter(limit, rl.cfg.Requests)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupLoop drops limiters for IPs idle longer than two windows.
func (rl *RateLimiter) cleanupLoop() {
	every := rl.cfg.CleanupEvery
	if every <= 0 {
		every = 5 * time.Minute
	}
	for range time.Tick(every) {
		cutoff := time.Now().Add(-2 * rl.cfg.Window)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Handler enforces the budget, returning 429 when exceeded.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enable {
			next.ServeHTTP(w, r)
			return
		}
		ip := RemoteIP(r)
		if !rl.limiterFor(ip).Allow() {
			rl.logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests, slow down."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
