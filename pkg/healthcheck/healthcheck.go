// Package healthcheck provides health and readiness check functionality
// Following the Health Check API pattern for cloud-native applications
package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check represents one dependency check result
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// Response represents the aggregated health check response
type Response struct {
	Status        Status        `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
	Checks        []Check       `json:"checks"`
	TotalDuration time.Duration `json:"total_duration_ms"`
}

// Checker defines the interface for health checks
type Checker interface {
	Check(ctx context.Context) Check
}

// Health runs registered checkers and caches the aggregated result so
// frequent probes do not hammer the dependencies.
type Health struct {
	checkers     map[string]Checker
	logger       *zap.Logger
	mu           sync.RWMutex
	cached       *Response
	cachedAt     time.Time
	cacheTTL     time.Duration
	checkTimeout time.Duration
}

// New creates a new health check instance
func New(logger *zap.Logger) *Health {
	return &Health{
		checkers:     make(map[string]Checker),
		logger:       logger,
		cacheTTL:     5 * time.Second,
		checkTimeout: 3 * time.Second,
	}
}

// Register registers a health checker under a name. Re-registering a name
// replaces the previous checker.
func (h *Health) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// SetCacheTTL overrides how long an aggregated result is reused.
func (h *Health) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
}

// Check runs all checkers concurrently and aggregates their statuses:
// unhealthy wins over degraded wins over healthy.
func (h *Health) Check(ctx context.Context) Response {
	h.mu.RLock()
	if h.cached != nil && time.Since(h.cachedAt) < h.cacheTTL {
		cached := *h.cached
		h.mu.RUnlock()
		return cached
	}
	names := make([]string, 0, len(h.checkers))
	checkers := make([]Checker, 0, len(h.checkers))
	for name, c := range h.checkers {
		names = append(names, name)
		checkers = append(checkers, c)
	}
	timeout := h.checkTimeout
	h.mu.RUnlock()

	start := time.Now()
	results := make([]Check, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, name string, c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			result := c.Check(cctx)
			result.Name = name
			results[i] = result
		}(i, names[i], c)
	}
	wg.Wait()

	response := Response{
		Status:        StatusHealthy,
		Timestamp:     time.Now(),
		Checks:        results,
		TotalDuration: time.Since(start),
	}
	for _, c := range results {
		switch c.Status {
		case StatusUnhealthy:
			response.Status = StatusUnhealthy
			h.logger.Warn("health check failed", zap.String("check", c.Name), zap.String("message", c.Message))
		case StatusDegraded:
			if response.Status == StatusHealthy {
				response.Status = StatusDegraded
			}
		}
	}

	h.mu.Lock()
	h.cached = &response
	h.cachedAt = time.Now()
	h.mu.Unlock()

	return response
}

// Ready reports whether every registered check is healthy.
func (h *Health) Ready(ctx context.Context) bool {
	return h.Check(ctx).Status == StatusHealthy
}
