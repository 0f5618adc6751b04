// Package server provides the HTTP server and route wiring.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	appanalytics "github.com/rekomendr/rekomendr/internal/application/analytics"
	appquota "github.com/rekomendr/rekomendr/internal/application/quota"
	"github.com/rekomendr/rekomendr/internal/application/recommend"
	"github.com/rekomendr/rekomendr/internal/infrastructure/config"
	"github.com/rekomendr/rekomendr/internal/infrastructure/http/handlers"
	"github.com/rekomendr/rekomendr/internal/infrastructure/http/middleware"
	"github.com/rekomendr/rekomendr/internal/infrastructure/identity"
	"github.com/rekomendr/rekomendr/internal/infrastructure/monitoring"
	"github.com/rekomendr/rekomendr/pkg/healthcheck"
	"go.uber.org/zap"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	quotaService *appquota.Service,
	recsService *recommend.Service,
	analyticsService *appanalytics.Service,
	metrics *monitoring.Metrics,
	health *healthcheck.Health,
) *Server {
	s := &Server{config: cfg, logger: logger}
	s.router = s.setupRouter(quotaService, recsService, analyticsService, metrics, health)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRouter(
	quotaService *appquota.Service,
	recsService *recommend.Service,
	analyticsService *appanalytics.Service,
	metrics *monitoring.Metrics,
	health *healthcheck.Health,
) *chi.Mux {
	resolver := identity.NewResolver(s.config.Quota.CookieName, s.config.Quota.CookieMaxAge)
	mw := middleware.New(s.logger, resolver, metrics)
	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit, s.logger)

	quotaHandlers := handlers.NewQuotaAPIHandlers(quotaService, s.config.Quota.EnableDevReset || s.config.IsDevelopment(), s.logger)
	recsHandlers := handlers.NewRecsAPIHandlers(recsService, quotaService, metrics, s.logger)
	analyticsHandlers := handlers.NewAnalyticsAPIHandlers(analyticsService, s.logger)
	adminHandlers := handlers.NewAdminAPIHandlers(analyticsService, s.logger)
	healthHandlers := handlers.NewHealthHandlers(s.config, health)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Recoverer)
	r.Use(mw.Logger)

	r.Get("/health", healthHandlers.Health)
	r.Get("/health/ready", healthHandlers.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.ClientID)

		r.Get("/quota", quotaHandlers.GetUsage)
		r.Post("/quota", quotaHandlers.PostAction)

		r.With(rateLimiter.Handler).Post("/recs", recsHandlers.GetRecommendations)
		r.Post("/nudge", recsHandlers.GetNudge)

		r.Post("/track", analyticsHandlers.Track)
		r.Post("/feedback", analyticsHandlers.Feedback)
		r.Post("/survey", analyticsHandlers.Survey)

		r.Get("/usage", adminHandlers.UsageList)
		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", adminHandlers.Stats)
			r.Get("/recent", adminHandlers.Recent)
		})
	})

	return r
}

// Router exposes the configured routes. Test utility.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening for requests.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
