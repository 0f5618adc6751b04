// Package middleware provides HTTP middleware components
// following the Chain of Responsibility pattern
package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rekomendr/rekomendr/internal/infrastructure/identity"
	"go.uber.org/zap"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	clientIDKey  contextKey = "client_id"
)

// HTTPRecorder receives one event per served request for metrics.
type HTTPRecorder interface {
	HTTPRequest(path, status string)
}

// Middleware provides all middleware functions
type Middleware struct {
	logger   *zap.Logger
	resolver *identity.Resolver
	metrics  HTTPRecorder
}

// New creates a new middleware instance. metrics may be nil.
func New(logger *zap.Logger, resolver *identity.Resolver, metrics HTTPRecorder) *Middleware {
	return &Middleware{logger: logger, resolver: resolver, metrics: metrics}
}

// RequestID adds a unique request ID to the context and response header.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientID resolves the visitor identity cookie, minting one when absent,
// and stores the id in the request context.
func (m *Middleware) ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := m.resolver.Resolve(w, r)
		ctx := context.WithValue(r.Context(), clientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logger provides structured logging for requests
func (m *Middleware) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		if m.metrics != nil {
			m.metrics.HTTPRequest(r.URL.Path, strconv.Itoa(rec.status))
		}

		// Health probes are too chatty to log.
		if r.URL.Path == "/health" {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", RemoteIP(r)),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)),
		}

		switch {
		case rec.status >= 500:
			m.logger.Error("Server error", fields...)
		case rec.status >= 400:
			m.logger.Warn("Client error", fields...)
		default:
			m.logger.Info("Request completed", fields...)
		}
	})
}

// Recoverer converts panics into 500 responses instead of dropped
// connections.
func (m *Middleware) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestID(r.Context())),
				)
				http.Error(w, `{"ok":false,"error":"Internal Server Error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// GetRequestID returns the request id stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetClientID returns the client id stored by ClientID, or "".
func GetClientID(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// WithClientID returns a context carrying the given client id, bypassing the
// cookie resolution. Test utility.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

// RemoteIP extracts the caller's address, honouring X-Forwarded-For.
func RemoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
