package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bilancio/internal/cache"
	"bilancio/internal/ledger"
	"bilancio/internal/report"
	"bilancio/internal/store"
)

type Server struct {
	http.Server
	ledger      *ledger.Service
	store       store.Store
	feed        *report.Feed
	trendMonths int
	rateLimiter *rateLimiter

	// Report responses are memoized between mutations.
	categoryCache *cache.LRUCache[[]categoryRow]
	trendCache    *cache.LRUCache[[]trendRow]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *ledger.Service, st store.Store, feed *report.Feed, trendMonths int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:      svc,
		store:       st,
		feed:        feed,
		trendMonths: trendMonths,
		rateLimiter: newRateLimiter(),

		categoryCache: cache.NewLRUCache[[]categoryRow](100, 5*time.Minute),
		trendCache:    cache.NewLRUCache[[]trendRow](100, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.categoryCache)
	s.cacheManager.Register(s.trendCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/api/transactions/comments", s.withSecurityHeaders(s.handleAddComment))
	mux.HandleFunc("/api/split", s.withSecurityHeaders(s.handleSplit))
	mux.HandleFunc("/api/users", s.withSecurityHeaders(s.handleUsers))
	mux.HandleFunc("/api/users/transactions", s.withSecurityHeaders(s.handleUserHistory))
	mux.HandleFunc("/api/reports/categories", s.withSecurityHeaders(s.handleCategoryReport))
	mux.HandleFunc("/api/reports/users", s.withSecurityHeaders(s.handleUserReport))
	mux.HandleFunc("/api/reports/trend", s.withSecurityHeaders(s.handleTrendReport))
	mux.HandleFunc("/api/reports/budgets", s.withSecurityHeaders(s.handleBudgetReport))
	mux.HandleFunc("/api/export/csv", s.withSecurityHeaders(s.handleExportCSV))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateReportCaches drops memoized report responses after any
// mutation.
func (s *Server) invalidateReportCaches() {
	s.categoryCache.Clear()
	s.trendCache.Clear()
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := clientAddr(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutating requests only; reads are cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Query(r.Context(), store.CollectionUsers, store.Query{Limit: 1}); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
