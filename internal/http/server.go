// Package http exposes the JSON API over the local store: transaction CRUD,
// the payment calendar, savings goals, statistics and CSV interchange.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kopilka/internal/cache"
	"kopilka/internal/core"
	applog "kopilka/internal/log"
	"kopilka/internal/middleware/trace"
	"kopilka/internal/storage"
)

// Store is the persistence surface the handlers work against. It is
// implemented by storage.SQLiteRepository.
type Store interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (string, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	DeleteAllTransactions(ctx context.Context) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)

	CreatePayment(ctx context.Context, p core.RegularPayment) (string, error)
	UpdatePayment(ctx context.Context, p core.RegularPayment) error
	DeletePayment(ctx context.Context, id string) error
	GetPayment(ctx context.Context, id string) (core.RegularPayment, error)
	ListPayments(ctx context.Context, activeOnly bool) ([]core.RegularPayment, error)
	MarkPaymentPaid(ctx context.Context, id string, paidAt, nextDue time.Time) error

	CreateSaving(ctx context.Context, s core.Saving) (string, error)
	UpdateSaving(ctx context.Context, s core.Saving) error
	DeleteSaving(ctx context.Context, id string) error
	GetSaving(ctx context.Context, id string) (core.Saving, error)
	ListSavings(ctx context.Context, activeOnly bool) ([]core.Saving, error)

	GetProfile(ctx context.Context) (core.UserProfile, error)
	SaveProfile(ctx context.Context, profile core.UserProfile) error

	Watch(kind storage.EntityKind) (<-chan storage.Change, func())
}

// Options tune server behavior outside the store.
type Options struct {
	// WeekStart shifts the week statistics window.
	WeekStart time.Weekday
}

type Server struct {
	http.Server
	store       Store
	weekStart   time.Weekday
	rateLimiter *rateLimiter
	structured  *applog.StructuredLogger

	// Derived statistics are cached and flushed on any transaction write.
	statsCache   *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	unwatch      func()
	watchDone    chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store Store, opts Options) *Server {
	mux := http.NewServeMux()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:        store,
		weekStart:    opts.WeekStart,
		rateLimiter:  newRateLimiter(),
		structured:   applog.NewStructuredLogger(logger),
		statsCache:   cache.NewLRUCache[[]byte](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
		watchDone:    make(chan struct{}),
	}

	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Flush derived statistics whenever the ledger changes.
	changes, cancel := store.Watch(storage.KindTransaction)
	s.unwatch = cancel
	go s.watchTransactions(changes)

	tracer := trace.NewMiddleware(clientIP)
	withLogger := applog.Middleware(logger)
	withRequestID := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	wrap := func(h http.Handler) http.Handler {
		return tracer.Middleware(withLogger(withRequestID(s.withSecurityHeaders(h))))
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	api := http.NewServeMux()

	api.HandleFunc("GET /api/health", handleHealth)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("DELETE /api/transactions", s.handleDeleteAllTransactions)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/payments", s.handleListPayments)
	api.HandleFunc("POST /api/payments", s.handleCreatePayment)
	api.HandleFunc("GET /api/payments/due", s.handleDuePayments)
	api.HandleFunc("GET /api/payments/{id}", s.handleGetPayment)
	api.HandleFunc("PUT /api/payments/{id}", s.handleUpdatePayment)
	api.HandleFunc("DELETE /api/payments/{id}", s.handleDeletePayment)
	api.HandleFunc("POST /api/payments/{id}/paid", s.handleMarkPaid)

	api.HandleFunc("GET /api/savings", s.handleListSavings)
	api.HandleFunc("POST /api/savings", s.handleCreateSaving)
	api.HandleFunc("GET /api/savings/{id}", s.handleGetSaving)
	api.HandleFunc("PUT /api/savings/{id}", s.handleUpdateSaving)
	api.HandleFunc("DELETE /api/savings/{id}", s.handleDeleteSaving)

	api.HandleFunc("GET /api/profile", s.handleGetProfile)
	api.HandleFunc("PUT /api/profile", s.handleSaveProfile)

	api.HandleFunc("GET /api/stats/summary", s.handleStatsSummary)
	api.HandleFunc("GET /api/stats/categories", s.handleStatsCategories)
	api.HandleFunc("GET /api/stats/series", s.handleStatsSeries)
	api.HandleFunc("GET /api/stats/comparison", s.handleStatsComparison)
	api.HandleFunc("GET /api/income", s.handleIncomeReport)
	api.HandleFunc("GET /api/advice", s.handleAdvice)

	api.HandleFunc("GET /api/export/csv", s.handleExportCSV)
	api.HandleFunc("POST /api/import/csv", s.handleImportCSV)

	mux.Handle("/api/", wrap(api))

	return s
}

// watchTransactions drains change events and flushes the stats cache. The
// loop exits when the store closes the subscription.
func (s *Server) watchTransactions(changes <-chan storage.Change) {
	defer close(s.watchDone)
	for range changes {
		removed := s.statsCache.DeletePrefix("stats:")
		if removed > 0 {
			slog.Debug("Stats cache flushed", "entries_removed", removed)
		}
	}
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.unwatch != nil {
			s.unwatch()
			<-s.watchDone
		}
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers and rate limiting for mutations.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		// Rate limit writes only; reads are cheap and local.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", ip,
				"method", r.Method,
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
