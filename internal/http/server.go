package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
)

// LogService is the log collection the API drives.
type LogService interface {
	Hydrate(ctx context.Context) error
	CreateLog(ctx context.Context, title string) (core.Log, error)
	SelectLog(id string) error
	RecordTransaction(ctx context.Context, in core.TransactionInput) (core.Log, error)
	DeleteLog(ctx context.Context, id string) error
	Logs() []core.Log
	CurrentLog() (core.Log, bool)
}

// SessionManager signs users in and out.
type SessionManager interface {
	SignIn(userID string) error
	SignOut()
	CurrentUserID() (string, bool)
}

type Server struct {
	http.Server
	logs     LogService
	sessions SessionManager
	logger   *applog.Logger
	validate *validator.Validate
	now      func() time.Time

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

// Option customises a Server.
type Option func(*Server)

// WithClock sets the clock used to default transaction dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimit allows perMinute requests per client IP. Zero disables the limiter.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
			s.rateLimiter = nil
		}
		if perMinute > 0 {
			s.rateLimiter = newRateLimiter(perMinute)
		}
	}
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, logs LogService, sessions SessionManager, logger *applog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		logs:        logs,
		sessions:    sessions,
		logger:      logger,
		validate:    newValidator(),
		now:         time.Now,
		rateLimiter: newRateLimiter(defaultRequestsPerMinute),
		metrics:     &securityMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /session", s.handleSignIn)
	mux.HandleFunc("DELETE /session", s.handleSignOut)

	mux.HandleFunc("GET /logs", s.requireSession(s.handleListLogs))
	mux.HandleFunc("POST /logs", s.requireSession(s.handleCreateLog))
	mux.HandleFunc("GET /logs/current", s.requireSession(s.handleCurrentLog))
	mux.HandleFunc("PUT /logs/current", s.requireSession(s.handleSelectLog))
	mux.HandleFunc("POST /logs/current/transactions", s.requireSession(s.handleRecordTransaction))
	mux.HandleFunc("DELETE /logs/{id}", s.requireSession(s.handleDeleteLog))

	var handler http.Handler = mux
	handler = s.withSecurity(handler)
	handler = applog.AccessLogMiddleware(handler)
	handler = applog.RequestIDMiddleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
