package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"rewards/internal/core"
	"rewards/internal/log"
	"rewards/internal/middleware/idempotency"
	"rewards/internal/middleware/ratelimit"
	"rewards/internal/middleware/security"
	"rewards/internal/middleware/trace"
)

// RewardsService is what the HTTP layer needs from the rewards orchestrator.
type RewardsService interface {
	GetRewardsForCustomer(ctx context.Context, customerID int64) (core.RewardsResult, error)
	GetRewardsForAllCustomers(ctx context.Context, req core.PageRequest) (core.Page[core.RewardsResult], error)
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	PointsFor(amount decimal.Decimal) int64
	Ready(ctx context.Context) error
}

// Pinger is implemented by dependencies that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	svc    RewardsService
	logger *log.Logger
	events *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	idemStore        idempotency.Store
	idemTTL          time.Duration
	started          time.Time

	shutdownOnce sync.Once
}

type ServerOption func(*Server)

// WithIdempotencyStore replaces the in-process idempotency store.
func WithIdempotencyStore(store idempotency.Store, ttl time.Duration) ServerOption {
	return func(s *Server) {
		s.idemStore = store
		s.idemTTL = ttl
	}
}

// WithRateLimit sets the per-client limit for write requests.
func WithRateLimit(cfg ratelimit.Config) ServerOption {
	return func(s *Server) {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		s.rateLimiter = ratelimit.NewLimiter(cfg)
	}
}

func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc RewardsService, opts ...ServerOption) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		svc:              svc,
		logger:           log.New(log.ConfigFromEnv(log.ComponentHTTP)),
		securityDetector: security.NewDetector(),
		started:          time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if s.idemStore == nil {
		s.idemStore = idempotency.NewMemoryStore(10_000, idempotency.DefaultTTL)
		s.idemTTL = idempotency.DefaultTTL
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.events = log.NewStructuredLogger(s.logger)
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, s.logger)

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.traceMiddleware.Middleware,
		trace.Recoverer,
		s.securityDetector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		security.NoStore,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("No route for " + r.URL.Path).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rewards/customer/{customerID}", s.handleCustomerRewards)
		r.Get("/rewards/customers", s.handleAllRewards)
		r.Get("/points", s.handlePoints)

		r.With(
			s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
				log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
					"Rate limit exceeded", log.FieldClientIP, s.securityDetector.ExtractClientIP(r))
				TooManyRequestsError().Write(w)
			}),
			idempotency.Middleware(s.idemStore, s.idemTTL),
		).Post("/transactions", s.handleCreateTransaction)
	})
	return r
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the rate limiter and idempotency store.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		s.rateLimiter.Stop()
		if c, ok := s.idemStore.(io.Closer); ok {
			if err := c.Close(); err != nil {
				s.logger.WarnContext(ctx, "Failed to close idempotency store", log.FieldError, err)
			}
		}
	})

	return shutdownErr
}
