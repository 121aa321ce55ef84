package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"tradeboard/internal/metrics"
)

const limiterIdleTimeout = 10 * time.Minute

type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	DefaultPageSize int
	MaxPageSize     int
	RateLimitPerSec float64 // 0 disables rate limiting
	RateLimitBurst  int
	Logger          *logrus.Logger
	Metrics         *metrics.Metrics
}

type Server struct {
	options Options
	router  *mux.Router
	limiter *RateLimiter
	log     *logrus.Logger
}

func NewServer(dashboard Dashboard, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 100
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{options: opts, log: opts.Logger}
	if opts.RateLimitPerSec > 0 {
		s.limiter = NewRateLimiter(opts.RateLimitPerSec, opts.RateLimitBurst)
	}
	s.router = s.routes(&handlers{
		dashboard:       dashboard,
		log:             opts.Logger,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
	})
	return s
}

func (s *Server) routes(h *handlers) *mux.Router {
	middleware := s.middleware()

	// mux skips middleware for unmatched requests, so the 404 and 405
	// handlers are wrapped explicitly.
	notAllowed := chain(http.HandlerFunc(methodNotAllowed), middleware)
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.MethodNotAllowedHandler = notAllowed
	r.NotFoundHandler = chain(http.HandlerFunc(notFound), middleware)

	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = notAllowed
	api.HandleFunc("/shipments", h.handleShipments).Methods(http.MethodGet)
	api.HandleFunc("/companies", h.handleCompanies).Methods(http.MethodGet)
	// Must precede the {name} route.
	api.HandleFunc("/companies/stats", h.handleCompanyStats).Methods(http.MethodGet)
	api.HandleFunc("/companies/{name}", h.handleCompanyDetail).Methods(http.MethodGet)
	api.HandleFunc("/commodities", h.handleCommodities).Methods(http.MethodGet)
	api.HandleFunc("/volume/monthly", h.handleMonthlyVolume).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	if s.options.Metrics != nil {
		r.Handle("/metrics", s.options.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.Use(middleware...)
	return r
}

// middleware returns the request chain, outermost first.
func (s *Server) middleware() []mux.MiddlewareFunc {
	middleware := []mux.MiddlewareFunc{requestLogger(s.log)}
	if s.options.Metrics != nil {
		middleware = append(middleware, s.options.Metrics.Middleware)
	}
	if s.limiter != nil {
		middleware = append(middleware, s.limiter.Handler)
	}
	return middleware
}

func chain(h http.Handler, middleware []mux.MiddlewareFunc) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.options.Addr,
		Handler:      s.router,
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
	}

	if s.limiter != nil {
		go s.cleanupLimiters(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.options.Addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()
	s.log.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Cleanup(limiterIdleTimeout)
		}
	}
}
