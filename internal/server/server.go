// Package server provides the HTTP server implementation for the flight
// tracking service.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/auth"
	"github.com/skyward/flighttrack/internal/client"
	"github.com/skyward/flighttrack/internal/config"
	apierrors "github.com/skyward/flighttrack/internal/errors"
	"github.com/skyward/flighttrack/internal/handler"
	"github.com/skyward/flighttrack/internal/health"
	"github.com/skyward/flighttrack/internal/metrics"
	"github.com/skyward/flighttrack/internal/middleware"
	"github.com/skyward/flighttrack/internal/service"
	"github.com/skyward/flighttrack/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	handlers     *handler.Handlers
	verifier     auth.Verifier
	healthCheck  *health.HealthCheck
	errorHandler *apierrors.Handler
	metrics      *metrics.Metrics
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer creates a new HTTP server over the given store, verifier and
// prediction client.
func NewServer(
	cfg *config.Config,
	flightStore store.FlightStore,
	verifier auth.Verifier,
	predictions *client.PredictionClient,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	router := mux.NewRouter()
	errorHandler := apierrors.NewHandler(logger)
	flights := service.NewFlightService(flightStore, m, logger)
	handlers := handler.NewHandlers(flights, predictions, errorHandler, logger)
	healthCheck := health.NewHealthCheck(flightStore, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		router:       router,
		httpServer:   httpServer,
		handlers:     handlers,
		verifier:     verifier,
		healthCheck:  healthCheck,
		errorHandler: errorHandler,
		metrics:      m,
		logger:       logger,
		cfg:          cfg,
	}
}

// SetupRoutes configures all HTTP routes.
func (s *Server) SetupRoutes() {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS([]string{"*"}),
	}

	if s.metrics != nil {
		middlewareChain = append(middlewareChain, metrics.MetricsMiddleware(s.metrics))
	}

	if s.cfg.RateLimiter.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.cfg.RateLimiter.RequestsPerSecond,
			s.cfg.RateLimiter.BurstSize,
			s.logger,
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}

	chain := middleware.Chain(middlewareChain...)
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	// Health check endpoints, outside the auth boundary
	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)

	// API v1 routes, all authenticated
	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.Authenticate(s.verifier, s.errorHandler))

	v1.HandleFunc("/flights", s.handlers.SaveFlight).Methods(http.MethodPost)
	v1.HandleFunc("/flights", s.handlers.ListFlights).Methods(http.MethodGet)
	v1.HandleFunc("/flights/{trace_id}", s.handlers.GetFlight).Methods(http.MethodGet)
	v1.HandleFunc("/flights/{trace_id}", s.handlers.DeleteFlight).Methods(http.MethodDelete)
	v1.HandleFunc("/predict", s.handlers.Predict).Methods(http.MethodGet)

	// Not found handler
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apierrors.ErrorCodeInvalidRequest, "endpoint not found", requestID)
	})

	// Method not allowed handler
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, apierrors.ErrorCodeInvalidRequest, "method not allowed", requestID)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.Int("port", s.cfg.Server.Port),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the http.Handler for the server, used in tests.
func (s *Server) GetHandler() http.Handler {
	return s.router
}
