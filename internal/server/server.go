// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dkoval/items-api/internal/config"
	"github.com/dkoval/items-api/internal/handler"
	"github.com/dkoval/items-api/internal/middleware"
	"github.com/dkoval/items-api/internal/model"
	"github.com/dkoval/items-api/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	httpServer   *http.Server
	router       *mux.Router
	handler      http.Handler
	config       *config.Config
	logger       *zap.Logger
	watchHandler *handler.WatchHandler
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *zap.Logger, itemStore store.Store) *Server {
	router := mux.NewRouter()

	s := &Server{
		router: router,
		config: cfg,
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes(itemStore)
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	allowedOrigins := []string{"*"}
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		middleware.RequestIDHeader,
	}

	// Apply middleware in order (first applied = outermost)
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	// Add metrics middleware if enabled
	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS(allowedOrigins, allowedMethods, allowedHeaders)))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(itemStore store.Store) {
	// Watch stream handler doubles as the event publisher for mutations.
	s.watchHandler = handler.NewWatchHandler(s.logger)
	s.watchHandler.RegisterRoutes(s.router)

	restHandler := handler.NewRESTHandler(itemStore, s.logger, s.watchHandler)
	restHandler.RegisterRoutes(s.router)

	// Metrics endpoint
	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	// Unmatched paths and wrong methods get the same JSON error shape as
	// everything else. gorilla/mux does not run middleware for these, so
	// the logging chain is applied by hand.
	notFound := s.fallbackHandler(http.StatusNotFound, "Not found")
	methodNotAllowed := s.fallbackHandler(http.StatusMethodNotAllowed, "Method not allowed")
	s.router.NotFoundHandler = notFound
	s.router.MethodNotAllowedHandler = methodNotAllowed
}

// fallbackHandler builds a router fallback that responds with the API's
// JSON error shape, wrapped in the same ambient middleware as real routes.
func (s *Server) fallbackHandler(status int, message string) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteJSON(w, s.logger, status, model.NewErrorResponse(message))
	})

	chain := middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
	)
	return chain(h)
}

// setupHTTPServer configures the HTTP server.
//
// CleanPath wraps the whole router because mux only runs its middleware
// after a route has matched; trailing-slash trimming has to happen before
// matching to be of any use.
func (s *Server) setupHTTPServer() {
	s.handler = middleware.CleanPath()(s.router)
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.String("base_url", s.config.BaseURL()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	// Close all watch connections first
	if s.watchHandler != nil {
		s.watchHandler.CloseAllConnections()
	}

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the full request handler, including the path
// normalization that wraps the router, for testing purposes.
func (s *Server) Handler() http.Handler {
	return s.handler
}
