// Package api serves the struct catalog and record store over HTTP.
//
// All routes under /api/v1 require the X-API-Key header. /metrics is left
// open for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	m := s.metrics
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Definitions
		r.Get("/structs", m.InstrumentHandler("GET", "/api/v1/structs", s.handleListStructs))
		r.Get("/structs/{name}", m.InstrumentHandler("GET", "/api/v1/structs/{name}", s.handleGetStruct))

		// Codec
		r.Post("/structs/{name}/decode", m.InstrumentHandler("POST", "/api/v1/structs/{name}/decode", s.handleDecode))
		r.Post("/structs/{name}/encode", m.InstrumentHandler("POST", "/api/v1/structs/{name}/encode", s.handleEncode))

		// Stored records
		r.Post("/structs/{name}/records", m.InstrumentHandler("POST", "/api/v1/structs/{name}/records", s.handleCreateRecord))
		r.Get("/structs/{name}/records", m.InstrumentHandler("GET", "/api/v1/structs/{name}/records", s.handleListRecords))
		r.Get("/structs/{name}/records/{id}", m.InstrumentHandler("GET", "/api/v1/structs/{name}/records/{id}", s.handleGetRecord))
		r.Put("/structs/{name}/records/{id}", m.InstrumentHandler("PUT", "/api/v1/structs/{name}/records/{id}", s.handleUpdateRecord))
		r.Delete("/structs/{name}/records/{id}", m.InstrumentHandler("DELETE", "/api/v1/structs/{name}/records/{id}", s.handleDeleteRecord))
	})

	return r
}

// Addr is the listen address built from the configured bind address and port
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Bind, strconv.Itoa(s.config.Port))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	s.logger.Info("starting binstruct API server",
		zap.String("addr", ln.Addr().String()),
		zap.Int("structs", len(s.catalog.Names())))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down binstruct API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
