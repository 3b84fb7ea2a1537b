// Package server wires the router, middleware, and handlers together and
// owns the server lifecycle: startup, graceful shutdown, and the final
// flush of the store to disk.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/H4ckMM3/Snippet-Bot/internal/config"
	"github.com/H4ckMM3/Snippet-Bot/internal/handler"
	"github.com/H4ckMM3/Snippet-Bot/internal/middleware"
	"github.com/H4ckMM3/Snippet-Bot/internal/service"
	"github.com/H4ckMM3/Snippet-Bot/internal/session"
	"github.com/H4ckMM3/Snippet-Bot/internal/store"
)

// Server holds the router and all its dependencies. It owns the store and
// flushes it to disk during shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  *store.Store
}

// New assembles the full dependency chain: store → service → handler →
// routes. The configured admin ids are granted before the first request is
// served, so moderation works from a cold start.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	for _, id := range cfg.AdminIDs {
		if _, err := st.GrantAdmin(id); err != nil {
			return nil, fmt.Errorf("seeding admin %s: %w", id, err)
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  st,
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and the API surface.
//
// Middleware order: RequestID first so every later log line can carry it,
// RealIP before logging so the logged remote is the client, Recoverer
// innermost so panics still produce a logged 500.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	library := service.NewLibrary(s.store, session.NewIndex(), s.logger)
	h := handler.NewLibraryHandler(library, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/snippets", h.HandleSubmit)
		r.Get("/snippets", h.HandleList)
		r.Post("/snippets/{name}/use", h.HandleUse)
		r.Delete("/snippets/{name}", h.HandleDelete)
		r.Put("/snippets/{name}/favorite", h.HandleFavorite)
		r.Delete("/snippets/{name}/favorite", h.HandleUnfavorite)
		r.Get("/favorites", h.HandleFavorites)
		r.Get("/profile", h.HandleProfile)
		r.Get("/stats", h.HandleStats)

		r.Get("/pending", h.HandlePending)
		r.Post("/pending/{name}/approve", h.HandleApprove)
		r.Post("/pending/{name}/reject", h.HandleReject)
		r.Post("/admins/{id}", h.HandleGrantAdmin)

		r.Post("/sessions", h.HandleNewSession)
		r.Get("/sessions/{sid}/handles/{handle}", h.HandleResolve)
		r.Delete("/sessions/{sid}", h.HandleResetSession)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, and
// write every collection to disk one last time.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("dataDir", s.config.DataDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	// Every mutation already saved its collection, but a final full flush
	// costs little and covers anything the process learned since.
	if err := s.store.SaveAll(); err != nil {
		return fmt.Errorf("flushing store: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
