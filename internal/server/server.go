// Package server assembles the HTTP surface of the training backend.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/db"
)

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// Server is the addestra HTTP server. Feature packages register their
// routes on the authenticated router it exposes.
type Server struct {
	cfg        Config
	db         *db.DB
	tokens     *auth.Store
	router     chi.Router
	api        chi.Router
	httpServer *http.Server
}

// New creates a server wired to the database and token store.
func New(cfg Config, database *db.DB, tokens *auth.Store) *Server {
	s := &Server{
		cfg:    cfg,
		db:     database,
		tokens: tokens,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check stays outside auth.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Everything else requires a bearer token. Feature packages register
	// their routes on this group via Router().
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.tokens))
		s.api = r
	})

	return r
}

// Router returns the authenticated router feature packages register on.
func (s *Server) Router() chi.Router { return s.api }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Handler returns the full HTTP handler, health check included.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("addestra server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
