// Package web exposes the import engine's action protocol over HTTP. A
// session wraps one interactive orchestrator; clients mutate it solely by
// posting action batches and read back the importer state.
package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tablekit/tablekit/internal/config"
	"github.com/tablekit/tablekit/internal/core"
	"github.com/tablekit/tablekit/internal/schema"
	"github.com/tablekit/tablekit/internal/store"
)

// Server is the HTTP front end for import sessions.
type Server struct {
	cfg      *config.Config
	defs     []schema.SheetDefinition
	store    store.Store
	router   *chi.Mux
	server   *http.Server
	hook     core.Hook
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id   string
	key  string
	orch *core.Interactive
}

// NewServer creates a server over a set of sheet definitions. The snapshot
// store may be nil.
func NewServer(cfg *config.Config, defs []schema.SheetDefinition, st store.Store, hook core.Hook) *Server {
	s := &Server{
		cfg:      cfg,
		defs:     defs,
		store:    st,
		router:   chi.NewRouter(),
		hook:     hook,
		sessions: make(map[string]*session),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/schema", s.handleSchema)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetState)
			r.Get("/state", s.handleGetState)
			r.Get("/errors", s.handleGetErrors)
			r.Post("/actions", s.handleDispatch)
			r.Post("/file", s.handleUploadFile)
			r.Delete("/", s.handleDeleteSession)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and closes all sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.orch.Close()
	}
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) session(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}
