// Package server is the HTTP layer: routing, admission control, the
// error taxonomy translation, and the websocket run watcher.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"civicdiff/internal/llm"
	"civicdiff/internal/packs"
	"civicdiff/internal/pipeline"
	"civicdiff/internal/ratelimit"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Deps are the collaborators the handlers need.
type Deps struct {
	Repo         *packs.Repository
	Orchestrator *pipeline.Orchestrator
	Limiter      *ratelimit.Limiter
	Ledger       *llm.Ledger
	Config       llm.Config
	Log          *zap.Logger
}

// Server owns the router and the underlying http.Server.
type Server struct {
	deps Deps
	hub  *watchHub
	log  *zap.Logger
	http *http.Server
}

// New wires the routes. The handler stack is h2c so the dev frontend can
// speak HTTP/2 without TLS.
func New(addr string, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	s := &Server{deps: deps, hub: newWatchHub(), log: deps.Log}

	r := chi.NewRouter()
	r.Use(securityHeaders)
	r.Use(corsHeaders)
	r.Use(requestLogger(deps.Log))
	r.Use(requireJSON)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/selfcheck", s.handleSelfcheck)
		r.Post("/packs/upload", s.handleUpload)
		r.Get("/packs/download", s.handleDownload)
		r.Get("/packs", s.handleListPacks)
		r.Get("/config", s.handleConfig)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/logs", s.handleLogs)
		r.Post("/logs", s.handleLogsAction)
		r.Get("/budget", s.handleBudget)
		r.Get("/watch", s.handleWatch)
	})

	s.http = &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(r, &http2.Server{}),
	}
	return s
}

// Handler exposes the routed stack for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Start() error {
	s.log.Info("starting API server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
