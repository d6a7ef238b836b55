// Package api exposes the report form, connection admin and export download
// over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/auth"
	"github.com/dharsanguruparan/AgentDesk/internal/config"
	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/identity"
	"github.com/dharsanguruparan/AgentDesk/internal/queue"
	"github.com/dharsanguruparan/AgentDesk/internal/session"
	"github.com/dharsanguruparan/AgentDesk/internal/signing"
)

// Translator turns report text into Chinese.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// ExportStore reads archived exports.
type ExportStore interface {
	Download(ctx context.Context, objectKey string) ([]byte, error)
}

// Deps are the collaborators of a Server. Queue and Exports may be nil, in
// which case the export routes answer 503.
type Deps struct {
	Gateway    gateway.Gateway
	Resolver   *identity.Resolver
	Sessions   *session.Registry
	Translator Translator
	Queue      queue.Enqueuer
	Exports    ExportStore
	Signer     *signing.Signer
	Logger     *zap.Logger
}

// Server exposes HTTP endpoints for the report form.
type Server struct {
	cfg    *config.Config
	deps   Deps
	log    *zap.Logger
	now    func() time.Time
	server *http.Server
	once   sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Resolver == nil {
		deps.Resolver = identity.NewResolver(nil)
	}
	return &Server{cfg: cfg, deps: deps, log: deps.Logger, now: time.Now}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/exports/download", s.handleDownload)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.cfg.JWTSecret))

		r.Route("/report", func(r chi.Router) {
			r.Post("/session", s.handleOpenSession)
			r.Delete("/session", s.handleCloseSession)
			r.Get("/", s.withSession(s.handleView))
			r.Patch("/header", s.withSession(s.handleHeader))
			r.Post("/clients", s.withSession(s.handleAddClient))
			r.Patch("/clients/{id}", s.withSession(s.handleUpdateClient))
			r.Delete("/clients/{id}", s.withSession(s.handleRemoveClient))
			r.Post("/clients/{id}/toggle", s.withSession(s.handleToggleClient))
			r.Post("/save", s.withSession(s.handleSave))
			r.Post("/submit", s.withSession(s.handleSubmit))
			r.Post("/translate", s.withSession(s.handleTranslate))
			r.Post("/export", s.withSession(s.handleExport))
			r.Get("/notifications", s.withSession(s.handleNotifications))
		})

		r.Route("/connections", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", s.handleListConnections)
			r.Post("/", s.handleCreateConnection)
			r.Delete("/{id}", s.handleDeleteConnection)
		})
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", zap.String("address", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
