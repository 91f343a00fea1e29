package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dgallion1/subtrans/internal/config"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/pipeline"
	"github.com/dgallion1/subtrans/internal/store"
	"github.com/dgallion1/subtrans/internal/translate"
)

// GlossaryAdmin exposes the persistent glossary and usage tables.
type GlossaryAdmin interface {
	GlossarySize(ctx context.Context, source, target string) (int, error)
	PurgeGlossary(ctx context.Context, source, target string) (int64, error)
	UsageTotals(ctx context.Context, since time.Time) ([]store.UsageTotal, error)
}

// Server is the HTTP API server for subtrans.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	languages    *language.Registry
	glossaries   GlossaryAdmin
	stats        *translate.LatencyStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. glossaries and stats
// may be nil; the endpoints backed by them then answer 503.
func NewServer(orch *pipeline.Orchestrator, languages *language.Registry, glossaries GlossaryAdmin, stats *translate.LatencyStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		languages:    languages,
		glossaries:   glossaries,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(CORSOptions(s.cfg.CORSOrigins)))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.cfg.JWTSecret, s.log))

		r.Get("/api/languages", s.handleLanguages)

		r.Post("/api/translate", s.handleTranslate)
		r.Get("/api/translate/{jobID}/status", s.handleStatus)
		r.Get("/api/translate/{jobID}/result", s.handleResult)
		r.Get("/api/translate/{jobID}/report", s.handleReport)
		r.Delete("/api/translate/{jobID}", s.handleCancel)

		r.Get("/api/glossary", s.handleGlossary)
		r.Delete("/api/glossary", s.handlePurgeGlossary)

		r.Get("/api/stats/backend", s.handleBackendStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
