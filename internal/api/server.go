// Package api exposes the HTTP surface: episode metadata, transcripts,
// localization tables, storage operations and transcription jobs.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/config"
	"github.com/perudosmundos/audio-sub003/internal/locale"
	"github.com/perudosmundos/audio-sub003/internal/metrics"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// Deps collects everything the HTTP handlers need.
type Deps struct {
	Store     EpisodeStore
	Storage   StorageRouter
	Spool     Parker
	Locales   *locale.Resolver
	Jobs      JobQueue
	Live      http.Handler
	Health    []HealthChecker
	Version   string
	StartTime time.Time
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	health := NewHealthHandler(deps.Health, deps.Version, deps.StartTime)
	episodes := NewEpisodeHandler(deps.Store, deps.Storage, deps.Locales, cfg.DefaultLanguage, log)
	storage := NewStorageHandler(deps.Storage, deps.Spool, deps.Store, log)
	i18n := NewI18nHandler(deps.Locales)
	jobs := NewTranscriptionHandler(deps.Jobs, deps.Store, log)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.ServeHTTP)
		r.Get("/i18n/{lang}", i18n.Table)

		if deps.Live != nil {
			r.Get("/episodes/sync", deps.Live.ServeHTTP)
		}
		r.Get("/episodes", episodes.List)
		r.Get("/episodes/{slug}", episodes.Get)
		r.Get("/episodes/{slug}/questions", episodes.Questions)
		r.Get("/episodes/{slug}/transcript", episodes.Transcript)

		r.Get("/storage/exists", storage.Exists)
		r.Get("/storage/test", storage.Test)
		r.Get("/transcriptions/{id}", jobs.Get)

		// Mutating routes require the bearer token when one is configured.
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.AuthToken))
			r.Post("/storage/upload", storage.Upload)
			r.Delete("/storage/files", storage.Delete)
			r.Delete("/episodes/{slug}", episodes.Delete)
			r.Post("/transcriptions", jobs.Create)
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
