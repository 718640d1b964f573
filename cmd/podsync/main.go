package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	audiosub "github.com/perudosmundos/audio-sub003"
	"github.com/perudosmundos/audio-sub003/internal/api"
	"github.com/perudosmundos/audio-sub003/internal/config"
	"github.com/perudosmundos/audio-sub003/internal/database"
	"github.com/perudosmundos/audio-sub003/internal/live"
	"github.com/perudosmundos/audio-sub003/internal/locale"
	"github.com/perudosmundos/audio-sub003/internal/realtime"
	"github.com/perudosmundos/audio-sub003/internal/storage"
	"github.com/perudosmundos/audio-sub003/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	envFile := flag.String("env-file", "", "path to .env file")
	addr := flag.String("addr", "", "http listen address (overrides HTTP_ADDR)")
	logLevel := flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
	spoolDir := flag.String("spool-dir", "", "upload retry spool directory (overrides SPOOL_DIR)")
	flag.Parse()

	cfg, err := config.Load(config.Overrides{
		EnvFile:  *envFile,
		HTTPAddr: *addr,
		LogLevel: *logLevel,
		SpoolDir: *spoolDir,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("podsync starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Localization tables are embedded in the binary.
	locales, err := locale.New(audiosub.LocaleFiles, "locales", cfg.DefaultLanguage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load locales")
	}

	// Database
	db, err := database.Connect(ctx, cfg, log.With().Str("component", "database").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Storage backends
	storageLog := log.With().Str("component", "storage").Logger()
	r2, err := storage.NewR2Store(cfg, storageLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure r2 storage")
	}
	sftp := storage.NewSFTPStore(cfg, storageLog)
	router := storage.NewRouter(r2, sftp, storage.ParseProvider(cfg.UploadTarget), storageLog)

	spool := storage.NewSpool(cfg.SpoolDir, router, storageLog)
	spool.Start()
	defer spool.Stop()

	// Realtime feed from Supabase
	var rt *realtime.Client
	if cfg.RealtimeURL != "" {
		rt = realtime.NewClient(cfg.RealtimeURL, cfg.SupabaseKey, log)
		if err := rt.Connect(); err != nil {
			// The client retries on its own once the first dial succeeds, so
			// a cold start without realtime is only a warning.
			log.Warn().Err(err).Msg("realtime connect failed, continuing without live updates")
		}
		defer rt.Close()
	}

	// Transcription worker pool
	var pool *transcribe.WorkerPool
	if cfg.AssemblyAIKey != "" {
		pool = transcribe.NewWorkerPool(transcribe.WorkerPoolOptions{
			Client:       transcribe.NewClient(cfg.AssemblyAIBaseURL, cfg.AssemblyAIKey, 30*time.Second),
			Saver:        db,
			Workers:      cfg.TranscribeWorkers,
			QueueSize:    cfg.TranscribeQueue,
			PollInterval: cfg.TranscribePoll,
			JobTimeout:   cfg.TranscribeTimeout,
			Log:          log,
		})
		pool.Start()
		defer pool.Stop()
	} else {
		log.Info().Msg("ASSEMBLYAI_KEY not set, transcription disabled")
	}

	// HTTP server
	checks := []api.HealthChecker{
		{Name: "database", Check: db.HealthCheck},
		{Name: "storage", Check: func(ctx context.Context) error {
			res := router.TestConnections(ctx)
			if !res.PrimaryOK {
				return errors.New(res.Message)
			}
			return nil
		}},
	}
	var stream realtime.Stream
	if rt != nil {
		stream = rt
	}
	deps := api.Deps{
		Store:     db,
		Live:      live.NewHandler(db, stream, locales, log),
		Storage:   router,
		Spool:     spool,
		Locales:   locales,
		Version:   version,
		StartTime: startTime,
		Health:    checks,
	}
	if pool != nil {
		deps.Jobs = pool
	}
	srv := api.NewServer(cfg, deps, log.With().Str("component", "http").Logger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("podsync stopped")
}
