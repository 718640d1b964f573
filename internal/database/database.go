// Package database is the Supabase-backed data layer. Reads and writes go
// through the PostgREST API; an optional direct Postgres pool is used for
// health checks and maintenance when a DATABASE_URL is configured.
package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/supabase-community/supabase-go"

	"github.com/perudosmundos/audio-sub003/internal/config"
)

type DB struct {
	api  *supabase.Client
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect initializes the Supabase client and, when DATABASE_URL is set, a
// direct pgx pool. The pool is optional: REST-only mode is fully functional.
func Connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*DB, error) {
	api, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}

	db := &DB{api: api, log: log}

	if cfg.DatabaseURL != "" {
		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 2

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		db.pool = pool
		log.Info().
			Str("url", maskDSN(cfg.DatabaseURL)).
			Int32("max_conns", poolCfg.MaxConns).
			Msg("direct database pool connected")
	} else {
		log.Info().Str("url", cfg.SupabaseURL).Msg("database in REST-only mode")
	}

	return db, nil
}

// HealthCheck verifies the data layer is reachable. Prefers the direct pool;
// falls back to a minimal REST read.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if db.pool != nil {
		return db.pool.Ping(ctx)
	}
	_, _, err := db.api.From("episodes").Select("slug", "", false).Limit(1, "").Execute()
	return err
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}

func (db *DB) Close() {
	if db.pool != nil {
		db.log.Info().Msg("closing database pool")
		db.pool.Close()
	}
}
