package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	SupabaseURL string `env:"SUPABASE_URL,required"`
	SupabaseKey string `env:"SUPABASE_KEY,required"`
	// Optional direct Postgres connection. When unset the data layer runs
	// in REST-only mode through the Supabase API.
	DatabaseURL string `env:"DATABASE_URL"`

	RealtimeURL string `env:"REALTIME_URL"`

	R2Endpoint      string `env:"R2_ENDPOINT"`
	R2Bucket        string `env:"R2_BUCKET" envDefault:"audio"`
	R2AccessKey     string `env:"R2_ACCESS_KEY"`
	R2SecretKey     string `env:"R2_SECRET_KEY"`
	R2Region        string `env:"R2_REGION" envDefault:"auto"`
	R2PublicBaseURL string `env:"R2_PUBLIC_BASE_URL"`

	SFTPHost          string `env:"SFTP_HOST"`
	SFTPPort          int    `env:"SFTP_PORT" envDefault:"22"`
	SFTPUser          string `env:"SFTP_USER"`
	SFTPPassword      string `env:"SFTP_PASSWORD"`
	SFTPBasePath      string `env:"SFTP_BASE_PATH" envDefault:"/public_html/audio"`
	SFTPPublicBaseURL string `env:"SFTP_PUBLIC_BASE_URL"`

	// Which backend receives new uploads. Historically all uploads landed
	// on the legacy host even after R2 was introduced, so that stays the
	// default until the migration finishes.
	UploadTarget string `env:"STORAGE_UPLOAD_TARGET" envDefault:"hostinger"`

	SpoolDir string `env:"SPOOL_DIR" envDefault:"./spool"`

	AssemblyAIKey     string        `env:"ASSEMBLYAI_KEY"`
	AssemblyAIBaseURL string        `env:"ASSEMBLYAI_BASE_URL" envDefault:"https://api.assemblyai.com/v2"`
	TranscribeWorkers int           `env:"TRANSCRIBE_WORKERS" envDefault:"2"`
	TranscribeQueue   int           `env:"TRANSCRIBE_QUEUE" envDefault:"64"`
	TranscribePoll    time.Duration `env:"TRANSCRIBE_POLL_INTERVAL" envDefault:"5s"`
	TranscribeTimeout time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"30m"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken       string `env:"AUTH_TOKEN"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"ru"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	SpoolDir string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.SpoolDir != "" {
		cfg.SpoolDir = overrides.SpoolDir
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.UploadTarget {
	case "r2", "hostinger":
	default:
		return fmt.Errorf("invalid STORAGE_UPLOAD_TARGET %q: must be r2 or hostinger", c.UploadTarget)
	}
	return nil
}

// R2Configured reports whether the R2 backend has credentials.
func (c *Config) R2Configured() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != ""
}

// SFTPConfigured reports whether the legacy Hostinger backend has credentials.
func (c *Config) SFTPConfigured() bool {
	return c.SFTPHost != "" && c.SFTPUser != ""
}
