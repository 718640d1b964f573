package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Set required env vars for all subtests
	cleanup := setEnvs(t, map[string]string{
		"SUPABASE_URL": "https://example.supabase.co",
		"SUPABASE_KEY": "test-key",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.UploadTarget != "hostinger" {
			t.Errorf("UploadTarget = %q, want hostinger", cfg.UploadTarget)
		}
		if cfg.SpoolDir != "./spool" {
			t.Errorf("SpoolDir = %q, want ./spool", cfg.SpoolDir)
		}
		if cfg.DefaultLanguage != "ru" {
			t.Errorf("DefaultLanguage = %q, want ru", cfg.DefaultLanguage)
		}
		if cfg.R2Region != "auto" {
			t.Errorf("R2Region = %q, want auto", cfg.R2Region)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:  "nonexistent.env",
			HTTPAddr: ":9090",
			LogLevel: "debug",
			SpoolDir: "/tmp/spool",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.SpoolDir != "/tmp/spool" {
			t.Errorf("SpoolDir = %q, want /tmp/spool", cfg.SpoolDir)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.SupabaseURL != "https://example.supabase.co" {
			t.Errorf("SupabaseURL = %q, want env value", cfg.SupabaseURL)
		}
	})

	t.Run("invalid_upload_target_rejected", func(t *testing.T) {
		inner := setEnvs(t, map[string]string{"STORAGE_UPLOAD_TARGET": "dropbox"})
		defer inner()

		_, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err == nil {
			t.Error("expected error for unknown upload target")
		}
	})

	t.Run("backend_configured_helpers", func(t *testing.T) {
		inner := setEnvs(t, map[string]string{
			"R2_ENDPOINT":   "https://acct.r2.cloudflarestorage.com",
			"R2_ACCESS_KEY": "ak",
			"R2_SECRET_KEY": "sk",
			"SFTP_HOST":     "ftp.example.com",
			"SFTP_USER":     "deploy",
		})
		defer inner()

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.R2Configured() {
			t.Error("R2Configured = false, want true")
		}
		if !cfg.SFTPConfigured() {
			t.Error("SFTPConfigured = false, want true")
		}
	})
}

func TestLoadMissingRequired(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"SUPABASE_URL": "",
		"SUPABASE_KEY": "",
	})
	defer cleanup()
	os.Unsetenv("SUPABASE_URL")
	os.Unsetenv("SUPABASE_KEY")

	_, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err == nil {
		t.Error("expected error when required env vars are missing")
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
