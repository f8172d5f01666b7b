package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskibarqy/matchlog/internal/platform/logging"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("API_FOOTBALL_KEY", "")
	t.Setenv("MATCHLOG_DB_PATH", "")
	t.Setenv("API_FOOTBALL_TIMEOUT", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AppEnv != EnvDev {
		t.Fatalf("unexpected AppEnv: %q", cfg.AppEnv)
	}
	if cfg.DBPath != "football_matches.db" {
		t.Fatalf("unexpected DBPath: %q", cfg.DBPath)
	}
	if cfg.APIFootballTimeout != 10*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.APIFootballTimeout)
	}
	if cfg.APIFootballBaseURL != "https://v3.football.api-sports.io" {
		t.Fatalf("unexpected base url: %q", cfg.APIFootballBaseURL)
	}
	if !errors.Is(cfg.RequireProvider(), ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey without API_FOOTBALL_KEY")
	}
}

func TestFromEnv_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestFromEnv_ProviderSettings(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("API_FOOTBALL_KEY", " key-123 ")
	t.Setenv("API_FOOTBALL_BASE_URL", "http://localhost:9000/")
	t.Setenv("API_FOOTBALL_MAX_RETRIES", "4")
	t.Setenv("API_FOOTBALL_RETRY_INITIAL_DELAY", "100ms")
	t.Setenv("API_FOOTBALL_RETRY_MAX_DELAY", "2s")
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("SYNC_WORKERS", "8")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIFootballKey != "key-123" {
		t.Fatalf("unexpected key: %q", cfg.APIFootballKey)
	}
	if cfg.APIFootballBaseURL != "http://localhost:9000" {
		t.Fatalf("unexpected base url: %q", cfg.APIFootballBaseURL)
	}
	if cfg.APIFootballMaxRetries != 4 || cfg.APIFootballRetryInitialDelay != 100*time.Millisecond {
		t.Fatalf("unexpected retry settings: %+v", cfg)
	}
	if cfg.LogLevel != logging.LevelDebug || cfg.SyncWorkers != 8 {
		t.Fatalf("unexpected settings: %+v", cfg)
	}
	if err := cfg.RequireProvider(); err != nil {
		t.Fatalf("unexpected provider error: %v", err)
	}
}

func TestFromEnv_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"API_FOOTBALL_TIMEOUT":               "-1s",
		"API_FOOTBALL_MAX_RETRIES":           "-1",
		"API_FOOTBALL_CIRCUIT_FAILURE_COUNT": "0",
		"API_FOOTBALL_CIRCUIT_ENABLED":       "maybe",
		"SYNC_WORKERS":                       "0",
		"CACHE_TTL":                          "soon",
		"DB_BUSY_TIMEOUT":                    "0s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv(key, value)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestFromEnv_RetryDelayOrdering(t *testing.T) {
	t.Setenv("API_FOOTBALL_RETRY_INITIAL_DELAY", "3s")
	t.Setenv("API_FOOTBALL_RETRY_MAX_DELAY", "1s")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when max delay is below initial delay")
	}
}

func TestFromEnv_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}

	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev/1"`)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/1" {
		t.Fatalf("unexpected dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_ReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("API_FOOTBALL_KEY=from-file\nMATCHLOG_DB_PATH=from-file.db\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("MATCHLOG_DB_PATH", "from-env.db")
	t.Setenv("API_FOOTBALL_KEY", "")
	os.Unsetenv("API_FOOTBALL_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIFootballKey != "from-file" {
		t.Fatalf("expected key from .env, got %q", cfg.APIFootballKey)
	}
	if cfg.DBPath != "from-env.db" {
		t.Fatalf("environment must win over .env, got %q", cfg.DBPath)
	}
}
