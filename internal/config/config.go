package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/matchlog/internal/platform/logging"
)

// Config stores runtime configuration for the matchlog tools.
type Config struct {
	AppEnv                        string
	ServiceName                   string
	ServiceVersion                string
	LogLevel                      logging.Level
	APIFootballKey                string
	APIFootballBaseURL            string
	APIFootballHost               string
	APIFootballTimeout            time.Duration
	APIFootballMaxRetries         int
	APIFootballRetryInitialDelay  time.Duration
	APIFootballRetryMaxDelay      time.Duration
	APIFootballCircuitEnabled     bool
	APIFootballCircuitFailures    int
	APIFootballCircuitOpenTimeout time.Duration
	APIFootballCircuitHalfOpenMax int
	DBPath                        string
	DBBusyTimeout                 time.Duration
	CacheEnabled                  bool
	CacheTTL                      time.Duration
	SyncWorkers                   int
	UptraceEnabled                bool
	UptraceDSN                    string
}

var ErrMissingAPIKey = errors.New("API_FOOTBALL_KEY is required")

// Load reads an optional .env file from the working directory, then the environment.
// Values already present in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	timeout, err := parsePositiveDuration("API_FOOTBALL_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	maxRetries, err := getEnvAsInt("API_FOOTBALL_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_MAX_RETRIES: %w", err)
	}
	if maxRetries < 0 {
		return Config{}, fmt.Errorf("API_FOOTBALL_MAX_RETRIES must be >= 0")
	}
	retryInitialDelay, err := parsePositiveDuration("API_FOOTBALL_RETRY_INITIAL_DELAY", "500ms")
	if err != nil {
		return Config{}, err
	}
	retryMaxDelay, err := parsePositiveDuration("API_FOOTBALL_RETRY_MAX_DELAY", "5s")
	if err != nil {
		return Config{}, err
	}
	if retryMaxDelay < retryInitialDelay {
		return Config{}, fmt.Errorf("API_FOOTBALL_RETRY_MAX_DELAY must be >= API_FOOTBALL_RETRY_INITIAL_DELAY")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("API_FOOTBALL_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailures, err := getEnvAsInt("API_FOOTBALL_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailures < 1 {
		return Config{}, fmt.Errorf("API_FOOTBALL_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := parsePositiveDuration("API_FOOTBALL_CIRCUIT_OPEN_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}
	circuitHalfOpenMax, err := getEnvAsInt("API_FOOTBALL_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_FOOTBALL_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if circuitHalfOpenMax < 1 {
		return Config{}, fmt.Errorf("API_FOOTBALL_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	dbPath := strings.TrimSpace(getEnv("MATCHLOG_DB_PATH", "football_matches.db"))
	busyTimeout, err := parsePositiveDuration("DB_BUSY_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "10m")
	if err != nil {
		return Config{}, err
	}

	syncWorkers, err := getEnvAsInt("SYNC_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_WORKERS: %w", err)
	}
	if syncWorkers < 1 || syncWorkers > 64 {
		return Config{}, fmt.Errorf("SYNC_WORKERS must be between 1 and 64")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	return Config{
		AppEnv:                        appEnv,
		ServiceName:                   strings.TrimSpace(getEnv("APP_SERVICE_NAME", "matchlog")),
		ServiceVersion:                strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		LogLevel:                      parseLogLevel(getEnv("APP_LOG_LEVEL", "warn")),
		APIFootballKey:                strings.TrimSpace(getEnv("API_FOOTBALL_KEY", "")),
		APIFootballBaseURL:            strings.TrimRight(strings.TrimSpace(getEnv("API_FOOTBALL_BASE_URL", "https://v3.football.api-sports.io")), "/"),
		APIFootballHost:               strings.TrimSpace(getEnv("API_FOOTBALL_HOST", "v3.football.api-sports.io")),
		APIFootballTimeout:            timeout,
		APIFootballMaxRetries:         maxRetries,
		APIFootballRetryInitialDelay:  retryInitialDelay,
		APIFootballRetryMaxDelay:      retryMaxDelay,
		APIFootballCircuitEnabled:     circuitEnabled,
		APIFootballCircuitFailures:    circuitFailures,
		APIFootballCircuitOpenTimeout: circuitOpenTimeout,
		APIFootballCircuitHalfOpenMax: circuitHalfOpenMax,
		DBPath:                        dbPath,
		DBBusyTimeout:                 busyTimeout,
		CacheEnabled:                  cacheEnabled,
		CacheTTL:                      cacheTTL,
		SyncWorkers:                   syncWorkers,
		UptraceEnabled:                uptraceEnabled,
		UptraceDSN:                    uptraceDSN,
	}, nil
}

// RequireProvider fails when commands that call API-Football have no credential.
func (c Config) RequireProvider() error {
	if c.APIFootballKey == "" {
		return fmt.Errorf("%w: set it in the environment or in a .env file", ErrMissingAPIKey)
	}
	return nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "info":
		return logging.LevelInfo
	case "error":
		return logging.LevelError
	default:
		return logging.LevelWarn
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return value, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
