package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/matchlog/external/apifootball"
	"github.com/riskibarqy/matchlog/internal/config"
	"github.com/riskibarqy/matchlog/internal/infrastructure/repository/sqlite"
	"github.com/riskibarqy/matchlog/internal/observability"
	"github.com/riskibarqy/matchlog/internal/platform/cache"
	idgen "github.com/riskibarqy/matchlog/internal/platform/id"
	"github.com/riskibarqy/matchlog/internal/platform/logging"
	"github.com/riskibarqy/matchlog/internal/platform/resilience"
	"github.com/riskibarqy/matchlog/internal/usecase"
)

// App holds the wired components shared by the command line entry points.
type App struct {
	Config    config.Config
	Logger    *logging.Logger
	DB        *sqlite.DB
	Matches   *sqlite.MatchRepository
	Client    *apifootball.Client
	Fetcher   *ResilientFetcher
	Ingestion *usecase.IngestionService
	MatchSvc  *usecase.MatchService

	shutdownTelemetry func(context.Context) error
}

// New opens the store, applies migrations and wires the services. Close must be
// called when the returned App is no longer needed.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	shutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}

	db, err := sqlite.Open(ctx, sqlite.Config{
		Path:        cfg.DBPath,
		BusyTimeout: cfg.DBBusyTimeout,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	var teamCache *cache.Store[[]apifootball.Team]
	if cfg.CacheEnabled {
		teamCache = cache.NewStore[[]apifootball.Team](cfg.CacheTTL)
	}

	client := apifootball.NewClient(apifootball.ClientConfig{
		BaseURL:   cfg.APIFootballBaseURL,
		Host:      cfg.APIFootballHost,
		APIKey:    cfg.APIFootballKey,
		Timeout:   cfg.APIFootballTimeout,
		Logger:    logger,
		TeamCache: teamCache,
	})
	fetcher := NewResilientFetcher(client, ResilientFetcherConfig{
		Retry:          retryConfigFrom(cfg),
		CircuitBreaker: circuitConfigFrom(cfg),
		Logger:         logger,
	})

	repo := sqlite.NewMatchRepository(db)

	return &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Matches: repo,
		Client:  client,
		Fetcher: fetcher,
		Ingestion: usecase.NewIngestionService(
			fetcher,
			repo,
			idgen.NewUUIDGenerator(),
			usecase.IngestionConfig{SyncWorkers: cfg.SyncWorkers},
			logger,
		),
		MatchSvc:          usecase.NewMatchService(repo),
		shutdownTelemetry: shutdown,
	}, nil
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

func retryConfigFrom(cfg config.Config) resilience.RetryConfig {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.APIFootballMaxRetries + 1
	retry.InitialDelay = cfg.APIFootballRetryInitialDelay
	retry.MaxDelay = cfg.APIFootballRetryMaxDelay
	return retry
}

func circuitConfigFrom(cfg config.Config) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          cfg.APIFootballCircuitEnabled,
		FailureThreshold: cfg.APIFootballCircuitFailures,
		OpenTimeout:      cfg.APIFootballCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.APIFootballCircuitHalfOpenMax,
	}
}
