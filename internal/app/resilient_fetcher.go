package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/matchlog/internal/platform/logging"
	"github.com/riskibarqy/matchlog/internal/platform/resilience"
	"github.com/riskibarqy/matchlog/internal/usecase"
)

type ResilientFetcherConfig struct {
	Retry          resilience.RetryConfig
	CircuitBreaker resilience.CircuitBreakerConfig
	Logger         *logging.Logger
}

// normalized fills defaults and installs the upstream error classifiers. Only
// rate-limited and transport failures are retried or counted by the breaker.
func (cfg ResilientFetcherConfig) normalized() ResilientFetcherConfig {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	cfg.Retry = cfg.Retry.Normalized()
	cfg.Retry.Retryable = isRetryableFetchError
	cfg.CircuitBreaker = cfg.CircuitBreaker.Normalized()
	cfg.CircuitBreaker.IsFailure = usecase.IsRetryable
	return cfg
}

// ResilientFetcher guards an upstream fetcher with a circuit breaker and bounded
// retries. The last error is returned unchanged.
type ResilientFetcher struct {
	next    usecase.MatchFetcher
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

func NewResilientFetcher(next usecase.MatchFetcher, cfg ResilientFetcherConfig) *ResilientFetcher {
	cfg = cfg.normalized()

	f := &ResilientFetcher{
		next:   next,
		logger: cfg.Logger,
	}
	cfg.Retry.OnRetry = f.logRetry
	cfg.CircuitBreaker.OnStateChange = f.logCircuitChange
	f.retry = cfg.Retry
	f.breaker = resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	return f
}

func (f *ResilientFetcher) FetchMatch(ctx context.Context, ref usecase.MatchReference) (usecase.MatchData, error) {
	return resilience.DoWithResult(ctx, f.retry, func(ctx context.Context) (usecase.MatchData, error) {
		var out usecase.MatchData
		err := f.guard(ctx, func(ctx context.Context) error {
			var err error
			out, err = f.next.FetchMatch(ctx, ref)
			return err
		})
		return out, err
	})
}

func (f *ResilientFetcher) FetchTeamFixtures(ctx context.Context, teamID, leagueID int64, season int) ([]usecase.MatchData, error) {
	fixtures, ok := f.next.(usecase.TeamFixtureFetcher)
	if !ok {
		return nil, fmt.Errorf("%w: team fixtures are not supported by this provider", usecase.ErrValidation)
	}

	return resilience.DoWithResult(ctx, f.retry, func(ctx context.Context) ([]usecase.MatchData, error) {
		var out []usecase.MatchData
		err := f.guard(ctx, func(ctx context.Context) error {
			var err error
			out, err = fixtures.FetchTeamFixtures(ctx, teamID, leagueID, season)
			return err
		})
		return out, err
	})
}

func (f *ResilientFetcher) CircuitState() resilience.CircuitState {
	return f.breaker.State()
}

func (f *ResilientFetcher) guard(ctx context.Context, call func(context.Context) error) error {
	if err := f.breaker.Allow(); err != nil {
		f.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", f.breaker.State())
		return fmt.Errorf("%w: %w", usecase.ErrTransport, err)
	}

	err := call(ctx)
	f.breaker.Record(err)
	return err
}

func (f *ResilientFetcher) logRetry(attempt int, delay time.Duration, err error) {
	f.logger.Warn("api-football request retry",
		"attempt", attempt,
		"delay", delay.String(),
		"kind", usecase.KindOf(err),
		"error", err,
	)
}

func (f *ResilientFetcher) logCircuitChange(from, to resilience.CircuitState) {
	f.logger.Warn("api-football circuit breaker state changed",
		"from", from,
		"to", to,
	)
}

func isRetryableFetchError(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	return usecase.IsRetryable(err)
}
