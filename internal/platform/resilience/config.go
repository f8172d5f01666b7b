package resilience

import "time"

// CircuitBreakerConfig describes when a breaker opens and how it tests for recovery.
type CircuitBreakerConfig struct {
	// Enabled false turns the breaker into a pass-through.
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
	// IsFailure decides whether a call error counts against the dependency.
	// Nil counts every error.
	IsFailure func(error) bool
	// OnStateChange observes transitions. It runs after the breaker lock is released.
	OnStateChange func(from, to CircuitState)
}

// RetryConfig controls DoWithResult.
type RetryConfig struct {
	// MaxAttempts includes the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFraction spreads each delay by up to ±fraction. Zero disables jitter.
	JitterFraction float64
	// Retryable decides whether an error is worth another attempt. Nil retries every error.
	Retryable func(error) bool
	// OnRetry is called before sleeping ahead of attempt+1.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultCircuitBreakerConfig suits a metered HTTP provider: a handful of
// consecutive failures opens the circuit for a short cool-down.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Normalized fills unset or out-of-range fields from DefaultCircuitBreakerConfig.
// Enabled and the callbacks are kept as given.
func (cfg CircuitBreakerConfig) Normalized() CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.HalfOpenMaxReq < 1 {
		cfg.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return cfg
}

// Normalized fills unset or out-of-range fields from DefaultRetryConfig.
// A MaxAttempts below one means a single attempt.
func (cfg RetryConfig) Normalized() RetryConfig {
	defaults := DefaultRetryConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaults.InitialDelay
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = defaults.Multiplier
	}
	if cfg.JitterFraction < 0 || cfg.JitterFraction > 1 {
		cfg.JitterFraction = defaults.JitterFraction
	}
	return cfg
}
