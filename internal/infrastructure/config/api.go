package config

import "time"

// APIConfig holds remote-client configuration: where the game lives and how
// hard the client is allowed to hit it.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Per-request timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required"`

	// Minimum spacing enforced between successive requests, independent of
	// the token-bucket rate limiter below.
	DelayBetweenRequests time.Duration `mapstructure:"delay_between_requests"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// RateLimitConfig sizes the token-bucket rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`
	Burst             int     `mapstructure:"burst" validate:"min=1"`
}

// RetryConfig controls the backoff ladder for transient remote errors.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=0"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

// CircuitBreakerConfig trips the remote client off after repeated failures.
type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"min=1"`
	OpenDuration     time.Duration `mapstructure:"open_duration"`
}
