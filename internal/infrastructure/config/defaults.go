package config

import "time"

// SetDefaults sets default values for all configuration fields not supplied
// by file or environment, matching spec.md §6's documented defaults.
func SetDefaults(cfg *Config) {
	if cfg.Bot.SleepMin == 0 {
		cfg.Bot.SleepMin = 600 * time.Second
	}
	if cfg.Bot.SleepMax == 0 {
		cfg.Bot.SleepMax = 900 * time.Second
	}
	if cfg.Bot.MinTimeBeforeAttackToAct == 0 {
		cfg.Bot.MinTimeBeforeAttackToAct = 120 * time.Second
	}
	if cfg.Bot.MaxTimeBeforeAttackToAct == 0 {
		cfg.Bot.MaxTimeBeforeAttackToAct = 180 * time.Second
	}
	if cfg.Bot.MaxReturnFlightTime == 0 {
		cfg.Bot.MaxReturnFlightTime = 600 * time.Second
	}
	if cfg.Bot.HarvestSpeed == 0 {
		cfg.Bot.HarvestSpeed = 10
	}
	// Defaults true; a config file setting it explicitly false is
	// indistinguishable from absence at this layer, same bool-zero-value
	// tradeoff as try_recalling_saved_fleet defaulting false.
	cfg.Bot.HarvestExpeditionDebris = true

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://s1-en.ogame.gameforge.com"
	}
	if cfg.API.RequestTimeout == 0 {
		cfg.API.RequestTimeout = 10 * time.Second
	}
	if cfg.API.DelayBetweenRequests == 0 {
		cfg.API.DelayBetweenRequests = 500 * time.Millisecond
	}
	if cfg.API.RateLimit.RequestsPerSecond == 0 {
		cfg.API.RateLimit.RequestsPerSecond = 2
	}
	if cfg.API.RateLimit.Burst == 0 {
		cfg.API.RateLimit.Burst = 5
	}
	if cfg.API.Retry.MaxAttempts == 0 {
		cfg.API.Retry.MaxAttempts = 3
	}
	if cfg.API.Retry.BackoffBase == 0 {
		cfg.API.Retry.BackoffBase = 1 * time.Second
	}
	if cfg.API.CircuitBreaker.FailureThreshold == 0 {
		cfg.API.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.API.CircuitBreaker.OpenDuration == 0 {
		cfg.API.CircuitBreaker.OpenDuration = 30 * time.Second
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "localhost:9090"
	}
}
