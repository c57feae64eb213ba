package config

// ListenerConfig is one named notification sink to wire up at startup.
type ListenerConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Type string `mapstructure:"type" validate:"required,oneof=log webhook"`

	// Used when Type == "webhook".
	WebhookURL string `mapstructure:"webhook_url" validate:"required_if=Type webhook"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
