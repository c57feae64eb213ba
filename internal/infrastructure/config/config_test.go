package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogsentinel/fleetwatch/internal/infrastructure/config"
)

func TestDefaultsProduceAValidConfig(t *testing.T) {
	cfg := &config.Config{}
	config.SetDefaults(cfg)

	require.NoError(t, config.ValidateConfig(cfg))
	assert.Equal(t, "https://s1-en.ogame.gameforge.com", cfg.API.BaseURL)
	assert.True(t, cfg.Bot.HarvestExpeditionDebris)
	assert.Equal(t, 10, cfg.Bot.HarvestSpeed)
}

func TestSetDefaultsDoesNotOverrideExplicitValues(t *testing.T) {
	cfg := &config.Config{}
	cfg.Bot.SleepMin = 42
	cfg.API.BaseURL = "https://example.test"

	config.SetDefaults(cfg)

	assert.Equal(t, 42, int(cfg.Bot.SleepMin))
	assert.Equal(t, "https://example.test", cfg.API.BaseURL)
}

func TestValidateConfigRejectsInvertedSleepWindow(t *testing.T) {
	cfg := &config.Config{}
	config.SetDefaults(cfg)
	cfg.Bot.SleepMax = cfg.Bot.SleepMin - 1

	assert.Error(t, config.ValidateConfig(cfg))
}

func TestValidateConfigRejectsUnknownListenerType(t *testing.T) {
	cfg := &config.Config{}
	config.SetDefaults(cfg)
	cfg.Listeners = []config.ListenerConfig{{Name: "bad", Type: "carrier-pigeon"}}

	assert.Error(t, config.ValidateConfig(cfg))
}

func TestValidateConfigRequiresWebhookURLForWebhookListener(t *testing.T) {
	cfg := &config.Config{}
	config.SetDefaults(cfg)
	cfg.Listeners = []config.ListenerConfig{{Name: "alerts", Type: "webhook"}}

	assert.Error(t, config.ValidateConfig(cfg))

	cfg.Listeners[0].WebhookURL = "https://hooks.example.test/x"
	assert.NoError(t, config.ValidateConfig(cfg))
}
