package config_test

import (
	"testing"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// No config file in the temp dir: everything comes from defaults.
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.False(t, cfg.Server.IsProduction())

	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 5, cfg.Worker.PollIntervalSeconds)

	assert.InDelta(t, 0.2, cfg.Optimizer.ValidationRatio, 1e-9)
	assert.InDelta(t, 0.4, cfg.Optimizer.WeightMAPE, 1e-9)
	assert.InDelta(t, 0.3, cfg.Optimizer.WeightRMSE, 1e-9)
	assert.InDelta(t, 0.2, cfg.Optimizer.WeightMAE, 1e-9)
	assert.InDelta(t, 0.1, cfg.Optimizer.WeightAccuracy, 1e-9)

	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	t.Setenv("FORECAST_ALCHEMY_SERVER_PORT", "9090")
	t.Setenv("FORECAST_ALCHEMY_OPTIMIZER_VALIDATION_RATIO", "0.3")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.3, cfg.Optimizer.ValidationRatio, 1e-9)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("Invalid validation ratio", func(t *testing.T) {
		t.Setenv("FORECAST_ALCHEMY_OPTIMIZER_VALIDATION_RATIO", "1.5")
		_, err := config.LoadConfig(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("Invalid poll interval", func(t *testing.T) {
		t.Setenv("FORECAST_ALCHEMY_WORKER_POLL_INTERVAL_SECONDS", "0")
		_, err := config.LoadConfig(t.TempDir())
		assert.Error(t, err)
	})
}
