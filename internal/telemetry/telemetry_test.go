package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusgen/statusgen/internal/config"
	"github.com/statusgen/statusgen/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.False(t, provider.Enabled())
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Enabled = true
	cfg.Environment = "production"

	got := telemetry.FromConfig(cfg, "v1.2.3", "run-42")

	assert.Equal(t, telemetry.Config{
		ServiceVersion: "v1.2.3",
		Environment:    "production",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        true,
		RunID:          "run-42",
		ExportTimeout:  5 * time.Second,
	}, got)
}
