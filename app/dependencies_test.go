package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/waqf-policy-engine/config"
	"github.com/upb/waqf-policy-engine/models"
	"go.uber.org/zap/zaptest"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Environment: "test",
		Store:       config.StoreConfig{Driver: driver},
		Throttle:    config.ThrottleConfig{Enabled: true, RequestsPerSecond: 5, Burst: 10},
		Policy:      config.DefaultPolicyConfig(),
		Observability: config.ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
		},
	}
}

func TestNewDependencies(t *testing.T) {
	t.Run("memory store wires every component", func(t *testing.T) {
		ctx := context.Background()
		deps, err := NewDependencies(ctx, testConfig(config.StoreDriverMemory), zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.NotNil(t, deps.Store)
		assert.NotNil(t, deps.Metrics)
		assert.NotNil(t, deps.Engine)
		assert.NotNil(t, deps.Documents)
		assert.NotNil(t, deps.Emitter)
		assert.NotNil(t, deps.Alerts)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.Throttle)

		for _, collection := range []string{
			models.CollectionAdmins, models.CollectionAdminApprovals, models.CollectionAdminAudit,
			models.CollectionCauses, models.CollectionWaqfs, models.CollectionWaqfAudit,
		} {
			assert.True(t, deps.Documents.Governs(collection), collection)
		}
		assert.False(t, deps.Documents.Governs("donations"))

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("sqlite store", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(config.StoreDriverSQLite)
		cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "policy.db")

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.NoError(t, deps.Store.Ping(ctx))
		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("metrics and throttle can be disabled", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(config.StoreDriverMemory)
		cfg.Observability.MetricsEnabled = false
		cfg.Throttle.Enabled = false

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Nil(t, deps.Metrics)
		assert.Nil(t, deps.Throttle)
		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("unknown driver fails", func(t *testing.T) {
		_, err := NewDependencies(context.Background(), testConfig("cassandra"), zaptest.NewLogger(t))
		assert.Error(t, err)
	})

	t.Run("configured secret installs the JWT validator", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(config.StoreDriverMemory)
		cfg.Auth.JWTSecret = "s3cret"

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NoError(t, deps.Close(ctx))
	})
}
