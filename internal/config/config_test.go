package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns, "sqlite runs on a single connection")
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "pos.kot.events", cfg.Kafka.Topics.KOTEvents)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://pos@localhost/pos")
	t.Setenv("DB_MAX_OPEN_CONNS", "10")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("CURRENCY", "LKR")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "lkr", cfg.Stripe.Currency)
}

func TestValidate(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		cfg := &Config{Database: DatabaseConfig{Driver: "oracle"}, Auth: AuthConfig{SessionTTL: time.Hour}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		cfg := &Config{Database: DatabaseConfig{Driver: "postgres"}, Auth: AuthConfig{SessionTTL: time.Hour}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("production requires jwt secret", func(t *testing.T) {
		cfg := &Config{Env: "production", Database: DatabaseConfig{Driver: "sqlite", Path: "pos.db"}, Auth: AuthConfig{SessionTTL: time.Hour}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("development falls back to a dev secret", func(t *testing.T) {
		cfg := &Config{Env: "development", Database: DatabaseConfig{Driver: "sqlite", Path: "pos.db"}, Auth: AuthConfig{SessionTTL: time.Hour}}
		require.NoError(t, cfg.Validate())
		assert.NotEmpty(t, cfg.Auth.JWTSecret)
		assert.Equal(t, cfg.Auth.JWTSecret, cfg.Receipt.Secret)
	})
}
