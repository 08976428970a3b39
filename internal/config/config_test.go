package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRedisEnv(t *testing.T) {
	t.Setenv("CHARGELINE_REDIS_HOST", "localhost")
	t.Setenv("CHARGELINE_REDIS_PORT", "6379")
}

func TestNew_Defaults(t *testing.T) {
	setRedisEnv(t)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, int64(100), cfg.DefaultBalance)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BusNone, cfg.BusProvider)
	assert.Equal(t, ":50051", cfg.GRPCAddr())

	_, err = cfg.ApiAddr()
	assert.Error(t, err)
}

func TestNew_Overrides(t *testing.T) {
	setRedisEnv(t)
	t.Setenv("CHARGELINE_DEFAULT_BALANCE", "250")
	t.Setenv("CHARGELINE_STORE_TIMEOUT", "750ms")
	t.Setenv("CHARGELINE_LOG_LEVEL", "debug")
	t.Setenv("CHARGELINE_API_ENABLED", "true")
	t.Setenv("CHARGELINE_API_PORT", "8080")
	t.Setenv("CHARGELINE_BUS_PROVIDER", "nats")
	t.Setenv("CHARGELINE_NATS_HOST", "nats")
	t.Setenv("CHARGELINE_NATS_PORT", "4222")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, int64(250), cfg.DefaultBalance)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "nats://nats:4222", cfg.NatsAddr())

	addr, err := cfg.ApiAddr()
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing redis", env: map[string]string{"CHARGELINE_REDIS_HOST": ""}},
		{name: "unknown bus", env: map[string]string{"CHARGELINE_BUS_PROVIDER": "kafka"}},
		{name: "nats without address", env: map[string]string{"CHARGELINE_BUS_PROVIDER": "nats"}},
		{name: "grpc without address", env: map[string]string{"CHARGELINE_BUS_PROVIDER": "grpc"}},
		{name: "negative balance", env: map[string]string{"CHARGELINE_DEFAULT_BALANCE": "-1"}},
		{name: "bad log level", env: map[string]string{"CHARGELINE_LOG_LEVEL": "loud"}},
		{name: "journal without bus", env: map[string]string{
			"CHARGELINE_JOURNAL_ENABLED": "true",
			"CHARGELINE_POSTGRES_USER":   "postgres",
			"CHARGELINE_POSTGRES_HOST":   "localhost",
			"CHARGELINE_POSTGRES_DB":     "chargeline",
		}},
		{name: "journal without database", env: map[string]string{
			"CHARGELINE_JOURNAL_ENABLED": "true",
			"CHARGELINE_BUS_PROVIDER":    "grpc",
			"CHARGELINE_GRPC_BUS_HOST":   "localhost",
			"CHARGELINE_GRPC_BUS_PORT":   "50051",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRedisEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPass: "p", DBHost: "h", DBPort: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.DSN())
}
