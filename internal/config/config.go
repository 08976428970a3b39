package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BusNone = "none"
	BusNats = "nats"
	BusGRPC = "grpc"
)

type Config struct {
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	DefaultBalance int64
	StoreTimeout   time.Duration
	LogLevel       slog.Level
	ApiEnabled     string
	ApiPort        string
	GRPCPort       string
	BusProvider    string
	NatsHost       string
	NatsPort       string
	GRPCBusHost    string
	GRPCBusPort    string
	JournalEnabled bool
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	SSLMode        string
}

// New loads and validates configuration from environment variables.
// HTTP server is optional: if CHARGELINE_API_ENABLED != "true", ApiAddr() returns an error
// and the HTTP server simply won't start. Postgres is only required when the journal is enabled.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RedisHost:      os.Getenv("CHARGELINE_REDIS_HOST"),
		RedisPort:      os.Getenv("CHARGELINE_REDIS_PORT"),
		RedisPassword:  os.Getenv("CHARGELINE_REDIS_PASSWORD"),
		RedisDB:        getEnvInt("CHARGELINE_REDIS_DB", 0),
		DefaultBalance: int64(getEnvInt("CHARGELINE_DEFAULT_BALANCE", 100)),
		StoreTimeout:   getEnvDuration("CHARGELINE_STORE_TIMEOUT", 2*time.Second),
		ApiEnabled:     os.Getenv("CHARGELINE_API_ENABLED"),
		ApiPort:        os.Getenv("CHARGELINE_API_PORT"),
		GRPCPort:       getEnv("CHARGELINE_GRPC_PORT", "50051"),
		BusProvider:    getEnv("CHARGELINE_BUS_PROVIDER", BusNone),
		NatsHost:       os.Getenv("CHARGELINE_NATS_HOST"),
		NatsPort:       os.Getenv("CHARGELINE_NATS_PORT"),
		GRPCBusHost:    os.Getenv("CHARGELINE_GRPC_BUS_HOST"),
		GRPCBusPort:    os.Getenv("CHARGELINE_GRPC_BUS_PORT"),
		JournalEnabled: os.Getenv("CHARGELINE_JOURNAL_ENABLED") == "true",
		DBUser:         os.Getenv("CHARGELINE_POSTGRES_USER"),
		DBPass:         os.Getenv("CHARGELINE_POSTGRES_PASSWORD"),
		DBHost:         os.Getenv("CHARGELINE_POSTGRES_HOST"),
		DBPort:         getEnv("CHARGELINE_POSTGRES_PORT", "5432"),
		DBName:         os.Getenv("CHARGELINE_POSTGRES_DB"),
		SSLMode:        getEnv("CHARGELINE_POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("CHARGELINE_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid CHARGELINE_LOG_LEVEL: %w", err)
	}

	// Required: redis
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil, fmt.Errorf("missing required env for redis: CHARGELINE_REDIS_HOST/PORT")
	}

	if cfg.DefaultBalance < 0 {
		return nil, fmt.Errorf("CHARGELINE_DEFAULT_BALANCE must not be negative, got %d", cfg.DefaultBalance)
	}

	switch cfg.BusProvider {
	case BusNone:
	case BusNats:
		if cfg.NatsHost == "" || cfg.NatsPort == "" {
			return nil, fmt.Errorf("missing required env for nats bus: CHARGELINE_NATS_HOST/PORT")
		}
	case BusGRPC:
		if cfg.GRPCBusHost == "" || cfg.GRPCBusPort == "" {
			return nil, fmt.Errorf("missing required env for grpc bus: CHARGELINE_GRPC_BUS_HOST/PORT")
		}
	default:
		return nil, fmt.Errorf("invalid bus provider %q, must be 'none', 'nats' or 'grpc'", cfg.BusProvider)
	}

	if cfg.JournalEnabled {
		if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" {
			return nil, fmt.Errorf("missing required env for journal database: CHARGELINE_POSTGRES_USER/HOST/DB")
		}
		if cfg.BusProvider == BusNone {
			return nil, fmt.Errorf("CHARGELINE_JOURNAL_ENABLED=true requires a bus provider")
		}
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) GRPCAddr() string {
	return ":" + c.GRPCPort
}

func (c *Config) GRPCBusAddr() string {
	return fmt.Sprintf("%s:%s", c.GRPCBusHost, c.GRPCBusPort)
}

// ApiAddr returns the HTTP listen address if the API is enabled.
// Returns an error if CHARGELINE_API_ENABLED != "true"; callers should skip starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("CHARGELINE_API_PORT is required when CHARGELINE_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (CHARGELINE_API_ENABLED != true)")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
