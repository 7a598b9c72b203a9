package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Pricing  PricingConfig
	Gateway  GatewayConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr string
	// How long a per-order mutation lock or exclusive-purchase guard lives
	// before expiring on its own.
	LockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Enabled bool
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	// AutoMigrate runs pending schema migrations on startup.
	AutoMigrate   bool
	MigrationsDir string
}

type PricingConfig struct {
	// VATRate is jurisdiction configuration, not business logic. Default is
	// the German rate.
	VATRate  float64
	Currency string
}

type GatewayConfig struct {
	// ChargeTimeout bounds how long checkout blocks on the payment gateway.
	ChargeTimeout time.Duration
	StripeKey     string
}

type AuthConfig struct {
	OIDCIssuer string
	RoleClaim  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8086"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			LockTTL: time.Duration(getEnvInt("LOCK_TTL_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			GroupID: getEnv("KAFKA_GROUP_ID", "licensing-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", false),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		Pricing: PricingConfig{
			VATRate:  getEnvFloat("VAT_RATE", 0.19),
			Currency: getEnv("CURRENCY", "eur"),
		},
		Gateway: GatewayConfig{
			ChargeTimeout: time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 10)) * time.Second,
			StripeKey:     getEnv("STRIPE_SECRET_KEY", ""),
		},
		Auth: AuthConfig{
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			RoleClaim:  getEnv("OIDC_ROLE_CLAIM", "role"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
