package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string

	GRPCPort int
	HTTPPort int

	// Storage selects the persistence backend: "postgres" or "memory".
	Storage     string
	DatabaseURL string
	Postgres    PostgresConfig

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint string

	CheckoutMaxConcurrent  int
	CheckoutLeaseTTL       time.Duration
	StrictOrderTransitions bool
	RequestTimeout         time.Duration
}

type PostgresConfig struct {
	Host string
	Port int
	User string
	Pass string
	DB   string
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		GRPCPort: getEnvInt("GRPC_PORT", 8081),

		Storage:     strings.ToLower(getEnv("STORAGE", "postgres")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Postgres: PostgresConfig{
			Host: getEnv("POSTGRES_HOST", "localhost"),
			Port: getEnvInt("POSTGRES_PORT", 5432),
			User: getEnv("POSTGRES_USER", "shopping"),
			Pass: getEnv("POSTGRES_PASSWORD", "shoppingpassword"),
			DB:   getEnv("POSTGRES_DB", "shopping_db"),
		},

		RedisURL: getEnv("REDIS_URL", ""),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "orders.events"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		CheckoutMaxConcurrent:  getEnvInt("CHECKOUT_MAX_CONCURRENT", 10),
		CheckoutLeaseTTL:       getEnvDuration("CHECKOUT_LEASE_TTL", 15*time.Second),
		StrictOrderTransitions: getEnvBool("ORDER_STRICT_TRANSITIONS", false),
		RequestTimeout:         getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

// DSN returns DatabaseURL when set, otherwise a URL assembled from the
// POSTGRES_* parts.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	p := c.Postgres
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", p.User, p.Pass, p.Host, p.Port, p.DB)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
