package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"tessera/pkg/domain"
)

// Config captures server, store, and protocol level configuration.
type Config struct {
	Addr string

	// PostgresDSN selects the PostgreSQL stores when non-empty; otherwise the
	// in-memory stores back the ledger.
	PostgresDSN string
	// RedisURL enables the Redis compliance-record cache when non-empty.
	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSigningKey string

	// ProtocolMaxHolding is the anti-concentration ceiling: the maximum share
	// balance any single address may hold for an asset. Zero disables it.
	ProtocolMaxHolding domain.Shares
	// MinHoldPeriod is the sell lock measured from the holder's last
	// purchase. The clock is per address, not per purchase lot.
	MinHoldPeriod time.Duration
	// EscrowAddress is the payment-token account the engine settles through.
	EscrowAddress domain.Address
}

// RedisConfig tunes the go-redis client pool.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis returns pool settings for the configured Redis URL.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("TESSERA_ADDR", ":8080"),
		PostgresDSN:        os.Getenv("TESSERA_POSTGRES_DSN"),
		RedisURL:           os.Getenv("TESSERA_REDIS_URL"),
		KafkaTopic:         envOr("TESSERA_KAFKA_TOPIC", "tessera.ledger.events"),
		JWTSigningKey:      envOr("TESSERA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ProtocolMaxHolding: domain.Shares(envInt("TESSERA_PROTOCOL_MAX_HOLDING", 0)),
		MinHoldPeriod:      envDuration("TESSERA_MIN_HOLD_PERIOD", 24*time.Hour),
		EscrowAddress:      domain.Address(envOr("TESSERA_ESCROW_ADDRESS", "tessera-escrow")),
	}
	if brokers := os.Getenv("TESSERA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
