package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via MINTGATE_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// Server captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Server struct {
	Addr          string
	AdminToken    string
	JWTSigningKey string

	StoreBackend string
	PostgresURL  string
	BoltPath     string

	OracleURL   string
	TreasuryURL string

	// BeneficiaryAddress is the designated fund destination for earmarked
	// proceeds. AdminPayoutAddress receives administrator withdrawals.
	BeneficiaryAddress string
	AdminPayoutAddress string

	// InitialUnitPrice is in the native currency's smallest unit.
	InitialUnitPrice uint64
	InitialBaseURI   string

	Redis RedisConfig
	Kafka KafkaConfig

	MintRateLimit  int
	MintRateWindow time.Duration
}

// RedisConfig configures the optional Redis-backed mint rate limiter.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional mint event stream. Empty Brokers
// disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("MINTGATE_ADDR", ":8080"),
		AdminToken:    envOr("MINTGATE_ADMIN_TOKEN", "dev-admin-token-change-in-production"),
		JWTSigningKey: envOr("MINTGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		StoreBackend: envOr("MINTGATE_STORE", StoreMemory),
		PostgresURL:  os.Getenv("MINTGATE_POSTGRES_URL"),
		BoltPath:     envOr("MINTGATE_BOLT_PATH", "mintgate.db"),

		OracleURL:   os.Getenv("MINTGATE_ORACLE_URL"),
		TreasuryURL: os.Getenv("MINTGATE_TREASURY_URL"),

		BeneficiaryAddress: os.Getenv("MINTGATE_BENEFICIARY_ADDRESS"),
		AdminPayoutAddress: os.Getenv("MINTGATE_ADMIN_PAYOUT_ADDRESS"),

		InitialUnitPrice: envUint("MINTGATE_UNIT_PRICE", 20_000_000), // 0.02 in smallest units
		InitialBaseURI:   envOr("MINTGATE_BASE_URI", ""),

		Redis: RedisConfig{
			URL:          os.Getenv("MINTGATE_REDIS_URL"),
			PoolSize:     envInt("MINTGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MINTGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("MINTGATE_KAFKA_BROKERS")),
			Topic:   envOr("MINTGATE_KAFKA_TOPIC", "mintgate.mints"),
		},

		MintRateLimit:  envInt("MINTGATE_MINT_RATE_LIMIT", 30),
		MintRateWindow: time.Minute,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
