// Package config builds runtime configuration from the environment so main
// stays lean. A .env file is honored when present (local development).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server process needs at startup.
type Config struct {
	Addr string

	// PostgresURL is empty when running with in-memory stores.
	PostgresURL string

	// RedisURL is empty when the billing attempt tracker runs in memory.
	RedisURL string

	// KafkaBrokers is empty when the outbox relay is disabled.
	KafkaBrokers []string
	KafkaTopic   string

	Billing    BillingConfig
	Outbox     OutboxConfig
	Reconciler ReconcilerConfig
}

// BillingConfig bounds the remote provisioning call.
type BillingConfig struct {
	BaseURL     string
	CallTimeout time.Duration
	MaxRetries  int
	RetryWait   time.Duration
	RetryMax    time.Duration
}

// OutboxConfig drives the relay worker.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// AlertThreshold is the per-event attempt count past which the relay
	// escalates to an operator-visible error log.
	AlertThreshold int
}

// ReconcilerConfig drives the billing-pending reconciler.
type ReconcilerConfig struct {
	Interval  time.Duration
	BatchSize int
	// MaxAttempts is the ceiling past which a pending patient is escalated
	// to operators instead of retried automatically.
	MaxAttempts int
}

// FromEnv builds a Config from environment variables, with defaults suitable
// for local development.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:         getEnv("PATIENTFLOW_ADDR", ":8080"),
		PostgresURL:  os.Getenv("PATIENTFLOW_POSTGRES_URL"),
		RedisURL:     os.Getenv("PATIENTFLOW_REDIS_URL"),
		KafkaBrokers: splitNonEmpty(os.Getenv("PATIENTFLOW_KAFKA_BROKERS")),
		KafkaTopic:   getEnv("PATIENTFLOW_KAFKA_TOPIC", "patient"),
		Billing: BillingConfig{
			BaseURL:     getEnv("BILLING_SERVICE_URL", "http://localhost:9001"),
			CallTimeout: getDuration("BILLING_CALL_TIMEOUT", 5*time.Second),
			MaxRetries:  getInt("BILLING_MAX_RETRIES", 3),
			RetryWait:   getDuration("BILLING_RETRY_WAIT", 250*time.Millisecond),
			RetryMax:    getDuration("BILLING_RETRY_MAX", 2*time.Second),
		},
		Outbox: OutboxConfig{
			PollInterval:   getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:      getInt("OUTBOX_BATCH_SIZE", 100),
			AlertThreshold: getInt("OUTBOX_ALERT_THRESHOLD", 10),
		},
		Reconciler: ReconcilerConfig{
			Interval:    getDuration("BILLING_RECONCILE_INTERVAL", 30*time.Second),
			BatchSize:   getInt("BILLING_RECONCILE_BATCH", 50),
			MaxAttempts: getInt("BILLING_RECONCILE_MAX_ATTEMPTS", 10),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
