package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Feed     FeedConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis connection and pool settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the broker list and topic for audit events.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FeedConfig holds settings for the upstream government data feed.
// A zero SyncInterval disables the periodic sync; manual triggers
// through the admin endpoint always work.
type FeedConfig struct {
	BaseURL      string
	Timeout      time.Duration
	SyncInterval time.Duration
}

// ValidationCacheTTL bounds how long entity validation results may be reused.
var ValidationCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GOVREG_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	feedTimeout := durationEnv("GOVREG_FEED_TIMEOUT", 10*time.Second)

	return Server{
		Addr: addr,
		Database: DatabaseConfig{
			URL: os.Getenv("GOVREG_DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("GOVREG_REDIS_URL"),
			PoolSize:     intEnv("GOVREG_REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("GOVREG_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationEnv("GOVREG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("GOVREG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("GOVREG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitEnv("GOVREG_KAFKA_BROKERS"),
			AuditTopic: envOr("GOVREG_KAFKA_AUDIT_TOPIC", "govregistry.audit"),
		},
		Feed: FeedConfig{
			BaseURL:      os.Getenv("GOVREG_FEED_BASE_URL"),
			Timeout:      feedTimeout,
			SyncInterval: durationEnv("GOVREG_SYNC_INTERVAL", 0),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
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

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
